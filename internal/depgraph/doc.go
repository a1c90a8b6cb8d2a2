// Package depgraph computes build dependency closures within one repository.
//
// A Graph holds consumer -> provider edges taken from the Build Service
// dependency metadata of a single repository. Closures never cross
// repositories, and a Resolver builds one graph per repository on demand.
//
// Both closures are breadth-first walks restricted to a universe of
// packages, guarded by a visited set so dependency cycles terminate.
// Output order is deterministic: trigger packages that are part of the
// universe come first in the order given, followed by newly reached
// packages in discovery order. Neighbours are expanded in the order the
// metadata declares them: for the forward closure the order of a
// package's dependency list, for the reverse closure the order in which
// consumers appear in the metadata.
package depgraph
