package buildservice

import (
	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
)

var (
	// ErrProjectNotFound signals that a project does not exist on the Build Service.
	ErrProjectNotFound = errors.NotFoundError("project not found").Build()

	// ErrPackageNotFound signals that a package does not exist in a project.
	ErrPackageNotFound = errors.NotFoundError("package not found").WithSeverity(errors.SeverityError).Build()

	// ErrPermissionDenied signals that the credentials lack the rights for an operation.
	ErrPermissionDenied = errors.AuthError("permission denied").Build()

	// ErrAuthRequired signals that the Build Service rejected anonymous access.
	ErrAuthRequired = errors.AuthError("authentication required").Build()
)
