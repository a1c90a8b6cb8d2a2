package commands

import (
	"bufio"
	"os"
	"strings"

	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/util/sets"
)

// readPackageFile returns one package name per non-empty line. Lines
// starting with # are comments.
func readPackageFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ValidationError("cannot read package file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.ValidationError("cannot read package file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return names, nil
}

// mergeNames concatenates lists in order, trimming names and dropping
// blanks and duplicates.
func mergeNames(lists ...[]string) []string {
	seen := sets.New[string]()
	var out []string
	for _, list := range lists {
		for _, n := range list {
			n = strings.TrimSpace(n)
			if n == "" || !seen.Insert(n) {
				continue
			}
			out = append(out, n)
		}
	}
	return out
}
