package profile

import (
	"fmt"
	"strings"
)

func Validate(ops []Operation, allowed map[string]bool) error {
	for i, op := range ops {
		switch op.Op {
		case OperationAdd, OperationRemove, OperationReplace:
		default:
			return fmt.Errorf("operation %d: unsupported op %q", i, op.Op)
		}
		if err := validatePath(op.Path, allowed); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

func validatePath(path string, allowed map[string]bool) error {
	if len(allowed) == 0 || allowed[path] {
		return nil
	}
	if matchWildcard(strings.Split(path, "/"), 1, allowed, false) {
		return nil
	}
	return fmt.Errorf("path %q is not in the allowed paths set", path)
}

// matchWildcard tries "-" and "*" for every segment from index on.
func matchWildcard(segments []string, index int, allowed map[string]bool, wild bool) bool {
	if index >= len(segments) {
		return wild && allowed[strings.Join(segments, "/")]
	}
	original := segments[index]
	defer func() { segments[index] = original }()

	for _, w := range []string{"-", "*"} {
		segments[index] = w
		if matchWildcard(segments, index+1, allowed, true) {
			return true
		}
	}
	segments[index] = original
	return matchWildcard(segments, index+1, allowed, wild)
}
