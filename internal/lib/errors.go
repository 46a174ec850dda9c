package lib

import "fmt"

// WrapError wraps child error with parent, so that both are matchable with errors.Is
func WrapError(parent error, child error) error {
	return fmt.Errorf("%w: %w", parent, child)
}
