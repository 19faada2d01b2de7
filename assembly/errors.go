package assembly

import "fmt"

// Error is returned when backend assembly fails. Err is the first error
// encountered.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("assembly for backend %q failed: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
