package physics

import "fmt"

// PreconditionError is the panic value raised when a caller breaks an API
// contract: negative mass or radius, joining an awake sleep group, or a
// kernel record whose user data is not one of our wrappers.
type PreconditionError struct {
	msg string
}

func (e *PreconditionError) Error() string {
	return "physics: " + e.msg
}

func assertHard(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic(&PreconditionError{msg: fmt.Sprintf(format, args...)})
}
