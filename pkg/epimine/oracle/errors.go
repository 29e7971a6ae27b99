package oracle

import "fmt"

// PanicError carries a panic raised inside an Oracle call.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("oracle panic: %v", e.Value)
}
