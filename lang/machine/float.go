package machine

import "fmt"

// Float is the type of numbers, an IEEE-754 double. Division by zero is not
// an error, it yields an infinity or NaN as the standard prescribes.
type Float float64

var _ Value = Float(0)

func (f Float) String() string {
	return fmt.Sprintf("%g", float64(f))
}

func (f Float) Type() string { return "number" }
