package devices

import "strings"

// ErrorSet defines a list of one or more errors and is itself an error.
type ErrorSet []error

// Len returns the number of errors in the set.
func (e ErrorSet) Len() int {
	return len(e)
}

// Append adds the given errors to the set.
func (e *ErrorSet) Append(args ...error) {
	*e = append(*e, args...)
}

// Unwrap returns the errors in the set, so errors.Is and errors.As match
// any of them.
func (e ErrorSet) Unwrap() []error {
	return e
}

func (e ErrorSet) Error() string {
	var sb strings.Builder
	for i, err := range e {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}
