package export

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the database or table of an export does not exist
// (or is not visible to the tenant).
var ErrNotFound = errors.New("not found")

// ParameterError is a request parameter the export cannot proceed with.
type ParameterError struct {
	Param   string
	Message string
	Details any
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Message)
}

// IsParameterError reports whether err is (or wraps) a ParameterError.
func IsParameterError(err error) bool {
	var pe *ParameterError
	return errors.As(err, &pe)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
