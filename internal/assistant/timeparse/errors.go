package timeparse

import "fmt"

// ParseError represents an error that occurred while normalizing a
// date or duration expression.
type ParseError struct {
	message string
}

// NewParseError creates a new parse error.
func NewParseError(message string, args ...interface{}) *ParseError {
	return &ParseError{
		message: fmt.Sprintf(message, args...),
	}
}

// Error returns the error message.
func (pe *ParseError) Error() string {
	return pe.message
}
