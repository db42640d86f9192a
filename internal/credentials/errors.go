package credentials

import "fmt"

// LoadError represents an error reading or resolving the credentials file
type LoadError struct {
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("credentials error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("credentials error: %s", e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
