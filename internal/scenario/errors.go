package scenario

import "fmt"

// MalformedTaskError reports a structural or parameter validation
// failure in a scenario definition. It is fatal at load time; a run
// with a malformed scenario never starts.
type MalformedTaskError struct {
	// Task names the task or action kind the error was found in.
	Task string
	// Field names the offending parameter, if the error is about one.
	Field string
	// Reason describes what is wrong.
	Reason string
}

func (e *MalformedTaskError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed task %q: field %q: %s", e.Task, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed task %q: %s", e.Task, e.Reason)
}
