package resolve

import "fmt"

// DataError marks malformed authored content: a bad dice expression, an
// expression that does not compile, a spell without a spellcasting trait.
// Resolution stages never recover from it; only the encounter driver may
// log it and skip the action.
type DataError struct {
	Action string
	Err    error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("action %s: %v", e.Action, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

func dataErr(actionID string, format string, args ...any) *DataError {
	return &DataError{Action: actionID, Err: fmt.Errorf(format, args...)}
}
