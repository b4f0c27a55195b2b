package domain

import "errors"

// ErrInvalidTransition is returned when a standup event fires while the
// record is not in the event's source state. A command whose validation
// passed should never trigger it, so it is surfaced, not recovered.
var ErrInvalidTransition = errors.New("invalid standup state transition")

// InvalidCommandError is a business-rule violation detected by a command's
// validation. Message is user-facing and is posted back to the channel
// instead of executing the command.
type InvalidCommandError struct {
	Message string
}

func (e *InvalidCommandError) Error() string {
	return e.Message
}

// NewInvalidCommand builds an InvalidCommandError with the given user-facing
// message.
func NewInvalidCommand(message string) error {
	return &InvalidCommandError{Message: message}
}

// AsInvalidCommand reports whether err is an InvalidCommandError and returns
// it if so.
func AsInvalidCommand(err error) (*InvalidCommandError, bool) {
	var ice *InvalidCommandError
	if errors.As(err, &ice) {
		return ice, true
	}
	return nil, false
}
