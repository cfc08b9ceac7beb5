package clienterrors

import "errors"

// Client-side sentinel errors. Shared by ws, table, identity and session
// so none of them has to import another just to compare errors.
var (
	ErrNotConnected        = errors.New("not connected")
	ErrSendQueueFull       = errors.New("outbound queue full")
	ErrClosed              = errors.New("channel closed")
	ErrIdentityUnavailable = errors.New("identity persistence unavailable")
	ErrDataIntegrity       = errors.New("snapshot data integrity violation")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrInsufficientChips   = errors.New("not enough chips")
	ErrBelowMinimumRaise   = errors.New("raise is below the minimum")
	ErrActionNotEligible   = errors.New("action not available right now")
	ErrNotHost             = errors.New("only the table host can do that")
	ErrNoTable             = errors.New("not seated at a table")
	ErrChannel             = errors.New("channel error")
)

// ChannelError carries an error message pushed by the game server verbatim.
type ChannelError struct {
	Message string
}

func (e *ChannelError) Error() string {
	return "server: " + e.Message
}

// Is makes errors.Is(err, ErrChannel) match any ChannelError.
func (e *ChannelError) Is(target error) bool {
	return target == ErrChannel
}
