package shared

import "errors"

var (
	// ErrOutOfOrder is returned when data arrives with a timestamp that is not
	// after the last one seen for its stream.
	ErrOutOfOrder = errors.New("out of order input")
	// ErrStreamHalted is returned for data of a stream that was halted by an
	// earlier ordering violation.
	ErrStreamHalted = errors.New("stream halted")
	// ErrIndexOutOfRange is returned when reading past the populated slots of a window.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrUnknownEvent is returned when dispatching an event of an unknown kind.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrTimeframeMismatch is returned when data of an unexpected timeframe is provided.
	ErrTimeframeMismatch = errors.New("timeframe mismatch")
	// ErrInvalidBar is returned when a bar violates its time invariant.
	ErrInvalidBar = errors.New("invalid bar")
)
