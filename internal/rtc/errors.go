package rtc

import (
	"errors"
	"fmt"
)

// Sentinel errors for the negotiation engine. Precondition failures leave all
// state untouched; negotiation failures leave the affected link in its prior
// state.
var (
	ErrRoomRequired     = errors.New("room id required")
	ErrNoRoom           = errors.New("not in a room")
	ErrInRoom           = errors.New("already in a room")
	ErrMediaNotReady    = errors.New("local media not ready")
	ErrNotAdmin         = errors.New("not an admin")
	ErrLinkExists       = errors.New("peer link already exists")
	ErrNoLink           = errors.New("no peer link for this peer")
	ErrBadState         = errors.New("invalid negotiation state")
	ErrMediaAcquisition = errors.New("media acquisition failed")
	ErrNotSharing       = errors.New("screen share not active")
	ErrEngineClosed     = errors.New("engine closed")
)

// Error annotates a failure with the operation and the peer it concerned.
type Error struct {
	Op   string
	Peer string
	Err  error
}

func (e *Error) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func newPeerError(op, peer string, err error) *Error {
	return &Error{Op: op, Peer: peer, Err: err}
}
