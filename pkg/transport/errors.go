package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when the link has gone away.
	ErrClosed = errors.New("transport: link closed")

	// ErrDecode marks a message that could not be parsed into a frame or payload.
	ErrDecode = errors.New("transport: malformed frame")

	// ErrUnknownPath is returned by Call when the peer has no handler for the endpoint.
	ErrUnknownPath = errors.New("transport: unknown path")

	// ErrNotConnected is returned by Publish while the server has no attached link.
	ErrNotConnected = errors.New("transport: no peer connected")

	// ErrBusy is returned by Serve when a link is already attached.
	ErrBusy = errors.New("transport: a peer is already connected")
)

// RemoteError is an error frame returned by the peer.
type RemoteError struct {
	Path    string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error on %q (%s): %s", e.Path, e.Code, e.Message)
}

// Is lets errors.Is(err, ErrUnknownPath) match the corresponding remote code.
func (e *RemoteError) Is(target error) bool {
	return target == ErrUnknownPath && e.Code == CodeUnknownPath
}
