package transport

import "context"

// Link moves whole encoded frames between two peers.
// Recv is called from a single goroutine; Send may be called concurrently.
type Link interface {
	Recv(ctx context.Context) ([]byte, error)
	Send(ctx context.Context, data []byte) error
	Close() error
}

// Endpoint names a request/response pair on the link.
type Endpoint[Req, Resp any] struct {
	Path string
}

// Topic names a one-way notification stream published by the server side.
type Topic[M any] struct {
	Path string
}
