// Package streamlink frames newline-delimited JSON over a byte stream.
package streamlink

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/aretw0/llmvn/pkg/transport"
)

// MaxFrameSize bounds a single line on the stream.
const MaxFrameSize = 64 * 1024

// ErrFrameTooLarge is returned when a line exceeds MaxFrameSize. The line is
// discarded and it matches transport.ErrDecode, so readers drop it and go on.
var ErrFrameTooLarge = fmt.Errorf("%w: streamlink frame too large", transport.ErrDecode)

type deadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Link is a transport.Link over an io.ReadWriteCloser.
type Link struct {
	rwc    io.ReadWriteCloser
	reader *bufio.Reader

	writeMu sync.Mutex
}

var _ transport.Link = (*Link)(nil)

// New wraps rwc. The Link takes ownership and closes rwc on Close.
func New(rwc io.ReadWriteCloser) *Link {
	return &Link{
		rwc:    rwc,
		reader: bufio.NewReaderSize(rwc, 4096),
	}
}

// Pipe returns two connected in-memory links.
func Pipe() (*Link, *Link) {
	a, b := net.Pipe()
	return New(a), New(b)
}

// Recv reads the next line. Cancelling ctx does not interrupt a blocked read; Close does.
func (l *Link) Recv(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var line []byte
	for {
		chunk, err := l.reader.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > MaxFrameSize+1 {
			// Drain the rest of the oversized line so the next frame starts cleanly.
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = l.reader.ReadSlice('\n')
			}
			if err != nil {
				return nil, err
			}
			return nil, ErrFrameTooLarge
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return l.Recv(ctx)
	}
	return line, nil
}

// Send writes data followed by a newline. A deadline on ctx bounds the write
// when the underlying stream supports write deadlines.
func (l *Link) Send(ctx context.Context, data []byte) error {
	if bytes.IndexByte(data, '\n') >= 0 {
		return fmt.Errorf("streamlink: frame contains a newline")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if d, ok := l.rwc.(deadliner); ok {
		deadline, _ := ctx.Deadline()
		_ = d.SetWriteDeadline(deadline)
	}

	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	buf = append(buf, '\n')
	if _, err := l.rwc.Write(buf); err != nil {
		return err
	}
	return nil
}

// Close closes the underlying stream.
func (l *Link) Close() error {
	return l.rwc.Close()
}
