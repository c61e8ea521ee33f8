// Package wslink carries transport frames as WebSocket text messages.
package wslink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/llmvn/internal/logging"
	"github.com/aretw0/llmvn/pkg/transport"
	"github.com/coder/websocket"
)

// ReadLimit bounds a single incoming message.
const ReadLimit = 64 * 1024

// Link is a transport.Link over a WebSocket connection.
type Link struct {
	conn *websocket.Conn
}

// Wrap adopts an established connection.
func Wrap(conn *websocket.Conn) *Link {
	conn.SetReadLimit(ReadLimit)
	return &Link{conn: conn}
}

// Dial connects to a controller at url, e.g. ws://kiosk.local:8765/llm-vn-controller.
func Dial(ctx context.Context, url string) (*Link, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return Wrap(conn), nil
}

// Recv reads the next text message.
func (l *Link) Recv(ctx context.Context) ([]byte, error) {
	typ, data, err := l.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if typ != websocket.MessageText {
		return nil, fmt.Errorf("%w: unexpected binary message", transport.ErrDecode)
	}
	return data, nil
}

// Send writes data as one text message.
func (l *Link) Send(ctx context.Context, data []byte) error {
	return l.conn.Write(ctx, websocket.MessageText, data)
}

// Close performs the closing handshake.
func (l *Link) Close() error {
	return l.conn.Close(websocket.StatusNormalClosure, "")
}

// ServeFunc runs a session over an accepted link until it ends.
type ServeFunc func(ctx context.Context, link transport.Link) error

// Handler upgrades requests and hands each connection to serve.
// A second peer is turned away while serve reports transport.ErrBusy.
func Handler(serve ServeFunc, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		link := Wrap(conn)
		logger.Info("host connected", "remote", r.RemoteAddr)

		err = serve(r.Context(), link)
		switch {
		case errors.Is(err, transport.ErrBusy):
			logger.Warn("rejecting second host", "remote", r.RemoteAddr)
			_ = conn.Close(websocket.StatusTryAgainLater, "controller busy")
		case err != nil && !errors.Is(err, context.Canceled):
			logger.Info("host disconnected", "remote", r.RemoteAddr, "err", err)
			_ = conn.CloseNow()
		default:
			logger.Info("host disconnected", "remote", r.RemoteAddr)
			_ = conn.CloseNow()
		}
	})
}
