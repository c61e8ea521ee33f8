// Package device wires the controller's endpoints and topics onto the transport.
package device

import (
	"context"

	"github.com/aretw0/llmvn/pkg/buttons"
	"github.com/aretw0/llmvn/pkg/display"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/aretw0/llmvn/pkg/transport"
)

// Context is the state shared by every controller endpoint handler.
type Context struct {
	Display display.Writer
}

// Server is the controller's transport server.
type Server = transport.Server[Context]

// NewServer registers the controller endpoints. Screens arriving on SetDisplay
// are written to screens.
func NewServer(screens display.Writer, opts ...transport.ServerOption) *Server {
	srv := transport.NewServer(&Context{Display: screens}, opts...)
	transport.Handle(srv, icd.Ping, ping)
	transport.Handle(srv, icd.SetDisplay, setDisplay)
	return srv
}

func ping(ctx context.Context, c *Context, hdr transport.Header, id uint32) (uint32, error) {
	return id, nil
}

func setDisplay(ctx context.Context, c *Context, hdr transport.Header, screen icd.Screen) (icd.Empty, error) {
	if err := screen.Validate(); err != nil {
		return icd.Empty{}, err
	}
	c.Display.Write(screen)
	return icd.Empty{}, nil
}

// ButtonPublisher publishes sampler actions on the ButtonActionPerformed topic.
func ButtonPublisher(srv *Server) buttons.Publisher {
	return buttons.PublisherFunc(func(ctx context.Context, action icd.ButtonAction, seq uint8) error {
		return transport.Publish(ctx, srv, icd.ButtonActionPerformed, uint32(seq), action)
	})
}
