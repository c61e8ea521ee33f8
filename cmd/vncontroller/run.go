package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/llmvn"
	"github.com/aretw0/llmvn/internal/config"
	"github.com/aretw0/llmvn/internal/logging"
	"github.com/aretw0/llmvn/internal/metrics"
	httpAdapter "github.com/aretw0/llmvn/pkg/adapters/http"
	"github.com/aretw0/llmvn/pkg/adapters/terminal"
	"github.com/aretw0/llmvn/pkg/buttons"
	"github.com/aretw0/llmvn/pkg/device"
	"github.com/aretw0/llmvn/pkg/display"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/aretw0/llmvn/pkg/ports"
	"github.com/aretw0/llmvn/pkg/transport"
	"github.com/aretw0/llmvn/pkg/transport/wslink"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logOut, closeLog, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := logging.NewWithWriter(logOut, logging.Level(cfg.Debug))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restore, err := terminal.MakeRaw(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to put terminal in raw mode: %w", err)
	}
	defer restore()

	keyboard := terminal.NewKeyboard(terminal.WithHold(cfg.KeyHold))
	renderer := terminal.NewRenderer(os.Stdout, terminal.WithWidth(cfg.DisplayWidth))

	n, err := newNode(cfg, logger, keyboard, renderer)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return keyboard.Listen(ctx, os.Stdin) })
	g.Go(func() error { return n.run(ctx) })
	g.Go(func() error { return listen(ctx, cfg.ListenAddr, n.handler, logger) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, terminal.ErrInterrupted) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

// node is the controller: a display slot fed by the set_display endpoint and
// a button sampler publishing to whichever host is attached.
type node struct {
	slot     *display.Slot
	reader   *display.Reader
	server   *device.Server
	sampler  *buttons.Sampler
	renderer ports.Renderer
	metrics  *metrics.Controller
	handler  http.Handler
	logger   *slog.Logger
}

func newNode(cfg *config.ControllerConfig, logger *slog.Logger, pins buttons.Pins, renderer ports.Renderer) (*node, error) {
	reg := metrics.NewRegistry()
	m := metrics.NewController(reg)

	slot := display.NewSlot()
	reader, err := slot.Reader()
	if err != nil {
		return nil, err
	}

	srv := device.NewServer(slot,
		transport.WithServerLogger(logger.With("component", "link")),
		transport.WithServerHooks(m.ServerHooks()),
	)
	sampler := buttons.New(pins, device.ButtonPublisher(srv),
		buttons.WithInterval(cfg.SampleRate),
		buttons.WithLogger(logger.With("component", "buttons")),
		buttons.WithHooks(m.SamplerHooks()),
	)

	n := &node{
		slot:     slot,
		reader:   reader,
		server:   srv,
		sampler:  sampler,
		renderer: renderer,
		metrics:  m,
		logger:   logger,
	}
	n.handler = httpAdapter.NewHandler(
		httpAdapter.WithInfo("vncontroller", strings.TrimSpace(llmvn.Version)),
		httpAdapter.WithDisplay(slot.Latest),
		httpAdapter.WithMetrics(metrics.Handler(reg)),
		httpAdapter.WithMount(icd.LinkPath, wslink.Handler(n.serve, logger.With("component", "link"))),
		httpAdapter.WithLogger(logger.With("component", "status")),
	)
	return n, nil
}

// serve runs one host session and tracks whether a host is attached.
func (n *node) serve(ctx context.Context, link transport.Link) error {
	n.metrics.HostConnected.Set(1)
	defer func() {
		if !n.server.Connected() {
			n.metrics.HostConnected.Set(0)
		}
	}()
	return n.server.Serve(ctx, link)
}

// run drives the sampler and the render loop until ctx ends.
func (n *node) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.sampler.Run(ctx) })
	g.Go(func() error {
		return display.Run(ctx, n.reader, n.renderer,
			display.WithLogger(n.logger.With("component", "display")),
			display.WithHooks(n.metrics.DisplayHooks()),
		)
	})
	return g.Wait()
}

func listen(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("waiting for host", "addr", addr, "path", icd.LinkPath)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("controller server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
		return ctx.Err()
	}
}

func openLog(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
