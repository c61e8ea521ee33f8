package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/llmvn"
	"github.com/aretw0/llmvn/internal/config"
	"github.com/aretw0/llmvn/internal/logging"
	"github.com/aretw0/llmvn/internal/metrics"
	"github.com/aretw0/llmvn/pkg/adapters/escpos"
	"github.com/aretw0/llmvn/pkg/adapters/file"
	httpAdapter "github.com/aretw0/llmvn/pkg/adapters/http"
	"github.com/aretw0/llmvn/pkg/adapters/memory"
	"github.com/aretw0/llmvn/pkg/adapters/openai"
	"github.com/aretw0/llmvn/pkg/adapters/redis"
	"github.com/aretw0/llmvn/pkg/adapters/sqlite"
	"github.com/aretw0/llmvn/pkg/character"
	"github.com/aretw0/llmvn/pkg/controller"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/aretw0/llmvn/pkg/persistence/middleware"
	"github.com/aretw0/llmvn/pkg/ports"
	"github.com/aretw0/llmvn/pkg/session"
	"github.com/aretw0/llmvn/pkg/transport"
	"github.com/spf13/cobra"
)

const (
	pingID            = 42
	listModelsTimeout = 3 * time.Second
	dialTimeout       = 10 * time.Second
	archiveTimeout    = 5 * time.Second
)

func runHost(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Level(cfg.Debug))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = host(ctx, cfg, logger)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func host(ctx context.Context, cfg *config.HostConfig, logger *slog.Logger) error {
	characters, err := character.Load(cfg.CharacterFile)
	if err != nil {
		return err
	}
	logger.Info("loaded characters", "file", cfg.CharacterFile, "count", characters.Len())

	printer, err := escpos.Open(cfg.PrinterDevice,
		escpos.WithCharsPerLine(cfg.CharsPerLine),
		escpos.WithLogger(logger.With("component", "printer")),
	)
	if err != nil {
		return err
	}
	defer printer.Close()
	if err := printer.Start(); err != nil {
		logger.Warn("printer did not accept start slip", "err", err)
	}

	backend, closeStore, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	mws := []middleware.Middleware{middleware.NewTimeoutMiddleware(archiveTimeout)}
	if cfg.ArchiveRedact {
		mws = append(mws, middleware.NewRedactMiddleware(middleware.DefaultRedactions))
	}
	store := middleware.Chain(backend, mws...)

	model := openai.New(cfg.LLMAPIKey, cfg.LLMBaseURL)
	models, err := listModels(ctx, model, characters, logger)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	hostMetrics := metrics.NewHost(reg)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	ctrl, err := controller.Dial(dialCtx, cfg.ControllerURL,
		controller.WithLogger(logger.With("component", "controller")),
		controller.WithTransportOptions(transport.WithClientHooks(hostMetrics.ClientHooks())),
	)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to controller at %s: %w", cfg.ControllerURL, err)
	}
	defer ctrl.Close()

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	err = ctrl.Ping(pingCtx, pingID)
	cancel()
	if err != nil {
		return fmt.Errorf("controller did not answer ping: %w", err)
	}
	logger.Info("controller connected", "url", cfg.ControllerURL, "product", icd.ProductName)

	if err := printer.PrintReady(characters.Characters, models); err != nil {
		logger.Warn("failed to print ready slip", "err", err)
	}

	events := httpAdapter.NewBroadcaster(logger)
	if cfg.StatusAddr != "" {
		handler := httpAdapter.NewHandler(
			httpAdapter.WithInfo("vnhost", strings.TrimSpace(llmvn.Version)),
			httpAdapter.WithStore(store),
			httpAdapter.WithDisplay(ctrl.LastScreen),
			httpAdapter.WithMetrics(metrics.Handler(reg)),
			httpAdapter.WithEvents(events),
			httpAdapter.WithLogger(logger.With("component", "status")),
		)
		stopStatus := serveStatus(cfg.StatusAddr, handler, logger)
		defer stopStatus()
	}

	machine := session.New(ctrl, characters, model, printer, store,
		session.WithReplyTimeout(cfg.ReplyTimeout),
		session.WithLogger(logger.With("component", "session")),
		session.WithHooks(hostMetrics.SessionHooks(eventHooks(events))),
	)

	logger.Info("kiosk ready")
	return machine.Run(ctx)
}

func openArchive(ctx context.Context, cfg *config.HostConfig) (ports.ConversationStore, func(), error) {
	switch cfg.Archive {
	case config.ArchiveRedis:
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		return s, func() { s.Close() }, nil
	case config.ArchiveSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.ArchiveMemory:
		return memory.NewStore(), func() {}, nil
	default:
		return file.New(cfg.ConversationDir), func() {}, nil
	}
}

// listModels fails when the server offers nothing and warns about
// characters whose model is missing.
func listModels(ctx context.Context, model ports.ChatModel, characters *character.Collection, logger *slog.Logger) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, listModelsTimeout)
	defer cancel()

	models, err := model.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, errors.New("no models available on the LLM server")
	}
	logger.Info("models available", "models", models)

	for _, name := range characters.ModelNames() {
		if !slices.Contains(models, name) {
			logger.Warn("character model not available", "model", name)
		}
	}
	return models, nil
}

// eventHooks streams session events to status clients.
func eventHooks(events *httpAdapter.Broadcaster) session.Hooks {
	return session.Hooks{
		OnScreen: func(kind icd.ScreenKind) {
			events.Broadcast("screen", map[string]string{"kind": string(kind)})
		},
		OnButton: func(action icd.ButtonAction) {
			events.Broadcast("button", map[string]string{"action": action.String()})
		},
		OnConversationEnd: func(record *domain.Conversation) {
			events.Broadcast("conversation_end", map[string]any{
				"key":        record.Key(),
				"character":  record.Character.Name,
				"end_reason": record.EndReason,
				"turns":      record.Turns(),
			})
		},
		OnCollaboratorErr: func(collaborator string, err error) {
			events.Broadcast("collaborator_error", map[string]string{
				"collaborator": collaborator,
				"err":          err.Error(),
			})
		},
	}
}

// serveStatus starts the status server and returns its shutdown function.
func serveStatus(addr string, handler http.Handler, logger *slog.Logger) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("status server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server failed", "err", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("status server did not shut down cleanly", "err", err)
			_ = srv.Close()
		}
	}
}
