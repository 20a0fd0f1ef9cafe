package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	apiPkg "github.com/relaydesk-io/relaydesk/internal/api"
	"github.com/relaydesk-io/relaydesk/internal/config"
	"github.com/relaydesk-io/relaydesk/internal/connector"
	slackconn "github.com/relaydesk-io/relaydesk/internal/connector/slack"
	"github.com/relaydesk-io/relaydesk/internal/connector/telegram"
	"github.com/relaydesk-io/relaydesk/internal/logbuf"
	"github.com/relaydesk-io/relaydesk/internal/relay"
	"github.com/relaydesk-io/relaydesk/internal/reminder"
	"github.com/relaydesk-io/relaydesk/internal/state"
	"github.com/relaydesk-io/relaydesk/internal/ticket"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Optional .env for local runs; env vars win either way.
	godotenv.Load()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	// Load config (file or env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("relaydeskd starting", "operator", cfg.Operator.ID, "channel", cfg.Operator.Channel)

	// Ticket store
	dbPath := cfg.Relay.DataDir + "/questions.db"
	os.MkdirAll(cfg.Relay.DataDir, 0o755)
	store, err := ticket.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Error("failed to open ticket store", "path", dbPath, "error", err)
		os.Exit(1)
	}

	// Relay core
	window := time.Duration(cfg.Relay.ResponseWindowHours) * time.Hour
	svc := relay.New(store, state.NewTracker(), relay.Operator{
		Channel: cfg.Operator.Channel,
		ID:      cfg.Operator.ID,
		ChatID:  cfg.Operator.ChatID,
	}, window, logger.With("component", "relay"))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connectors
	transports := make(map[string]connector.Connector)

	if cfg.Connectors.Telegram != nil {
		tgConn, err := telegram.New(
			telegram.Config{
				Token:     cfg.Connectors.Telegram.Token,
				AllowFrom: cfg.Connectors.Telegram.AllowFrom,
			},
			svc.HandleInbound,
			logger.With("connector", "telegram"),
		)
		if err != nil {
			logger.Error("failed to init telegram connector", "error", err)
			os.Exit(1)
		}
		svc.RegisterTransport(tgConn.Name(), tgConn)
		transports[tgConn.Name()] = tgConn
		go safeGo(logger, "telegram", func() {
			if err := tgConn.Start(ctx); err != nil {
				logger.Error("telegram connector stopped", "error", err)
			}
		})
		logger.Info("telegram connector started")
	}

	if cfg.Connectors.Slack != nil {
		slConn, err := slackconn.New(
			slackconn.Config{
				BotToken: cfg.Connectors.Slack.BotToken,
				AppToken: cfg.Connectors.Slack.AppToken,
				Channels: cfg.Connectors.Slack.Channels,
			},
			svc.HandleInbound,
			logger.With("connector", "slack"),
		)
		if err != nil {
			logger.Error("failed to init slack connector", "error", err)
			os.Exit(1)
		}
		svc.RegisterTransport(slConn.Name(), slConn)
		transports[slConn.Name()] = slConn
		go safeGo(logger, "slack", func() {
			if err := slConn.Start(ctx); err != nil {
				logger.Error("slack connector stopped", "error", err)
			}
		})
		logger.Info("slack connector started")
	}

	// Overdue reminder sweep, delivered on the operator's channel
	opTransport, ok := transports[cfg.Operator.Channel]
	if !ok {
		logger.Error("no transport for operator channel", "channel", cfg.Operator.Channel)
		os.Exit(1)
	}
	opChat := cfg.Operator.ChatID
	if opChat == "" {
		opChat = cfg.Operator.ID
	}
	sweeper := reminder.New(store, opTransport, opChat, window, logger.With("component", "reminder"))
	go safeGo(logger, "reminder", func() {
		if err := sweeper.Start(ctx, cfg.Relay.ReminderSchedule); err != nil {
			logger.Error("reminder scheduler stopped", "error", err)
		}
	})

	// Admin API server
	apiSvc := &relayServiceAdapter{store: store, relay: svc}
	apiSrv := apiPkg.NewServer(apiSvc, apiPkg.Config{
		Host: cfg.API.Host,
		Port: cfg.API.Port,
		Key:  cfg.API.Key,
	}, logger.With("component", "api"), logBuf)

	go safeGo(logger, "api-server", func() {
		if err := apiSrv.Start(ctx); err != nil {
			logger.Error("api server stopped", "error", err)
		}
	})
	logger.Info("api server started", "port", cfg.API.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	store.DB().Close()
	logger.Info("relaydeskd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}

// relayServiceAdapter implements api.RelayService on top of the store and
// the relay core.
type relayServiceAdapter struct {
	store ticket.Store
	relay *relay.Service
}

func (a *relayServiceAdapter) ListTickets(filter ticket.Filter) ([]*ticket.Ticket, error) {
	return a.store.List(filter)
}

func (a *relayServiceAdapter) GetTicket(id int64) (*ticket.Ticket, error) {
	return a.store.Get(id)
}

func (a *relayServiceAdapter) CountTickets(filter ticket.Filter) (int, error) {
	return a.store.Count(filter)
}

func (a *relayServiceAdapter) Submit(ctx context.Context, channel, userID, userName, chatID, question string) (int64, error) {
	return a.relay.Submit(ctx, channel, userID, userName, chatID, question)
}
