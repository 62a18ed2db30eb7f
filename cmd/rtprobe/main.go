// rtprobe connects to a FixitQuick real-time endpoint and streams events to
// the console. It exercises the full client stack: token fetch, connect,
// room join, and the derived order-tracking/chat/notification features.
//
// Usage: go run ./cmd/rtprobe --config configs/rtprobe.example.yaml --order o1
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fixitquick/realtime/internal/api"
	"github.com/fixitquick/realtime/internal/archive"
	"github.com/fixitquick/realtime/internal/config"
	"github.com/fixitquick/realtime/internal/database"
	"github.com/fixitquick/realtime/internal/feature"
	"github.com/fixitquick/realtime/internal/protocol"
	"github.com/fixitquick/realtime/internal/session"
	"github.com/fixitquick/realtime/internal/transport"
	"github.com/fixitquick/realtime/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/rtprobe.example.yaml", "path to config file")
	orderID := flag.String("order", "", "order id to track and chat on")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	// REST collaborator: supplies the short-lived real-time token.
	apiClient := api.NewClient(cfg.API.Origin,
		api.WithBearerToken(cfg.API.BearerToken),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger),
	)

	dialer := transport.NewDialer(transport.Config{
		HandshakeTimeout: cfg.Transport.HandshakeTimeout,
		WriteTimeout:     cfg.Transport.WriteTimeout,
		BufferSize:       cfg.Transport.BufferSize,
	})

	sessCfg := session.Config{
		Origin:               cfg.API.Origin,
		Path:                 cfg.API.WSPath,
		ReconnectBaseDelay:   cfg.Session.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.Session.ReconnectMaxDelay,
		MaxReconnectAttempts: cfg.Session.MaxReconnectAttempts,
		HeartbeatInterval:    cfg.Session.HeartbeatInterval,
		HeartbeatGrace:       cfg.Session.HeartbeatGrace,
		PongTimeout:          cfg.Session.PongTimeout,
		QueueCapacity:        cfg.Session.QueueCapacity,
		QueueRetain:          cfg.Session.QueueRetain,
		OnConnectionFailed: func(err error) {
			logger.Error("connection failed, please restart", "error", err)
			cancel()
		},
	}

	// Optional diagnostics archive: persist every forwarded frame.
	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		pool, err := database.Connect(ctx, cfg.Archive.Database)
		if err != nil {
			logger.Error("failed to connect archive database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		archiver = archive.NewArchiver(archive.Config{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
		}, pool, logger)
		if err := archiver.Start(ctx); err != nil {
			logger.Error("failed to start archiver", "error", err)
			os.Exit(1)
		}
		sessCfg.FrameSink = archiver
	}

	manager, err := session.NewManager(sessCfg, dialer, apiClient, logger)
	if err != nil {
		logger.Error("failed to create session manager", "error", err)
		os.Exit(1)
	}

	if *verbose {
		printEvents(manager, logger)
	}

	// Global alerts and live metrics.
	center := feature.NewNotificationCenter(manager, logger)
	defer center.Stop()

	logger.Info("connecting", "origin", cfg.API.Origin, "instance", cfg.Instance.ID)
	if err := manager.Connect(ctx); err != nil {
		// Reconnects are already scheduled unless the transport is unusable.
		logger.Warn("initial connect failed", "error", err)
	}
	defer manager.Disconnect()

	var tracker *feature.OrderTracker
	var chat *feature.ChatSession
	if *orderID != "" {
		tracker = feature.NewOrderTracker(manager, *orderID, logger)
		defer tracker.Stop()
		chat = feature.NewChatSession(manager, *orderID, cfg.Instance.UserID, logger,
			feature.WithTypingExpiry(cfg.Chat.TypingExpiry),
			feature.WithTypingIdle(cfg.Chat.TypingIdle),
		)
		defer chat.Stop()
		logger.Info("tracking order", "order_id", *orderID, "room", feature.OrderRoom(*orderID))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reportStats(gctx, manager, chat, center, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("probe error", "error", err)
	}

	if archiver != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := archiver.Stop(stopCtx); err != nil {
			logger.Warn("archiver stop", "error", err)
		}
		stats := archiver.Stats()
		logger.Info("archive totals",
			"received", stats.Received,
			"inserts", stats.Inserts,
			"conflicts", stats.Conflicts,
			"errors", stats.Errors,
		)
	}

	logger.Info("rtprobe exiting")
}

// printEvents dumps every forwarded application event to the log.
func printEvents(manager *session.Manager, logger *slog.Logger) {
	types := []string{
		protocol.TypeOrderStatusUpdated,
		protocol.TypeProviderLocationUpdate,
		protocol.TypeProviderAssigned,
		protocol.TypeChatMessage,
		protocol.TypeTypingIndicator,
		protocol.TypeNotification,
		protocol.TypeNewOrderNotification,
		protocol.TypeDashboardMetricsUpdate,
		protocol.TypeOrderMetricsUpdate,
	}
	for _, eventType := range types {
		eventType := eventType
		manager.Subscribe(eventType, func(data json.RawMessage) {
			logger.Debug("event", "type", eventType, "data", string(data))
		})
	}
}

// reportStats logs a connection summary every 30 seconds until ctx ends.
func reportStats(ctx context.Context, manager *session.Manager, chat *feature.ChatSession, center *feature.NotificationCenter, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := manager.Stats()
			attrs := []any{
				"connected", manager.IsConnected(),
				"quality", stats.ConnectionQuality,
				"reconnects", stats.ReconnectAttempts,
				"queued", stats.QueuedMessages,
				"alerts_unread", center.Unread(),
			}
			if chat != nil {
				attrs = append(attrs,
					"chat_unread", chat.Unread(),
					"typing", chat.TypingUsers(),
				)
			}
			if err := manager.ConnectionError(); err != "" {
				attrs = append(attrs, "error", err)
			}
			logger.Info("session stats", attrs...)
		}
	}
}
