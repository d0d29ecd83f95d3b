package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/athplan/bridge/internal/access"
	"github.com/athplan/bridge/internal/billing"
	"github.com/athplan/bridge/internal/broadcast"
	"github.com/athplan/bridge/internal/config"
	"github.com/athplan/bridge/internal/db"
	"github.com/athplan/bridge/internal/dialogue"
	"github.com/athplan/bridge/internal/gateway"
	"github.com/athplan/bridge/internal/handlers"
	"github.com/athplan/bridge/internal/logger"
	"github.com/athplan/bridge/internal/membership"
	"github.com/athplan/bridge/internal/server"
	"github.com/athplan/bridge/internal/telemetry"
	"github.com/athplan/bridge/internal/whatsapp"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideMembershipStore,
			provideTelemetry,
			provideGate,
			provideVerifier,
			provideSender,
			provideBroadcastEngine,
			provideDialogueClient,
			provideKnowledgeClient,
			provideSessionBuilder,
			provideGateway,
			provideBillingService,
			provideServerHandler(provideWhatsAppHandler),
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideStatusHandler),
			provideServerHandler(provideBillingHandler),
			provideServerHandler(provideKnowledgeHandler),
			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideMembershipStore(log *slog.Logger, conn *pgxpool.Pool) *membership.Store {
	return membership.NewStore(log, conn)
}

func provideTelemetry(lc fx.Lifecycle, log *slog.Logger, conn *pgxpool.Pool) *telemetry.Recorder {
	recorder := telemetry.NewRecorder(log, conn)
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { recorder.Flush(); return nil }})
	return recorder
}

func provideGate(log *slog.Logger, store *membership.Store, cfg config.Config) *access.Gate {
	return access.NewGate(log, store, cfg.Usage.MessageLimit)
}

func provideVerifier(log *slog.Logger, cfg config.Config) *whatsapp.Verifier {
	return whatsapp.NewVerifier(log, cfg.Twilio.AuthToken, cfg.Twilio.PublicBaseURL)
}

func provideSender(log *slog.Logger, cfg config.Config) *whatsapp.Sender {
	return whatsapp.NewSender(log, cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
}

func provideBroadcastEngine(log *slog.Logger, store *membership.Store, sender *whatsapp.Sender) *broadcast.Engine {
	return broadcast.NewEngine(log, store, sender)
}

func provideDialogueClient(log *slog.Logger, cfg config.Config) *dialogue.Client {
	return dialogue.NewClient(log, cfg.Voiceflow.RuntimeURL, cfg.Voiceflow.APIKey, cfg.Voiceflow.VersionID)
}

func provideKnowledgeClient(log *slog.Logger, cfg config.Config) *dialogue.KnowledgeClient {
	return dialogue.NewKnowledgeClient(log, cfg.Voiceflow.KnowledgeURL, cfg.Voiceflow.APIKey)
}

func provideSessionBuilder(log *slog.Logger, store *membership.Store) *gateway.SessionBuilder {
	return gateway.NewSessionBuilder(log, store)
}

func provideGateway(
	log *slog.Logger,
	store *membership.Store,
	gate *access.Gate,
	engine *broadcast.Engine,
	client *dialogue.Client,
	sessions *gateway.SessionBuilder,
	recorder *telemetry.Recorder,
) *gateway.Service {
	return gateway.NewService(log, store, gate, engine, client, sessions, recorder)
}

func provideBillingService(log *slog.Logger, store *membership.Store, cfg config.Config) *billing.Service {
	return billing.NewService(log, store, cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.SuccessURL)
}

func provideWhatsAppHandler(log *slog.Logger, verifier *whatsapp.Verifier, svc *gateway.Service) *handlers.WhatsAppHandler {
	return handlers.NewWhatsAppHandler(log, verifier, svc)
}

func provideStatusHandler(log *slog.Logger, conn *pgxpool.Pool, sender *whatsapp.Sender, billingSvc *billing.Service) *handlers.StatusHandler {
	return handlers.NewStatusHandler(log, conn, sender, billingSvc)
}

func provideBillingHandler(log *slog.Logger, billingSvc *billing.Service) *handlers.BillingHandler {
	return handlers.NewBillingHandler(log, billingSvc)
}

func provideKnowledgeHandler(log *slog.Logger, kb *dialogue.KnowledgeClient) *handlers.KnowledgeHandler {
	return handlers.NewKnowledgeHandler(log, kb)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
