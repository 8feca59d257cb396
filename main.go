package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	orchestratorx "github.com/tanpawarit/Chative-Support-Router/agent/agents/orchestrator"
	specialistx "github.com/tanpawarit/Chative-Support-Router/agent/agents/specialist"
	escalationx "github.com/tanpawarit/Chative-Support-Router/agent/escalation"
	"github.com/tanpawarit/Chative-Support-Router/agent/knowledge"
	llmx "github.com/tanpawarit/Chative-Support-Router/agent/llm"
	nodex "github.com/tanpawarit/Chative-Support-Router/agent/nodes/orchestrator"
	notifyx "github.com/tanpawarit/Chative-Support-Router/agent/notify"
	statex "github.com/tanpawarit/Chative-Support-Router/agent/state"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
	configx "github.com/tanpawarit/Chative-Support-Router/pkg/config"
	_ "github.com/tanpawarit/Chative-Support-Router/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/Chative-Support-Router/pkg/openrouter"
	qstashx "github.com/tanpawarit/Chative-Support-Router/pkg/qstash"
	"github.com/tanpawarit/Chative-Support-Router/server"
)

type AppConfig struct {
	ListenAddr             string        `envconfig:"LISTEN_ADDR" default:":8000"`
	SessionBackend         string        `envconfig:"SESSION_BACKEND" default:"auto"`
	SessionIdleTimeout     time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"1h"`
	SessionSweepInterval   time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"5m"`
	SpecialistTimeout      time.Duration `envconfig:"SPECIALIST_TIMEOUT" default:"60s"`
	MaxAgentIterations     int           `envconfig:"MAX_AGENT_ITERATIONS" default:"5"`
	DataDir                string        `envconfig:"DATA_DIR"`
	CORSOrigins            []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	CustomerIDShortcut     bool          `envconfig:"CUSTOMER_ID_SHORTCUT" default:"true"`
	KeywordBillingFallback bool          `envconfig:"KEYWORD_BILLING_FALLBACK" default:"true"`
	ContextWindow          int           `envconfig:"CONTEXT_WINDOW" default:"3"`
	ShutdownTimeout        time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"20s"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("support router stopped")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("APP")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	if err := llmCfg.Validate(); err != nil {
		return err
	}

	if llmCfg.VerifyModel {
		if err := verifyModels(ctx, *llmCfg); err != nil {
			return err
		}
	}

	kb, closeKB, err := loadKnowledge(ctx, appCfg.DataDir)
	if err != nil {
		return err
	}
	defer closeKB()

	issuer := escalationx.NewIssuer(buildNotifier(), *configx.MustNew[escalationx.Config]("NOTIFY"))
	defer issuer.Close()

	gateway := toolx.NewGateway(kb, issuer)
	registry, err := specialistx.NewRegistry(ctx, *llmCfg, gateway,
		specialistx.WithMaxIterations(appCfg.MaxAgentIterations),
	)
	if err != nil {
		return fmt.Errorf("build specialists: %w", err)
	}

	store, closeStore, err := buildStore(ctx, *appCfg)
	if err != nil {
		return err
	}
	defer closeStore()

	orch, err := orchestratorx.New(store, registry, issuer, orchestratorx.Config{
		Policy: &nodex.Policy{
			CustomerIDShortcut:     appCfg.CustomerIDShortcut,
			KeywordBillingFallback: appCfg.KeywordBillingFallback,
			ContextWindow:          appCfg.ContextWindow,
		},
		SpecialistTimeout: appCfg.SpecialistTimeout,
	})
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	srv := server.New(server.Config{
		Addr:           appCfg.ListenAddr,
		AllowedOrigins: appCfg.CORSOrigins,
		WriteTimeout:   appCfg.SpecialistTimeout*3 + 30*time.Second,
	}, orch)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func verifyModels(ctx context.Context, cfg llmx.Config) error {
	client := openrouterx.NewClient(cfg.Endpoint())
	if client == nil {
		return errors.New("failed to initialize openrouter client")
	}
	verifyCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	for _, name := range cfg.Models() {
		if err := openrouterx.VerifyModel(verifyCtx, client, name); err != nil {
			return err
		}
		log.Info().Str("model", name).Msg("model verified")
	}
	return nil
}

func loadKnowledge(ctx context.Context, dataDir string) (*knowledge.Base, func(), error) {
	pgCfg := configx.MustNew[knowledge.PostgresConfig]("KB_DATABASE")
	if !pgCfg.Enabled() {
		return knowledge.Load(ctx, knowledge.FileSource{Dir: dataDir}), func() {}, nil
	}

	src, err := knowledge.NewPostgresSource(*pgCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("knowledge database: %w", err)
	}
	if pgCfg.Migrate {
		if err := src.Migrate(ctx); err != nil {
			log.Warn().Err(err).Msg("knowledge: migration failed")
		}
	}
	closeFn := func() {
		if err := src.Close(); err != nil {
			log.Warn().Err(err).Msg("knowledge: close database")
		}
	}
	return knowledge.Load(ctx, src), closeFn, nil
}

func buildNotifier() notifyx.Notifier {
	var notifiers notifyx.Multi

	smtpCfg := configx.MustNew[notifyx.SMTPConfig]("SMTP")
	if smtpCfg.Enabled() {
		n, err := notifyx.NewSMTPNotifier(*smtpCfg)
		if err != nil {
			log.Warn().Err(err).Msg("notify: smtp disabled")
		} else {
			notifiers = append(notifiers, n)
		}
	}

	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	webhookCfg := configx.MustNew[notifyx.QStashConfig]("NOTIFY_QSTASH")
	if qstashCfg.Enabled() && strings.TrimSpace(webhookCfg.WebhookURL) != "" {
		client, err := qstashx.NewClient(*qstashCfg)
		if err == nil {
			var n *notifyx.QStashNotifier
			n, err = notifyx.NewQStashNotifier(client, *webhookCfg)
			if err == nil {
				notifiers = append(notifiers, n)
			}
		}
		if err != nil {
			log.Warn().Err(err).Msg("notify: qstash disabled")
		}
	}

	switch len(notifiers) {
	case 0:
		return notifyx.LogNotifier{}
	case 1:
		return notifiers[0]
	default:
		return notifiers
	}
}

func buildStore(ctx context.Context, cfg AppConfig) (statex.Store, func(), error) {
	opts := []statex.StoreOption{statex.WithIdleTimeout(cfg.SessionIdleTimeout)}
	redisCfg := configx.MustNew[statex.RedisConfig]("REDIS")
	upstashCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")

	backend := strings.ToLower(strings.TrimSpace(cfg.SessionBackend))
	if backend == "auto" {
		switch {
		case redisCfg.Enabled():
			backend = "redis"
		case upstashCfg.Enabled():
			backend = "upstash"
		default:
			backend = "memory"
		}
	}

	log.Info().Str("backend", backend).Dur("idle_timeout", cfg.SessionIdleTimeout).Msg("session store")
	switch backend {
	case "memory":
		store := statex.NewMemoryStore(opts...)
		if cfg.SessionSweepInterval > 0 {
			go store.RunSweeper(ctx, cfg.SessionSweepInterval)
		}
		return store, func() {}, nil
	case "redis":
		store, err := statex.NewRedisStore(*redisCfg, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("redis session store: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("redis session store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case "upstash":
		store, err := statex.NewUpstashRedisStore(*upstashCfg, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("upstash session store: %w", err)
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
