package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrdoc-assistant/internal/ai"
	appsvc "hrdoc-assistant/internal/app"
	"hrdoc-assistant/internal/auditlog"
	"hrdoc-assistant/internal/config"
	"hrdoc-assistant/internal/model"
	mysqlClient "hrdoc-assistant/internal/platform/mysql"
	rabbitmqClient "hrdoc-assistant/internal/platform/rabbitmq"
	redisClient "hrdoc-assistant/internal/platform/redis"
	"hrdoc-assistant/internal/prompt"
	"hrdoc-assistant/internal/repository"
	"hrdoc-assistant/internal/session"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger

	MySQL            *gorm.DB
	Redis            *redis.Client
	MQConn           *amqp.Connection
	ChatLogPublisher *rabbitmqClient.ChatLogPublisher

	Sessions  *appsvc.SessionService
	Chat      *appsvc.ChatService
	Documents *appsvc.DocumentService
	Admin     *appsvc.AdminService
	AuditLog  *auditlog.Log

	StartedAt time.Time
}

// DependencyCheck is one entry of the health report. Optional dependencies
// are reported but never mark the service unhealthy.
type DependencyCheck struct {
	Name     string
	Optional bool
	Ping     func(ctx context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}
	for _, warning := range cfg.Warnings() {
		logger.Warn("insecure configuration", zap.String("detail", warning))
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
	}
	if err := app.connect(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	app.wire()
	return app, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), a.Logger)
	if err != nil {
		return err
	}
	a.MySQL = mysqlDB
	if err := mysqlDB.AutoMigrate(&model.Document{}, &model.ChatLog{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	if cfg.Session.Backend == config.SessionBackendRedis {
		redisCli, err := redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		a.Redis = redisCli
	}

	// The mirror is best effort: a broker that is down at startup only
	// disables it.
	if cfg.RabbitMQ.URL != "" {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			a.Logger.Warn("chat log mirror disabled", zap.Error(err))
		} else {
			a.MQConn = mqConn
			a.ChatLogPublisher = rabbitmqClient.NewChatLogPublisher(mqConn, cfg.RabbitMQ.ChatLogQueue)
		}
	}
	return nil
}

func (a *App) wire() {
	cfg := a.Config

	sessionOpts := session.Options{
		IdleTTL:         cfg.SessionIdleTTL(),
		InflightTimeout: cfg.SessionInflightTimeout(),
	}
	var sessions session.Store
	if a.Redis != nil {
		sessions = session.NewRedisStore(a.Redis, sessionOpts)
	} else {
		sessions = session.NewMemoryStore(sessionOpts)
	}

	documentRepo := repository.NewDocumentRepository(a.MySQL)
	chatLogRepo := repository.NewChatLogRepository(a.MySQL)

	var auditOpts []auditlog.Option
	if a.ChatLogPublisher != nil {
		auditOpts = append(auditOpts, auditlog.WithMirror(a.ChatLogPublisher))
	}
	a.AuditLog = auditlog.New(
		chatLogRepo,
		auditlog.NewFallbackFile(cfg.Audit.FallbackPath, a.Logger),
		a.Logger,
		auditOpts...,
	)

	gateway := ai.NewOpenAICompatibleClient(ai.ChatConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})

	a.Sessions = appsvc.NewSessionService(sessions)
	a.Chat = appsvc.NewChatService(
		sessions,
		prompt.NewAssembler(documentRepo),
		gateway,
		a.AuditLog,
		cfg.LLMTimeout(),
		a.Logger,
	)
	a.Documents = appsvc.NewDocumentService(documentRepo, a.Logger)
	a.Admin = appsvc.NewAdminService(sessions, cfg.Auth.AdminSecret, a.Logger)
}

func (a *App) DependencyChecks() []DependencyCheck {
	checks := []DependencyCheck{{
		Name: "mysql",
		Ping: func(ctx context.Context) error {
			return mysqlClient.Ping(ctx, a.MySQL)
		},
	}}
	if a.Redis != nil {
		checks = append(checks, DependencyCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error {
				return redisClient.Ping(ctx, a.Redis)
			},
		})
	}
	if a.Config.RabbitMQ.URL != "" {
		checks = append(checks, DependencyCheck{
			Name:     "rabbitmq",
			Optional: true,
			Ping: func(ctx context.Context) error {
				if a.MQConn == nil {
					return errors.New("not connected")
				}
				return rabbitmqClient.Ping(ctx, a.MQConn)
			},
		})
	}
	return checks
}

func (a *App) Close() error {
	var errs []error
	if a.ChatLogPublisher != nil {
		if err := a.ChatLogPublisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
