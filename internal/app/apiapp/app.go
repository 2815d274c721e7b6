package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MakeNowJust/mastodon/internal/config"
	s3infra "github.com/MakeNowJust/mastodon/internal/infra/s3"
	"github.com/MakeNowJust/mastodon/internal/queue"
	pgrepo "github.com/MakeNowJust/mastodon/internal/repo/postgres"
	redrepo "github.com/MakeNowJust/mastodon/internal/repo/redis"
	interactionsvc "github.com/MakeNowJust/mastodon/internal/services/interactions"
	langsvc "github.com/MakeNowJust/mastodon/internal/services/language"
	mediasvc "github.com/MakeNowJust/mastodon/internal/services/media"
	ratesvc "github.com/MakeNowJust/mastodon/internal/services/rate"
	renamesvc "github.com/MakeNowJust/mastodon/internal/services/rename"
	statussvc "github.com/MakeNowJust/mastodon/internal/services/statuses"
	"github.com/MakeNowJust/mastodon/internal/services/textproc"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	asynq      *asynq.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	asynqClient := queue.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	accountRepo := pgrepo.NewAccountRepo(pool)
	statusRepo := pgrepo.NewStatusRepo(pool)
	scheduledRepo := pgrepo.NewScheduledStatusRepo(pool)
	mediaRepo := pgrepo.NewMediaRepo(pool)
	followRepo := pgrepo.NewFollowRepo(pool)
	mentionRepo := pgrepo.NewMentionRepo(pool)
	tagRepo := pgrepo.NewTagRepo(pool)
	idempotencyRepo := redrepo.NewIdempotencyRepo(redisClient)
	interactionsRepo := redrepo.NewInteractionsRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	languageService := langsvc.NewService(nil)
	interactionsService := interactionsvc.NewService(interactionsRepo, interactionsRepo, followRepo)
	renameService := renamesvc.NewService(accountRepo, log)
	statusService := statussvc.NewService(statussvc.Dependencies{
		Accounts:     accountRepo,
		Statuses:     statusRepo,
		Scheduled:    scheduledRepo,
		Media:        mediaRepo,
		Idempotency:  idempotencyRepo,
		Language:     languageService,
		Queue:        queue.NewEnqueuer(asynqClient),
		Interactions: interactionsService,
		Rename:       renameService,
		Processors: []statussvc.StatusProcessor{
			textproc.NewMentionProcessor(accountRepo, mentionRepo),
			textproc.NewHashtagProcessor(tagRepo),
		},
		Logger: log,
	})

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Region:    cfg.S3.Region,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaService := mediasvc.NewService(mediaRepo, mediaStorage)

	RegisterRoutes(r, Dependencies{
		StatusService: statusService,
		MediaService:  mediaService,
		PublishLimit:  ratesvc.NewLimiter(rateRepo, cfg.Rate.PublishPerWindow, cfg.Rate.PublishBurst),
		Logger:        log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		asynq:      asynqClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.asynq != nil {
		if err := a.asynq.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
