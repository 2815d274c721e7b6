package workerapp

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MakeNowJust/mastodon/internal/config"
	"github.com/MakeNowJust/mastodon/internal/infra/httpclient"
	s3infra "github.com/MakeNowJust/mastodon/internal/infra/s3"
	"github.com/MakeNowJust/mastodon/internal/jobs/cleanup"
	"github.com/MakeNowJust/mastodon/internal/queue"
	pgrepo "github.com/MakeNowJust/mastodon/internal/repo/postgres"
	redrepo "github.com/MakeNowJust/mastodon/internal/repo/redis"
	interactionsvc "github.com/MakeNowJust/mastodon/internal/services/interactions"
	langsvc "github.com/MakeNowJust/mastodon/internal/services/language"
	mediasvc "github.com/MakeNowJust/mastodon/internal/services/media"
	renamesvc "github.com/MakeNowJust/mastodon/internal/services/rename"
	statussvc "github.com/MakeNowJust/mastodon/internal/services/statuses"
	"github.com/MakeNowJust/mastodon/internal/services/textproc"
)

const crawlTimeout = 10 * time.Second

// App hosts the asynq consumers for the jobs the publication pipeline
// enqueues: link crawling, distribution fan-out, poll expiry and scheduled
// status materialization.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	server      *asynq.Server
	mux         *asynq.ServeMux
	postgres    *pgxpool.Pool
	redis       *goredis.Client
	asynq       *asynq.Client
	cleanup     *cleanup.Job
	stopCleanup context.CancelFunc
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("worker postgres init: %w", err)
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
	interactionsRepo := redrepo.NewInteractionsRepo(redisClient)

	// Materialized statuses run through the same pipeline as immediate
	// ones, fan-out included.
	statusService := statussvc.NewService(statussvc.Dependencies{
		Accounts:     accountRepo,
		Statuses:     statusRepo,
		Scheduled:    scheduledRepo,
		Media:        mediaRepo,
		Idempotency:  redrepo.NewIdempotencyRepo(redisClient),
		Language:     langsvc.NewService(nil),
		Queue:        queue.NewEnqueuer(asynqClient),
		Interactions: interactionsvc.NewService(interactionsRepo, interactionsRepo, followRepo),
		Rename:       renamesvc.NewService(accountRepo, log),
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
		log.Warn("s3 init failed, media cleanup disabled", zap.Error(err))
	} else {
		s3Client = c
	}

	var cleanupJob *cleanup.Job
	if s3Client != nil {
		cleanupJob = cleanup.NewUnattachedMediaJob(
			mediaRepo,
			mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket),
			cfg.Cleanup.MediaRetention,
			log,
		)
	}

	handler := NewHandler(statusService, statusRepo, httpclient.New(crawlTimeout), log)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskCrawlLinks, handler.HandleCrawlLinks)
	mux.HandleFunc(queue.TaskDistribute, handler.HandleDistribute)
	mux.HandleFunc(queue.TaskDistributeFederation, handler.HandleDistributeFederation)
	mux.HandleFunc(queue.TaskPollExpireNotify, handler.HandlePollExpireNotify)
	mux.HandleFunc(queue.TaskPublishScheduled, handler.HandlePublishScheduled)

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{Concurrency: cfg.Queue.Concurrency},
	)

	return &App{
		cfg:      cfg,
		logger:   log,
		server:   server,
		mux:      mux,
		postgres: pool,
		redis:    redisClient,
		asynq:    asynqClient,
		cleanup:  cleanupJob,
	}, nil
}

func (a *App) Run() error {
	if a.cleanup != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopCleanup = cancel
		go a.cleanup.Start(ctx, a.cfg.Cleanup.Interval)
	}

	a.logger.Info("worker started", zap.Int("concurrency", a.cfg.Queue.Concurrency))
	return a.server.Run(a.mux)
}

func (a *App) Shutdown() {
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	a.server.Shutdown()
	if a.asynq != nil {
		_ = a.asynq.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
