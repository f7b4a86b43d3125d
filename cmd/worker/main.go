package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/archive"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/config"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/email"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/ffmpeg"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/metrics"
	miniostorage "github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/minio"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/postgres"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/rabbitmq"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/tracing"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/usecase"
	"github.com/perezbalen/Sprite-Sheet-Maker/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting spriteloop export worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing is optional; spans are no-ops without a collector
	tp, err := tracing.InitTracer(ctx, tracing.Options{
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:       cfg.MinIOEndpoint,
		AccessKey:      cfg.MinIOAccessKey,
		SecretKey:      cfg.MinIOSecretKey,
		UseSSL:         cfg.MinIOUseSSL,
		UploadBucket:   cfg.MinIOUploadBucket,
		ArtifactBucket: cfg.MinIOArtifactBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	defer pub.Close()

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	repo := postgres.NewExportJobRepository(pool)
	extractor := ffmpeg.NewExtractor(log)
	gifEncoder := ffmpeg.NewGIFEncoder(log)
	zipper := archive.NewZipCreator()
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	uc := usecase.NewProcessExportUseCase(
		repo, storage, extractor, gifEncoder, zipper,
		statusPub, dlqPub, notifier,
		log,
		usecase.ProcessExportConfig{
			TempDir:           cfg.TempDir,
			MaxRetries:        cfg.MaxRetries,
			KeyingParallelism: cfg.KeyingParallelism,
			Defaults:          cfg.ChromaDefaults(),
			GIFFPS:            cfg.GIFFPS,
		},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQExportQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log,
		pool.Ping,
		storage.Ping,
		consumer.Ping,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("export worker started, consuming messages",
		zap.Int("workers", cfg.WorkerCount),
		zap.Int("keying_parallelism", cfg.KeyingParallelism),
	)

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("export worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
