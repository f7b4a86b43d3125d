package integration

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/imaging"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/archive"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/email"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/ffmpeg"
	miniostorage "github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/minio"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/postgres"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/rabbitmq"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/usecase"
	"github.com/perezbalen/Sprite-Sheet-Maker/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

const (
	exchange    = "spriteloop.video"
	exportQueue = "video.export"
	statusQueue = "video.export.status"
	dlqQueue    = "video.export.dlq"
)

type stack struct {
	pool    *pgxpool.Pool
	minio   *miniogo.Client
	rmqConn *amqp.Connection
	uc      *usecase.ProcessExportUseCase
	rmqURL  string
}

func startPostgres(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("exports"),
		tcpostgres.WithUsername("export_user"),
		tcpostgres.WithPassword("export_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { pgContainer.Terminate(context.Background()) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.RunMigrations(connStr, "../../migrations"))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func startStack(ctx context.Context, t *testing.T) *stack {
	t.Helper()
	s := &stack{pool: startPostgres(ctx, t)}

	rmqContainer, err := tcrabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { rmqContainer.Terminate(context.Background()) })
	s.rmqURL, err = rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { minioContainer.Terminate(context.Background()) })
	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:       minioEndpoint,
		AccessKey:      "minioadmin",
		SecretKey:      "minioadmin",
		UploadBucket:   "uploads",
		ArtifactBucket: "exports",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	s.minio, err = miniogo.New(minioEndpoint, &miniogo.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	require.NoError(t, err)

	s.rmqConn, err = amqp.Dial(s.rmqURL)
	require.NoError(t, err)
	t.Cleanup(func() { s.rmqConn.Close() })

	pub, err := rabbitmq.NewPublisher(s.rmqConn, exchange)
	require.NoError(t, err)

	log, _ := logger.New("debug")
	s.uc = usecase.NewProcessExportUseCase(
		postgres.NewExportJobRepository(s.pool),
		storage,
		ffmpeg.NewExtractor(log),
		ffmpeg.NewGIFEncoder(log),
		archive.NewZipCreator(),
		rabbitmq.NewStatusPublisher(pub),
		rabbitmq.NewDLQPublisher(pub, dlqQueue),
		email.NewSMTPNotifier("localhost", 1025, "test@test.local", log),
		log,
		usecase.ProcessExportConfig{
			TempDir:           t.TempDir(),
			MaxRetries:        3,
			KeyingParallelism: 2,
			Defaults:          entity.ChromaKeySettings{Tolerance: 40, Feather: 1},
		},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         s.rmqURL,
		Queue:       exportQueue,
		Exchange:    exchange,
		DLQ:         dlqQueue,
		StatusQueue: statusQueue,
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, s.uc.Execute, log)
	require.NoError(t, err)
	t.Cleanup(func() { consumer.Close() })

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	t.Cleanup(consumerCancel)
	go consumer.Start(consumerCtx)

	// give the consumer time to attach
	time.Sleep(500 * time.Millisecond)
	return s
}

func (s *stack) publish(ctx context.Context, t *testing.T, body []byte) {
	t.Helper()
	ch, err := s.rmqConn.Channel()
	require.NoError(t, err)
	defer ch.Close()
	require.NoError(t, ch.PublishWithContext(ctx, exchange, rabbitmq.ExportRoutingKey, false, false,
		amqp.Publishing{ContentType: "application/json", Body: body},
	))
}

func (s *stack) download(ctx context.Context, t *testing.T, key string) []byte {
	t.Helper()
	obj, err := s.minio.GetObject(ctx, "exports", key, miniogo.GetObjectOptions{})
	require.NoError(t, err)
	defer obj.Close()
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	return data
}

func TestExportEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testVideoPath := filepath.Join("..", "testdata", "greenscreen.mp4")
	videoInfo, err := os.Stat(testVideoPath)
	if os.IsNotExist(err) {
		t.Skip("test video not found at tests/testdata/greenscreen.mp4 - generate it with: ffmpeg -f lavfi -i color=c=0x00ff00:s=64x48:d=2:r=10 -vf drawbox=x=16:y=12:w=32:h=24:color=red:t=fill -c:v libx264 -pix_fmt yuv444p -crf 0 tests/testdata/greenscreen.mp4")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s := startStack(ctx, t)

	videoKey := "testuser/greenscreen.mp4"
	_, err = s.minio.FPutObject(ctx, "uploads", videoKey, testVideoPath, miniogo.PutObjectOptions{
		ContentType: "video/mp4",
	})
	require.NoError(t, err)

	jobID := uuid.New()
	msg := entity.ExportRequestMessage{
		JobID:      jobID,
		UserID:     "testuser",
		UserEmail:  "test@test.local",
		VideoKey:   videoKey,
		FileSize:   videoInfo.Size(),
		Timestamps: []float64{0.5},
		Marking:    &entity.FrameMarking{EveryN: 5, StartFrame: 0, EndFrame: 10},
		Settings:   entity.SettingsRequest{Colors: []entity.KeyColor{{G: 255}}},
		Outputs: []entity.OutputKind{
			entity.OutputFrames, entity.OutputSpriteSheet, entity.OutputGIF, entity.OutputPreview,
		},
		SpriteSheet: entity.SpriteSheetOptions{Columns: 2, Padding: 1},
	}
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	s.publish(ctx, t, body)

	statusCh, err := s.rmqConn.Channel()
	require.NoError(t, err)
	defer statusCh.Close()
	statusMsgs, err := statusCh.Consume(statusQueue, "", true, false, false, false, nil)
	require.NoError(t, err)

	var status entity.VideoStatusMessage
	select {
	case delivery := <-statusMsgs:
		require.NoError(t, json.Unmarshal(delivery.Body, &status))
	case <-time.After(2 * time.Minute):
		t.Fatal("timeout waiting for status message")
	}

	assert.Equal(t, jobID, status.JobID)
	require.Equal(t, entity.JobStatusCompleted, status.Status, status.ErrorMessage)
	// frame 5 at 10 fps coincides with the explicit 0.5s timestamp
	assert.Equal(t, 3, status.FrameCount)

	zipData := s.download(ctx, t, status.Artifacts.FramesKey)
	zr, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	require.NoError(t, err)
	assert.Len(t, zr.File, status.FrameCount)

	sheet, err := imaging.DecodePNG(bytes.NewReader(s.download(ctx, t, status.Artifacts.SpriteSheetKey)))
	require.NoError(t, err)
	assert.Equal(t, 2*64+1, sheet.Width)
	assert.Equal(t, 2*48+1, sheet.Height)
	assert.Less(t, sheet.Alpha(2, 2), uint8(16), "green corner keyed out")
	assert.Equal(t, uint8(255), sheet.Alpha(32, 24), "red subject kept")

	gif := s.download(ctx, t, status.Artifacts.GIFKey)
	assert.Equal(t, "GIF89a", string(gif[:6]))
	assert.NotEmpty(t, s.download(ctx, t, status.Artifacts.PreviewKey))

	var dbStatus, fingerprint string
	var dbFrameCount int
	err = s.pool.QueryRow(ctx,
		"SELECT status, frame_count, settings_fingerprint FROM export_jobs WHERE id=$1", jobID,
	).Scan(&dbStatus, &dbFrameCount, &fingerprint)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", dbStatus)
	assert.Equal(t, status.FrameCount, dbFrameCount)
	assert.Contains(t, fingerprint, "c=0,255,0")
}

func TestExportMalformedMessage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := startStack(ctx, t)
	s.publish(ctx, t, []byte(`{invalid json`))

	time.Sleep(2 * time.Second)

	dlqCh, err := s.rmqConn.Channel()
	require.NoError(t, err)
	defer dlqCh.Close()

	dlqMsg, ok, err := dlqCh.Get(dlqQueue, true)
	require.NoError(t, err)
	assert.True(t, ok, "malformed message should be in DLQ")
	assert.Equal(t, `{invalid json`, string(dlqMsg.Body))
}

func TestExportJobRepositoryRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo := postgres.NewExportJobRepository(startPostgres(ctx, t))

	job := entity.NewExportJob("user-1", "user-1/clip.mp4", 2048, 3)
	require.NoError(t, repo.Create(ctx, job))

	job.MarkProcessing("c=0,255,0|t=40")
	job.MarkCompleted(entity.Artifacts{FramesKey: "user-1/x/frames.zip", GIFKey: "user-1/x/animation.gif"}, 7)
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, got.Status)
	assert.Equal(t, job.Artifacts, got.Artifacts)
	assert.Equal(t, 7, got.FrameCount)
	assert.Equal(t, 1, got.Attempt)
	assert.Equal(t, entity.SettingsFingerprint("c=0,255,0|t=40"), got.Settings)
	require.NotNil(t, got.CompletedAt)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, entity.ErrJobNotFound)

	missing := entity.NewExportJob("user-2", "k", 0, 1)
	assert.ErrorIs(t, repo.Update(ctx, missing), entity.ErrJobNotFound)
}
