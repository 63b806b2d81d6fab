package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Youngdong2/ai-meeting-api/config"
	"github.com/Youngdong2/ai-meeting-api/internal/api/handlers"
	"github.com/Youngdong2/ai-meeting-api/internal/api/middleware"
	"github.com/Youngdong2/ai-meeting-api/internal/api/routes"
	"github.com/Youngdong2/ai-meeting-api/internal/cache"
	"github.com/Youngdong2/ai-meeting-api/internal/logger"
	"github.com/Youngdong2/ai-meeting-api/internal/media"
	"github.com/Youngdong2/ai-meeting-api/internal/pipeline"
	"github.com/Youngdong2/ai-meeting-api/internal/providers/llm"
	"github.com/Youngdong2/ai-meeting-api/internal/providers/stt"
	mongorepo "github.com/Youngdong2/ai-meeting-api/internal/repositories/mongo"
	"github.com/Youngdong2/ai-meeting-api/internal/repositories/postgres"
	"github.com/Youngdong2/ai-meeting-api/internal/services"
	"github.com/Youngdong2/ai-meeting-api/internal/storage"
	"github.com/Youngdong2/ai-meeting-api/internal/workers"
)

func main() {
	_ = godotenv.Load()

	lg := logger.New()

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	lg.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	lg.Info("Redis connected")

	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	lg.Info("MongoDB connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// storage: GCS in deployment, local disk otherwise
	var store storage.Store
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		gcs, err := storage.NewGCSStore(ctx, bucket)
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		store = gcs
	} else {
		dir := os.Getenv("AUDIO_DIR")
		if dir == "" {
			dir = "./data/audio"
		}
		local, err := storage.NewLocalStore(dir)
		if err != nil {
			log.Fatalf("audio dir init error: %v", err)
		}
		store = local
	}

	meetingRepo := postgres.NewMeetingRepo(config.PostgresDB)
	teamRepo := postgres.NewTeamRepo(config.PostgresDB)
	eventRepo := mongorepo.NewEventRepo(config.MongoDatabase(), 0)

	notifier := &workers.StatusNotifier{
		Redis:  config.RedisClient,
		Events: eventRepo,
		Logger: lg,
	}

	// Providers default to OpenAI with the per-team key; Google Cloud
	// variants use ADC and a single long-lived client.
	newSTT := func(apiKey string) stt.Provider { return stt.NewOpenAI(apiKey) }
	if os.Getenv("STT_PROVIDER") == "google" {
		g, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.Fatalf("Google Speech init error: %v", err)
		}
		newSTT = func(string) stt.Provider { return sharedSTT{g} }
	}

	newLLM := func(apiKey string) llm.Provider { return llm.NewOpenAI(apiKey) }
	if os.Getenv("LLM_PROVIDER") == "vertex" {
		v, err := llm.NewVertexGemini(ctx,
			os.Getenv("VERTEX_PROJECT_ID"),
			os.Getenv("VERTEX_LOCATION"),
			os.Getenv("VERTEX_MODEL"),
		)
		if err != nil {
			log.Fatalf("Vertex AI init error: %v", err)
		}
		newLLM = func(string) llm.Provider { return sharedLLM{v} }
	}

	runner := &pipeline.Runner{
		Store:       meetingRepo,
		Credentials: teamRepo,
		Files:       store,
		Compressor:  media.NewCompressor(lg),
		Transcriber: pipeline.NewTranscriber(lg),
		NewSTT:      newSTT,
		NewLLM:      newLLM,
		Events:      notifier,
		Log:         lg,
	}

	publisher := workers.NewPublisher(meetingRepo, teamRepo, os.Getenv("APP_URL"), lg)

	pool := &workers.MeetingWorkerPool{
		Redis:      config.RedisClient,
		Runner:     runner,
		Publisher:  publisher,
		Logger:     lg,
		NumWorkers: envInt("WORKER_COUNT", 2),
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("worker pool start error: %v", err)
	}

	sweeper := &workers.RetentionSweeper{
		Meetings: meetingRepo,
		Store:    store,
		Interval: time.Duration(envInt("RETENTION_SWEEP_MINUTES", 60)) * time.Minute,
		Logger:   lg,
	}
	sweeper.Start(ctx)

	meetingSvc := services.NewMeetingService(
		meetingRepo,
		eventRepo,
		store,
		pool,
		cache.NewRedisCache(config.RedisClient),
	)

	r := gin.New()
	r.Use(middleware.RequestLogger(lg), gin.Recovery())

	routes.RegisterRoutes(r, routes.Deps{
		Meeting:  handlers.NewMeetingHandler(meetingSvc),
		Progress: handlers.NewProgressHandler(meetingSvc, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// The pipeline closes its providers after every job; these wrappers keep
// process-wide Google Cloud clients open across jobs.
type sharedSTT struct{ stt.Provider }

func (sharedSTT) Close() error { return nil }

type sharedLLM struct{ llm.Provider }

func (sharedLLM) Close() error { return nil }

func envInt(key string, def int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return def
}
