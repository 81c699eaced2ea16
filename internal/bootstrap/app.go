package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"menuflow-backend/internal/broker"
	"menuflow-backend/internal/cache"
	"menuflow-backend/internal/jobs"
	"menuflow-backend/internal/menus"
	"menuflow-backend/internal/ocr"
	"menuflow-backend/internal/services/health"
	"menuflow-backend/internal/shared/config"
	"menuflow-backend/internal/shared/server"
	"menuflow-backend/internal/shared/storage/db"
)

// App holds shared dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Cache         cache.Store
	Broker        *broker.Broker
	Queue         *jobs.Queue
	OCR           *ocr.Extractor
	MenusService  *menus.Service
	MenusHandler  *menus.Handler
	HealthService *health.Service
}

// Build prepares shared dependencies and wires the router. The job queue is
// started; callers own Shutdown.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var store cache.Store
	if sqlDB != nil {
		store = &cache.PGStore{DB: sqlDB}
	} else {
		store = cache.NewMemoryStore()
	}

	aiBroker, err := buildBroker(cfg)
	if err != nil {
		return nil, err
	}

	queue := jobs.New(jobs.Config{
		Workers:               cfg.ExtractionWorkers,
		QueueDepth:            cfg.ExtractionQueueDepth,
		MinDeterministicItems: cfg.MinDeterministicItems,
		CacheTTL:              cfg.CacheTTL,
	}, store, aiBroker)
	queue.Start(ctx)

	ocrExtractor := ocr.NewExtractor(ocr.Config{
		Lang:     cfg.OCRLang,
		DPI:      cfg.OCRDPI,
		MaxPages: cfg.OCRMaxPages,
	})

	menusSvc := menus.NewService(ocrExtractor, cfg.PDFTextMinChars)
	menusHandler := menus.NewHandler(menusSvc, queue)
	healthSvc := health.NewService(sqlDB)

	app := &App{
		Config:        cfg,
		DB:            sqlDB,
		Cache:         store,
		Broker:        aiBroker,
		Queue:         queue,
		OCR:           ocrExtractor,
		MenusService:  menusSvc,
		MenusHandler:  menusHandler,
		HealthService: healthSvc,
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		Menus:  menusHandler,
		Health: healthSvc,
	})

	return app, nil
}

// Shutdown drains the job queue and closes the database.
func (a *App) Shutdown() {
	if a.Queue != nil {
		a.Queue.Shutdown()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory cache")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database unavailable, falling back to in-memory cache: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed, falling back to in-memory cache: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

// buildBroker assembles providers in the configured order, skipping any
// without credentials. A broker with zero providers is still valid; every
// AI pass then degrades to the deterministic result.
func buildBroker(cfg config.Config) (*broker.Broker, error) {
	breakers := broker.NewBreakerRegistry(cfg.BreakerFailureThreshold, cfg.BreakerOpenWindow)

	var providers []broker.Provider
	for _, name := range cfg.AIProviders {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				log.Printf("bootstrap: OPENAI_API_KEY empty; skipping openai provider")
				continue
			}
			p, err := broker.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
			if err != nil {
				return nil, fmt.Errorf("openai provider: %w", err)
			}
			providers = append(providers, p)
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				log.Printf("bootstrap: GEMINI_API_KEY empty; skipping gemini provider")
				continue
			}
			p, err := broker.NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				return nil, fmt.Errorf("gemini provider: %w", err)
			}
			providers = append(providers, p)
		default:
			return nil, fmt.Errorf("unknown AI provider %q", name)
		}
	}
	if len(providers) == 0 {
		log.Printf("bootstrap: no AI providers configured; extraction will rely on deterministic parsing")
	}

	return broker.New(breakers, providers...), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "":
		return true
	default:
		return false
	}
}
