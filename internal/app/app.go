// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/markdave123-py/braindeck/internal/config"
	"github.com/markdave123-py/braindeck/internal/core"
	db "github.com/markdave123-py/braindeck/internal/core/database"
	"github.com/markdave123-py/braindeck/internal/core/extract"
	"github.com/markdave123-py/braindeck/internal/core/generation"
	"github.com/markdave123-py/braindeck/internal/core/llm"
	objectclient "github.com/markdave123-py/braindeck/internal/core/object-client"
	"github.com/markdave123-py/braindeck/internal/core/remote"
)

type App struct {
	DBClient     *db.DatabaseClient
	ObjectClient *objectclient.S3Client
	Generator    *generation.Generator
	Queue        *generation.Queue
	Dispatcher   *remote.Dispatcher
	Server       *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	extractor := extract.New(false)

	modelTimeout := time.Duration(cfg.ModelTimeoutS) * time.Second
	localModel := llm.NewOllamaClient(cfg.OllamaBaseURL, modelTimeout)

	var cloudModel *llm.GeminiClient
	if cfg.GeminiAPIKey != "" {
		cloudModel, err = llm.NewGeminiClient(appCtx, cfg.GeminiAPIKey, cfg.GeminiModel, modelTimeout)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the gemini client, %w", err)
		}
	}

	signedTTL := time.Duration(cfg.SignedURLTTLs) * time.Second
	genCfg := generation.GeneratorConfig{
		LocalModel:   cfg.OllamaModel,
		VisionModel:  cfg.OllamaModelVL,
		CloudModel:   cfg.GeminiModel,
		SignedURLTTL: signedTTL,
	}

	var cloud core.ModelClient
	if cloudModel != nil {
		cloud = cloudModel
	}
	generator := generation.NewGenerator(dbClient, objClient, extractor, localModel, cloud, cfg.BucketName, genCfg)
	queue := generation.NewQueue(generator, 0)

	dispatcher := remote.NewDispatcher(dbClient, objClient, cfg.BucketName, remote.DispatcherConfig{
		WorkerURL:      cfg.RemoteWorkerURL,
		WorkerToken:    cfg.RemoteWorkerToken,
		CallbackSecret: cfg.CallbackSecret,
		BaseURL:        cfg.BaseURL,
		SignedURLTTL:   signedTTL,
		RequestTimeout: time.Duration(cfg.WorkerTimeoutS) * time.Second,
	})

	server := NewServer(context.Background(), cfg, dbClient, objClient, queue, dispatcher)

	return &App{
		DBClient:     dbClient.(*db.DatabaseClient),
		ObjectClient: objClient.(*objectclient.S3Client),
		Generator:    generator,
		Queue:        queue,
		Dispatcher:   dispatcher,
		Server:       server,
	}, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
