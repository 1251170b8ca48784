// Package app is the composition root: it wires configuration, the
// logger, the database pool, the AWS collaborators (S3, SQS, and
// optionally Step Functions), and every domain package into a single
// value threaded through whichever entrypoint (api/worker/lister-loop/
// refresher) is running. No file-scope singletons; tests construct a
// fresh App-equivalent per case using the package-level fakes instead.
package app

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/ternarybob/arbor"

	"github.com/stracscan/sentinel/internal/api"
	"github.com/stracscan/sentinel/internal/bus"
	"github.com/stracscan/sentinel/internal/common"
	"github.com/stracscan/sentinel/internal/db"
	"github.com/stracscan/sentinel/internal/lister"
	"github.com/stracscan/sentinel/internal/orchestrator"
	"github.com/stracscan/sentinel/internal/refresher"
	"github.com/stracscan/sentinel/internal/status"
	"github.com/stracscan/sentinel/internal/stepfn"
	"github.com/stracscan/sentinel/internal/store"
	"github.com/stracscan/sentinel/internal/worker"
)

// App holds every wired component. Each cmd/* entrypoint uses the
// subset it needs and calls Close on shutdown.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB     *db.DB
	Store  store.Store
	Bus    bus.Bus
	Driver stepfn.Driver // nil when STEP_FUNCTION_ARN is not configured

	Lister       *lister.Lister
	Worker       *worker.Worker
	Orchestrator *orchestrator.Orchestrator
	Status       *status.Aggregator
	Refresher    *refresher.Refresher
	API          *api.API
}

// New wires every component from cfg. The AWS SDK clients are built
// from ambient credentials/region resolution (environment, shared
// config, or an attached role) the same way the source's boto3 clients
// are implicitly configured.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("app: load aws config: %w", err)
	}

	database, err := db.Open(ctx, cfg.Database.ToDBConfig())
	if err != nil {
		return nil, fmt.Errorf("app: open database: %w", err)
	}
	a.DB = database

	a.Store = store.NewS3Store(s3.NewFromConfig(awsCfg))
	a.Bus = bus.NewSQSBus(sqs.NewFromConfig(awsCfg), cfg.AWS.SQSQueueURL, strings.HasSuffix(cfg.AWS.SQSQueueURL, ".fifo"))

	if cfg.AWS.StepFunctionArn != "" {
		a.Driver = stepfn.NewSFNDriver(sfn.NewFromConfig(awsCfg), cfg.AWS.StepFunctionArn)
	}

	a.Lister = lister.New(a.Store, a.DB, a.Bus, logger)

	workerCfg := worker.Config{
		MaxWorkers:           cfg.Worker.MaxWorkers,
		MaxFileSizeMB:        cfg.Worker.MaxFileSizeMB,
		MaxMessages:          cfg.Worker.BatchSize,
		WaitSeconds:          cfg.Worker.WaitSeconds,
		DetectorMaxPerKind:   cfg.Detector.MaxPerKind,
		DetectorContextChars: cfg.Detector.ContextChars,
		S3RequestsPerSecond:  cfg.Worker.S3RequestsPerSecond,
	}
	a.Worker = worker.New(a.Store, a.Bus, a.DB, workerCfg, logger)

	a.Orchestrator = orchestrator.New(a.DB, a.Driver, a.Lister, logger)
	a.Status = status.New(a.DB, a.Driver)
	a.Refresher = refresher.New(a.DB, logger)
	a.API = api.New(a.Orchestrator, a.Status, a.DB, logger)

	logger.Info().
		Str("aws_region", cfg.AWS.Region).
		Bool("durable_loop_configured", a.Driver != nil).
		Msg("application wired")

	return a, nil
}

// Close releases the database pool. Safe to call once during shutdown.
func (a *App) Close() error {
	if a.DB != nil {
		a.DB.Close()
	}
	return nil
}
