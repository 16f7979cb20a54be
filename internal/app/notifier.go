package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/robfig/cron/v3"

	"github.com/archivio-hq/collection-notifier/internal/config"
	"github.com/archivio-hq/collection-notifier/internal/logger"
	"github.com/archivio-hq/collection-notifier/internal/pipeline"
	"github.com/archivio-hq/collection-notifier/internal/storage"
	"github.com/archivio-hq/collection-notifier/pkg/httpclient"
	"github.com/archivio-hq/collection-notifier/pkg/notify"
	"github.com/archivio-hq/collection-notifier/pkg/sources"
)

// Notifier is the runtime: it owns the storage backend, the source clients,
// the sink fanout, and the pipeline built from them.
type Notifier struct {
	cfg      *config.Config
	pipeline *pipeline.Service
	store    storage.Store
	fanout   *notify.Fanout
}

// objLogger adapts the package-level logger helpers to the notify.Logger surface.
type objLogger struct{}

func (objLogger) InfoObj(msg, key string, obj interface{})  { logger.InfoObj(msg, key, obj) }
func (objLogger) DebugObj(msg, key string, obj interface{}) { logger.DebugObj(msg, key, obj) }
func (objLogger) WarnObj(msg, key string, obj interface{})  { logger.WarnObj(msg, key, obj) }
func (objLogger) ErrorObj(msg, key string, obj interface{}) { logger.ErrorObj(msg, key, obj) }

// New wires the notifier runtime. Secrets must already be resolved; nothing
// below this point reads the environment.
func New(ctx context.Context, cfg *config.Config) (*Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	awsConfig, err := buildAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, storage.Options{
		Key:       cfg.SeenKey,
		Bucket:    cfg.BucketName,
		AWSConfig: awsConfig,
		BoltPath:  cfg.BBoltPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":   cfg.StorageType,
		"bucket": cfg.BucketName,
		"key":    cfg.SeenKey,
	})

	httpClient := httpclient.NewRestyClient(cfg.HTTPTimeout)
	archive := sources.NewArchivesSpaceClient(httpClient,
		cfg.ArchiveBaseURL, cfg.ArchiveUsername, cfg.ArchivePassword, cfg.PageSize)
	maps := sources.NewCartographerClient(httpClient, cfg.CartographerBaseURL)

	sinks, err := buildSinks(ctx, cfg, awsConfig)
	if err != nil {
		store.Close()
		return nil, err
	}
	fanout := notify.NewFanout(sinks)
	sinkSummaries := make([]map[string]string, 0, len(sinks))
	for _, s := range sinks {
		sinkSummaries = append(sinkSummaries, map[string]string{"id": s.ID(), "type": s.Type()})
	}
	logger.InfoObj("sinks initialized", "sinks_meta", map[string]any{
		"count": len(sinkSummaries),
		"sinks": sinkSummaries,
	})

	svc := pipeline.NewService(store, archive, maps, fanout, cfg.DiscoveryBaseURL)

	return &Notifier{
		cfg:      cfg,
		pipeline: svc,
		store:    store,
		fanout:   fanout,
	}, nil
}

// buildAWSConfig loads the default chain, overriding region and credentials
// from the resolved config when present.
func buildAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	var opts []func(*awscfg.LoadOptions) error
	if strings.TrimSpace(cfg.AWSRegion) != "" {
		opts = append(opts, awscfg.WithRegion(cfg.AWSRegion))
	}
	if strings.TrimSpace(cfg.AccessKeyID) != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsConfig, nil
}

// buildSinks loads the sinks file when configured, otherwise falls back to a
// single implicit Teams webhook sink.
func buildSinks(ctx context.Context, cfg *config.Config, awsConfig aws.Config) ([]notify.Sink, error) {
	if strings.TrimSpace(cfg.SinksFile) != "" {
		sinkCfgs, err := notify.LoadSinks(cfg.SinksFile)
		if err != nil {
			return nil, fmt.Errorf("load sinks registry: %w", err)
		}
		sinks, err := notify.BuildAll(ctx, sinkCfgs, awsConfig, objLogger{})
		if err != nil {
			return nil, fmt.Errorf("build sinks: %w", err)
		}
		return sinks, nil
	}

	return []notify.Sink{
		notify.NewTeamsSink("teams-webhook", cfg.TeamsURL, cfg.HTTPTimeout),
	}, nil
}

// RunOnce executes a single notifier pass. This is the scheduled-trigger
// surface: the external scheduler invokes the binary, it runs to completion,
// and a non-nil error becomes a non-zero exit visible to alerting.
func (n *Notifier) RunOnce(ctx context.Context) error {
	if n == nil || n.pipeline == nil {
		return fmt.Errorf("notifier is not initialized")
	}

	start := time.Now()
	if err := n.pipeline.Run(ctx); err != nil {
		return err
	}
	logger.InfoObj("notifier pass completed", "run_meta", map[string]any{
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// RunSchedule runs passes on the given cron spec until the context is
// cancelled. Failures are logged and the schedule keeps going; the next tick
// re-reports whatever the failed pass did not persist.
func (n *Notifier) RunSchedule(ctx context.Context, spec string) error {
	if n == nil || n.pipeline == nil {
		return fmt.Errorf("notifier is not initialized")
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := n.RunOnce(ctx); err != nil {
			logger.ErrorObj("scheduled pass failed", "error", err.Error())
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	logger.InfoObj("schedule loop starting", "schedule", spec)
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.InfoObj("schedule loop exiting", "reason", ctx.Err().Error())
	return nil
}

// Close releases the storage backend.
func (n *Notifier) Close() {
	if n == nil || n.store == nil {
		return
	}
	if err := n.store.Close(); err != nil {
		logger.ErrorObj("storage close failed", "error", err.Error())
	}
}
