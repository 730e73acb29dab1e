package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-studio/internal/bgremoval"
	"github.com/aliskhannn/catalog-studio/internal/config"
	"github.com/aliskhannn/catalog-studio/internal/infra/kafka/producer"
	"github.com/aliskhannn/catalog-studio/internal/model"
	"github.com/aliskhannn/catalog-studio/internal/processor"
	"github.com/aliskhannn/catalog-studio/internal/queue"
	"github.com/aliskhannn/catalog-studio/internal/storage/file"
	"github.com/aliskhannn/catalog-studio/internal/storage/object"
)

var loggerOnce sync.Once

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// setupLogger initializes zlog and switches to a console writer on terminals.
func setupLogger(level string, w io.Writer) {
	loggerOnce.Do(zlog.Init)

	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		zlog.Logger = zlog.Logger.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"})
	} else {
		zlog.Logger = zlog.Logger.Output(w)
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zlog.Logger = zlog.Logger.Level(lvl)
}

// pipeline is a processor plus orchestrator wired to the optional publishers.
type pipeline struct {
	processor    *processor.Processor
	orchestrator *queue.Orchestrator
	closers      []func() error
}

func (p *pipeline) Close() {
	for _, c := range p.closers {
		if err := c(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close client")
		}
	}
}

func newPipeline(ctx context.Context, cfg *config.Config, pc model.ProcessingConfig) (*pipeline, error) {
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}

	// Background removal availability is decided once per run.
	var r bgremoval.Remover
	if pc.RemoveBackground {
		if c := bgremoval.Detect(cfg.Background.Command, cfg.Background.Args, cfg.Background.Timeout); c != nil {
			r = c
		} else {
			zlog.Logger.Warn().
				Str("command", cfg.Background.Command).
				Msg("background remover not found; images will fail until it is installed or background removal is disabled")
		}
	}

	p := processor.New(pc, file.NewStorage(), r)
	o := queue.NewOrchestrator(p, cfg.Manifest.Prefix)
	pl := &pipeline{processor: p, orchestrator: o}

	if cfg.Storage.Enabled {
		s, err := object.NewStorage(
			ctx,
			cfg.Storage.Endpoint,
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			cfg.Storage.BucketName,
			cfg.Storage.Prefix,
			cfg.Storage.UseSSL,
			cfg.RetryStrategy(),
		)
		if err != nil {
			return nil, fmt.Errorf("connect to storage: %w", err)
		}
		o.WithUploader(s)
	}

	if cfg.Kafka.EventsEnabled {
		prod := producer.New(&cfg.Kafka, cfg.RetryStrategy())
		o.WithEvents(prod)
		pl.closers = append(pl.closers, prod.Client.Close)
	}

	return pl, nil
}
