package main

import (
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-studio/internal/infra/kafka/consumer"
	"github.com/aliskhannn/catalog-studio/internal/kafka/handlers/batch"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Process batch requests consumed from Kafka until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			pc, err := cfg.Processing()
			if err != nil {
				return err
			}

			// Context & signals: used for graceful shutdown on system interrupts.
			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pl, err := newPipeline(sigCtx, cfg, pc)
			if err != nil {
				return err
			}
			defer pl.Close()

			h := batch.NewHandler(pl.orchestrator, cfg.Paths.OutputDir)
			c := consumer.New(&cfg.Kafka, cfg.RetryStrategy(), h)

			var wg sync.WaitGroup
			wg.Add(1)
			go c.Consume(sigCtx, &wg)

			// Block until context is canceled (SIGINT/SIGTERM).
			<-sigCtx.Done()
			zlog.Logger.Info().Msg("context done")

			wg.Wait()

			if err := c.Client.Close(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
			}

			return nil
		},
	}
}
