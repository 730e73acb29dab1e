package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-studio/internal/config"
	"github.com/aliskhannn/catalog-studio/internal/kafka/handlers/batch"
)

// batchHandler defines the interface for handling batch request messages.
type batchHandler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// Consumer reads batch requests from Kafka and hands them to the handler.
type Consumer struct {
	Client   *wbfkafka.Consumer
	handler  batchHandler
	topic    string
	strategy retry.Strategy
}

// New creates a new Consumer on cfg.RequestsTopic.
func New(cfg *config.Kafka, s retry.Strategy, h batchHandler) *Consumer {
	return &Consumer{
		Client:   wbfkafka.NewConsumer(cfg.Brokers, cfg.RequestsTopic, cfg.GroupID),
		handler:  h,
		topic:    cfg.RequestsTopic,
		strategy: s,
	}
}

// Consume fetches messages until ctx is canceled. A message is committed once
// handled, or when it can never be handled, so a bad request does not block
// the partition.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().
		Str("topic", c.topic).
		Msg("starting consumer")

	for {
		// Exit if context is canceled (graceful shutdown).
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("shutdown signal received, stopping consumer")
			return
		}

		// Fetch a message from Kafka with retries.
		var msg kafka.Message
		err := retry.Do(func() error {
			var fetchErr error
			msg, fetchErr = c.Client.Fetch(ctx)
			return fetchErr
		}, c.strategy)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			zlog.Logger.Err(err).Msg("failed to fetch message")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if !c.handle(ctx, msg) {
			continue
		}

		// Commit the message with retries.
		err = retry.Do(func() error {
			return c.Client.Commit(ctx, msg)
		}, c.strategy)
		if err != nil {
			zlog.Logger.Err(err).Msg("failed to commit message after retries")
			continue
		}

		zlog.Logger.Info().
			Int64("offset", msg.Offset).
			Msg("message handled")
	}
}

// handle runs the handler and reports whether msg may be committed. Failures
// other than an invalid request are retried until they succeed or ctx is
// canceled; a canceled message stays uncommitted and is redelivered.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	wait := c.strategy.Delay
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}

	for {
		err := c.handler.Handle(ctx, msg)
		if err == nil {
			return true
		}

		if errors.Is(err, batch.ErrInvalidRequest) {
			zlog.Logger.Err(err).
				Int64("offset", msg.Offset).
				Str("message", string(msg.Value)).
				Msg("skipping invalid batch request")
			return true
		}

		zlog.Logger.Warn().
			Err(err).
			Int64("offset", msg.Offset).
			Dur("retry_in", wait).
			Msg("failed to handle batch request, retrying")

		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
	}
}
