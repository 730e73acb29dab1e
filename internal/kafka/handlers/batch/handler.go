package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-studio/internal/model"
	"github.com/aliskhannn/catalog-studio/internal/queue"
)

// ErrInvalidRequest is returned for messages that can never be processed.
// Other errors are transient, e.g. an output directory held by another run.
var ErrInvalidRequest = errors.New("invalid batch request")

// runner processes a queue into an output directory.
type runner interface {
	RunQueue(ctx context.Context, q *queue.Queue, outputDir string) (queue.Report, error)
}

// Handler turns batch request messages into orchestrator runs.
type Handler struct {
	runner           runner
	defaultOutputDir string
}

// NewHandler creates a Handler. defaultOutputDir is used when a request
// carries no output directory.
func NewHandler(r runner, defaultOutputDir string) *Handler {
	return &Handler{runner: r, defaultOutputDir: defaultOutputDir}
}

// Handle decodes a model.BatchRequest, queues its paths and runs them.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var req model.BatchRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("%w: unmarshal: %w", ErrInvalidRequest, err)
	}

	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		outputDir = h.defaultOutputDir
	}
	if outputDir == "" {
		return fmt.Errorf("%w: no output directory", ErrInvalidRequest)
	}

	q := queue.New()
	added, err := q.Enqueue(req.Paths...)
	if err != nil {
		return fmt.Errorf("%w: enqueue paths: %w", ErrInvalidRequest, err)
	}
	if added == 0 {
		return fmt.Errorf("%w: no supported images in %v", ErrInvalidRequest, req.Paths)
	}

	rep, err := h.runner.RunQueue(ctx, q, outputDir)
	if errors.Is(err, queue.ErrOutputDir) {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}

	zlog.Logger.Info().
		Str("run_id", rep.RunID).
		Int("succeeded", rep.Succeeded()).
		Int("total", rep.Total).
		Str("manifest", rep.ManifestPath).
		Msg("batch request completed")

	return nil
}
