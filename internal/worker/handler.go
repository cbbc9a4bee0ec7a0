// Package worker turns decomposition requests consumed from Kafka into
// published results.
package worker

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/autofragment/internal/application/fragment"
	"github.com/turtacn/autofragment/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// Publisher sends result messages.
type Publisher interface {
	Publish(ctx context.Context, msg *kafka.ProducerMessage) error
}

// RunClaimer de-duplicates runs across worker replicas.
type RunClaimer interface {
	TryAcquire(ctx context.Context, runID string) (bool, error)
	Release(ctx context.Context, runID string) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithRunClaimer skips requests whose run id another worker already holds.
func WithRunClaimer(c RunClaimer) Option {
	return func(h *Handler) { h.claimer = c }
}

// WithRunIDGenerator replaces uuid.NewString for requests without a run id.
func WithRunIDGenerator(gen func() string) Option {
	return func(h *Handler) { h.newRunID = gen }
}

// Handler decodes a DecomposeRequest, runs it through the fragment service
// and publishes the DecomposeResponse keyed by run id.
type Handler struct {
	service     fragment.Service
	publisher   Publisher
	resultTopic string
	claimer     RunClaimer
	logger      logging.Logger
	newRunID    func() string
}

// NewHandler creates a Handler publishing to resultTopic.
func NewHandler(svc fragment.Service, pub Publisher, resultTopic string, logger logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	h := &Handler{
		service:     svc,
		publisher:   pub,
		resultTopic: resultTopic,
		logger:      logger,
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle implements kafka.MessageHandler.  A returned error makes the
// consumer retry the message and eventually dead-letter it.
func (h *Handler) Handle(ctx context.Context, msg *kafka.Message) error {
	var req molecule.DecomposeRequest
	if err := kafka.DecodeJSON(msg, &req); err != nil {
		return err
	}
	if req.RunID == "" {
		req.RunID = h.newRunID()
	}
	log := h.logger.With(logging.String("run_id", req.RunID))

	if h.claimer != nil {
		ok, err := h.claimer.TryAcquire(ctx, req.RunID)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("run already claimed, skipping")
			return nil
		}
		defer func() {
			if err := h.claimer.Release(context.WithoutCancel(ctx), req.RunID); err != nil {
				log.Warn("failed to release run", logging.Err(err))
			}
		}()
	}

	resp, err := h.service.Decompose(ctx, &req)
	if err != nil {
		return err
	}

	out, err := kafka.NewJSONMessage(h.resultTopic, req.RunID, resp)
	if err != nil {
		return err
	}
	out.Headers["run-id"] = req.RunID
	if err := h.publisher.Publish(ctx, out); err != nil {
		return errors.Wrap(err, errors.CodeUnknown, "failed to publish result").WithDetail(req.RunID)
	}

	log.Info("request handled",
		logging.Int("molecules", resp.Stats.Molecules),
		logging.Int("failed", resp.Stats.Failed))
	return nil
}

//Personal.AI order the ending
