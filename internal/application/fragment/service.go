// Package fragment provides the application-level service for fragment
// decomposition.  It sits between the HTTP, CLI and worker surfaces and the
// domain Decomposer: it resolves request defaults, assigns run ids and
// stores finished results.
package fragment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// Service defines the fragment application operations.
type Service interface {
	Decompose(ctx context.Context, req *molecule.DecomposeRequest) (*molecule.DecomposeResponse, error)
	Count(ctx context.Context, req *molecule.CountRequest) (*molecule.CountResponse, error)
}

// Decomposer is the part of the domain Decomposer the service drives.
type Decomposer interface {
	DecomposeAll(ctx context.Context, molecules map[string]string, radius int) *molecule.DecompositionResult
	DecomposeCumulative(ctx context.Context, molecules map[string]string, maxRadius int) *molecule.DecompositionResult
	Decompose(ctx context.Context, source string, radius int, cumulative bool) (molecule.FragmentCountMap, error)
}

// ResultSink stores a finished result and reports where it went.
type ResultSink interface {
	Store(ctx context.Context, result *molecule.DecompositionResult) (string, error)
}

// Option configures the service.
type Option func(*serviceImpl)

// WithDefaultRadius sets the radius used when a request leaves it out.
func WithDefaultRadius(r int) Option {
	return func(s *serviceImpl) { s.defaultRadius = r }
}

// WithMaxMolecules rejects batches larger than n.  Zero means unlimited.
func WithMaxMolecules(n int) Option {
	return func(s *serviceImpl) { s.maxMolecules = n }
}

// WithResultSink stores every finished batch in sink.
func WithResultSink(sink ResultSink) Option {
	return func(s *serviceImpl) { s.sink = sink }
}

// WithRunIDGenerator replaces the uuid-based run id generator.
func WithRunIDGenerator(gen func() string) Option {
	return func(s *serviceImpl) { s.newRunID = gen }
}

type serviceImpl struct {
	decomposer    Decomposer
	logger        logging.Logger
	sink          ResultSink
	defaultRadius int
	maxMolecules  int
	newRunID      func() string
}

// NewService creates the fragment application service.
func NewService(decomposer Decomposer, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		decomposer:    decomposer,
		logger:        logger,
		defaultRadius: 1,
		newRunID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) radius(r *int) (int, error) {
	radius := s.defaultRadius
	if r != nil {
		radius = *r
	}
	if radius < 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidRadius, "radius %d is negative", radius)
	}
	return radius, nil
}

func (s *serviceImpl) Decompose(ctx context.Context, req *molecule.DecomposeRequest) (*molecule.DecomposeResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if s.maxMolecules > 0 && len(req.Molecules) > s.maxMolecules {
		return nil, errors.Newf(errors.ErrCodeValidation, "batch of %d molecules exceeds limit %d", len(req.Molecules), s.maxMolecules)
	}
	radius, err := s.radius(req.Radius)
	if err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = s.newRunID()
	}

	start := time.Now()
	var result *molecule.DecompositionResult
	if req.Cumulative {
		result = s.decomposer.DecomposeCumulative(ctx, req.Molecules, radius)
	} else {
		result = s.decomposer.DecomposeAll(ctx, req.Molecules, radius)
	}
	result.RunID = runID

	resp := &molecule.DecomposeResponse{Result: result, Stats: result.Stats()}
	if s.sink != nil {
		loc, err := s.sink.Store(ctx, result)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, "failed to store result").WithDetail(runID)
		}
		resp.Location = loc
	}

	s.logger.Info("decomposition run finished",
		logging.String("run_id", runID),
		logging.Int("molecules", resp.Stats.Molecules),
		logging.Int("failed", resp.Stats.Failed),
		logging.Duration("elapsed", time.Since(start)))
	return resp, nil
}

func (s *serviceImpl) Count(ctx context.Context, req *molecule.CountRequest) (*molecule.CountResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	radius, err := s.radius(req.Radius)
	if err != nil {
		return nil, err
	}
	counts, err := s.decomposer.Decompose(ctx, req.SMILES, radius, req.Cumulative)
	if err != nil {
		return nil, err
	}
	return &molecule.CountResponse{SMILES: req.SMILES, Radius: radius, Fragments: counts}, nil
}

//Personal.AI order the ending
