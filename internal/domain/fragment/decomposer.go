package fragment

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/turtacn/autofragment/internal/batch"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// ─────────────────────────────────────────────────────────────────────────────
// Collaborators
// ─────────────────────────────────────────────────────────────────────────────

// CacheKey identifies one cached fragment table.
type CacheKey struct {
	Source string
	Radius int
	// Variant distinguishes tables computed with different options for the
	// same source and radius.
	Variant string
}

// ResultCache memoises fragment tables.  Implementations must return the
// error of compute unchanged and must not turn their own storage failures
// into errors.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key CacheKey, compute func(ctx context.Context) (molecule.FragmentCountMap, error)) (molecule.FragmentCountMap, error)
}

// Metrics receives per-molecule and per-batch observations.
type Metrics interface {
	ObserveMolecule(status, code string, elapsed time.Duration)
	ObserveBatch(total, succeeded, failed int, elapsed time.Duration)
	SetDistinctFragments(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveMolecule(string, string, time.Duration) {}
func (noopMetrics) ObserveBatch(int, int, int, time.Duration)     {}
func (noopMetrics) SetDistinctFragments(int)                      {}

// ─────────────────────────────────────────────────────────────────────────────
// Decomposer
// ─────────────────────────────────────────────────────────────────────────────

// Decomposer applies a Counter to a batch of molecules, isolating failures so
// that one malformed structure never affects the others.
type Decomposer struct {
	source  GraphSource
	counter *Counter
	engine  batch.Processor[job, molecule.FragmentCountMap]
	cache   ResultCache
	metrics Metrics
	logger  logging.Logger

	variant     string
	concurrency int
	itemTimeout time.Duration
	counterOpts []CounterOption
}

// DecomposerOption configures a Decomposer.
type DecomposerOption func(*Decomposer)

// WithCache installs a result cache.  variant is folded into every cache key
// and should encode the GraphSource options that change its output.
func WithCache(c ResultCache, variant string) DecomposerOption {
	return func(d *Decomposer) {
		d.cache = c
		d.variant = variant
	}
}

// WithMetrics installs a metrics sink.
func WithMetrics(m Metrics) DecomposerOption {
	return func(d *Decomposer) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithLogger installs a logger.
func WithLogger(l logging.Logger) DecomposerOption {
	return func(d *Decomposer) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithConcurrency bounds the number of molecules decomposed at once.
func WithConcurrency(n int) DecomposerOption {
	return func(d *Decomposer) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithItemTimeout bounds the time spent on a single molecule.  Zero disables
// the limit.
func WithItemTimeout(t time.Duration) DecomposerOption {
	return func(d *Decomposer) {
		if t >= 0 {
			d.itemTimeout = t
		}
	}
}

// WithCounterOptions forwards options to the underlying Counter.
func WithCounterOptions(opts ...CounterOption) DecomposerOption {
	return func(d *Decomposer) {
		d.counterOpts = append(d.counterOpts, opts...)
	}
}

// NewDecomposer creates a Decomposer backed by source.
func NewDecomposer(source GraphSource, opts ...DecomposerOption) *Decomposer {
	d := &Decomposer{
		source:      source,
		metrics:     noopMetrics{},
		logger:      logging.NewNopLogger(),
		concurrency: runtime.NumCPU(),
		itemTimeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(d)
	}
	d.counter = NewCounter(source, d.counterOpts...)
	if d.cache != nil {
		// The atom limit decides which molecules fail, so it is part of the key.
		d.variant = fmt.Sprintf("%s:atoms=%d", d.variant, d.counter.maxAtoms)
	}
	d.engine = batch.NewProcessor[job, molecule.FragmentCountMap](
		batch.WithConcurrency(d.concurrency),
		batch.WithItemTimeout(d.itemTimeout),
		batch.WithObserver(d.metrics),
		batch.WithLogger(d.logger),
	)
	return d
}

// Counter returns the counter used for each molecule.
func (d *Decomposer) Counter() *Counter { return d.counter }

type job struct {
	id         string
	source     string
	radius     int
	cumulative bool
}

// DecomposeAll decomposes every molecule at the given radius.  It never
// fails: molecules that cannot be decomposed are listed in FailedIDs (sorted)
// with their reasons in Failures.  The input map is not modified.
func (d *Decomposer) DecomposeAll(ctx context.Context, molecules map[string]string, radius int) *molecule.DecompositionResult {
	return d.decompose(ctx, molecules, radius, false)
}

// DecomposeCumulative is DecomposeAll with every radius from 0 to maxRadius
// merged into each molecule's table.
func (d *Decomposer) DecomposeCumulative(ctx context.Context, molecules map[string]string, maxRadius int) *molecule.DecompositionResult {
	return d.decompose(ctx, molecules, maxRadius, true)
}

// Decompose runs the pipeline for a single structure and returns its error
// instead of recording it.  The item timeout applies as it does in a batch.
func (d *Decomposer) Decompose(ctx context.Context, source string, radius int, cumulative bool) (molecule.FragmentCountMap, error) {
	if d.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.itemTimeout)
		defer cancel()
	}
	return d.run(ctx, job{source: source, radius: radius, cumulative: cumulative})
}

func (d *Decomposer) decompose(ctx context.Context, molecules map[string]string, radius int, cumulative bool) *molecule.DecompositionResult {
	result := molecule.NewDecompositionResult(radius)

	ids := make([]string, 0, len(molecules))
	for id := range molecules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	jobs := make([]job, len(ids))
	for i, id := range ids {
		jobs[i] = job{id: id, source: molecules[id], radius: radius, cumulative: cumulative}
	}

	res, err := d.engine.Process(ctx, jobs, d.process)
	if err != nil {
		// Only a shut-down engine gets here; every molecule is unprocessed.
		for _, j := range jobs {
			d.fail(result, j.id, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "batch engine unavailable"), batch.ItemStatusCancelled)
		}
		return result
	}

	// Results are index-ordered, so FailedIDs come out sorted.
	for _, ir := range res.Results {
		id := jobs[ir.Index].id
		if ir.Status == batch.ItemStatusSuccess {
			result.Fragments[id] = ir.Result
			continue
		}
		d.fail(result, id, ir.Error, ir.Status)
	}

	stats := result.Stats()
	d.metrics.SetDistinctFragments(stats.DistinctFragments)
	d.logger.Info("batch decomposed",
		logging.Int("molecules", stats.Molecules),
		logging.Int("succeeded", stats.Succeeded),
		logging.Int("failed", stats.Failed),
		logging.Int("radius", radius),
		logging.Bool("cumulative", cumulative))
	return result
}

func (d *Decomposer) process(ctx context.Context, j job) (molecule.FragmentCountMap, error) {
	start := time.Now()
	counts, err := d.run(ctx, j)
	status, code := "success", ""
	if err != nil {
		status, code = "failed", string(failureCode(err, batch.ItemStatusFailed))
	}
	d.metrics.ObserveMolecule(status, code, time.Since(start))
	return counts, err
}

func (d *Decomposer) run(ctx context.Context, j job) (molecule.FragmentCountMap, error) {
	if d.cache == nil {
		return d.compute(ctx, j)
	}
	key := CacheKey{Source: j.source, Radius: j.radius, Variant: d.variant}
	if j.cumulative {
		key.Variant += "+cumulative"
	}
	return d.cache.GetOrCompute(ctx, key, func(ctx context.Context) (molecule.FragmentCountMap, error) {
		return d.compute(ctx, j)
	})
}

func (d *Decomposer) compute(ctx context.Context, j job) (molecule.FragmentCountMap, error) {
	g, err := d.source.Parse(j.source)
	if err != nil {
		return nil, classify(err, errors.ErrCodeStructureParseFailed, "structure could not be parsed")
	}
	if g == nil || g.NumAtoms() == 0 {
		return nil, errors.New(errors.ErrCodeEmptyMolecule, "molecule has no atoms")
	}
	g, err = d.source.RemoveExplicitHydrogens(g)
	if err != nil {
		return nil, classify(err, errors.ErrCodeNormalizationFailed, "explicit hydrogens could not be removed")
	}
	if j.cumulative {
		return d.counter.CountFragmentsUpToContext(ctx, g, j.radius)
	}
	return d.counter.CountFragmentsContext(ctx, g, j.radius)
}

func (d *Decomposer) fail(result *molecule.DecompositionResult, id string, err error, status batch.ItemStatus) {
	code := failureCode(err, status)
	reason := "unknown failure"
	if err != nil {
		reason = err.Error()
	}
	result.FailedIDs = append(result.FailedIDs, id)
	result.Failures = append(result.Failures, molecule.Failure{ID: id, Code: string(code), Reason: reason})
	d.logger.Warn("molecule decomposition failed",
		logging.String("molecule_id", id),
		logging.String("code", string(code)),
		logging.String("status", status.String()),
		logging.Err(err))
}

// failureCode maps a per-molecule error to the code recorded for it.
// Panics inside the graph capability count as canonicalization failures.
func failureCode(err error, status batch.ItemStatus) errors.ErrorCode {
	switch status {
	case batch.ItemStatusTimeout:
		return errors.ErrCodeTimeout
	case batch.ItemStatusCancelled:
		return errors.ErrCodeCancelled
	}
	var pe *batch.PanicError
	if errors.As(err, &pe) {
		return errors.ErrCodeCanonicalizationFailed
	}
	if code := errors.GetCode(err); code != errors.CodeUnknown && code != errors.CodeOK {
		return code
	}
	return errors.ErrCodeInternal
}

// classify keeps an error's code when it already has one and otherwise wraps
// it with fallback.
func classify(err error, fallback errors.ErrorCode, message string) error {
	if errors.GetCode(err) != errors.CodeUnknown {
		return err
	}
	return errors.Wrap(err, fallback, message)
}

// String renders a CacheKey for logs.
func (k CacheKey) String() string {
	return fmt.Sprintf("r%d/%s/%q", k.Radius, k.Variant, k.Source)
}

//Personal.AI order the ending
