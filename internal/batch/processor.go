// Package batch provides a generic bounded-concurrency batch engine.  Items
// are processed by a caller-supplied function under a semaphore, each with an
// optional timeout, and the outcomes are returned in input order.  A panic in
// the process function is contained and reported as that item's failure.
package batch

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/autofragment/pkg/errors"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

// ErrShutdown is returned by Process after Shutdown has been called.
var ErrShutdown = stdliberrors.New("batch processor is shutting down")

// PanicError carries a value recovered from a panicking process function.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic during item processing: %v", e.Value)
}

// ---------------------------------------------------------------------------
// ItemStatus
// ---------------------------------------------------------------------------

// ItemStatus is the outcome of a single item.
type ItemStatus int

const (
	ItemStatusSuccess   ItemStatus = iota // completed without error
	ItemStatusFailed                      // returned an error or panicked
	ItemStatusTimeout                     // exceeded its deadline
	ItemStatusCancelled                   // caller context was cancelled
)

// String returns the upper-case name of the status.
func (s ItemStatus) String() string {
	switch s {
	case ItemStatusSuccess:
		return "SUCCESS"
	case ItemStatusFailed:
		return "FAILED"
	case ItemStatusTimeout:
		return "TIMEOUT"
	case ItemStatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// ---------------------------------------------------------------------------
// Generic types
// ---------------------------------------------------------------------------

// ProcessFunc processes a single item.
type ProcessFunc[T, R any] func(ctx context.Context, item T) (R, error)

// ItemResult is the outcome of one item.
type ItemResult[R any] struct {
	Index    int
	Result   R
	Error    error
	Duration time.Duration
	Status   ItemStatus
}

// Result aggregates the outcomes of a batch.  Results is ordered by Index.
type Result[R any] struct {
	Results       []*ItemResult[R]
	TotalCount    int
	SuccessCount  int
	FailureCount  int
	TotalDuration time.Duration
}

// Observer receives one call per finished batch.
type Observer interface {
	ObserveBatch(total, succeeded, failed int, elapsed time.Duration)
}

// Processor runs ProcessFuncs over slices of items.
type Processor[T, R any] interface {
	// Process runs fn over every item.  It returns an error only when the
	// processor has been shut down or fn is nil; item failures are reported
	// through the Result.
	Process(ctx context.Context, items []T, fn ProcessFunc[T, R]) (*Result[R], error)

	// Shutdown stops accepting batches and waits for in-flight ones.
	Shutdown(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type config struct {
	concurrency  int
	itemTimeout  time.Duration
	batchTimeout time.Duration
	observer     Observer
	logger       logging.Logger
}

func defaultConfig() *config {
	return &config{
		concurrency: runtime.NumCPU(),
		itemTimeout: 30 * time.Second,
	}
}

// Option configures a Processor.
type Option func(*config)

// WithConcurrency sets the maximum number of items processed at once.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithItemTimeout sets the per-item deadline.  Zero disables it.
func WithItemTimeout(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.itemTimeout = d
		}
	}
}

// WithBatchTimeout bounds a whole Process call.  Zero disables it.
func WithBatchTimeout(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.batchTimeout = d
		}
	}
}

// WithObserver installs a batch observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithLogger installs a logger.
func WithLogger(l logging.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// ---------------------------------------------------------------------------
// processor
// ---------------------------------------------------------------------------

type processor[T, R any] struct {
	cfg *config

	shutdownOnce sync.Once
	isShutdown   atomic.Bool
	active       sync.WaitGroup
}

// NewProcessor creates a Processor.
func NewProcessor[T, R any](opts ...Option) Processor[T, R] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNopLogger()
	}
	return &processor[T, R]{cfg: cfg}
}

func (p *processor[T, R]) Process(ctx context.Context, items []T, fn ProcessFunc[T, R]) (*Result[R], error) {
	if fn == nil {
		return nil, errors.InvalidParam("process function must not be nil")
	}
	if p.isShutdown.Load() {
		return nil, ErrShutdown
	}
	n := len(items)
	if n == 0 {
		return &Result[R]{Results: []*ItemResult[R]{}}, nil
	}

	p.active.Add(1)
	defer p.active.Done()

	start := time.Now()
	batchCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.cfg.batchTimeout > 0 {
		batchCtx, cancel = context.WithTimeout(ctx, p.cfg.batchTimeout)
	}
	defer cancel()

	resultCh := make(chan *ItemResult[R], n)
	sem := make(chan struct{}, p.cfg.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int, item T) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-batchCtx.Done():
				resultCh <- &ItemResult[R]{Index: idx, Error: batchCtx.Err(), Status: classifyCtxError(batchCtx.Err())}
				return
			}
			release := func() { <-sem }
			// A slot may be won in the same instant the context ends.
			if err := batchCtx.Err(); err != nil {
				release()
				resultCh <- &ItemResult[R]{Index: idx, Error: err, Status: classifyCtxError(err)}
				return
			}
			resultCh <- p.processOne(batchCtx, idx, item, fn, release)
		}(i, items[i])
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]*ItemResult[R], 0, n)
	for ir := range resultCh {
		results = append(results, ir)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	res := &Result[R]{Results: results, TotalCount: n, TotalDuration: time.Since(start)}
	for _, r := range results {
		if r.Status == ItemStatusSuccess {
			res.SuccessCount++
		} else {
			res.FailureCount++
		}
	}
	if p.cfg.observer != nil {
		p.cfg.observer.ObserveBatch(res.TotalCount, res.SuccessCount, res.FailureCount, res.TotalDuration)
	}
	p.cfg.logger.Debug("batch processed",
		logging.Int("total", res.TotalCount),
		logging.Int("succeeded", res.SuccessCount),
		logging.Int("failed", res.FailureCount),
		logging.Duration("elapsed", res.TotalDuration))
	return res, nil
}

func (p *processor[T, R]) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() { p.isShutdown.Store(true) })

	done := make(chan struct{})
	go func() {
		p.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

type outcome[R any] struct {
	result R
	err    error
}

// processOne runs fn on its own goroutine so that a function which ignores
// its context still cannot hold the item past the deadline.  release frees
// the item's slot and runs only once fn has returned, so an abandoned call
// still counts against the concurrency limit.
func (p *processor[T, R]) processOne(batchCtx context.Context, idx int, item T, fn ProcessFunc[T, R], release func()) *ItemResult[R] {
	start := time.Now()
	itemCtx, cancel := batchCtx, context.CancelFunc(func() {})
	if p.cfg.itemTimeout > 0 {
		itemCtx, cancel = context.WithTimeout(batchCtx, p.cfg.itemTimeout)
	}
	defer cancel()

	done := make(chan outcome[R], 1)
	go func() {
		var out outcome[R]
		defer release()
		defer func() {
			if v := recover(); v != nil {
				out.err = &PanicError{Value: v, Stack: string(debug.Stack())}
				p.cfg.logger.Error("recovered panic in batch item",
					logging.Int("index", idx), logging.Any("panic", v))
			}
			done <- out
		}()
		out.result, out.err = fn(itemCtx, item)
	}()

	var out outcome[R]
	select {
	case out = <-done:
	case <-itemCtx.Done():
		return &ItemResult[R]{Index: idx, Error: itemCtx.Err(), Status: classifyCtxError(itemCtx.Err()), Duration: time.Since(start)}
	}

	ir := &ItemResult[R]{Index: idx, Result: out.result, Error: out.err, Duration: time.Since(start)}
	ir.Status = classifyError(itemCtx, out.err)
	return ir
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func classifyCtxError(err error) ItemStatus {
	switch {
	case err == nil:
		return ItemStatusSuccess
	case stdliberrors.Is(err, context.DeadlineExceeded):
		return ItemStatusTimeout
	default:
		return ItemStatusCancelled
	}
}

func classifyError(ctx context.Context, err error) ItemStatus {
	if err == nil {
		return ItemStatusSuccess
	}
	if stdliberrors.Is(err, context.DeadlineExceeded) {
		return ItemStatusTimeout
	}
	if stdliberrors.Is(err, context.Canceled) {
		return ItemStatusCancelled
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return classifyCtxError(ctxErr)
	}
	return ItemStatusFailed
}

//Personal.AI order the ending
