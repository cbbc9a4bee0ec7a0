// Package app assembles the runtime shared by the API server, the worker and
// the CLI: logger, metrics, the optional Redis fragment cache, the optional
// MinIO result store and the fragment service on top of them.
package app

import (
	"github.com/turtacn/autofragment/internal/application/fragment"
	"github.com/turtacn/autofragment/internal/chem/smiles"
	"github.com/turtacn/autofragment/internal/config"
	domain "github.com/turtacn/autofragment/internal/domain/fragment"
	"github.com/turtacn/autofragment/internal/infrastructure/database/redis"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/autofragment/internal/infrastructure/storage/minio"
	"github.com/turtacn/autofragment/pkg/errors"
)

// Infrastructure holds the assembled components.  Optional backends are nil
// when disabled.
type Infrastructure struct {
	Config     *config.Config
	Logger     logging.Logger
	Collector  prometheus.MetricsCollector
	Metrics    *prometheus.AppMetrics
	Redis      *redis.Client
	Cache      *redis.FragmentCache
	MinIO      *minio.MinIOClient
	Results    *minio.ResultStore
	Toolkit    *smiles.Toolkit
	Decomposer *domain.Decomposer
	Service    fragment.Service
}

type buildOptions struct {
	upload       bool
	skipCache    bool
	maxMolecules int
	collector    prometheus.MetricsCollector
}

// Option tunes New.
type Option func(*buildOptions)

// WithUpload stores every decomposed batch in the MinIO result store, which
// must then be enabled.
func WithUpload(enabled bool) Option {
	return func(o *buildOptions) { o.upload = enabled }
}

// WithoutCache skips the Redis fragment cache even when it is configured.
func WithoutCache() Option {
	return func(o *buildOptions) { o.skipCache = true }
}

// WithMaxMolecules caps the batch size the service accepts.
func WithMaxMolecules(n int) Option {
	return func(o *buildOptions) { o.maxMolecules = n }
}

// WithCollector reuses an existing metrics collector.
func WithCollector(c prometheus.MetricsCollector) Option {
	return func(o *buildOptions) { o.collector = c }
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg *config.Config) (logging.Logger, error) {
	return logging.NewLogger(cfg.Log.Logging())
}

// New assembles the infrastructure described by cfg.  On error, everything
// already opened is closed again.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) (_ *Infrastructure, err error) {
	if cfg == nil {
		return nil, errors.InvalidParam("config is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	infra := &Infrastructure{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			infra.Close()
		}
	}()

	if err = infra.initMetrics(o); err != nil {
		return nil, err
	}
	if cfg.Redis.Enabled && !o.skipCache {
		if err = infra.initRedis(); err != nil {
			return nil, err
		}
	}
	if cfg.MinIO.Enabled {
		if err = infra.initMinIO(); err != nil {
			return nil, err
		}
	}
	if o.upload && infra.Results == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "result upload requires minio to be enabled")
	}

	infra.initService(o)
	logger.Info("infrastructure ready",
		logging.Bool("metrics", infra.Metrics != nil),
		logging.Bool("cache", infra.Cache != nil),
		logging.Bool("result_store", infra.Results != nil),
		logging.Bool("upload", o.upload))
	return infra, nil
}

func (i *Infrastructure) initMetrics(o buildOptions) error {
	if !i.Config.Metrics.Enabled {
		return nil
	}
	collector := o.collector
	if collector == nil {
		var err error
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            i.Config.Metrics.Namespace,
			Subsystem:            i.Config.Metrics.Subsystem,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, i.Logger)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create metrics collector")
		}
	}
	i.Collector = collector
	i.Metrics = prometheus.NewAppMetrics(collector)
	return nil
}

func (i *Infrastructure) initRedis() error {
	rc := i.Config.Redis.RedisConfig
	client, err := redis.NewClient(&rc, i.Logger.Named("redis"))
	if err != nil {
		return err
	}
	i.Redis = client

	cacheOpts := []redis.CacheOption{
		redis.WithPrefix(i.Config.Redis.KeyPrefix),
		redis.WithTTL(i.Config.Redis.TTL),
	}
	if i.Metrics != nil {
		cacheOpts = append(cacheOpts, redis.WithCacheMetrics(i.Metrics))
	}
	i.Cache = redis.NewFragmentCache(client, i.Logger.Named("cache"), cacheOpts...)
	return nil
}

func (i *Infrastructure) initMinIO() error {
	mc := i.Config.MinIO.MinIOConfig
	client, err := minio.NewMinIOClient(&mc, i.Logger.Named("minio"))
	if err != nil {
		return err
	}
	i.MinIO = client

	var storeOpts []minio.StoreOption
	if i.Metrics != nil {
		storeOpts = append(storeOpts, minio.WithStoreMetrics(i.Metrics))
	}
	store, err := minio.NewResultStore(client, i.Logger.Named("results"), storeOpts...)
	if err != nil {
		return err
	}
	i.Results = store
	return nil
}

func (i *Infrastructure) initService(o buildOptions) {
	fc := i.Config.Fragment
	i.Toolkit = smiles.NewToolkit(
		smiles.WithEnforceSize(fc.EnforceSize),
		smiles.WithMaxLeaves(fc.MaxLeaves),
	)

	decOpts := []domain.DecomposerOption{
		domain.WithLogger(i.Logger.Named("decomposer")),
		domain.WithConcurrency(i.Config.Batch.Concurrency),
		domain.WithItemTimeout(i.Config.Batch.ItemTimeout),
		domain.WithCounterOptions(domain.WithMaxAtoms(fc.MaxAtoms)),
	}
	if i.Metrics != nil {
		decOpts = append(decOpts, domain.WithMetrics(i.Metrics))
	}
	if i.Cache != nil {
		decOpts = append(decOpts, domain.WithCache(i.Cache, i.Toolkit.Variant()))
	}
	i.Decomposer = domain.NewDecomposer(i.Toolkit, decOpts...)

	svcOpts := []fragment.Option{
		fragment.WithDefaultRadius(fc.Radius),
		fragment.WithMaxMolecules(o.maxMolecules),
	}
	if o.upload {
		svcOpts = append(svcOpts, fragment.WithResultSink(i.Results))
	}
	i.Service = fragment.NewService(i.Decomposer, i.Logger.Named("service"), svcOpts...)
}

// Close releases the backends.  It is safe to call more than once.
func (i *Infrastructure) Close() {
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.Logger.Warn("failed to close redis client", logging.Err(err))
		}
	}
	if i.MinIO != nil {
		if err := i.MinIO.Close(); err != nil {
			i.Logger.Warn("failed to close minio client", logging.Err(err))
		}
	}
}

//Personal.AI order the ending
