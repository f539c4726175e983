package cli

import (
	"context"

	appMMP "github.com/turtacn/KeyIP-MMP/internal/application/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/config"
	domainMMP "github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/chem"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/tableio"
	"github.com/turtacn/KeyIP-MMP/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

// App is the wired object graph shared by the commands.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.MMPMetrics
	Service   appMMP.Service
	// Producer is nil unless kafka is enabled.
	Producer *kafka.Producer
	// Checkers probe every connected dependency.
	Checkers []handlers.HealthChecker

	closers []func()
}

// buildApp is replaced in tests.
var buildApp = NewApp

// NewApp connects the remote toolkit and every enabled store.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	return newApp(ctx, cfg, log, nil)
}

// NewAppWithToolkit wires tk in place of the remote toolkit client.
func NewAppWithToolkit(ctx context.Context, cfg *config.Config, log logging.Logger, tk domainMMP.Toolkit) (*App, error) {
	return newApp(ctx, cfg, log, tk)
}

func newApp(ctx context.Context, cfg *config.Config, log logging.Logger, tk domainMMP.Toolkit) (app *App, err error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	app = &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	metricsCfg := cfg.Metrics.CollectorConfig
	if metricsCfg.Namespace == "" {
		metricsCfg.Namespace = config.DefaultMetricsNamespace
	}
	if app.Collector, err = prometheus.NewMetricsCollector(metricsCfg, log); err != nil {
		return nil, err
	}
	app.Metrics = prometheus.NewMMPMetrics(app.Collector)

	if tk == nil {
		client, cerr := chem.NewClient(cfg.Toolkit.URL,
			chem.WithTimeout(cfg.Toolkit.Timeout),
			chem.WithRetryMax(cfg.Toolkit.RetryMax),
			chem.WithRetryWait(cfg.Toolkit.RetryWaitMin, cfg.Toolkit.RetryWaitMax),
			chem.WithUserAgent(cfg.Toolkit.UserAgent),
			chem.WithLogger(log.Named("toolkit")),
			chem.WithObserver(app.Metrics.RecordToolkitRequest),
		)
		if cerr != nil {
			return nil, cerr
		}
		app.check("toolkit", client.Ping)
		tk = client
	}

	if cfg.Redis.Enabled {
		rc, rerr := redis.NewClient(&cfg.Redis.RedisConfig, log)
		if rerr != nil {
			return nil, rerr
		}
		app.closers = append(app.closers, func() { _ = rc.Close() })
		app.check("redis", rc.Ping)
		cache := redis.NewRedisCache(rc, log, redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithDefaultTTL(cfg.Redis.TTL))
		tk = chem.NewCachedToolkit(tk, cache,
			chem.WithCacheTTL(cfg.Redis.TTL),
			chem.WithCacheObserver(app.Metrics.RecordToolkitCache))
	}

	engine, err := domainMMP.NewEngine(tk,
		domainMMP.WithLogger(log.Named("engine")),
		domainMMP.WithCacheSize(cfg.Engine.CacheSize))
	if err != nil {
		return nil, err
	}

	var store minio.TableStore
	if cfg.MinIO.Enabled {
		mc, merr := minio.NewMinIOClient(&cfg.MinIO.MinIOConfig, log)
		if merr != nil {
			return nil, merr
		}
		app.closers = append(app.closers, func() { _ = mc.Close() })
		app.check("minio", func(ctx context.Context) error {
			st, herr := mc.HealthCheck(ctx)
			if herr != nil {
				return herr
			}
			if !st.Healthy {
				return errors.New(errors.ErrCodeStorageError, st.Error)
			}
			return nil
		})
		store = minio.NewTableStore(mc, log)
	}

	deps := appMMP.Deps{
		Engine:   engine,
		Tables:   appMMP.NewTableRepository(store, tableio.FormatCSV, log),
		Defaults: cfg.MMP,
		Metrics:  app.Metrics,
		Logger:   log.Named("mmp"),
	}

	if pg := cfg.Database.Postgres; pg.Enabled {
		conn, perr := postgres.NewConnection(ctx, pg, log)
		if perr != nil {
			return nil, perr
		}
		app.closers = append(app.closers, conn.Close)
		app.check("postgres", conn.HealthCheck)
		deps.Runs = pgrepo.NewPostgresRunRepo(conn, log)
		deps.Pairs = pgrepo.NewPostgresPairRepo(conn, log)
	}

	if cfg.Neo4j.Enabled {
		drv, nerr := neo4j.NewDriver(cfg.Neo4j, log)
		if nerr != nil {
			return nil, nerr
		}
		app.closers = append(app.closers, func() { _ = drv.Close() })
		app.check("neo4j", drv.HealthCheck)
		repo := neo4jrepo.NewNeo4jNetworkRepo(drv, cfg.Neo4j.BatchSize, log)
		if ierr := repo.EnsureIndexes(ctx); ierr != nil {
			log.Warn("failed to ensure neo4j indexes", logging.Err(ierr))
		}
		deps.Network = repo
	}

	if cfg.Kafka.Enabled {
		p, kerr := kafka.NewProducer(cfg.Kafka.Producer, log)
		if kerr != nil {
			return nil, kerr
		}
		app.closers = append(app.closers, func() { _ = p.Close() })
		app.Producer = p
		deps.Events = p
	}

	if app.Service, err = appMMP.NewService(deps); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) check(name string, probe func(ctx context.Context) error) {
	a.Checkers = append(a.Checkers, handlers.CheckerFunc{Component: name, Probe: probe})
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

//Personal.AI order the ending
