package cli

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KeyIP-MMP/internal/config"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/KeyIP-MMP/internal/interfaces/http"
	"github.com/turtacn/KeyIP-MMP/internal/interfaces/http/handlers"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MMP HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cliCtx.Config.Server.Port = port
			}
			return serve(cmd.Context(), cliCtx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultServerPort, "listen port (overrides server.port)")
	return cmd
}

func serve(ctx context.Context, cliCtx *CLIContext) error {
	cfg, log := cliCtx.Config, cliCtx.Logger

	app, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	watchLogLevel(cliCtx)

	router := newRouter(app, handlers.NewRunHandler(app.Service, handlers.RunHandlerConfig{
		Defaults:    cfg.MMP,
		RunTimeout:  cfg.Server.RunTimeout,
		MaxBodySize: cfg.Server.MaxBodySize,
	}, log.Named("http")))

	srv := httpapi.NewServer(httpapi.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, log)
	return runServer(ctx, srv)
}

// newRouter builds the route tree for app.  runs may be nil to serve only
// probes and metrics.
func newRouter(app *App, runs *handlers.RunHandler) http.Handler {
	cfg := app.Config
	rc := httpapi.RouterConfig{
		Mode:          cfg.Server.Mode,
		RunHandler:    runs,
		HealthHandler: handlers.NewHealthHandler(Version, app.Checkers...),
		Logger:        app.Logger.Named("http"),
		Metrics:       app.Metrics,
	}
	if cfg.Metrics.Enabled {
		rc.MetricsCollector = app.Collector
		rc.MetricsPath = cfg.Metrics.Path
	}
	return httpapi.NewRouter(rc)
}

// runServer serves until ctx ends, then drains.
func runServer(ctx context.Context, srv *httpapi.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop(context.Background())
	})
	return g.Wait()
}

// watchLogLevel applies log.level changes of the config file while running.
func watchLogLevel(cliCtx *CLIContext) {
	if cliCtx.ConfigPath == "" {
		return
	}
	log := cliCtx.Logger
	config.Watch(cliCtx.ConfigPath, func(c *config.Config) {
		cliCtx.Level.SetLevel(logging.ParseLevel(c.Log.Level))
		log.Info("config reloaded", logging.String("log_level", c.Log.Level))
	}, func(err error) {
		log.Warn("ignoring invalid config change", logging.Err(err))
	})
}

//Personal.AI order the ending
