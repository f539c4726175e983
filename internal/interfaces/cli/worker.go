package cli

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appMMP "github.com/turtacn/KeyIP-MMP/internal/application/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/KeyIP-MMP/internal/interfaces/http"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

func newWorkerCmd() *cobra.Command {
	var probePort int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume queued runs from Kafka",
		Long: "Worker joins the consumer group on " + kafka.TopicRunRequested + " and executes each\n" +
			"requested run.  Malformed requests go to the dead-letter topic without retry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return work(cmd.Context(), cliCtx, probePort)
		},
	}
	cmd.Flags().IntVar(&probePort, "probe-port", 0, "serve /healthz, /readyz and metrics on this port (0 disables)")
	return cmd
}

func work(ctx context.Context, cliCtx *CLIContext, probePort int) error {
	cfg, log := cliCtx.Config, cliCtx.Logger
	if !cfg.Kafka.Enabled {
		return errors.New(errors.ErrCodeServiceUnavailable, "worker requires kafka.enabled")
	}

	if cfg.Kafka.AutoCreateTopics {
		tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, log)
		if err != nil {
			return err
		}
		err = tm.EnsureDefaultTopics(ctx, cfg.Kafka.NumPartitions, cfg.Kafka.ReplicationFactor)
		_ = tm.Close()
		if err != nil {
			return err
		}
	}

	app, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	watchLogLevel(cliCtx)

	consumer, err := kafka.NewConsumer(cfg.Kafka.Consumer, log.Named("consumer"))
	if err != nil {
		return err
	}
	consumer.Subscribe(kafka.TopicRunRequested, appMMP.NewRunRequestHandler(app.Service, log.Named("worker")))

	g, gctx := errgroup.WithContext(ctx)
	if err := consumer.Start(gctx); err != nil {
		return err
	}
	g.Go(func() error {
		<-gctx.Done()
		return consumer.Close()
	})
	if probePort > 0 {
		srv := httpapi.NewServer(httpapi.ServerConfig{Port: probePort}, newRouter(app, nil), log)
		g.Go(func() error { return runServer(gctx, srv) })
	}

	log.Info("worker started", logging.String("group", cfg.Kafka.Consumer.GroupID))
	return g.Wait()
}

//Personal.AI order the ending
