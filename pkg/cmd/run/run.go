package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	natsgo "github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/api"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/archive"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/config"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/db/postgres"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/outbox"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/processing"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/processing/feed"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/recorder"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/source"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/transport/nats"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/utils"
)

type runConfig struct {
	follow    bool
	exitOnEnd bool
	detector  config.DetectorConfig
}

//nolint:funlen // by design
func NewRunCmd() *cobra.Command {
	rc := runConfig{detector: config.DefaultDetectorConfig()}
	cmd := &cobra.Command{
		Use:   "run [recording]",
		Short: "runs the incident detection on a recording or on live data from NATS",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.ApplyDetectorFlags(&rc.detector)
			file := ""
			if len(args) > 0 {
				file = args[0]
			}
			return startRun(file, &rc)
		},
	}
	cmdutil.AddLogFlags(cmd)
	cmd.Flags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"debug",
		"controls the log level for sql methods")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().BoolVar(&config.TelemetryStdout,
		"telemetry-stdout",
		false,
		"writes telemetry data to stdout instead of the telemetry endpoint")
	cmd.Flags().StringVarP(&config.HTTPAddr,
		"http-addr",
		"a",
		"localhost:8080",
		"listen address for the event stream and incident API (empty disables)")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"NATS server url. Snapshots are received from NATS if no recording is given")
	cmd.Flags().StringVar(&config.NatsPrefix,
		"nats-prefix",
		"isw",
		"subject prefix used on NATS")
	cmd.Flags().BoolVar(&config.NatsForward,
		"nats-forward",
		false,
		"publish outbox messages on NATS")
	cmd.Flags().StringVar(&config.RecordFile,
		"record",
		"",
		"append the received snapshots to this file")
	cmd.Flags().BoolVar(&config.SendTelemetryJSON,
		"send-telemetry-json",
		false,
		"send every projected snapshot on the telemetry-json channel")
	cmd.Flags().BoolVar(&config.EnableArchive,
		"enable-archive",
		false,
		"store outbox messages in the database")
	cmd.Flags().BoolVarP(&rc.follow,
		"follow",
		"f",
		false,
		"keep reading lines appended to the recording")
	cmd.Flags().BoolVar(&rc.exitOnEnd,
		"exit-on-end",
		false,
		"exit when the recording ends instead of serving until interrupted")
	config.AddDetectorFlags(cmd.Flags(), &rc.detector)
	return cmd
}

type resources struct {
	telemetry *config.Telemetry
	pool      *pgxpool.Pool
	nc        *natsgo.Conn
	rec       *recorder.Recorder
	closers   []func() error
}

func (r *resources) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			log.Warn("close failed", log.ErrorField(err))
		}
	}
	if r.pool != nil {
		r.pool.Close()
	}
	if r.nc != nil {
		r.nc.Close()
	}
	if r.telemetry != nil {
		r.telemetry.Shutdown()
	}
}

//nolint:funlen,cyclop,gocognit // by design
func startRun(file string, rc *runConfig) error {
	logger := cmdutil.SetupLogger()
	if file == "" && config.NatsURL == "" {
		return errors.New("either a recording or --nats-url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res := &resources{}
	defer res.close()

	pgTraceOption := postgres.WithTracer(cmdutil.NewLogger(config.SQLLogLevel).Named("sql"),
		log.DebugLevel)
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if res.telemetry, err = config.SetupTelemetry(ctx); err == nil {
			pgTraceOption = postgres.WithOtlpTracer()
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	var waitFor []string
	if config.EnableArchive {
		waitFor = append(waitFor, cmdutil.DBAddr())
	}
	if config.NatsURL != "" {
		waitFor = append(waitFor, utils.ExtractFromNatsURL(config.NatsURL))
	}
	if err := cmdutil.WaitForServices(ctx, waitFor...); err != nil {
		return err
	}

	src, sourceName, err := openSource(ctx, file, rc.follow, res)
	if err != nil {
		return err
	}

	feedOpts := []feed.Option{feed.WithLogger(logger.Named("feed"))}
	if config.RecordFile != "" {
		if res.rec, err = recorder.Create(config.RecordFile); err != nil {
			return err
		}
		res.closers = append(res.closers, res.rec.Close)
		feedOpts = append(feedOpts, feed.WithProjectedHandler(res.rec.Record))
	}

	watchers, err := processing.NewWatcherSet(rc.detector, logger.Named("watcher"))
	if err != nil {
		return err
	}
	ob := outbox.New(outbox.WithName("main"), outbox.WithLogger(logger.Named("outbox")))
	proc := processing.NewProcessor(
		processing.WithFeed(feed.New(feedOpts...)),
		processing.WithWatchers(watchers),
		processing.WithOutbox(ob),
		processing.WithTelemetryJSON(config.SendTelemetryJSON),
		processing.WithLogger(logger.Named("processing")),
	)
	log.Info("Starting run",
		log.String("runId", proc.RunID().String()),
		log.String("source", sourceName),
		log.Strings("watchers", watchers.Names()))

	var arch *archive.Archive
	if config.EnableArchive {
		if res.pool, err = postgres.InitWithURL(ctx, config.DB, pgTraceOption); err != nil {
			return err
		}
		arch = archive.New(res.pool, proc.RunID(),
			archive.WithSource(sourceName),
			archive.WithLogger(logger.Named("archive")))
		arch.Attach(ob)
	}

	g, gCtx := errgroup.WithContext(ctx)
	serveCtx, cancelServe := context.WithCancel(gCtx)
	defer cancelServe()

	if res.nc != nil {
		transport, terr := nats.New(gCtx, res.nc,
			nats.WithPrefix(config.NatsPrefix),
			nats.WithLogger(logger.Named("nats")))
		if terr != nil {
			return terr
		}
		if _, terr = transport.SubscribeCommands(gCtx, proc.Submit); terr != nil {
			return terr
		}
		if live, ok := src.(*source.LiveSource); ok {
			if _, terr = transport.SubscribeSnapshots(live); terr != nil {
				return terr
			}
		}
		if config.NatsForward {
			g.Go(func() error {
				return transport.Forward(serveCtx, ob, true)
			})
		}
	}

	if arch != nil {
		g.Go(func() error {
			return arch.Run(gCtx)
		})
	}

	if config.HTTPAddr != "" {
		server := api.New(proc.Store(), ob, proc, api.WithLogger(logger.Named("api")))
		g.Go(func() error {
			return server.ListenAndServe(serveCtx, config.HTTPAddr)
		})
	}

	g.Go(func() error {
		err := proc.Run(gCtx, src)
		if arch != nil {
			arch.Close()
		}
		log.Info("Processing finished",
			log.Int("incidents", len(proc.Store().Incidents())),
			log.Int("messages", len(ob.Log())))
		if err != nil || rc.exitOnEnd || config.HTTPAddr == "" {
			cancelServe()
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("run failed", log.ErrorField(err))
		return err
	}
	log.Info("Run terminated")
	return nil
}

//nolint:whitespace // editor/linter issue
func openSource(
	ctx context.Context, file string, follow bool, res *resources,
) (src source.Source, name string, err error) {
	if config.NatsURL != "" {
		res.nc, err = natsgo.Connect(config.NatsURL,
			natsgo.Name("isw"),
			natsgo.MaxReconnects(-1))
		if err != nil {
			return nil, "", fmt.Errorf("connect to nats: %w", err)
		}
	}
	if file != "" {
		fileSrc, ferr := source.OpenFile(file,
			source.WithFollow(follow),
			source.WithFileLogger(log.Default().Named("source")))
		if ferr != nil {
			return nil, "", ferr
		}
		res.closers = append(res.closers, fileSrc.Close)
		return fileSrc, file, nil
	}
	live := source.NewLiveSource()
	go func() {
		<-ctx.Done()
		live.Close()
	}()
	return live, config.NatsURL, nil
}
