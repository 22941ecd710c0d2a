package listen

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/archive"
	"github.com/mpapenbr/f1-race-engineer/pkg/config"
	"github.com/mpapenbr/f1-race-engineer/pkg/db/postgres"
	"github.com/mpapenbr/f1-race-engineer/pkg/network"
	"github.com/mpapenbr/f1-race-engineer/pkg/processing"
	"github.com/mpapenbr/f1-race-engineer/pkg/processing/state"
	"github.com/mpapenbr/f1-race-engineer/pkg/processing/trigger"
	"github.com/mpapenbr/f1-race-engineer/pkg/profile"
	"github.com/mpapenbr/f1-race-engineer/pkg/publish/natspub"
	"github.com/mpapenbr/f1-race-engineer/pkg/session"
	"github.com/mpapenbr/f1-race-engineer/pkg/utils"
)

const (
	defaultWait     = 15 * time.Second
	defaultCacheTTL = 5 * time.Minute
	kvTTL           = time.Hour
)

//nolint:funlen // flag definitions
func NewListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "receives F1 25 telemetry and emits engineer events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startListener(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.ListenAddr,
		"addr",
		"a",
		network.DefaultAddr,
		"udp address the game sends telemetry to")
	cmd.Flags().IntVar(&config.ReadBuffer,
		"read-buffer",
		network.DefaultRcvBuf,
		"socket receive buffer in bytes")
	cmd.Flags().IntVar(&config.QueueSize,
		"queue-size",
		session.DefaultQueueSize,
		"datagrams buffered before the oldest ones are dropped")
	cmd.Flags().StringVar(&config.SilenceTimeout,
		"silence-timeout",
		session.DefaultSilence.String(),
		"an active session without datagrams for this duration is stalled")
	cmd.Flags().StringSliceVar(&config.Drivers,
		"driver",
		[]string{"player=player"},
		"driver bindings as id=player, id=secondary or id=car:<index>")
	cmd.Flags().StringVar(&config.ProfileFile,
		"profile-file",
		"",
		"yaml file holding driver profiles, reloaded on change")
	cmd.Flags().StringVar(&config.ProfileCacheTTL,
		"profile-cache-ttl",
		defaultCacheTTL.String(),
		"duration a loaded profile is kept")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"nats server to publish events to")
	cmd.Flags().StringVar(&config.NatsPrefix,
		"nats-prefix",
		natspub.DefaultPrefix,
		"first token of published subjects")
	cmd.Flags().StringVar(&config.NatsKVBucket,
		"nats-kv-bucket",
		"",
		"jetstream key value bucket for the latest status and summaries")
	cmd.Flags().BoolVar(&config.ArchiveEvents,
		"archive-events",
		true,
		"store emitted events in the database")
	cmd.Flags().IntVar(&config.GapSamples,
		"gap-samples",
		0,
		"samples a gap trend must hold (0 keeps the default)")
	cmd.Flags().Float64Var(&config.GapMinDelta,
		"gap-min-delta",
		0,
		"minimum gap change per sample in seconds (0 keeps the default)")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"",
		"otlp grpc endpoint, empty writes telemetry to stderr")
	return cmd
}

func parseDuration(name, value string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warn("Invalid duration value. Using default",
			log.String("flag", name),
			log.String("value", value),
			log.Duration("default", defaultVal))
		return defaultVal
	}
	return d
}

func waitForRequiredServices(ctx context.Context) error {
	timeout := parseDuration("wait-for-services", config.WaitForServices, defaultWait)
	if config.DB != "" {
		if err := utils.WaitForTCP(ctx, utils.ExtractFromDBURL(config.DB), timeout); err != nil {
			return err
		}
		log.Info("Database is ready")
	}
	if config.NatsURL != "" {
		if err := utils.WaitForTCP(ctx, utils.ExtractFromNatsURL(config.NatsURL), timeout); err != nil {
			return err
		}
		log.Info("NATS is ready")
	}
	return nil
}

func sqlLogLevel() log.Level {
	level, err := log.ParseLevel(config.SQLLogLevel)
	if err != nil {
		return log.DebugLevel
	}
	return level
}

//nolint:funlen,cyclop // wiring
func startListener(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bindings, err := state.ParseBindings(config.Drivers)
	if err != nil {
		return err
	}
	if err = waitForRequiredServices(ctx); err != nil {
		return err
	}

	var telemetry *config.Telemetry
	pgTraceOption := postgres.WithTracer(log.Default().Named("sql"), sqlLogLevel())
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		if telemetry, err = config.SetupTelemetry(context.Background()); err == nil {
			pgTraceOption = postgres.WithOtlpTracer()
			defer telemetry.Shutdown()
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	var pool *pgxpool.Pool
	if config.DB != "" {
		if pool, err = postgres.InitWithURL(ctx, config.DB, pgTraceOption); err != nil {
			return err
		}
		defer pool.Close()
	}

	provider, watch, err := setupProfiles(ctx, pool)
	if err != nil {
		return err
	}

	proc, err := setupProcessor(bindings)
	if err != nil {
		return err
	}
	ctrl, err := session.New(
		session.WithLogger(log.Default().Named("session")),
		session.WithListenerOptions(
			network.WithAddr(config.ListenAddr),
			network.WithReadBuffer(config.ReadBuffer)),
		session.WithProcessor(proc),
		session.WithProfiles(provider),
		session.WithQueueSize(config.QueueSize),
		session.WithSilence(parseDuration(
			"silence-timeout", config.SilenceTimeout, session.DefaultSilence)),
	)
	if err != nil {
		return err
	}

	pub, err := setupPublisher()
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Drain()
	}

	// consumers subscribe before the controller emits its first status change
	// and end when the controller closes its outputs
	consumerCtx := context.WithoutCancel(ctx)
	var consumers []func() error
	if pub != nil {
		sub, subErr := pub.Subscribe(ctrl)
		if subErr != nil {
			ctrl.Close()
			return subErr
		}
		consumers = append(consumers, func() error { return pub.Consume(consumerCtx, sub) })
	}
	if pool != nil {
		arch := archive.NewArchiver(archive.NewPostgresStore(pool),
			archive.WithLogger(log.Default().Named("archive")),
			archive.WithEvents(config.ArchiveEvents))
		sub := arch.Subscribe(ctrl)
		consumers = append(consumers, func() error {
			err := arch.Consume(consumerCtx, sub)
			s := arch.Stats()
			log.Info("Archive finished",
				log.Int64("written", s.Written),
				log.Int64("failed", s.Failed),
				log.Int64("rejected", s.Rejected))
			return err
		})
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		g.Go(c)
	}
	if watch != nil {
		g.Go(func() error { return watch(gCtx) })
	}
	g.Go(func() error {
		defer ctrl.Close()
		return ctrl.Run(gCtx)
	})

	log.Info("Listening for telemetry", log.String("addr", config.ListenAddr))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("listener stopped", log.ErrorField(err))
		return err
	}
	log.Info("Listener terminated")
	return nil
}

type publisher struct {
	*natspub.Publisher
	conn *nats.Conn
}

func (p *publisher) Drain() {
	if err := p.conn.Drain(); err != nil {
		log.Warn("nats drain", log.ErrorField(err))
	}
}

// setupPublisher returns nil if no nats url is configured
func setupPublisher() (*publisher, error) {
	if config.NatsURL == "" {
		return nil, nil //nolint:nilnil // publishing is optional
	}
	conn, err := nats.Connect(config.NatsURL, nats.Name("f1-race-engineer"))
	if err != nil {
		return nil, err
	}
	opts := []natspub.Option{
		natspub.WithLogger(log.Default().Named("nats")),
		natspub.WithPrefix(config.NatsPrefix),
	}
	if config.NatsKVBucket != "" {
		opts = append(opts, natspub.WithKeyValue(config.NatsKVBucket, kvTTL))
	}
	pub, err := natspub.NewPublisher(conn, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &publisher{Publisher: pub, conn: conn}, nil
}

func setupProcessor(bindings []state.Binding) (*processing.Processor, error) {
	l := log.Default().Named("processor")
	engine, err := trigger.New(trigger.WithLogger(l.Named("trigger")))
	if err != nil {
		return nil, err
	}
	opts := []processing.ProcessorOption{
		processing.WithLogger(l),
		processing.WithAggregator(state.New(
			state.WithBindings(bindings),
			state.WithLogger(l.Named("state")))),
		processing.WithEngine(engine),
	}
	if config.GapSamples > 0 || config.GapMinDelta > 0 {
		opts = append(opts, processing.WithThresholdOptions(
			trigger.WithGapTrend(config.GapSamples, float32(config.GapMinDelta))))
	}
	return processing.NewProcessor(opts...)
}

// setupProfiles prefers the profile file over the database.
// The returned watch func is nil unless a file is used.
func setupProfiles(ctx context.Context, pool *pgxpool.Pool) (
	p profile.Provider,
	watch func(context.Context) error,
	err error,
) {
	ttl := parseDuration("profile-cache-ttl", config.ProfileCacheTTL, defaultCacheTTL)
	switch {
	case config.ProfileFile != "":
		var cached *profile.Cached
		fp, err := profile.NewFileProvider(config.ProfileFile,
			profile.WithLogger(log.Default().Named("profile")),
			profile.WithOnChange(func() {
				if cached != nil {
					cached.Invalidate(ctx)
				}
			}))
		if err != nil {
			return nil, nil, err
		}
		cached = profile.NewCached(fp, ttl)
		return cached, fp.Watch, nil
	case pool != nil:
		return profile.NewCached(profile.NewDBProvider(pool), ttl), nil, nil
	default:
		return nil, nil, nil
	}
}
