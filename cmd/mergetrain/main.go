package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"github.com/thecodeteam/goodbye"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/simplesurance/mergetrain/internal/cfg"
	"github.com/simplesurance/mergetrain/internal/githubclt"
	"github.com/simplesurance/mergetrain/internal/gitlabclt"
	"github.com/simplesurance/mergetrain/internal/logfields"
	"github.com/simplesurance/mergetrain/internal/retryer"
	"github.com/simplesurance/mergetrain/internal/train"
)

const appName = "mergetrain"

var logger *zap.Logger

// Version is set via a ldflag on compilation
var Version = "unknown"

// passShutdownTimeout is the max. duration that is waited on termination for
// a running pass to finish.
const passShutdownTimeout = 2 * time.Minute

func exitOnErr(msg string, err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "ERROR:", msg+", error:", err.Error())
	os.Exit(1)
}

func panicHandler() {
	if r := recover(); r != nil {
		logger.Info(
			"panic caught , terminating gracefully",
			zap.String("panic", fmt.Sprintf("%v", r)),
			zap.StackSkip("stacktrace", 1),
		)

		ctx, cancelFn := context.WithTimeout(context.Background(), time.Minute)
		defer cancelFn()

		goodbye.Exit(ctx, 1)
	}
}

// startServer runs srv in a new goroutine and registers a goodbye handler
// that shuts it down. scheme is used in log messages and events, listenFn
// starts the listener, e.g. srv.ListenAndServe.
func startServer(scheme string, srv *http.Server, listenFn func() error) {
	goodbye.Register(func(context.Context, os.Signal) {
		const shutdownTimeout = 30 * time.Second
		ctx, cancelFn := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelFn()

		logger.Debug(
			"terminating "+scheme+" server",
			logfields.Event(scheme+"_server_terminating"),
			zap.Duration("shutdown_timeout", shutdownTimeout),
		)

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn(
				"shutting down "+scheme+" server failed",
				logfields.Event(scheme+"_server_termination_failed"),
				zap.Error(err),
			)
		}
	})

	go func() {
		defer panicHandler()

		logger.Info(
			scheme+" server started",
			logfields.Event(scheme+"_server_started"),
			zap.String("listenAddr", srv.Addr),
		)

		err := listenFn()
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info(scheme+" server terminated", logfields.Event(scheme+"_server_terminated"))
			return
		}

		logger.Fatal(
			scheme+" server terminated unexpectedly",
			logfields.Event(scheme+"_server_terminated_unexpectedly"),
			zap.Error(err),
		)
	}()
}

func newServer(listenAddr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
	}
}

type arguments struct {
	Verbose     *bool
	ConfigFile  *string
	Once        *bool
	DryRun      *bool
	PrintConfig *bool
	ShowVersion *bool
}

var args arguments

const defConfigFile = "/etc/mergetrain/config.toml"

func mustParseCommandlineParams() {
	args = arguments{
		Verbose: pflag.BoolP(
			"verbose",
			"v",
			false,
			"enable verbose logging",
		),
		ConfigFile: pflag.StringP(
			"cfg-file",
			"c",
			defConfigFile,
			"path to the mergetrain configuration file, the default file is optional",
		),
		Once: pflag.Bool(
			"once",
			false,
			"run a single pass and exit",
		),
		DryRun: pflag.Bool(
			"dry-run",
			false,
			"do not change anything on the code host, only log the actions that would be done",
		),
		PrintConfig: pflag.Bool(
			"print-config",
			false,
			"print the effective configuration, without the environment variables, and exit",
		),
		ShowVersion: pflag.Bool(
			"version",
			false,
			"print the version and exit",
		),
	}

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]\nRebase and merge merge requests that are assigned to a bot account.\n", appName)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nRequired environment variables (prefix depends on the provider setting):\n")
		fmt.Fprintf(os.Stderr, "  GITLAB_HOST, GITLAB_TOKEN, GITLAB_PROJECT, GITLAB_BOT_NAME\n")
	}

	pflag.Parse()
}

func mustParseCfg() *cfg.Config {
	// we use exitOnErr in this function instead of logger.Fatal() because
	// the logger is not initialized yet

	config := &cfg.Config{}

	file, err := os.Open(*args.ConfigFile)
	switch {
	case err == nil:
		defer file.Close()

		config, err = cfg.Load(file)
		exitOnErr(fmt.Sprintf("could not load configuration file: %s", *args.ConfigFile), err)

	case errors.Is(err, os.ErrNotExist) && !pflag.CommandLine.Changed("cfg-file"):
		// the default configuration file is optional

	default:
		exitOnErr("could not open configuration file", err)
	}

	config.SetDefaults()

	if *args.DryRun {
		config.DryRun = true
	}

	exitOnErr("invalid configuration", config.Validate())

	if *args.PrintConfig {
		exitOnErr("writing configuration failed", config.Marshal(os.Stdout))
		os.Exit(0)
	}
	exitOnErr("reading configuration from environment failed", config.LoadEnv(os.Getenv))

	return config
}

func initLogFmtLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zapEncoderConfig(config)

	logger := zap.New(zapcore.NewCore(
		zaplogfmt.NewEncoder(cfg),
		os.Stdout,
		logLevel),
	)

	return logger
}

func zapEncoderConfig(config *cfg.Config) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.TimeKey = config.LogTimeKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func mustInitZapFormatLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig = zapEncoderConfig(config)
	cfg.OutputPaths = []string{"stdout"}
	cfg.Encoding = config.LogFormat
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	exitOnErr("could not initialize logger", err)

	return logger
}

func mustInitLogger(config *cfg.Config) {
	var logLevel zapcore.Level
	if *args.Verbose {
		logLevel = zapcore.DebugLevel
	} else {
		if err := (&logLevel).Set(config.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "can not set log level to %q: %s \n", config.LogLevel, err)
			os.Exit(2)
		}
	}

	switch config.LogFormat {
	case "logfmt":
		logger = initLogFmtLogger(config, logLevel)
	case "console", "json":
		logger = mustInitZapFormatLogger(config, logLevel)
	default:
		fmt.Fprintf(os.Stderr, "unsupported log-format argument: %q\n", config.LogFormat)
		os.Exit(2)
	}

	logger = logger.Named("main")
	zap.ReplaceGlobals(logger)

	goodbye.Register(func(context.Context, os.Signal) {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "flushing logs failed: %s\n", err)
		}
	})
}

func hide(in string) string {
	if in == "" {
		return in
	}

	return "**hidden**"
}

func mustInitGateway(config *cfg.Config) train.Gateway {
	var gw train.Gateway

	switch config.Provider {
	case cfg.ProviderGitlab:
		clt, err := gitlabclt.New(
			config.Host,
			config.Token,
			gitlabclt.WithRemoveSourceBranch(config.RemoveSourceBranch),
		)
		exitOnErr("creating gitlab client failed", err)
		gw = clt

	case cfg.ProviderGithub:
		clt, err := githubclt.New(config.Host, config.Token)
		exitOnErr("creating github client failed", err)
		gw = clt

	default:
		exitOnErr("creating code host client failed", fmt.Errorf("unsupported provider: %q", config.Provider))
	}

	if config.DryRun {
		logger.Info(
			"dry run mode enabled, changes on the code host are simulated",
			logfields.Event("dry_run_enabled"),
		)

		return train.NewDryGateway(gw)
	}

	return gw
}

func mustInitEligibility(config *cfg.Config) train.Eligibility {
	if config.EligibilityFilterQuery == "" {
		return &train.AssignedTo{Name: config.BotName}
	}

	filter, err := train.NewJQFilter(config.EligibilityFilterQuery)
	exitOnErr("parsing eligibility_filter_query failed", err)

	return filter
}

func startStatusServer(config *cfg.Config, tr *train.Train) {
	if config.HTTPListenAddr == "" && config.HTTPSListenAddr == "" {
		return
	}

	router := chi.NewRouter()
	router.Handle(config.HTTPMetricsPath, promhttp.Handler())
	train.NewHTTPService(tr).RegisterHandlers(router, config.HTTPStatusPath)

	logger.Info(
		"registered http endpoints",
		logfields.Event("http_handlers_registered"),
		zap.String("metrics_endpoint", config.HTTPMetricsPath),
		zap.String("status_endpoint", config.HTTPStatusPath),
	)

	if config.HTTPListenAddr != "" {
		srv := newServer(config.HTTPListenAddr, router)
		startServer("http", srv, srv.ListenAndServe)
	}

	if config.HTTPSListenAddr != "" {
		srv := newServer(config.HTTPSListenAddr, router)
		startServer("https", srv, func() error {
			return srv.ListenAndServeTLS(config.HTTPSCertFile, config.HTTPSKeyFile)
		})
	}
}

func main() {
	defer panicHandler()

	defer goodbye.Exit(context.Background(), 1)
	goodbye.Notify(context.Background())

	mustParseCommandlineParams()

	if *args.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		os.Exit(0) // nolint:gocritic // defer functions won't run
	}

	config := mustParseCfg()

	mustInitLogger(config)

	logger.Info(
		"loaded configuration",
		logfields.Event("cfg_loaded"),
		zap.String("cfg_file", *args.ConfigFile),
		zap.String("provider", config.Provider),
		zap.String("host", config.Host),
		zap.String("project", config.Project),
		zap.String("bot_name", config.BotName),
		zap.String("token", hide(config.Token)),
		zap.String("interval", config.Interval),
		zap.Int("rebase_limit", config.RebaseLimit),
		zap.Bool("cancel_stale_pipelines", *config.CancelStalePipelines),
		zap.Bool("reassign_on_pipeline_failure", config.ReassignOnPipelineFailure),
		zap.Bool("remove_source_branch", config.RemoveSourceBranch),
		zap.Int("commit_lookback", config.CommitLookback),
		zap.Int("fetch_concurrency", config.FetchConcurrency),
		zap.String("read_retry_timeout", config.ReadRetryTimeout),
		zap.String("eligibility_filter_query", config.EligibilityFilterQuery),
		zap.Bool("dry_run", config.DryRun),
		zap.String("http_server_listen_addr", config.HTTPListenAddr),
		zap.String("https_server_listen_addr", config.HTTPSListenAddr),
		zap.String("log_format", config.LogFormat),
		zap.String("log_time_key", config.LogTimeKey),
		zap.String("log_level", config.LogLevel),
	)

	goodbye.Register(func(_ context.Context, sig os.Signal) {
		logger.Info(fmt.Sprintf("terminating, received signal %s", sig.String()))
	})

	gw := mustInitGateway(config)

	rt := retryer.New(retryer.WithTimeout(config.ReadRetryTimeoutDuration()))

	snapshot := train.NewSnapshotBuilder(gw, config.Project, mustInitEligibility(config), rt)
	snapshot.CommitLookback = config.CommitLookback
	snapshot.FetchConcurrency = config.FetchConcurrency

	scheduler := train.NewScheduler(gw, config.Project)
	scheduler.RebaseLimit = config.RebaseLimit
	scheduler.CancelStalePipelines = *config.CancelStalePipelines

	tr := train.New(
		snapshot,
		scheduler,
		train.TriagePolicy{ReassignOnPipelineFailure: config.ReassignOnPipelineFailure},
		config.PassInterval(),
	)

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	if *args.Once {
		_, err := tr.RunPass(ctx)
		if err != nil {
			goodbye.Exit(context.Background(), 1)
		}

		goodbye.Exit(context.Background(), 0)
	}

	startStatusServer(config, tr)

	trainDone := make(chan struct{})

	goodbye.Register(func(context.Context, os.Signal) {
		logger.Debug(
			"stopping merge train",
			logfields.Event("train_stopping"),
			zap.Duration("shutdown_timeout", passShutdownTimeout),
		)

		cancelFn()
		rt.Stop()

		select {
		case <-trainDone:
		case <-time.After(passShutdownTimeout):
			logger.Warn(
				"running pass did not terminate in time",
				logfields.Event("train_stop_timeout"),
			)
		}
	})

	tr.Run(ctx)
	close(trainDone)

	goodbye.Exit(context.Background(), 0)
}
