package app

import (
	"context"
	"crypto/tls"
	"expvar"
	"flag"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_logrus "github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/code-payments/gift-protocol/pkg/metrics"
	"github.com/code-payments/gift-protocol/pkg/osutil"
)

// App is a long lived application serving HTTP requests. Its lifecycle is
// tied to the process: it is initialized before the listeners start and
// stopped after they have drained.
type App interface {
	// Init blocks until the application is ready to receive requests
	Init(config Config, metricsProvider *newrelic.Application) error

	// HTTPHandler is served on the listen address once Init returns
	HTTPHandler() http.Handler

	// ShutdownChan is closed when the application shuts itself down, which
	// triggers a shutdown of the listeners
	ShutdownChan() <-chan struct{}

	// Stop releases the application's resources. It must be idempotent.
	Stop()
}

var (
	configPath = flag.String("config", "config.yaml", "configuration file path")

	osSigCh = make(chan os.Signal, 1)
)

func init() {
	signal.Notify(osSigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
}

func Run(app App, options ...Option) error {
	flag.Parse()

	logger := logrus.StandardLogger().WithField("type", "app")

	config, err := loadConfig()
	if err != nil {
		logger.WithError(err).Error("failed to load config")
		os.Exit(1)
	}

	var metricsProvider *newrelic.Application
	if len(config.NewRelicLicenseKey) > 0 {
		nr, err := newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Error("error connecting to new relic")
			os.Exit(1)
		}

		metricsProvider = nr
	}

	configureLogger(config, metricsProvider)

	// pprof and expvar install themselves on the default mux, which must not
	// be reachable from the public listener
	http.DefaultServeMux = http.NewServeMux()

	startDebugServer(config, logger)

	var ballast []byte
	if config.EnableBallast {
		ballastCapacity := config.BallastCapacity
		if ballastCapacity > 0.5 {
			ballastCapacity = 0.5
		}
		ballast = make([]byte, uint64(ballastCapacity*float32(osutil.GetTotalMemory())))
	}

	memoryLeakShutdownCh := make(chan struct{})
	if config.EnableMemoryLeakCron {
		cronJob := cron.New(cron.WithLocation(time.Local))
		_, err = cronJob.AddFunc(config.MemoryLeakCronSchedule, func() {
			close(memoryLeakShutdownCh)
		})
		if err != nil {
			logger.WithError(err).Error("failed to initialize memory leak cron")
			os.Exit(1)
		}
		cronJob.Start()
	}

	opts := opts{
		unaryServerInterceptors: []grpc.UnaryServerInterceptor{
			grpc_recovery.UnaryServerInterceptor(),
			grpc_logrus.UnaryServerInterceptor(logger),
		},
		streamServerInterceptors: []grpc.StreamServerInterceptor{
			grpc_recovery.StreamServerInterceptor(),
			grpc_logrus.StreamServerInterceptor(logger),
		},
	}
	for _, o := range options {
		o(&opts)
	}

	healthLis, err := net.Listen("tcp", config.HealthListenAddress)
	if err != nil {
		logger.WithError(err).Errorf("failed to listen on %s", config.HealthListenAddress)
		os.Exit(1)
	}

	healthServ := grpc.NewServer(
		grpc_middleware.WithUnaryServerChain(opts.unaryServerInterceptors...),
		grpc_middleware.WithStreamServerChain(opts.streamServerInterceptors...),
	)
	healthStatus := health.NewServer()
	healthStatus.SetServingStatus("", healthgrpc.HealthCheckResponse_NOT_SERVING)
	healthgrpc.RegisterHealthServer(healthServ, healthStatus)

	healthServShutdownCh := make(chan struct{})
	go func() {
		if err := healthServ.Serve(healthLis); err != nil {
			logger.WithError(err).Error("health server stopped")
		}
		close(healthServShutdownCh)
	}()

	if err := app.Init(config.AppConfig, metricsProvider); err != nil {
		logger.WithError(err).Error("failed to initialize application")
		os.Exit(1)
	}

	httpServ := &http.Server{
		Addr:              config.ListenAddress,
		Handler:           app.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if len(config.TLSCertificate) > 0 {
		cert, err := loadCertificate(config)
		if err != nil {
			logger.WithError(err).Error("failed to load tls configuration")
			os.Exit(1)
		}
		httpServ.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	httpServShutdownCh := make(chan struct{})
	go func() {
		var err error
		if httpServ.TLSConfig != nil {
			err = httpServ.ListenAndServeTLS("", "")
		} else {
			err = httpServ.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server stopped")
		} else {
			logger.Info("http server stopped")
		}
		close(httpServShutdownCh)
	}()

	healthStatus.SetServingStatus("", healthgrpc.HealthCheckResponse_SERVING)

	select {
	case <-osSigCh:
		logger.Info("interrupt received, shutting down")
	case <-httpServShutdownCh:
		logger.Info("http server shutdown")
	case <-healthServShutdownCh:
		logger.Info("health server shutdown")
	case <-memoryLeakShutdownCh:
		logger.Info("shutdown to deal with memory leak")
	case <-app.ShutdownChan():
		logger.Info("app shutdown")
	}

	healthStatus.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownGracePeriod)
	defer cancel()

	shutdownCh := make(chan struct{})
	go func() {
		if err := httpServ.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("failure draining http server")
		}
		healthServ.GracefulStop()
		app.Stop()

		close(shutdownCh)
	}()

	select {
	case <-shutdownCh:
		if len(ballast) > 0 {
			ballast[0] = 1
		}
		return nil
	case <-shutdownCtx.Done():
		return errors.Errorf("failed to stop the application within %v", config.ShutdownGracePeriod)
	}
}

func loadConfig() (BaseConfig, error) {
	// An explicitly set config file that doesn't exist is not reported as a
	// ConfigFileNotFoundError, so only set it when present
	if _, err := os.Stat(*configPath); err == nil {
		viper.SetConfigFile(*configPath)
	} else if !os.IsNotExist(err) {
		return BaseConfig{}, errors.Wrap(err, "error checking config file")
	}

	err := viper.ReadInConfig()
	if _, isConfigNotFound := err.(viper.ConfigFileNotFoundError); err != nil && !isConfigNotFound {
		return BaseConfig{}, errors.Wrap(err, "error reading config")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "error unmarshalling config")
	}

	if len(config.AppName) == 0 {
		return BaseConfig{}, errors.New("must specify an application name")
	}
	return config, nil
}

func loadCertificate(config BaseConfig) (tls.Certificate, error) {
	if len(config.TLSKey) == 0 {
		return tls.Certificate{}, errors.New("tls key must be provided if certificate is specified")
	}

	certBytes, err := LoadFile(config.TLSCertificate)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "error loading tls certificate")
	}

	keyBytes, err := LoadFile(config.TLSKey)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "error loading tls key")
	}

	return tls.X509KeyPair(certBytes, keyBytes)
}

func startDebugServer(config BaseConfig, logger *logrus.Entry) {
	if !config.EnableExpvar && !config.EnablePprof {
		return
	}

	debugHTTPMux := http.NewServeMux()
	if config.EnableExpvar {
		debugHTTPMux.Handle("/debug/vars", expvar.Handler())
	}
	if config.EnablePprof {
		debugHTTPMux.HandleFunc("/debug/pprof/", pprof.Index)
		debugHTTPMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		debugHTTPMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		debugHTTPMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		debugHTTPMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	go func() {
		for {
			if err := http.ListenAndServe(config.DebugListenAddress, debugHTTPMux); err != nil {
				logger.WithError(err).Warn("debug http server failed, retrying in 5s")
			}
			time.Sleep(5 * time.Second)
		}
	}()
}

func configureLogger(config BaseConfig, metricsProvider *newrelic.Application) {
	if metricsProvider != nil {
		logrus.SetFormatter(metrics.NewLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stdout)
}
