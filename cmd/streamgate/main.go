package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kubestream/streamgate/pkg/access"
	"github.com/kubestream/streamgate/pkg/api"
	"github.com/kubestream/streamgate/pkg/audit"
	"github.com/kubestream/streamgate/pkg/catalog"
	"github.com/kubestream/streamgate/pkg/config"
	"github.com/kubestream/streamgate/pkg/credential"
	"github.com/kubestream/streamgate/pkg/discovery"
	"github.com/kubestream/streamgate/pkg/permission"
	"github.com/kubestream/streamgate/pkg/ratelimit"
	"github.com/kubestream/streamgate/pkg/system"
)

func main() {
	var (
		debug      bool
		configPath string
	)
	flag.BoolVar(&debug, "debug", false, "enable debug level logging")
	flag.StringVar(&configPath, "config", "", "path to the configuration file (default ./config.yaml, overridden by STREAMGATE_CONFIG)")
	flag.Parse()

	zl := setupLogger(debug)
	log := zl.Sugar()
	log.With("version", system.Version).Info("Starting streamgate api")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Error loading streamgate config: %v", err)
	}

	if debug {
		log.Infof("%#v", cfg)
	}

	registry := permission.NewRegistry(log)
	if err := registry.Reload(cfg); err != nil {
		log.Fatalf("Error compiling permission configuration: %v", err)
	}
	evaluator := permission.NewEvaluator(log, permission.ParseAllowSemantics(cfg.Compat.AllowRuleSemantics, log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reload on config file changes; a bad file keeps the running snapshot.
	watcher := config.NewWatcher(log, configResolvedPath(configPath), func() {
		reloaded, err := config.Load(configPath)
		if err != nil {
			log.Warnw("Configuration reload failed; keeping current state", "error", err)
			return
		}
		if err := registry.Reload(reloaded); err != nil {
			log.Warnw("Permission recompile failed; keeping current state", "error", err)
		}
	})
	if err := watcher.Start(ctx); err != nil {
		log.Warnw("Configuration watcher disabled", "error", err)
	}

	var resolver catalog.GroupResolver
	if !cfg.Catalog.Disable && cfg.Catalog.BaseURL != "" && cfg.Catalog.Realm != "" && cfg.Catalog.ClientID != "" {
		resolver = catalog.NewKeycloakResolver(log, cfg.Catalog)
		log.Infow("Catalog group lookup enabled", "baseURL", cfg.Catalog.BaseURL, "realm", cfg.Catalog.Realm)
	} else {
		resolver = catalog.NopResolver{}
		log.Infow("Catalog disabled or not fully configured; using no-op resolver")
	}

	var sink audit.Sink = audit.NopSink{}
	if len(cfg.Audit.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(log, audit.KafkaSinkConfig{
			Brokers: cfg.Audit.Brokers,
			Topic:   cfg.Audit.Topic,
			TLS:     cfg.Audit.TLS,
		})
		if err != nil {
			log.Fatalf("Error creating audit sink: %v", err)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	}

	issuer := credential.NewIssuer(log, credential.DefaultTimeout)
	pods := discovery.NewClient(log, discovery.DefaultTimeout)

	auth := api.NewAuth(log, cfg)
	limiter := ratelimit.New(ratelimit.DefaultAPIConfig())
	defer limiter.Stop()

	server := api.NewServer(zl, cfg, debug)
	err = server.RegisterAll([]api.APIController{
		access.NewController(log, registry, evaluator, resolver, issuer, pods, sink,
			auth.Middleware(), limiter.Middleware()),
	})
	if err != nil {
		log.Fatalf("Error registering streamgate controllers: %v", err)
	}

	server.Listen()
}

// configResolvedPath mirrors config.Load's path resolution so the watcher
// observes the same file the loader reads.
func configResolvedPath(configPath string) string {
	if env := os.Getenv("STREAMGATE_CONFIG"); env != "" {
		return env
	}
	if configPath != "" {
		return configPath
	}
	return "./config.yaml"
}

func setupLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return logger
}
