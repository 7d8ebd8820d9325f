package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/diwise/osm-topology/internal/pkg/application/subscriptions"
	"github.com/diwise/osm-topology/internal/pkg/application/topology"
	"github.com/diwise/osm-topology/internal/pkg/infrastructure/router"
	"github.com/diwise/osm-topology/internal/pkg/infrastructure/storage"
	"github.com/diwise/osm-topology/internal/pkg/presentation/api"
	"github.com/diwise/osm-topology/pkg/client"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const serviceName string = "osm-topology"

func DefaultFlags() FlagMap {
	return FlagMap{
		listenAddress: "",
		servicePort:   "8080",

		configPath:   "/opt/diwise/config/osm-topology.yaml",
		policiesPath: "/opt/diwise/config/authz.rego",
		osmAPIURL:    client.DefaultBaseURL,

		notificationEndpoint: "",

		logFormat: "json",
	}
}

func main() {
	serviceVersion := buildinfo.SourceVersion()

	flags := parseExternalConfig(context.Background(), DefaultFlags())

	ctx, logger, cleanup := o11y.Init(context.Background(), serviceName, serviceVersion, flags[logFormat])
	defer cleanup()

	cfgFile, err := os.Open(flags[configPath])
	if err != nil {
		fatal(ctx, "failed to open area configuration", err)
	}
	defer cfgFile.Close()

	policies, err := os.Open(flags[policiesPath])
	if err != nil {
		fatal(ctx, "unable to open opa policy file", err)
	}
	defer policies.Close()

	var options []topology.Option

	dbCfg := storage.LoadConfiguration(ctx)
	if dbCfg.Enabled() {
		db, err := storage.Connect(ctx, dbCfg)
		if err != nil {
			fatal(ctx, "failed to connect to database", err)
		}
		defer db.Close()

		if err = db.Initialize(ctx); err != nil {
			fatal(ctx, "failed to initialize database", err)
		}

		options = append(options, topology.WithSnapshotStore(db))
	} else {
		logger.Info("no database configured, extracts will not survive a restart")
	}

	if flags[notificationEndpoint] != "" {
		notifier, err := subscriptions.NewNotifier(ctx, flags[notificationEndpoint])
		if err != nil {
			fatal(ctx, "failed to create notifier", err)
		}

		notifier.Start()
		defer notifier.Stop()

		options = append(options, topology.WithRefreshNotifier(notifier))
	}

	app, handler, err := initialize(ctx, flags, cfgFile, policies, options...)
	if err != nil {
		fatal(ctx, "initialization failed", err)
	}

	go app.Run(ctx)

	addr := net.JoinHostPort(flags[listenAddress], flags[servicePort])
	logger.Info("starting to listen for connections", "addr", addr)

	err = http.ListenAndServe(addr, handler)
	if err != nil {
		fatal(ctx, "failed to listen for connections", err)
	}
}

func initialize(ctx context.Context, flags FlagMap, cfgFile, policies io.Reader, options ...topology.Option) (topology.TopologyManager, http.Handler, error) {
	cfg, err := topology.LoadConfiguration(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load area configuration: %w", err)
	}

	osmClient := client.New(flags[osmAPIURL], client.WithUserAgent(serviceName))

	app, err := topology.New(ctx, *cfg, osmClient, options...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create topology app: %w", err)
	}

	r := router.New(serviceName)

	err = api.RegisterHandlers(ctx, r, policies, app)
	if err != nil {
		return nil, nil, err
	}

	return app, r, nil
}

func parseExternalConfig(ctx context.Context, flags FlagMap) FlagMap {

	// Allow environment variables to override certain defaults
	envOrDef := env.GetVariableOrDefault
	flags[servicePort] = envOrDef(ctx, "SERVICE_PORT", flags[servicePort])
	flags[configPath] = envOrDef(ctx, "OSM_TOPOLOGY_CONFIG_PATH", flags[configPath])
	flags[policiesPath] = envOrDef(ctx, "POLICY_PATH", flags[policiesPath])
	flags[osmAPIURL] = envOrDef(ctx, "OSM_API_URL", flags[osmAPIURL])
	flags[notificationEndpoint] = envOrDef(ctx, "NOTIFICATION_ENDPOINT", flags[notificationEndpoint])

	apply := func(f FlagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("config", "path to the area configuration file", apply(configPath))
	flag.Func("policies", "an authorization policy file", apply(policiesPath))
	flag.Func("osm-api", "base url of the OpenStreetMap api", apply(osmAPIURL))
	flag.Parse()

	return flags
}

func fatal(ctx context.Context, msg string, err error) {
	logging.GetFromContext(ctx).Error(msg, "err", err.Error())
	os.Exit(1)
}
