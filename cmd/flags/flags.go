package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ruteri/contract-spec-publisher/common"
	"github.com/ruteri/contract-spec-publisher/metrics"
	"github.com/urfave/cli/v2"
)

// SetupLogger builds the logger selected by the log-* flags.
func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ConfigureMetricsServer returns nil when no metrics address is set.
func ConfigureMetricsServer(cCtx *cli.Context, logger *slog.Logger, gatherer prometheus.Gatherer) *metrics.ServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	if metricsAddr == "" {
		return nil
	}

	return &metrics.ServerConfig{
		ListenAddr:               metricsAddr,
		Log:                      logger,
		Gatherer:                 gatherer,
		GracefulShutdownDuration: 5 * time.Second,
		ReadTimeout:              10 * time.Second,
		WriteTimeout:             10 * time.Second,
	}
}

// ConfigFlag points at the YAML file holding locations and the manifest section.
var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Value:   "publisher.yaml",
	EnvVars: []string{"PUBLISHER_CONFIG"},
	Usage:   "path to the publisher configuration file",
}

// DescriptorFlag points at the YAML descriptor of bundles, scopes and contracts.
var DescriptorFlag = &cli.StringFlag{
	Name:    "descriptor",
	Aliases: []string{"d"},
	Value:   "contracts.yaml",
	EnvVars: []string{"PUBLISHER_DESCRIPTOR"},
	Usage:   "path to the contract descriptor listing bundles, scopes and contracts",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

// LogServiceFlagFn returns a log-service flag defaulting to service.
var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "",
	Usage: "address to serve Prometheus metrics on while publishing, e.g. 127.0.0.1:8090",
}

// CommonFlags are registered on the app and shared by every command.
var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}
