package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ruteri/contract-spec-publisher/chain"
	"github.com/ruteri/contract-spec-publisher/cmd/flags"
	"github.com/ruteri/contract-spec-publisher/common"
	"github.com/ruteri/contract-spec-publisher/config"
	"github.com/ruteri/contract-spec-publisher/cryptoutils"
	"github.com/ruteri/contract-spec-publisher/descriptor"
	"github.com/ruteri/contract-spec-publisher/manifest"
	"github.com/ruteri/contract-spec-publisher/metrics"
	"github.com/ruteri/contract-spec-publisher/publisher"
	"github.com/urfave/cli/v2"
)

var PublisherServiceLogFlag = flags.LogServiceFlagFn("contract-spec-publisher")

var flagLocation = &cli.StringFlag{
	Name:     "location",
	Aliases:  []string{"l"},
	Required: true,
	Usage:    "name of the location in the configuration file",
}

var flagQuery = &cli.BoolFlag{
	Name:  "query",
	Value: false,
	Usage: "also fetch the account number and sequence from the location's chain",
}

func main() {
	app := &cli.App{
		Name:    "publisher",
		Usage:   "Publish contract specifications to Provenance",
		Version: common.Version,
		Flags:   append([]cli.Flag{PublisherServiceLogFlag}, flags.CommonFlags...),
		Commands: []*cli.Command{
			{
				Name:  "bootstrap",
				Usage: "store bundles and write missing specifications to every location",
				Flags: []cli.Flag{flags.ConfigFlag, flags.DescriptorFlag, flags.MetricsAddrFlag},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					cfg, err := config.LoadFile(cCtx.String(flags.ConfigFlag.Name))
					if err != nil {
						logger.Error("Failed to load configuration", "err", err)
						return err
					}
					desc, err := descriptor.Load(cCtx.String(flags.DescriptorFlag.Name))
					if err != nil {
						logger.Error("Failed to load descriptor", "err", err)
						return err
					}

					registry := prometheus.NewRegistry()
					registry.MustRegister(collectors.NewGoCollector())
					m := metrics.New(registry)

					if serverCfg := flags.ConfigureMetricsServer(cCtx, logger, registry); serverCfg != nil {
						srv := metrics.NewServer(serverCfg)
						srv.RunInBackground()
						srv.SetReady(true)
						defer srv.Shutdown()
					}

					ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
					defer stop()

					pub := publisher.New(cfg, publisher.Options{Log: logger, Metrics: m})
					report, err := pub.Execute(ctx, desc)
					if report != nil {
						for _, res := range report.Locations {
							if res.Err != nil {
								logger.Error("Location failed", slog.String("location", res.Name), "err", res.Err)
								continue
							}
							logger.Info("Location published",
								slog.String("location", res.Name),
								slog.String("contract_hash", res.ContractHash.String()),
								slog.String("schema_hash", res.SchemaHash.String()),
								slog.Int("staged", res.Staged),
								slog.Int("transactions", res.Transactions))
						}
					}
					if err != nil {
						logger.Error("Bootstrap failed", "err", err)
						return err
					}

					logger.Info("Bootstrap complete", slog.String("run_id", report.RunID))
					return nil
				},
			},
			{
				Name:  "check",
				Usage: "validate the contracts of a descriptor",
				Flags: []cli.Flag{flags.DescriptorFlag},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					desc, err := descriptor.Load(cCtx.String(flags.DescriptorFlag.Name))
					if err != nil {
						logger.Error("Failed to load descriptor", "err", err)
						return err
					}
					if err := publisher.Check(desc, logger); err != nil {
						logger.Error("Contract check failed", "err", err)
						return err
					}
					return nil
				},
			},
			{
				Name:  "clean",
				Usage: "remove the manifests written by bootstrap",
				Flags: []cli.Flag{flags.ConfigFlag},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					cfg, err := config.LoadFile(cCtx.String(flags.ConfigFlag.Name))
					if err != nil {
						logger.Error("Failed to load configuration", "err", err)
						return err
					}
					if cfg.Manifest.OutputDir == "" {
						logger.Info("No manifest output directory configured, nothing to clean")
						return nil
					}
					return manifest.NewWriter(cfg.Manifest, logger).Clean()
				},
			},
			addressCommand,
			{
				Name:  "account",
				Usage: "print the account of a location's signing key",
				Flags: []cli.Flag{flags.ConfigFlag, flagLocation, flagQuery},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					cfg, err := config.LoadFile(cCtx.String(flags.ConfigFlag.Name))
					if err != nil {
						return err
					}
					loc, ok := cfg.Locations[cCtx.String(flagLocation.Name)]
					if !ok {
						return fmt.Errorf("location %q not found in configuration", cCtx.String(flagLocation.Name))
					}
					if errs := loc.Validate(); len(errs) > 0 {
						return errors.Join(errs...)
					}

					key, err := cryptoutils.ParsePrivateKey(loc.SigningPrivateKey)
					if err != nil {
						return err
					}
					signer, err := cryptoutils.NewSigner(key, loc.IsMainNet())
					if err != nil {
						return err
					}
					fmt.Println(signer.Address())

					if !cCtx.Bool(flagQuery.Name) {
						return nil
					}

					client, err := chain.Dial(cCtx.Context, chain.Config{
						Endpoint:     loc.ChainURL,
						ChainID:      loc.ChainID,
						QueryTimeout: loc.QueryTimeout,
						Log:          logger,
					})
					if err != nil {
						logger.Error("Failed to connect to chain", "err", err)
						return err
					}
					defer client.Close()

					account, err := client.Account(cCtx.Context, signer.Address())
					if err != nil {
						logger.Error("Failed to fetch account", "err", err)
						return err
					}
					fmt.Printf("account_number: %d\nsequence: %d\n", account.AccountNumber, account.Sequence)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
