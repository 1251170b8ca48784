// Command refresher keeps the cached progress projection warm. By
// default it runs an in-process cron loop until signalled; with -once
// it performs a single refresh and exits, 0 on success and 1 on
// failure, suitable for an external scheduler (cron, a scheduled task
// runner) invoking this binary per tick instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stracscan/sentinel/internal/app"
	"github.com/stracscan/sentinel/internal/common"
)

type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }
func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

func main() {
	common.InstallCrashHandler("./logs")

	var configFiles configPaths
	flag.Var(&configFiles, "config", "Configuration file path (repeatable, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
	once := flag.Bool("once", false, "Perform a single refresh and exit instead of running the cron schedule")
	flag.Parse()

	if len(configFiles) == 0 {
		if _, err := os.Stat("config/scanner.toml"); err == nil {
			configFiles = append(configFiles, "config/scanner.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	logger := common.SetupLogger(config)
	ctx := context.Background()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer application.Close()

	if *once {
		if _, err := application.Refresher.RunOnce(ctx); err != nil {
			logger.Error().Err(err).Msg("refresh failed")
			os.Exit(1)
		}
		os.Exit(0)
	}

	common.PrintBanner(config, logger)
	if err := application.Refresher.Schedule(ctx, config.Refresh.Schedule); err != nil {
		logger.Fatal().Err(err).Msg("failed to start refresh schedule")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("stopping refresh schedule")
	application.Refresher.Stop()
	common.PrintShutdownBanner(logger)
}
