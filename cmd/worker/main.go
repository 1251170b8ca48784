// Command worker drains the message bus: long-poll, dispatch concurrent
// downloads, detect, persist, and acknowledge. Exits 0 on clean
// shutdown, 1 on fatal init error.
package main

import (
	"context"
	"errors"
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
	common.PrintBanner(config, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer application.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	common.SafeGo(logger, "signalWait", func() {
		<-sigChan
		logger.Info().Msg("interrupt received, finishing current iteration")
		cancel()
	})

	if err := application.Worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker exited with error")
		common.PrintShutdownBanner(logger)
		os.Exit(1)
	}

	common.PrintShutdownBanner(logger)
}
