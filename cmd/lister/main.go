// Command lister runs a single listing/enqueue iteration, the unit of
// work the external durable loop (Step Functions or any re-invoking
// driver) repeats until Done is true. Input state is read as JSON from
// stdin; output state is written as JSON to stdout, so the driver can
// pass it straight back in as the next invocation's input.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/stracscan/sentinel/internal/app"
	"github.com/stracscan/sentinel/internal/common"
	"github.com/stracscan/sentinel/internal/lister"
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

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read input state from stdin")
	}

	var state lister.State
	if err := json.Unmarshal(input, &state); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse input state")
	}

	ctx := context.Background()
	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer application.Close()

	out, err := application.Lister.Run(ctx, state)
	if err != nil {
		logger.Fatal().Err(err).Str("job_id", state.JobID).Msg("listing iteration failed")
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to encode output state")
	}
	fmt.Println(string(encoded))
}
