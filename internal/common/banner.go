package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner.
func PrintBanner(config *Config, logger arbor.ILogger) {
	version := GetVersion()
	build := GetBuild()

	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("SENTINEL")
	b.PrintCenteredText("Sensitive Data Scanner")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Build", build, 15)
	b.PrintKeyValue("Environment", config.Environment, 15)
	b.PrintKeyValue("Service URL", serviceURL, 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("environment", config.Environment).
		Str("service_url", serviceURL).
		Str("config_file", "scanner.toml").
		Msg("application started")

	fmt.Printf("Configuration:\n")
	fmt.Printf("   - Config File: scanner.toml\n")
	fmt.Printf("   - Service URL: %s\n", serviceURL)

	logFilePath := ""
	if loggerWithPath, ok := interface{}(logger).(interface{ GetLogFilePath() string }); ok {
		logFilePath = loggerWithPath.GetLogFilePath()
		if logFilePath != "" {
			fmt.Printf("   - Log File: %s\n", logFilePath)
		}
	}
	fmt.Printf("\n")

	logger.Info().
		Str("log_file", logFilePath).
		Str("aws_region", config.AWS.Region).
		Bool("durable_loop_configured", config.AWS.StepFunctionArn != "").
		Int("max_workers", config.Worker.MaxWorkers).
		Int("max_file_size_mb", config.Worker.MaxFileSizeMB).
		Msg("configuration loaded")

	printCapabilities(config, logger)
	fmt.Printf("\n")
}

// printCapabilities displays the active listing/enqueue driver and the
// worker's concurrency and detection limits.
func printCapabilities(config *Config, logger arbor.ILogger) {
	fmt.Printf("Enabled Capabilities:\n")

	driverMode := "synchronous fallback (no STEP_FUNCTION_ARN configured)"
	if config.AWS.StepFunctionArn != "" {
		driverMode = "durable loop via external step-function driver"
		fmt.Printf("   - Listing driver: %s\n", driverMode)
	} else {
		fmt.Printf("   - Listing driver: %s\n", driverMode)
	}

	fmt.Printf("   - Worker pool: %d concurrent, batch size %d, %ds long-poll\n",
		config.Worker.MaxWorkers, config.Worker.BatchSize, config.Worker.WaitSeconds)
	fmt.Printf("   - File size ceiling: %d MB\n", config.Worker.MaxFileSizeMB)
	fmt.Printf("   - Detector cap: %d matches per kind, %d context chars\n",
		config.Detector.MaxPerKind, config.Detector.ContextChars)

	logger.Info().
		Str("driver_mode", driverMode).
		Int("worker_pool", config.Worker.MaxWorkers).
		Int("batch_size", config.Worker.BatchSize).
		Int("detector_max_per_kind", config.Detector.MaxPerKind).
		Msg("capabilities")
}

// PrintShutdownBanner displays the application shutdown banner.
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("SENTINEL")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("application shutting down")
}

// PrintColorizedMessage prints a message with specified color to stdout; it does not log.
func PrintColorizedMessage(color, message string, logger arbor.ILogger) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

// PrintSuccess prints a success message in green and logs it.
func PrintSuccess(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("[ok] %s", message), logger)
	logger.Info().Str("type", "success").Msg(message)
}

// PrintError prints an error message in red and logs it.
func PrintError(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("[error] %s", message), logger)
	logger.Error().Str("type", "error").Msg(message)
}

// PrintWarning prints a warning message in yellow and logs it.
func PrintWarning(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorYellow, fmt.Sprintf("[warn] %s", message), logger)
	logger.Warn().Str("type", "warning").Msg(message)
}

// PrintInfo prints an info message in cyan and logs it.
func PrintInfo(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorCyan, fmt.Sprintf("[info] %s", message), logger)
	logger.Info().Str("type", "info").Msg(message)
}
