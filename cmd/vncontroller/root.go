package main

import (
	"fmt"
	"os"

	"github.com/aretw0/llmvn/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vncontroller",
	Short: "Run the kiosk button and display controller",
	Long: `vncontroller stands in for the kiosk's controller board on a terminal.
Keys 1, 2 and 3 are the function buttons and e ends the conversation; the
terminal shows whatever screen the host last sent. The host connects over a
WebSocket at /llm-vn-controller.

Logs go to a file because the terminal is the display.`,
	SilenceUsage: true,
	RunE:         runController,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.Flags()
	f.String("env-file", ".env", "Dotenv file to load before reading the environment")
	f.String("listen", "", "Address to accept the host on")
	f.Duration("sample-interval", 0, "Button sampling interval")
	f.String("log-file", "", "Log destination, - for stderr")
	f.Bool("debug", false, "Enable debug logging")
}

func loadConfig(cmd *cobra.Command) (*config.ControllerConfig, error) {
	f := cmd.Flags()

	envFile, _ := f.GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadController()
	if err != nil {
		return nil, err
	}

	if f.Changed("listen") {
		cfg.ListenAddr, _ = f.GetString("listen")
	}
	if f.Changed("sample-interval") {
		cfg.SampleRate, _ = f.GetDuration("sample-interval")
	}
	if f.Changed("log-file") {
		cfg.LogFile, _ = f.GetString("log-file")
	}
	if f.Changed("debug") {
		cfg.Debug, _ = f.GetBool("debug")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
