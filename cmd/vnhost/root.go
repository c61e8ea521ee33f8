package main

import (
	"fmt"
	"os"

	"github.com/aretw0/llmvn/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vnhost",
	Short: "Run the visual novel kiosk session",
	Long: `vnhost drives the kiosk: it shows the character carousel on the controller,
holds a timed conversation with the chosen character through an LLM, prints the
transcript and archives it.

Settings come from LLMVN_* environment variables (optionally via .env); flags
override them.`,
	SilenceUsage: true,
	RunE:         runHost,
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
	f.String("characters", "", "Character roster (.toml, .yaml or .json)")
	f.String("controller", "", "Controller WebSocket URL")
	f.String("printer", "", "Printer device, or - for stdout")
	f.String("llm-url", "", "OpenAI-compatible API base URL")
	f.String("archive", "", "Archive backend: file, redis, sqlite or memory")
	f.String("status-addr", "", "Address for the status HTTP server, empty to disable")
	f.Duration("reply-timeout", 0, "How long a visitor has to pick a reply")
	f.Bool("debug", false, "Enable debug logging")
}

// loadConfig reads the environment, then applies flags that were set.
func loadConfig(cmd *cobra.Command) (*config.HostConfig, error) {
	f := cmd.Flags()

	envFile, _ := f.GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadHost()
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"characters":  &cfg.CharacterFile,
		"controller":  &cfg.ControllerURL,
		"printer":     &cfg.PrinterDevice,
		"llm-url":     &cfg.LLMBaseURL,
		"archive":     &cfg.Archive,
		"status-addr": &cfg.StatusAddr,
	}
	for name, dst := range overrides {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	if f.Changed("reply-timeout") {
		cfg.ReplyTimeout, _ = f.GetDuration("reply-timeout")
	}
	if f.Changed("debug") {
		cfg.Debug, _ = f.GetBool("debug")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
