package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"watchout/lib/config"
	"watchout/lib/watchout"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "watchout",
		Short:         "Control a Watchout production or display cluster",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("host", "", "Watchout computer IPv4 address (overrides config)")
	rootCmd.PersistentFlags().String("type", "", "Device type: prod or disp (overrides config)")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")

	rootCmd.AddCommand(
		newSendCommand(),
		newActionsCommand(),
		newServeCommand(),
		newXTouchCommand(),
		newDeckCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --config and applies the --host and --type overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("host") {
		cfg.Device.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("type") {
		typ, _ := cmd.Flags().GetString("type")
		cfg.Device.Type = watchout.DeviceType(typ)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes to the configured log file, rotated by size, or to
// stderr.
func newLogger(cfg config.LogConfig) (*log.Logger, io.Closer) {
	if cfg.File == "" {
		return log.New(os.Stderr, "", log.LstdFlags), nopCloser{}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return log.New(lj, "", log.LstdFlags), lj
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
