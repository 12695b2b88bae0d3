package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/five82/courier/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (defaults to ~/.config/courier/config.toml)")
	envFile := flag.String("env-file", "", "dotenv file with COURIER_* overrides (defaults to ./.env)")
	poll := flag.Duration("poll", 0, "job polling interval, e.g. 3s (optional)")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (optional)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:   *configPath,
		EnvFile:      *envFile,
		PollInterval: *poll,
		MetricsAddr:  *metricsAddr,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "courier: %v\n", err)
		return 1
	}
	return 0
}
