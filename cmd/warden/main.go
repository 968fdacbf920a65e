package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/intrntsrfr/warden/config"
	"github.com/intrntsrfr/warden/logger"
)

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "warden",
	Short:         "A Discord moderation bot",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with WARDEN_* variables, skipped when absent")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $WARDEN_CONFIG or "+config.DefaultPath+")")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the dotenv file and the environment, then the config file
// they point at. The returned logger honours the configured log level.
func loadConfig(name string) (*config.Store, *logger.Logger, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("load %v: %w", envFile, err)
		}
	}
	env, err := config.LoadEnv()
	if err != nil {
		return nil, nil, err
	}
	level, err := logger.ParseLevel(env.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	boot := logger.New(name, level)

	path := env.Path
	if configPath != "" {
		path = configPath
	}
	store, err := config.Load(path, boot)
	if err != nil {
		return nil, nil, err
	}
	store.ApplyEnv(env)

	level, err = logger.ParseLevel(store.Config().LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("logLevel: %w", err)
	}
	return store, logger.New(name, level), nil
}
