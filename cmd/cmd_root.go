// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nulfrost/hotwheels-api/store"
	"github.com/nulfrost/hotwheels-api/wiki"
)

var log = logrus.New()

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

var cfgFile string

// env variables read on top of the HOTWHEELS_ prefixed ones.
var extraEnv = map[string][]string{
	"d1-account-id":  {"HOTWHEELS_D1_ACCOUNT_ID", "CLOUDFLARE_ACCOUNT_ID"},
	"d1-database-id": {"HOTWHEELS_D1_DATABASE_ID", "D1_DATABASE_ID"},
	"d1-api-token":   {"HOTWHEELS_D1_API_TOKEN", "CLOUDFLARE_API_TOKEN"},
}

var rootCmd = &cobra.Command{
	Use:   "hotwheels",
	Short: "Hot Wheels wiki scraper and API",
	Long: `
hotwheels scrapes the designers and the yearly releases listed on the Hot
Wheels fandom wiki into a database, and serves them back as a read-only API.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initConfig(cmd)
	},
}

// initConfig merges flags, environment and the optional config file.
func initConfig(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	viper.SetEnvPrefix("hotwheels")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for key, envs := range extraEnv {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("hotwheels")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	level, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}

	log.SetLevel(level)

	return nil
}

func storeConfig() store.Config {
	return store.Config{
		Driver: viper.GetString("db-driver"),
		DSN:    viper.GetString("db-dsn"),
		D1: store.D1Config{
			AccountID:  viper.GetString("d1-account-id"),
			DatabaseID: viper.GetString("d1-database-id"),
			APIToken:   viper.GetString("d1-api-token"),
		},
		Logger: log,
	}
}

// openRepository connects to the configured store and makes sure the
// tables exist. The returned func closes the connection.
func openRepository(ctx context.Context) (wiki.Repository, func(), error) {
	cfg := storeConfig()

	conn, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}

	repo := wiki.NewRepository(conn)
	if err := repo.CreateSchema(ctx); err != nil {
		_ = conn.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	return repo, func() {
		if err := conn.Close(); err != nil {
			log.Warnf("Closing %s store: %v", cfg.Driver, err)
		}
	}, nil
}

var Version = "dev"

func Execute(version string) {
	Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		var runErr *wiki.RunError
		if errors.As(err, &runErr) {
			log.Errorf("Scraping failed at stage %s: %v", runErr.Stage, runErr.Err)
		} else {
			log.Error(err)
		}

		os.Exit(1)
	}
}

// addStoreFlags registers the logging and database flags.
func addStoreFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().String(
		"db-driver",
		store.DriverSQLite,
		"Database backend: sqlite, duckdb, postgres or d1",
	)
	cmd.PersistentFlags().String("db-dsn", "hotwheels.db", "Database file or connection string")
	cmd.PersistentFlags().String("d1-account-id", "", "Cloudflare account id")
	cmd.PersistentFlags().String("d1-database-id", "", "Cloudflare D1 database id")
	cmd.PersistentFlags().String("d1-api-token", "", "Cloudflare API token")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./hotwheels.yaml)")
	addStoreFlags(rootCmd)
}
