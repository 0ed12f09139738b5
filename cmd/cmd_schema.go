// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the tables on the configured database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, closeRepo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer closeRepo()

		log.Infof("Schema ready on %s", viper.GetString("db-driver"))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
