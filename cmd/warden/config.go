package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/intrntsrfr/warden/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit the config file",
}

var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Print the value at a dotted path, such as modules.warn.threshold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := loadConfig("config")
		if err != nil {
			return err
		}
		path, err := config.ParsePath(args[0])
		if err != nil {
			return err
		}
		raw, err := store.Lookup(path)
		if err != nil {
			return err
		}

		var out bytes.Buffer
		if err := json.Indent(&out, raw, "", "  "); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.String())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Replace the value at a dotted path. Values that are not valid JSON are stored as strings",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := loadConfig("config")
		if err != nil {
			return err
		}
		path, err := config.ParsePath(args[0])
		if err != nil {
			return err
		}

		if err := store.EditOption(path, config.ParseValue(args[1])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated %v in %v\n", args[0], store.Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
