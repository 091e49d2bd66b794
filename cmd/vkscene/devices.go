// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/devblok/vkscene/scene"
)

func newDevicesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List physical devices as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd, opts)
			if err != nil {
				return err
			}
			devices, err := scene.Devices(cfg.Instance)
			if err != nil {
				return err
			}
			bytes, err := json.MarshalIndent(devices, "", "  ")
			if err != nil {
				return errors.Wrap(err, "json.Marshal()")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", bytes)
			return nil
		},
	}
}
