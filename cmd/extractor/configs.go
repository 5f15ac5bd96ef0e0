package main

import (
	"github.com/spf13/cobra"
)

func newConfigsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Inspect stored extraction configs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every stored config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := openContainer(cmd.Context(), "configs")
			if err != nil {
				return err
			}
			defer container.Close()

			cfgs, err := container.Store.ListConfigs(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cfgs)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <domain>",
		Short: "Print the config for one domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := openContainer(cmd.Context(), "configs")
			if err != nil {
				return err
			}
			defer container.Close()

			cfg, err := container.Store.GetConfig(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	})
	return cmd
}
