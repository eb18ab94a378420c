package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [ADDRESS]",
		Short: "Check whether the device answers and is ready",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.bootstrap()
			if err != nil {
				return err
			}
			defer rt.Close()

			address := rt.Start.Address
			if len(args) == 1 {
				address = args[0]
			}
			if address == "" {
				return errors.New("no device address: pass one as an argument or use --device")
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			result := rt.Controller.Connect(cmd.Context(), address)
			if result.Err != nil && result.BaseURL == "" {
				return fmt.Errorf("probe %s: %w", address, result.Err)
			}
			if !result.Connected() {
				fmt.Fprintf(out, "%s  %s\n", paintStatus(result.Reason(), false, colorize), result.BaseURL)
				return fmt.Errorf("device not available: %s", result.Reason())
			}
			fmt.Fprintf(out, "%s  %s\n", paintStatus("Connected", true, colorize), result.BaseURL)
			return nil
		},
	}
}
