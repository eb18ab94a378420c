package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"github.com/five82/cpsync/internal/app"
	"github.com/five82/cpsync/internal/device"
)

// Half block characters for the QR code.
const (
	qrBlackWhite = "▄"
	qrBlackBlack = " "
	qrWhiteBlack = "▀"
	qrWhiteWhite = "█"
)

func newQRCommand(ctx *commandContext) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "qr [ADDRESS]",
		Short: "Print a QR code that opens the shell with the device pre-filled",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			address := ctx.flags.device
			if len(args) == 1 {
				address = args[0]
			}
			if address == "" {
				address = cfg.DeviceAddress
			}
			if address == "" {
				return errors.New("no device address: pass one as an argument or use --device")
			}
			normalized, err := device.NormalizeAddress(address)
			if err != nil {
				return fmt.Errorf("invalid device address %q: %w", address, err)
			}
			if base == "" {
				base = "http://" + cfg.Listen
			}

			link := app.BuildLink(base, normalized)
			out := cmd.OutOrStdout()
			writeQR(out, link)
			fmt.Fprintln(out, link)
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "Shell URL the code points at (defaults to http://<listen>)")
	return cmd
}

func writeQR(w io.Writer, link string) {
	qrterminal.GenerateWithConfig(link, qrterminal.Config{
		Level:          qrterminal.M,
		Writer:         w,
		HalfBlocks:     true,
		BlackChar:      qrBlackBlack,
		WhiteBlackChar: qrWhiteBlack,
		WhiteChar:      qrWhiteWhite,
		BlackWhiteChar: qrBlackWhite,
		QuietZone:      1,
	})
}
