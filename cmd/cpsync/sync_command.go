package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/five82/cpsync/internal/queue"
	"github.com/five82/cpsync/internal/syncer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync FILE...",
		Short: "Upload files to the device and print the result of each",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.bootstrap()
			if err != nil {
				return err
			}
			defer rt.Close()

			address := rt.Start.Address
			if address == "" {
				return errors.New("no device address: pass --device, --link, or set device_address in the config")
			}
			result := rt.Controller.Connect(cmd.Context(), address)
			if !result.Connected() {
				return fmt.Errorf("connect %s: %s", address, result.Reason())
			}

			added, addErr := rt.Controller.AddPaths(args...)
			if addErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", addErr)
			}
			if added == 0 {
				return errors.New("nothing to send")
			}

			entries := rt.Controller.Queue()
			pass, err := rt.Controller.Sync(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			writeSyncReport(out, pass, entries, isTerminal(out))
			if failed := pass.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(pass.Results))
			}
			return nil
		},
	}
}

// writeSyncReport prints one row per upload. entries is the queue as it was
// handed to the pass, so it lines up with the results by position.
func writeSyncReport(w io.Writer, pass syncer.Pass, entries []queue.Entry, colorize bool) {
	rows := make([][]string, 0, len(pass.Results))
	var sent uint64
	for i, r := range pass.Results {
		size := "-"
		if i < len(entries) {
			size = humanize.IBytes(uint64(entries[i].SizeBytes))
			if r.Success {
				sent += uint64(entries[i].SizeBytes)
			}
		}
		status := paint("sent", colorize, text.FgGreen)
		if !r.Success {
			status = paint("failed", colorize, text.FgRed, text.Bold)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), r.DisplayName, size, status})
	}

	fmt.Fprintln(w, renderTable(
		[]string{"#", "File", "Size", "Result"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
	))

	elapsed := pass.FinishedAt.Sub(pass.StartedAt).Round(10 * time.Millisecond)
	fmt.Fprintf(w, "Sent %d of %d (%s) in %s\n",
		len(pass.Results)-pass.Failed(), len(pass.Results), humanize.IBytes(sent), elapsed)
}
