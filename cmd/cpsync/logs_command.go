package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/five82/cpsync/internal/logtail"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var level string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the cpsync log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			minLevel := zapcore.DebugLevel
			if level != "" {
				if err := minLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
					return fmt.Errorf("invalid level %q", level)
				}
			}

			path := cfg.LogPath()
			tail, err := logtail.Read(path, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range logtail.Filter(tail, minLevel) {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			keep := true
			return logtail.Follow(runCtx, path, func(line string) {
				if lvl, ok := logtail.LevelOf(line); ok {
					keep = lvl >= minLevel
				}
				if keep {
					fmt.Fprintln(out, line)
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Lines to show, 0 for all")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	return cmd
}
