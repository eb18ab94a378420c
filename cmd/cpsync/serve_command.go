package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/five82/cpsync/internal/app"
	"github.com/five82/cpsync/internal/inbox"
	"github.com/five82/cpsync/internal/server"
	"github.com/five82/cpsync/internal/shellcache"
	"github.com/five82/cpsync/internal/webshell"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var listen string
	var showQR bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the offline web shell and sync API for phones and browsers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rt, err := ctx.bootstrap()
			if err != nil {
				return err
			}
			defer rt.Close()
			cfg, logger := rt.Config, rt.Logger
			if listen == "" {
				listen = cfg.Listen
			}

			cache, err := shellcache.Open(runCtx, cfg.CacheDBPath(), cfg.ShellGeneration, logger)
			if err != nil {
				return err
			}
			defer func() { _ = cache.Close() }()

			origin, base := cfg.ShellOrigin, http.RoundTripper(nil)
			if origin == "" {
				origin, base = webshell.Origin, webshell.Transport()
			}
			// A failed install leaves the previous generation in place.
			if err := cache.Install(runCtx, origin, base); err != nil {
				logger.Warn("shell install failed", zap.String("origin", origin), zap.Error(err))
			} else if _, err := cache.Activate(runCtx); err != nil {
				logger.Warn("shell activate failed", zap.Error(err))
			}

			srv, err := server.New(runCtx, server.Options{
				Controller:   rt.Controller,
				Shell:        shellcache.NewTransport(base, cache, logger),
				Origin:       origin,
				UploadDir:    filepath.Join(cfg.StateDir, "uploads"),
				StartAddress: rt.Start.Address,
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			if rt.Start.Connect {
				go rt.Controller.Connect(runCtx, rt.Start.Address)
			}
			app.StartPoller(runCtx, rt.Controller, rt.PollInterval)

			if cfg.InboxDir != "" {
				watcher := inbox.New(cfg.InboxDir, rt.Controller.AddPaths, inbox.DefaultSettle, logger)
				go func() {
					if err := watcher.Run(runCtx); err != nil {
						logger.Warn("inbox watcher stopped", zap.String("dir", cfg.InboxDir), zap.Error(err))
					}
				}()
			}

			httpServer := &http.Server{
				Addr:              listen,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			link := app.BuildLink("http://"+listen, rt.Start.Address)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cpsync shell on %s\n", link)
			if showQR {
				writeQR(out, link)
			}
			logger.Info("serving shell",
				zap.String("listen", listen),
				zap.String("origin", origin),
				zap.String("generation", cache.Generation()))
			return server.RunServer(runCtx, httpServer)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (defaults to the configured listen)")
	cmd.Flags().BoolVar(&showQR, "qr", false, "Print a QR code for the shell link")
	return cmd
}
