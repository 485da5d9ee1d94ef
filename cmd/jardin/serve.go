package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jardin/internal/auth"
	"jardin/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API and the reconnect worker",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "server listen host, e.g. 0.0.0.0")
	serveCmd.Flags().Int("port", 0, "server listen port, e.g. 8787")
	serveCmd.Flags().String("user", "", "sign this user in at startup")
	serveCmd.Flags().String("email", "", "email of the --user account")
}

func runServe(cmd *cobra.Command, args []string) error {
	if host, _ := cmd.Flags().GetString("host"); cmd.Flags().Changed("host") {
		cfg.Server.Host = strings.TrimSpace(host)
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if userID, _ := cmd.Flags().GetString("user"); strings.TrimSpace(userID) != "" {
		email, _ := cmd.Flags().GetString("email")
		_, report, err := a.agent.SignIn(ctx, auth.User{ID: strings.TrimSpace(userID), Email: strings.TrimSpace(email)})
		if err != nil {
			logger.Warn("startup sign-in render failed", zap.Error(err))
		} else {
			logger.Info("signed in at startup", zap.String("user_id", userID), zap.Int("confirmed", len(report.Confirmed)))
		}
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           httpapi.NewRouter(httpapi.NewHandler(a.agent, logger.Named("http"))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("jardin listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return a.agent.Run(gctx)
	})
	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Watch(gctx)
		})
	}
	if cfg.Connectivity.Probe {
		g.Go(func() error {
			return a.monitor.Run(gctx, a.classifier.Ping, cfg.ProbeInterval())
		})
	}

	err = g.Wait()
	logger.Info("jardin stopped")
	return err
}
