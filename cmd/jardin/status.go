package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"jardin/internal/render"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show level, progress and the unlocked plants",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		userID, _ := cmd.Flags().GetString("user")
		width, _ := cmd.Flags().GetInt("width")
		sess := a.openSession(cmd.Context(), userID, "")
		view, err := a.svc.View(cmd.Context(), sess)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
		view.Online = a.classifier.Ping(pingCtx) == nil
		cancel()
		printf(cmd, "%s\n", render.Progress(view, width))
		return nil
	},
}

func init() {
	statusCmd.Flags().StringP("user", "u", "", "user id whose progress to show")
	statusCmd.Flags().Int("width", 60, "output width in columns")
	_ = statusCmd.MarkFlagRequired("user")
}
