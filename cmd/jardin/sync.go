package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay queued captures against the classifier once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		userID, _ := cmd.Flags().GetString("user")
		email, _ := cmd.Flags().GetString("email")
		sess := a.openSession(cmd.Context(), userID, email)
		sess, report, err := a.svc.Reconcile(cmd.Context(), sess)
		if err != nil {
			return err
		}

		printf(cmd, "attempted %d, confirmed %d, still queued %d\n", report.Attempted, len(report.Confirmed), len(report.Retained))
		if len(report.Confirmed) > 0 {
			printf(cmd, "confirmed: %s\n", strings.Join(report.Confirmed, ", "))
		}
		for _, m := range report.Milestones {
			printf(cmd, "%s\n", m.Message)
		}
		printf(cmd, "level %d\n", sess.Level)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringP("user", "u", "", "user id to commit confirmations for")
	syncCmd.Flags().String("email", "", "email stored with the progress")
	_ = syncCmd.MarkFlagRequired("user")
}
