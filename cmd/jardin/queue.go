package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect or clear captures waiting for a connection",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued captures in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		items, err := a.svc.Pending(cmd.Context())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			printf(cmd, "no pending captures\n")
			return nil
		}
		for i, item := range items {
			printf(cmd, "%2d. %s (%d bytes)\n", i+1, item.ItemID, len(item.Photo))
		}
		return nil
	},
}

var queueDiscardCmd = &cobra.Command{
	Use:   "discard [item-id...]",
	Short: "Drop stuck captures from the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("name at least one item id or pass --all")
		}

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		ids := args
		if all {
			items, err := a.svc.Pending(cmd.Context())
			if err != nil {
				return err
			}
			ids = ids[:0]
			for _, item := range items {
				ids = append(ids, item.ItemID)
			}
			if len(ids) == 0 {
				printf(cmd, "no pending captures\n")
				return nil
			}
		}
		n, err := a.svc.Discard(cmd.Context(), ids...)
		if err != nil {
			return err
		}
		printf(cmd, "discarded %d\n", n)
		return nil
	},
}

func init() {
	queueDiscardCmd.Flags().Bool("all", false, "discard every queued capture")
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueDiscardCmd)
}
