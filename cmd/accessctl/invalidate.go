package main

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-hr/odyssey-hr/jobs"
)

func newInvalidateCmd() *cobra.Command {
	var (
		userID    int64
		all       bool
		redisAddr string
	)
	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Schedule principal cache invalidation",
		Long: `Enqueue a principals:invalidate job so cached principals are reloaded
after roles or grants changed in the database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (userID != 0) {
				return errors.New("use exactly one of --user or --all")
			}
			if userID < 0 {
				return errors.New("--user must be a positive id")
			}
			client := jobs.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
			defer func() { _ = client.Close() }()

			info, err := client.EnqueuePrincipalsInvalidate(cmd.Context(), userID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "queued %s (task %s)\n", info.Type, info.ID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user whose cached principal is dropped")
	cmd.Flags().BoolVar(&all, "all", false, "drop every cached principal")
	cmd.Flags().StringVar(&redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "Redis address of the job queue")
	return cmd
}
