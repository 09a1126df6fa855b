package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRecomputeCmd rebuilds one user's snapshot from their stored results.
func NewRecomputeCmd(configPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild a user's performance snapshot from stored results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildStack(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			snap, badges, err := rt.service.Recompute(cmd.Context(), userID)
			if err != nil {
				return err
			}
			log.Info("snapshot recomputed",
				zap.String("user_id", userID),
				zap.Int("total_quizzes", snap.TotalQuizzes),
				zap.Int("new_badges", len(badges)))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to recompute")
	return cmd
}
