package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"certquiz-service/internal/achievement"
	"certquiz-service/internal/config"
)

// NewBadgesCmd prints the configured badge catalog.
func NewBadgesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "List the badge catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			catalog, err := achievement.LoadCatalog(cfg.Badges.Path)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCRITERIA\tVALUE")
			for _, b := range catalog {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%g\n", b.ID, b.Name, b.CriteriaType, b.CriteriaValue)
			}
			return tw.Flush()
		},
	}
}
