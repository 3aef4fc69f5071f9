package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sellerdesk/trust-engine/internal/store"
)

var clusterStoreID string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the auto-submit eligibility sweep once",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		flipped, err := env.Engine.RunHourlyEligibilitySweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Eligibility sweep complete: %d pattern(s) became eligible\n", flipped)
		return nil
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Mine un-patterned questions into knowledge suggestions",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		if clusterStoreID != "" {
			if err := env.Engine.RunClustering(ctx, clusterStoreID); err != nil {
				return err
			}
		} else if err := env.Engine.RunDailyClustering(ctx); err != nil {
			return err
		}

		return printPendingSuggestions(cmd, env.Store, clusterStoreID)
	},
}

func printPendingSuggestions(cmd *cobra.Command, st store.Store, storeID string) error {
	ctx := cmd.Context()

	storeIDs := []string{storeID}
	if storeID == "" {
		var err error
		storeIDs, err = st.ListStoreIDs(ctx)
		if err != nil {
			return err
		}
	}

	total := 0
	for _, id := range storeIDs {
		pending, err := st.ListPendingSuggestions(ctx, id)
		if err != nil {
			return err
		}
		for _, s := range pending {
			fmt.Printf("%-36s  %-8s  %3d questions  %s\n", s.ID, s.Priority, s.QuestionCount, s.SuggestedTitle)
		}
		total += len(pending)
	}
	fmt.Printf("%d pending suggestion(s)\n", total)
	return nil
}

func init() {
	clusterCmd.Flags().StringVar(&clusterStoreID, "store", "", "limit clustering to one store")
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(clusterCmd)
}
