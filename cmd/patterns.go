package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sellerdesk/trust-engine/internal/model"
	"github.com/sellerdesk/trust-engine/internal/store"
)

var (
	patternsStoreID      string
	patternsLevel        string
	patternsEligibleOnly bool
	patternsProduct      string
	patternsCategory     string
	patternsLimit        int
	exportOut            string
	disableReason        string
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and moderate canonical patterns",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patterns matching the filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		patterns, err := env.Store.ListPatterns(cmd.Context(), patternFilter())
		if err != nil {
			return err
		}

		for _, p := range patterns {
			eligible := " "
			if p.AutoSubmitEligible {
				eligible = "*"
			}
			fmt.Printf("%-36s %s %-8s occ=%-4d appr=%-3d rej=%-3d conf=%.4f  %s\n",
				p.ID, eligible, p.SeniorityLevel, p.OccurrenceCount,
				p.ApprovalCount, p.RejectionCount, p.ConfidenceScore,
				p.CanonicalQuestion)
		}
		fmt.Printf("%d pattern(s)\n", len(patterns))
		return nil
	},
}

var patternsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export patterns matching the filters to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		patterns, err := env.Store.ListPatterns(cmd.Context(), patternFilter())
		if err != nil {
			return err
		}

		if err := writeWorkbook(exportOut, patterns); err != nil {
			return err
		}

		zap.L().Info("patterns exported",
			zap.Int("count", len(patterns)),
			zap.String("file", exportOut),
		)
		fmt.Printf("Exported %d pattern(s) to %s\n", len(patterns), exportOut)
		return nil
	},
}

func writeWorkbook(path string, patterns []model.CanonicalPattern) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Patterns")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"ID", "Store", "Level", "Question", "Occurrences",
		"Approvals", "Rejections", "Modifications", "Approval Rate",
		"Confidence", "Auto-Submit", "Product", "Category",
		"First Seen", "Last Seen", "Last Review",
	} {
		header.AddCell().Value = h
	}

	for _, p := range patterns {
		row := sheet.AddRow()
		row.AddCell().Value = p.ID
		row.AddCell().Value = p.StoreID
		row.AddCell().Value = string(p.SeniorityLevel)
		row.AddCell().Value = p.CanonicalQuestion
		row.AddCell().SetInt(p.OccurrenceCount)
		row.AddCell().SetInt(p.ApprovalCount)
		row.AddCell().SetInt(p.RejectionCount)
		row.AddCell().SetInt(p.ModificationCount)
		row.AddCell().SetFloatWithFormat(p.ApprovalRate(), "0.00")
		row.AddCell().SetFloatWithFormat(p.ConfidenceScore, "0.0000")
		row.AddCell().SetBool(p.AutoSubmitEligible)
		row.AddCell().Value = p.ProductID
		row.AddCell().Value = p.Category
		row.AddCell().Value = p.FirstSeenAt.Format("2006-01-02 15:04")
		row.AddCell().Value = p.LastSeenAt.Format("2006-01-02 15:04")
		if p.LastHumanReview != nil {
			row.AddCell().Value = p.LastHumanReview.Format("2006-01-02 15:04")
		} else {
			row.AddCell().Value = ""
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func patternFilter() store.PatternFilter {
	return store.PatternFilter{
		StoreID:      patternsStoreID,
		Level:        model.SeniorityLevel(patternsLevel),
		EligibleOnly: patternsEligibleOnly,
		ProductID:    patternsProduct,
		Category:     patternsCategory,
		Limit:        patternsLimit,
	}
}

var patternsReviewCmd = &cobra.Command{
	Use:   "review <pattern-id> <APPROVED|REJECTED|MODIFIED>",
	Short: "Record a human review outcome",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome := model.ReviewOutcome(args[1])
		if !outcome.Valid() {
			return eris.Errorf("invalid outcome %q", args[1])
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Engine.OnHumanReview(cmd.Context(), args[0], outcome)
		if err != nil {
			return err
		}
		printPattern(p)
		return nil
	},
}

var patternsPromoteCmd = &cobra.Command{
	Use:   "promote <pattern-id>",
	Short: "Raise a pattern one seniority level",
	Args:  cobra.ExactArgs(1),
	RunE: patternActionRunE(func(e *env, cmd *cobra.Command, id string) (*model.CanonicalPattern, error) {
		return e.Engine.Promote(cmd.Context(), id)
	}),
}

var patternsDemoteCmd = &cobra.Command{
	Use:   "demote <pattern-id>",
	Short: "Lower a pattern one seniority level",
	Args:  cobra.ExactArgs(1),
	RunE: patternActionRunE(func(e *env, cmd *cobra.Command, id string) (*model.CanonicalPattern, error) {
		return e.Engine.Demote(cmd.Context(), id)
	}),
}

var patternsEnableCmd = &cobra.Command{
	Use:   "enable-auto-submit <pattern-id>",
	Short: "Turn auto-submit on immediately, bypassing the waiting period",
	Args:  cobra.ExactArgs(1),
	RunE: patternActionRunE(func(e *env, cmd *cobra.Command, id string) (*model.CanonicalPattern, error) {
		return e.Engine.EnableAutoSubmit(cmd.Context(), id)
	}),
}

var patternsDisableCmd = &cobra.Command{
	Use:   "disable-auto-submit <pattern-id>",
	Short: "Turn auto-submit off",
	Args:  cobra.ExactArgs(1),
	RunE: patternActionRunE(func(e *env, cmd *cobra.Command, id string) (*model.CanonicalPattern, error) {
		return e.Engine.DisableAutoSubmit(cmd.Context(), id, disableReason)
	}),
}

func patternActionRunE(fn func(e *env, cmd *cobra.Command, id string) (*model.CanonicalPattern, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := fn(env, cmd, args[0])
		if err != nil {
			return err
		}
		printPattern(p)
		return nil
	}
}

func printPattern(p *model.CanonicalPattern) {
	fmt.Printf("%s  %s  conf=%.4f  auto-submit=%t\n",
		p.ID, p.SeniorityLevel, p.ConfidenceScore, p.AutoSubmitEligible)
	if p.AutoSubmitDisableReason != "" {
		fmt.Printf("  disabled: %s\n", p.AutoSubmitDisableReason)
	}
}

func init() {
	patternsCmd.PersistentFlags().StringVar(&patternsStoreID, "store", "", "filter by store")
	patternsCmd.PersistentFlags().StringVar(&patternsLevel, "level", "", "filter by seniority level")
	patternsCmd.PersistentFlags().BoolVar(&patternsEligibleOnly, "eligible", false, "only auto-submit eligible patterns")
	patternsCmd.PersistentFlags().StringVar(&patternsProduct, "product", "", "filter by product")
	patternsCmd.PersistentFlags().StringVar(&patternsCategory, "category", "", "filter by category")
	patternsCmd.PersistentFlags().IntVar(&patternsLimit, "limit", 0, "max patterns to return")

	patternsExportCmd.Flags().StringVar(&exportOut, "out", "patterns.xlsx", "output workbook path")
	patternsDisableCmd.Flags().StringVar(&disableReason, "reason", "manually disabled", "reason recorded on the pattern")

	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsExportCmd)
	patternsCmd.AddCommand(patternsReviewCmd)
	patternsCmd.AddCommand(patternsPromoteCmd)
	patternsCmd.AddCommand(patternsDemoteCmd)
	patternsCmd.AddCommand(patternsEnableCmd)
	patternsCmd.AddCommand(patternsDisableCmd)

	rootCmd.AddCommand(patternsCmd)
}
