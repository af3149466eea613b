package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/prstats/internal/models"
	"github.com/joescharf/prstats/internal/output"
)

var cacheShowRaw bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or invalidate the local PR cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <number>",
	Short: "Show a cached pull request and its reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := parsePRNumber(args[0])
		if err != nil {
			return err
		}
		return cacheShowRun(cmd, number)
	},
}

var cacheClosedCmd = &cobra.Command{
	Use:   "closed",
	Short: "List cached closed pull requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cacheClosedRun(cmd)
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <number>",
	Short: "Drop cached reviews so the next run refetches them",
	Long: `Closed pull requests with cached reviews are never refetched. If a
closed pull request was reopened and reviewed again, invalidate it so
the next stats run pulls its reviews from GitHub.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := parsePRNumber(args[0])
		if err != nil {
			return err
		}
		return cacheInvalidateRun(cmd, number)
	},
}

func init() {
	cacheShowCmd.Flags().BoolVar(&cacheShowRaw, "raw", false, "Print the stored GitHub payloads as JSON")
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClosedCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}

func parsePRNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid pull request number: %q", arg)
	}
	return n, nil
}

func cacheShowRun(cmd *cobra.Command, number int) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	rec, err := s.GetPR(cmd.Context(), number)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("pull request #%d is not cached (run 'prstats stats' first)", number)
	}
	if err != nil {
		return err
	}
	reviews, err := s.GetReviews(cmd.Context(), number)
	if err != nil {
		return err
	}

	if cacheShowRaw {
		raws := make([]json.RawMessage, 0, len(reviews))
		for _, r := range reviews {
			raws = append(raws, r.Raw)
		}
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"pull_request": rec.Raw, "reviews": raws})
	}

	fmt.Fprintf(ui.Out, "#%d %s\n", rec.Number, output.Cyan(rec.Title))
	fmt.Fprintf(ui.Out, "  State:   %s\n", output.StatusColor(string(rec.State)))
	fmt.Fprintf(ui.Out, "  Created: %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(ui.Out, "  Updated: %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(ui.Out, "  Cached:  %s\n", rec.CachedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(ui.Out)

	if len(reviews) == 0 {
		ui.Info("No cached reviews")
		return nil
	}

	table := ui.Table([]string{"Reviewer", "State", "Submitted"})
	for _, r := range reviews {
		submitted := "pending"
		if r.SubmittedAt != nil {
			submitted = r.SubmittedAt.Format("2006-01-02 15:04:05")
		}
		_ = table.Append([]string{r.Reviewer, r.State, submitted})
	}
	return table.Render()
}

func cacheClosedRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	prs, err := s.ListClosedPRs(cmd.Context())
	if err != nil {
		return err
	}
	if len(prs) == 0 {
		ui.Info("No closed pull requests cached")
		return nil
	}

	table := ui.Table([]string{"#", "Title", "Created", "Cached Reviews"})
	for _, pr := range prs {
		reviews, err := s.GetReviews(cmd.Context(), pr.Number)
		if err != nil {
			return err
		}
		_ = table.Append([]string{
			strconv.Itoa(pr.Number),
			pr.Title,
			pr.CreatedAt.Format("2006-01-02"),
			strconv.Itoa(len(reviews)),
		})
	}
	return table.Render()
}

func cacheInvalidateRun(cmd *cobra.Command, number int) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	n, err := s.InvalidateReviews(cmd.Context(), number)
	if err != nil {
		return err
	}
	if n == 0 {
		ui.Info("No cached reviews for PR #%d", number)
		return nil
	}
	ui.Success("Removed %d cached review(s) for PR #%d", n, number)
	return nil
}
