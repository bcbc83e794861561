package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gitlab.com/testhub.net/internal/adapter/redis/reportport"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
)

func newReportsCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect suite execution reports",
	}

	var (
		suite string
		limit int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := secondary.ReportFilter{Limit: limit}
			if suite != "" {
				id, err := uuid.Parse(suite)
				if err != nil {
					return fmt.Errorf("invalid suite id %q", suite)
				}
				filter.SuiteID = &id
			}

			app, err := NewApp(cmd.Context(), st.cfg, st.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			reports, err := app.executionService.ListReports(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printReportList(cmd.OutOrStdout(), reports)
			return nil
		},
	}
	listCmd.Flags().StringVar(&suite, "suite", "", "Only reports of this suite id")
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of reports, 0 for all")

	showCmd := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show one report with its case results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid report id %q", args[0])
			}

			app, err := NewApp(cmd.Context(), st.cfg, st.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.executionService.GetReport(cmd.Context(), id)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print recently finished runs, then follow new ones (needs redis)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := NewApp(ctx, st.cfg, st.logger)
			if err != nil {
				return err
			}
			defer app.Close()
			if app.publisher == nil {
				return errors.New("report events need REDIS_ENABLED=true")
			}

			out := cmd.OutOrStdout()
			recent, err := app.publisher.RecentEvents(ctx)
			if err != nil {
				return err
			}
			for i := len(recent) - 1; i >= 0; i-- {
				printEvent(out, *recent[i])
			}
			return app.publisher.Subscribe(ctx, func(event reportport.ReportEvent) {
				printEvent(out, event)
			})
		},
	}

	cmd.AddCommand(listCmd, showCmd, watchCmd)
	return cmd
}

func statusColor(status string) func(format string, a ...interface{}) string {
	switch status {
	case string(domain.ReportStatusCompleted), string(domain.CaseStatusPassed):
		return color.GreenString
	case string(domain.ReportStatusFailed), string(domain.CaseStatusError):
		return color.RedString
	case string(domain.ReportStatusRunning):
		return color.CyanString
	default:
		return color.YellowString
	}
}

func paint(status string) string {
	return statusColor(status)("%s", status)
}

func summaryLine(s domain.ReportSummary) string {
	return fmt.Sprintf("%d total, %s passed, %s failed, %s errored, %d pending",
		s.Total, color.GreenString("%d", s.Passed), color.RedString("%d", s.Failed), color.RedString("%d", s.Errored), s.Pending)
}

func printReportList(out io.Writer, reports []*domain.TestReport) {
	if len(reports) == 0 {
		fmt.Fprintln(out, color.YellowString("No reports found"))
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSUITE\tSTATUS\tSTARTED\tPASSED/TOTAL")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n",
			r.ID, r.SuiteName, paint(string(r.Status)), r.StartedAt.Format("2006-01-02 15:04:05"), r.Summary.Passed, r.Summary.Total)
	}
	_ = w.Flush()
}

func printReport(out io.Writer, r *domain.TestReport) {
	fmt.Fprintf(out, "Report %s\n", r.ID)
	fmt.Fprintf(out, "Suite   %s (%s)\n", r.SuiteName, r.SuiteID)
	fmt.Fprintf(out, "Status  %s\n", paint(string(r.Status)))
	fmt.Fprintf(out, "Started %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	if r.FinishedAt != nil {
		fmt.Fprintf(out, "Took    %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	if r.Error != "" {
		fmt.Fprintf(out, "Error   %s\n", color.RedString(r.Error))
	}
	fmt.Fprintf(out, "Summary %s\n\n", summaryLine(r.Summary))

	for i, res := range r.Results {
		title := res.Title
		if title == "" {
			title = res.TestCaseID.String()
		}
		fmt.Fprintf(out, "%3d. [%s] %s", i+1, paint(string(res.Status)), title)
		if res.Method != "" {
			fmt.Fprintf(out, "  %s %s -> %d (%dms)", res.Method, res.URL, res.StatusCode, res.DurationMs)
		}
		fmt.Fprintln(out)
		if res.Error != "" {
			fmt.Fprintf(out, "     %s\n", color.RedString(res.Error))
		}
		for _, a := range res.Assertions {
			if !a.Passed {
				fmt.Fprintf(out, "     %s %s %s: %s\n", color.RedString("✗"), a.Check, a.Comparator, a.Message)
			}
		}
	}
}

func printEvent(out io.Writer, e reportport.ReportEvent) {
	fmt.Fprintf(out, "%s  %-10s %s  %s\n", e.ReportID, paint(string(e.Status)), e.SuiteName, summaryLine(e.Summary))
}
