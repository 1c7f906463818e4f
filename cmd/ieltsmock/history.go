package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/ieltsmock/internal/config"
	"github.com/verte-zerg/ieltsmock/internal/export"
	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/stats"
	"github.com/verte-zerg/ieltsmock/internal/statsui"
	"github.com/verte-zerg/ieltsmock/internal/store"
)

var (
	historySection string
	historySince   string
	historyLast    int
	historyWindow  int
	historyExport  string
	historyPlain   bool
	historyRemote  bool
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past attempts",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySection, "section", "", "section filter")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N attempts")
	cmd.Flags().IntVar(&historyWindow, "window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&historyExport, "export", "", "write attempts to an .xlsx workbook instead of opening the dashboard")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print tables instead of opening the dashboard")
	cmd.Flags().BoolVar(&historyRemote, "remote", false, "list attempts recorded by the backend")
	return cmd
}

func historyConfig() (model.HistoryConfig, error) {
	since, err := parseSince(historySince)
	if err != nil {
		return model.HistoryConfig{}, err
	}
	section := ""
	if historySection != "" {
		parsed, ok := model.ParseSection(historySection)
		if !ok {
			return model.HistoryConfig{}, fmt.Errorf("--section must be one of Listening, Reading, Writing, Speaking")
		}
		section = string(parsed)
	}
	if historyLast < 0 {
		return model.HistoryConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if historyWindow < 1 {
		return model.HistoryConfig{}, fmt.Errorf("--window must be >= 1")
	}
	return model.HistoryConfig{
		Section:     section,
		Since:       since,
		Last:        historyLast,
		CurveWindow: historyWindow,
	}, nil
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := historyConfig()
	if err != nil {
		return err
	}
	if historyRemote {
		return runRemoteHistory(cmd)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := commandContext(cmd)
	if historyExport != "" {
		attempts, err := st.ListAttempts(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to load attempts: %w", err)
		}
		if err := export.WriteFile(ctx, historyExport, st, attempts); err != nil {
			return err
		}
		logErrf("Exported %d attempts to %s\n", len(attempts), historyExport)
		return nil
	}

	if historyPlain {
		report, err := stats.BuildReport(ctx, st, cfg)
		if err != nil {
			return err
		}
		return writePlainHistory(cmd.OutOrStdout(), report, cfg.CurveWindow)
	}

	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func writePlainHistory(w io.Writer, report stats.Report, window int) error {
	if err := stats.RenderSummary(w, report.Attempts); err != nil {
		return err
	}
	if len(report.Attempts) == 0 {
		return nil
	}
	if err := stats.RenderSectionTable(w, report.Summary.Sections); err != nil {
		return err
	}
	if err := stats.RenderAttemptsTable(w, report.Attempts); err != nil {
		return err
	}
	return stats.RenderTrend(w, report.Attempts, window, stats.TerminalWidth(), 8)
}

func runRemoteHistory(cmd *cobra.Command) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	if !a.session.Authenticated() {
		return fmt.Errorf("not signed in; run `ieltsmock login`")
	}
	attempts, err := a.client.MyAttempts(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to load attempts: %w", err)
	}
	if len(attempts) == 0 {
		logErrln("No attempts recorded on the server.")
		return nil
	}
	out := cmd.OutOrStdout()
	for _, ra := range attempts {
		if _, err := fmt.Fprintf(out, "%s  %-9s  %5.1f%%  %s\n",
			ra.Date.Local().Format("2006-01-02 15:04"), ra.Test.Section, ra.Score, ra.Test.Title); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
