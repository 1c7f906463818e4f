package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/ieltsmock/internal/config"
	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/testpack"
	"github.com/verte-zerg/ieltsmock/internal/validate"
)

var (
	testsSection    string
	testsDifficulty string
	testsSearch     string

	packSection string
)

func newTestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tests",
		Short: "List available tests",
		Args:  cobra.NoArgs,
		RunE:  runTestsCmd,
	}
	cmd.Flags().StringVar(&testsSection, "section", "", "section filter")
	cmd.Flags().StringVar(&testsDifficulty, "difficulty", "", "difficulty filter")
	cmd.Flags().StringVar(&testsSearch, "search", "", "search title and description")
	return cmd
}

func runTestsCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tests, err := catalogue(commandContext(cmd), a, model.TestFilter{
		Section:    testsSection,
		Difficulty: testsDifficulty,
		Search:     testsSearch,
	})
	if err != nil {
		return fmt.Errorf("failed to list tests: %w", err)
	}
	if len(tests) == 0 {
		logErrln("No tests found.")
		return nil
	}
	return writeTestsTable(cmd.OutOrStdout(), tests)
}

func writeTestsTable(w io.Writer, tests []model.Test) error {
	rows := make([][]string, 0, len(tests))
	for _, t := range tests {
		questions := "-"
		if n := len(t.Questions); n > 0 {
			questions = strconv.Itoa(n)
		}
		rows = append(rows, []string{
			t.ID,
			t.Title,
			string(t.Section),
			t.Difficulty,
			fmt.Sprintf("%d min", t.TimeLimitMinutes),
			questions,
		})
	}
	tbl := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderHeader(false).
		Headers("ID", "TITLE", "SECTION", "DIFFICULTY", "TIME", "QUESTIONS").
		Rows(rows...)
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

func newPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Manage the local test pack",
	}
	pull := &cobra.Command{
		Use:   "pull",
		Short: "Download test definitions for offline use",
		Args:  cobra.NoArgs,
		RunE:  runPackPullCmd,
	}
	pull.Flags().StringVar(&packSection, "section", "", "only download tests of this section")
	cmd.AddCommand(pull)
	return cmd
}

func runPackPullCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := commandContext(cmd)
	page, err := a.client.ListTests(ctx, model.TestFilter{Section: packSection})
	if err != nil {
		return fmt.Errorf("failed to list tests: %w", err)
	}
	pack := testpack.Open(config.DefaultTestPackDir())
	v := validate.New()
	saved := 0
	for _, summary := range page.Tests {
		test, err := a.client.GetTest(ctx, summary.ID)
		if err != nil {
			logErrf("Skipping %s: %v\n", summary.ID, err)
			continue
		}
		if err := v.Test(test); err != nil {
			logErrf("Skipping %s: %v\n", summary.ID, err)
			continue
		}
		if err := pack.Save(test); err != nil {
			return fmt.Errorf("failed to save %s: %w", test.ID, err)
		}
		saved++
	}
	logErrf("Saved %d of %d tests to %s\n", saved, len(page.Tests), pack.Dir())
	return nil
}
