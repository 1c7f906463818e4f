package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/config"
	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/testpack"
	"github.com/verte-zerg/ieltsmock/internal/validate"
)

var (
	profileName  string
	profileEmail string
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Change the name or email of the signed-in account",
		Args:  cobra.NoArgs,
		RunE:  runProfileCmd,
	}
	cmd.Flags().StringVar(&profileName, "name", "", "new display name")
	cmd.Flags().StringVar(&profileEmail, "email", "", "new account email")
	return cmd
}

func profileUpdate() (model.ProfileUpdate, error) {
	upd := model.ProfileUpdate{Name: profileName, Email: profileEmail}
	if upd.Name == "" && upd.Email == "" {
		return upd, fmt.Errorf("nothing to change; pass --name or --email")
	}
	if err := validate.New().ProfileUpdate(upd); err != nil {
		return upd, err
	}
	return upd, nil
}

func runProfileCmd(cmd *cobra.Command, _ []string) error {
	upd, err := profileUpdate()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	if !a.session.Authenticated() {
		return fmt.Errorf("not signed in; run `ieltsmock login`")
	}
	user, err := a.client.UpdateProfile(commandContext(cmd), upd)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	logErrf("Profile updated: %s <%s>\n", user.Name, user.Email)
	return nil
}

// testAdmin is the part of the API client the admin commands use.
type testAdmin interface {
	GetTest(ctx context.Context, id string) (model.Test, error)
	CreateTest(ctx context.Context, test model.Test) (model.Test, error)
	UpdateTest(ctx context.Context, id string, test model.Test) (model.Test, error)
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage tests and accounts (admin accounts only)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "push [test-id...]",
		Short: "Create or update backend tests from the local test pack",
		RunE:  runAdminPushCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <test-id>",
		Short: "Delete a test from the backend",
		Args:  cobra.ExactArgs(1),
		RunE:  runAdminDeleteCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "users",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE:  runAdminUsersCmd,
	})
	return cmd
}

func runAdminPushCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tests, err := selectPackTests(testpack.Open(config.DefaultTestPackDir()), args)
	if err != nil {
		return err
	}
	created, updated, err := pushTests(commandContext(cmd), a.client, tests)
	logErrf("Created %d, updated %d of %d tests\n", created, updated, len(tests))
	return err
}

func selectPackTests(pack *testpack.Pack, ids []string) ([]model.Test, error) {
	if len(ids) == 0 {
		tests, err := pack.List()
		if err != nil {
			return nil, fmt.Errorf("failed to read local test pack: %w", err)
		}
		return tests, nil
	}
	tests := make([]model.Test, 0, len(ids))
	for _, id := range ids {
		test, err := pack.Load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s from the local test pack: %w", id, err)
		}
		tests = append(tests, test)
	}
	return tests, nil
}

// pushTests validates each test, updates it when the backend already has it
// and creates it otherwise. It stops at the first failure.
func pushTests(ctx context.Context, admin testAdmin, tests []model.Test) (created, updated int, err error) {
	v := validate.New()
	for _, test := range tests {
		if err := v.Test(test); err != nil {
			return created, updated, fmt.Errorf("test %s: %w", test.ID, err)
		}
		_, gerr := admin.GetTest(ctx, test.ID)
		switch {
		case gerr == nil:
			if _, err := admin.UpdateTest(ctx, test.ID, test); err != nil {
				return created, updated, fmt.Errorf("failed to update %s: %w", test.ID, err)
			}
			updated++
		case apperrors.KindOf(gerr) == apperrors.KindNotFound:
			if _, err := admin.CreateTest(ctx, test); err != nil {
				return created, updated, fmt.Errorf("failed to create %s: %w", test.ID, err)
			}
			created++
		default:
			return created, updated, fmt.Errorf("failed to look up %s: %w", test.ID, gerr)
		}
	}
	return created, updated, nil
}

func runAdminDeleteCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.client.DeleteTest(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete %s: %w", args[0], err)
	}
	logErrf("Deleted %s\n", args[0])
	return nil
}

func runAdminUsersCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	users, err := a.client.ListUsers(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	return writeUsersTable(cmd.OutOrStdout(), users)
}

func writeUsersTable(w io.Writer, users []model.User) error {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		role := u.Role
		if role == "" {
			role = "user"
		}
		rows = append(rows, []string{u.ID, u.Name, u.Email, role})
	}
	tbl := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderHeader(false).
		Headers("ID", "NAME", "EMAIL", "ROLE").
		Rows(rows...)
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}
