package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/validate"
)

var (
	loginEmail    string
	registerName  string
	registerEmail string
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE:  runLoginCmd,
	}
	cmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	return cmd
}

func runLoginCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	email, err := promptValue("Email: ", loginEmail)
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	user, err := a.client.Login(commandContext(cmd), email, password)
	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}
	logErrf("Signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE:  runRegisterCmd,
	}
	cmd.Flags().StringVar(&registerName, "name", "", "display name")
	cmd.Flags().StringVar(&registerEmail, "email", "", "account email")
	return cmd
}

func runRegisterCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	name, err := promptValue("Name: ", registerName)
	if err != nil {
		return err
	}
	email, err := promptValue("Email: ", registerEmail)
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	reg := model.Registration{Name: name, Email: email, Password: password}
	if err := validate.New().Registration(reg); err != nil {
		return err
	}
	user, err := a.client.Register(commandContext(cmd), reg)
	if err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	logErrf("Registered and signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.session.Logout(commandContext(cmd)); err != nil {
				return fmt.Errorf("failed to sign out: %w", err)
			}
			logErrln("Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if !a.session.Authenticated() {
				return fmt.Errorf("not signed in; run `ieltsmock login`")
			}
			user, err := a.client.Profile(commandContext(cmd))
			if err != nil {
				cached, ok := a.session.User()
				if !ok || cached.Email == "" {
					return fmt.Errorf("failed to load profile: %w", err)
				}
				logErrf("Backend unreachable, showing cached profile: %v\n", err)
				user = cached
			}
			role := user.Role
			if role == "" {
				role = "user"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", user.Name, user.Email, role)
			return err
		},
	}
}

func promptValue(label, preset string) (string, error) {
	if v := strings.TrimSpace(preset); v != "" {
		return v, nil
	}
	logErrf("%s", label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return "", fmt.Errorf("%s must not be empty", strings.TrimSuffix(strings.ToLower(label), ": "))
	}
	return value, nil
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptValue(label, "")
	}
	logErrf("%s", label)
	raw, err := term.ReadPassword(fd)
	logErrln()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(raw), nil
}
