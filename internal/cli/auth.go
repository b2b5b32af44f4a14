package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jarvis-nvidia/dm/internal/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the session with the inference service",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with an API key or through GitHub",
	Long: `Sign in to the inference service. With --api-key the credential is
validated against the service and persisted only on success. Without it
a browser-based GitHub sign-in is started.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored credential",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	authLoginCmd.Flags().String("api-key", "", "sign in with this API key instead of GitHub")
	authLogoutCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	key, _ := cmd.Flags().GetString("api-key")
	if key != "" {
		if err := a.auth.StartCredentialAuth(cmd.Context(), key); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(os.Stderr, "Opening browser for GitHub sign-in...")
		if err := a.auth.StartDelegatedAuth(cmd.Context()); err != nil {
			return err
		}
	}

	s := a.auth.Session()
	fmt.Printf("Signed in as %s (%s)\n", s.Principal, s.Method)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	yes, _ := cmd.Flags().GetBool("yes")
	confirm := func() bool { return true }
	if !yes {
		confirm = func() bool {
			fmt.Fprint(os.Stderr, "Sign out and clear the stored credential? [y/N] ")
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			answer := strings.ToLower(strings.TrimSpace(line))
			return answer == "y" || answer == "yes"
		}
	}

	before := a.auth.Session().State
	if err := a.auth.SignOut(confirm); err != nil {
		return err
	}
	if before == auth.Unauthenticated {
		fmt.Println("Not signed in.")
	} else if a.auth.Session().State == auth.Unauthenticated {
		fmt.Println("Signed out.")
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	if err := a.auth.Restore(cmd.Context()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not validate stored credential: %v\n", err)
	}

	s := a.auth.Session()
	switch s.State {
	case auth.Authenticated:
		fmt.Printf("Signed in as %s (%s)\n", s.Principal, s.Method)
		if len(s.Scopes) > 0 {
			fmt.Printf("Scopes: %s\n", strings.Join(s.Scopes, ", "))
		}
	case auth.PendingExternalAuth:
		fmt.Println("Sign-in in progress.")
	default:
		fmt.Println("Not signed in. Run 'dm auth login' to sign in.")
	}
	return nil
}
