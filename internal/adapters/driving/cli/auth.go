package cli

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a device code",
	Long: `Sign in using the OAuth device flow.

If a stored session is still valid nothing happens. Otherwise a short code is
shown; open the verification page in any browser, enter the code, and the
command finishes once the sign-in is approved.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the stored session",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	RunE:  runStatus,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

// noBrowser is a flag for the login command.
var noBrowser bool

// openBrowser opens url in the default browser. Replaced in tests.
var openBrowser = func(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

func init() {
	loginCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the verification page automatically")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	if authenticator == nil || sharedState == nil {
		return errors.New("authentication not configured")
	}

	out := cmd.OutOrStdout()
	watchDeviceCode(out)

	if err := authenticator.Run(cmd.Context()); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	name := sharedState.AuthState().Profile.DisplayName()
	if name == "" {
		name = "unknown user"
	}
	cmd.Println(style(out, successStyle, "Signed in as "+name))
	return nil
}

// watchDeviceCode prints the device code, and opens the verification page
// unless --no-browser is set, whenever sign-in needs the user.
func watchDeviceCode(out io.Writer) {
	sharedState.OnAuthState(func(state domain.AuthState) {
		if state.Phase != domain.AuthNeedsAuth {
			return
		}
		printDeviceCode(out, state)
		if noBrowser {
			return
		}
		url := state.VerificationURIComplete
		if url == "" {
			url = state.VerificationURI
		}
		if err := openBrowser(url); err != nil {
			fmt.Fprintf(out, "Could not open a browser: %v\n", err)
		}
	})
}

func printDeviceCode(w io.Writer, state domain.AuthState) {
	if !isTerminal(w) {
		fmt.Fprintf(w, "Open %s and enter code: %s\n", state.VerificationURI, state.UserCode)
		return
	}
	body := fmt.Sprintf("Open %s\nand enter the code\n\n%s",
		state.VerificationURI, userCodeStyle.Render(state.UserCode))
	fmt.Fprintln(w, codeBoxStyle.Render(body))
	fmt.Fprintln(w, mutedStyle.Render("Waiting for approval..."))
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}

	if err := sessionService.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	if sharedState != nil {
		sharedState.SetCredential(nil)
	}

	cmd.Println("Logged out.")
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}

	cred, err := sessionService.Current(cmd.Context())
	if errors.Is(err, domain.ErrAuthRequired) {
		cmd.Println("Not logged in. Run 'recorder login'.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	expiry := cred.Expiry()
	cmd.Println("Logged in")
	cmd.Printf("  Expires: %s (%s)\n", expiry.Local().Format(time.DateTime), humanize.Time(expiry))
	switch {
	case !cred.IsExpired():
		cmd.Println("  Status: valid")
	case cred.CanRefresh():
		cmd.Println("  Status: expired, will refresh on next use")
	default:
		cmd.Println("  Status: expired, run 'recorder login'")
	}
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	if sessionService == nil || profileClient == nil {
		return errors.New("session service not configured")
	}

	cred, err := sessionService.CredentialForUpload(cmd.Context())
	if err != nil {
		return fmt.Errorf("not signed in: %w", err)
	}

	profile, err := profileClient.GetProfile(cmd.Context(), *cred)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	cmd.Printf("Name:  %s\n", profile.DisplayName())
	if profile.Email != "" {
		cmd.Printf("Email: %s\n", profile.Email)
	}
	if profile.Subject != "" {
		cmd.Printf("ID:    %s\n", profile.Subject)
	}
	return nil
}
