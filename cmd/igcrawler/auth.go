package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igcrawler/pkg/auth"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored Instagram session",
	Long: `Manage the Instagram web session sent with tag feed requests.

Sessions are stored in the system keychain when available and in an
encrypted file otherwise. IGCRAWLER_SESSION_ID and IGCRAWLER_CSRF_TOKEN
take precedence over a stored session.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store session cookies",
	Long: `Store the sessionid and csrftoken cookies of a logged-in browser session.

To find them: log into instagram.com, open the developer tools (F12), go to
Application (Chrome) or Storage (Firefox), open Cookies for
https://www.instagram.com and copy the sessionid and csrftoken values.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which session will be used",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authStatusCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(false)
	chain, err := auth.DefaultChain(logger.GetLogger())
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("sessionid cookie value: ")
	sessionID, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read session id: %w", err)
	}
	fmt.Print("csrftoken cookie value: ")
	csrf, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read csrf token: %w", err)
	}
	fmt.Print("User agent (Enter for default): ")
	ua, _ := reader.ReadString('\n')

	s := &auth.Session{
		Profile:   profile,
		SessionID: sessionID,
		CSRFToken: csrf,
		UserAgent: strings.TrimSpace(ua),
	}
	store, err := chain.Save(s)
	if err != nil {
		return err
	}

	printer.Success("Session %q saved to %s", profile, store)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	chain, err := auth.DefaultChain(logger.GetLogger())
	if err != nil {
		return err
	}
	if err := chain.Delete(profile); err != nil {
		return err
	}
	ui.NewPrinter(quiet).Success("Session %q removed", profile)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(false)

	if id := os.Getenv("IGCRAWLER_SESSION_ID"); id != "" {
		printer.Info("Session", auth.Mask(id)+" (environment)")
		return nil
	}

	chain, err := auth.DefaultChain(logger.GetLogger())
	if err != nil {
		return err
	}
	s, store, err := chain.Load(profile)
	if err != nil {
		printer.Warning("No stored session for profile %q", profile)
		printer.Hint("Run 'igcrawler auth login' to add one.")
		return nil
	}

	m := s.Masked()
	printer.Panel("Session", []ui.Row{
		{Label: "Profile", Value: m.Profile},
		{Label: "Store", Value: store},
		{Label: "sessionid", Value: m.SessionID},
		{Label: "csrftoken", Value: m.CSRFToken},
		{Label: "Saved", Value: m.SavedAt.Format("2006-01-02 15:04")},
	})
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
