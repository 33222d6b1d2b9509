// ABOUTME: Open command for launching article links in browser
// ABOUTME: Validates the link scheme before handing it to the platform opener

package main

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open <link>",
	Short: "Open an article link in browser",
	Long:  "Open an article's link in your default browser. The link is matched ignoring scheme, query, and fragment.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}
		a, err := lookupArticle(ctx, m, args[0])
		if err != nil {
			return err
		}

		// Validate URL format and scheme for security
		parsedURL, err := url.Parse(a.Link)
		if err != nil {
			return fmt.Errorf("article has malformed link: %w", err)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("article link must be http or https, got: %s", parsedURL.Scheme)
		}

		if err := openBrowser(parsedURL.String()); err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}

		fmt.Printf("v Opened: %s\n", a.Title)
		return nil
	},
}

// openBrowser opens a URL in the default browser for the current platform
func openBrowser(urlStr string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", urlStr)
	case "linux":
		cmd = exec.Command("xdg-open", urlStr)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", urlStr)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	// Reap the process asynchronously to prevent zombie processes
	go cmd.Wait()

	return nil
}

func init() {
	rootCmd.AddCommand(openCmd)
}
