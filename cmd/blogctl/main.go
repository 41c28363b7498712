package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// globalOptions are shared by every command
type globalOptions struct {
	server      string
	sessionFile string
	timeout     time.Duration
}

func main() {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "blogctl",
		Short: "Command-line client for the F1 Blog",
		Long: `blogctl signs in to an F1 Blog server and reads its content.

The session cookie is kept in a file between invocations, so
"blogctl login" followed by "blogctl whoami" works like a browser.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", envOr("F1BLOG_URL", "http://localhost:8080"), "Blog server base URL")
	rootCmd.PersistentFlags().StringVar(&opts.sessionFile, "session-file", defaultSessionFile(), "File holding the session cookie")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Per-request timeout")

	rootCmd.AddCommand(
		loginCmd(opts),
		logoutCmd(opts),
		whoamiCmd(opts),
		homeCmd(opts),
		postsCmd(opts),
		statsCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
