package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/f1blog/internal/home"
	"github.com/f1blog/internal/login"
)

func loginCmd(opts *globalOptions) *cobra.Command {
	var (
		email    string
		password string
		callback string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in and store the session cookie.

The password is read from --password, then F1BLOG_PASSWORD, then stdin.

Examples:
  blogctl login --email ana@example.com
  echo "$PASS" | blogctl login --email ana@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("F1BLOG_PASSWORD")
			}
			if password == "" {
				p, err := readPassword()
				if err != nil {
					return err
				}
				password = p
			}
			return runLogin(cmd.Context(), opts, email, password, callback)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	cmd.Flags().StringVar(&callback, "callback", "/", "Page to report after sign-in")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(ctx context.Context, opts *globalOptions, email, password, callback string) error {
	c, err := newClient(opts)
	if err != nil {
		return err
	}

	flow := login.NewFlow(c, callback,
		login.WithTimeout(opts.timeout),
		login.WithRefresh(func(ctx context.Context) {
			if s, err := c.Session(ctx); err == nil && s != nil {
				info("Signed in as %s", s.Name)
			}
		}),
	)

	out, err := flow.Submit(ctx, email, password)
	if err != nil {
		return err
	}
	if out.Error != "" {
		return errors.New(out.Error)
	}

	if err := saveCookies(opts.sessionFile, c); err != nil {
		return err
	}
	success("Login successful, continue at %s", out.Navigate)
	return nil
}

func logoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			if err := c.SignOut(cmd.Context()); err != nil {
				warn("server sign-out failed: %v", err)
			}
			if err := saveCookies(opts.sessionFile, c); err != nil {
				return err
			}
			success("Signed out")
			return nil
		},
	}
}

func whoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			s, err := c.Session(cmd.Context())
			if err != nil {
				return err
			}
			if s == nil {
				fmt.Println("Not signed in")
				return nil
			}
			fmt.Printf("%s <%s>\n", s.Name, s.Email)
			return nil
		},
	}
}

func homeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show the home page: navigation, stats and latest posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			st := home.NewLoader(c, opts.timeout, nil).Start(ctx)

			// The navigation only depends on the session
			s, err := c.Session(ctx)
			if err != nil {
				warn("session check failed: %v", err)
				s = nil
			}
			nav := home.NavFor(s)
			if nav.SignedIn {
				fmt.Printf("[%s] %s   profile: %s   sign out: %s\n", nav.Initial, nav.Name, nav.ProfileHref, nav.SignOutHref)
			} else {
				for _, l := range nav.Entry {
					fmt.Printf("%s: %s   ", l.Label, l.Href)
				}
				fmt.Println()
			}
			fmt.Println()

			if err := st.Wait(ctx); err != nil {
				return err
			}

			stats := st.Stats()
			fmt.Println("Community")
			if stats.State == home.Ready {
				info("Posts: %d   Members: %d   Comments: %d", stats.Data.TotalPosts, stats.Data.TotalUsers, stats.Data.TotalComments)
			} else {
				info("%s", stats.Message)
			}
			fmt.Println()

			posts := st.Posts()
			fmt.Println("Latest highlights")
			if posts.State != home.Ready {
				info("%s", posts.Message)
				return nil
			}
			for _, p := range posts.Data {
				info("%s  by %s  (%s)", p.Title, p.Author.DisplayName(), p.CreatedAt.Format("2 Jan 2006"))
			}
			return nil
		},
	}
}

func postsCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List posts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			posts, err := c.ListPosts(cmd.Context())
			if err != nil {
				return err
			}
			if len(posts) == 0 {
				fmt.Println(home.EmptyPostsMessage)
				return nil
			}
			if limit > 0 && len(posts) > limit {
				posts = posts[:limit]
			}
			for _, p := range posts {
				fmt.Printf("%s  %s\n", p.ID, p.Title)
				info("by %s, %d comments", p.Author.DisplayName(), p.CommentCount)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n posts")
	return cmd
}

func statsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show site totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			stats, err := c.GetSiteStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Posts:    %d\n", stats.TotalPosts)
			fmt.Printf("Members:  %d\n", stats.TotalUsers)
			fmt.Printf("Comments: %d\n", stats.TotalComments)
			return nil
		},
	}
}
