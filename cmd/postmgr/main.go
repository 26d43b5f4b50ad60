// Terminal post manager for go-pugblog
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-while/go-pugblog/internal/config"
	"github.com/go-while/go-pugblog/internal/database"
	"github.com/go-while/go-pugblog/internal/models"
	"github.com/go-while/go-pugblog/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var appVersion = "-unset-"

// globalOptions are shared by every subcommand
type globalOptions struct {
	ConfigPath string
	Store      string
}

func main() {
	config.AppVersion = appVersion
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "postmgr",
		Short:         "Manage go-pugblog posts from the terminal",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "config.toml", "Path to the TOML config file (missing file uses defaults)")
	root.PersistentFlags().StringVar(&opts.Store, "store", "", "Post store driver: sqlite, mongo or postgres")

	root.AddCommand(
		listCommand(opts),
		showCommand(opts),
		createCommand(opts),
		deleteCommand(opts),
		hashPasswordCommand(),
	)
	return root
}

// withStore opens the configured post store for the duration of fn
func withStore(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, store database.PostStore) error) error {
	mainConfig, err := config.Load(opts.ConfigPath, !cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if opts.Store != "" {
		mainConfig.Store.Driver = opts.Store
	}
	config.SetupLogging(mainConfig.Log)
	if mainConfig.Store.Driver == config.StoreMemory {
		log.Warn().Msg("memory store selected: changes are lost when postmgr exits")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := database.Open(ctx, mainConfig.Store)
	if err != nil {
		return fmt.Errorf("failed to open post store: %w", err)
	}
	defer store.Close()
	return fn(ctx, store)
}

func listCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store database.PostStore) error {
				return listPosts(ctx, store, cmd.OutOrStdout())
			})
		},
	}
}

func showCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a single post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store database.PostStore) error {
				return showPost(ctx, store, args[0], cmd.OutOrStdout())
			})
		},
	}
}

func createCommand(opts *globalOptions) *cobra.Command {
	var title, body string
	cmd := &cobra.Command{
		Use:   "create --title TITLE --body BODY",
		Short: "Create a post with the same rules as the web form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store database.PostStore) error {
				return createPost(ctx, store, title, body, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Post title")
	cmd.Flags().StringVar(&body, "body", "", "Post body (markdown)")
	return cmd
}

func deleteCommand(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm := func(p *models.Post) bool { return true }
			if !yes {
				if !term.IsTerminal(int(syscall.Stdin)) {
					return errors.New("refusing to delete without confirmation, pass --yes")
				}
				confirm = func(p *models.Post) bool {
					return askConfirm(cmd.InOrStdin(), cmd.OutOrStdout(), p)
				}
			}
			return withStore(cmd, opts, func(ctx context.Context, store database.PostStore) error {
				return deletePost(ctx, store, args[0], confirm, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

func hashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for web.admin_password_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(syscall.Stdin)) {
				return errors.New("hash-password needs an interactive terminal")
			}
			fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
			password, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr())

			fmt.Fprint(cmd.ErrOrStderr(), "Confirm password: ")
			confirmPassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password confirmation: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr())

			if string(password) != string(confirmPassword) {
				return errors.New("passwords do not match")
			}
			hash, err := web.HashPassword(string(password))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func listPosts(ctx context.Context, store database.PostStore, out io.Writer) error {
	posts, err := store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list posts: %w", err)
	}
	if len(posts) == 0 {
		fmt.Fprintln(out, "No posts found")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.CreatedAt.UTC().Format(time.RFC3339), p.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal: %d posts\n", len(posts))
	return nil
}

func showPost(ctx context.Context, store database.PostStore, id string, out io.Writer) error {
	p, err := store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			return fmt.Errorf("post '%s' not found", id)
		}
		return fmt.Errorf("failed to get post: %w", err)
	}
	fmt.Fprintf(out, "ID:      %s\n", p.ID)
	fmt.Fprintf(out, "Title:   %s\n", p.Title)
	fmt.Fprintf(out, "Created: %s\n", p.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "Updated: %s\n\n", p.UpdatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintln(out, p.Body)
	return nil
}

func createPost(ctx context.Context, store database.PostStore, title, body string, out io.Writer) error {
	in := models.CleanInput(title, body)
	if err := in.Validate(models.CreateRules); err != nil {
		return err
	}
	p := &models.Post{Title: in.Title, Body: in.Body}
	if err := store.Insert(ctx, p); err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	fmt.Fprintf(out, "Post '%s' created (ID: %s)\n", p.Title, p.ID)
	return nil
}

func deletePost(ctx context.Context, store database.PostStore, id string, confirm func(*models.Post) bool, out io.Writer) error {
	p, err := store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			return fmt.Errorf("post '%s' not found", id)
		}
		return fmt.Errorf("failed to get post: %w", err)
	}
	if !confirm(p) {
		fmt.Fprintln(out, "Post deletion cancelled")
		return nil
	}
	if err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	fmt.Fprintf(out, "Post '%s' (ID: %s) deleted\n", p.Title, p.ID)
	return nil
}

// askConfirm prompts on out and reads a yes/no answer from in
func askConfirm(in io.Reader, out io.Writer, p *models.Post) bool {
	fmt.Fprintf(out, "Are you sure you want to delete post '%s' (ID: %s)? [y/N]: ", p.Title, p.ID)
	reader := bufio.NewReader(in)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
