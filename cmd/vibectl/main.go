// Command vibectl is a command line client for the vibestack API.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vibestack/internal/appstate"
	"vibestack/internal/chat"
	"vibestack/internal/client"
	"vibestack/internal/models"
)

type app struct {
	apiURL    string
	statePath string

	persister *appstate.BoltPersister
	store     *appstate.Store
	client    *client.Client
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "vibectl",
		Short:         "Command line client for the vibestack API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api", envOr("VIBE_API_URL", client.DefaultBaseURL), "API base URL")
	root.PersistentFlags().StringVar(&a.statePath, "state", envOr("VIBE_STATE", defaultStatePath()), "state file path")

	root.AddCommand(
		a.healthCmd(),
		a.tokenCmd(),
		a.themeCmd(),
		a.analyzeCmd(),
		a.chatCmd(),
		a.itemsCmd(),
		a.uploadCmd(),
		a.downloadCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", apiErr.Detail)
		}
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "vibectl.db"
	}
	return filepath.Join(dir, "vibectl", "state.db")
}

func (a *app) open() error {
	if err := os.MkdirAll(filepath.Dir(a.statePath), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	p, err := appstate.OpenBolt(a.statePath)
	if err != nil {
		return err
	}
	store, err := appstate.Open(p)
	if err != nil {
		p.Close()
		return err
	}
	a.persister = p
	a.store = store
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	a.client = client.New(a.apiURL, store, client.WithLogger(logger))
	return nil
}

func (a *app) close() error {
	if a.persister == nil {
		return nil
	}
	return a.persister.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func (a *app) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored access token",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <token>",
			Short: "Store an access token",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.store.SetToken(strings.TrimSpace(args[0]))
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the token requests will use",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (admin: %t)\n", a.store.Token(), a.store.IsAdmin())
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget the stored token",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.store.SetToken("")
			},
		},
	)
	return cmd
}

func (a *app) themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theme [light|dark|system]",
		Short: "Show or set the theme preference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), a.store.Theme())
				return nil
			}
			return a.store.SetTheme(appstate.Theme(args[0]))
		},
	}
}

func (a *app) analyzeCmd() *cobra.Command {
	var (
		stream   bool
		imageURL string
	)
	cmd := &cobra.Command{
		Use:   "analyze <text>",
		Short: "Ask the assistant for a one-shot analysis",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			if !stream {
				content, err := a.client.Analyze(cmd.Context(), text, imageURL)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, content)
				return nil
			}
			_, err := a.client.AnalyzeStream(cmd.Context(), text, imageURL, func(delta, _ string) {
				fmt.Fprint(out, delta)
			})
			fmt.Fprintln(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "print the answer as it arrives")
	cmd.Flags().StringVar(&imageURL, "image", "", "image URL to include")
	return cmd
}

func (a *app) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			session := chat.NewSession(a.client)
			fmt.Fprintln(out, session.Messages()[0].Content)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				if replies := session.QuickReplies(); replies != nil {
					fmt.Fprintln(out, "You can ask:")
					for i, r := range replies {
						fmt.Fprintf(out, "  %d) %s\n", i+1, r)
					}
				}
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				text := scanner.Text()
				if replies := session.QuickReplies(); replies != nil {
					if n, ok := quickPick(text, len(replies)); ok {
						text = replies[n]
					}
				}
				msg, err := session.Send(cmd.Context(), text)
				if errors.Is(err, chat.ErrEmpty) {
					continue
				}
				if err != nil {
					slog.Debug("chat failed", slog.String("err", err.Error()))
				}
				fmt.Fprintln(out, msg.Content)
			}
		},
	}
}

// quickPick maps "1".."n" to a quick reply index.
func quickPick(text string, n int) (int, bool) {
	text = strings.TrimSpace(text)
	if len(text) != 1 || text[0] < '1' || int(text[0]-'0') > n {
		return 0, false
	}
	return int(text[0] - '1'), true
}

func (a *app) itemsCmd() *cobra.Command {
	var in struct {
		name, description, imageURL, categoryID string
	}
	input := func(cmd *cobra.Command) models.ItemInput {
		var out models.ItemInput
		set := func(flag string, v string) *string {
			if cmd.Flags().Changed(flag) {
				return &v
			}
			return nil
		}
		out.Name = set("name", in.name)
		out.Description = set("description", in.description)
		out.ImageURL = set("image-url", in.imageURL)
		out.CategoryID = set("category", in.categoryID)
		return out
	}
	addFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&in.name, "name", "", "item name")
		cmd.Flags().StringVar(&in.description, "description", "", "item description")
		cmd.Flags().StringVar(&in.imageURL, "image-url", "", "item image URL")
		cmd.Flags().StringVar(&in.categoryID, "category", "", "category id")
	}

	cmd := &cobra.Command{Use: "items", Short: "Manage items"}

	list := &cobra.Command{
		Use:  "list",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.client.ListItems(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	get := &cobra.Command{
		Use:  "get <id>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.client.GetItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
	create := &cobra.Command{
		Use:  "create",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.client.CreateItem(cmd.Context(), input(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
	addFlags(create)
	update := &cobra.Command{
		Use:  "update <id>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.UpdateItem(cmd.Context(), args[0], input(cmd))
		},
	}
	addFlags(update)
	del := &cobra.Command{
		Use:  "delete <id>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.DeleteItem(cmd.Context(), args[0])
		},
	}
	cmd.AddCommand(list, get, create, update, del)
	return cmd
}

func (a *app) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file to object storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			contentType := mime.TypeByExtension(filepath.Ext(args[0]))
			up, err := a.client.Upload(cmd.Context(), filepath.Base(args[0]), contentType, f)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), up)
		},
	}
}

func (a *app) downloadCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <key>",
		Short: "Download an uploaded object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := a.client.Download(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer obj.Body.Close()
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			_, err = io.Copy(w, obj.Body)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
