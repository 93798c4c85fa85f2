// slack-export exports Slack chat history into browsable static HTML
// archives with attached media downloaded locally.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/thenajjar/slack-history-exporter/internal/config"
	"github.com/thenajjar/slack-history-exporter/internal/directory"
	"github.com/thenajjar/slack-history-exporter/internal/domain"
	"github.com/thenajjar/slack-history-exporter/internal/downloader"
	"github.com/thenajjar/slack-history-exporter/internal/render"
	"github.com/thenajjar/slack-history-exporter/internal/service"
	"github.com/thenajjar/slack-history-exporter/pkg/slack"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "slack-export",
		Short:         "Export Slack chat history to browsable HTML archives",
		Example:       "  slack-export chats --kind dm\n  slack-export export --kind channel --all --out ./archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "path to config file")
	cmd.PersistentFlags().String("token", "", "Slack user token (overrides config and stored token)")
	cmd.PersistentFlags().String("state-dir", "", "directory for users.json and tokens.json")

	cmd.AddCommand(
		newChatsCommand(),
		newExportCommand(),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("slack-export %s (built %s)\n", Version, BuildTime)
		},
	}
}

func newChatsCommand() *cobra.Command {
	var (
		kind   string
		filter string
	)
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List chats of one kind (channel, group, dm)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer app.saveToken()

			listings, err := app.svc.ListChats(cmd.Context(), domain.ChatKind(kind), progressBar(cmd))
			if err != nil {
				return err
			}

			shown := 0
			for _, l := range listings {
				if filter != "" &&
					!strings.Contains(strings.ToLower(l.Handle), strings.ToLower(filter)) &&
					!strings.Contains(strings.ToLower(l.DisplayName), strings.ToLower(filter)) {
					continue
				}
				shown++
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\t%s\n", shown, l.Chat.ID, l.DisplayName)
			}
			if shown == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no chats found")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "channel", "chat kind: channel, group, or dm")
	cmd.Flags().StringVar(&filter, "filter", "", "only list chats whose name contains this substring")
	return cmd
}

func newExportCommand() *cobra.Command {
	var (
		kind    string
		chatIDs []string
		all     bool
		out     string
		media   bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export selected chats to HTML archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(chatIDs) == 0 {
				return domain.ErrNoChatsSelected
			}

			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer app.saveToken()

			listings, err := app.svc.ListChats(cmd.Context(), domain.ChatKind(kind), nil)
			if err != nil {
				return err
			}

			selected := selectChats(listings, chatIDs, all)
			for _, id := range missingChats(listings, chatIDs) {
				app.logger.Warn("chat not found, skipping", "chat_id", id)
			}

			saveMedia := app.cfg.Export.SaveMedia
			if cmd.Flags().Changed("media") {
				saveMedia = media
			}
			if out == "" {
				out = app.cfg.Export.OutputDir
			}

			if err := app.svc.Export(cmd.Context(), selected, out, saveMedia, progressBar(cmd)); err != nil {
				return err
			}

			job := app.svc.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "\nExport complete: %d chats, %d media files saved, %d failed\n",
				job.DoneChats, job.MediaSaved, job.MediaFailed)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "channel", "chat kind: channel, group, or dm")
	cmd.Flags().StringArrayVar(&chatIDs, "chat", nil, "chat id to export (repeatable, exported in flag order)")
	cmd.Flags().BoolVar(&all, "all", false, "export every chat of the kind")
	cmd.Flags().StringVar(&out, "out", "", "destination directory")
	cmd.Flags().BoolVar(&media, "media", true, "download attached media")
	return cmd
}

// selectChats returns the selected chats in input order: every listing for
// --all, otherwise the --chat ids in flag order.
func selectChats(listings []domain.ChatListing, chatIDs []string, all bool) []domain.Chat {
	if all {
		chats := make([]domain.Chat, 0, len(listings))
		for _, l := range listings {
			chats = append(chats, l.Chat)
		}
		return chats
	}

	byID := make(map[string]domain.Chat, len(listings))
	for _, l := range listings {
		byID[l.Chat.ID] = l.Chat
	}
	var chats []domain.Chat
	for _, id := range chatIDs {
		if chat, ok := byID[id]; ok {
			chats = append(chats, chat)
		}
	}
	return chats
}

func missingChats(listings []domain.ChatListing, chatIDs []string) []string {
	known := make(map[string]bool, len(listings))
	for _, l := range listings {
		known[l.Chat.ID] = true
	}
	var missing []string
	for _, id := range chatIDs {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// app bundles the wired components for one command invocation.
type app struct {
	cfg    *config.Config
	svc    *service.ExportService
	logger *slog.Logger
}

// buildApp loads configuration, resolves the token (flag > env/file >
// stored record), and wires the adapter, directory, renderer, downloader,
// and orchestrator.
func buildApp(cmd *cobra.Command) (*app, error) {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(logger)

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if stateDir, _ := cmd.Flags().GetString("state-dir"); stateDir != "" {
		cfg.Export.StateDir = stateDir
	}
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		cfg.Slack.Token = token
	}
	if cfg.Slack.Token == "" {
		cfg.Slack.Token = config.LoadToken(cfg.Export.TokensFile())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	adapter := slack.NewAdapter(cfg.Slack.Token, cfg.Slack.PageLimit, logger)
	dir := directory.Open(cfg.Export.UsersFile(), adapter, logger)
	renderer := render.NewRenderer(adapter, dir, logger)
	dl := downloader.NewHTTPDownloader(cfg.Download, cfg.Slack.Token, logger)
	svc := service.NewExportService(adapter, dir, renderer, dl, cfg.Export, logger)

	return &app{cfg: cfg, svc: svc, logger: logger}, nil
}

// saveToken rewrites the durable token record on exit.
func (a *app) saveToken() {
	if err := config.SaveToken(a.cfg.Export.TokensFile(), a.cfg.Slack.Token); err != nil {
		a.logger.Error("save token record failed", "error", err)
	}
}

// progressBar renders 0-100 progress on stderr, newline-terminated at 100.
func progressBar(cmd *cobra.Command) service.ProgressFunc {
	last := -1
	return func(percent int) {
		if percent == last {
			return
		}
		last = percent
		fmt.Fprintf(cmd.ErrOrStderr(), "\rprogress: %3d%%", percent)
		if percent >= 100 {
			fmt.Fprintln(cmd.ErrOrStderr())
		}
	}
}
