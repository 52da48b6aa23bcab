package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"reqsender/internal/config"
	"reqsender/internal/format"
	httpclient "reqsender/internal/http"
	"reqsender/internal/i18n"
	"reqsender/internal/logger"
	"reqsender/internal/model"
	"reqsender/internal/notify"
	"reqsender/internal/sender"
	"reqsender/internal/storage"
)

var (
	cfgFile   string
	overrides config.Overrides
	cfg       *config.Configuration
	current   *app
)

var rootCmd = &cobra.Command{
	Use:   "reqsender",
	Short: "Send saved HTTP request templates with dynamic fields",
	Long: `reqsender keeps reusable HTTP request templates with {{field}}
placeholders, fills them in from values or selected text, sends them and
keeps a capped log of every dispatch.

Examples:
  reqsender template create "Search" 'https://api.example.com/search?q={{term}}' -X GET
  reqsender send Search --set term=golang
  echo "some text" | reqsender send Notes --selection -
  reqsender logs
  reqsender serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile, overrides)
		if err != nil {
			return err
		}
		cfg = loaded
		if err := logger.Init(cfg.Logging.Path, cfg.Logging.Level); err != nil {
			return err
		}
		logger.Debug("Configuration loaded from %q (variant %s)", cfg.ConfigFileUsed, cfg.Variant)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.Close()
			current = nil
		}
		logger.Close()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/reqsender/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&overrides.Variant, "variant", "", "Product variant: request or webhook")
	rootCmd.PersistentFlags().StringVar(&overrides.DataDir, "data-dir", "", "Directory holding templates and logs")
	rootCmd.PersistentFlags().StringVar(&overrides.Backend, "backend", "", "Storage backend: sqlite or json")
	rootCmd.PersistentFlags().StringVar(&overrides.LogLevel, "log-level", "", "Log level: DEBUG, INFO, WARN or ERROR")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show response headers")
}

// app holds everything a command needs once configuration is loaded
type app struct {
	cfg     *config.Configuration
	profile model.Profile
	store   storage.Store
	client  *httpclient.Client
	loc     *i18n.Localizer
}

// mustApp opens the store and builds the collaborators, exiting on failure
func mustApp() *app {
	if current != nil {
		return current
	}
	a, err := newApp(cfg)
	if err != nil {
		format.PrintError(err.Error())
		os.Exit(1)
	}
	current = a
	return a
}

func newApp(c *config.Configuration) (*app, error) {
	profile, err := c.Profile()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(c.Storage.Backend, storage.Options{
		DataDir: c.Storage.DataDir,
		Profile: profile,
		MaxLogs: c.Logs.Max,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	loc, err := newLocalizer(store, c)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:     c,
		profile: profile,
		store:   store,
		client:  newClient(c),
		loc:     loc,
	}, nil
}

func newClient(c *config.Configuration) *httpclient.Client {
	return httpclient.NewClient(httpclient.Options{
		Timeout:         c.HTTP.Timeout,
		MaxResponseSize: c.HTTP.MaxResponseBytes,
		QueryFromBody:   c.HTTP.QueryFromBody,
	})
}

// newLocalizer prefers the persisted language, then config, then the locale environment
func newLocalizer(store storage.Store, c *config.Configuration) (*i18n.Localizer, error) {
	stored, _, err := store.GetSetting(model.LanguageKey)
	if err != nil {
		logger.Warn("Failed to read language setting: %v", err)
	}
	return i18n.New(stored, c.Language, os.Getenv("LC_ALL"), os.Getenv("LANG"))
}

// newSender builds the dispatch pipeline. A nil logs skips recording.
func (a *app) newSender(logs sender.LogAppender, notifier notify.Notifier) *sender.Sender {
	return sender.New(a.client, logs, sender.Options{
		Profile:                a.profile,
		DefaultMethod:          a.cfg.HTTP.DefaultMethod,
		RedactSensitiveHeaders: a.cfg.Logs.RedactSensitiveHeaders,
		Notifier:               notifier,
		Messages:               a.loc,
	})
}

// msg returns a localized message
func (a *app) msg(key string, subs ...string) string {
	return a.loc.Message(key, subs...)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("Failed to close storage: %v", err)
	}
}

// mustFindTemplate resolves a template by id, name or 1-based index
func (a *app) mustFindTemplate(ref string) *model.RequestTemplate {
	t, err := a.store.FindTemplate(ref)
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to load templates: %v", err))
		os.Exit(1)
	}
	if t == nil {
		format.PrintError(fmt.Sprintf("Template not found: %s", ref))
		os.Exit(1)
	}
	return t
}
