package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"reqsender/internal/config"
	"reqsender/internal/format"
	"reqsender/internal/logger"
	"reqsender/internal/menu"
	"reqsender/internal/notify"
	"reqsender/internal/sender"
	"reqsender/internal/server"
	"reqsender/internal/version"
)

var serveHost string

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local message server",
		Long: `Run the local message server that other tools send requests through.

POST /messages accepts {"action": "send_request", "request": {...}},
{"action": "send_webhook", "webhook": {...}}, {"action": "get_version"} and
{"action": "reload_extension"}. Templates, logs and the context menu are
served under /templates, /logs and /menu.`,
		Run: runServe,
	}
	serveCmd.Flags().StringVar(&overrides.Port, "port", "", "Port to listen on (default 8787)")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Interface to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	a := mustApp()

	live := sender.NewLive(a.newSender(a.store, notify.Log{}))
	binder, err := newBinder(a, live)
	if err != nil {
		format.PrintError(err.Error())
		os.Exit(1)
	}
	defer binder.Close()

	r := &reloader{
		a:        a,
		live:     live,
		binder:   binder,
		notifier: notify.Log{},
		load:     func() (*config.Configuration, error) { return config.Load(cfgFile, overrides) },
	}
	srv := server.New(server.Options{
		Store:   a.store,
		Sender:  live,
		Menu:    binder,
		Version: version.Version,
		Reload:  r.Reload,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(serveHost, a.cfg.Server.Port)
	format.PrintSuccess(fmt.Sprintf("Listening on http://%s (%s)", addr, a.profile.Name))
	if err := srv.ListenAndServe(ctx, addr); err != nil && err != context.Canceled {
		format.PrintError(fmt.Sprintf("Server failed: %v", err))
		os.Exit(1)
	}
}

// reloader applies a re-read configuration to a running server. Reloads
// run one at a time; sends in flight finish on the sender they started with.
type reloader struct {
	mu       sync.Mutex
	a        *app
	live     *sender.Live
	binder   *menu.Binder
	notifier notify.Notifier
	load     func() (*config.Configuration, error)
}

// Reload re-reads the configuration, re-initializes logging and swaps in a
// client, localizer and sender built from it. The store stays open, so
// variant, storage and log cap changes wait for a restart.
func (r *reloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	loaded, err := r.load()
	if err != nil {
		return err
	}
	prev := r.a.cfg
	if loaded.Variant != prev.Variant || loaded.Storage != prev.Storage || loaded.Logs.Max != prev.Logs.Max {
		logger.Warn("Variant, storage and log cap changes apply after a restart")
	}
	if loaded.Server.Port != prev.Server.Port {
		logger.Warn("Port changes apply after a restart")
	}
	if err := logger.Init(loaded.Logging.Path, loaded.Logging.Level); err != nil {
		return err
	}

	loc, err := newLocalizer(r.a.store, loaded)
	if err != nil {
		return err
	}
	next := &app{
		cfg:     loaded,
		profile: r.a.profile,
		store:   r.a.store,
		client:  newClient(loaded),
		loc:     loc,
	}
	r.live.Swap(next.newSender(next.store, r.notifier))
	r.binder.SetTitle(next.msg("contextMenuTitle"))
	r.a = next

	logger.Info("Configuration reloaded from %q", loaded.ConfigFileUsed)
	return nil
}
