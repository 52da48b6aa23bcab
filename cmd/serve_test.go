package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"reqsender/internal/config"
	"reqsender/internal/logger"
	"reqsender/internal/model"
	"reqsender/internal/notify"
	"reqsender/internal/sender"
)

func writeServeConfig(t *testing.T, path, dataDir, method, language string) {
	t.Helper()
	yaml := fmt.Sprintf(`storage:
  backend: json
  data_dir: %s
http:
  default_method: %s
logging:
  level: ERROR
language: %s
`, dataDir, method, language)
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestReloaderSwapsSenderAndMenuTitle(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LANG", "")
	defer logger.Close()

	var (
		mu      sync.Mutex
		methods []string
	)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()
	}))
	defer target.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeServeConfig(t, path, filepath.Join(dir, "data"), "GET", "en")
	load := func() (*config.Configuration, error) { return config.Load(path, config.Overrides{}) }

	c, err := load()
	if err != nil {
		t.Fatal(err)
	}
	a, err := newApp(c)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	live := sender.NewLive(a.newSender(a.store, notify.Nop{}))
	binder, err := newBinder(a, live)
	if err != nil {
		t.Fatal(err)
	}
	defer binder.Close()
	r := &reloader{a: a, live: live, binder: binder, notifier: notify.Nop{}, load: load}

	tmpl := model.RequestTemplate{ID: "t", Name: "hook", URL: target.URL}
	if _, err := live.Send(context.Background(), tmpl, nil); err != nil {
		t.Fatal(err)
	}

	writeServeConfig(t, path, filepath.Join(dir, "data"), "PUT", "zh_CN")
	if err := r.Reload(); err != nil {
		t.Fatal(err)
	}
	if err := binder.Rebuild(); err != nil {
		t.Fatal(err)
	}

	if _, err := live.Send(context.Background(), tmpl, nil); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	got := append([]string(nil), methods...)
	mu.Unlock()
	if len(got) != 2 || got[0] != "GET" || got[1] != "PUT" {
		t.Errorf("methods = %v", got)
	}
	if title := binder.Tree().Title; title != "使用请求发送器发送" {
		t.Errorf("menu title = %q", title)
	}
	if r.a.cfg.HTTP.DefaultMethod != "PUT" || r.a.store != a.store {
		t.Errorf("reloaded app = %+v", r.a)
	}
}

func TestReloaderConcurrentWithSends(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LANG", "")
	defer logger.Close()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer target.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeServeConfig(t, path, filepath.Join(dir, "data"), "POST", "en")
	load := func() (*config.Configuration, error) { return config.Load(path, config.Overrides{}) }

	c, err := load()
	if err != nil {
		t.Fatal(err)
	}
	a, err := newApp(c)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	live := sender.NewLive(a.newSender(a.store, notify.Nop{}))
	binder, err := newBinder(a, live)
	if err != nil {
		t.Fatal(err)
	}
	defer binder.Close()
	r := &reloader{a: a, live: live, binder: binder, notifier: notify.Nop{}, load: load}

	tmpl := model.RequestTemplate{ID: "t", Name: "hook", URL: target.URL}
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 5; n++ {
				if _, err := live.Send(context.Background(), tmpl, nil); err != nil {
					errs <- err
				}
			}
		}()
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 5; n++ {
				if err := r.Reload(); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	logs, err := a.store.LoadLogs()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 20 {
		t.Errorf("logs = %d, want 20", len(logs))
	}
}
