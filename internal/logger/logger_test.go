package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestSetOutputFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "warn")
	defer Close()

	Info("hidden %d", 1)
	Warn("shown %d", 2)
	Error("also shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, `"message":"shown 2"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("warn record missing: %s", out)
	}
	if !strings.Contains(out, "also shown") {
		t.Errorf("error record missing: %s", out)
	}
}

func TestInitWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reqsender.log")
	if err := Init(path, "DEBUG"); err != nil {
		t.Fatal(err)
	}
	Debug("dispatching %s", "ping")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "dispatching ping") {
		t.Errorf("log file = %s", data)
	}
}

func TestCloseResetsToNop(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")
	Close()
	Error("after close")
	if buf.Len() != 0 {
		t.Errorf("record written after Close: %s", buf.String())
	}
}

func TestReinitWhileLogging(t *testing.T) {
	dir := t.TempDir()
	defer Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 500; n++ {
				Info("dispatch %d", n)
				Get().Debug().Msg("structured")
			}
		}()
	}

	for i := 0; i < 20; i++ {
		path := filepath.Join(dir, fmt.Sprintf("reqsender-%d.log", i%2))
		if err := Init(path, "ERROR"); err != nil {
			t.Fatal(err)
		}
		SetOutput(io.Discard, "debug")
	}
	wg.Wait()

	if err := Init(filepath.Join(dir, "final.log"), "ERROR"); err != nil {
		t.Fatal(err)
	}
	Error("after reload")
	Close()
	data, err := os.ReadFile(filepath.Join(dir, "final.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "after reload") {
		t.Errorf("log file = %s", data)
	}
}
