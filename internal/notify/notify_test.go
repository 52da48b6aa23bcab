package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestTerminalNotify(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	term := &Terminal{Out: &buf}

	term.Notify(Notification{Title: "Request sent successfully", Message: "Echo: 200 OK", Success: true})
	term.Notify(Notification{Title: "Request failed", Message: "Echo: 0 Network Error"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output = %q", buf.String())
	}
	if lines[0] != "✓ Request sent successfully - Echo: 200 OK" {
		t.Errorf("success line = %q", lines[0])
	}
	if lines[1] != "✗ Request failed - Echo: 0 Network Error" {
		t.Errorf("failure line = %q", lines[1])
	}
}

type recorder struct{ got []Notification }

func (r *recorder) Notify(n Notification) { r.got = append(r.got, n) }

func TestMultiNotify(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, Nop{}, b}.Notify(Notification{Title: "x"})
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("fan-out failed: %d %d", len(a.got), len(b.got))
	}
}
