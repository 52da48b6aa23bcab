package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"reqsender/internal/logger"
)

// Notification is a transient, user-visible outcome message
type Notification struct {
	Title   string
	Message string
	Success bool
}

// Notifier delivers notifications to the user
type Notifier interface {
	Notify(n Notification)
}

// Terminal prints a colored one-liner
type Terminal struct {
	Out io.Writer
}

// NewTerminal returns a notifier writing to stderr
func NewTerminal() *Terminal {
	return &Terminal{Out: os.Stderr}
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

func (t *Terminal) Notify(n Notification) {
	mark, c := "✓", okColor
	if !n.Success {
		mark, c = "✗", failColor
	}
	c.Fprintf(t.Out, "%s %s", mark, n.Title)
	if n.Message != "" {
		fmt.Fprintf(t.Out, " - %s", n.Message)
	}
	fmt.Fprintln(t.Out)
}

// Log records notifications in the structured log
type Log struct{}

func (Log) Notify(n Notification) {
	if n.Success {
		logger.Info("%s: %s", n.Title, n.Message)
		return
	}
	logger.Warn("%s: %s", n.Title, n.Message)
}

// Nop discards notifications
type Nop struct{}

func (Nop) Notify(Notification) {}

// Multi fans a notification out to several notifiers
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		notifier.Notify(n)
	}
}
