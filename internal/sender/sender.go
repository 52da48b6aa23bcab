package sender

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	httpclient "reqsender/internal/http"
	"reqsender/internal/logger"
	"reqsender/internal/model"
	"reqsender/internal/notify"
	"reqsender/internal/templating"
)

// ErrValidation marks failures caught before dispatch. They never reach
// the network and never produce a log entry.
var ErrValidation = errors.New("validation failed")

// Dispatcher executes one concrete request
type Dispatcher interface {
	Dispatch(ctx context.Context, req model.ConcreteRequest) model.DispatchResult
}

// LogAppender records completed dispatches
type LogAppender interface {
	AppendLog(entry model.LogEntry) error
}

// Messages resolves localized notification text
type Messages interface {
	Message(key string, subs ...string) string
}

// Options configures a Sender
type Options struct {
	Profile model.Profile
	// DefaultMethod overrides the profile default for templates without a method
	DefaultMethod          string
	RedactSensitiveHeaders bool
	Notifier               notify.Notifier
	Messages               Messages
}

// Sender runs the pipeline: substitute, validate, dispatch, log, notify.
// It is safe for concurrent use when its dispatcher and log are.
type Sender struct {
	client Dispatcher
	logs   LogAppender
	opts   Options
	now    func() time.Time
}

// New creates a Sender. A nil logs skips recording.
func New(client Dispatcher, logs LogAppender, opts Options) *Sender {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	return &Sender{client: client, logs: logs, opts: opts, now: time.Now}
}

// Profile returns the variant the sender was built for
func (s *Sender) Profile() model.Profile {
	return s.opts.Profile
}

// Send resolves every placeholder of t from values and dispatches it.
// A placeholder without a value is a validation error.
func (s *Sender) Send(ctx context.Context, t model.RequestTemplate, values map[string]string) (model.LogEntry, error) {
	t, err := s.prepare(t)
	if err != nil {
		return model.LogEntry{}, err
	}

	if missing := templating.MissingFields(t, values); len(missing) > 0 {
		return model.LogEntry{}, fmt.Errorf("%w: missing values for %s", ErrValidation, strings.Join(missing, ", "))
	}

	req, err := templating.Substitute(t, values)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return s.SendConcrete(ctx, req)
}

// SendSelection dispatches t with a selected text. With field set only
// that placeholder is replaced; without it the text becomes the body.
func (s *Sender) SendSelection(ctx context.Context, t model.RequestTemplate, selected, field string) (model.LogEntry, error) {
	t, err := s.prepare(t)
	if err != nil {
		return model.LogEntry{}, err
	}

	req, err := templating.SubstituteSelection(t, selected, field)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return s.SendConcrete(ctx, req)
}

// SendConcrete validates and dispatches an already resolved request
func (s *Sender) SendConcrete(ctx context.Context, req model.ConcreteRequest) (model.LogEntry, error) {
	if req.Method == "" {
		req.Method = s.defaultMethod()
	}
	if err := httpclient.Validate(req); err != nil {
		return model.LogEntry{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if req.Degraded {
		logger.Warn("Body of %q is no longer valid JSON after substitution, sending it as text", req.Name)
	}

	result := s.client.Dispatch(ctx, req)

	entry := model.LogEntry{
		ID:        uuid.New().String(),
		Timestamp: s.now(),
		Request:   s.snapshot(req, result.URL),
		Result:    result,
	}

	if s.logs != nil {
		logged := entry
		if s.opts.RedactSensitiveHeaders {
			logged.Result.ResponseHeaders = FilterSensitiveHeaders(entry.Result.ResponseHeaders)
		}
		if err := s.logs.AppendLog(logged); err != nil {
			logger.Error("Failed to record log entry %s: %v", entry.ID, err)
		}
	}

	s.notify(entry)
	return entry, nil
}

// prepare applies the default method and checks the template invariants
func (s *Sender) prepare(t model.RequestTemplate) (model.RequestTemplate, error) {
	t = t.Clone()
	if strings.TrimSpace(t.Method) == "" {
		t.Method = s.defaultMethod()
	}
	if t.ID == "" {
		// Ad-hoc templates sent over the message contract carry no id
		t.ID = "adhoc"
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return t, nil
}

func (s *Sender) defaultMethod() string {
	if s.opts.DefaultMethod != "" {
		return strings.ToUpper(s.opts.DefaultMethod)
	}
	if s.opts.Profile.DefaultMethod != "" {
		return s.opts.Profile.DefaultMethod
	}
	return "POST"
}

// snapshot records the request as sent; sentURL is the dispatched URL
func (s *Sender) snapshot(req model.ConcreteRequest, sentURL string) model.RequestSnapshot {
	snap := model.Snapshot(req)
	if sentURL != "" {
		snap.URL = sentURL
	}
	if req.ContentType != "" && !hasHeader(snap.Headers, "Content-Type") {
		snap.Headers["Content-Type"] = req.ContentType
	}
	if s.opts.RedactSensitiveHeaders {
		snap.Headers = FilterSensitiveHeaders(snap.Headers)
	}
	return snap
}

func (s *Sender) notify(entry model.LogEntry) {
	title := "requestSentSuccess"
	if !entry.Result.Success {
		title = "requestSentFailed"
	}
	status := strings.TrimSpace(fmt.Sprintf("%d %s", entry.Result.Status, entry.Result.StatusText))

	n := notify.Notification{
		Title:   title,
		Message: entry.Request.Name + ": " + status,
		Success: entry.Result.Success,
	}
	if s.opts.Messages != nil {
		n.Title = s.opts.Messages.Message(title)
		n.Message = s.opts.Messages.Message("requestSummary", entry.Request.Name, status)
	}
	s.opts.Notifier.Notify(n)
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
