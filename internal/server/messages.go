package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"reqsender/internal/logger"
	"reqsender/internal/model"
	"reqsender/internal/sender"
)

// Message is the request side of the message contract. The template
// arrives under "request" or "webhook" depending on the action.
type Message struct {
	Action     string                 `json:"action" validate:"required"`
	Request    *model.RequestTemplate `json:"request,omitempty" validate:"-"`
	Webhook    *model.RequestTemplate `json:"webhook,omitempty" validate:"-"`
	TemplateID string                 `json:"templateId,omitempty"`
	Values     map[string]string      `json:"values,omitempty"`
	Selection  *string                `json:"selectedText,omitempty"`
	Field      string                 `json:"field,omitempty"`
}

// SendResult is the DispatchResult-shaped reply to a send action
type SendResult struct {
	model.DispatchResult
	LogID string `json:"logId,omitempty"`
}

const (
	actionSendRequest     = "send_request"
	actionSendWebhook     = "send_webhook"
	actionGetVersion      = "get_version"
	actionReloadExtension = "reload_extension"
)

func (s *Server) RegisterMessageRoutes(r chi.Router) {
	// POST /messages
	r.Post("/messages", s.handleMessage)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := decodeJSON(r, &msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": fmt.Sprintf("invalid message: %v", err)})
		return
	}

	switch msg.Action {
	case actionSendRequest, actionSendWebhook:
		s.handleSendMessage(w, r, msg)

	case actionGetVersion:
		writeJSON(w, http.StatusOK, map[string]any{"version": s.opts.Version, "success": true})

	case actionReloadExtension:
		if err := s.reload(); err != nil {
			logger.Error("Reload failed: %v", err)
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": fmt.Sprintf("unknown action %q", msg.Action)})
	}
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, msg Message) {
	tmpl := msg.Request
	if msg.Action == actionSendWebhook {
		tmpl = msg.Webhook
	}
	if tmpl == nil && msg.TemplateID != "" {
		stored, err := s.opts.Store.GetTemplate(msg.TemplateID)
		if err != nil {
			writeSendError(w, http.StatusInternalServerError, err)
			return
		}
		tmpl = stored
	}
	if tmpl == nil {
		field := "request"
		if msg.Action == actionSendWebhook {
			field = "webhook"
		}
		writeSendError(w, http.StatusBadRequest, fmt.Errorf("%w: missing %s", sender.ErrValidation, field))
		return
	}

	var (
		entry model.LogEntry
		err   error
	)
	if msg.Selection != nil {
		entry, err = s.opts.Sender.SendSelection(r.Context(), *tmpl, *msg.Selection, msg.Field)
	} else {
		entry, err = s.opts.Sender.Send(r.Context(), *tmpl, msg.Values)
	}
	if err != nil {
		writeSendError(w, sendErrorStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, SendResult{DispatchResult: entry.Result, LogID: entry.ID})
}

func writeSendError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, SendResult{DispatchResult: model.DispatchResult{
		Success:         false,
		Error:           err.Error(),
		ResponseHeaders: map[string]string{},
	}})
}

func sendErrorStatus(err error) int {
	if errors.Is(err, sender.ErrValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) reload() error {
	if s.opts.Reload != nil {
		if err := s.opts.Reload(); err != nil {
			return err
		}
	}
	if s.opts.Menu != nil {
		return s.opts.Menu.Rebuild()
	}
	return nil
}
