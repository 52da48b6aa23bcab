package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"reqsender/internal/menu"
)

func (s *Server) RegisterLogRoutes(r chi.Router) {
	// GET /logs?limit=N
	r.Get("/logs", func(w http.ResponseWriter, req *http.Request) {
		entries, err := s.opts.Store.LoadLogs()
		if err != nil {
			InternalError(w, req, "Failed to load logs", err.Error())
			return
		}
		if limitStr := req.URL.Query().Get("limit"); limitStr != "" {
			limit, err := strconv.Atoi(limitStr)
			if err != nil || limit < 0 {
				BadRequest(w, req, "Invalid limit", limitStr)
				return
			}
			if limit > 0 && limit < len(entries) {
				entries = entries[:limit]
			}
		}
		OK(w, req, entries, "")
	})

	// GET /logs/{logID}
	r.Get("/logs/{logID}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "logID")
		entry, err := s.opts.Store.GetLog(id)
		if err != nil {
			InternalError(w, req, "Failed to load log", err.Error())
			return
		}
		if entry == nil {
			NotFound(w, req, "Log entry not found", id)
			return
		}
		OK(w, req, entry, "")
	})

	// DELETE /logs?confirm=true
	r.Delete("/logs", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("confirm") != "true" {
			BadRequest(w, req, "Clearing logs requires confirm=true", "")
			return
		}
		if err := s.opts.Store.ClearLogs(); err != nil {
			InternalError(w, req, "Failed to clear logs", err.Error())
			return
		}
		OK(w, req, nil, "Logs cleared")
	})
}

// ClickBody selects a menu leaf and the text it acts on
type ClickBody struct {
	ID        string `json:"id" validate:"required"`
	Selection string `json:"selectionText"`
}

func (s *Server) RegisterMenuRoutes(r chi.Router) {
	// GET /menu
	r.Get("/menu", func(w http.ResponseWriter, req *http.Request) {
		if s.opts.Menu == nil {
			NotFound(w, req, "Context menu is disabled", "")
			return
		}
		OK(w, req, s.opts.Menu.Tree(), "")
	})

	// POST /menu/click
	r.Post("/menu/click", func(w http.ResponseWriter, req *http.Request) {
		if s.opts.Menu == nil {
			NotFound(w, req, "Context menu is disabled", "")
			return
		}
		var body ClickBody
		if err := decodeJSON(req, &body); err != nil {
			BadRequest(w, req, "Invalid click body", err.Error())
			return
		}

		entry, err := s.opts.Menu.Click(req.Context(), body.ID, body.Selection)
		if errors.Is(err, menu.ErrUnknownItem) {
			NotFound(w, req, "Menu item not found", err.Error())
			return
		}
		if err != nil {
			Error(w, req, sendErrorStatus(err), "Request not sent", err.Error())
			return
		}
		OK(w, req, entry, "")
	})
}
