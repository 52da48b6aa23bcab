package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"reqsender/internal/model"
	"reqsender/internal/storage"
	"reqsender/internal/templating"
)

// SendBody carries field values or a selection for a stored template
type SendBody struct {
	Values    map[string]string `json:"values,omitempty"`
	Selection *string           `json:"selectedText,omitempty"`
	Field     string            `json:"field,omitempty"`
}

func (s *Server) RegisterTemplateRoutes(r chi.Router) {
	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.listTemplates)
		r.Post("/", s.createTemplate)

		r.Route("/{templateID}", func(r chi.Router) {
			r.Get("/", s.getTemplate)
			r.Put("/", s.updateTemplate)
			r.Delete("/", s.deleteTemplate)
			r.Get("/fields", s.templateFields)
			r.Post("/send", s.sendTemplate)
		})
	})
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.opts.Store.ListTemplates()
	if err != nil {
		InternalError(w, r, "Failed to list templates", err.Error())
		return
	}
	OK(w, r, templates, "")
}

// loadTemplate resolves the {templateID} path parameter, writing 404 when missing
func (s *Server) loadTemplate(w http.ResponseWriter, r *http.Request) *model.RequestTemplate {
	id := chi.URLParam(r, "templateID")
	t, err := s.opts.Store.FindTemplate(id)
	if err != nil {
		InternalError(w, r, "Failed to load template", err.Error())
		return nil
	}
	if t == nil {
		NotFound(w, r, "Template not found", id)
		return nil
	}
	return t
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	if t := s.loadTemplate(w, r); t != nil {
		OK(w, r, t, "")
	}
}

func (s *Server) decodeTemplate(w http.ResponseWriter, r *http.Request) (model.RequestTemplate, bool) {
	var t model.RequestTemplate
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		BadRequest(w, r, "Invalid template JSON", err.Error())
		return t, false
	}
	if strings.TrimSpace(t.Method) == "" {
		t.Method = s.opts.Sender.Profile().DefaultMethod
	}
	return t, true
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.decodeTemplate(w, r)
	if !ok {
		return
	}
	t.ID = uuid.New().String()
	if err := t.Validate(); err != nil {
		BadRequest(w, r, "Invalid template", err.Error())
		return
	}
	if err := s.opts.Store.SaveTemplate(t); err != nil {
		InternalError(w, r, "Failed to save template", err.Error())
		return
	}
	Created(w, r, t, "Template created")
}

func (s *Server) updateTemplate(w http.ResponseWriter, r *http.Request) {
	existing := s.loadTemplate(w, r)
	if existing == nil {
		return
	}
	t, ok := s.decodeTemplate(w, r)
	if !ok {
		return
	}
	t.ID = existing.ID
	if err := t.Validate(); err != nil {
		BadRequest(w, r, "Invalid template", err.Error())
		return
	}
	if err := s.opts.Store.SaveTemplate(t); err != nil {
		InternalError(w, r, "Failed to save template", err.Error())
		return
	}
	OK(w, r, t, "Template updated")
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	t := s.loadTemplate(w, r)
	if t == nil {
		return
	}
	err := s.opts.Store.DeleteTemplate(t.ID)
	if errors.Is(err, storage.ErrTemplateNotFound) {
		NotFound(w, r, "Template not found", t.ID)
		return
	}
	if err != nil {
		InternalError(w, r, "Failed to delete template", err.Error())
		return
	}
	OK(w, r, nil, "Template deleted")
}

func (s *Server) templateFields(w http.ResponseWriter, r *http.Request) {
	if t := s.loadTemplate(w, r); t != nil {
		OK(w, r, map[string][]string{"fields": templating.ExtractFields(*t)}, "")
	}
}

func (s *Server) sendTemplate(w http.ResponseWriter, r *http.Request) {
	t := s.loadTemplate(w, r)
	if t == nil {
		return
	}

	var body SendBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			BadRequest(w, r, "Invalid send body", err.Error())
			return
		}
	}

	var (
		entry model.LogEntry
		err   error
	)
	if body.Selection != nil {
		entry, err = s.opts.Sender.SendSelection(r.Context(), *t, *body.Selection, body.Field)
	} else {
		entry, err = s.opts.Sender.Send(r.Context(), *t, body.Values)
	}
	if err != nil {
		Error(w, r, sendErrorStatus(err), "Request not sent", err.Error())
		return
	}
	OK(w, r, entry, "")
}
