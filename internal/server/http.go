package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/eventdesk/internal/model"
	"github.com/alfredjeanlab/eventdesk/internal/panel"
	"github.com/alfredjeanlab/eventdesk/internal/session"
)

// pageData is the template model.
type pageData struct {
	Title string
	Page  *panel.Page
}

// handleIndex handles GET /.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.acquire(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page := s.panel.Render(r.Context(), sess, panel.Selection{
		View:   q.Get("view"),
		Edit:   q.Get("edit"),
		Delete: q.Get("delete"),
	})
	sess.Release()

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, pageData{Title: s.title, Page: page}); err != nil {
		s.logger.Error("render page", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if page.FetchErr != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = buf.WriteTo(w)
}

// handleAdd handles POST /add.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	in, err := parseTableForm(r)
	if err != nil {
		sess.AddNotice(panel.SectionAdd, session.LevelError, err.Error())
	} else {
		_ = s.panel.Create(r.Context(), sess, in)
	}
	redirect(w, r, panel.SectionAdd)
}

// handleEdit handles POST /edit.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	in, err := parseTableForm(r)
	if err != nil {
		sess.AddNotice(panel.SectionEdit, session.LevelError, err.Error())
	} else {
		_ = s.panel.Edit(r.Context(), sess, in)
	}
	redirect(w, r, panel.SectionEdit)
}

// handleDelete handles POST /delete.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	if err := r.ParseForm(); err != nil {
		sess.AddNotice(panel.SectionDelete, session.LevelError, "invalid form: "+err.Error())
	} else {
		_ = s.panel.Delete(r.Context(), sess, r.PostForm.Get("id"))
	}
	redirect(w, r, panel.SectionDelete)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) acquire(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Acquire(w, r)
	if err != nil {
		s.logger.Error("acquire session", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

// inputError indicates a malformed form submission.
type inputError string

func (e inputError) Error() string { return string(e) }

// parseTableForm reads an Add or Edit form: an id, parallel "attr" and
// "prompt" fields (one pair per row, in order) and the pressed button in
// "action" ("save", "add-row" or "delete-row:N").
func parseTableForm(r *http.Request) (panel.TableInput, error) {
	if err := r.ParseForm(); err != nil {
		return panel.TableInput{}, inputError("invalid form: " + err.Error())
	}
	f := r.PostForm

	attrs, prompts := f["attr"], f["prompt"]
	n := max(len(attrs), len(prompts))
	rows := make([]model.Row, n)
	for i := range rows {
		if i < len(attrs) {
			rows[i].Attribute = attrs[i]
		}
		if i < len(prompts) {
			// Browsers submit textarea line breaks as CRLF.
			rows[i].Prompt = strings.ReplaceAll(prompts[i], "\r\n", "\n")
		}
	}

	action, err := parseAction(f.Get("action"))
	if err != nil {
		return panel.TableInput{}, err
	}
	return panel.TableInput{ID: f.Get("id"), Rows: rows, Action: action}, nil
}

func parseAction(v string) (panel.Action, error) {
	switch {
	case v == "" || v == "save":
		return panel.Action{Kind: panel.ActionSave}, nil
	case v == "add-row":
		return panel.Action{Kind: panel.ActionAddRow}, nil
	case strings.HasPrefix(v, "delete-row:"):
		i, err := strconv.Atoi(strings.TrimPrefix(v, "delete-row:"))
		if err != nil {
			return panel.Action{}, inputError("invalid row index in action " + strconv.Quote(v))
		}
		return panel.Action{Kind: panel.ActionDeleteRow, Row: i}, nil
	}
	return panel.Action{}, inputError("unknown action " + strconv.Quote(v))
}

// redirect sends the browser back to the page, scrolled to section.
func redirect(w http.ResponseWriter, r *http.Request, section string) {
	http.Redirect(w, r, "/#"+section, http.StatusSeeOther)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
