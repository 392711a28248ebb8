// Package panel holds the four section controllers of the admin page (View,
// Add, Edit, Delete). Controllers read and write the operator's session and
// call the repository; they know nothing about HTTP.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/eventdesk/internal/model"
	"github.com/alfredjeanlab/eventdesk/internal/session"
)

// Section names, also used as page anchors.
const (
	SectionView   = "view"
	SectionAdd    = "add"
	SectionEdit   = "edit"
	SectionDelete = "delete"
)

// ErrStaleForm is returned when an edit form was rendered for an event that
// is no longer the session's edit selection.
var ErrStaleForm = errors.New("stale edit form")

// Repository is the event store as the controllers see it.
type Repository interface {
	FetchAll(ctx context.Context) ([]model.Event, error)
	Add(ctx context.Context, id string, attrs model.Attributes) error
	Update(ctx context.Context, id string, attrs model.Attributes) error
	Delete(ctx context.Context, id string) error
}

// ActionKind is what a table form submission asks for.
type ActionKind int

const (
	ActionSave ActionKind = iota
	ActionAddRow
	ActionDeleteRow
)

// Action is a table form submission. Row is the target of ActionDeleteRow.
type Action struct {
	Kind ActionKind
	Row  int
}

// TableInput is a posted Add or Edit form.
type TableInput struct {
	ID     string
	Rows   []model.Row
	Action Action
}

// Panel wires the controllers to a repository.
type Panel struct {
	repo   Repository
	logger *slog.Logger
}

// New returns a Panel over r.
func New(r Repository, logger *slog.Logger) *Panel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{repo: r, logger: logger}
}

// reportError turns a controller failure into notices on the session.
// Validation errors become one notice per field; anything else is shown as
// a single error notice.
func reportError(sess *session.Session, section string, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		for _, fe := range ve.Errors {
			sess.AddNotice(section, session.LevelError, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
		}
		return
	}
	sess.AddNotice(section, session.LevelError, err.Error())
}

// applyRowAction handles the table-editing actions that never reach the
// repository. It reports whether the action was one of them.
func applyRowAction(t *model.Table, a Action) (bool, error) {
	switch a.Kind {
	case ActionAddRow:
		t.AddRow()
		return true, nil
	case ActionDeleteRow:
		return true, t.DeleteRow(a.Row)
	}
	return false, nil
}
