package panel

import (
	"context"

	"github.com/alfredjeanlab/eventdesk/internal/model"
	"github.com/alfredjeanlab/eventdesk/internal/repo"
	"github.com/alfredjeanlab/eventdesk/internal/session"
)

// Selection carries the selector values of a GET request. Empty fields
// keep the session's remembered choice.
type Selection struct {
	View   string
	Edit   string
	Delete string
}

// Page is everything one render shows.
type Page struct {
	IDs []string
	// FetchErr is set when the event list could not be loaded; no section
	// is rendered in that case.
	FetchErr error

	View   ViewSection
	Create TableSection
	Edit   TableSection
	Delete DeleteSection

	Notices map[string][]session.Notice
}

// Empty reports whether there are no events to show.
func (p *Page) Empty() bool { return len(p.IDs) == 0 }

// ViewSection is the read-only table of the selected event.
type ViewSection struct {
	Selected string
	Rows     []model.Row
}

// TableSection is an editable table plus the id it belongs to.
type TableSection struct {
	ID   string
	Rows []model.Row
}

// DeleteSection is the delete selector.
type DeleteSection struct {
	Selected string
}

// Render fetches the events and builds the page for sess, applying sel to
// the selectors. A changed edit selection reloads the edit table from the
// newly selected event, discarding unsaved edits.
func (p *Panel) Render(ctx context.Context, sess *session.Session, sel Selection) *Page {
	page := &Page{}

	events, err := p.repo.FetchAll(ctx)
	if err != nil {
		page.FetchErr = err
		page.Notices = groupNotices(sess.TakeNotices())
		return page
	}
	page.IDs = repo.IDs(events)

	viewID := choose(page.IDs, sel.View, sess.ViewID)
	sess.ViewID = viewID
	page.View.Selected = viewID
	if ev := repo.Find(events, viewID); ev != nil {
		page.View.Rows = model.NewTable(ev.Attributes).Rows
	}

	editID := choose(page.IDs, sel.Edit, sess.EditID)
	if editID == "" {
		sess.ClearEdit()
	} else if editID != sess.EditID || sess.EditTable == nil {
		sess.EditID = editID
		sess.EditTable = model.NewTable(repo.Find(events, editID).Attributes)
	}
	page.Edit.ID = sess.EditID
	if sess.EditTable != nil {
		page.Edit.Rows = sess.EditTable.Clone().Rows
	}

	sess.DeleteID = choose(page.IDs, sel.Delete, sess.DeleteID)
	page.Delete.Selected = sess.DeleteID

	page.Create.ID = sess.CreateID
	page.Create.Rows = sess.CreateTable.Clone().Rows

	page.Notices = groupNotices(sess.TakeNotices())
	return page
}

// choose picks the requested id when it exists, else the remembered one
// when it still exists, else the first id.
func choose(ids []string, requested, remembered string) string {
	if requested != "" && contains(ids, requested) {
		return requested
	}
	if remembered != "" && contains(ids, remembered) {
		return remembered
	}
	if len(ids) > 0 {
		return ids[0]
	}
	return ""
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func groupNotices(notices []session.Notice) map[string][]session.Notice {
	out := make(map[string][]session.Notice)
	for _, n := range notices {
		out[n.Section] = append(out[n.Section], n)
	}
	return out
}
