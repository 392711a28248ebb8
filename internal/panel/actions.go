package panel

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/eventdesk/internal/model"
	"github.com/alfredjeanlab/eventdesk/internal/session"
)

// Create handles a posted Add form. The submitted id and rows always replace
// the session's draft so nothing typed is lost. On save the draft is
// validated and added; it is cleared only after a successful write.
func (p *Panel) Create(ctx context.Context, sess *session.Session, in TableInput) error {
	sess.CreateID = in.ID
	sess.CreateTable.SetRows(in.Rows)

	if handled, err := applyRowAction(sess.CreateTable, in.Action); handled {
		return err
	}

	id := model.NormalizeID(in.ID)
	attrs := sess.CreateTable.Attributes()
	if err := model.ValidateCreate(id, attrs); err != nil {
		reportError(sess, SectionAdd, err)
		return err
	}
	if err := p.repo.Add(ctx, id, attrs); err != nil {
		reportError(sess, SectionAdd, err)
		return err
	}

	sess.CreateID = ""
	sess.CreateTable.Reset()
	sess.AddNotice(SectionAdd, session.LevelSuccess, fmt.Sprintf("Event %q added.", id))
	return nil
}

// Edit handles a posted Edit form. A form for an event other than the
// session's current edit selection is ignored. On save the whole mapping
// replaces the stored one and the table is reloaded from what was written.
func (p *Panel) Edit(ctx context.Context, sess *session.Session, in TableInput) error {
	if in.ID == "" {
		posted := &model.Table{}
		posted.SetRows(in.Rows)
		err := model.ValidateUpdate(in.ID, posted.Attributes())
		reportError(sess, SectionEdit, err)
		return err
	}
	if in.ID != sess.EditID || sess.EditTable == nil {
		sess.AddNotice(SectionEdit, session.LevelWarning,
			fmt.Sprintf("The form for %q is out of date; your changes were not applied.", in.ID))
		return ErrStaleForm
	}

	sess.EditTable.SetRows(in.Rows)
	if handled, err := applyRowAction(sess.EditTable, in.Action); handled {
		return err
	}

	attrs := sess.EditTable.Attributes()
	if err := model.ValidateUpdate(in.ID, attrs); err != nil {
		reportError(sess, SectionEdit, err)
		return err
	}
	if err := p.repo.Update(ctx, in.ID, attrs); err != nil {
		reportError(sess, SectionEdit, err)
		return err
	}

	sess.EditTable = model.NewTable(model.Sanitize(attrs))
	sess.AddNotice(SectionEdit, session.LevelSuccess, fmt.Sprintf("Event %q updated.", in.ID))
	return nil
}

// Delete handles the Delete confirm button. Deleting the event open in the
// Edit section also clears that selection.
func (p *Panel) Delete(ctx context.Context, sess *session.Session, id string) error {
	if err := model.ValidateDelete(id); err != nil {
		reportError(sess, SectionDelete, err)
		return err
	}
	if err := p.repo.Delete(ctx, id); err != nil {
		reportError(sess, SectionDelete, err)
		return err
	}

	if sess.EditID == id {
		sess.ClearEdit()
	}
	if sess.ViewID == id {
		sess.ViewID = ""
	}
	sess.DeleteID = ""
	sess.AddNotice(SectionDelete, session.LevelSuccess, fmt.Sprintf("Event %q deleted.", id))
	return nil
}
