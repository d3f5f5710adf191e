package http

import (
	"fmt"
	"net/http"

	"fintrack/internal/log"
)

// handleEntriesPartial renders the filtered entries table.
func (s *Server) handleEntriesPartial(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.render(w, r, "entries", s.buildEntriesView(f))
}

// handleEntryEditForm renders the edit form of one entry, pre-filled with
// its stored values.
func (s *Server) handleEntryEditForm(w http.ResponseWriter, r *http.Request) {
	e, err := s.ledger.Entry(pathParam(r, "id"))
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.render(w, r, "entry_edit", entryEditView{Row: s.newEntryRow(e), Categories: s.ledger.Categories("")})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Malformed form data").Write(w)
		return
	}
	in, err := ParseEntryForm(r.PostForm)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}

	e, err := s.ledger.AddEntry(r.Context(), in)
	if err != nil {
		logMutationError(r, "Create entry failed", err, log.OpCreate)
		ErrorFor(err).Write(w)
		return
	}

	msg := fmt.Sprintf("Added %s %s on %s", e.Category, s.money.Format(e.Amount), e.Date)
	SuccessResponse(msg).
		Status(http.StatusCreated).
		TriggerLedgerChanged(s.ledger.Revision()).
		Write(w)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := r.ParseForm(); err != nil {
		BadRequestError("Malformed form data").Write(w)
		return
	}
	in, err := ParseEntryForm(r.PostForm)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}

	e, err := s.ledger.UpdateEntry(r.Context(), id, in)
	if err != nil {
		logMutationError(r, "Update entry failed", err, log.OpUpdate)
		ErrorFor(err).Write(w)
		return
	}

	msg := fmt.Sprintf("Updated %s %s on %s", e.Category, s.money.Format(e.Amount), e.Date)
	SuccessResponse(msg).TriggerLedgerChanged(s.ledger.Revision()).Write(w)
}

// handleDeleteEntry serves both DELETE /entries/{id} and the POST fallback.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	e, err := s.ledger.DeleteEntry(r.Context(), id)
	if err != nil {
		logMutationError(r, "Delete entry failed", err, log.OpDelete)
		ErrorFor(err).Write(w)
		return
	}

	msg := fmt.Sprintf("Deleted %s %s on %s", e.Category, s.money.Format(e.Amount), e.Date)
	SuccessResponse(msg).TriggerLedgerChanged(s.ledger.Revision()).Write(w)
}
