package http

import (
	"net/http"

	"fintrack/internal/log"
)

func (s *Server) handleCategoriesPartial(w http.ResponseWriter, r *http.Request) {
	v := s.buildCategoriesView()
	v.OOB = true
	s.render(w, r, "categories", v)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Malformed form data").Write(w)
		return
	}
	name, kind, err := ParseCategoryForm(r.PostForm)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}

	c, err := s.ledger.AddCategory(r.Context(), name, kind)
	if err != nil {
		logMutationError(r, "Create category failed", err, log.OpCreate)
		ErrorFor(err).Write(w)
		return
	}

	SuccessResponse("Added "+c.Name+" to "+c.Kind.Label()+" categories").
		Status(http.StatusCreated).
		TriggerLedgerChanged(s.ledger.Revision()).
		Write(w)
}

// handleDeleteCategory refuses categories still referenced by entries.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	c, err := s.ledger.DeleteCategory(r.Context(), name)
	if err != nil {
		logMutationError(r, "Delete category failed", err, log.OpDelete)
		ErrorFor(err).Write(w)
		return
	}

	SuccessResponse("Removed "+c.Name+" from "+c.Kind.Label()+" categories").
		TriggerLedgerChanged(s.ledger.Revision()).
		Write(w)
}
