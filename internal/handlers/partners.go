package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ngenohkevin/prize_admin/internal/models"
	"github.com/ngenohkevin/prize_admin/internal/templates"
)

// ListPartners handles the partner management page
func (h *Handler) ListPartners(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("q")

	var partners []models.Partner
	var err error

	if search != "" {
		partners, err = models.SearchPartners(h.DB, search)
	} else {
		partners, err = models.GetAllPartners(h.DB)
	}
	if err != nil {
		httpError(w, "getting partners", err)
		return
	}

	templates.PartnerList(templates.PartnerListView{Partners: partners, Search: search}).Render(r.Context(), w)
}

// CreatePartner adds a partner awaiting approval
func (h *Handler) CreatePartner(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))

	if err := models.ValidatePartner(name, email); err != nil {
		var verrs models.ValidationErrors
		if !errors.As(err, &verrs) {
			httpError(w, "validating partner", err)
			return
		}

		partners, listErr := models.GetAllPartners(h.DB)
		if listErr != nil {
			httpError(w, "getting partners", listErr)
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		templates.PartnerList(templates.PartnerListView{
			Partners: partners,
			Name:     name,
			Email:    email,
			Errors:   verrs,
		}).Render(r.Context(), w)
		return
	}

	if _, err := models.CreatePartner(h.DB, name, email); err != nil {
		httpError(w, "creating partner", err)
		return
	}

	http.Redirect(w, r, "/partners", http.StatusSeeOther)
}

// SetPartnerApproval flips a partner's approval and returns the updated row
func (h *Handler) SetPartnerApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing partner ID", http.StatusBadRequest)
		return
	}

	approved, err := strconv.ParseBool(r.URL.Query().Get("approved"))
	if err != nil {
		http.Error(w, "Invalid approved flag", http.StatusBadRequest)
		return
	}

	partner, err := models.SetPartnerApproved(h.DB, id, approved)
	if err != nil {
		httpError(w, "updating partner", err)
		return
	}

	templates.PartnerRow(partner).Render(r.Context(), w)
}

// DeletePartner handles the request to delete a partner
func (h *Handler) DeletePartner(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing partner ID", http.StatusBadRequest)
		return
	}

	if err := models.DeletePartner(h.DB, id); err != nil {
		httpError(w, "deleting partner", err)
		return
	}

	// For HTMX delete requests, just return 200 OK
	w.WriteHeader(http.StatusOK)
}
