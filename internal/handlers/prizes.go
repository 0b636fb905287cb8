package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ngenohkevin/prize_admin/internal/models"
	"github.com/ngenohkevin/prize_admin/internal/storage"
	"github.com/ngenohkevin/prize_admin/internal/templates"
)

// maxUploadSize caps the multipart body of the inventory form
const maxUploadSize = 8 << 20

// ListPrizes handles the request to list the inventory
func (h *Handler) ListPrizes(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsedPage, err := strconv.Atoi(p); err == nil && parsedPage > 0 {
			page = parsedPage
		}
	}

	pageSize := 15
	if ps := r.URL.Query().Get("limit"); ps != "" {
		if parsedSize, err := strconv.Atoi(ps); err == nil && parsedSize > 0 && parsedSize <= 100 {
			pageSize = parsedSize
		}
	}

	search := r.URL.Query().Get("q")
	status := r.URL.Query().Get("status")

	result, err := models.GetPrizesPaginated(h.DB, page, pageSize, status, search)
	if err != nil {
		httpError(w, "getting prizes", err)
		return
	}

	templates.PrizeList(*result, h.Clock.Now(), search, status).Render(r.Context(), w)
}

// GetPrize handles the request to view a single prize
func (h *Handler) GetPrize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing prize ID", http.StatusBadRequest)
		return
	}

	prize, err := models.GetPrizeByID(h.DB, id)
	if err != nil {
		httpError(w, "getting prize", err)
		return
	}

	templates.PrizeView(prize, h.Clock.Now()).Render(r.Context(), w)
}

// NewPrizeForm shows an empty inventory form
func (h *Handler) NewPrizeForm(w http.ResponseWriter, r *http.Request) {
	partners, err := models.GetApprovedPartnerNames(h.DB)
	if err != nil {
		httpError(w, "getting partners", err)
		return
	}

	templates.PrizeForm(templates.PrizeFormView{
		Form:     models.PrizeForm{Status: models.StatusActive, StockLevel: models.StockLevels[0]},
		Partners: partners,
	}).Render(r.Context(), w)
}

// EditPrizeForm shows the inventory form filled with an existing prize
func (h *Handler) EditPrizeForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing prize ID", http.StatusBadRequest)
		return
	}

	prize, err := models.GetPrizeByID(h.DB, id)
	if err != nil {
		httpError(w, "getting prize", err)
		return
	}

	partners, err := models.GetApprovedPartnerNames(h.DB)
	if err != nil {
		httpError(w, "getting partners", err)
		return
	}

	templates.PrizeForm(templates.PrizeFormView{
		ID:        prize.ID,
		IsEdit:    true,
		Form:      models.PrizeFormFromPrize(prize),
		Partners:  withPartner(partners, prize.Partner),
		Thumbnail: prize.Thumbnail,
	}).Render(r.Context(), w)
}

// CreatePrize handles the inventory form submission for a new prize
func (h *Handler) CreatePrize(w http.ResponseWriter, r *http.Request) {
	h.savePrize(w, r, "", nil)
}

// UpdatePrize handles the inventory form submission for an existing prize
func (h *Handler) UpdatePrize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing prize ID", http.StatusBadRequest)
		return
	}

	current, err := models.GetPrizeByID(h.DB, id)
	if err != nil {
		httpError(w, "getting prize", err)
		return
	}

	h.savePrize(w, r, id, current.Thumbnail)
}

// savePrize validates the form, then uploads the staged thumbnail, then
// writes the prize. Nothing is uploaded for a form that fails validation.
func (h *Handler) savePrize(w http.ResponseWriter, r *http.Request, id string, current *string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form := models.PrizeFormFromValues(r.Form)
	data, err := form.Validate()
	if err != nil {
		var verrs models.ValidationErrors
		if !errors.As(err, &verrs) {
			httpError(w, "validating prize", err)
			return
		}
		h.renderPrizeForm(w, r, id, form, verrs, current)
		return
	}

	staged, err := stageThumbnail(r)
	if err != nil {
		h.renderPrizeForm(w, r, id, form, models.ValidationErrors{"thumbnail": "Thumbnail could not be read"}, current)
		return
	}

	data.Thumbnail, err = resolveThumbnail(r.Context(), h.Uploader, current, staged, r.FormValue("remove_thumbnail") == "true")
	if err != nil {
		if errors.Is(err, storage.ErrNotImage) {
			h.renderPrizeForm(w, r, id, form, models.ValidationErrors{"thumbnail": "Thumbnail must be an image"}, current)
			return
		}
		log.Printf("Error uploading thumbnail: %v", err)
		http.Error(w, "Error uploading thumbnail", http.StatusBadGateway)
		return
	}

	var prize models.Prize
	if id == "" {
		prize, err = models.CreatePrize(h.DB, data)
	} else {
		prize, err = models.UpdatePrize(h.DB, id, data)
	}
	if err != nil {
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			h.renderPrizeForm(w, r, id, form, verrs, current)
			return
		}
		httpError(w, "saving prize", err)
		return
	}

	http.Redirect(w, r, "/prizes/"+prize.ID, http.StatusSeeOther)
}

func (h *Handler) renderPrizeForm(w http.ResponseWriter, r *http.Request, id string, form models.PrizeForm, errs models.ValidationErrors, thumbnail *string) {
	partners, err := models.GetApprovedPartnerNames(h.DB)
	if err != nil {
		httpError(w, "getting partners", err)
		return
	}

	w.WriteHeader(http.StatusUnprocessableEntity)
	templates.PrizeForm(templates.PrizeFormView{
		ID:        id,
		IsEdit:    id != "",
		Form:      form,
		Errors:    errs,
		Partners:  withPartner(partners, form.Partner),
		Thumbnail: thumbnail,
	}).Render(r.Context(), w)
}

// DeletePrize handles the request to delete a prize
func (h *Handler) DeletePrize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing prize ID", http.StatusBadRequest)
		return
	}

	if err := models.DeletePrize(h.DB, id); err != nil {
		httpError(w, "deleting prize", err)
		return
	}

	// For HTMX delete requests, just return 200 OK
	w.WriteHeader(http.StatusOK)
}

// withPartner keeps a prize's current partner selectable even after the
// partner's approval was revoked
func withPartner(partners []string, name string) []string {
	if name == "" {
		return partners
	}
	for _, p := range partners {
		if p == name {
			return partners
		}
	}
	return append(append([]string{}, partners...), name)
}

// stagedFile is a thumbnail picked in the form but not uploaded yet
type stagedFile struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// stageThumbnail picks the thumbnail out of the multipart form, if any
func stageThumbnail(r *http.Request) (*stagedFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File["thumbnail"]
	if len(files) == 0 || files[0].Size == 0 {
		return nil, nil
	}

	fh := files[0]
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		return nil, errors.New("thumbnail has no content type")
	}

	return &stagedFile{
		Name:        fh.Filename,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}, nil
}

// resolveThumbnail decides the thumbnail a saved prize ends up with: a newly
// staged file wins, then an explicit removal, then the current one.
func resolveThumbnail(ctx context.Context, uploader storage.Uploader, current *string, staged *stagedFile, remove bool) (*string, error) {
	if staged == nil {
		if remove {
			return nil, nil
		}
		return current, nil
	}

	f, err := staged.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening thumbnail: %w", err)
	}
	defer f.Close()

	url, err := uploader.Upload(ctx, staged.Name, staged.ContentType, f)
	if err != nil {
		return nil, err
	}
	return &url, nil
}
