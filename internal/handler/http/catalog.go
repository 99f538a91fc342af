package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/princebhatt03/UrbanCart/internal/domain"
	"github.com/princebhatt03/UrbanCart/internal/service"
	"github.com/princebhatt03/UrbanCart/internal/storage"
	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
	"github.com/princebhatt03/UrbanCart/pkg/httputil"
	"github.com/princebhatt03/UrbanCart/pkg/pagination"
)

// CatalogHandler handles HTTP requests for one catalog kind. The same
// handler serves /api/products and /api/shop with a different kind.
type CatalogHandler struct {
	service *service.CatalogService
	storage storage.Storage
	kind    domain.CatalogKind
	logger  *slog.Logger
}

// NewCatalogHandler creates a catalog handler bound to one kind.
func NewCatalogHandler(svc *service.CatalogService, store storage.Storage, kind domain.CatalogKind, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, storage: store, kind: kind, logger: logger}
}

// List handles GET /api/{products,shop}
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	items, total, err := h.service.List(r.Context(), h.kind, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK,
		httputil.NewPaginatedResponse(items, total, params.Page, params.PerPage))
}

// Get handles GET /api/{products,shop}/{id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), h.kind, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: item})
}

// Create handles POST /api/{products,shop} (multipart/form-data).
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	// 1MB of headroom for the non-file form fields.
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize+(1<<20))

	if err := r.ParseMultipartForm(storage.MaxUploadSize); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to parse multipart form: " + err.Error()},
		})
		return
	}

	priceCents, err := parsePriceCents(r.FormValue("price_cents"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	imageURL, err := h.saveImage(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	input := service.CreateItemInput{
		Kind:        h.kind,
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Tag:         r.FormValue("tag"),
		PriceCents:  priceCents,
		ImageURL:    imageURL,
	}

	item, err := h.service.Create(r.Context(), input)
	if err != nil {
		// The item never made it to the catalog, so its image goes too.
		if imageURL != "" {
			if cleanupErr := h.storage.Delete(r.Context(), imageURL); cleanupErr != nil {
				h.logger.WarnContext(r.Context(), "failed to clean up orphaned image",
					slog.String("path", imageURL),
					slog.String("error", cleanupErr.Error()),
				)
			}
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: item})
}

// Update handles PUT /api/{products,shop}/{id} (multipart/form-data).
// Absent form fields are left unchanged; a new image replaces the old.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize+(1<<20))

	if err := r.ParseMultipartForm(storage.MaxUploadSize); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to parse multipart form: " + err.Error()},
		})
		return
	}

	var input service.UpdateItemInput
	if v, ok := formField(r, "name"); ok {
		input.Name = &v
	}
	if v, ok := formField(r, "description"); ok {
		input.Description = &v
	}
	if v, ok := formField(r, "category"); ok {
		input.Category = &v
	}
	if v, ok := formField(r, "tag"); ok {
		input.Tag = &v
	}
	if v, ok := formField(r, "price_cents"); ok {
		priceCents, err := parsePriceCents(v)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		input.PriceCents = &priceCents
	}

	imageURL, err := h.saveOptionalImage(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if imageURL != "" {
		input.ImageURL = &imageURL
	}

	item, err := h.service.Update(r.Context(), h.kind, chi.URLParam(r, "id"), input)
	if err != nil {
		if imageURL != "" {
			if cleanupErr := h.storage.Delete(r.Context(), imageURL); cleanupErr != nil {
				h.logger.WarnContext(r.Context(), "failed to clean up orphaned image",
					slog.String("path", imageURL),
					slog.String("error", cleanupErr.Error()),
				)
			}
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: item})
}

// Delete handles DELETE /api/{products,shop}/{id}
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), h.kind, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"id": id, "status": "deleted"},
	})
}

// --- Helpers ---

// saveImage stores the required "image" form file.
func (h *CatalogHandler) saveImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", apperrors.InvalidInput("image file is required")
	}
	defer file.Close()

	return h.storage.Save(r.Context(), &storage.SaveInput{
		FileName: header.Filename,
		Size:     header.Size,
		Data:     file,
	})
}

// saveOptionalImage stores the "image" form file when present.
func (h *CatalogHandler) saveOptionalImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.InvalidInput("invalid image upload: " + err.Error())
	}
	defer file.Close()

	return h.storage.Save(r.Context(), &storage.SaveInput{
		FileName: header.Filename,
		Size:     header.Size,
		Data:     file,
	})
}

// formField reports a multipart form value and whether the field was
// present at all, so empty and absent are distinguishable.
func formField(r *http.Request, name string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// parsePriceCents parses a non-negative integer price.
func parsePriceCents(raw string) (int64, error) {
	if raw == "" {
		return 0, apperrors.InvalidInput("price_cents is required")
	}
	priceCents, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("price_cents must be an integer")
	}
	if priceCents < 0 {
		return 0, apperrors.InvalidInput("price_cents must not be negative")
	}
	return priceCents, nil
}
