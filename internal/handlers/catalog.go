package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/talent-hunters/bookportal/internal/services"
	"github.com/talent-hunters/bookportal/types"
	"go.uber.org/zap"
)

// CatalogHandler serves the class and subject lookup lists.
type CatalogHandler struct {
	catalogService *services.CatalogService
	log            *zap.Logger
}

func NewCatalogHandler(catalogService *services.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, log: log}
}

// ClassRouter registers class routes on the given router.
func ClassRouter(r chi.Router, catalogService *services.CatalogService, log *zap.Logger) {
	handler := NewCatalogHandler(catalogService, log)

	r.Get("/fetchall", handler.ListClasses)
	r.Get("/category", handler.ListClassesByCategory)
	r.Get("/{grade}", handler.ListClassesByGrade)
	r.Get("/{grade}/category", handler.ListClassesByGradeAndCategory)
}

// SubjectRouter registers subject routes on the given router.
func SubjectRouter(r chi.Router, catalogService *services.CatalogService, log *zap.Logger) {
	handler := NewCatalogHandler(catalogService, log)

	r.Get("/fetchall", handler.ListSubjects)
	r.Get("/{subject}", handler.ListSubjectsByName)
}

func (h *CatalogHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	h.listClasses(w, r, types.ClassFilter{})
}

func (h *CatalogHandler) ListClassesByCategory(w http.ResponseWriter, r *http.Request) {
	h.listClasses(w, r, types.ClassFilter{Category: query(r, "category")})
}

func (h *CatalogHandler) ListClassesByGrade(w http.ResponseWriter, r *http.Request) {
	h.listClasses(w, r, types.ClassFilter{Grade: chi.URLParam(r, "grade")})
}

func (h *CatalogHandler) ListClassesByGradeAndCategory(w http.ResponseWriter, r *http.Request) {
	h.listClasses(w, r, types.ClassFilter{
		Grade:    chi.URLParam(r, "grade"),
		Category: query(r, "category"),
	})
}

func (h *CatalogHandler) listClasses(w http.ResponseWriter, r *http.Request, filter types.ClassFilter) {
	classes, err := h.catalogService.ListClasses(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(classes))
}

func (h *CatalogHandler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	h.listSubjects(w, r, "")
}

func (h *CatalogHandler) ListSubjectsByName(w http.ResponseWriter, r *http.Request) {
	h.listSubjects(w, r, chi.URLParam(r, "subject"))
}

func (h *CatalogHandler) listSubjects(w http.ResponseWriter, r *http.Request, subject string) {
	subjects, err := h.catalogService.ListSubjects(r.Context(), subject)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(subjects))
}
