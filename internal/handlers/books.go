package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/talent-hunters/bookportal/internal/services"
	"github.com/talent-hunters/bookportal/types"
	"go.uber.org/zap"
)

const (
	maxMultipartMemory = 8 << 20
	maxCoverBytes      = 5 << 20
	formFieldCover     = "img"
	formFieldName      = "name"
	formFieldSubject   = "subject"
	formFieldStatus    = "status"
	formFieldGrade     = "grade"
	formFieldCount     = "count"
	formFieldAuthor    = "author"
)

// BookHandler provides catalog endpoints and the sold-out, request and
// donation logs.
type BookHandler struct {
	bookService   *services.BookService
	ledgerService *services.LedgerService
	log           *zap.Logger
}

func NewBookHandler(bookService *services.BookService, ledgerService *services.LedgerService, log *zap.Logger) *BookHandler {
	return &BookHandler{bookService: bookService, ledgerService: ledgerService, log: log}
}

// BookRouter registers book routes on the given router. adminOnly guards
// catalog changes.
func BookRouter(
	r chi.Router,
	bookService *services.BookService,
	ledgerService *services.LedgerService,
	authMiddleware func(http.Handler) http.Handler,
	adminOnly func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	handler := NewBookHandler(bookService, ledgerService, log)

	r.Get("/class", handler.ListByGrade)
	r.Get("/class/", handler.ListByGrade)
	r.Get("/queryall", handler.Query)
	r.Get("/queryall/", handler.Query)
	r.Get("/subject", handler.ListBySubject)
	r.Get("/subject/", handler.ListBySubject)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/fetchall", handler.ListBooks)
		r.Get("/pagination", handler.Page)
		r.Get("/fetch/bookname", handler.ListByName)
		r.Get("/fetch/author", handler.ListByAuthor)
		r.Get("/available/fetch", handler.ListAvailable)
		r.Get("/{bookID}", handler.GetBook)

		r.With(adminOnly).Post("/add", handler.CreateBook)
		r.With(adminOnly).Put("/update/{bookID}", handler.UpdateBook)
		r.With(adminOnly).Delete("/delete/{bookID}", handler.DeleteBook)

		r.Post("/soldout/add", handler.AddSoldOut)
		r.Get("/soldout/fetch", handler.ListSoldOut)
		r.Post("/reqbook/send", handler.RequestBook)
		r.Get("/reqbook/fetch", handler.ListRequests)
		r.Post("/donatebook/send", handler.DonateBook)
		r.Get("/donatebook/fetch", handler.ListDonations)
	})
}

func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, types.BookFilter{})
}

// Page returns one page of the catalog. A missing or malformed page
// number means the first page.
func (h *BookHandler) Page(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("page")))
	if err != nil {
		page = 1
	}

	books, err := h.bookService.Page(r.Context(), page)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(books))
}

func (h *BookHandler) ListByGrade(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, types.BookFilter{Grade: query(r, "grade")})
}

func (h *BookHandler) ListBySubject(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, types.BookFilter{Subject: query(r, "name")})
}

func (h *BookHandler) ListByName(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, types.BookFilter{ExactName: query(r, "name")})
}

func (h *BookHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, types.BookFilter{Author: query(r, "name")})
}

func (h *BookHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, types.BookFilter{Status: types.StatusAvailable})
}

// Query filters by grade, subject and status (default available), with
// name matched as a case-insensitive substring.
func (h *BookHandler) Query(w http.ResponseWriter, r *http.Request) {
	filter := types.BookFilter{
		Grade:   query(r, "grade"),
		Subject: query(r, "subject"),
		Status:  query(r, "status"),
		Name:    query(r, "name"),
	}
	if filter.Status == "" {
		filter.Status = types.StatusAvailable
	}
	h.list(w, r, filter)
}

func (h *BookHandler) list(w http.ResponseWriter, r *http.Request, filter types.BookFilter) {
	books, err := h.bookService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(books))
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.Get(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// CreateBook accepts either a multipart form with an optional img file or
// a JSON body.
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var (
		req   services.BookInput
		cover *services.Cover
	)
	if isMultipart(r) {
		form, err := parseBookForm(r)
		if err != nil {
			writeServiceError(w, r, h.log, err)
			return
		}
		req = services.BookInput{
			Name:    form.value(formFieldName),
			Subject: form.value(formFieldSubject),
			Status:  form.value(formFieldStatus),
			Grade:   form.value(formFieldGrade),
			Count:   form.count,
			Author:  form.value(formFieldAuthor),
		}
		cover = form.cover
	} else if !decodeJSON(w, r, &req) {
		return
	}

	book, err := h.bookService.Create(r.Context(), req, cover)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// UpdateBook changes only the fields present in the request.
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var (
		req   services.BookUpdateInput
		cover *services.Cover
	)
	if isMultipart(r) {
		form, err := parseBookForm(r)
		if err != nil {
			writeServiceError(w, r, h.log, err)
			return
		}
		req = services.BookUpdateInput{
			Name:    form.optional(formFieldName),
			Subject: form.optional(formFieldSubject),
			Status:  form.optional(formFieldStatus),
			Grade:   form.optional(formFieldGrade),
			Count:   form.count,
			Author:  form.optional(formFieldAuthor),
		}
		cover = form.cover
	} else if !decodeJSON(w, r, &req) {
		return
	}

	book, err := h.bookService.Update(r.Context(), chi.URLParam(r, "bookID"), req, cover)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.Delete(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteBookResponse{Success: "Book has been deleted", Book: book})
}

// AddSoldOut records that a user asked for a book that is sold out.
func (h *BookHandler) AddSoldOut(w http.ResponseWriter, r *http.Request) {
	var req services.BookTransferInput
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.ledgerService.RecordSoldOutInterest(r.Context(), req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "Req sent for soldoutbook")
}

func (h *BookHandler) ListSoldOut(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledgerService.ListSoldOut(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

// RequestBook records a request for a book the catalog lacks.
func (h *BookHandler) RequestBook(w http.ResponseWriter, r *http.Request) {
	var req services.BookWishInput
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.ledgerService.RecordRequest(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, WishResponse{
		Message:  "Req sent for soldoutbook",
		BookName: entry.BookName,
		Grade:    entry.Grade,
	})
}

func (h *BookHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledgerService.ListRequests(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

// DonateBook records an offer to donate a book.
func (h *BookHandler) DonateBook(w http.ResponseWriter, r *http.Request) {
	var req services.BookWishInput
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.ledgerService.RecordDonation(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, WishResponse{
		Message:  "Req sent for soldoutbook",
		BookName: entry.BookName,
		Grade:    entry.Grade,
	})
}

func (h *BookHandler) ListDonations(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledgerService.ListDonations(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

type DeleteBookResponse struct {
	Success string     `json:"Success"`
	Book    types.Book `json:"book"`
}

// WishResponse acknowledges a request or donation.
type WishResponse struct {
	Message  string `json:"message"`
	BookName string `json:"bookname"`
	Grade    string `json:"grade"`
}

// bookForm is a parsed multipart book payload.
type bookForm struct {
	values map[string][]string
	count  *int
	cover  *services.Cover
}

func (f bookForm) value(field string) string {
	if v := f.values[field]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// optional returns nil for a field absent from the form or sent empty.
func (f bookForm) optional(field string) *string {
	v := strings.TrimSpace(f.value(field))
	if v == "" {
		return nil
	}
	return &v
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func parseBookForm(r *http.Request) (bookForm, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return bookForm{}, formError("body", "invalid multipart form")
	}

	form := bookForm{values: r.MultipartForm.Value}
	if raw := strings.TrimSpace(form.value(formFieldCount)); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return bookForm{}, formError(formFieldCount, "Count must be a non-negative number")
		}
		form.count = &count
	}

	cover, err := parseCoverFile(r.MultipartForm)
	if err != nil {
		return bookForm{}, err
	}
	form.cover = cover
	return form, nil
}

// parseCoverFile returns the uploaded cover, or nil when none was sent.
func parseCoverFile(form *multipart.Form) (*services.Cover, error) {
	files := form.File[formFieldCover]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > 1 {
		return nil, formError(formFieldCover, "only one image is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return nil, formError(formFieldCover, "failed to read image")
	}
	data, err := readFileLimited(file, maxCoverBytes)
	_ = file.Close()
	if err != nil {
		return nil, formError(formFieldCover, err.Error())
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, formError(formFieldCover, "Cover must be an image")
	}

	return &services.Cover{
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

func formError(param, msg string) error {
	return &services.ValidationError{Errors: []services.FieldError{{Param: param, Msg: msg}}}
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
