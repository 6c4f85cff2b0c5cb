package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/talent-hunters/bookportal/internal/services"
	"github.com/talent-hunters/bookportal/types"
	"go.uber.org/zap"
)

// UserHandler provides the user directory and order endpoints.
type UserHandler struct {
	userService   *services.UserService
	ledgerService *services.LedgerService
	log           *zap.Logger
}

func NewUserHandler(userService *services.UserService, ledgerService *services.LedgerService, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, ledgerService: ledgerService, log: log}
}

// UserRouter registers user routes on the given router. adminOnly guards
// the routes meant for administrators.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	ledgerService *services.LedgerService,
	authMiddleware func(http.Handler) http.Handler,
	adminOnly func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	handler := NewUserHandler(userService, ledgerService, log)

	r.Get("/user", handler.listByAccountType(types.AccountTypeUser))

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/fetchall", handler.ListUsers)
		r.Get("/admin", handler.listByAccountType(types.AccountTypeAdmin))
		r.Get("/name", handler.ListByName)
		r.Get("/name/", handler.ListByName)
		r.Get("/familyname", handler.ListByFamilyName)
		r.Get("/familyname/", handler.ListByFamilyName)
		r.Get("/{userID}", handler.GetProfile)
		r.Post("/addbooks", handler.AddBook)

		r.With(adminOnly).Put("/add/{userID}", handler.UpdateUser)
		r.With(adminOnly).Put("/update/{userID}", handler.UpdateUser)
		r.With(adminOnly).Delete("/delete/{userID}", handler.DeleteUser)
		r.With(adminOnly).Put("/deleteall", handler.ClearBookLists)
		r.With(adminOnly).Get("/books/orders", handler.ListOrders)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, types.UserFilter{})
}

func (h *UserHandler) listByAccountType(accountType types.AccountType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.list(w, r, types.UserFilter{AccountType: accountType})
	}
}

// ListByName returns users whose username equals the name query parameter.
func (h *UserHandler) ListByName(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, types.UserFilter{Username: strings.TrimSpace(r.URL.Query().Get("name"))})
}

// ListByFamilyName returns users whose family name equals the familyname
// query parameter.
func (h *UserHandler) ListByFamilyName(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, types.UserFilter{FamilyName: strings.TrimSpace(r.URL.Query().Get("familyname"))})
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request, filter types.UserFilter) {
	users, err := h.userService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(users))
}

// GetProfile returns a user's name and id with the books on their list.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.Profile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{
		Obj: ProfileOwner{
			Username: profile.User.Username,
			ID:       profile.User.ID,
		},
		Books: profile.Books,
	})
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req services.UserUpdateInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), chi.URLParam(r, "userID"), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Delete(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteUserResponse{Success: "user has been deleted", User: user})
}

// ClearBookLists empties every user's book list.
func (h *UserHandler) ClearBookLists(w http.ResponseWriter, r *http.Request) {
	modified, err := h.userService.ClearBookLists(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ClearBookListsResponse{Modified: modified})
}

// AddBook records an order and appends the book to the user's list.
func (h *UserHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	var req services.BookTransferInput
	if !decodeJSON(w, r, &req) {
		return
	}

	_, user, err := h.ledgerService.RecordOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AddBookResponse{Message: "Book added to user", User: user})
}

func (h *UserHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ledgerService.ListOrders(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orders))
}

// ProfileOwner identifies the user a profile belongs to.
type ProfileOwner struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

// ProfileResponse is a user's public profile. A book that no longer exists
// is null.
type ProfileResponse struct {
	Obj   ProfileOwner  `json:"obj"`
	Books []*types.Book `json:"books"`
}

type DeleteUserResponse struct {
	Success string     `json:"Success"`
	User    types.User `json:"user"`
}

type ClearBookListsResponse struct {
	Modified int64 `json:"modified"`
}

type AddBookResponse struct {
	Message string     `json:"message"`
	User    types.User `json:"user"`
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
