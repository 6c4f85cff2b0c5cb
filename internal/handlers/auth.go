package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/talent-hunters/bookportal/internal/services"
	"github.com/talent-hunters/bookportal/internal/store"
	"github.com/talent-hunters/bookportal/types"
	"go.uber.org/zap"
)

const unauthenticatedMessage = "Please authenticate using a valid token"

// TokenIssuer creates bearer tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// TokenVerifier checks a bearer token and returns the user id it carries.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthHandler provides account creation and login endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      TokenIssuer
	log         *zap.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens TokenIssuer, log *zap.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens, log: log}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(
	r chi.Router,
	userService *services.UserService,
	tokens TokenIssuer,
	authMiddleware func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	handler := NewAuthHandler(userService, tokens, log)

	r.Post("/createuser", handler.CreateUser)
	r.Post("/login", handler.Login)
	r.With(authMiddleware).Get("/getuser", handler.GetUser)
	r.With(authMiddleware).Post("/getuser", handler.GetUser)
}

// RequireAuth rejects requests without a valid token in header (or in an
// Authorization bearer header) and stores the caller's id in the context.
func RequireAuth(verifier TokenVerifier, header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r, header)
			if token == "" {
				writeError(w, http.StatusUnauthorized, unauthenticatedMessage)
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, unauthenticatedMessage)
				return
			}

			ctx := context.WithValue(r.Context(), contextUserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the id stored by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextUserIDKey).(string)
	if !ok || userID == "" {
		return "", errors.New("missing user id")
	}
	return userID, nil
}

// CreateUser registers an account and returns a token for it.
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{AuthToken: token})
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Success: true, AuthToken: token})
}

// GetUser returns the authenticated caller's account.
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, unauthenticatedMessage)
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// TokenResponse is returned after registration.
type TokenResponse struct {
	AuthToken string `json:"authtoken"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Success   bool   `json:"success"`
	AuthToken string `json:"authtoken"`
}

type loginFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func requestToken(r *http.Request, header string) string {
	if token := strings.TrimSpace(r.Header.Get(header)); token != "" {
		return token
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAdmin rejects callers whose account is not an Admin. It only
// runs when enforce is set; otherwise any authenticated caller passes.
func RequireAdmin(userService *services.UserService, enforce bool, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enforce {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, unauthenticatedMessage)
				return
			}

			user, err := userService.GetByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, unauthenticatedMessage)
					return
				}
				writeServiceError(w, r, log, err)
				return
			}

			if user.AccountType != types.AccountTypeAdmin {
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
