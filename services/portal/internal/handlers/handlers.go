package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/diagnosis/institute-portal/pkg/auth"
	"github.com/diagnosis/institute-portal/pkg/config"
	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/pkg/response"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/diagnosis/institute-portal/services/portal/internal/service"
)

// TokenHeader carries both session and challenge tokens.
const TokenHeader = "auth-token"

const maxBodyBytes = 1 << 20

type contextKey string

const claimsKey contextKey = "claims"

type Handlers struct {
	authService    service.AuthService
	feesService    service.FeesService
	messageService service.MessageService
	academic       service.AcademicService
	tokens         *auth.Issuer
	config         *config.Config
}

func New(
	authService service.AuthService,
	feesService service.FeesService,
	messageService service.MessageService,
	academic service.AcademicService,
	tokens *auth.Issuer,
	config *config.Config,
) *Handlers {
	return &Handlers{
		authService:    authService,
		feesService:    feesService,
		messageService: messageService,
		academic:       academic,
		tokens:         tokens,
		config:         config,
	}
}

// RequireSession admits requests carrying a valid session token. With roles
// given, the token's role must be one of them.
func (h *Handlers) RequireSession(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := h.verify(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !claims.IsSession() {
				writeError(w, r, domain.ErrInvalidToken)
				return
			}
			if len(roles) > 0 && !hasRole(claims.Role, roles) {
				writeError(w, r, domain.ErrForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
			ctx = context.WithValue(ctx, logger.RoleKey, claims.Role)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireChallenge admits requests carrying a challenge token at the given stage.
func (h *Handlers) RequireChallenge(stage string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := h.verify(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !claims.IsChallenge(stage) {
				writeError(w, r, domain.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), logger.RoleKey, claims.Role)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (h *Handlers) verify(r *http.Request) (*auth.Claims, error) {
	token := r.Header.Get(TokenHeader)
	if token == "" {
		return nil, domain.ErrMissingToken
	}
	claims, err := h.tokens.Verify(token)
	if err != nil {
		logger.DebugContext(r.Context(), "Token rejected", "error", err)
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

func hasRole(role string, allowed []domain.Role) bool {
	for _, a := range allowed {
		if role == a.String() {
			return true
		}
	}
	return false
}

// Helper functions
func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response.JSON(w, statusCode, data)
}

// writeError maps domain errors to their status and code. Anything else is
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	de, ok := domain.AsError(err)
	if !ok {
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		response.InternalError(w, "Internal server error")
		return
	}
	if de.Kind == domain.KindInternal {
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
	}
	response.WriteError(w, de.HTTPStatus(), de.Message, de.Code)
}
