package middleware

import (
	"context"
	"strings"

	identityapp "github.com/donation/backend/internal/application/identity"
	"github.com/donation/backend/internal/domain/identity"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/infrastructure/logger"
	"github.com/donation/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	principalKey  = "admin_principal"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Authenticator resolves a bearer token to the acting admin
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*identityapp.Principal, error)
}

// AdminAuth requires a valid admin bearer token. The resolved principal is
// stored in the gin context and the admin id is added to the request logger
// and the active span.
func AdminAuth(authn Authenticator, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(AuthHeaderKey))
		if !ok {
			abortWithError(c, shared.NewDomainError(shared.CodeUnauthorized, "Authentication required"))
			return
		}

		principal, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.Debug("Admin authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			abortWithError(c, err)
			return
		}

		c.Set(principalKey, principal)
		adminID := principal.AdminID.String()
		ctx, _ := logger.WithAdminID(c.Request.Context(), logger.FromContext(c.Request.Context()), adminID)
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("admin.id", adminID),
			attribute.String("admin.role", string(principal.Role)),
		)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole must run after AdminAuth. It rejects principals whose role
// does not satisfy role with 403.
func RequireRole(role identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			abortWithError(c, shared.NewDomainError(shared.CodeUnauthorized, "Authentication required"))
			return
		}
		if !principal.Role.Satisfies(role) {
			abortWithError(c, shared.NewDomainError(shared.CodeForbidden, "Insufficient role for this action"))
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the admin resolved by AdminAuth, or nil
func GetPrincipal(c *gin.Context) *identityapp.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*identityapp.Principal); ok {
			return p
		}
	}
	return nil
}

// SetPrincipal stores a principal in the gin context
func SetPrincipal(c *gin.Context, p *identityapp.Principal) {
	c.Set(principalKey, p)
}

func bearerToken(header string) (string, bool) {
	if len(header) < len(BearerPrefix) || !strings.EqualFold(header[:len(BearerPrefix)], BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(BearerPrefix):])
	return token, token != ""
}

func abortWithError(c *gin.Context, err error) {
	status, resp := dto.FromError(err, GetRequestID(c))
	c.AbortWithStatusJSON(status, resp)
}
