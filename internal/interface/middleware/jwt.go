package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/response"
)

const CtxUserIDKey = "userID"

// TokenParser validates a bearer token and returns its claims.
type TokenParser interface {
	Parse(token string) (*helpers.Claims, error)
}

// JWTAuth accepts the login token from an Authorization bearer header or the
// access_token cookie, and injects the account id into the context.
func JWTAuth(jwt TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := jwt.Parse(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}
		c.Set(CtxUserIDKey, claims.Subject)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	tok, err := c.Cookie(helpers.AccessTokenCookie)
	if err != nil {
		return ""
	}
	return tok
}
