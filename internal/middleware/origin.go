package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nazir74680/Tumor-segmeantation/internal/ids"
)

const (
	originContextKey = "storage_origin"
	originMaxAge     = 365 * 24 * 60 * 60
)

type OriginOptions struct {
	CookieName string
	Secure     bool
}

// Origin pins every browser to a storage origin id carried in a cookie. A
// missing or malformed cookie gets a fresh id, which starts an empty origin.
func Origin(opts OriginOptions) gin.HandlerFunc {
	name := opts.CookieName
	if name == "" {
		name = "medical_origin"
	}

	return func(c *gin.Context) {
		origin, err := c.Cookie(name)
		if err != nil || !ids.Valid(origin) {
			origin = ids.New()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(name, origin, originMaxAge, "/", "", opts.Secure, true)
		}

		c.Set(originContextKey, origin)
		c.Next()
	}
}

func OriginFromContext(c *gin.Context) string {
	return c.GetString(originContextKey)
}
