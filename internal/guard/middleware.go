package guard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nazir74680/Tumor-segmeantation/internal/middleware"
	"github.com/nazir74680/Tumor-segmeantation/internal/models"
	"github.com/nazir74680/Tumor-segmeantation/internal/session"
)

const currentUserKey = "current_user"

// Sessions resolves the manager owning a storage origin.
type Sessions interface {
	Get(ctx context.Context, origin string) (*session.Manager, *session.Recorder)
}

// Require admits the request only when the origin's session satisfies roles.
// On success the user is available through CurrentUser.
func (g *Guard) Require(sessions Sessions, roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		mgr, _ := sessions.Get(c.Request.Context(), middleware.OriginFromContext(c))
		state := mgr.State()

		d := g.Decide(state, roles, c.Request.URL.Path)
		switch d.Action {
		case Suspend:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session_loading"})
			return
		case Redirect:
			c.Header("Location", d.Location)
			if d.Err != nil {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":    "forbidden",
					"redirect": d.Location,
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "unauthorized",
				"redirect": d.Location,
				"from":     d.From,
			})
			return
		}

		c.Set(currentUserKey, *state.User)
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
