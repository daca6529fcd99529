package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nazir74680/Tumor-segmeantation/internal/middleware"
	"github.com/nazir74680/Tumor-segmeantation/internal/models"
	"github.com/nazir74680/Tumor-segmeantation/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User            *models.User `json:"user"`
	Token           string       `json:"token,omitempty"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	Loading         bool         `json:"loading"`
	Redirect        string       `json:"redirect,omitempty"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	mgr, nav := h.sessions.Get(c.Request.Context(), middleware.OriginFromContext(c))
	result := mgr.Login(c.Request.Context(), req.Email, req.Password)
	if !result.Success {
		status := loginStatus(result.Err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(result.Err).Msg("login failed")
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   result.Error,
		})
		return
	}

	state := mgr.State()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"role":     result.Role,
		"user":     state.User,
		"token":    state.Token,
		"redirect": nav.Take(),
	})
}

func loginStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h HandlerSet) Logout(c *gin.Context) {
	mgr, nav := h.sessions.Get(c.Request.Context(), middleware.OriginFromContext(c))
	mgr.Logout(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"redirect": nav.Take()})
}

// Session reports the origin's current state. A pending navigation, such as
// the login redirect left behind by an expiry, is handed out once.
func (h HandlerSet) Session(c *gin.Context) {
	mgr, nav := h.sessions.Get(c.Request.Context(), middleware.OriginFromContext(c))
	state := mgr.State()

	c.JSON(http.StatusOK, sessionResponse{
		User:            state.User,
		Token:           state.Token,
		IsAuthenticated: state.IsAuthenticated,
		Loading:         state.Loading,
		Redirect:        nav.Take(),
	})
}
