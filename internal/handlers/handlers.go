package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nazir74680/Tumor-segmeantation/internal/guard"
	"github.com/nazir74680/Tumor-segmeantation/internal/models"
	"github.com/nazir74680/Tumor-segmeantation/internal/service"
	"github.com/nazir74680/Tumor-segmeantation/internal/session"
)

type Sessions interface {
	Get(ctx context.Context, origin string) (*session.Manager, *session.Recorder)
	Stats() (origins int, authenticated int)
}

type Predictor interface {
	Predict(ctx context.Context, input service.PredictInput) (service.PredictResult, error)
}

type Annotator interface {
	Annotate(ctx context.Context, input service.AnnotateInput) (models.Analysis, error)
}

type AnalysisReader interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Analysis, error)
	List(ctx context.Context, limit, offset int) ([]models.Analysis, error)
	Count(ctx context.Context) (int, error)
}

type NotificationStore interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID, id string) error
}

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

type Dependencies struct {
	Environment   string
	Sessions      Sessions
	Guard         *guard.Guard
	Predictor     Predictor
	Annotator     Annotator
	Analyses      AnalysisReader
	Notifications NotificationStore
	Checks        map[string]HealthCheck
	// MaxUploadBytes caps each uploaded file; zero disables the body limit.
	MaxUploadBytes int64
}

type HandlerSet struct {
	log           zerolog.Logger
	environment   string
	sessions      Sessions
	guard         *guard.Guard
	predictor     Predictor
	annotator     Annotator
	analyses      AnalysisReader
	notifications NotificationStore
	checks        map[string]HealthCheck
	maxUpload     int64
}

func NewHandlerSet(log zerolog.Logger, deps Dependencies) HandlerSet {
	g := deps.Guard
	if g == nil {
		g = guard.New(guard.DefaultDeniedPath)
	}
	return HandlerSet{
		log:           log,
		environment:   deps.Environment,
		sessions:      deps.Sessions,
		guard:         g,
		predictor:     deps.Predictor,
		annotator:     deps.Annotator,
		analyses:      deps.Analyses,
		notifications: deps.Notifications,
		checks:        deps.Checks,
		maxUpload:     deps.MaxUploadBytes,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.GET("/session", h.Session)

	dashboard := v1.Group("/dashboard")
	dashboard.Use(h.guard.Require(h.sessions, models.UserRoleUser))
	dashboard.GET("/analyses", h.ListMyAnalyses)
	dashboard.POST("/predict", h.Predict)
	dashboard.POST("/analyses/:id/annotation", h.SaveAnnotation)

	admin := v1.Group("/admin")
	admin.Use(h.guard.Require(h.sessions, models.UserRoleAdmin))
	admin.GET("/analyses", h.AdminListAnalyses)
	admin.GET("/stats", h.AdminStats)

	notifications := v1.Group("/notifications")
	notifications.Use(h.guard.Require(h.sessions))
	notifications.GET("", h.ListNotifications)
	notifications.POST("/read-all", h.MarkAllNotificationsRead)
	notifications.POST("/:id/read", h.MarkNotificationRead)
	notifications.DELETE("/:id", h.DeleteNotification)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}
