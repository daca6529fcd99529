package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) AdminListAnalyses(c *gin.Context) {
	limit, offset := pagination(c)

	items, err := h.analyses.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
	})
}

func (h HandlerSet) AdminStats(c *gin.Context) {
	total, err := h.analyses.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	origins, authenticated := h.sessions.Stats()
	c.JSON(http.StatusOK, gin.H{
		"totalAnalyses":  total,
		"trackedOrigins": origins,
		"activeSessions": authenticated,
	})
}
