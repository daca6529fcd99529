package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nazir74680/Tumor-segmeantation/internal/analysis"
	"github.com/nazir74680/Tumor-segmeantation/internal/guard"
	"github.com/nazir74680/Tumor-segmeantation/internal/media/sniffer"
	"github.com/nazir74680/Tumor-segmeantation/internal/middleware"
	"github.com/nazir74680/Tumor-segmeantation/internal/repository"
	"github.com/nazir74680/Tumor-segmeantation/internal/service"
)

func (h HandlerSet) Predict(c *gin.Context) {
	user, ok := guard.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	h.limitBody(c, 1)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.uploadError(c, err, "No file uploaded")
		return
	}
	defer file.Close()

	res, err := h.predictor.Predict(c.Request.Context(), service.PredictInput{
		User:   user,
		Origin: middleware.OriginFromContext(c),
		File:   file,
		Header: header,
	})
	if err != nil {
		status := predictStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("user_id", user.ID).Msg("predict failed")
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analysisId":       res.Analysis.ID,
		"original":         res.Result.Original,
		"mask":             res.Result.Mask,
		"overlay":          res.Result.Overlay,
		"tumor_percentage": res.Result.TumorPercentage,
		"image_size":       res.Result.ImageSize,
	})
}

func (h HandlerSet) SaveAnnotation(c *gin.Context) {
	user, ok := guard.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	h.limitBody(c, 2)
	image, imageHeader, err := c.Request.FormFile("image")
	if err != nil {
		h.uploadError(c, err, "No image or mask provided")
		return
	}
	defer image.Close()

	mask, maskHeader, err := c.Request.FormFile("mask")
	if err != nil {
		h.uploadError(c, err, "No image or mask provided")
		return
	}
	defer mask.Close()

	record, err := h.annotator.Annotate(c.Request.Context(), service.AnnotateInput{
		User:        user,
		Origin:      middleware.OriginFromContext(c),
		AnalysisID:  c.Param("id"),
		Image:       image,
		ImageHeader: imageHeader,
		Mask:        mask,
		MaskHeader:  maskHeader,
	})
	if err != nil {
		status := annotateStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("user_id", user.ID).Str("analysis_id", c.Param("id")).Msg("save annotation failed")
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Annotation saved successfully",
		"analysis": record,
	})
}

// multipartOverhead covers boundaries and part headers around the files.
const multipartOverhead = 64 << 10

// limitBody caps the request body before the multipart form is parsed, so an
// oversized upload is refused without being spooled to disk.
func (h HandlerSet) limitBody(c *gin.Context, files int64) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, files*h.maxUpload+multipartOverhead)
	}
}

func (h HandlerSet) uploadError(c *gin.Context, err error, missing string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": service.ErrFileTooLarge.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": missing})
}

func annotateStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrAnalysisNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrArchiveUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrInvalidMask):
		return http.StatusBadRequest
	default:
		return predictStatus(err)
	}
}

func predictStatus(err error) int {
	switch {
	case errors.Is(err, sniffer.ErrUnsupportedExtension),
		errors.Is(err, sniffer.ErrContentMismatch),
		errors.Is(err, service.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, analysis.ErrAnalysisFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h HandlerSet) ListMyAnalyses(c *gin.Context) {
	user, ok := guard.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := pagination(c)
	items, err := h.analyses.ListByUser(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("list analyses failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
