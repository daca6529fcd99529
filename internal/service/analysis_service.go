package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/rs/zerolog"

	"github.com/nazir74680/Tumor-segmeantation/internal/analysis"
	"github.com/nazir74680/Tumor-segmeantation/internal/ids"
	"github.com/nazir74680/Tumor-segmeantation/internal/media/sniffer"
	"github.com/nazir74680/Tumor-segmeantation/internal/models"
	"github.com/nazir74680/Tumor-segmeantation/internal/repository"
	"github.com/nazir74680/Tumor-segmeantation/internal/storage"
)

var (
	ErrEmptyFile          = errors.New("empty file")
	ErrFileTooLarge       = errors.New("file too large")
	ErrInvalidMask        = errors.New("mask must be a PNG image")
	ErrArchiveUnavailable = errors.New("object storage is not configured")
	errInvalidPayload     = errors.New("invalid file payload")
)

type AnalysisStore interface {
	Create(ctx context.Context, a models.Analysis) error
	GetByID(ctx context.Context, id string) (models.Analysis, error)
	SetAnnotation(ctx context.Context, id, userID, imageKey, maskKey string, at time.Time) error
}

type ScanStore interface {
	Bucket() string
	PutScan(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

type PredictInput struct {
	User   models.User
	Origin string
	File   multipart.File
	Header *multipart.FileHeader
}

type PredictResult struct {
	Analysis models.Analysis
	Result   analysis.Result
}

// AnnotateInput carries an edited mask and the image it was drawn on.
type AnnotateInput struct {
	User        models.User
	Origin      string
	AnalysisID  string
	Image       multipart.File
	ImageHeader *multipart.FileHeader
	Mask        multipart.File
	MaskHeader  *multipart.FileHeader
}

type AnalysisService struct {
	analyses AnalysisStore
	scans    ScanStore
	analyzer analysis.Analyzer
	events   EventPublisher
	maxBytes int64
	now      func() time.Time
	log      zerolog.Logger
}

// NewAnalysisService wires the predict pipeline. scans and events may be nil,
// in which case uploads are not archived and no completion event is sent.
func NewAnalysisService(analyses AnalysisStore, scans ScanStore, analyzer analysis.Analyzer, events EventPublisher, maxBytes int64, log zerolog.Logger) *AnalysisService {
	return &AnalysisService{
		analyses: analyses,
		scans:    scans,
		analyzer: analyzer,
		events:   events,
		maxBytes: maxBytes,
		now:      time.Now,
		log:      log,
	}
}

func (s *AnalysisService) Predict(ctx context.Context, input PredictInput) (PredictResult, error) {
	if input.File == nil || input.Header == nil {
		return PredictResult{}, errInvalidPayload
	}

	format, err := sniffer.FromFileName(input.Header.Filename)
	if err != nil {
		return PredictResult{}, err
	}

	data, err := s.readUpload(input.File, input.Header)
	if err != nil {
		return PredictResult{}, err
	}
	if err := sniffer.Verify(format, head(data)); err != nil {
		return PredictResult{}, err
	}

	now := s.now().UTC()
	record := models.Analysis{
		ID:        ids.New(),
		UserID:    input.User.ID,
		FileName:  input.Header.Filename,
		Format:    string(format),
		SizeBytes: int64(len(data)),
		Source:    s.analyzer.Source(),
		CreatedAt: now,
	}

	if s.scans != nil {
		key := storage.ScanKey(input.User.ID, record.ID, record.FileName, now)
		if err := s.scans.PutScan(ctx, key, bytes.NewReader(data), int64(len(data)), format.MIME()); err != nil {
			return PredictResult{}, fmt.Errorf("archive scan: %w", err)
		}
		record.Bucket = s.scans.Bucket()
		record.ObjectKey = key
	}

	result, err := s.analyzer.Analyze(ctx, record.FileName, data)
	if err != nil {
		return PredictResult{}, err
	}

	record.TumorPercentage = result.TumorPercentage
	record.Width = result.ImageSize.Width
	record.Height = result.ImageSize.Height

	if err := s.analyses.Create(ctx, record); err != nil {
		return PredictResult{}, fmt.Errorf("save analysis: %w", err)
	}

	s.log.Info().
		Str("analysis_id", record.ID).
		Str("user_id", record.UserID).
		Str("format", record.Format).
		Float64("tumor_percentage", record.TumorPercentage).
		Msg("analysis completed")

	if s.events != nil {
		err := s.events.Publish(ctx, models.Event{
			Type:            models.EventAnalysisCompleted,
			Origin:          input.Origin,
			UserID:          record.UserID,
			Role:            input.User.Role,
			AnalysisID:      record.ID,
			TumorPercentage: record.TumorPercentage,
			At:              now,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("analysis_id", record.ID).Msg("publish analysis event failed")
		}
	}

	return PredictResult{Analysis: record, Result: result}, nil
}

// Annotate archives an edited mask, together with the image it was drawn on,
// next to an existing analysis owned by the caller.
func (s *AnalysisService) Annotate(ctx context.Context, input AnnotateInput) (models.Analysis, error) {
	if s.scans == nil {
		return models.Analysis{}, ErrArchiveUnavailable
	}
	if input.Image == nil || input.ImageHeader == nil || input.Mask == nil || input.MaskHeader == nil {
		return models.Analysis{}, errInvalidPayload
	}

	record, err := s.analyses.GetByID(ctx, input.AnalysisID)
	if err != nil {
		return models.Analysis{}, err
	}
	if record.UserID != input.User.ID {
		return models.Analysis{}, repository.ErrAnalysisNotFound
	}

	format, err := sniffer.FromFileName(input.ImageHeader.Filename)
	if err != nil {
		return models.Analysis{}, err
	}
	image, err := s.readUpload(input.Image, input.ImageHeader)
	if err != nil {
		return models.Analysis{}, err
	}
	if err := sniffer.Verify(format, head(image)); err != nil {
		return models.Analysis{}, err
	}

	mask, err := s.readUpload(input.Mask, input.MaskHeader)
	if err != nil {
		return models.Analysis{}, err
	}
	if maskFormat, err := sniffer.DetectHead(head(mask)); err != nil || maskFormat != sniffer.FormatPNG {
		return models.Analysis{}, ErrInvalidMask
	}

	imageKey := storage.AnnotationKey(record.UserID, record.ID, "image-"+input.ImageHeader.Filename)
	maskKey := storage.AnnotationKey(record.UserID, record.ID, "mask.png")

	if err := s.scans.PutScan(ctx, imageKey, bytes.NewReader(image), int64(len(image)), format.MIME()); err != nil {
		return models.Analysis{}, fmt.Errorf("archive annotation image: %w", err)
	}
	if err := s.scans.PutScan(ctx, maskKey, bytes.NewReader(mask), int64(len(mask)), sniffer.FormatPNG.MIME()); err != nil {
		return models.Analysis{}, fmt.Errorf("archive annotation mask: %w", err)
	}

	now := s.now().UTC()
	if err := s.analyses.SetAnnotation(ctx, record.ID, record.UserID, imageKey, maskKey, now); err != nil {
		return models.Analysis{}, fmt.Errorf("save annotation: %w", err)
	}
	record.AnnotationImageKey = imageKey
	record.MaskKey = maskKey
	record.AnnotatedAt = &now

	s.log.Info().
		Str("analysis_id", record.ID).
		Str("user_id", record.UserID).
		Str("mask_key", maskKey).
		Msg("annotation saved")

	if s.events != nil {
		err := s.events.Publish(ctx, models.Event{
			Type:       models.EventAnalysisAnnotated,
			Origin:     input.Origin,
			UserID:     record.UserID,
			Role:       input.User.Role,
			AnalysisID: record.ID,
			At:         now,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("analysis_id", record.ID).Msg("publish annotation event failed")
		}
	}

	return record, nil
}

func (s *AnalysisService) readUpload(file multipart.File, header *multipart.FileHeader) ([]byte, error) {
	if s.maxBytes > 0 && header.Size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	reader := io.Reader(file)
	if s.maxBytes > 0 {
		reader = io.LimitReader(file, s.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

func head(data []byte) []byte {
	if len(data) > sniffer.HeadSize {
		return data[:sniffer.HeadSize]
	}
	return data
}
