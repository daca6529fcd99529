// Package analysis talks to the segmentation endpoint and, when none is
// configured, simulates its answer.
package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nazir74680/Tumor-segmeantation/internal/models"
)

var ErrAnalysisFailed = errors.New("analysis failed")

type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result is the endpoint's response. Images are base64 encoded PNGs.
type Result struct {
	Original        string    `json:"original"`
	Mask            string    `json:"mask"`
	Overlay         string    `json:"overlay"`
	TumorPercentage float64   `json:"tumor_percentage"`
	ImageSize       ImageSize `json:"image_size"`
}

type Analyzer interface {
	Analyze(ctx context.Context, fileName string, data []byte) (Result, error)
	Source() models.AnalysisSource
}

// Client posts scans as multipart field "file" to a remote predict endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Source() models.AnalysisSource {
	return models.AnalysisSourceRemote
}

func (c *Client) Analyze(ctx context.Context, fileName string, data []byte) (Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return Result{}, fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return Result{}, fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Result{}, fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 256<<20))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %v", ErrAnalysisFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
			return Result{}, fmt.Errorf("%w: %s", ErrAnalysisFailed, failure.Error)
		}
		return Result{}, fmt.Errorf("%w: status %d", ErrAnalysisFailed, resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrAnalysisFailed, err)
	}
	return result, nil
}

// Simulator stands in for the endpoint in development. Browser-renderable
// uploads are echoed back as the original image with their real dimensions.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(seed uint64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Simulator) Source() models.AnalysisSource {
	return models.AnalysisSourceSimulated
}

func (s *Simulator) Analyze(ctx context.Context, fileName string, data []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	pct := s.rng.Float64() * 100
	s.mu.Unlock()

	result := Result{TumorPercentage: pct}

	lower := strings.ToLower(fileName)
	if strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			result.ImageSize = ImageSize{Width: cfg.Width, Height: cfg.Height}
		}
		result.Original = base64.StdEncoding.EncodeToString(data)
	}
	return result, nil
}

// New returns the remote client when an endpoint is configured and the
// simulator otherwise.
func New(endpoint string, timeout time.Duration) Analyzer {
	if endpoint == "" {
		return NewSimulator(uint64(time.Now().UnixNano()))
	}
	return NewClient(endpoint, timeout)
}
