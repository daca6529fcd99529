package models

import "time"

type AnalysisSource string

const (
	AnalysisSourceRemote    AnalysisSource = "remote"
	AnalysisSourceSimulated AnalysisSource = "simulated"
)

// Analysis records one segmentation request and its headline result.
type Analysis struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	FileName        string         `json:"fileName"`
	Bucket          string         `json:"-"`
	ObjectKey       string         `json:"objectKey,omitempty"`
	Format          string         `json:"format"`
	SizeBytes       int64          `json:"sizeBytes"`
	TumorPercentage float64        `json:"tumorPercentage"`
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	Source          AnalysisSource `json:"source"`
	CreatedAt       time.Time      `json:"createdAt"`

	// Set once the user saves an edited mask for this analysis.
	AnnotationImageKey string     `json:"annotationImageKey,omitempty"`
	MaskKey            string     `json:"maskKey,omitempty"`
	AnnotatedAt        *time.Time `json:"annotatedAt,omitempty"`
}
