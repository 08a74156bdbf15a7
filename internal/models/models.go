package models

import (
	"encoding/base64"
	"strings"
)

// Confidence is the recognition confidence reported for a detection
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence maps a free-form value to a Confidence, defaulting to low
func ParseConfidence(value string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(value))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// BookCandidate is a single book detection emitted by a recognition provider.
// Candidates are values; consolidation builds new slices and never edits them.
type BookCandidate struct {
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Confidence Confidence `json:"confidence"`
}

// ValidatedBook is a candidate after the correction pass
type ValidatedBook struct {
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Confidence Confidence `json:"confidence"`
	IsValid    bool       `json:"isValid"`
	Reason     string     `json:"reason,omitempty"`
}

// PassThrough promotes a candidate unchanged
func PassThrough(c BookCandidate) ValidatedBook {
	return ValidatedBook{
		Title:      c.Title,
		Author:     c.Author,
		Confidence: c.Confidence,
		IsValid:    true,
	}
}

// ProviderDiagnostic records what a single provider contributed to a scan
type ProviderDiagnostic struct {
	Count     int    `json:"count"`
	Succeeded bool   `json:"succeeded"`
	Model     string `json:"model,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ValidationDiagnostic summarizes the correction pass
type ValidationDiagnostic struct {
	Batches       int `json:"batches"`
	FailedBatches int `json:"failed_batches"`
	Invalid       int `json:"invalid"`
	Corrected     int `json:"corrected"`
}

// ScanOutcome is the result of scanning one shelf image
type ScanOutcome struct {
	ScanID              string                        `json:"scan_id"`
	Books               []ValidatedBook               `json:"books"`
	ProviderDiagnostics map[string]ProviderDiagnostic `json:"providerDiagnostics"`
	Validation          ValidationDiagnostic          `json:"validation"`
}

// Image is an encoded shelf photograph
type Image struct {
	Data     []byte
	MIMEType string
}

// Base64 returns the standard base64 encoding of the image bytes
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data: URL
func (i Image) DataURL() string {
	mimeType := i.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + i.Base64()
}

// Format returns the subtype of the MIME type, e.g. "jpeg"
func (i Image) Format() string {
	_, format, found := strings.Cut(i.MIMEType, "/")
	if !found || format == "" {
		return "jpeg"
	}
	return format
}
