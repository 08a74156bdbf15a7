// Package images loads shelf photographs from uploads, files and URLs.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/shelfscan/shelfscan/internal/models"
)

// MaxSize is the largest accepted image in bytes
const MaxSize = 10 * 1024 * 1024

var (
	// ErrInvalidImage marks input that is not a decodable image
	ErrInvalidImage = errors.New("invalid image")
	// ErrTooLarge marks input over MaxSize
	ErrTooLarge = errors.New("image too large (max 10MB)")
)

// Fetcher downloads images over HTTP
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads and validates the image at url
func (f *Fetcher) Fetch(ctx context.Context, url string) (models.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Image{}, fmt.Errorf("%w: bad image url: %w", ErrInvalidImage, err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Image{}, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := ReadLimited(resp.Body)
	if err != nil {
		return models.Image{}, err
	}

	slog.Debug("Downloaded image", "url", url, "bytes", len(data))
	return Decode(data)
}

// Load reads and validates an image file
func Load(path string) (models.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	defer file.Close()

	data, err := ReadLimited(file)
	if err != nil {
		return models.Image{}, err
	}
	return Decode(data)
}

// ReadLimited reads r fully, failing with ErrTooLarge past MaxSize
func ReadLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Decode checks that data is a supported image and records its MIME type
func Decode(data []byte) (models.Image, error) {
	if len(data) == 0 {
		return models.Image{}, fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	if len(data) > MaxSize {
		return models.Image{}, ErrTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return models.Image{}, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return models.Image{}, fmt.Errorf("%w: zero dimensions", ErrInvalidImage)
	}

	return models.Image{Data: data, MIMEType: "image/" + format}, nil
}
