package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shelfscan/shelfscan/internal/images"
	"github.com/shelfscan/shelfscan/internal/models"
)

// maxRequestBytes leaves room for base64 overhead and form fields
const maxRequestBytes = images.MaxSize*4/3 + 1<<20

type scanRequest struct {
	ImageBase64 string `json:"image_base64"`
	ImageURL    string `json:"image_url"`
	MIMEType    string `json:"mime_type"`
	UserID      string `json:"user_id"`
}

// badRequestError is input the caller must fix
type badRequestError struct {
	err error
}

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return badRequestError{err: fmt.Errorf(format, args...)}
}

func isBadRequest(err error) bool {
	var bad badRequestError
	return errors.As(err, &bad) ||
		errors.Is(err, images.ErrInvalidImage) ||
		errors.Is(err, images.ErrTooLarge)
}

// readImage extracts the shelf image and caller identity from either a
// multipart upload or a JSON body.
func (h *Handler) readImage(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Image, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return h.readJSONImage(ctx, r)
	}
	return h.readFormImage(r)
}

func (h *Handler) readJSONImage(ctx context.Context, r *http.Request) (models.Image, string, error) {
	var request scanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return models.Image{}, "", badRequest("Invalid JSON: %w", err)
	}

	switch {
	case request.ImageBase64 != "":
		data, err := decodeBase64(request.ImageBase64)
		if err != nil {
			return models.Image{}, "", badRequest("image_base64 is not valid base64: %w", err)
		}
		img, err := images.Decode(data)
		return img, request.UserID, err
	case request.ImageURL != "":
		img, err := h.fetcher.Fetch(ctx, request.ImageURL)
		if err != nil && !isBadRequest(err) {
			err = badRequest("Failed to process image URL: %w", err)
		}
		return img, request.UserID, err
	default:
		return models.Image{}, "", badRequest("image_base64 or image_url is required")
	}
}

func (h *Handler) readFormImage(r *http.Request) (models.Image, string, error) {
	if err := r.ParseMultipartForm(images.MaxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.Image{}, "", images.ErrTooLarge
		}
		return models.Image{}, "", badRequest("Failed to parse form: %w", err)
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		file, _, err = r.FormFile("file")
		if err != nil {
			return models.Image{}, "", badRequest("Failed to read file: %w", err)
		}
	}
	defer file.Close()

	data, err := images.ReadLimited(file)
	if err != nil {
		return models.Image{}, "", err
	}
	img, err := images.Decode(data)
	return img, r.FormValue("user_id"), err
}

// decodeBase64 accepts plain base64 or a data: URL
func decodeBase64(value string) ([]byte, error) {
	if strings.HasPrefix(value, "data:") {
		_, payload, found := strings.Cut(value, ",")
		if !found {
			return nil, fmt.Errorf("malformed data URL")
		}
		value = payload
	}
	value = strings.TrimSpace(value)
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(value, "="))
	}
	return data, nil
}
