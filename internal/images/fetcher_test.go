package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	img, err := Decode(pngBytes(t))

	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "png", img.Format())
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: ErrInvalidImage},
		{name: "text", data: []byte("not an image"), want: ErrInvalidImage},
		{name: "too large", data: make([]byte, MaxSize+1), want: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	_, err = ReadLimited(bytes.NewReader(make([]byte, MaxSize+10)))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelf.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t), 0644))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestFetch(t *testing.T) {
	data := pngBytes(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/shelf.png":
			_, _ = w.Write(data)
		case "/text":
			_, _ = w.Write([]byte("hello"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := NewFetcher()

	img, err := f.Fetch(context.Background(), server.URL+"/shelf.png")
	require.NoError(t, err)
	assert.Equal(t, data, img.Data)

	_, err = f.Fetch(context.Background(), server.URL+"/text")
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = f.Fetch(context.Background(), server.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}
