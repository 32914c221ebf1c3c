// Package upload proxies admin image uploads to the external image host.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var (
	ErrUpstream = errors.New("image host unavailable")
	ErrTooLarge = errors.New("image exceeds the upload limit")
	ErrNotImage = errors.New("only image uploads are accepted")
)

// Host stores an image and returns its public URL.
type Host interface {
	Store(ctx context.Context, filename string, data []byte) (string, error)
}

// ImgHost speaks the imgbb-style API: a multipart POST with key and image
// fields answered by {"data": {"url": ...}}.
type ImgHost struct {
	endpoint string
	key      string
	http     *http.Client
}

func NewImgHost(endpoint, key string) *ImgHost {
	return &ImgHost{
		endpoint: endpoint,
		key:      key,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type hostResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (h *ImgHost) Store(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("key", h.key); err != nil {
		return "", err
	}
	part, err := form.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := h.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out hostResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrUpstream, err)
	}
	if out.Data.URL == "" {
		return "", fmt.Errorf("%w: response carried no url", ErrUpstream)
	}
	return out.Data.URL, nil
}
