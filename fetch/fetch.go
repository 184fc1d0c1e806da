// Package fetch downloads castle photos into the site's image directory.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"golang.org/x/time/rate"
)

var (
	ErrStatus   = errors.New("unexpected HTTP status")
	ErrNotImage = errors.New("response is not an image")
	ErrTooLarge = errors.New("response exceeds size limit")
)

type Options struct {
	RatePerSecond float64
	Timeout       time.Duration
	UserAgent     string
	MaxBytes      int64
}

type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBytes  int64
}

func New(opts Options) *Fetcher {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Fetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
	}
}

// WithClient replaces the HTTP client, keeping the rate limit.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// Fetch downloads url and checks that the response is an image.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "image/*")

	slog.Debug("Fetching image", "url", url)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s", ErrStatus, resp.StatusCode, url)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, fmt.Errorf("%w: %q from %s", ErrNotImage, mediaType, url)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrTooLarge, f.maxBytes, url)
	}
	return data, nil
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// FileName turns a castle name into an image file name, taking the
// extension from the sniffed content type when name has none.
func FileName(name string, data []byte) (string, error) {
	base := strings.ToLower(strings.TrimSpace(filepath.Base(name)))
	base = strings.Join(strings.Fields(strings.ReplaceAll(base, "-", " ")), "_")
	if base == "" || base == "." || base == "_" {
		return "", fmt.Errorf("invalid image name %q", name)
	}

	switch filepath.Ext(base) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return base, nil
	}

	sniffed := http.DetectContentType(data)
	known, ok := extensions[sniffed]
	if !ok {
		return "", fmt.Errorf("%w: sniffed %q", ErrNotImage, sniffed)
	}
	return base + known, nil
}

// Save writes data into dir under the name derived by FileName and returns
// the file name.
func Save(dir, name string, data []byte) (string, error) {
	file, err := FileName(name, data)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating image directory: %w", err)
	}

	path := filepath.Join(dir, file)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(path, 0644); err != nil {
		return "", fmt.Errorf("setting mode on %s: %w", path, err)
	}
	slog.Info("Saved image", "path", path, "bytes", len(data))
	return file, nil
}
