// Package gcs stores listing images in a Cloud Storage bucket over the JSON
// API.
package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/archivesurmer-backend/pkg/config"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

const (
	defaultAPIBase = "https://storage.googleapis.com"
	requestTimeout = 30 * time.Second
	pingTimeout    = 5 * time.Second
	uploadAttempts = 3
	// Object names carry a random id, so a stored image never changes.
	imageCacheControl = "public, max-age=31536000, immutable"
)

// ErrObjectExists is returned when an upload would overwrite an object.
var ErrObjectExists = errors.New("gcs object already exists")

var errNotInitialized = errors.New("gcs client not initialized")

type Client struct {
	hc         *http.Client
	bucket     string
	publicBase string
	apiBase    string
	tokens     *tokens
	backoff    time.Duration
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient resolves credentials and checks the bucket is listable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	hc := &http.Client{Timeout: requestTimeout}
	toks, err := credentialTokens(hc, gcp)
	if err != nil {
		return nil, err
	}
	c := &Client{
		hc:         hc,
		bucket:     cfg.BucketName,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		apiBase:    defaultAPIBase,
		tokens:     toks,
		backoff:    500 * time.Millisecond,
	}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	return c, nil
}

// PublicURL is the browser-facing address of an object in the bucket.
func (c *Client) PublicURL(object string) string {
	base := c.publicBase
	if base == "" {
		base = defaultAPIBase
	}
	return fmt.Sprintf("%s/%s/%s", base, c.bucket, strings.TrimLeft(object, "/"))
}

func (c *Client) Close() error {
	return nil
}

// Ping lists at most one object, which needs storage.objects.list.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1&fields=kind", c.apiBase, url.PathEscape(c.bucket))
	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return statusError("gcs bucket check", resp)
	}
	return nil
}

// Upload stores data under object as an immutable, cacheable image. It
// refuses to overwrite an existing object and retries throttling and 5xx
// responses.
func (c *Client) Upload(ctx context.Context, object, contentType string, data []byte) error {
	if c == nil || c.tokens == nil {
		return errNotInitialized
	}
	object = strings.TrimLeft(object, "/")
	if object == "" {
		return errors.New("gcs object name required")
	}

	body, boundary, err := multipartBody(object, contentType, data)
	if err != nil {
		return err
	}
	q := url.Values{
		"uploadType":        {"multipart"},
		"ifGenerationMatch": {"0"},
		"fields":            {"name,generation"},
	}
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.apiBase, url.PathEscape(c.bucket), q.Encode())

	var lastErr error
	for attempt := 0; attempt < uploadAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.backoff<<(attempt-1)); err != nil {
				return err
			}
		}
		resp, err := c.do(ctx, http.MethodPost, u, "multipart/related; boundary="+boundary, body)
		if err != nil {
			lastErr = err
			continue
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			_ = resp.Body.Close()
			return nil
		case resp.StatusCode == http.StatusPreconditionFailed:
			_ = resp.Body.Close()
			return fmt.Errorf("%w: %s", ErrObjectExists, object)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = statusError("gcs upload", resp)
			_ = resp.Body.Close()
		default:
			err := statusError("gcs upload", resp)
			_ = resp.Body.Close()
			return err
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, u, contentType string, body []byte) (*http.Response, error) {
	token, err := c.tokens.get(ctx)
	if err != nil {
		return nil, err
	}
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.hc.Do(req)
}

// multipartBody builds the multipart/related payload: JSON metadata first,
// then the media.
func multipartBody(object, contentType string, data []byte) ([]byte, string, error) {
	meta, err := json.Marshal(map[string]string{
		"name":         object,
		"contentType":  contentType,
		"cacheControl": imageCacheControl,
	})
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, part := range []struct {
		ctype string
		body  []byte
	}{
		{"application/json; charset=UTF-8", meta},
		{contentType, data},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(part.body); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.Boundary(), nil
}

func statusError(what string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(b)); msg != "" {
		return fmt.Errorf("%s failed: %s: %s", what, resp.Status, msg)
	}
	return fmt.Errorf("%s failed: %s", what, resp.Status)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
