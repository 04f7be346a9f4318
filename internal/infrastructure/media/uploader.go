// Package media uploads profile photos to an unsigned-upload image host.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

const defaultTimeout = 30 * time.Second

// Config identifies the upload endpoint and the unsigned upload preset.
type Config struct {
	URL     string
	Preset  string
	Timeout time.Duration
}

// Uploader posts files as multipart forms and returns the hosted URL.
type Uploader struct {
	cfg    Config
	client *http.Client
}

func NewUploader(cfg Config) *Uploader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Uploader{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload streams r to the host. The body is written through a pipe so the
// file is never buffered in full.
func (u *Uploader) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(form, u.cfg.Preset, filename, contentType, r))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.cfg.URL, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	var body uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("upload response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if body.Error != nil {
			return "", fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, body.Error.Message)
		}
		return "", fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}

	if body.SecureURL != "" {
		return body.SecureURL, nil
	}
	if body.URL != "" {
		return body.URL, nil
	}
	return "", fmt.Errorf("upload response has no url")
}

func writeForm(form *multipart.Writer, preset, filename, contentType string, r io.Reader) error {
	if preset != "" {
		if err := form.WriteField("upload_preset", preset); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := form.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return form.Close()
}
