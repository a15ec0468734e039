package videodb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Upload adds a video to the collection from a remote URL or a local file. A local
// file is validated, sent to a one-time upload URL, and then registered.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*Video, error) {
	hasURL, hasFile := req.URL != "", req.FilePath != ""
	if hasURL == hasFile {
		return nil, fmt.Errorf("%w: set exactly one of URL and file path", ErrInvalidSource)
	}

	source := req.URL
	if hasFile {
		if err := ValidateVideoFile(req.FilePath, c.upload.AllowedExtensions, c.upload.MaxFileSizeBytes()); err != nil {
			return nil, err
		}
		if req.Name == "" {
			req.Name = strings.TrimSuffix(filepath.Base(req.FilePath), filepath.Ext(req.FilePath))
		}
		var err error
		if source, err = c.uploadFile(ctx, req.FilePath, req.Name); err != nil {
			return nil, err
		}
	} else if err := ValidateVideoURL(req.URL, c.upload.AllowedExtensions); err != nil {
		return nil, err
	}

	body := map[string]any{"url": source}
	if req.Name != "" {
		body["name"] = req.Name
	}
	if req.Description != "" {
		body["description"] = req.Description
	}
	var v Video
	if err := c.call(ctx, "upload", http.MethodPost, "/collection/"+url.PathEscape(c.collection)+"/upload", body, &v); err != nil {
		return nil, err
	}
	if v.ID == "" {
		return nil, fmt.Errorf("videodb upload: response has no video id")
	}
	c.logger.Info("video uploaded", zap.String("video_id", v.ID), zap.String("name", v.Name))
	return &v, nil
}

// uploadFile streams a local file to a fresh upload URL and returns the URL the
// collection upload call should reference.
func (c *Client) uploadFile(ctx context.Context, path, name string) (string, error) {
	var target uploadURLResponse
	q := url.Values{"name": {name}}
	if err := c.call(ctx, "upload_url", http.MethodGet, "/collection/"+url.PathEscape(c.collection)+"/upload_url?"+q.Encode(), nil, &target); err != nil {
		return "", err
	}
	if target.UploadURL == "" {
		return "", fmt.Errorf("videodb upload_url: response has no upload_url")
	}

	resp, err := c.sendWith(ctx, func(ctx context.Context) (*http.Request, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			defer f.Close()
			part, err := mw.CreateFormFile("file", filepath.Base(path))
			if err == nil {
				_, err = io.Copy(part, f)
			}
			if err == nil {
				err = mw.Close()
			}
			pw.CloseWithError(err)
		}()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.UploadURL, pr)
		if err != nil {
			pr.Close()
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	}, c.doUpload)
	c.metrics.ObserveVideoDB("upload_file", err)
	if err != nil {
		return "", fmt.Errorf("videodb upload file: %w", err)
	}

	var uploaded struct {
		URL string `json:"url"`
	}
	if len(resp.Data) > 0 {
		_ = json.Unmarshal(resp.Data, &uploaded)
	}
	if uploaded.URL != "" {
		return uploaded.URL, nil
	}
	return target.UploadURL, nil
}

// doUpload posts to a pre-signed upload URL. The storage endpoint does not use
// the API envelope or the access token.
func (c *Client) doUpload(req *http.Request) (*response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if !json.Valid(raw) {
		return &response{}, nil
	}
	return &response{Data: raw}, nil
}
