// Package api implements the HTTP client for the billing backend.
//
// The backend keys all per-user state on an opaque username string. There is
// no password or token exchange: same string, same bucket. Callers must not
// treat this as an authentication boundary.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const basePath = "/api/v1/billing"

// Client talks to the billing backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the backend at baseURL (scheme://host[:port],
// no trailing slash). A zero timeout disables the client-side deadline.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// ListFiles fetches the full catalog of uploaded files.
func (c *Client) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var resp fileListResponse
	if err := c.do(ctx, http.MethodGet, basePath+"/files", nil, &resp, &resp.Success); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// Upload sends one spreadsheet as a multipart form. The username qualifies
// which user's engine cache is invalidated server-side.
func (c *Client) Upload(ctx context.Context, username, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", &TransportError{Op: "upload " + filename, Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", &TransportError{Op: "upload " + filename, Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &TransportError{Op: "upload " + filename, Err: err}
	}

	path := basePath + "/upload?username=" + url.QueryEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return "", &TransportError{Op: "upload " + filename, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp uploadResponse
	if err := c.send(req, path, &resp, &resp.Success); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DeleteFile removes one file from the catalog.
func (c *Client) DeleteFile(ctx context.Context, filename string) error {
	var resp deleteFileResponse
	path := basePath + "/files/" + url.PathEscape(filename)
	return c.do(ctx, http.MethodDelete, path, nil, &resp, &resp.Success)
}

// KeyStatus fetches the backend's view of the user's API-key state.
func (c *Client) KeyStatus(ctx context.Context, username string) (KeyStatus, error) {
	var status KeyStatus
	path := basePath + "/api-key-status?username=" + url.QueryEscape(username)
	// This endpoint has no success flag; any 2xx body is the status itself.
	if err := c.do(ctx, http.MethodGet, path, nil, &status, nil); err != nil {
		return KeyStatus{}, err
	}
	return status, nil
}

// SetKey stores an API key for the user. The key value is forwarded exactly
// as given; format rules beyond the caller's own checks are the backend's.
func (c *Client) SetKey(ctx context.Context, username, key string) (SetKeyResult, error) {
	var resp setKeyResponse
	err := c.do(ctx, http.MethodPost, basePath+"/set-api-key",
		setKeyRequest{APIKey: key, Username: username}, &resp, &resp.Success)
	if err != nil {
		return SetKeyResult{}, err
	}
	return resp.SetKeyResult, nil
}

// RemoveKey deletes the user's stored key, reverting them to the backend's
// default credential.
func (c *Client) RemoveKey(ctx context.Context, username string) error {
	var resp removeKeyResponse
	path := basePath + "/remove-api-key?username=" + url.QueryEscape(username)
	return c.do(ctx, http.MethodDelete, path, nil, &resp, &resp.Success)
}

// Query submits one free-text question. fileName may be empty, meaning the
// engine considers all files.
func (c *Client) Query(ctx context.Context, username, text, fileName string) (QueryResult, error) {
	var resp queryResponse
	err := c.do(ctx, http.MethodPost, basePath+"/query",
		queryRequest{Query: text, FileName: fileName, Username: username}, &resp, nil)
	if err != nil {
		return QueryResult{}, err
	}
	if !resp.Success {
		detail := resp.Detail
		if detail == "" {
			detail = resp.Answer
		}
		return QueryResult{}, &RemoteError{Status: http.StatusOK, Detail: detail}
	}
	return resp.QueryResult, nil
}

// CleanupSession asks the backend to drop per-user engine state. Callers
// treat this as best-effort; see session.Controller.
func (c *Client) CleanupSession(ctx context.Context, username string) error {
	path := basePath + "/cleanup-session?username=" + url.QueryEscape(username)
	var resp struct {
		Success bool `json:"success"`
	}
	return c.do(ctx, http.MethodPost, path, nil, &resp, &resp.Success)
}

// Health probes the backend root health endpoint.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h, nil); err != nil {
		return Health{}, err
	}
	return h, nil
}

// do issues a JSON round trip. success, when non-nil, points at the decoded
// response's success flag; a 2xx response with success=false becomes a
// RemoteError so callers never branch on ad hoc fields.
func (c *Client) do(ctx context.Context, method, path string, in, out any, success *bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &TransportError{Op: method + " " + path, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path, out, success)
}

func (c *Client) send(req *http.Request, path string, out any, success *bool) error {
	op := req.Method + " " + path
	reqID := uuid.New().String()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("request failed", "op", op, "request_id", reqID, "error", err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	slog.Debug("request completed", "op", op, "request_id", reqID,
		"status", resp.StatusCode, "duration", time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		if err := json.Unmarshal(data, &eb); err != nil || eb.Detail == "" {
			return &RemoteError{Status: resp.StatusCode}
		}
		return &RemoteError{Status: resp.StatusCode, Detail: eb.Detail}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if success != nil && !*success {
		// success:false bodies carry the failure text in detail or message.
		var eb struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &eb)
		if eb.Detail == "" {
			eb.Detail = eb.Message
		}
		return &RemoteError{Status: resp.StatusCode, Detail: eb.Detail}
	}
	return nil
}
