// Package clinic is a thin HTTP client for the patient-management service
// endpoints the probes exercise.
package clinic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Default endpoint paths.
const (
	DefaultHealthPath   = "/api/health"
	DefaultUploadPath   = "/api/upload"
	DefaultRelocatePath = "/api/files/move"
)

// Endpoints holds the service paths, relative to the base URL.
type Endpoints struct {
	Health   string `yaml:"health"`
	Upload   string `yaml:"upload"`
	Relocate string `yaml:"relocate"`
}

// DefaultEndpoints returns the standard endpoint paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Health:   DefaultHealthPath,
		Upload:   DefaultUploadPath,
		Relocate: DefaultRelocatePath,
	}
}

// Options configures a Client.
type Options struct {
	Endpoints Endpoints
	// Timeout bounds each request. Zero means no timeout.
	Timeout   time.Duration
	UserAgent string

	// HTTPClient replaces the underlying transport client, mostly for tests.
	HTTPClient *http.Client
}

// Client talks to the service.
type Client struct {
	baseURL   string
	endpoints Endpoints
	rc        *resty.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts Options) *Client {
	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}

	baseURL = strings.TrimSuffix(baseURL, "/")
	rc.SetBaseURL(baseURL)
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "clinicprobe"
	}
	rc.SetHeader("User-Agent", userAgent)

	endpoints := opts.Endpoints
	defaults := DefaultEndpoints()
	if endpoints.Health == "" {
		endpoints.Health = defaults.Health
	}
	if endpoints.Upload == "" {
		endpoints.Upload = defaults.Upload
	}
	if endpoints.Relocate == "" {
		endpoints.Relocate = defaults.Relocate
	}

	return &Client{
		baseURL:   baseURL,
		endpoints: endpoints,
		rc:        rc,
	}
}

// URL returns the absolute URL of an endpoint path.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// Endpoints returns the configured endpoint paths.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// HTTPClient exposes the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.rc.GetClient()
}

// Reply is a raw service response.
type Reply struct {
	StatusCode int
	Status     string
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Reply) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decoded returns the body parsed as JSON, or the raw text when it is not JSON.
func (r *Reply) Decoded() any {
	trimmed := bytes.TrimSpace(r.Body)
	if len(trimmed) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return string(r.Body)
	}
	return v
}

// TransportError is a request that never produced an HTTP response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusError is a non-2xx reply.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Code)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Code, e.Message)
}

// Health requests the health endpoint. Any HTTP response is returned as a
// Reply; only transport failures produce an error.
func (c *Client) Health(ctx context.Context) (*Reply, error) {
	return c.do(c.rc.R().SetContext(ctx), http.MethodGet, c.endpoints.Health)
}

// Upload sends files as a multipart form to the upload endpoint. A nil or
// empty map sends an empty multipart payload.
func (c *Client) Upload(ctx context.Context, files map[string][]byte) (*Reply, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(content); err != nil {
			return nil, fmt.Errorf("write form file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", mw.FormDataContentType()).
		SetBody(buf.Bytes())
	return c.do(req, http.MethodPost, c.endpoints.Upload)
}

// MoveRequest asks the service to relocate uploaded files.
type MoveRequest struct {
	PatientID string            `json:"patientId"`
	TempPaths map[string]string `json:"tempPaths"`
}

// MoveResult is a successful relocation reply.
type MoveResult struct {
	StatusCode int
	// NewPaths is nil when the reply did not carry a newPaths object.
	NewPaths map[string]string
}

type moveReply struct {
	NewPaths map[string]string `json:"newPaths"`
	Error    *string           `json:"error"`
}

// MoveFiles calls the relocation endpoint once. Non-2xx replies return a
// *StatusError carrying the server's error message; network failures return
// a *TransportError.
func (c *Client) MoveFiles(ctx context.Context, mr MoveRequest) (*MoveResult, error) {
	body, err := json.Marshal(mr)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	reply, err := c.do(req, http.MethodPost, c.endpoints.Relocate)
	if err != nil {
		return nil, err
	}

	var decoded moveReply
	decodeErr := json.Unmarshal(reply.Body, &decoded)

	if !reply.OK() {
		msg := ""
		if decodeErr == nil && decoded.Error != nil {
			msg = *decoded.Error
		} else if text := strings.TrimSpace(string(reply.Body)); text != "" {
			msg = text
		} else {
			msg = http.StatusText(reply.StatusCode)
		}
		return nil, &StatusError{Code: reply.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	return &MoveResult{StatusCode: reply.StatusCode, NewPaths: decoded.NewPaths}, nil
}

func (c *Client) do(req *resty.Request, method, path string) (*Reply, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, &TransportError{Method: method, URL: c.URL(path), Err: err}
	}
	return &Reply{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       resp.Body(),
	}, nil
}
