// Package relay pushes annotated frames to the remote viewer endpoint.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"eventcam/internal/frame"
	"eventcam/internal/logger"
)

const (
	// DefaultTimeout bounds one upload, connection included.
	DefaultTimeout = time.Second
	// FieldName is the multipart field the viewer reads the image from.
	FieldName = "frame"
	// maxLoggedBody caps how much of the response is logged.
	maxLoggedBody = 200
)

// Stage says where a relay attempt failed.
type Stage string

const (
	StageEncode  Stage = "encode"
	StageRequest Stage = "request"
	StageStatus  Stage = "status"
)

// Error is a failed relay attempt.
type Error struct {
	Stage      Stage
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.Stage == StageStatus {
		return fmt.Sprintf("relay %s: unexpected status %d: %s", e.Stage, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("relay %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures a Relay.
type Options struct {
	URL     string
	Camera  string
	Token   string
	Timeout time.Duration
	Encoder Encoder
}

// Relay uploads frames as multipart forms. It does not retry; every call is
// an independent best-effort attempt.
type Relay struct {
	endpoint string
	token    string
	timeout  time.Duration
	encoder  Encoder
	client   *http.Client
	logger   *logger.Logger
}

// New returns a Relay for opts. An empty URL yields a disabled relay whose
// Send is a no-op.
func New(opts Options, logger *logger.Logger) (*Relay, error) {
	r := &Relay{
		token:   opts.Token,
		timeout: opts.Timeout,
		encoder: opts.Encoder,
		logger:  logger,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.encoder == nil {
		r.encoder = JPEGEncoder{}
	}
	r.client = &http.Client{Timeout: r.timeout}

	if opts.URL == "" {
		return r, nil
	}
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported relay url scheme %q", u.Scheme)
	}
	if opts.Camera != "" {
		q := u.Query()
		q.Set("camera", opts.Camera)
		u.RawQuery = q.Encode()
	}
	r.endpoint = u.String()
	return r, nil
}

// Enabled reports whether the relay has an endpoint.
func (r *Relay) Enabled() bool {
	return r.endpoint != ""
}

// Send encodes f and posts it. The call returns within the configured
// timeout regardless of the endpoint's behavior.
func (r *Relay) Send(ctx context.Context, f *frame.Frame) error {
	if !r.Enabled() {
		return nil
	}

	img, err := r.encoder.Encode(f)
	if err != nil {
		return &Error{Stage: StageEncode, Err: err}
	}

	body, contentType, err := r.buildForm(img)
	if err != nil {
		return &Error{Stage: StageEncode, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, body)
	if err != nil {
		return &Error{Stage: StageRequest, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return &Error{Stage: StageRequest, Err: err}
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Stage: StageStatus, StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	r.logger.Info("Frame %d relayed: %d %s", f.Seq, resp.StatusCode, bytes.TrimSpace(snippet))
	return nil
}

func (r *Relay) buildForm(img []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="frame%s"`, FieldName, r.encoder.Ext()))
	h.Set("Content-Type", r.encoder.ContentType())
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(img); err != nil {
		return nil, "", fmt.Errorf("failed to write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return body, w.FormDataContentType(), nil
}
