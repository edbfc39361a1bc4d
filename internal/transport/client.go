// Package transport performs HTTP calls against the portal's REST API,
// decoding JSON responses and mapping failures to typed errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/huquq-center/insaf/internal/observability"
	"github.com/huquq-center/insaf/model"
)

const maxResponseBytes = 10 << 20

// Options carries per-call request configuration.
type Options struct {
	// Headers are merged over the standard headers, so they can override.
	Headers map[string]string
	// Query parameters appended to the request URL.
	Query url.Values
	// Lang is sent as the Accept-Language header for locale negotiation.
	Lang string
	// Operation labels the call in spans and metrics. Defaults to the path.
	Operation string
}

// FilePart is one file of a multipart upload.
type FilePart struct {
	Field    string
	FileName string
	Content  io.Reader
}

// MultipartForm is the payload of a multipart upload.
type MultipartForm struct {
	Fields map[string]string
	Files  []FilePart
}

// Client dispatches HTTP requests against a single portal base URL.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New creates a transport client. A zero timeout disables the client-level
// deadline; callers can still cancel through the context.
func New(baseURL string, timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Do performs a single HTTP request. A non-nil body is JSON encoded. When
// out is non-nil the 2xx response body is decoded into it. Non-2xx
// responses return a *model.APIError carrying the status and, when the
// body parses as JSON, the portal's error payload.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts Options) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("transport: marshal body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	headers := c.buildHeaders(opts)
	if body != nil {
		headers.Set("Content-Type", "application/json")
	}

	return c.dispatch(ctx, method, path, reqBody, headers, out, opts)
}

// DoMultipart performs a multipart/form-data POST, used for document upload.
func (c *Client) DoMultipart(ctx context.Context, path string, form MultipartForm, out any, opts Options) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range form.Fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("transport: write form field %q: %w", k, err)
		}
	}
	for _, f := range form.Files {
		part, err := writer.CreateFormFile(f.Field, f.FileName)
		if err != nil {
			return fmt.Errorf("transport: create form file %q: %w", f.FileName, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return fmt.Errorf("transport: copy form file %q: %w", f.FileName, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("transport: finalize form: %w", err)
	}

	headers := c.buildHeaders(opts)
	headers.Set("Content-Type", writer.FormDataContentType())

	return c.dispatch(ctx, http.MethodPost, path, &buf, headers, out, opts)
}

func (c *Client) dispatch(ctx context.Context, method, path string, body io.Reader, headers http.Header, out any, opts Options) error {
	operation := opts.Operation
	if operation == "" {
		operation = path
	}

	ctx, span := observability.StartSpan(ctx, method+" "+operation,
		observability.AttrOperation.String(operation),
		observability.AttrPath.String(path),
		observability.AttrLang.String(opts.Lang),
	)

	reqURL := c.baseURL + path
	if len(opts.Query) > 0 {
		reqURL += "?" + opts.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		observability.EndSpanWithError(span, err)
		return fmt.Errorf("transport: build request: %w", err)
	}
	req.Header = headers
	observability.InjectTraceHeaders(ctx, req.Header)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		mapped := mapNetworkError(ctx, err)
		observability.EndSpanWithError(span, mapped)
		c.metrics.ObservePortalRequest(method, operation, 0, time.Since(start))
		return mapped
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		observability.EndSpanWithError(span, err)
		return fmt.Errorf("transport: read response: %w", err)
	}

	c.metrics.ObservePortalRequest(method, operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp.StatusCode, respBody)
		c.logger.Warn("portal request failed",
			zap.String("method", method),
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
		)
		observability.EndSpanWithError(span, apiErr)
		return apiErr
	}

	span.End()

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("transport: decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) buildHeaders(opts Options) http.Header {
	h := make(http.Header)
	h.Set("Accept", "application/json")
	if opts.Lang != "" {
		h.Set("Accept-Language", sanitizeHeader(opts.Lang))
	}
	h.Set("X-Correlation-Id", uuid.New().String())

	for k, v := range opts.Headers {
		h.Set(sanitizeHeader(k), sanitizeHeader(v))
	}
	return h
}

// decodeAPIError builds an APIError from a non-2xx response. A body that
// is not valid JSON is tolerated: the error then carries only the status.
func decodeAPIError(status int, body []byte) *model.APIError {
	apiErr := &model.APIError{Status: status}
	if len(body) == 0 {
		return apiErr
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}
	apiErr.Payload = payload

	if code, ok := payload["code"].(string); ok {
		apiErr.Code = code
	}
	if msg, ok := payload["message"].(string); ok {
		apiErr.Message = msg
	}
	if details, ok := payload["details"].([]any); ok {
		for _, d := range details {
			dm, ok := d.(map[string]any)
			if !ok {
				continue
			}
			fe := model.FieldError{}
			fe.Field, _ = dm["field"].(string)
			fe.Code, _ = dm["code"].(string)
			fe.Message, _ = dm["message"].(string)
			apiErr.Details = append(apiErr.Details, fe)
		}
	}
	return apiErr
}

func mapNetworkError(ctx context.Context, err error) error {
	if isConnectionError(err) {
		return model.NewPortalUnavailableError()
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return model.NewPortalTimeoutError()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return model.NewPortalTimeoutError()
	}
	return fmt.Errorf("transport: request failed: %w", err)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// sanitizeHeader strips newlines and carriage returns to prevent header
// injection.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
