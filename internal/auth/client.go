package auth

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/huquq-center/insaf/internal/observability"
	"github.com/huquq-center/insaf/internal/transport"
	"github.com/huquq-center/insaf/model"
)

// CallOptions carries per-call configuration for authenticated requests.
type CallOptions struct {
	// Headers are merged over the computed headers, so they can override.
	Headers map[string]string
	// Query parameters appended to the request URL.
	Query url.Values
	// Lang overrides the client's default Accept-Language.
	Lang string
	// RetryOnUnauthorized controls the refresh-and-retry behavior for a
	// 401 response. Nil means true.
	RetryOnUnauthorized *bool
	// Operation labels the call in spans and metrics.
	Operation string
}

func (o CallOptions) retryAllowed() bool {
	return o.RetryOnUnauthorized == nil || *o.RetryOnUnauthorized
}

// UploadFile is one file of an authenticated multipart upload. Content is
// held in memory so the upload can be re-issued after a token refresh.
type UploadFile struct {
	Field    string
	FileName string
	Content  []byte
}

// Client performs authenticated calls against the portal, attaching the
// bearer token and transparently retrying exactly once after a successful
// token refresh when the portal reports 401.
//
// Refresh is strictly serialized: concurrent requests that observe 401
// share a single refresh call and all settle with its outcome.
type Client struct {
	transport *transport.Client
	session   *Session
	store     Store
	refresh   singleflight.Group
	logger    *zap.Logger
	metrics   *observability.Metrics
	lang      string
}

// NewClient creates an authenticated client. lang is the default
// Accept-Language for calls that do not override it.
func NewClient(tc *transport.Client, session *Session, store Store, lang string, logger *zap.Logger, metrics *observability.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		transport: tc,
		session:   session,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		lang:      lang,
	}
}

// Get performs an authenticated GET, decoding the response into out.
func (c *Client) Get(ctx context.Context, path string, out any, opts CallOptions) error {
	return c.do(ctx, http.MethodGet, path, nil, out, opts, false)
}

// Post performs an authenticated POST.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts CallOptions) error {
	return c.do(ctx, http.MethodPost, path, body, out, opts, false)
}

// Put performs an authenticated PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts CallOptions) error {
	return c.do(ctx, http.MethodPut, path, body, out, opts, false)
}

// Patch performs an authenticated PATCH.
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts CallOptions) error {
	return c.do(ctx, http.MethodPatch, path, body, out, opts, false)
}

// Delete performs an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any, opts CallOptions) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, opts, false)
}

// Upload performs an authenticated multipart POST. The form is rebuilt per
// dispatch so the single refresh retry can re-send the file content.
func (c *Client) Upload(ctx context.Context, path string, fields map[string]string, files []UploadFile, out any, opts CallOptions) error {
	return c.upload(ctx, path, fields, files, out, opts, false)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, opts CallOptions, isRetry bool) error {
	err := c.transport.Do(ctx, method, path, body, out, c.transportOptions(opts))
	if err == nil {
		return nil
	}
	if !c.shouldRefresh(err, opts, isRetry) {
		return err
	}
	if rerr := c.refreshOnce(ctx); rerr != nil {
		return rerr
	}
	c.noteRetry(method, path)
	return c.do(ctx, method, path, body, out, opts, true)
}

func (c *Client) upload(ctx context.Context, path string, fields map[string]string, files []UploadFile, out any, opts CallOptions, isRetry bool) error {
	form := transport.MultipartForm{Fields: fields}
	for _, f := range files {
		form.Files = append(form.Files, transport.FilePart{
			Field:    f.Field,
			FileName: f.FileName,
			Content:  bytes.NewReader(f.Content),
		})
	}

	err := c.transport.DoMultipart(ctx, path, form, out, c.transportOptions(opts))
	if err == nil {
		return nil
	}
	if !c.shouldRefresh(err, opts, isRetry) {
		return err
	}
	if rerr := c.refreshOnce(ctx); rerr != nil {
		return rerr
	}
	c.noteRetry(http.MethodPost, path)
	return c.upload(ctx, path, fields, files, out, opts, true)
}

// shouldRefresh reports whether a failed call qualifies for the single
// refresh-and-retry cycle: a 401 on a first attempt with retry enabled.
// A second 401 after a refresh surfaces as a hard failure, never a loop.
func (c *Client) shouldRefresh(err error, opts CallOptions, isRetry bool) bool {
	return model.IsUnauthorized(err) && opts.retryAllowed() && !isRetry
}

// refreshOnce runs the refresh operation, collapsing concurrent callers
// onto one in-flight refresh. Every caller that joins an in-flight cycle
// settles with that cycle's outcome. On failure the entire session is
// destroyed before the error propagates.
func (c *Client) refreshOnce(ctx context.Context) error {
	_, err, shared := c.refresh.Do("refresh", func() (any, error) {
		if err := c.session.Refresh(ctx); err != nil {
			c.store.Clear()
			if c.metrics != nil {
				c.metrics.RefreshCyclesTotal.WithLabelValues("failure").Inc()
			}
			c.logger.Error("token refresh failed, session cleared", zap.Error(err))
			return nil, model.NewRefreshFailedError(err)
		}
		if c.metrics != nil {
			c.metrics.RefreshCyclesTotal.WithLabelValues("success").Inc()
		}
		return nil, nil
	})
	if shared {
		if c.metrics != nil {
			c.metrics.RefreshWaitersTotal.Inc()
		}
		c.logger.Debug("request joined in-flight token refresh")
	}
	return err
}

func (c *Client) transportOptions(opts CallOptions) transport.Options {
	headers := bearerHeader(c.store.Tokens().Access)
	if headers == nil {
		headers = make(map[string]string, len(opts.Headers))
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	lang := opts.Lang
	if lang == "" {
		lang = c.lang
	}

	return transport.Options{
		Headers:   headers,
		Query:     opts.Query,
		Lang:      lang,
		Operation: opts.Operation,
	}
}

func (c *Client) noteRetry(method, path string) {
	if c.metrics != nil {
		c.metrics.PortalRetriesTotal.Inc()
	}
	c.logger.Debug("re-issuing request after token refresh",
		zap.String("method", method),
		zap.String("path", path),
	)
}
