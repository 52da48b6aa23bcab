package http

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/tidwall/gjson"
	"reqsender/internal/logger"
	"reqsender/internal/model"
)

const (
	// MaxResponseSize limits response body to 50MB to prevent memory exhaustion
	MaxResponseSize = 50 * 1024 * 1024

	// Default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// NetworkErrorText is the status text of transport-level failures
	NetworkErrorText = "Network Error"
)

// Options tunes a Client. Zero values fall back to the defaults above.
type Options struct {
	Timeout         time.Duration
	MaxResponseSize int64
	// QueryFromBody moves a GET/HEAD body into URL query parameters
	QueryFromBody bool
	// Transport overrides the underlying round tripper (tests)
	Transport http.RoundTripper
}

// Client dispatches concrete requests and normalizes their outcome
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxResponseSize <= 0 {
		opts.MaxResponseSize = MaxResponseSize
	}
	return &Client{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		opts: opts,
	}
}

// Dispatch executes req once and returns the normalized result. It never
// fails: transport errors come back as status 0 with the error message,
// non-2xx responses as success=false with "{status} {statusText}".
func (c *Client) Dispatch(ctx context.Context, req model.ConcreteRequest) model.DispatchResult {
	result := model.DispatchResult{
		ResponseHeaders: map[string]string{},
		Degraded:        req.Degraded,
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	target := req.URL
	var bodyReader io.Reader
	if model.IsBodylessMethod(method) {
		if c.opts.QueryFromBody && strings.TrimSpace(req.Body) != "" {
			target = AppendQuery(target, BodyToQuery(req.Body))
		}
	} else if req.Body != "" {
		bodyReader = strings.NewReader(req.Body)
	}

	result.URL = target

	if strings.HasPrefix(strings.ToLower(target), "http://") {
		logger.Warn("Using insecure HTTP connection to %s. Data will be transmitted unencrypted.", target)
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return networkFailure(result, err, start)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if httpReq.Header.Get("Content-Type") == "" && req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if httpReq.Header.Get("Accept-Encoding") == "" {
		httpReq.Header.Set("Accept-Encoding", "gzip, br")
	}

	logger.Debug("Sending %s request to %s", method, target)
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return networkFailure(result, err, start)
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if len(values) > 0 {
			result.ResponseHeaders[key] = strings.Join(values, ", ")
		}
	}

	result.Status = resp.StatusCode
	result.StatusText = statusText(resp)
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300

	respBody, err := c.readBody(resp)
	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("failed to read response body: %v", err)
		return result
	}

	if len(respBody) > 0 {
		if isJSONResponse(resp.Header.Get("Content-Type")) && gjson.ValidBytes(respBody) {
			result.Response = append([]byte(nil), bytes.TrimSpace(respBody)...)
		} else {
			result.SetTextResponse(string(respBody))
		}
	}

	if !result.Success {
		result.Error = fmt.Sprintf("%d %s", result.Status, result.StatusText)
		logger.Warn("Request failed: %s", result.Error)
	} else {
		logger.Debug("Request successful: %d", result.Status)
	}

	return result
}

// readBody reads the response with a size limit, decoding gzip and brotli
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}

	limitedReader := io.LimitReader(reader, c.opts.MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, err
	}

	if int64(len(body)) > c.opts.MaxResponseSize {
		body = body[:c.opts.MaxResponseSize]
		logger.Warn("Response body truncated (exceeded %d byte limit)", c.opts.MaxResponseSize)
	}
	return body, nil
}

func networkFailure(result model.DispatchResult, err error, start time.Time) model.DispatchResult {
	logger.Error("Network error: %v", err)
	result.Success = false
	result.Status = 0
	result.StatusText = NetworkErrorText
	result.Error = err.Error()
	result.DurationMs = time.Since(start).Milliseconds()
	return result
}

// statusText returns the reason phrase, e.g. "Not Found" for "404 Not Found"
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func isJSONResponse(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}
