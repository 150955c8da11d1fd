package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"careerscope/internal/common"
	"careerscope/internal/config"
	"careerscope/internal/errors"
	"careerscope/internal/state"
	"careerscope/internal/types"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Client talks to the remote analysis service. It owns the cross-cutting
// concerns of that conversation: the session correlation header, the request
// rate budget, and a circuit breaker around the non-polling endpoints.
type Client struct {
	baseURL     string
	http        *http.Client
	logger      *errors.Logger
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[[]byte]
	files       *common.FileProcessor
	maxFileSize int64
}

// NewClient creates a backend client bound to the given session store.
func NewClient(cfg *config.Config, sessions *state.SessionStore, logger *errors.Logger) *Client {
	httpClient := newHTTPClient(sessions)
	httpClient.Timeout = cfg.Backend.Timeout

	c := &Client{
		baseURL:     cfg.Backend.BaseURL,
		http:        httpClient,
		logger:      logger,
		files:       common.NewFileProcessor(logger),
		maxFileSize: cfg.App.MaxFileSize,
	}

	if cfg.Backend.RateLimit.Enabled {
		perSecond := rate.Limit(float64(cfg.Backend.RateLimit.RequestsPerMin) / 60.0)
		c.limiter = rate.NewLimiter(perSecond, cfg.Backend.RateLimit.BurstCapacity)
	}

	if cfg.Backend.CircuitBreaker.Enabled {
		cb := cfg.Backend.CircuitBreaker
		settings := gobreaker.Settings{
			Name:        "backend",
			MaxRequests: cb.MaxRequests,
			Interval:    cb.Interval,
			Timeout:     cb.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= cb.MinRequests &&
					failureRatio >= cb.FailureThreshold
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				if logger != nil {
					logger.Info("Circuit breaker state changed",
						"name", name,
						"from", from.String(),
						"to", to.String())
				}
			},
		}
		c.breaker = gobreaker.NewCircuitBreaker[[]byte](settings)
	}

	return c
}

// CreateSession starts a new backend session. This is the one call that goes
// out without a session header.
func (c *Client) CreateSession(ctx context.Context) (*types.Session, error) {
	var sess types.Session
	if err := c.doJSON(ctx, http.MethodPost, "/api/session", nil, &sess, true); err != nil {
		return nil, errors.NewSessionError(errors.ErrCodeBackendRejected, "failed to create session", err)
	}
	return &sess, nil
}

// GetSession looks up an existing backend session, typically to confirm that
// a locally restored session is still alive server side.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	var sess types.Session
	if err := c.doJSON(ctx, http.MethodGet, "/api/session/"+url.PathEscape(sessionID), nil, &sess, true); err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteSession discards a backend session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/session/"+url.PathEscape(sessionID), nil, nil, true)
}

// UploadResume sends the resume file as a multipart upload and returns the
// backend's parsed summary.
func (c *Client) UploadResume(ctx context.Context, path string) (*types.ResumeUploadResponse, error) {
	if err := c.files.ValidateFileSize(path, c.maxFileSize); err != nil {
		return nil, err
	}
	content, err := c.files.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidFormat, "cannot build upload form", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidFormat, "cannot build upload form", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidFormat, "cannot finalize upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/resume", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	data, err := c.execute(req)
	if err != nil {
		return nil, err
	}
	var out types.ResumeUploadResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeInvalidFormat, "malformed resume upload response", err)
	}
	return &out, nil
}

// UploadJobDescription sends one job description as raw text.
func (c *Client) UploadJobDescription(ctx context.Context, text string) (*types.JobUploadResponse, error) {
	var out types.JobUploadResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/job-description",
		types.JobDescriptionRequest{Text: text}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// StartAnalysis asks the backend to start the analysis job. Rate limited to
// stay under the backend's per-minute budget for this endpoint.
func (c *Client) StartAnalysis(ctx context.Context, sessionID string) (*types.AnalysisStartedResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	var out types.AnalysisStartedResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/analyze",
		types.AnalyzeRequest{SessionID: sessionID}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchResults polls the per-session results resource. Deliberately not
// routed through the circuit breaker: the poll loop has its own transient
// failure budget and must keep ticking while the breaker cools down.
func (c *Client) FetchResults(ctx context.Context, sessionID string) (*types.ResultsResponse, error) {
	var out types.ResultsResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/results/"+url.PathEscape(sessionID), nil, &out, false)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchProgress returns the REST snapshot of agent progress.
func (c *Client) FetchProgress(ctx context.Context, sessionID string) (*types.ResultsResponse, error) {
	var out types.ResultsResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/progress/"+url.PathEscape(sessionID), nil, &out, false)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchRecommendations returns the prioritized recommendation list.
func (c *Client) FetchRecommendations(ctx context.Context, sessionID string) (*types.RecommendationsResponse, error) {
	var out types.RecommendationsResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/recommendations/"+url.PathEscape(sessionID), nil, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchInterviewPrep returns interview preparation material.
func (c *Client) FetchInterviewPrep(ctx context.Context, sessionID string) (*types.InterviewPrepResponse, error) {
	var out types.InterviewPrepResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/interview-prep/"+url.PathEscape(sessionID), nil, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchMarketInsights returns salary/demand/trend data.
func (c *Client) FetchMarketInsights(ctx context.Context, sessionID string) (*types.MarketInsightsResponse, error) {
	var out types.MarketInsightsResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/market-insights/"+url.PathEscape(sessionID), nil, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat asks a free-form question about the fit analysis. Rate limited like
// StartAnalysis.
func (c *Client) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	var out types.ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// wait blocks until the rate limiter admits another request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// doJSON performs one JSON request/response round trip. withBreaker routes
// the call through the circuit breaker.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, withBreaker bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.NewInternalError(errors.ErrCodeInvalidFormat, "cannot encode request", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var data []byte
	if withBreaker && c.breaker != nil {
		data, err = c.breaker.Execute(func() ([]byte, error) { return c.do(req) })
	} else {
		data, err = c.do(req)
	}
	if err != nil {
		return err
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewNetworkError(errors.ErrCodeInvalidFormat, "malformed backend response", err)
	}
	return nil
}

// execute performs a prepared request through the breaker.
func (c *Client) execute(req *http.Request) ([]byte, error) {
	if c.breaker != nil {
		return c.breaker.Execute(func() ([]byte, error) { return c.do(req) })
	}
	return c.do(req)
}

// do sends the request and returns the response body, converting non-2xx
// statuses into structured errors.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkTimeout,
			fmt.Sprintf("%s %s failed", req.Method, req.URL.Path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "cannot read backend response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := backendErrorMessage(data)
		appErr := errors.NewNetworkError(errors.ErrCodeBackendRejected,
			fmt.Sprintf("backend returned %d for %s %s", resp.StatusCode, req.Method, req.URL.Path), nil).
			WithContext("status", resp.StatusCode)
		if msg != "" {
			appErr = appErr.WithContext("detail", msg)
		}
		return nil, appErr
	}
	return data, nil
}

// backendErrorMessage extracts the backend's error detail, if any.
func backendErrorMessage(data []byte) string {
	var e types.ErrorResponse
	if err := json.Unmarshal(data, &e); err != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
