// Package chem provides mmp.Toolkit implementations backed by an external
// cheminformatics service: a JSON-over-HTTP client and a redis-backed
// caching decorator shared across runs.
package chem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

// Toolkit service operations.
const (
	OpParse     = "parse"
	OpCanonical = "canonical"
	OpSingleCut = "single-cut"
	OpAtomCount = "atom-count"
)

// Molecule is a molecule held by the remote service, identified by SMILES.
type Molecule struct {
	smiles string
}

// NewMolecule wraps smiles without validating it.
func NewMolecule(smiles string) Molecule { return Molecule{smiles: smiles} }

// Smiles implements mmp.Molecule.
func (m Molecule) Smiles() string { return m.smiles }

// ObserverFunc receives the outcome of every toolkit request.
type ObserverFunc func(op, status string, d time.Duration)

// APIError is an error response of the toolkit service.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("toolkit: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

// IsChemistryError reports whether the service rejected the input itself.
func (e *APIError) IsChemistryError() bool {
	return e.StatusCode == http.StatusUnprocessableEntity
}

// IsServerError reports a 5xx response.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Client talks to the toolkit service.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       logging.Logger
	observer     ObserverFunc
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// NewClient returns a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.InvalidParam("toolkit: base url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "toolkit: invalid base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.InvalidParam("toolkit: base url scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		userAgent:    "keyip-mmp/" + Version,
		logger:       logging.NewNopLogger(),
		retryMax:     3,
		retryWaitMin: 100 * time.Millisecond,
		retryWaitMax: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Version is reported in the User-Agent header.
const Version = "0.1.0"

type smilesRequest struct {
	Smiles string `json:"smiles"`
}

type smilesResponse struct {
	Smiles string `json:"smiles"`
}

type cutResponse struct {
	Pairs [][2]string `json:"pairs"`
}

type countResponse struct {
	Count int `json:"count"`
}

// Parse implements mmp.Toolkit.
func (c *Client) Parse(ctx context.Context, smiles string) (mmp.Molecule, error) {
	var resp smilesResponse
	if err := c.post(ctx, OpParse, smilesRequest{Smiles: smiles}, &resp); err != nil {
		return nil, err
	}
	if resp.Smiles == "" {
		resp.Smiles = smiles
	}
	return Molecule{smiles: resp.Smiles}, nil
}

// CanonicalSmiles implements mmp.Toolkit.
func (c *Client) CanonicalSmiles(ctx context.Context, mol mmp.Molecule) (string, error) {
	var resp smilesResponse
	if err := c.post(ctx, OpCanonical, smilesRequest{Smiles: mol.Smiles()}, &resp); err != nil {
		return "", err
	}
	return resp.Smiles, nil
}

// ApplySingleCutReaction implements mmp.Toolkit.
func (c *Client) ApplySingleCutReaction(ctx context.Context, mol mmp.Molecule) ([]mmp.CutPair, error) {
	var resp cutResponse
	if err := c.post(ctx, OpSingleCut, smilesRequest{Smiles: mol.Smiles()}, &resp); err != nil {
		return nil, err
	}
	out := make([]mmp.CutPair, len(resp.Pairs))
	for i, p := range resp.Pairs {
		out[i] = mmp.CutPair{A: Molecule{smiles: p[0]}, B: Molecule{smiles: p[1]}}
	}
	return out, nil
}

// AtomCount implements mmp.Toolkit.
func (c *Client) AtomCount(ctx context.Context, mol mmp.Molecule) (int, error) {
	var resp countResponse
	if err := c.post(ctx, OpAtomCount, smilesRequest{Smiles: mol.Smiles()}, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Ping checks GET /healthz of the service.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "toolkit: health request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeToolkitUnavailable, "toolkit: health check")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrCodeToolkitUnavailable, "toolkit: health check returned %d", resp.StatusCode)
	}
	return nil
}

// post sends one operation with retries.  Chemistry rejections (422) are
// returned at once with an MMP code; exhausted retries become
// ErrCodeToolkitUnavailable.  Context errors are returned unchanged.
func (c *Client) post(ctx context.Context, op string, body, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "toolkit: encode request")
	}
	path := c.baseURL + "/v1/" + op

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.Debug("retrying toolkit request", logging.String("op", op), logging.Int("attempt", attempt), logging.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		retry, err := c.attempt(ctx, op, path, payload, result)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return errors.Wrapf(lastErr, errors.ErrCodeToolkitUnavailable, "toolkit: %s failed after %d attempts", op, c.retryMax+1)
}

// attempt performs one request and reports whether a failure is retryable.
func (c *Client) attempt(ctx context.Context, op, path string, payload []byte, result interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return false, errors.Wrap(err, errors.CodeInternal, "toolkit: build request")
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, "transport_error", time.Since(start))
		c.logger.Warn("toolkit request failed", logging.String("op", op), logging.String("request_id", requestID), logging.Err(err))
		return true, err
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	elapsed := time.Since(start)
	if err != nil {
		c.observe(op, "transport_error", elapsed)
		return true, err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.StatusCode, apiErr.RequestID = resp.StatusCode, requestID
		c.observe(op, fmt.Sprintf("%d", resp.StatusCode), elapsed)

		switch {
		case apiErr.IsChemistryError():
			return false, errors.Wrap(apiErr, chemistryCode(op), "toolkit: "+op+" rejected input").WithDetail(apiErr.Message)
		case apiErr.IsServerError(), resp.StatusCode == http.StatusTooManyRequests:
			return true, apiErr
		default:
			return false, errors.Wrap(apiErr, errors.ErrCodeToolkitUnavailable, "toolkit: "+op+" request refused")
		}
	}

	c.observe(op, "ok", elapsed)
	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return false, errors.Wrap(err, errors.ErrCodeToolkitUnavailable, "toolkit: decode "+op+" response")
		}
	}
	return false, nil
}

func chemistryCode(op string) errors.ErrorCode {
	switch op {
	case OpParse:
		return errors.ErrCodeInvalidSMILES
	case OpCanonical:
		return errors.ErrCodeCanonicalizationFailed
	default:
		return errors.ErrCodeFragmentationFailed
	}
}

func (c *Client) observe(op, status string, d time.Duration) {
	if c.observer != nil {
		c.observer(op, status, d)
	}
}

// backoff is exponential with up to 25% jitter, capped at retryWaitMax.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if d > c.retryWaitMax || d <= 0 {
		d = c.retryWaitMax
	}
	if q := int64(d / 4); q > 0 {
		d += time.Duration(rand.Int63n(q))
	}
	return d
}

var _ mmp.Toolkit = (*Client)(nil)

//Personal.AI order the ending
