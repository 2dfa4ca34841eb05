// Package client provides an HTTP client for the visit REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evcraddock/nb/internal/logging"
	"github.com/evcraddock/nb/internal/visit"
)

// DefaultTimeout applies when New is given a zero timeout.
const DefaultTimeout = 30 * time.Second

// Credentials supplies the bearer token and is told when the server
// rejects it. *auth.Session satisfies it.
type Credentials interface {
	Token() (string, error)
	MarkExpired()
}

// Client is an HTTP client for the visit API.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL string, creds Credentials, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &logging.Transport{},
		},
	}
}

// ScheduleRequest is the body of POST /visits.
type ScheduleRequest struct {
	ListingID     string `json:"listing_id"`
	VisitDatetime string `json:"visit_datetime"`
	VisitNotes    string `json:"visit_notes,omitempty"`
}

type statusRequest struct {
	Status   visit.Status `json:"status"`
	Feedback string       `json:"feedback,omitempty"`
}

type decisionRequest struct {
	Decision visit.Decision `json:"decision"`
	Notes    string         `json:"notes,omitempty"`
}

// ListVisits returns every visit visible to the current user.
func (c *Client) ListVisits(ctx context.Context) ([]*visit.Visit, error) {
	body, err := c.send(ctx, http.MethodGet, "/visits/user", nil)
	if err != nil {
		return nil, err
	}
	return decodeVisits(body)
}

// ScheduleVisit requests a new scheduled visit.
func (c *Client) ScheduleVisit(ctx context.Context, req ScheduleRequest) (*visit.Visit, error) {
	body, err := c.send(ctx, http.MethodPost, "/visits", req)
	if err != nil {
		return nil, err
	}
	return requireVisit(body)
}

// UpdateStatus requests a status transition.
func (c *Client) UpdateStatus(ctx context.Context, id string, status visit.Status, feedback string) (*visit.Visit, error) {
	body, err := c.send(ctx, http.MethodPut, visitPath(id, "status"), statusRequest{Status: status, Feedback: feedback})
	if err != nil {
		return nil, err
	}
	return requireVisit(body)
}

// CancelVisit cancels a visit. The server may reply with an empty body,
// in which case the returned visit is nil.
func (c *Client) CancelVisit(ctx context.Context, id string) (*visit.Visit, error) {
	body, err := c.send(ctx, http.MethodPost, visitPath(id, "cancel"), nil)
	if err != nil {
		return nil, err
	}
	return decodeVisit(body)
}

// SubmitDecision records the caller's decision on a completed visit.
func (c *Client) SubmitDecision(ctx context.Context, id string, decision visit.Decision, notes string) (*visit.Visit, error) {
	body, err := c.send(ctx, http.MethodPost, visitPath(id, "decision"), decisionRequest{Decision: decision, Notes: notes})
	if err != nil {
		return nil, err
	}
	return requireVisit(body)
}

func visitPath(id, action string) string {
	return "/visits/" + url.PathEscape(id) + "/" + action
}

// send performs a request with an optional JSON body and returns the raw
// response body of a 2xx response.
func (c *Client) send(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// do executes an HTTP request with auth header and handles errors.
func (c *Client) do(req *http.Request) ([]byte, error) {
	token, err := c.creds.Token()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
		if resp.StatusCode == http.StatusUnauthorized {
			c.creds.MarkExpired()
		}
		return nil, apiErr
	}

	return respBody, nil
}

// errorMessage extracts the server's message, falling back to status text.
func errorMessage(code int, body []byte) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "{") {
		return text
	}
	return fmt.Sprintf("server error: %s", http.StatusText(code))
}

// errNoVisit is returned when a mutation's 2xx response carries no visit.
var errNoVisit = errors.New("response did not include a visit")

func requireVisit(body []byte) (*visit.Visit, error) {
	v, err := decodeVisit(body)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errNoVisit
	}
	return v, nil
}

// decodeVisit is the one place visit responses are unwrapped. It accepts
// {"visit": {...}}, a bare visit object, or an empty body (nil, nil).
func decodeVisit(body []byte) (*visit.Visit, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var envelope struct {
		Visit *visit.Visit `json:"visit"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if envelope.Visit != nil {
		return envelope.Visit, nil
	}

	var v visit.Visit
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if v.ID == "" {
		return nil, nil
	}
	return &v, nil
}

// decodeVisits accepts {"visits": [...]} or a bare array.
func decodeVisits(body []byte) ([]*visit.Visit, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []*visit.Visit{}, nil
	}

	visits := []*visit.Visit{}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &visits); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		return visits, nil
	}

	var envelope struct {
		Visits []*visit.Visit `json:"visits"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if envelope.Visits != nil {
		visits = envelope.Visits
	}
	return visits, nil
}
