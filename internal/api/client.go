package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/brimstone/logger"
)

var log = logger.New()

// DefaultBaseURL points at the hosted Solidtime instance; self-hosted
// deployments override it through configuration.
const DefaultBaseURL = "https://app.solidtime.io"

// maxAuthAttempts bounds the 401 refresh-and-retry loop. After it is spent
// the call fails with ErrAuthExpired and the token provider has been told to
// drop the session.
const maxAuthAttempts = 2

// TokenProvider supplies bearer tokens and refreshes them on demand.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	// Refresh discards the cached access token, obtains a fresh one, and
	// clears the session entirely when the refresh grant is rejected.
	Refresh(ctx context.Context) (string, error)
}

// Client talks to the Solidtime v1 API. Every method takes a context; the
// caller bounds it, typically at 3-5 seconds, so no surface blocks forever.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
}

func NewClient(baseURL string, tokens TokenProvider) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
		tokens:  tokens,
	}
}

// WithHTTPClient swaps the underlying transport, for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// do performs one authenticated request, retrying once through a token
// refresh when the server answers 401.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}

	for attempt := 1; ; attempt++ {
		log.Debug("api request",
			log.Field("method", method),
			log.Field("path", path),
			log.Field("attempt", attempt),
		)
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v1"+path, reader)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %s: %v", classifyTransport(err), method, path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if attempt >= maxAuthAttempts {
				return resp.StatusCode, fmt.Errorf("%w: %s %s", ErrAuthExpired, method, path)
			}
			token, err = c.tokens.Refresh(ctx)
			if err != nil {
				return resp.StatusCode, fmt.Errorf("%w: %v", ErrAuthExpired, err)
			}
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return resp.StatusCode, fmt.Errorf("%w: %s %s: status %d", ErrNetworkFailure, method, path, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			// 404 is meaningful to some callers, so it is reported via the
			// status code rather than an error sentinel.
			io.Copy(io.Discard, resp.Body)
			if resp.StatusCode == http.StatusNotFound {
				return resp.StatusCode, nil
			}
			return resp.StatusCode, fmt.Errorf("unexpected status %d for %s %s", resp.StatusCode, method, path)
		}
		if out != nil && resp.StatusCode != http.StatusNoContent {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
			}
		}
		return resp.StatusCode, nil
	}
}

// GetActiveEntry returns the currently running entry, or nil when nothing is
// being tracked. The server reports "nothing running" as 404; that is not an
// error here.
func (c *Client) GetActiveEntry(ctx context.Context) (*TimeEntry, error) {
	var resp TimeEntryResponse
	status, err := c.do(ctx, http.MethodGet, "/users/me/time-entries/active", nil, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &resp.Data, nil
}

func (c *Client) StartEntry(ctx context.Context, orgID, memberID string, projectID, taskID *string, description string) (*TimeEntry, error) {
	body := StartEntryRequest{
		MemberID:    memberID,
		ProjectID:   projectID,
		TaskID:      taskID,
		Start:       time.Now().UTC().Truncate(time.Second),
		Description: description,
		Tags:        []string{},
	}
	var resp TimeEntryResponse
	if _, err := c.do(ctx, http.MethodPost, "/organizations/"+orgID+"/time-entries", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) StopEntry(ctx context.Context, orgID, entryID, memberID string, start time.Time) (*TimeEntry, error) {
	end := time.Now().UTC().Truncate(time.Second)
	body := UpdateEntryRequest{
		MemberID: memberID,
		Start:    start.UTC().Truncate(time.Second),
		End:      &end,
		Tags:     []string{},
	}
	var resp TimeEntryResponse
	if _, err := c.do(ctx, http.MethodPut, "/organizations/"+orgID+"/time-entries/"+entryID, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) UpdateEntry(ctx context.Context, orgID string, entry TimeEntry, memberID string, tags []string) (*TimeEntry, error) {
	body := UpdateEntryRequest{
		MemberID:    memberID,
		ProjectID:   entry.ProjectID,
		TaskID:      entry.TaskID,
		Start:       entry.Start.UTC().Truncate(time.Second),
		End:         entry.End,
		Billable:    entry.Billable,
		Description: entry.Description,
		Tags:        tags,
	}
	if body.Tags == nil {
		body.Tags = []string{}
	}
	var resp TimeEntryResponse
	if _, err := c.do(ctx, http.MethodPut, "/organizations/"+orgID+"/time-entries/"+entry.ID, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) DeleteEntry(ctx context.Context, orgID, entryID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/organizations/"+orgID+"/time-entries/"+entryID, nil, nil)
	return err
}

func (c *Client) ListEntries(ctx context.Context, orgID string, start, end time.Time) ([]TimeEntry, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	var resp TimeEntriesResponse
	if _, err := c.do(ctx, http.MethodGet, "/organizations/"+orgID+"/time-entries?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ListProjects(ctx context.Context, orgID string) ([]Project, error) {
	var resp ProjectsResponse
	if _, err := c.do(ctx, http.MethodGet, "/organizations/"+orgID+"/projects", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ListTasks(ctx context.Context, orgID string) ([]Task, error) {
	var resp TasksResponse
	if _, err := c.do(ctx, http.MethodGet, "/organizations/"+orgID+"/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ListTags(ctx context.Context, orgID string) ([]Tag, error) {
	var resp TagsResponse
	if _, err := c.do(ctx, http.MethodGet, "/organizations/"+orgID+"/tags", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var resp UserResponse
	if _, err := c.do(ctx, http.MethodGet, "/users/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) GetMemberships(ctx context.Context) ([]Membership, error) {
	var resp MembershipsResponse
	if _, err := c.do(ctx, http.MethodGet, "/users/me/memberships", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
