package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/huangang/cipulse/internal/config"
)

const defaultPerPage = 50

// ErrMissingRepoConfig is returned before any network call when the client
// has no repository identity to fetch runs for.
var ErrMissingRepoConfig = errors.New("github owner and repo must be configured")

// SourceError is a non-success response from the GitHub API.
type SourceError struct {
	StatusCode int
	Body       string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("github api error %d: %s", e.StatusCode, e.Body)
}

// WorkflowRun mirrors one entry of the GitHub Actions workflow_runs payload.
// Conclusion is empty while the run has not reached a terminal state.
type WorkflowRun struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Conclusion   string    `json:"conclusion"`
	Event        string    `json:"event"`
	HeadBranch   string    `json:"head_branch"`
	HeadSHA      string    `json:"head_sha"`
	Actor        Actor     `json:"actor"`
	HTMLURL      string    `json:"html_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	RunStartedAt time.Time `json:"run_started_at"`
}

type Actor struct {
	Login string `json:"login"`
}

type runsResponse struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

// RunsFilter narrows a workflow runs listing.
type RunsFilter struct {
	Branch  string
	Event   string
	PerPage int
}

// Client fetches workflow runs from the GitHub Actions API.
type Client struct {
	cfg        *config.GitHubConfig
	httpClient *http.Client
}

func NewClient(cfg *config.GitHubConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// FetchRuns returns a page of recent workflow runs in upstream order, which
// the API documents as newest first. The caller relies on that ordering for
// "last run" semantics; the client never re-sorts.
func (c *Client) FetchRuns(ctx context.Context, filter RunsFilter) ([]WorkflowRun, error) {
	if c.cfg.Owner == "" || c.cfg.Repo == "" {
		return nil, ErrMissingRepoConfig
	}

	baseURL := c.cfg.APIBaseURL
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))
	if filter.Branch != "" {
		params.Set("branch", filter.Branch)
	}
	if filter.Event != "" {
		params.Set("event", filter.Event)
	}

	apiURL := fmt.Sprintf("%s/repos/%s/%s/actions/runs?%s", baseURL, c.cfg.Owner, c.cfg.Repo, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "cipulse")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch workflow runs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &SourceError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload runsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode workflow runs: %w", err)
	}

	return payload.WorkflowRuns, nil
}
