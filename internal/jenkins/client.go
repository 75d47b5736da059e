// Package jenkins implements the ci.Client capability surface against the
// Jenkins JSON remote-access API.
package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"buildtriage/internal/ci"
)

var _ ci.Client = (*Client)(nil)

// Client talks to one Jenkins controller over its JSON API.
type Client struct {
	baseURL    string
	username   string
	apiToken   string
	httpClient *http.Client
	logger     *slog.Logger
}

// New constructs a client for the controller at baseURL. Credentials are
// optional; when username is set every request carries HTTP basic auth with
// the API token as password.
func New(baseURL, username, apiToken string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("jenkins base URL not configured")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// LastCompletedBuild implements ci.Client. It returns (nil, nil) when the
// job exists but has never completed a build.
func (c *Client) LastCompletedBuild(ctx context.Context, job string) (*ci.BuildRef, error) {
	var info struct {
		LastCompletedBuild *struct {
			Number int    `json:"number"`
			URL    string `json:"url"`
		} `json:"lastCompletedBuild"`
	}
	if err := c.getJSON(ctx, c.endpoint("job", job, "api", "json"), &info); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("job %s: %w", job, ci.ErrJobNotFound)
		}
		return nil, fmt.Errorf("fetch job %s: %w", job, err)
	}
	if info.LastCompletedBuild == nil {
		return nil, nil
	}
	return &ci.BuildRef{
		Number: info.LastCompletedBuild.Number,
		URL:    info.LastCompletedBuild.URL,
	}, nil
}

// BuildInfo implements ci.Client.
func (c *Client) BuildInfo(ctx context.Context, job string, number int) (ci.Build, error) {
	var info struct {
		Number      int         `json:"number"`
		Result      string      `json:"result"`
		Timestamp   epochMillis `json:"timestamp"`
		URL         string      `json:"url"`
		DisplayName string      `json:"displayName"`
	}
	endpoint := c.endpoint("job", job, strconv.Itoa(number), "api", "json")
	if err := c.getJSON(ctx, endpoint, &info); err != nil {
		if isNotFound(err) {
			return ci.Build{}, fmt.Errorf("build %s #%d: %w", job, number, ci.ErrBuildNotFound)
		}
		return ci.Build{}, fmt.Errorf("fetch build %s #%d: %w", job, number, err)
	}
	return ci.Build{
		Job:         job,
		Number:      info.Number,
		Result:      ci.Result(info.Result),
		Timestamp:   info.Timestamp.Time(),
		URL:         info.URL,
		DisplayName: info.DisplayName,
	}, nil
}

// ConsoleText implements ci.Client.
func (c *Client) ConsoleText(ctx context.Context, job string, number int) (string, error) {
	endpoint := c.endpoint("job", job, strconv.Itoa(number), "consoleText")
	text, err := c.getText(ctx, endpoint)
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("console of %s #%d: %w", job, number, ci.ErrBuildNotFound)
		}
		return "", fmt.Errorf("fetch console of %s #%d: %w", job, number, err)
	}
	return text, nil
}

// ListJobs implements ci.Client.
func (c *Client) ListJobs(ctx context.Context) ([]ci.JobRef, error) {
	var index struct {
		Jobs []struct {
			Name  string `json:"name"`
			URL   string `json:"url"`
			Color string `json:"color"`
		} `json:"jobs"`
	}
	if err := c.getJSON(ctx, c.endpoint("api", "json"), &index); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs := make([]ci.JobRef, 0, len(index.Jobs))
	for _, j := range index.Jobs {
		jobs = append(jobs, ci.JobRef{Name: j.Name, URL: j.URL, Color: j.Color})
	}
	return jobs, nil
}

// endpoint joins path segments onto the base URL, escaping each segment so
// job names with spaces or slashes survive.
func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.apiToken)
	}
	c.logger.Debug("jenkins request", "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) getText(ctx context.Context, endpoint string) (string, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

// statusError carries a non-2xx response so callers can map 404s onto the
// ci sentinels.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string { return "jenkins returned " + e.status }

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// epochMillis decodes the Jenkins timestamp field, milliseconds since the
// Unix epoch.
type epochMillis int64

func (m *epochMillis) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*m = 0
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse epoch millis: %w", err)
	}
	*m = epochMillis(ms)
	return nil
}

// Time converts to a wall-clock timestamp.
func (m epochMillis) Time() time.Time { return time.UnixMilli(int64(m)) }
