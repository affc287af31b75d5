// Package gitmeta parses repository URLs and fetches repository metadata
// from the GitHub REST API.
package gitmeta

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
)

// ErrInvalidRepoURL indicates a URL that does not name an owner/name pair.
var ErrInvalidRepoURL = errors.New("invalid repository URL")

// ParseRepoURL extracts (owner, name) from a repository URL such as
// https://github.com/owner/name, tolerating a trailing slash.
func ParseRepoURL(repoURL string) (string, string, error) {
	u, err := url.Parse(strings.TrimSuffix(repoURL, "/"))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidRepoURL, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRepoURL, repoURL)
	}
	owner, name := parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || name == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRepoURL, repoURL)
	}
	return owner, name, nil
}

// RepoInfo is the subset of repository metadata the worker logs and a
// future admission policy can act on.
type RepoInfo struct {
	Owner         string
	Name          string
	DefaultBranch string
	SizeKB        int
	Private       bool
	Description   string
}

// Client fetches repository metadata.
type Client struct {
	gh *github.Client
}

// NewClient builds a GitHub API client; token may be empty for anonymous,
// rate-limited access.
func NewClient(token string) *Client {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	return &Client{gh: gh}
}

// RepoInfo fetches metadata for one repository.
func (c *Client) RepoInfo(ctx context.Context, owner, name string) (*RepoInfo, error) {
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("fetching repo %s/%s: %w", owner, name, err)
	}
	return &RepoInfo{
		Owner:         owner,
		Name:          name,
		DefaultBranch: repo.GetDefaultBranch(),
		SizeKB:        repo.GetSize(),
		Private:       repo.GetPrivate(),
		Description:   repo.GetDescription(),
	}, nil
}
