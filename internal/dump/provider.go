// Package dump fetches the three-part textual export (summary, tree,
// content) of a repository from a gitingest-compatible service.
package dump

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Dump is one repository export.
type Dump struct {
	Summary string `json:"summary"`
	Tree    string `json:"tree"`
	Content string `json:"content"`
}

// Provider produces dumps for repository URLs.
type Provider interface {
	Fetch(ctx context.Context, repoURL string) (*Dump, error)
}

// HTTPProvider talks to a dump service exposing POST /api/ingest.
type HTTPProvider struct {
	baseURL string
	http    *http.Client
}

// NewHTTPProvider builds a provider for the service at baseURL.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		http: &http.Client{
			// Exports of large repositories take a while to produce.
			Timeout: 5 * time.Minute,
		},
	}
}

// Fetch requests the export of one repository.
func (p *HTTPProvider) Fetch(ctx context.Context, repoURL string) (*Dump, error) {
	body, _ := json.Marshal(map[string]string{"url": repoURL})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/ingest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching dump for %s: %w", repoURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("dump service returned " + resp.Status)
	}

	var d Dump
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding dump for %s: %w", repoURL, err)
	}
	return &d, nil
}
