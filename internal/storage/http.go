package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
)

// Headers identifying the project to the hosted backend
const (
	HeaderProjectID = "X-Project-ID"
	HeaderPublicKey = "X-Public-Key"
)

// maxResponseSize caps response bodies read from the hosted backend
const maxResponseSize = 10 << 20

// HTTPBackend talks to a hosted backend data provider over JSON/HTTP.
//
//	POST   {base}/records/{entity}/fetch   Query          -> FetchResponse
//	GET    {base}/records/{entity}/{id}                   -> GetResponse
//	POST   {base}/records/{entity}         RecordsParams  -> MutateResponse
//	PUT    {base}/records/{entity}         RecordsParams  -> MutateResponse
//	DELETE {base}/records/{entity}         DeleteParams   -> DeleteResponse
type HTTPBackend struct {
	baseURL   string
	projectID string
	publicKey string
	client    *http.Client
}

// NewHTTPBackend creates a client for the hosted backend at baseURL
func NewHTTPBackend(baseURL, projectID, publicKey string) (*HTTPBackend, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}
	if projectID == "" {
		return nil, fmt.Errorf("backend project ID is required")
	}

	return &HTTPBackend{
		baseURL:   strings.TrimRight(baseURL, "/"),
		projectID: projectID,
		publicKey: publicKey,
		client:    cleanhttp.DefaultPooledClient(),
	}, nil
}

func (c *HTTPBackend) endpoint(entity string, parts ...string) string {
	segments := append([]string{c.baseURL, "records", url.PathEscape(entity)}, parts...)
	return strings.Join(segments, "/")
}

// do sends body as JSON and decodes the JSON response into out
func (c *HTTPBackend) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderProjectID, c.projectID)
	if c.publicKey != "" {
		req.Header.Set(HeaderPublicKey, c.publicKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// The provider reports failures in the body; only give up on bodies
	// that cannot be decoded at all.
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: unexpected response (status %d): %w", method, endpoint, resp.StatusCode, err)
	}
	return nil
}

// FetchRecords lists records of an entity
func (c *HTTPBackend) FetchRecords(ctx context.Context, entity string, query Query) (*FetchResponse, error) {
	var resp FetchResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint(entity, "fetch"), query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRecordByID retrieves one record
func (c *HTTPBackend) GetRecordByID(ctx context.Context, entity string, id string) (*GetResponse, error) {
	var resp GetResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint(entity, url.PathEscape(id)), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateRecord stores new records
func (c *HTTPBackend) CreateRecord(ctx context.Context, entity string, params RecordsParams) (*MutateResponse, error) {
	var resp MutateResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint(entity), params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateRecord replaces fields of existing records
func (c *HTTPBackend) UpdateRecord(ctx context.Context, entity string, params RecordsParams) (*MutateResponse, error) {
	var resp MutateResponse
	if err := c.do(ctx, http.MethodPut, c.endpoint(entity), params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteRecord deletes records
func (c *HTTPBackend) DeleteRecord(ctx context.Context, entity string, params DeleteParams) (*DeleteResponse, error) {
	var resp DeleteResponse
	if err := c.do(ctx, http.MethodDelete, c.endpoint(entity), params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
