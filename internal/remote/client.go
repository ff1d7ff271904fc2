// Package remote talks to the content backend's list API.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pders01/folio/internal/debuglog"
	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/validation"
)

const (
	userAgent      = "folio/1.0 (+github.com/pders01/folio)"
	defaultTimeout = 15 * time.Second

	ArticlesCollection = "articles_stats"
	ChaptersCollection = "chapters_stats"
	KeywordsCollection = "key_words"

	maxErrorBody = 64 << 10
)

// Collection maps a browse kind to its backend collection.
func Collection(kind query.Kind) (string, error) {
	switch kind {
	case query.Articles:
		return ArticlesCollection, nil
	case query.Chapters:
		return ChaptersCollection, nil
	default:
		return "", &query.ValidationError{Field: "kind", Value: string(kind), Reason: "no collection"}
	}
}

type Client struct {
	baseURL string
	client  *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// New validates baseURL and returns a client for it. Local addresses are
// allowed since the backend usually runs next to the client.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := validation.NewPermissiveURLValidator().ValidateBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}
	c := &Client{
		baseURL: base,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// List fetches one page of a collection, leaving items undecoded.
func (c *Client) List(ctx context.Context, collection string, opts query.Options) (*query.Page[json.RawMessage], error) {
	op := "list " + collection
	if err := opts.Validate(); err != nil {
		return nil, &Error{Op: op, Class: ErrValidation, Message: err.Error(), Err: err}
	}
	endpoint := c.baseURL + "/api/collections/" + url.PathEscape(collection) + "/records?" + opts.Params().Encode()

	var page query.Page[json.RawMessage]
	if err := c.get(ctx, op, endpoint, &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []json.RawMessage{}
	}
	return &page, nil
}

// View fetches a single record.
func (c *Client) View(ctx context.Context, collection, id string) (json.RawMessage, error) {
	op := "view " + collection
	endpoint := c.baseURL + "/api/collections/" + url.PathEscape(collection) + "/records/" + url.PathEscape(id)
	var raw json.RawMessage
	if err := c.get(ctx, op, endpoint, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Health checks that the backend answers.
func (c *Client) Health(ctx context.Context) error {
	var body map[string]any
	return c.get(ctx, "health", c.baseURL+"/api/health", &body)
}

// SimilarKeywords returns up to ten stored keywords containing fragment,
// sorted by word.
func (c *Client) SimilarKeywords(ctx context.Context, fragment string) ([]string, error) {
	opts := query.Options{
		SortField:     "word",
		SortDirection: query.Asc,
		Filter:        query.Contains("word", fragment),
		Page:          1,
		PageSize:      10,
	}
	page, err := c.List(ctx, KeywordsCollection, opts)
	if err != nil {
		return nil, err
	}
	words := make([]string, 0, len(page.Items))
	for _, raw := range page.Items {
		var k struct {
			Word string `json:"word"`
		}
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, &Error{Op: "keyword lookup", Class: ErrNetwork, Message: "malformed record", Err: err}
		}
		words = append(words, k.Word)
	}
	return words, nil
}

func (c *Client) get(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &Error{Op: op, Class: ErrValidation, Message: "creating request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	debuglog.Debugf("GET %s", endpoint)
	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Op: op, Class: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return &Error{Op: op, Class: ErrNetwork, Status: resp.StatusCode, Message: "decoding response", Err: err}
	}
	return nil
}

func decodeError(op string, resp *http.Response) error {
	e := &Error{Op: op, Class: classify(resp.StatusCode), Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		e.Message = apiErr.Message
		e.Data = apiErr.Data
	} else {
		e.Message = http.StatusText(resp.StatusCode)
	}
	debuglog.Warnf("%s failed: %d %s", op, resp.StatusCode, e.Message)
	return e
}
