package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	urlkit "github.com/goliatone/go-urlkit"

	"github.com/goliatone/go-wpsync/internal/identity"
	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

const (
	routeGroup     = "wordpress"
	routeMedia     = "media"
	routeMediaItem = "media_item"
	routePosts     = "posts"
	routePost      = "post"

	// errorBodyLimit bounds the response text kept on an HTTPError.
	errorBodyLimit = 200
)

// Credentials authenticate against the REST API with an application password.
type Credentials struct {
	BaseURL             string
	Username            string
	ApplicationPassword string
}

// HTTPError reports a response whose status was not the one expected.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	if e.Body != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// MediaRecord mirrors the fields of a media item consulted during sync.
type MediaRecord struct {
	ID        int64
	SourceURL string
	FileSize  *int64
}

// PostRecord is the identifier and public link of a synced post.
type PostRecord struct {
	ID   int64
	Link string
}

// PostPayload is the JSON body of a post create or update.
type PostPayload struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Excerpt       string `json:"excerpt"`
	Status        string `json:"status"`
	Slug          string `json:"slug"`
	Categories    []any  `json:"categories,omitempty"`
	FeaturedMedia int64  `json:"featured_media,omitempty"`
}

type mediaItem struct {
	ID           int64  `json:"id"`
	SourceURL    string `json:"source_url"`
	MediaDetails *struct {
		FileSize *int64 `json:"filesize"`
	} `json:"media_details"`
}

func (m mediaItem) record() MediaRecord {
	rec := MediaRecord{ID: m.ID, SourceURL: m.SourceURL}
	if m.MediaDetails != nil {
		rec.FileSize = m.MediaDetails.FileSize
	}
	return rec
}

type postItem struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the transport. Timeouts are the transport's concern.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClientLogger sets the logger used for request diagnostics.
func WithClientLogger(logger interfaces.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logging.Or(logger)
	}
}

// Client talks to the WordPress REST API under a base URL such as
// https://example.com/wp-json/wp/v2.
type Client struct {
	httpClient *http.Client
	creds      Credentials
	routes     *urlkit.Group
	logger     interfaces.Logger
}

// NewClient validates the base URL and registers the REST routes.
func NewClient(creds Credentials, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(creds.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("wordpress: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("wordpress: base url %q must be absolute", creds.BaseURL)
	}

	prefix := strings.TrimRight(base.Path, "/")
	manager := urlkit.NewRouteManager(&urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    routeGroup,
				BaseURL: base.Scheme + "://" + base.Host,
				Paths: map[string]string{
					routeMedia:     prefix + "/media",
					routeMediaItem: prefix + "/media/:id",
					routePosts:     prefix + "/posts",
					routePost:      prefix + "/posts/:id",
				},
			},
		},
	})
	group, err := lookupGroup(manager, routeGroup)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: http.DefaultClient,
		creds:      creds,
		routes:     group,
		logger:     logging.NoOp(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured REST base.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.creds.BaseURL, "/")
}

// SearchMedia runs GET /media?search=<term>&per_page=<perPage>. Any status
// other than 200 is an *HTTPError.
func (c *Client) SearchMedia(ctx context.Context, term string, perPage int) ([]MediaRecord, error) {
	endpoint, err := c.buildURL(routeMedia, nil, map[string]string{
		"search":   term,
		"per_page": fmt.Sprint(perPage),
	})
	if err != nil {
		return nil, err
	}

	var items []mediaItem
	if err := c.do(ctx, http.MethodGet, endpoint, nil, nil, http.StatusOK, &items); err != nil {
		return nil, err
	}
	records := make([]MediaRecord, 0, len(items))
	for _, item := range items {
		records = append(records, item.record())
	}
	return records, nil
}

// UploadMedia streams body to POST /media under filename. Only 201 counts as
// success.
func (c *Client) UploadMedia(ctx context.Context, filename, contentType string, body io.Reader) (*MediaRecord, error) {
	endpoint, err := c.buildURL(routeMedia, nil, nil)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
		"Content-Type":        contentType,
	}
	var item mediaItem
	if err := c.do(ctx, http.MethodPost, endpoint, headers, body, http.StatusCreated, &item); err != nil {
		return nil, err
	}
	rec := item.record()
	return &rec, nil
}

// DeleteMedia issues DELETE /media/{id}?force=true. Any 2xx is accepted.
func (c *Client) DeleteMedia(ctx context.Context, id int64) error {
	endpoint, err := c.buildURL(routeMediaItem, map[string]any{"id": fmt.Sprint(id)}, map[string]string{"force": "true"})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil, 0, nil)
}

// CreatePost issues POST /posts and expects 201. A non-empty idempotencyKey
// is sent as the Idempotency-Key header.
func (c *Client) CreatePost(ctx context.Context, payload PostPayload, idempotencyKey string) (*PostRecord, error) {
	endpoint, err := c.buildURL(routePosts, nil, nil)
	if err != nil {
		return nil, err
	}
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	return c.sendPost(ctx, http.MethodPost, endpoint, headers, payload, http.StatusCreated)
}

// UpdatePost issues PUT /posts/{id} and expects 200.
func (c *Client) UpdatePost(ctx context.Context, id string, payload PostPayload) (*PostRecord, error) {
	endpoint, err := c.buildURL(routePost, map[string]any{"id": id}, nil)
	if err != nil {
		return nil, err
	}
	return c.sendPost(ctx, http.MethodPut, endpoint, nil, payload, http.StatusOK)
}

func (c *Client) sendPost(ctx context.Context, method, endpoint string, headers map[string]string, payload PostPayload, expected int) (*PostRecord, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wordpress: encode post: %w", err)
	}
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"

	var item postItem
	if err := c.do(ctx, method, endpoint, headers, bytes.NewReader(encoded), expected, &item); err != nil {
		return nil, err
	}
	return &PostRecord{ID: item.ID, Link: item.Link}, nil
}

// do sends one request. expected pins the success status; 0 accepts any 2xx.
func (c *Client) do(ctx context.Context, method, endpoint string, headers map[string]string, body io.Reader, expected int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.creds.Username, c.creds.ApplicationPassword)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-Id", identity.CorrelationID())
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	payload, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}

	c.logger.Debug("wordpress.request", "method", method, "url", endpoint, "status", resp.StatusCode)

	ok := resp.StatusCode == expected
	if expected == 0 {
		ok = resp.StatusCode >= 200 && resp.StatusCode <= 299
	}
	if !ok {
		var errPayload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(payload, &errPayload)
		return &HTTPError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Code:       errPayload.Code,
			Message:    errPayload.Message,
			Body:       truncate(string(payload), errorBodyLimit),
		}
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("wordpress: decode %s %s: %w", method, endpoint, err)
	}
	return nil
}

func (c *Client) buildURL(route string, params map[string]any, query map[string]string) (string, error) {
	builder, err := safeBuilder(c.routes, route)
	if err != nil {
		return "", err
	}
	for key, value := range params {
		builder.WithParam(key, value)
	}
	for key, value := range query {
		builder.WithQuery(key, value)
	}
	return builder.Build()
}

func safeBuilder(group *urlkit.Group, route string) (builder *urlkit.Builder, err error) {
	if group == nil {
		return nil, errors.New("wordpress: route group is nil")
	}
	defer func() {
		if rec := recover(); rec != nil {
			builder = nil
			err = fmt.Errorf("wordpress: route %q not registered: %v", route, rec)
		}
	}()
	return group.Builder(route), nil
}

func lookupGroup(manager *urlkit.RouteManager, name string) (group *urlkit.Group, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			group = nil
			err = fmt.Errorf("wordpress: route group %q not found", name)
		}
	}()
	return manager.Group(name), nil
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
