package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const (
	FakeUsername = "editor"
	FakePassword = "abcd efgh ijkl mnop"
)

// FakeMedia is one item in the fake media library.
type FakeMedia struct {
	ID        int64
	Name      string
	Size      int64
	SourceURL string
	MIME      string
	// HideSize drops media_details.filesize from responses.
	HideSize bool
}

// FakePost is one post held by the fake.
type FakePost struct {
	ID             int64
	Payload        map[string]any
	Link           string
	IdempotencyKey string
}

// FakeRequest records a request the fake served.
type FakeRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
}

// FakeWordPress is an in-memory WordPress REST backend for the media and
// posts endpoints.
type FakeWordPress struct {
	Server *httptest.Server
	Prefix string

	mu       sync.Mutex
	nextID   int64
	media    map[int64]*FakeMedia
	posts    map[int64]*FakePost
	requests []FakeRequest

	// Status overrides, keyed by "METHOD route" such as "GET media" or
	// "POST posts". A zero value keeps the normal behaviour.
	statusOverride map[string]int
}

// NewFakeWordPress starts a fake mounted under prefix (for example
// "/wp-json/wp/v2", or "" for the server root). It is closed on cleanup.
func NewFakeWordPress(t testing.TB, prefix string) *FakeWordPress {
	t.Helper()
	fake := &FakeWordPress{
		Prefix:         strings.TrimRight(prefix, "/"),
		nextID:         100,
		media:          map[int64]*FakeMedia{},
		posts:          map[int64]*FakePost{},
		statusOverride: map[string]int{},
	}
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(fake.Server.Close)
	return fake
}

// BaseURL is the REST base clients should be configured with.
func (f *FakeWordPress) BaseURL() string {
	return f.Server.URL + f.Prefix
}

// FailWith makes every request matching "METHOD route" answer status.
func (f *FakeWordPress) FailWith(key string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusOverride[key] = status
}

// AddMedia seeds the media library and returns the stored item.
func (f *FakeWordPress) AddMedia(name string, size int64) *FakeMedia {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addMediaLocked(name, size, mime.TypeByExtension(path.Ext(name)))
}

// AddPost seeds a post with a fixed id.
func (f *FakeWordPress) AddPost(id int64, slug string) *FakePost {
	f.mu.Lock()
	defer f.mu.Unlock()
	post := &FakePost{ID: id, Payload: map[string]any{"slug": slug}, Link: f.postLink(slug)}
	f.posts[id] = post
	return post
}

// Media returns the media item stored under id.
func (f *FakeWordPress) Media(id int64) (FakeMedia, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.media[id]
	if !ok {
		return FakeMedia{}, false
	}
	return *item, true
}

// MediaCount reports the size of the media library.
func (f *FakeWordPress) MediaCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.media)
}

// Post returns the post stored under id.
func (f *FakeWordPress) Post(id int64) (FakePost, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return FakePost{}, false
	}
	return *post, true
}

// PostCount reports how many posts exist.
func (f *FakeWordPress) PostCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

// Requests returns a copy of the request log.
func (f *FakeWordPress) Requests() []FakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeRequest(nil), f.requests...)
}

// Count reports how many requests matched method and route, where route is
// "media", "media/:id", "posts" or "posts/:id".
func (f *FakeWordPress) Count(method, route string) int {
	count := 0
	for _, req := range f.Requests() {
		if req.Method == method && routeOf(strings.TrimPrefix(req.Path, f.Prefix)) == route {
			count++
		}
	}
	return count
}

// ResetRequests clears the request log.
func (f *FakeWordPress) ResetRequests() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}

func (f *FakeWordPress) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, FakeRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
	})

	user, pass, ok := r.BasicAuth()
	if !ok || user != FakeUsername || pass != FakePassword {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": "rest_not_logged_in", "message": "You are not currently logged in."})
		return
	}

	if !strings.HasPrefix(r.URL.Path, f.Prefix+"/") {
		http.NotFound(w, r)
		return
	}
	rel := strings.TrimPrefix(r.URL.Path, f.Prefix)
	route := routeOf(rel)

	if status := f.statusOverride[r.Method+" "+route]; status != 0 {
		writeJSON(w, status, map[string]any{"code": "fake_failure", "message": "forced failure"})
		return
	}

	switch {
	case r.Method == http.MethodGet && route == "media":
		f.searchMedia(w, r)
	case r.Method == http.MethodPost && route == "media":
		f.uploadMedia(w, r)
	case r.Method == http.MethodDelete && route == "media/:id":
		f.deleteMedia(w, r, idOf(rel))
	case r.Method == http.MethodPost && route == "posts":
		f.createPost(w, r)
	case r.Method == http.MethodPut && route == "posts/:id":
		f.updatePost(w, r, idOf(rel))
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"code": "rest_no_route", "message": "No route was found"})
	}
}

func (f *FakeWordPress) searchMedia(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("search")
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage <= 0 {
		perPage = 10
	}

	ids := make([]int64, 0, len(f.media))
	for id := range f.media {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	results := []map[string]any{}
	for _, id := range ids {
		item := f.media[id]
		if !strings.Contains(item.Name, term) {
			continue
		}
		results = append(results, mediaJSON(item))
		if len(results) == perPage {
			break
		}
	}
	writeJSON(w, http.StatusOK, results)
}

func (f *FakeWordPress) uploadMedia(w http.ResponseWriter, r *http.Request) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Disposition"))
	name := params["filename"]
	if err != nil || name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": "rest_upload_no_content_disposition", "message": "missing filename"})
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": "rest_upload_no_data", "message": "no data supplied"})
		return
	}
	item := f.addMediaLocked(name, int64(len(data)), r.Header.Get("Content-Type"))
	writeJSON(w, http.StatusCreated, mediaJSON(item))
}

func (f *FakeWordPress) deleteMedia(w http.ResponseWriter, r *http.Request, id int64) {
	if r.URL.Query().Get("force") != "true" {
		writeJSON(w, http.StatusNotImplemented, map[string]any{"code": "rest_trash_not_supported", "message": "force required"})
		return
	}
	item, ok := f.media[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"code": "rest_post_invalid_id", "message": "Invalid post ID."})
		return
	}
	delete(f.media, id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "previous": mediaJSON(item)})
}

func (f *FakeWordPress) createPost(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	f.nextID++
	slug, _ := payload["slug"].(string)
	post := &FakePost{
		ID:             f.nextID,
		Payload:        payload,
		Link:           f.postLink(slug),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	f.posts[post.ID] = post
	writeJSON(w, http.StatusCreated, map[string]any{"id": post.ID, "link": post.Link})
}

func (f *FakeWordPress) updatePost(w http.ResponseWriter, r *http.Request, id int64) {
	post, exists := f.posts[id]
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]any{"code": "rest_post_invalid_id", "message": "Invalid post ID."})
		return
	}
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	post.Payload = payload
	if slug, _ := payload["slug"].(string); slug != "" {
		post.Link = f.postLink(slug)
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": post.ID, "link": post.Link})
}

func (f *FakeWordPress) addMediaLocked(name string, size int64, contentType string) *FakeMedia {
	f.nextID++
	item := &FakeMedia{
		ID:        f.nextID,
		Name:      name,
		Size:      size,
		SourceURL: fmt.Sprintf("%s/wp-content/uploads/%s", f.Server.URL, name),
		MIME:      contentType,
	}
	f.media[item.ID] = item
	return item
}

func (f *FakeWordPress) postLink(slug string) string {
	return fmt.Sprintf("%s/%s/", f.BaseURL(), slug)
}

func mediaJSON(item *FakeMedia) map[string]any {
	details := map[string]any{}
	if !item.HideSize {
		details["filesize"] = item.Size
	}
	return map[string]any{
		"id":            item.ID,
		"source_url":    item.SourceURL,
		"mime_type":     item.MIME,
		"media_details": details,
	}
}

func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var payload map[string]any
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": "rest_invalid_json", "message": err.Error()})
		return nil, false
	}
	return payload, true
}

func routeOf(rel string) string {
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	switch {
	case len(parts) == 1:
		return parts[0]
	case len(parts) == 2:
		return parts[0] + "/:id"
	default:
		return rel
	}
}

func idOf(rel string) int64 {
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	id, _ := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
