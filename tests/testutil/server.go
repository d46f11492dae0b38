package testutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// TokenHeader is the header the fake server reads session tokens from.
const TokenHeader = "rest-dspace-token"

// HandlePrefix is the handle prefix assigned to created items.
const HandlePrefix = "123456789"

// DSpaceServer is an in-memory stand-in for the DSpace REST API, served under /rest.
type DSpaceServer struct {
	*httptest.Server

	mu          sync.Mutex
	users       map[string]string
	tokens      map[string]string
	communities []*Community
	collections []*Collection
	items       []*Item
	bitstreams  []*Bitstream
	failures    map[string]int
	requests    []RecordedRequest
	gate        *gate
	nextHandle  int
}

// Community, Collection, Item and Bitstream are the server side records.
type Community struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CommunityID string `json:"-"`
}

type Item struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Handle       string          `json:"handle"`
	CollectionID string          `json:"-"`
	Metadata     []MetadataEntry `json:"-"`
}

type Bitstream struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SizeBytes     int64  `json:"sizeBytes"`
	MimeType      string `json:"mimeType"`
	ItemID        string `json:"-"`
	FormFileName  string `json:"-"`
	Content       []byte `json:"-"`
	ContentLength int64  `json:"-"`
	MD5           string `json:"-"`
}

// MetadataEntry mirrors the REST API's metadata entry.
type MetadataEntry struct {
	Key      string  `json:"key"`
	Value    string  `json:"value"`
	Language *string `json:"language"`
}

// RecordedRequest is what the server saw of a request.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
}

// maxStoredContent caps how much of an uploaded bitstream is kept for inspection.
const maxStoredContent = 1 << 20

// SetupDSpaceServer starts a fake DSpace REST API with no users and no content.
func SetupDSpaceServer() *DSpaceServer {
	s := &DSpaceServer{
		users:    make(map[string]string),
		tokens:   make(map[string]string),
		failures: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Route("/rest", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Get("/status", s.status)
		r.Post("/logout", s.logout)

		r.Get("/communities", s.listCommunities)
		r.With(s.requireAuth).Post("/communities", s.createCommunity)
		r.Get("/communities/{id}/collections", s.listCollections)
		r.With(s.requireAuth).Post("/communities/{id}/collections", s.createCollection)

		r.With(s.requireAuth).Post("/collections/{id}/items", s.createItem)

		r.Get("/items/{id}", s.getItem)
		r.Get("/items/{id}/metadata", s.getMetadata)
		r.With(s.requireAuth).Put("/items/{id}/metadata", s.replaceMetadata)
		r.With(s.requireAuth).Post("/items/{id}/bitstreams", s.addBitstream)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// AddUser registers credentials accepted by /login.
func (s *DSpaceServer) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
}

// Fail makes every request matching method and path (relative to /rest) answer status.
// A status of 0 removes the failure.
func (s *DSpaceServer) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, method+" "+path)
		return
	}
	s.failures[method+" "+path] = status
}

// HoldCollectionListings makes the next n collection listings wait for each other
// before answering, so n concurrent lookups all observe the same state. Waiting gives
// up after timeout.
func (s *DSpaceServer) HoldCollectionListings(n int, timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = &gate{want: n, release: make(chan struct{}), timeout: timeout}
}

// SeedCommunity stores a community directly, bypassing the API.
func (s *DSpaceServer) SeedCommunity(name string) Community {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &Community{ID: uuid.NewString(), Name: name}
	s.communities = append(s.communities, c)
	return *c
}

// SeedCollection stores a collection directly, bypassing the API.
func (s *DSpaceServer) SeedCollection(communityID, name string) Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &Collection{ID: uuid.NewString(), Name: name, CommunityID: communityID}
	s.collections = append(s.collections, c)
	return *c
}

// Communities returns all communities in creation order.
func (s *DSpaceServer) Communities() []Community {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Community, 0, len(s.communities))
	for _, c := range s.communities {
		out = append(out, *c)
	}
	return out
}

// Collections returns the collections of a community in creation order.
func (s *DSpaceServer) Collections(communityID string) []Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Collection
	for _, c := range s.collections {
		if c.CommunityID == communityID {
			out = append(out, *c)
		}
	}
	return out
}

// ItemMetadata returns a copy of an item's metadata, nil for unknown items.
func (s *DSpaceServer) ItemMetadata(itemID string) []MetadataEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.findItem(itemID)
	if item == nil {
		return nil
	}
	return append([]MetadataEntry(nil), item.Metadata...)
}

// Items returns the items of a collection in creation order.
func (s *DSpaceServer) Items(collectionID string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Item
	for _, it := range s.items {
		if it.CollectionID == collectionID {
			copied := *it
			copied.Metadata = append([]MetadataEntry(nil), it.Metadata...)
			out = append(out, copied)
		}
	}
	return out
}

// Bitstreams returns the bitstreams uploaded to an item.
func (s *DSpaceServer) Bitstreams(itemID string) []Bitstream {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Bitstream
	for _, b := range s.bitstreams {
		if b.ItemID == itemID {
			out = append(out, *b)
		}
	}
	return out
}

// Requests returns every request seen so far.
func (s *DSpaceServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// Middleware

func (s *DSpaceServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *DSpaceServer) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[r.Method+" "+strings.TrimPrefix(r.URL.Path, "/rest")]
		s.mu.Unlock()
		if ok {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *DSpaceServer) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessionUser(r); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *DSpaceServer) sessionUser(r *http.Request) (string, bool) {
	token := r.Header.Get(TokenHeader)
	if token == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.tokens[token]
	return email, ok
}

// Session handlers

func (s *DSpaceServer) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := render.DecodeJSON(r.Body, &creds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	password, ok := s.users[creds.Email]
	if !ok || password != creds.Password {
		s.mu.Unlock()
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	token := uuid.NewString()
	s.tokens[token] = creds.Email
	s.mu.Unlock()

	render.PlainText(w, r, token)
}

func (s *DSpaceServer) status(w http.ResponseWriter, r *http.Request) {
	email, ok := s.sessionUser(r)
	resp := map[string]interface{}{
		"okay":          true,
		"authenticated": ok,
		"apiVersion":    "6",
		"sourceVersion": "6.3",
	}
	if ok {
		resp["email"] = email
		resp["fullname"] = "DSpace User"
		resp["token"] = r.Header.Get(TokenHeader)
	}
	render.JSON(w, r, resp)
}

func (s *DSpaceServer) logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(TokenHeader)
	s.mu.Lock()
	_, ok := s.tokens[token]
	delete(s.tokens, token)
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Community and collection handlers

func (s *DSpaceServer) listCommunities(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.Communities())
}

func (s *DSpaceServer) createCommunity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	render.JSON(w, r, s.SeedCommunity(req.Name))
}

func (s *DSpaceServer) listCollections(w http.ResponseWriter, r *http.Request) {
	communityID := chi.URLParam(r, "id")
	if !s.communityExists(communityID) {
		http.NotFound(w, r)
		return
	}

	collections := s.Collections(communityID)
	s.waitAtGate()
	if collections == nil {
		collections = []Collection{}
	}
	render.JSON(w, r, collections)
}

func (s *DSpaceServer) createCollection(w http.ResponseWriter, r *http.Request) {
	communityID := chi.URLParam(r, "id")
	if !s.communityExists(communityID) {
		http.NotFound(w, r)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	render.JSON(w, r, s.SeedCollection(communityID, req.Name))
}

func (s *DSpaceServer) communityExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.communities {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Item handlers

func (s *DSpaceServer) createItem(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "id")

	var req struct {
		Metadata []MetadataEntry `json:"metadata"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	found := false
	for _, c := range s.collections {
		if c.ID == collectionID {
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}

	s.nextHandle++
	handle := fmt.Sprintf("%s/%d", HandlePrefix, s.nextHandle)
	item := &Item{
		ID:           uuid.NewString(),
		Handle:       handle,
		CollectionID: collectionID,
		Metadata:     append([]MetadataEntry(nil), req.Metadata...),
	}
	for _, e := range req.Metadata {
		if e.Key == "dc.title" {
			item.Name = e.Value
			break
		}
	}
	item.Metadata = append(item.Metadata, MetadataEntry{
		Key:   "dc.identifier.uri",
		Value: "http://hdl.handle.net/" + handle,
	})
	s.items = append(s.items, item)
	resp := *item
	s.mu.Unlock()

	render.JSON(w, r, resp)
}

func (s *DSpaceServer) getItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	item := s.findItem(chi.URLParam(r, "id"))
	var resp Item
	if item != nil {
		resp = *item
	}
	s.mu.Unlock()

	if item == nil {
		http.NotFound(w, r)
		return
	}
	render.JSON(w, r, resp)
}

func (s *DSpaceServer) getMetadata(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	item := s.findItem(chi.URLParam(r, "id"))
	metadata := []MetadataEntry{}
	if item != nil {
		metadata = append(metadata, item.Metadata...)
	}
	s.mu.Unlock()

	if item == nil {
		http.NotFound(w, r)
		return
	}
	render.JSON(w, r, metadata)
}

// replaceMetadata drops every existing value of each key present in the request and
// appends the supplied values, leaving other keys alone.
func (s *DSpaceServer) replaceMetadata(w http.ResponseWriter, r *http.Request) {
	var entries []MetadataEntry
	if err := render.DecodeJSON(r.Body, &entries); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.findItem(chi.URLParam(r, "id"))
	if item == nil {
		http.NotFound(w, r)
		return
	}

	replaced := make(map[string]bool)
	for _, e := range entries {
		replaced[e.Key] = true
	}
	kept := make([]MetadataEntry, 0, len(item.Metadata)+len(entries))
	for _, e := range item.Metadata {
		if !replaced[e.Key] {
			kept = append(kept, e)
		}
	}
	item.Metadata = append(kept, entries...)
	w.WriteHeader(http.StatusOK)
}

func (s *DSpaceServer) addBitstream(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	s.mu.Lock()
	item := s.findItem(itemID)
	s.mu.Unlock()
	if item == nil {
		http.NotFound(w, r)
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	bitstream := &Bitstream{
		ID:            uuid.NewString(),
		Name:          r.URL.Query().Get("name"),
		MimeType:      mimeTypeOf(r.URL.Query().Get("name")),
		ItemID:        itemID,
		ContentLength: r.ContentLength,
	}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if part.FormName() != "filename" {
			continue
		}

		hash := md5.New()
		limited := &capWriter{limit: maxStoredContent}
		n, err := io.Copy(io.MultiWriter(hash, limited), part)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		bitstream.FormFileName = part.FileName()
		bitstream.SizeBytes = n
		bitstream.Content = limited.buf
		bitstream.MD5 = hex.EncodeToString(hash.Sum(nil))
	}

	s.mu.Lock()
	s.bitstreams = append(s.bitstreams, bitstream)
	s.mu.Unlock()

	render.JSON(w, r, map[string]interface{}{
		"id":        bitstream.ID,
		"name":      bitstream.Name,
		"sizeBytes": bitstream.SizeBytes,
		"mimeType":  bitstream.MimeType,
		"checkSum": map[string]string{
			"value":             bitstream.MD5,
			"checkSumAlgorithm": "MD5",
		},
	})
}

func (s *DSpaceServer) findItem(id string) *Item {
	for _, it := range s.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (s *DSpaceServer) waitAtGate() {
	s.mu.Lock()
	g := s.gate
	s.mu.Unlock()
	if g != nil {
		g.wait()
	}
}

// gate releases its waiters once want of them have arrived.
type gate struct {
	mu      sync.Mutex
	want    int
	arrived int
	release chan struct{}
	timeout time.Duration
}

func (g *gate) wait() {
	g.mu.Lock()
	g.arrived++
	if g.arrived == g.want {
		close(g.release)
	}
	g.mu.Unlock()

	select {
	case <-g.release:
	case <-time.After(g.timeout):
	}
}

type capWriter struct {
	limit int
	buf   []byte
}

func (c *capWriter) Write(p []byte) (int, error) {
	if room := c.limit - len(c.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		c.buf = append(c.buf, p[:room]...)
	}
	return len(p), nil
}

func mimeTypeOf(name string) string {
	switch {
	case strings.HasSuffix(name, ".csv"):
		return "text/csv"
	case strings.HasSuffix(name, ".txt"):
		return "text/plain"
	case strings.HasSuffix(name, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(name, ".zip"):
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
