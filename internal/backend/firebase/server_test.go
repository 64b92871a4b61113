package firebase

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/firestore/v1"
)

// fakeFirebase serves just enough of Identity Toolkit, Secure Token,
// Firestore and Firebase Storage for the client under test.
type fakeFirebase struct {
	srv *httptest.Server

	mu        sync.Mutex
	passwords map[string]string // email -> password
	uids      map[string]string // email -> uid
	emails    map[string]string // uid -> email
	docs      map[string]map[string]json.RawMessage
	blobs     map[string]fakeBlob
	patches   []fakePatch
	refreshes int
	queries   int
}

type fakeBlob struct {
	data        []byte
	contentType string
}

type fakePatch struct {
	name string
	mask []string
	body string
}

func newFakeFirebase(t *testing.T) *fakeFirebase {
	t.Helper()
	f := &fakeFirebase{
		passwords: make(map[string]string),
		uids:      make(map[string]string),
		emails:    make(map[string]string),
		docs:      make(map[string]map[string]json.RawMessage),
		blobs:     make(map[string]fakeBlob),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeFirebase) options(dir string) Options {
	return Options{
		APIKey:            "test-key",
		ProjectID:         "demo",
		StorageBucket:     "demo.appspot.com",
		SessionPath:       filepath.Join(dir, "session.json"),
		Timeout:           5 * time.Second,
		PollInterval:      time.Hour,
		HTTPClient:        f.srv.Client(),
		AuthEndpoint:      f.srv.URL + "/identitytoolkit/v3/relyingparty/",
		TokenEndpoint:     f.srv.URL + "/securetoken/v1/token",
		FirestoreEndpoint: f.srv.URL + "/",
		StorageEndpoint:   f.srv.URL,
	}
}

func (f *fakeFirebase) addAccount(email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid := fmt.Sprintf("u%d", len(f.uids)+1)
	f.passwords[email] = password
	f.uids[email] = uid
	f.emails[uid] = email
	return uid
}

// putDoc stores a document directly, bypassing the client.
func (f *fakeFirebase) putDoc(name string, fields map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		raw[k] = json.RawMessage(fmt.Sprintf(`{"stringValue":%q}`, v))
	}
	f.docs[name] = raw
}

func (f *fakeFirebase) lastPatch() fakePatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.patches) == 0 {
		return fakePatch{}
	}
	return f.patches[len(f.patches)-1]
}

func (f *fakeFirebase) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func idToken(uid, email string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uid,
		"sub":     uid,
		"email":   email,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, code, msg)
}

func (f *fakeFirebase) serve(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	switch {
	case strings.HasPrefix(p, "/identitytoolkit/"):
		f.serveAuth(w, r)
	case p == "/securetoken/v1/token":
		f.serveToken(w, r)
	case strings.HasPrefix(p, "/v0/b/"):
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		f.serveStorage(w, r)
	case strings.HasPrefix(p, "/v1/"):
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		f.serveFirestore(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeFirebase) serveAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/signupNewUser"):
		if _, exists := f.uids[req.Email]; exists {
			writeError(w, http.StatusBadRequest, "EMAIL_EXISTS")
			return
		}
		uid := fmt.Sprintf("u%d", len(f.uids)+1)
		f.passwords[req.Email] = req.Password
		f.uids[req.Email] = uid
		f.emails[uid] = req.Email
		writeJSON(w, f.tokenResponse(uid, req.Email))
	case strings.HasSuffix(r.URL.Path, "/verifyPassword"):
		pw, ok := f.passwords[req.Email]
		if !ok {
			writeError(w, http.StatusBadRequest, "EMAIL_NOT_FOUND")
			return
		}
		if pw != req.Password {
			writeError(w, http.StatusBadRequest, "INVALID_PASSWORD")
			return
		}
		writeJSON(w, f.tokenResponse(f.uids[req.Email], req.Email))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeFirebase) tokenResponse(uid, email string) map[string]string {
	return map[string]string{
		"idToken":      idToken(uid, email),
		"refreshToken": "refresh-" + uid,
		"expiresIn":    "3600",
		"localId":      uid,
		"email":        email,
	}
}

func (f *fakeFirebase) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "refresh_token" {
		writeError(w, http.StatusBadRequest, "INVALID_GRANT_TYPE")
		return
	}
	uid := strings.TrimPrefix(r.PostForm.Get("refresh_token"), "refresh-")

	f.mu.Lock()
	email, ok := f.emails[uid]
	if ok {
		f.refreshes++
	}
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_REFRESH_TOKEN")
		return
	}

	tok := idToken(uid, email)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  tok,
		"id_token":      tok,
		"expires_in":    3600,
		"token_type":    "Bearer",
		"refresh_token": "refresh-" + uid,
		"user_id":       uid,
	})
}

type rawDocument struct {
	Name       string                     `json:"name,omitempty"`
	Fields     map[string]json.RawMessage `json:"fields,omitempty"`
	UpdateTime string                     `json:"updateTime,omitempty"`
}

func (f *fakeFirebase) serveFirestore(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/v1/")

	if r.Method == http.MethodPost && strings.HasSuffix(name, ":runQuery") {
		f.runQuery(w, r, strings.TrimSuffix(name, ":runQuery"))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		fields, ok := f.docs[name]
		if !ok {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		writeJSON(w, rawDocument{Name: name, Fields: fields})
	case http.MethodPatch:
		body, _ := io.ReadAll(r.Body)
		var doc rawDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			writeError(w, http.StatusBadRequest, "bad document")
			return
		}
		q := r.URL.Query()
		mask := q["updateMask.fieldPaths"]
		existing, exists := f.docs[name]
		if q.Get("currentDocument.exists") == "true" && !exists {
			writeError(w, http.StatusNotFound, "No document to update")
			return
		}
		f.patches = append(f.patches, fakePatch{name: name, mask: mask, body: string(body)})
		if len(mask) == 0 || !exists {
			existing = make(map[string]json.RawMessage)
		}
		if len(mask) == 0 {
			for k, v := range doc.Fields {
				existing[k] = v
			}
		} else {
			for _, k := range mask {
				existing[k] = doc.Fields[k]
			}
		}
		f.docs[name] = existing
		writeJSON(w, rawDocument{Name: name, Fields: existing})
	case http.MethodDelete:
		delete(f.docs, name)
		writeJSON(w, map[string]any{})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *fakeFirebase) runQuery(w http.ResponseWriter, r *http.Request, parent string) {
	var req firestore.RunQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StructuredQuery == nil {
		writeError(w, http.StatusBadRequest, "bad query")
		return
	}
	q := req.StructuredQuery
	prefix := parent + "/" + q.From[0].CollectionId + "/"

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++

	var names []string
	for name := range f.docs {
		rest, ok := strings.CutPrefix(name, prefix)
		if ok && !strings.Contains(rest, "/") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var results []map[string]any
	for _, name := range names {
		fields := f.docs[name]
		if q.Where != nil && q.Where.FieldFilter != nil {
			ff := q.Where.FieldFilter
			var v firestore.Value
			if raw, ok := fields[ff.Field.FieldPath]; ok {
				_ = json.Unmarshal(raw, &v)
			}
			if v.StringValue != ff.Value.StringValue {
				continue
			}
		}
		results = append(results, map[string]any{
			"document": rawDocument{Name: name, Fields: fields, UpdateTime: "2024-05-01T12:00:00Z"},
			"readTime": "2024-05-01T12:00:00Z",
		})
	}
	if len(results) == 0 {
		results = append(results, map[string]any{"readTime": "2024-05-01T12:00:00Z"})
	}
	writeJSON(w, results)
}

func (f *fakeFirebase) serveStorage(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v0/b/")
	bucket, rest, _ := strings.Cut(rest, "/")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && rest == "o":
		name := r.URL.Query().Get("name")
		data, _ := io.ReadAll(r.Body)
		f.blobs[name] = fakeBlob{data: data, contentType: r.Header.Get("Content-Type")}
		writeJSON(w, map[string]string{"name": name, "bucket": bucket, "downloadTokens": "tok-1"})
	case r.Method == http.MethodGet && strings.HasPrefix(rest, "o/"):
		name := strings.TrimPrefix(rest, "o/")
		if _, ok := f.blobs[name]; !ok {
			writeError(w, http.StatusNotFound, "Not Found.")
			return
		}
		writeJSON(w, map[string]string{"name": name, "bucket": bucket, "downloadTokens": "tok-1,tok-2"})
	default:
		http.NotFound(w, r)
	}
}
