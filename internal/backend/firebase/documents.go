package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"

	"todoapp/internal/platform"
)

// docStore implements platform.Documents on Cloud Firestore.
type docStore struct {
	fs       *firestore.Service
	http     *http.Client
	root     string // projects/{project}/databases/(default)/documents
	timeout  time.Duration
	interval time.Duration

	mu     sync.Mutex
	polls  map[int]*poller
	nextID int
}

func newDocStore(fs *firestore.Service, httpClient *http.Client, projectID string, timeout, interval time.Duration) *docStore {
	return &docStore{
		fs:       fs,
		http:     httpClient,
		root:     fmt.Sprintf("projects/%s/databases/(default)/documents", projectID),
		timeout:  timeout,
		interval: interval,
		polls:    make(map[int]*poller),
	}
}

func (d *docStore) name(collection, id string) string {
	return d.root + "/" + collection + "/" + id
}

// Get implements platform.Documents.
func (d *docStore) Get(ctx context.Context, collection, id string) (platform.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	doc, err := d.fs.Projects.Databases.Documents.Get(d.name(collection, id)).Context(ctx).Do()
	if err != nil {
		return platform.Document{}, wrapError(err)
	}
	return fromDocument(doc), nil
}

// Set implements platform.Documents. A patch without a mask replaces the
// whole document and creates it if needed.
func (d *docStore) Set(ctx context.Context, collection, id string, fields platform.Fields) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	doc := &firestore.Document{Fields: toFields(fields)}
	if _, err := d.fs.Projects.Databases.Documents.Patch(d.name(collection, id), doc).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	d.nudge(collection)
	return nil
}

// Update implements platform.Documents.
func (d *docStore) Update(ctx context.Context, collection, id string, patch platform.Fields) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	paths := make([]string, 0, len(patch))
	for k := range patch {
		paths = append(paths, k)
	}
	sort.Strings(paths)

	doc := &firestore.Document{Fields: toFields(patch)}
	_, err := d.fs.Projects.Databases.Documents.Patch(d.name(collection, id), doc).
		UpdateMaskFieldPaths(paths...).
		CurrentDocumentExists(true).
		Context(ctx).
		Do()
	if err != nil {
		return wrapError(err)
	}
	d.nudge(collection)
	return nil
}

// Delete implements platform.Documents.
func (d *docStore) Delete(ctx context.Context, collection, id string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if _, err := d.fs.Projects.Databases.Documents.Delete(d.name(collection, id)).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	d.nudge(collection)
	return nil
}

// runQuery returns the documents of collection matching filter.
//
// runQuery answers with a JSON array of results, which the generated
// RunQuery call cannot decode, so the request is made directly with the
// generated request and response types.
func (d *docStore) runQuery(ctx context.Context, collection string, filter platform.Filter) ([]platform.Document, error) {
	q := &firestore.StructuredQuery{
		From: []*firestore.CollectionSelector{{CollectionId: collection}},
	}
	if filter.Field != "" {
		value := toValue(filter.Value)
		q.Where = &firestore.Filter{
			FieldFilter: &firestore.FieldFilter{
				Field: &firestore.FieldReference{FieldPath: filter.Field},
				Op:    "EQUAL",
				Value: &value,
			},
		}
	}

	body, err := json.Marshal(&firestore.RunQueryRequest{StructuredQuery: q})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.fs.BasePath+"v1/"+d.root+":runQuery", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, wrapError(err)
	}
	defer resp.Body.Close()
	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, wrapError(err)
	}

	var results []firestore.RunQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode query results: %w", err)
	}

	docs := make([]platform.Document, 0, len(results))
	for _, r := range results {
		// Results without a document only carry the read time.
		if r.Document == nil {
			continue
		}
		docs = append(docs, fromDocument(r.Document))
	}
	return docs, nil
}
