package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"todoapp/internal/platform"
)

type documentRow struct {
	ID     string `db:"id"`
	Fields []byte `db:"fields"`
}

// docStore implements platform.Documents on the documents table.
type docStore struct {
	db      *sqlx.DB
	url     string
	feed    *platform.IdentityFeed
	timeout time.Duration

	mu      sync.Mutex
	queries map[int]context.CancelFunc
	nextID  int
	wg      sync.WaitGroup
}

func newDocStore(db *sqlx.DB, url string, feed *platform.IdentityFeed, timeout time.Duration) *docStore {
	return &docStore{
		db:      db,
		url:     url,
		feed:    feed,
		timeout: timeout,
		queries: make(map[int]context.CancelFunc),
	}
}

// Get implements platform.Documents. Another user's document reads as
// missing.
func (d *docStore) Get(ctx context.Context, collection, id string) (platform.Document, error) {
	uid, err := requireUser(d.feed)
	if err != nil {
		return platform.Document{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var row documentRow
	err = d.db.GetContext(ctx, &row,
		`SELECT id, fields FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return platform.Document{}, wrapError(err)
	}
	doc, err := row.document()
	if err != nil {
		return platform.Document{}, err
	}
	if !ownsDocument(collection, doc.ID, doc.Fields, uid) {
		return platform.Document{}, platform.ErrNotFound
	}
	return doc, nil
}

// Set implements platform.Documents.
func (d *docStore) Set(ctx context.Context, collection, id string, fields platform.Fields) error {
	uid, err := requireUser(d.feed)
	if err != nil {
		return err
	}
	if !ownsDocument(collection, id, fields, uid) {
		return errPermissionDenied
	}
	body, err := encodeFields(fields)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	query, args := scoped(`
		INSERT INTO documents (collection, id, fields) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = NOW()
		WHERE TRUE`, collection, uid, collection, id, body)
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapError(err)
	}
	// An existing document of another user is left alone.
	n, err := res.RowsAffected()
	if err != nil {
		return wrapError(err)
	}
	if n == 0 {
		return errPermissionDenied
	}
	return nil
}

// Update implements platform.Documents. Another user's document reads as
// missing.
func (d *docStore) Update(ctx context.Context, collection, id string, patch platform.Fields) error {
	uid, err := requireUser(d.feed)
	if err != nil {
		return err
	}
	if reassigns(collection, patch, uid) {
		return errPermissionDenied
	}
	body, err := encodeFields(patch)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	query, args := scoped(`
		UPDATE documents SET fields = fields || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2`, collection, uid, collection, id, body)
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapError(err)
	}
	if n == 0 {
		return platform.ErrNotFound
	}
	return nil
}

// Delete implements platform.Documents. Deleting a missing document, or
// one owned by someone else, changes nothing and is not an error.
func (d *docStore) Delete(ctx context.Context, collection, id string) error {
	uid, err := requireUser(d.feed)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	query, args := scoped(
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, uid, collection, id)
	_, err = d.db.ExecContext(ctx, query, args...)
	return wrapError(err)
}

// query returns the signed-in user's matching documents, ordered by id.
func (d *docStore) query(ctx context.Context, collection string, filter platform.Filter) ([]platform.Document, error) {
	uid, err := requireUser(d.feed)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var query string
	var args []any
	if filter.Field == "" {
		query, args = scoped(
			`SELECT id, fields FROM documents WHERE collection = $1`, collection, uid, collection)
	} else {
		query, args = scoped(
			`SELECT id, fields FROM documents WHERE collection = $1 AND fields->>$2 = $3`,
			collection, uid, collection, filter.Field, filter.Value)
	}

	var rows []documentRow
	if err := d.db.SelectContext(ctx, &rows, query+" ORDER BY id", args...); err != nil {
		return nil, wrapError(err)
	}

	docs := make([]platform.Document, 0, len(rows))
	for _, r := range rows {
		doc, err := r.document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r documentRow) document() (platform.Document, error) {
	fields, err := decodeFields(r.Fields)
	if err != nil {
		return platform.Document{}, fmt.Errorf("document %s: %w", r.ID, err)
	}
	return platform.Document{ID: r.ID, Fields: fields}, nil
}

// encodeFields renders fields as JSON text. Timestamps become RFC 3339
// strings, which platform.Document.Time reads back.
func encodeFields(fields platform.Fields) (string, error) {
	if fields == nil {
		fields = platform.Fields{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(b), nil
}

func decodeFields(b []byte) (platform.Fields, error) {
	fields := platform.Fields{}
	if len(b) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return fields, nil
}
