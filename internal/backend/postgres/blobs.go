package postgres

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"todoapp/internal/platform"
)

// AddressPrefix marks addresses returned by Put.
const AddressPrefix = "blob:"

type blobRow struct {
	ContentType string `db:"content_type"`
	Data        []byte `db:"data"`
}

// blobStore implements platform.Blobs on the blobs table.
type blobStore struct {
	db      *sqlx.DB
	feed    *platform.IdentityFeed
	baseURL string
	timeout time.Duration
}

// Put implements platform.Blobs. Storing at an existing path replaces it.
func (b *blobStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if _, err := requireUser(b.feed); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO blobs (path, content_type, data) VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data, updated_at = NOW()`,
		path, contentType, data)
	if err != nil {
		return "", wrapError(err)
	}
	return AddressPrefix + path, nil
}

// Resolve implements platform.Blobs. With a base URL the blob is expected
// to be served from there; otherwise the content is inlined as a data URL.
func (b *blobStore) Resolve(ctx context.Context, address string) (string, error) {
	path, ok := strings.CutPrefix(address, AddressPrefix)
	if !ok || path == "" {
		return "", fmt.Errorf("not a blob address: %s", address)
	}
	if _, err := requireUser(b.feed); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var row blobRow
	if err := b.db.GetContext(ctx, &row,
		`SELECT content_type, data FROM blobs WHERE path = $1`, path); err != nil {
		return "", wrapError(err)
	}
	if b.baseURL != "" {
		return publicURL(b.baseURL, path), nil
	}
	return dataURL(row.ContentType, row.Data), nil
}

func publicURL(base, path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

func dataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
