package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// blobStore implements platform.Blobs on the Firebase Storage REST API.
// Addresses have the form gs://bucket/path.
type blobStore struct {
	http    *http.Client
	base    string
	bucket  string
	timeout time.Duration
}

// objectMetadata is the subset of the object resource we read.
type objectMetadata struct {
	Name           string `json:"name"`
	Bucket         string `json:"bucket"`
	DownloadTokens string `json:"downloadTokens"`
}

// Put implements platform.Blobs.
func (b *blobStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if b.bucket == "" {
		return "", errors.New("storage bucket is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/v0/b/%s/o?name=%s", b.base, url.PathEscape(b.bucket), url.QueryEscape(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	var meta objectMetadata
	if err := b.do(req, &meta); err != nil {
		return "", err
	}
	return "gs://" + b.bucket + "/" + path, nil
}

// Resolve implements platform.Blobs. The URL embeds the object's download
// token, the same URL the Firebase SDKs hand out.
func (b *blobStore) Resolve(ctx context.Context, address string) (string, error) {
	rest, ok := strings.CutPrefix(address, "gs://")
	if !ok {
		return "", fmt.Errorf("not a storage address: %s", address)
	}
	bucket, path, ok := strings.Cut(rest, "/")
	if !ok || path == "" {
		return "", fmt.Errorf("not a storage address: %s", address)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	object := fmt.Sprintf("%s/v0/b/%s/o/%s", b.base, url.PathEscape(bucket), url.PathEscape(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, object, nil)
	if err != nil {
		return "", err
	}
	var meta objectMetadata
	if err := b.do(req, &meta); err != nil {
		return "", err
	}

	token, _, _ := strings.Cut(meta.DownloadTokens, ",")
	if token == "" {
		return "", fmt.Errorf("object %s has no download token", path)
	}
	return object + "?alt=media&token=" + url.QueryEscape(token), nil
}

func (b *blobStore) do(req *http.Request, out any) error {
	resp, err := b.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()
	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(err)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode storage response: %w", err)
	}
	return nil
}
