package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"todoapp/internal/domain"
	"todoapp/internal/platform"
)

// LiveQuery implements platform.Documents. Results are limited to the
// signed-in user's documents. Each query holds its own connection
// listening on ChangeChannel and re-runs when a change to its collection
// is announced. fn runs on the query's goroutine and only when
// the result set changed.
func (d *docStore) LiveQuery(collection string, filter platform.Filter, fn func([]platform.Document)) platform.Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())

	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.queries[id] = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		err := d.listen(ctx, collection, filter, fn)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, domain.ErrNotLoggedIn):
			slog.Debug("live query stopped after sign-out", "collection", collection)
		default:
			slog.Warn("live query stopped", "collection", collection, "error", err)
		}
	}()

	return func() {
		d.mu.Lock()
		delete(d.queries, id)
		d.mu.Unlock()
		cancel()
	}
}

func (d *docStore) listen(ctx context.Context, collection string, filter platform.Filter, fn func([]platform.Document)) error {
	conn, err := pgx.Connect(ctx, d.url)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return err
	}

	var last string
	delivered := false
	refresh := func() error {
		docs, err := d.query(ctx, collection, filter)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if fp := fingerprint(docs); !delivered || fp != last {
			last, delivered = fp, true
			slog.Debug("live query delivery", "collection", collection, "count", len(docs))
			fn(docs)
		}
		return nil
	}

	if err := refresh(); err != nil {
		return err
	}
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Payload != collection {
			continue
		}
		if err := refresh(); err != nil {
			return err
		}
	}
}

func (d *docStore) stopAll() {
	d.mu.Lock()
	queries := d.queries
	d.queries = make(map[int]context.CancelFunc)
	d.mu.Unlock()
	for _, cancel := range queries {
		cancel()
	}
	d.wg.Wait()
}

// fingerprint identifies a result set. Map keys marshal sorted, so equal
// sets give equal fingerprints.
func fingerprint(docs []platform.Document) string {
	b, err := json.Marshal(docs)
	if err != nil {
		return ""
	}
	return string(b)
}
