package firebase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"todoapp/internal/platform"
)

// poller re-runs one query on an interval, or immediately when nudged
// after a local write.
type poller struct {
	collection string
	nudge      chan struct{}
	stop       chan struct{}
	once       sync.Once
}

func (p *poller) close() {
	p.once.Do(func() { close(p.stop) })
}

// LiveQuery implements platform.Documents by polling runQuery. fn runs on
// the poller's goroutine and only when the result set changed.
func (d *docStore) LiveQuery(collection string, filter platform.Filter, fn func([]platform.Document)) platform.Unsubscribe {
	p := &poller{
		collection: collection,
		nudge:      make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}

	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.polls[id] = p
	d.mu.Unlock()

	go d.poll(p, filter, fn)

	return func() {
		d.mu.Lock()
		delete(d.polls, id)
		d.mu.Unlock()
		p.close()
	}
}

func (d *docStore) poll(p *poller, filter platform.Filter, fn func([]platform.Document)) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	var last string
	delivered := false
	for {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		docs, err := d.runQuery(ctx, p.collection, filter)
		cancel()

		select {
		case <-p.stop:
			return
		default:
		}

		if err != nil {
			slog.Warn("live query failed", "collection", p.collection, "error", err)
		} else if fp := fingerprint(docs); !delivered || fp != last {
			last, delivered = fp, true
			slog.Debug("live query delivery", "collection", p.collection, "count", len(docs))
			fn(docs)
		}

		select {
		case <-p.stop:
			return
		case <-p.nudge:
		case <-ticker.C:
		}
	}
}

// nudge asks every poller on collection to re-run now.
func (d *docStore) nudge(collection string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.polls {
		if p.collection != collection {
			continue
		}
		select {
		case p.nudge <- struct{}{}:
		default:
		}
	}
}

func (d *docStore) stopAll() {
	d.mu.Lock()
	polls := d.polls
	d.polls = make(map[int]*poller)
	d.mu.Unlock()
	for _, p := range polls {
		p.close()
	}
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
