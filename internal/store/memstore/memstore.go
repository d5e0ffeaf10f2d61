// Package memstore provides an in-memory document store backend. It is the
// test double for the Firestore adapter and the credential-less fallback for
// local development.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"pointchat/internal/store"

	"github.com/google/uuid"
)

// Memstore implements store.Store over a mutex-guarded map keyed by document
// path. Transactions run under the write lock, which makes them serializable.
type Memstore struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
}

// New returns an empty in-memory store.
func New() *Memstore {
	return &Memstore{docs: make(map[string]map[string]any)}
}

var _ store.Store = (*Memstore)(nil)

// Get fetches a document by path.
func (m *Memstore) Get(_ context.Context, path string) (*store.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[path]
	if !ok {
		return nil, store.ErrNotFound
	}
	return docAt(path, data), nil
}

// Create adds a document with a generated ID.
func (m *Memstore) Create(_ context.Context, collection string, data map[string]any) (*store.Document, error) {
	path := collection + "/" + uuid.NewString()
	m.mu.Lock()
	m.docs[path] = cloneMap(data)
	m.mu.Unlock()
	return docAt(path, data), nil
}

// Set writes a document, optionally merging into existing fields.
func (m *Memstore) Set(_ context.Context, path string, data map[string]any, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(path, data, merge)
	return nil
}

// Update replaces fields of an existing document.
func (m *Memstore) Update(_ context.Context, path string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[path]; !ok {
		return store.ErrNotFound
	}
	m.set(path, data, true)
	return nil
}

// Delete removes a document; absent documents are a no-op.
func (m *Memstore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	delete(m.docs, path)
	m.mu.Unlock()
	return nil
}

// Query runs a collection query.
func (m *Memstore) Query(_ context.Context, collection string, q store.Query) ([]*store.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*store.Document
	for path, data := range m.docs {
		if !inCollection(path, collection) {
			continue
		}
		if matchesAll(data, q.Filters) {
			results = append(results, docAt(path, data))
		}
	}

	// Map iteration order is random; sort by ID for a stable baseline even
	// without an explicit ordering.
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })

	if q.OrderBy != "" {
		field, desc := q.OrderBy, q.Desc
		sort.SliceStable(results, func(i, j int) bool {
			cmp := compareValues(results[i].Data[field], results[j].Data[field])
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// DeleteCollection removes every document in a collection.
func (m *Memstore) DeleteCollection(_ context.Context, collection string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for path := range m.docs {
		if inCollection(path, collection) {
			delete(m.docs, path)
			n++
		}
	}
	return n, nil
}

// RunTransaction executes fn under the store's write lock. Reads observe the
// committed state; writes are buffered and applied only when fn succeeds.
func (m *Memstore) RunTransaction(_ context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	for _, w := range tx.writes {
		m.set(w.path, w.data, w.merge)
	}
	return nil
}

// Close releases the store's documents.
func (m *Memstore) Close() error {
	m.mu.Lock()
	m.docs = make(map[string]map[string]any)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored documents.
func (m *Memstore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// set assumes the write lock is held.
func (m *Memstore) set(path string, data map[string]any, merge bool) {
	if merge {
		if existing, ok := m.docs[path]; ok {
			for k, v := range data {
				existing[k] = cloneValue(v)
			}
			return
		}
	}
	m.docs[path] = cloneMap(data)
}

type bufferedWrite struct {
	path  string
	data  map[string]any
	merge bool
}

// memTx buffers writes until commit. The enclosing transaction holds the
// store's write lock, so reads are consistent for the whole transaction.
type memTx struct {
	store  *Memstore
	writes []bufferedWrite
}

func (t *memTx) Get(path string) (*store.Document, error) {
	data, ok := t.store.docs[path]
	if !ok {
		return nil, store.ErrNotFound
	}
	return docAt(path, data), nil
}

func (t *memTx) Set(path string, data map[string]any) error {
	t.writes = append(t.writes, bufferedWrite{path: path, data: cloneMap(data)})
	return nil
}

func (t *memTx) Update(path string, data map[string]any) error {
	if _, ok := t.store.docs[path]; !ok {
		return store.ErrNotFound
	}
	t.writes = append(t.writes, bufferedWrite{path: path, data: cloneMap(data), merge: true})
	return nil
}

func docAt(path string, data map[string]any) *store.Document {
	return &store.Document{
		ID:   path[strings.LastIndexByte(path, '/')+1:],
		Path: path,
		Data: cloneMap(data),
	}
}

// inCollection reports whether path is a direct member of collection
// (exactly one more segment, no deeper subcollection documents).
func inCollection(path, collection string) bool {
	prefix := collection + "/"
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return !strings.ContainsRune(path[len(prefix):], '/')
}

func matchesAll(data map[string]any, filters []store.Filter) bool {
	for _, f := range filters {
		if !matches(data[f.Field], f) {
			return false
		}
	}
	return true
}

func matches(value any, f store.Filter) bool {
	switch f.Op {
	case store.OpEqual:
		return compareValues(value, f.Value) == 0
	case store.OpGreaterOrEqual:
		return value != nil && compareValues(value, f.Value) >= 0
	case store.OpLessOrEqual:
		return value != nil && compareValues(value, f.Value) <= 0
	case store.OpArrayContains:
		return arrayContains(value, f.Value)
	}
	return false
}

func arrayContains(value, want any) bool {
	switch arr := value.(type) {
	case []string:
		for _, v := range arr {
			if compareValues(v, want) == 0 {
				return true
			}
		}
	case []any:
		for _, v := range arr {
			if compareValues(v, want) == 0 {
				return true
			}
		}
	}
	return false
}

// compareValues orders two field values. Nil sorts before everything so that
// documents missing the order-by field come first ascending / last descending.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs)
		}
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case bb:
				return -1
			default:
				return 1
			}
		}
	}

	// Mixed types: fall back to a textual comparison to stay deterministic.
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case map[string][]string:
		out := make(map[string][]string, len(val))
		for k, e := range val {
			c := make([]string, len(e))
			copy(c, e)
			out[k] = c
		}
		return out
	case map[string]int:
		out := make(map[string]int, len(val))
		for k, e := range val {
			out[k] = e
		}
		return out
	default:
		return v
	}
}
