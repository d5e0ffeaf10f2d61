package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pointchat/internal/store"

	"github.com/stretchr/testify/assert"
)

func TestGetSetDelete(t *testing.T) {
	m := New()
	ctx := context.Background()

	_, err := m.Get(ctx, "users/missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NoError(t, m.Set(ctx, "users/u1", map[string]any{"username": "alice"}, false))

	doc, err := m.Get(ctx, "users/u1")
	assert.NoError(t, err)
	assert.Equal(t, "u1", doc.ID)
	assert.Equal(t, "alice", doc.Data["username"])

	assert.NoError(t, m.Delete(ctx, "users/u1"))
	_, err = m.Get(ctx, "users/u1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, m.Delete(ctx, "users/u1"))
}

func TestSetMerge(t *testing.T) {
	m := New()
	ctx := context.Background()

	assert.NoError(t, m.Set(ctx, "users/u1", map[string]any{"username": "alice", "bio": "hi"}, false))
	assert.NoError(t, m.Set(ctx, "users/u1", map[string]any{"bio": "updated"}, true))

	doc, err := m.Get(ctx, "users/u1")
	assert.NoError(t, err)
	assert.Equal(t, "alice", doc.Data["username"], "merge must not clobber untouched fields")
	assert.Equal(t, "updated", doc.Data["bio"])

	// Merge-set on an absent document creates it.
	assert.NoError(t, m.Set(ctx, "users/u2", map[string]any{"username": "bob"}, true))
	_, err = m.Get(ctx, "users/u2")
	assert.NoError(t, err)
}

func TestUpdateRequiresExistence(t *testing.T) {
	m := New()
	ctx := context.Background()

	err := m.Update(ctx, "users/u1", map[string]any{"bio": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NoError(t, m.Set(ctx, "users/u1", map[string]any{"username": "alice"}, false))
	assert.NoError(t, m.Update(ctx, "users/u1", map[string]any{"bio": "x"}))

	doc, _ := m.Get(ctx, "users/u1")
	assert.Equal(t, "alice", doc.Data["username"])
	assert.Equal(t, "x", doc.Data["bio"])
}

func TestCreateGeneratesIDs(t *testing.T) {
	m := New()
	ctx := context.Background()

	a, err := m.Create(ctx, "users", map[string]any{"username": "alice"})
	assert.NoError(t, err)
	b, err := m.Create(ctx, "users", map[string]any{"username": "bob"})
	assert.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "users/"+a.ID, a.Path)
}

func TestQueryFiltersAndOrdering(t *testing.T) {
	m := New()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"carol", "alice", "bob"} {
		assert.NoError(t, m.Set(ctx, "users/u"+name, map[string]any{
			"username":  name,
			"createdAt": base.Add(time.Duration(i) * time.Hour),
			"tags":      []string{"x", name},
		}, false))
	}

	t.Run("equality", func(t *testing.T) {
		docs, err := m.Query(ctx, "users", store.Query{}.Where("username", store.OpEqual, "bob"))
		assert.NoError(t, err)
		assert.Len(t, docs, 1)
		assert.Equal(t, "ubob", docs[0].ID)
	})

	t.Run("string range", func(t *testing.T) {
		docs, err := m.Query(ctx, "users", store.Query{
			Filters: []store.Filter{
				{Field: "username", Op: store.OpGreaterOrEqual, Value: "b"},
				{Field: "username", Op: store.OpLessOrEqual, Value: "b"},
			},
			OrderBy: "username",
		})
		assert.NoError(t, err)
		assert.Len(t, docs, 1)
		assert.Equal(t, "bob", docs[0].Data["username"])
	})

	t.Run("array contains", func(t *testing.T) {
		docs, err := m.Query(ctx, "users", store.Query{}.Where("tags", store.OpArrayContains, "alice"))
		assert.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("order desc with limit", func(t *testing.T) {
		docs, err := m.Query(ctx, "users", store.Query{OrderBy: "createdAt", Desc: true, Limit: 2})
		assert.NoError(t, err)
		assert.Len(t, docs, 2)
		assert.Equal(t, "bob", docs[0].Data["username"])
		assert.Equal(t, "alice", docs[1].Data["username"])
	})

	t.Run("subcollection docs excluded", func(t *testing.T) {
		assert.NoError(t, m.Set(ctx, "users/ualice/starred_messages/m1", map[string]any{"x": 1}, false))
		docs, err := m.Query(ctx, "users", store.Query{})
		assert.NoError(t, err)
		assert.Len(t, docs, 3)
	})
}

func TestDeleteCollection(t *testing.T) {
	m := New()
	ctx := context.Background()

	for _, id := range []string{"m1", "m2", "m3"} {
		assert.NoError(t, m.Set(ctx, "chats/c1/messages/"+id, map[string]any{"text": id}, false))
	}
	assert.NoError(t, m.Set(ctx, "chats/c1", map[string]any{"participants": []string{"a", "b"}}, false))

	n, err := m.DeleteCollection(ctx, "chats/c1/messages")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	// The parent chat document survives.
	_, err = m.Get(ctx, "chats/c1")
	assert.NoError(t, err)
}

func TestRunTransaction(t *testing.T) {
	m := New()
	ctx := context.Background()

	t.Run("writes apply on success", func(t *testing.T) {
		err := m.RunTransaction(ctx, func(tx store.Tx) error {
			return tx.Set("chats/c1", map[string]any{"participants": []string{"a", "b"}})
		})
		assert.NoError(t, err)
		_, err = m.Get(ctx, "chats/c1")
		assert.NoError(t, err)
	})

	t.Run("writes roll back on error", func(t *testing.T) {
		err := m.RunTransaction(ctx, func(tx store.Tx) error {
			if serr := tx.Set("chats/c2", map[string]any{"x": 1}); serr != nil {
				return serr
			}
			return errors.New("abort")
		})
		assert.Error(t, err)
		_, err = m.Get(ctx, "chats/c2")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent increments never lose updates", func(t *testing.T) {
		assert.NoError(t, m.Set(ctx, "counters/c", map[string]any{"n": 0}, false))

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = m.RunTransaction(ctx, func(tx store.Tx) error {
					doc, err := tx.Get("counters/c")
					if err != nil {
						return err
					}
					n, _ := doc.Data["n"].(int)
					return tx.Update("counters/c", map[string]any{"n": n + 1})
				})
			}()
		}
		wg.Wait()

		doc, err := m.Get(ctx, "counters/c")
		assert.NoError(t, err)
		assert.Equal(t, 20, doc.Data["n"])
	})
}

func TestDocumentsAreIsolatedCopies(t *testing.T) {
	m := New()
	ctx := context.Background()

	original := map[string]any{"tags": []string{"a"}}
	assert.NoError(t, m.Set(ctx, "users/u1", original, false))

	doc, err := m.Get(ctx, "users/u1")
	assert.NoError(t, err)

	// Mutating the returned data must not leak back into the store.
	doc.Data["tags"].([]string)[0] = "mutated"

	fresh, err := m.Get(ctx, "users/u1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"a"}, fresh.Data["tags"])
}
