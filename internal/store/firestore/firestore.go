// Package firestore adapts Cloud Firestore to the store.Store interface.
package firestore

import (
	"context"
	"fmt"
	"strings"

	cfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pointchat/internal/observability"
	"pointchat/internal/store"
)

// Adapter implements store.Store on top of a Firestore client.
type Adapter struct {
	client  *cfirestore.Client
	metrics *observability.StoreMetrics
}

var _ store.Store = (*Adapter)(nil)

// New connects to Firestore for the given project. When credentialsFile is
// empty, application default credentials are used.
func New(ctx context.Context, projectID, credentialsFile string) (*Adapter, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	return &Adapter{client: client, metrics: observability.NewStoreMetrics()}, nil
}

// Get fetches a document by path.
func (a *Adapter) Get(ctx context.Context, path string) (*store.Document, error) {
	defer a.metrics.TrackOp("get", rootCollection(path))()
	snap, err := a.client.Doc(path).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return snapToDoc(path, snap), nil
}

// Create adds a document with a generated ID.
func (a *Adapter) Create(ctx context.Context, collection string, data map[string]any) (*store.Document, error) {
	defer a.metrics.TrackOp("create", rootCollection(collection))()
	ref := a.client.Collection(collection).Doc(uuid.NewString())
	if _, err := ref.Create(ctx, data); err != nil {
		return nil, err
	}
	return &store.Document{ID: ref.ID, Path: collection + "/" + ref.ID, Data: data}, nil
}

// Set writes a document, optionally merging into existing fields.
func (a *Adapter) Set(ctx context.Context, path string, data map[string]any, merge bool) error {
	defer a.metrics.TrackOp("set", rootCollection(path))()
	ref := a.client.Doc(path)
	var err error
	if merge {
		_, err = ref.Set(ctx, data, cfirestore.MergeAll)
	} else {
		_, err = ref.Set(ctx, data)
	}
	return err
}

// Update replaces fields of an existing document.
func (a *Adapter) Update(ctx context.Context, path string, data map[string]any) error {
	defer a.metrics.TrackOp("update", rootCollection(path))()
	_, err := a.client.Doc(path).Update(ctx, toUpdates(data))
	return mapErr(err)
}

// Delete removes a document.
func (a *Adapter) Delete(ctx context.Context, path string) error {
	defer a.metrics.TrackOp("delete", rootCollection(path))()
	_, err := a.client.Doc(path).Delete(ctx)
	return err
}

// Query runs a collection query.
func (a *Adapter) Query(ctx context.Context, collection string, q store.Query) ([]*store.Document, error) {
	defer a.metrics.TrackOp("query", rootCollection(collection))()
	fq := a.client.Collection(collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, string(f.Op), f.Value)
	}
	if q.OrderBy != "" {
		dir := cfirestore.Asc
		if q.Desc {
			dir = cfirestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	docs := make([]*store.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, snapToDoc(collection+"/"+snap.Ref.ID, snap))
	}
	return docs, nil
}

// DeleteCollection removes every document in a collection via a bulk writer.
func (a *Adapter) DeleteCollection(ctx context.Context, collection string) (int, error) {
	defer a.metrics.TrackOp("delete_collection", rootCollection(collection))()
	iter := a.client.Collection(collection).Documents(ctx)
	bw := a.client.BulkWriter(ctx)

	n := 0
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return n, err
		}
		if _, err := bw.Delete(snap.Ref); err != nil {
			return n, err
		}
		n++
	}
	bw.End()
	return n, nil
}

// RunTransaction executes fn inside a Firestore transaction.
func (a *Adapter) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	defer a.metrics.TrackOp("transaction", "")()
	return a.client.RunTransaction(ctx, func(_ context.Context, t *cfirestore.Transaction) error {
		return fn(&fsTx{client: a.client, tx: t})
	})
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

type fsTx struct {
	client *cfirestore.Client
	tx     *cfirestore.Transaction
}

func (t *fsTx) Get(path string) (*store.Document, error) {
	snap, err := t.tx.Get(t.client.Doc(path))
	if err != nil {
		return nil, mapErr(err)
	}
	return snapToDoc(path, snap), nil
}

func (t *fsTx) Set(path string, data map[string]any) error {
	return t.tx.Set(t.client.Doc(path), data)
}

func (t *fsTx) Update(path string, data map[string]any) error {
	return mapErr(t.tx.Update(t.client.Doc(path), toUpdates(data)))
}

// rootCollection reduces a document or collection path to its top-level
// collection, the granularity the latency histogram is labeled at. Keeping
// chat IDs out of the label bounds its cardinality.
func rootCollection(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

func snapToDoc(path string, snap *cfirestore.DocumentSnapshot) *store.Document {
	return &store.Document{ID: snap.Ref.ID, Path: path, Data: snap.Data()}
}

func toUpdates(data map[string]any) []cfirestore.Update {
	updates := make([]cfirestore.Update, 0, len(data))
	for k, v := range data {
		updates = append(updates, cfirestore.Update{Path: k, Value: v})
	}
	return updates
}

func mapErr(err error) error {
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	return err
}
