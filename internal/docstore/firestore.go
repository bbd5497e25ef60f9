package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore maps collections and keys onto Firestore collections and
// document ids. Revisions are the documents' update times.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore uses Application Default Credentials when credentialsFile is empty.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var (
		client *firestore.Client
		err    error
	)
	if credentialsFile != "" {
		client, err = firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credentialsFile))
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Get(ctx context.Context, collection, key string) (*Document, error) {
	snap, err := s.client.Collection(collection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return snapshotToDocument(snap), nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, key string, fields Fields) error {
	if _, err := s.client.Collection(collection).Doc(key).Set(ctx, map[string]any(fields)); err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, key string, fields Fields, revision string) error {
	ref := s.client.Collection(collection).Doc(key)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrConflict
			}
			return err
		}
		if formatRevision(snap.UpdateTime) != revision {
			return ErrConflict
		}
		return tx.Set(ref, map[string]any(fields))
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	query := s.client.Collection(collection).Query
	for _, f := range q.Where {
		query = query.Where(f.Field, "==", f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	it := query.Documents(ctx)
	defer it.Stop()

	var docs []Document
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("find documents: %w", err)
		}
		docs = append(docs, *snapshotToDocument(snap))
	}
	return docs, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func snapshotToDocument(snap *firestore.DocumentSnapshot) *Document {
	return &Document{
		Key:      snap.Ref.ID,
		Fields:   Fields(snap.Data()),
		Revision: formatRevision(snap.UpdateTime),
	}
}

func formatRevision(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
