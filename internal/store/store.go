// Package store provides bbolt-backed persistence for every Komodo resource
// kind plus Updates and Permissions, one bucket per kind, JSON-encoded
// values keyed by id — the same db.Update/db.View + marshal/Put/Get/ForEach
// idiom as the teacher's pkg/storage/boltdb.go, generalized with generics
// since Komodo has fourteen resource kinds sharing one CRUD shape instead of
// the teacher's half-dozen hand-duplicated ones.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/komodoerr"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketUpdates     = []byte("updates")
	bucketPermissions = []byte("permissions")
)

func bucketFor(kind domain.Kind) []byte {
	return []byte("resource:" + string(kind))
}

// Store is the embedded persistence layer backing every Komodo resource.
type Store struct {
	db        *bolt.DB
	secretBox *SecretBox
}

// Open opens (creating if absent) the bbolt database at path and ensures
// every kind bucket plus updates/permissions exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, komodoerr.Wrap(komodoerr.Storage, "store.Open", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, k := range domain.AllKinds {
			if _, err := tx.CreateBucketIfNotExists(bucketFor(k)); err != nil {
				return err
			}
		}
		if _, err := tx.CreateBucketIfNotExists(bucketUpdates); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketPermissions); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketSecretValues); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, komodoerr.Wrap(komodoerr.Storage, "store.Open", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func put(db *bolt.DB, bucket []byte, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(id), data)
	})
}

func get[T any](db *bolt.DB, bucket []byte, id string) (*T, error) {
	var out T
	found := false
	err := db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &out)
	})
	if err != nil {
		return nil, komodoerr.Wrap(komodoerr.Storage, "store.get", err)
	}
	if !found {
		return nil, komodoerr.Wrap(komodoerr.NotFound, "store.get", fmt.Errorf("not found: %s", id))
	}
	return &out, nil
}

func list[T any](db *bolt.DB, bucket []byte) ([]*T, error) {
	var out []*T
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, v []byte) error {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			out = append(out, &item)
			return nil
		})
	})
	if err != nil {
		return nil, komodoerr.Wrap(komodoerr.Storage, "store.list", err)
	}
	return out, nil
}

func del(db *bolt.DB, bucket []byte, id string) error {
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(id))
	})
}

// getByName scans a bucket for the first item whose Name matches — mirrors
// the teacher's GetXByName Cursor-scan pattern (pkg/storage/boltdb.go).
func getByName[T any](db *bolt.DB, bucket []byte, name string, nameOf func(*T) string) (*T, error) {
	items, err := list[T](db, bucket)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if nameOf(item) == name {
			return item, nil
		}
	}
	return nil, komodoerr.Wrap(komodoerr.NotFound, "store.getByName", fmt.Errorf("not found: %s", name))
}
