package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/komodoerr"
	bolt "go.etcd.io/bbolt"
)

// bucketSecretValues holds AES-256-GCM ciphertext for Secret.Value, separate from
// the Secret resource bucket (whose json:"-" tag already keeps plaintext out
// of the generic put/get path). Grounded on the teacher's
// pkg/security/secrets.go nonce-prepended ciphertext convention.
var bucketSecretValues = []byte("secret-values")

// SecretBox encrypts and decrypts Secret values at rest using a key derived
// from a passphrase via SHA-256, exactly as the teacher's secrets.go does.
type SecretBox struct {
	gcm cipher.AEAD
}

// NewSecretBox derives an AES-256 key from passphrase and builds the GCM
// cipher. The passphrase is process configuration (internal/config), never
// stored.
func NewSecretBox(passphrase string) (*SecretBox, error) {
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, komodoerr.Wrap(komodoerr.Storage, "store.NewSecretBox", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, komodoerr.Wrap(komodoerr.Storage, "store.NewSecretBox", err)
	}
	return &SecretBox{gcm: gcm}, nil
}

func (b *SecretBox) encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, b.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return b.gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (b *SecretBox) decrypt(data []byte) (string, error) {
	nonceSize := b.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := b.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// WithSecretBox attaches a SecretBox to the store, enabling the Secret CRUD
// methods below. Called once at startup after loading the encryption
// passphrase from config.
func (s *Store) WithSecretBox(b *SecretBox) *Store {
	s.secretBox = b
	return s
}

func (s *Store) requireSecretBox(op string) error {
	if s.secretBox == nil {
		return komodoerr.Wrap(komodoerr.Storage, op, fmt.Errorf("secret box not configured"))
	}
	return nil
}

// CreateSecret persists Meta in the Secret bucket and the encrypted value in
// the separate secret-values bucket.
func (s *Store) CreateSecret(v *domain.Secret) error {
	if err := s.requireSecretBox("store.CreateSecret"); err != nil {
		return err
	}
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	ciphertext, err := s.secretBox.encrypt(v.Value)
	if err != nil {
		return komodoerr.Wrap(komodoerr.Storage, "store.CreateSecret", err)
	}
	if err := put(s.db, bucketFor(domain.KindSecret), v.Id, v); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSecretValues).Put([]byte(v.Id), ciphertext)
	})
}

// UpdateSecret re-encrypts v.Value and rewrites both buckets.
func (s *Store) UpdateSecret(v *domain.Secret) error {
	if err := s.requireSecretBox("store.UpdateSecret"); err != nil {
		return err
	}
	v.UpdatedAt = time.Now()
	ciphertext, err := s.secretBox.encrypt(v.Value)
	if err != nil {
		return komodoerr.Wrap(komodoerr.Storage, "store.UpdateSecret", err)
	}
	if err := put(s.db, bucketFor(domain.KindSecret), v.Id, v); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSecretValues).Put([]byte(v.Id), ciphertext)
	})
}

// GetSecret loads Meta and decrypts Value. Used only by the interpolator
// (internal/interp) and admin-facing reveal paths — never logged.
func (s *Store) GetSecret(id string) (*domain.Secret, error) {
	if err := s.requireSecretBox("store.GetSecret"); err != nil {
		return nil, err
	}
	v, err := get[domain.Secret](s.db, bucketFor(domain.KindSecret), id)
	if err != nil {
		return nil, err
	}
	var ciphertext []byte
	err = s.db.View(func(tx *bolt.Tx) error {
		ciphertext = tx.Bucket(bucketSecretValues).Get([]byte(id))
		return nil
	})
	if err != nil {
		return nil, komodoerr.Wrap(komodoerr.Storage, "store.GetSecret", err)
	}
	if ciphertext == nil {
		return nil, komodoerr.Wrap(komodoerr.NotFound, "store.GetSecret", fmt.Errorf("secret value missing: %s", id))
	}
	plaintext, err := s.secretBox.decrypt(ciphertext)
	if err != nil {
		return nil, komodoerr.Wrap(komodoerr.Storage, "store.GetSecret", err)
	}
	v.Value = plaintext
	return v, nil
}

// GetSecretByName resolves Meta-only (no decrypt) for lookup-by-name flows
// that only need the id.
func (s *Store) GetSecretByName(name string) (*domain.Secret, error) {
	return getByName[domain.Secret](s.db, bucketFor(domain.KindSecret), name, func(v *domain.Secret) string { return v.Name })
}

// ListSecretMeta lists every Secret's Meta without decrypting values — used
// by resource listings where the plaintext is never needed.
func (s *Store) ListSecretMeta() ([]*domain.Secret, error) {
	return list[domain.Secret](s.db, bucketFor(domain.KindSecret))
}

// DeleteSecret removes both the Meta row and the encrypted value.
func (s *Store) DeleteSecret(id string) error {
	if err := del(s.db, bucketFor(domain.KindSecret), id); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSecretValues).Delete([]byte(id))
	})
}
