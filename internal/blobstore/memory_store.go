package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// MemoryStore keeps blobs in memory, addressed by their SHA-256 digest.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Publish implements `IBlobStore`. Publishing the same bytes twice yields the same identifier.
func (s *MemoryStore) Publish(ctx context.Context, contents []byte) (string, error) {
	if len(contents) == 0 {
		return "", fmt.Errorf("certificate cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	digest := sha256.Sum256(contents)
	cid := "sha256-" + hex.EncodeToString(digest[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blobs[cid]; !exists {
		s.blobs[cid] = append([]byte(nil), contents...)
	}

	return cid, nil
}

// Get returns a published blob.
func (s *MemoryStore) Get(cid string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[cid]
	return blob, ok
}
