package results

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps credentials in a sync.Map. LoadOrStore makes the first write for a
// fingerprint win atomically without a global lock.
type MemoryStore struct {
	found sync.Map // fingerprint -> FoundCredential
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record implements Store.
func (m *MemoryStore) Record(_ context.Context, fingerprint, plaintext string) error {
	if err := checkFingerprint(fingerprint); err != nil {
		return err
	}

	cred := FoundCredential{Fingerprint: fingerprint, Plaintext: plaintext, FoundAt: time.Now().UTC()}

	existing, loaded := m.found.LoadOrStore(fingerprint, cred)
	if !loaded {
		return nil
	}

	if prev, ok := existing.(FoundCredential); ok && prev.Plaintext != plaintext {
		return conflict(fingerprint, prev.Plaintext, plaintext)
	}

	return nil
}

// Lookup implements Store.
func (m *MemoryStore) Lookup(_ context.Context, fingerprint string) (*FoundCredential, error) {
	v, ok := m.found.Load(fingerprint)
	if !ok {
		return nil, nil
	}

	cred, _ := v.(FoundCredential)

	return &cred, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]FoundCredential, error) {
	var out []FoundCredential

	m.found.Range(func(_, v any) bool {
		if cred, ok := v.(FoundCredential); ok {
			out = append(out, cred)
		}

		return true
	})

	sortCredentials(out)

	return out, nil
}
