// Package results stores recovered credentials keyed by hash record fingerprint.
//
// Stores are append-only: recording the same plaintext twice is a no-op, and recording
// a different plaintext for a known fingerprint fails with cserrors.ErrConflictingResult
// instead of overwriting.
package results

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/duke-git/lancet/v2/strutil"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
)

// FoundCredential is a recovered plaintext for one hash record.
type FoundCredential struct {
	Fingerprint string    `json:"fingerprint"`
	Plaintext   string    `json:"plaintext"`
	FoundAt     time.Time `json:"found_at"`
}

// Store is safe for concurrent use. Writes for one fingerprint are serialised; distinct
// fingerprints never block each other beyond what the backend requires.
type Store interface {
	// Record stores plaintext for fingerprint.
	Record(ctx context.Context, fingerprint, plaintext string) error
	// Lookup returns the credential for fingerprint, or nil when none is recorded.
	Lookup(ctx context.Context, fingerprint string) (*FoundCredential, error)
	// List returns every recorded credential, oldest first.
	List(ctx context.Context) ([]FoundCredential, error)
}

func conflict(fingerprint, existing, plaintext string) error {
	return fmt.Errorf("%w: fingerprint %s already recorded with a different plaintext (%d vs %d chars)",
		cserrors.ErrConflictingResult, fingerprint, len([]rune(existing)), len([]rune(plaintext)))
}

func checkFingerprint(fingerprint string) error {
	if strutil.IsBlank(fingerprint) {
		return fmt.Errorf("%w: empty fingerprint", cserrors.ErrMalformedRecord)
	}

	return nil
}

func sortCredentials(out []FoundCredential) {
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FoundAt.Equal(out[j].FoundAt) {
			return out[i].Fingerprint < out[j].Fingerprint
		}

		return out[i].FoundAt.Before(out[j].FoundAt)
	})
}
