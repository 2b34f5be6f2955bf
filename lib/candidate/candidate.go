// Package candidate produces lazy, resumable sequences of password candidates from
// dictionary, rule-mutated, mask and hybrid strategies.
//
// Every strategy defines one reproducible logical order. A checkpoint is an offset into
// that order, and resuming at offset k yields exactly the item a fresh generator yields
// after k calls to Next. Skips are arithmetic wherever the strategy allows it, so
// keyspaces far larger than memory (a 48-digit recovery password mask is 10^48 items)
// are never enumerated.
package candidate

import (
	"fmt"
	"math/big"

	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
)

// Strategy is a declarative candidate strategy. The set of implementations is closed:
// Dictionary, RuleMutated, Mask and Hybrid.
type Strategy interface {
	// Describe returns a short human-readable description used in logs and errors.
	Describe() string

	open(src Source) (Generator, error)
	keyspace(src Source) (*big.Int, error)
}

// Generator is a lazy candidate sequence. It is not safe for concurrent use.
type Generator interface {
	// Next returns the next candidate, or false when the sequence is exhausted or a read
	// error occurred (see Err).
	Next() (string, bool)
	// Skip advances past up to n candidates without producing them and returns how many
	// were actually skipped. A result below n means the sequence ended.
	Skip(n uint64) uint64
	// Err returns the first non-exhaustion error encountered.
	Err() error
	// Close releases any underlying readers.
	Close() error
}

// Generate opens strategy against src and positions the generator after checkpoint
// items. A checkpoint past the end of the sequence yields an exhausted generator.
func Generate(strategy Strategy, src Source, checkpoint uint64) (Generator, error) {
	if strategy == nil {
		return nil, fmt.Errorf("%w: no strategy given", cserrors.ErrUnsupportedStrategy)
	}

	gen, err := strategy.open(src)
	if err != nil {
		return nil, err
	}

	if checkpoint > 0 {
		gen.Skip(checkpoint)

		if err := gen.Err(); err != nil {
			_ = gen.Close()

			return nil, err
		}
	}

	return gen, nil
}

// Keyspace returns the exact number of candidates strategy produces. Masks are computed
// arithmetically; wordlists are counted by streaming, never by loading them.
func Keyspace(strategy Strategy, src Source) (*big.Int, error) {
	if strategy == nil {
		return nil, fmt.Errorf("%w: no strategy given", cserrors.ErrUnsupportedStrategy)
	}

	return strategy.keyspace(src)
}

// Collect drains up to limit candidates from gen into a slice. It exists for tests and
// small previews; callers must never use it on an unbounded keyspace without a limit.
func Collect(gen Generator, limit int) []string {
	var out []string

	for limit <= 0 || len(out) < limit {
		c, ok := gen.Next()
		if !ok {
			break
		}

		out = append(out, c)
	}

	return out
}

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", cserrors.ErrUnsupportedStrategy, fmt.Sprintf(format, args...))
}

// emptyGenerator is an exhausted sequence.
type emptyGenerator struct{}

func (emptyGenerator) Next() (string, bool) { return "", false }
func (emptyGenerator) Skip(uint64) uint64   { return 0 }
func (emptyGenerator) Err() error           { return nil }
func (emptyGenerator) Close() error         { return nil }
