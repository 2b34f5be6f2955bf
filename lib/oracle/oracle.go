// Package oracle defines the verification contract between the attack runner and the
// external tools that decide whether a candidate unlocks a hash record.
package oracle

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
)

const (
	batchFilePermissions = 0o600
	hexPrefix            = "$HEX["
)

// Verifier checks a batch of candidates against a record. It returns the matching
// candidate and true on success, or false when no candidate in the batch matches.
// Transient failures (crashes, bad exit codes) should wrap cserrors.ErrOracleFailure.
type Verifier interface {
	Verify(ctx context.Context, record *hashrecord.Record, batch []string) (string, bool, error)
}

// VerifyFunc adapts a function to the Verifier interface.
type VerifyFunc func(ctx context.Context, record *hashrecord.Record, batch []string) (string, bool, error)

// Verify calls f.
func (f VerifyFunc) Verify(ctx context.Context, record *hashrecord.Record, batch []string) (string, bool, error) {
	return f(ctx, record, batch)
}

// CheckMatch returns an oracle failure when match is not one of the submitted candidates.
func CheckMatch(match string, batch []string) error {
	if !slices.Contains(batch, match) {
		return fmt.Errorf("%w: reported match %q was not in the submitted batch", cserrors.ErrOracleFailure, match)
	}

	return nil
}

// WriteBatch writes the candidates to a new wordlist file in dir, one $HEX[..] line per
// candidate. hashcat and john both decode the encoding, so newlines, separators and
// literal $HEX[..] text reach the tool byte for byte. The caller removes the file.
func WriteBatch(dir string, batch []string) (string, error) {
	var sb strings.Builder
	for _, c := range batch {
		sb.WriteString(EncodeCandidate(c))
		sb.WriteByte('\n')
	}

	return writeTemp(dir, "batch-*.txt", sb.String())
}

// WriteHashFile writes the record in the form hashcat and john read.
func WriteHashFile(dir string, record *hashrecord.Record) (string, error) {
	return writeTemp(dir, "hash-*.txt", record.String()+"\n")
}

// EncodeCandidate returns c in the $HEX[..] wordlist notation.
func EncodeCandidate(c string) string {
	return hexPrefix + hex.EncodeToString([]byte(c)) + "]"
}

func writeTemp(dir, pattern, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: creating work directory: %w", cserrors.ErrOracleFailure, err)
	}

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("%w: creating %s: %w", cserrors.ErrOracleFailure, pattern, err)
	}

	_, writeErr := f.WriteString(content)
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if writeErr == nil {
		writeErr = os.Chmod(f.Name(), batchFilePermissions)
	}

	if writeErr != nil {
		_ = os.Remove(f.Name())

		return "", fmt.Errorf("%w: writing %s: %w", cserrors.ErrOracleFailure, f.Name(), writeErr)
	}

	return f.Name(), nil
}
