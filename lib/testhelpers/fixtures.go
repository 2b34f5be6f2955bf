// Package testhelpers provides reusable test utilities and helpers for testing bitrecover.
package testhelpers

import (
	"strconv"
	"strings"
	"testing"

	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
)

// Field values for a well-formed record. The payload is not a real VMK blob; the
// oracles under test are stubs or fake binaries.
const (
	SampleSalt    = "00112233445566778899aabbccddeeff"
	SampleNonce   = "a1b2c3d4e5f60718293a4b5c"
	SamplePayload = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f" +
		"202122232425262728292a2b2c2d2e2f303132333435363738393a3b"
	SampleIterations = 1048576
)

// SampleRecordLine returns a canonical record line for mode.
func SampleRecordLine(mode hashrecord.Mode) string {
	return "$" + hashrecord.Tag + "$" + strings.Join([]string{
		strconv.Itoa(int(mode)),
		"16", SampleSalt,
		strconv.Itoa(SampleIterations),
		"12", SampleNonce,
		"60", SamplePayload,
	}, "$")
}

// SampleRecord parses SampleRecordLine(mode), failing the test on error.
func SampleRecord(t *testing.T, mode hashrecord.Mode) *hashrecord.Record {
	t.Helper()

	rec, err := hashrecord.Parse(SampleRecordLine(mode))
	if err != nil {
		t.Fatalf("sample record: %v", err)
	}

	return rec
}
