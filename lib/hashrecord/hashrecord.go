// Package hashrecord parses and serialises BitLocker credential hash records in the
// `$bitlocker$` text form produced by bitlocker2john and consumed by hashcat mode 22100.
package hashrecord

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/duke-git/lancet/v2/strutil"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
	"golang.org/x/crypto/blake2b"
)

const (
	// Tag is the literal tag that precedes the record fields.
	Tag = "bitlocker"

	fieldCount = 8 // Fields after the tag
	separator  = "$"
)

// Mode identifies which BitLocker protector the record was extracted for.
type Mode uint8

// Record modes, in the numeric order used by the text format.
const (
	UserPasswordFast Mode = iota
	UserPasswordVerified
	RecoveryPasswordFast
	RecoveryPasswordVerified
)

// String returns a short human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case UserPasswordFast:
		return "user-password-fast"
	case UserPasswordVerified:
		return "user-password-verified"
	case RecoveryPasswordFast:
		return "recovery-password-fast"
	case RecoveryPasswordVerified:
		return "recovery-password-verified"
	default:
		return "mode-" + strconv.Itoa(int(m))
	}
}

// RecoveryPassword reports whether the record targets the 48-digit recovery password.
func (m Mode) RecoveryPassword() bool {
	return m == RecoveryPasswordFast || m == RecoveryPasswordVerified
}

// Record is an immutable, parsed hash record. Declared lengths are not stored
// separately: they always equal the length of the decoded byte fields.
type Record struct {
	mode       Mode
	salt       []byte
	iterations uint64
	nonce      []byte
	payload    []byte
}

// Mode returns the record mode.
func (r *Record) Mode() Mode { return r.mode }

// Iterations returns the key-stretching iteration count.
func (r *Record) Iterations() uint64 { return r.iterations }

// Salt returns a copy of the salt bytes.
func (r *Record) Salt() []byte { return clone(r.salt) }

// Nonce returns a copy of the nonce bytes.
func (r *Record) Nonce() []byte { return clone(r.nonce) }

// Payload returns a copy of the MAC and encrypted VMK blob.
func (r *Record) Payload() []byte { return clone(r.payload) }

// String re-serialises the record in canonical form (base-10 numbers, lowercase hex).
func (r *Record) String() string {
	fields := []string{
		"",
		Tag,
		strconv.Itoa(int(r.mode)),
		strconv.Itoa(len(r.salt)),
		hex.EncodeToString(r.salt),
		strconv.FormatUint(r.iterations, 10),
		strconv.Itoa(len(r.nonce)),
		hex.EncodeToString(r.nonce),
		strconv.Itoa(len(r.payload)),
		hex.EncodeToString(r.payload),
	}

	return strings.Join(fields, separator)
}

// Fingerprint returns a stable identifier for the record: the hex BLAKE2b-256 digest of
// its canonical form. Results are keyed by it.
func (r *Record) Fingerprint() string {
	sum := blake2b.Sum256([]byte(r.String()))

	return hex.EncodeToString(sum[:])
}

// Parse parses a single `$bitlocker$` line. Surrounding whitespace is ignored. Any
// violation of the format fails with an error wrapping cserrors.ErrMalformedRecord and a
// nil record.
func Parse(line string) (*Record, error) {
	line = strings.TrimSpace(line)

	prefix := separator + Tag + separator
	if !strings.HasPrefix(line, prefix) {
		return nil, malformed("missing %q prefix", prefix)
	}

	fields := strings.Split(strings.TrimPrefix(line, prefix), separator)
	if len(fields) != fieldCount {
		return nil, malformed("expected %d fields after tag, got %d", fieldCount, len(fields))
	}

	mode, err := parseNumber("mode", fields[0])
	if err != nil {
		return nil, err
	}

	if mode > uint64(RecoveryPasswordVerified) {
		return nil, malformed("mode %d out of range 0-%d", mode, RecoveryPasswordVerified)
	}

	salt, err := parseBytes("salt", fields[1], fields[2])
	if err != nil {
		return nil, err
	}

	iterations, err := parseNumber("iterations", fields[3])
	if err != nil {
		return nil, err
	}

	if iterations == 0 {
		return nil, malformed("iterations must be greater than zero")
	}

	nonce, err := parseBytes("nonce", fields[4], fields[5])
	if err != nil {
		return nil, err
	}

	payload, err := parseBytes("payload", fields[6], fields[7])
	if err != nil {
		return nil, err
	}

	return &Record{
		mode:       Mode(mode),
		salt:       salt,
		iterations: iterations,
		nonce:      nonce,
		payload:    payload,
	}, nil
}

// Load reads the first record from r, skipping blank lines and `#` comments.
func Load(r io.Reader) (*Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strutil.IsBlank(line) || strings.HasPrefix(line, "#") {
			continue
		}

		// bitlocker2john prints "file:$bitlocker$..." style lines; keep only the hash.
		if idx := strings.Index(line, separator+Tag+separator); idx > 0 {
			line = line[idx:]
		}

		return Parse(line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading hash record: %w", err)
	}

	return nil, malformed("no record found")
}

// ParseFile loads the first record from the file at path.
func ParseFile(path string) (*Record, error) {
	f, err := os.Open(path) //nolint:gosec // Path is supplied by the operator
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

// ParseArg accepts either a literal record or a path to a file containing one.
func ParseArg(arg string) (*Record, error) {
	if strings.HasPrefix(strings.TrimSpace(arg), separator+Tag+separator) {
		return Parse(arg)
	}

	rec, err := ParseFile(arg)
	if err != nil && !errors.Is(err, cserrors.ErrMalformedRecord) {
		return nil, fmt.Errorf("%w: %q is neither a record nor a readable file: %w",
			cserrors.ErrMalformedRecord, arg, err)
	}

	return rec, err
}

// parseNumber parses a non-negative base-10 integer. Signs and whitespace are rejected;
// leading zeros are accepted and dropped when the record is rendered, as uppercase hex is.
func parseNumber(name, s string) (uint64, error) {
	if s == "" {
		return 0, malformed("%s is empty", name)
	}

	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, malformed("%s %q is not a non-negative integer", name, s)
		}
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, malformed("%s %q: %v", name, s, err)
	}

	return n, nil
}

// parseBytes decodes a hex field and checks it against its declared byte length.
func parseBytes(name, declared, hexValue string) ([]byte, error) {
	length, err := parseNumber(name+" length", declared)
	if err != nil {
		return nil, err
	}

	if len(hexValue)%2 != 0 {
		return nil, malformed("%s hex has odd length %d", name, len(hexValue))
	}

	b, err := hex.DecodeString(hexValue)
	if err != nil {
		return nil, malformed("%s is not valid hex: %v", name, err)
	}

	if uint64(len(b)) != length {
		return nil, malformed("%s declares %d bytes but decodes to %d", name, length, len(b))
	}

	return b, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", cserrors.ErrMalformedRecord, fmt.Sprintf(format, args...))
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)

	return out
}
