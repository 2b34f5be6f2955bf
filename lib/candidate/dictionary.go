package candidate

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const maxLineLength = 1 << 20 // Longest accepted wordlist line

// Dictionary yields every line of a wordlist in file order.
type Dictionary struct {
	Wordlist string
}

// Describe implements Strategy.
func (d Dictionary) Describe() string {
	return fmt.Sprintf("dictionary(%s)", d.Wordlist)
}

func (d Dictionary) open(src Source) (Generator, error) {
	rc, err := src.Open(d.Wordlist)
	if err != nil {
		return nil, err
	}

	return newLineGenerator(rc), nil
}

func (d Dictionary) keyspace(src Source) (*big.Int, error) {
	n, err := countLines(src, d.Wordlist)
	if err != nil {
		return nil, err
	}

	return new(big.Int).SetUint64(n), nil
}

// lineGenerator streams lines from a reader. Trailing carriage returns are stripped so
// wordlists written on Windows produce the same candidates.
type lineGenerator struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
	err     error
	done    bool
}

func newLineGenerator(rc io.ReadCloser) *lineGenerator {
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	return &lineGenerator{rc: rc, scanner: scanner}
}

func (g *lineGenerator) Next() (string, bool) {
	if g.done {
		return "", false
	}

	if !g.scanner.Scan() {
		g.finish()

		return "", false
	}

	return strings.TrimSuffix(g.scanner.Text(), "\r"), true
}

func (g *lineGenerator) Skip(n uint64) uint64 {
	var skipped uint64

	for skipped < n && !g.done {
		if !g.scanner.Scan() {
			g.finish()

			break
		}

		skipped++
	}

	return skipped
}

func (g *lineGenerator) finish() {
	g.done = true
	if err := g.scanner.Err(); err != nil {
		g.err = fmt.Errorf("reading wordlist: %w", err)
	}
}

func (g *lineGenerator) Err() error { return g.err }

func (g *lineGenerator) Close() error {
	g.done = true

	return g.rc.Close()
}

// countLines counts the items a lineGenerator would produce for ref.
func countLines(src Source, ref string) (uint64, error) {
	rc, err := src.Open(ref)
	if err != nil {
		return 0, err
	}

	gen := newLineGenerator(rc)
	defer func() { _ = gen.Close() }()

	n := gen.Skip(^uint64(0))

	return n, gen.Err()
}
