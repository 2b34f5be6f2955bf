package candidate

import (
	"fmt"
	"math/big"

	"github.com/duke-git/lancet/v2/slice"
	"github.com/duke-git/lancet/v2/strutil"
)

const maxCustomCharsets = 9 // ?1 through ?9

// Built-in charsets, matching hashcat's definitions.
const (
	charsetLower   = "abcdefghijklmnopqrstuvwxyz"
	charsetUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	charsetDigits  = "0123456789"
	charsetSpecial = " !\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	charsetHexLow  = "0123456789abcdef"
	charsetHexUp   = "0123456789ABCDEF"
)

// Increment enumerates mask prefixes from Min to Max positions, shortest first,
// like hashcat's --increment.
type Increment struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Mask yields every combination of per-position charsets in odometer order: positions
// left to right, the right-most position varying fastest.
//
// Pattern uses hashcat syntax: ?l ?u ?d ?s ?a ?h ?H, ?1..?9 for the custom Charsets
// (which may themselves reference built-ins), ?? for a literal '?', and any other rune
// as a fixed position.
type Mask struct {
	Pattern   string
	Charsets  []string
	Increment *Increment
}

// Describe implements Strategy.
func (m Mask) Describe() string {
	if m.Increment != nil {
		return fmt.Sprintf("mask(%s, increment %d-%d)", m.Pattern, m.Increment.Min, m.Increment.Max)
	}

	return fmt.Sprintf("mask(%s)", m.Pattern)
}

func (m Mask) open(_ Source) (Generator, error) {
	positions, err := m.positions()
	if err != nil {
		return nil, err
	}

	lengths, err := m.lengths(len(positions))
	if err != nil {
		return nil, err
	}

	if len(lengths) == 1 {
		return newMaskGenerator(positions[:lengths[0]]), nil
	}

	parts := make([]Generator, len(lengths))
	for i, n := range lengths {
		parts[i] = newMaskGenerator(positions[:n])
	}

	return &chainGenerator{parts: parts}, nil
}

func (m Mask) keyspace(_ Source) (*big.Int, error) {
	positions, err := m.positions()
	if err != nil {
		return nil, err
	}

	lengths, err := m.lengths(len(positions))
	if err != nil {
		return nil, err
	}

	total := new(big.Int)
	for _, n := range lengths {
		total.Add(total, mixedRadixSize(positions[:n]))
	}

	return total, nil
}

// lengths returns the prefix lengths to enumerate.
func (m Mask) lengths(positions int) ([]int, error) {
	if m.Increment == nil {
		return []int{positions}, nil
	}

	lo, hi := m.Increment.Min, m.Increment.Max
	if lo == 0 {
		lo = 1
	}

	if hi == 0 {
		hi = positions
	}

	if lo < 1 || lo > hi || hi > positions {
		return nil, unsupported("increment %d-%d is outside mask length %d", lo, hi, positions)
	}

	out := make([]int, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		out = append(out, n)
	}

	return out, nil
}

// positions parses the pattern into one charset per position.
func (m Mask) positions() ([][]rune, error) {
	if strutil.IsBlank(m.Pattern) {
		return nil, unsupported("using mask attack, but no mask was given")
	}

	if len(m.Charsets) > maxCustomCharsets {
		return nil, unsupported("too many custom charsets supplied (%d), the max is %d", len(m.Charsets), maxCustomCharsets)
	}

	customs := make([][]rune, len(m.Charsets))
	for i, def := range m.Charsets {
		cs, err := expandCharset(def, nil)
		if err != nil {
			return nil, fmt.Errorf("custom charset %d: %w", i+1, err)
		}

		if len(cs) == 0 {
			return nil, unsupported("custom charset %d is empty", i+1)
		}

		customs[i] = cs
	}

	var positions [][]rune

	runes := []rune(m.Pattern)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '?' {
			positions = append(positions, []rune{runes[i]})

			continue
		}

		if i+1 >= len(runes) {
			return nil, unsupported("mask %q ends with a dangling '?'", m.Pattern)
		}

		i++

		cs, err := charsetFor(runes[i], customs)
		if err != nil {
			return nil, fmt.Errorf("mask %q: %w", m.Pattern, err)
		}

		positions = append(positions, cs)
	}

	return positions, nil
}

// expandCharset expands a charset definition that may reference built-ins (and, when
// customs is non-nil, custom charsets). The result is de-duplicated in first-seen order.
func expandCharset(def string, customs [][]rune) ([]rune, error) {
	var out []rune

	runes := []rune(def)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '?' {
			out = append(out, runes[i])

			continue
		}

		if i+1 >= len(runes) {
			return nil, unsupported("charset %q ends with a dangling '?'", def)
		}

		i++

		cs, err := charsetFor(runes[i], customs)
		if err != nil {
			return nil, err
		}

		out = append(out, cs...)
	}

	return slice.Unique(out), nil
}

func charsetFor(key rune, customs [][]rune) ([]rune, error) {
	switch key {
	case 'l':
		return []rune(charsetLower), nil
	case 'u':
		return []rune(charsetUpper), nil
	case 'd':
		return []rune(charsetDigits), nil
	case 's':
		return []rune(charsetSpecial), nil
	case 'a':
		return []rune(charsetLower + charsetUpper + charsetDigits + charsetSpecial), nil
	case 'h':
		return []rune(charsetHexLow), nil
	case 'H':
		return []rune(charsetHexUp), nil
	case '?':
		return []rune{'?'}, nil
	}

	if key >= '1' && key <= '9' {
		idx := int(key - '1')
		if idx < len(customs) && customs[idx] != nil {
			return customs[idx], nil
		}

		return nil, unsupported("custom charset ?%c is not defined", key)
	}

	return nil, unsupported("unknown charset ?%c", key)
}

func mixedRadixSize(positions [][]rune) *big.Int {
	total := big.NewInt(1)
	for _, cs := range positions {
		total.Mul(total, big.NewInt(int64(len(cs))))
	}

	return total
}

// maskGenerator is a mixed-radix counter over the position charsets.
type maskGenerator struct {
	positions [][]rune
	digits    []int
	buf       []rune
	done      bool
}

func newMaskGenerator(positions [][]rune) *maskGenerator {
	return &maskGenerator{
		positions: positions,
		digits:    make([]int, len(positions)),
		buf:       make([]rune, len(positions)),
		done:      len(positions) == 0,
	}
}

func (g *maskGenerator) Next() (string, bool) {
	if g.done {
		return "", false
	}

	for i, d := range g.digits {
		g.buf[i] = g.positions[i][d]
	}

	out := string(g.buf)
	g.advance()

	return out, true
}

// advance increments the odometer; rolling over the left-most position ends the sequence.
func (g *maskGenerator) advance() {
	for i := len(g.digits) - 1; i >= 0; i-- {
		g.digits[i]++
		if g.digits[i] < len(g.positions[i]) {
			return
		}

		g.digits[i] = 0
	}

	g.done = true
}

func (g *maskGenerator) Skip(n uint64) uint64 {
	if g.done || n == 0 {
		return 0
	}

	current := g.index()
	remaining := new(big.Int).Sub(mixedRadixSize(g.positions), current)
	step := new(big.Int).SetUint64(n)

	if step.Cmp(remaining) >= 0 {
		g.done = true

		return remaining.Uint64()
	}

	g.setIndex(current.Add(current, step))

	return n
}

// index returns the odometer reading as a single integer.
func (g *maskGenerator) index() *big.Int {
	idx := new(big.Int)
	for i, d := range g.digits {
		idx.Mul(idx, big.NewInt(int64(len(g.positions[i]))))
		idx.Add(idx, big.NewInt(int64(d)))
	}

	return idx
}

// setIndex sets the odometer from an integer below the keyspace size.
func (g *maskGenerator) setIndex(v *big.Int) {
	rest := new(big.Int).Set(v)
	digit := new(big.Int)

	for i := len(g.digits) - 1; i >= 0; i-- {
		radix := big.NewInt(int64(len(g.positions[i])))
		rest.DivMod(rest, radix, digit)
		g.digits[i] = int(digit.Int64())
	}
}

func (g *maskGenerator) Err() error   { return nil }
func (g *maskGenerator) Close() error { return nil }

