package candidate

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// HybridMode selects how a Hybrid combines its parts.
type HybridMode string

const (
	// HybridSequential exhausts each part in declared order before starting the next.
	HybridSequential HybridMode = "sequential"
	// HybridCross yields outer+inner for every outer item (first part) and every inner
	// item (second part), the inner part varying fastest.
	HybridCross HybridMode = "cross"
)

// Hybrid combines sub-strategies. An empty Mode means HybridSequential.
type Hybrid struct {
	Mode  HybridMode
	Parts []Strategy
}

// Describe implements Strategy.
func (h Hybrid) Describe() string {
	names := make([]string, len(h.Parts))
	for i, p := range h.Parts {
		names[i] = p.Describe()
	}

	return fmt.Sprintf("hybrid-%s(%s)", h.mode(), strings.Join(names, ", "))
}

func (h Hybrid) mode() HybridMode {
	if h.Mode == "" {
		return HybridSequential
	}

	return h.Mode
}

func (h Hybrid) validate() error {
	switch h.mode() {
	case HybridSequential:
		if len(h.Parts) == 0 {
			return unsupported("hybrid strategy has no parts")
		}
	case HybridCross:
		if len(h.Parts) != 2 { //nolint:mnd // outer and inner
			return unsupported("cross hybrid needs exactly two parts, got %d", len(h.Parts))
		}
	default:
		return unsupported("unknown hybrid mode %q", h.Mode)
	}

	for _, p := range h.Parts {
		if p == nil {
			return unsupported("hybrid strategy has an empty part")
		}
	}

	return nil
}

func (h Hybrid) open(src Source) (Generator, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}

	if h.mode() == HybridCross {
		outer, err := h.Parts[0].open(src)
		if err != nil {
			return nil, err
		}

		return &crossGenerator{outer: outer, inner: h.Parts[1], src: src}, nil
	}

	parts := make([]Generator, 0, len(h.Parts))
	for _, p := range h.Parts {
		gen, err := p.open(src)
		if err != nil {
			for _, opened := range parts {
				_ = opened.Close()
			}

			return nil, err
		}

		parts = append(parts, gen)
	}

	return &chainGenerator{parts: parts}, nil
}

func (h Hybrid) keyspace(src Source) (*big.Int, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}

	total := new(big.Int)
	if h.mode() == HybridCross {
		total.SetInt64(1)
	}

	for _, p := range h.Parts {
		n, err := p.keyspace(src)
		if err != nil {
			return nil, err
		}

		if h.mode() == HybridCross {
			total.Mul(total, n)
		} else {
			total.Add(total, n)
		}
	}

	return total, nil
}

// chainGenerator concatenates generators, each drained before the next.
type chainGenerator struct {
	parts []Generator
	idx   int
	err   error
}

func (g *chainGenerator) Next() (string, bool) {
	for g.err == nil && g.idx < len(g.parts) {
		part := g.parts[g.idx]
		if s, ok := part.Next(); ok {
			return s, true
		}

		if err := part.Err(); err != nil {
			g.err = err

			break
		}

		g.idx++
	}

	return "", false
}

func (g *chainGenerator) Skip(n uint64) uint64 {
	var skipped uint64

	for skipped < n && g.err == nil && g.idx < len(g.parts) {
		part := g.parts[g.idx]
		skipped += part.Skip(n - skipped)

		if err := part.Err(); err != nil {
			g.err = err

			break
		}

		if skipped < n {
			g.idx++
		}
	}

	return skipped
}

func (g *chainGenerator) Err() error { return g.err }

func (g *chainGenerator) Close() error {
	errs := make([]error, 0, len(g.parts))
	for _, p := range g.parts {
		errs = append(errs, p.Close())
	}

	return errors.Join(errs...)
}

// crossGenerator reopens the inner strategy for every outer item.
type crossGenerator struct {
	outer Generator
	inner Strategy
	src   Source

	size   *big.Int // inner keyspace, computed on first skip
	cur    Generator
	prefix string
	done   bool
	err    error
}

func (g *crossGenerator) Next() (string, bool) {
	for !g.done {
		if g.cur != nil {
			if s, ok := g.cur.Next(); ok {
				return g.prefix + s, true
			}

			if !g.dropInner() {
				break
			}
		}

		if !g.nextOuter() {
			break
		}
	}

	return "", false
}

func (g *crossGenerator) Skip(n uint64) uint64 {
	var skipped uint64

	if g.done || n == 0 {
		return 0
	}

	if g.cur != nil {
		skipped = g.cur.Skip(n)
		if skipped == n {
			return n
		}

		if !g.dropInner() {
			return skipped
		}
	}

	size, err := g.innerSize()
	if err != nil {
		g.fail(err)

		return skipped
	}

	if size.Sign() == 0 {
		g.done = true

		return skipped
	}

	rest := n - skipped

	var whole, partial uint64
	if size.IsUint64() {
		whole, partial = rest/size.Uint64(), rest%size.Uint64()
	} else {
		partial = rest
	}

	if whole > 0 {
		done := g.outer.Skip(whole)
		skipped += done * size.Uint64()

		if err := g.outer.Err(); err != nil {
			g.fail(err)

			return skipped
		}

		if done < whole {
			g.done = true

			return skipped
		}
	}

	if partial > 0 {
		if !g.nextOuter() {
			return skipped
		}

		skipped += g.cur.Skip(partial)
	}

	return skipped
}

// nextOuter advances the outer generator and opens a fresh inner sequence.
func (g *crossGenerator) nextOuter() bool {
	p, ok := g.outer.Next()
	if !ok {
		if err := g.outer.Err(); err != nil {
			g.fail(err)
		}

		g.done = true

		return false
	}

	inner, err := g.inner.open(g.src)
	if err != nil {
		g.fail(err)

		return false
	}

	g.prefix = p
	g.cur = inner

	return true
}

// dropInner closes the current inner sequence, reporting false if it failed.
func (g *crossGenerator) dropInner() bool {
	err := g.cur.Err()
	_ = g.cur.Close()
	g.cur = nil

	if err != nil {
		g.fail(err)

		return false
	}

	return true
}

func (g *crossGenerator) innerSize() (*big.Int, error) {
	if g.size == nil {
		size, err := g.inner.keyspace(g.src)
		if err != nil {
			return nil, err
		}

		g.size = size
	}

	return g.size, nil
}

func (g *crossGenerator) fail(err error) {
	g.err = err
	g.done = true
}

func (g *crossGenerator) Err() error { return g.err }

func (g *crossGenerator) Close() error {
	g.done = true

	var errs []error
	if g.cur != nil {
		errs = append(errs, g.cur.Close())
		g.cur = nil
	}

	errs = append(errs, g.outer.Close())

	return errors.Join(errs...)
}
