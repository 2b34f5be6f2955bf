package candidate

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"slices"
	"strings"
	"unicode"

	"github.com/duke-git/lancet/v2/strutil"
)

// RuleMutated yields, for each wordlist entry, every rule transformation in rule-file
// order before advancing to the next entry.
type RuleMutated struct {
	Wordlist string
	Rules    string
}

// Describe implements Strategy.
func (r RuleMutated) Describe() string {
	return fmt.Sprintf("rules(%s x %s)", r.Wordlist, r.Rules)
}

func (r RuleMutated) open(src Source) (Generator, error) {
	rules, err := loadRulesRef(src, r.Rules)
	if err != nil {
		return nil, err
	}

	words, err := Dictionary{Wordlist: r.Wordlist}.open(src)
	if err != nil {
		return nil, err
	}

	return &ruleGenerator{words: words, rules: rules, next: len(rules)}, nil
}

func (r RuleMutated) keyspace(src Source) (*big.Int, error) {
	rules, err := loadRulesRef(src, r.Rules)
	if err != nil {
		return nil, err
	}

	words, err := countLines(src, r.Wordlist)
	if err != nil {
		return nil, err
	}

	n := new(big.Int).SetUint64(words)

	return n.Mul(n, big.NewInt(int64(len(rules)))), nil
}

// ruleGenerator walks words x rules with the rule index varying fastest.
type ruleGenerator struct {
	words Generator
	rules []Rule
	word  []rune
	next  int // index of the next rule to apply to word; len(rules) means "fetch a word"
}

func (g *ruleGenerator) Next() (string, bool) {
	if g.next >= len(g.rules) {
		w, ok := g.words.Next()
		if !ok {
			return "", false
		}

		g.word = []rune(w)
		g.next = 0
	}

	out := g.rules[g.next].Apply(g.word)
	g.next++

	return out, true
}

func (g *ruleGenerator) Skip(n uint64) uint64 {
	var skipped uint64

	perWord := uint64(len(g.rules))

	// Finish the rules left for the current word.
	if remaining := perWord - uint64(g.next); remaining > 0 {
		if n <= remaining {
			g.next += int(n)

			return n
		}

		skipped += remaining
		n -= remaining
		g.next = len(g.rules)
	}

	wholeWords := n / perWord
	done := g.words.Skip(wholeWords)
	skipped += done * perWord

	if done < wholeWords {
		return skipped
	}

	if partial := n % perWord; partial > 0 {
		w, ok := g.words.Next()
		if !ok {
			return skipped
		}

		g.word = []rune(w)
		g.next = int(partial)
		skipped += partial
	}

	return skipped
}

func (g *ruleGenerator) Err() error   { return g.words.Err() }
func (g *ruleGenerator) Close() error { return g.words.Close() }

// Rule is a parsed hashcat-compatible rule: a sequence of functions applied left to right.
// Rules never reject a word, so every (word, rule) pair yields exactly one candidate.
type Rule struct {
	text string
	ops  []ruleOp
}

type ruleOp struct {
	fn   rune
	a, b rune
	n    int
}

// String returns the rule as written.
func (r Rule) String() string { return r.text }

// Apply transforms word and returns the mutated candidate.
func (r Rule) Apply(word []rune) string {
	w := slices.Clone(word)
	for _, op := range r.ops {
		w = op.apply(w)
	}

	return string(w)
}

// ruleArity is the number of argument runes each supported function consumes, split
// into positional (N) and character (X) arguments.
var ruleArity = map[rune]struct{ pos, chars int }{ //nolint:gochecknoglobals // Static rule table
	':': {}, 'l': {}, 'u': {}, 'c': {}, 'C': {}, 't': {}, 'r': {}, 'd': {}, 'f': {},
	'{': {}, '}': {}, '[': {}, ']': {}, 'q': {}, 'E': {},
	'T': {pos: 1}, 'p': {pos: 1}, 'D': {pos: 1}, '\'': {pos: 1}, 'z': {pos: 1}, 'Z': {pos: 1},
	'$': {chars: 1}, '^': {chars: 1}, '@': {chars: 1},
	's': {chars: 2},
}

// ParseRule parses a single rule line. Unsupported functions fail with
// cserrors.ErrUnsupportedStrategy.
func ParseRule(line string) (Rule, error) {
	runes := []rune(line)
	rule := Rule{text: line}

	for i := 0; i < len(runes); {
		fn := runes[i]
		i++

		if fn == ' ' || fn == '\t' {
			continue
		}

		arity, ok := ruleArity[fn]
		if !ok {
			return Rule{}, unsupported("rule %q: unsupported function %q", line, fn)
		}

		op := ruleOp{fn: fn}

		if arity.pos > 0 {
			if i >= len(runes) {
				return Rule{}, unsupported("rule %q: function %q needs a position", line, fn)
			}

			n, ok := rulePosition(runes[i])
			if !ok {
				return Rule{}, unsupported("rule %q: invalid position %q", line, runes[i])
			}

			op.n = n
			i++
		}

		if arity.chars > 0 {
			if i+arity.chars > len(runes) {
				return Rule{}, unsupported("rule %q: function %q needs %d argument(s)", line, fn, arity.chars)
			}

			op.a = runes[i]
			if arity.chars > 1 {
				op.b = runes[i+1]
			}

			i += arity.chars
		}

		rule.ops = append(rule.ops, op)
	}

	return rule, nil
}

// LoadRules parses a rule file: one rule per line, blank lines and `#` comments skipped.
func LoadRules(r io.Reader) ([]Rule, error) {
	var rules []Rule

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strutil.IsBlank(line) || strings.HasPrefix(line, "#") {
			continue
		}

		rule, err := ParseRule(line)
		if err != nil {
			return nil, err
		}

		rules = append(rules, rule)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}

	if len(rules) == 0 {
		return nil, unsupported("rule file contains no rules")
	}

	return rules, nil
}

func loadRulesRef(src Source, ref string) ([]Rule, error) {
	rc, err := src.Open(ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	rules, err := LoadRules(rc)
	if err != nil {
		return nil, fmt.Errorf("rules %q: %w", ref, err)
	}

	return rules, nil
}

// rulePosition decodes hashcat's 0-9A-Z position notation.
func rulePosition(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 10, true
	default:
		return 0, false
	}
}

func (op ruleOp) apply(w []rune) []rune {
	switch op.fn {
	case ':':
		return w
	case 'l':
		return []rune(strings.ToLower(string(w)))
	case 'u':
		return []rune(strings.ToUpper(string(w)))
	case 'c':
		w = []rune(strings.ToLower(string(w)))
		if len(w) > 0 {
			w[0] = unicode.ToUpper(w[0])
		}

		return w
	case 'C':
		w = []rune(strings.ToUpper(string(w)))
		if len(w) > 0 {
			w[0] = unicode.ToLower(w[0])
		}

		return w
	case 't':
		for i := range w {
			w[i] = toggle(w[i])
		}

		return w
	case 'T':
		if op.n < len(w) {
			w[op.n] = toggle(w[op.n])
		}

		return w
	case 'r':
		slices.Reverse(w)

		return w
	case 'd':
		return append(w, w...)
	case 'p':
		out := slices.Clone(w)
		for range op.n {
			out = append(out, w...)
		}

		return out
	case 'f':
		rev := slices.Clone(w)
		slices.Reverse(rev)

		return append(w, rev...)
	case '{':
		if len(w) > 1 {
			w = append(w[1:], w[0])
		}

		return w
	case '}':
		if len(w) > 1 {
			w = append([]rune{w[len(w)-1]}, w[:len(w)-1]...)
		}

		return w
	case '$':
		return append(w, op.a)
	case '^':
		return append([]rune{op.a}, w...)
	case '[':
		if len(w) > 0 {
			return w[1:]
		}

		return w
	case ']':
		if len(w) > 0 {
			return w[:len(w)-1]
		}

		return w
	case 'D':
		if op.n < len(w) {
			return slices.Delete(w, op.n, op.n+1)
		}

		return w
	case '\'':
		if op.n < len(w) {
			return w[:op.n]
		}

		return w
	case 's':
		for i := range w {
			if w[i] == op.a {
				w[i] = op.b
			}
		}

		return w
	case '@':
		return slices.DeleteFunc(w, func(r rune) bool { return r == op.a })
	case 'z':
		if len(w) == 0 {
			return w
		}

		return append(slices.Repeat([]rune{w[0]}, op.n), w...)
	case 'Z':
		if len(w) == 0 {
			return w
		}

		return append(w, slices.Repeat([]rune{w[len(w)-1]}, op.n)...)
	case 'q':
		out := make([]rune, 0, 2*len(w))
		for _, r := range w {
			out = append(out, r, r)
		}

		return out
	case 'E':
		w = []rune(strings.ToLower(string(w)))
		for i := range w {
			if i == 0 || w[i-1] == ' ' {
				w[i] = unicode.ToUpper(w[i])
			}
		}

		return w
	default:
		return w
	}
}

func toggle(r rune) rune {
	if unicode.IsUpper(r) {
		return unicode.ToLower(r)
	}

	return unicode.ToUpper(r)
}
