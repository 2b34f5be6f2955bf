package candidate

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/duke-git/lancet/v2/strutil"
	"gopkg.in/yaml.v3"
)

// Strategy types accepted in plans.
const (
	TypeDictionary = "dictionary"
	TypeRules      = "rules"
	TypeMask       = "mask"
	TypeHybrid     = "hybrid"
)

// Spec is the declarative, serialisable form of a Strategy. Plans are written in YAML
// and sessions persist the same structure as JSON.
//
//	type: hybrid
//	mode: cross
//	parts:
//	  - type: dictionary
//	    wordlist: words.txt
//	  - type: mask
//	    mask: "?d?d"
//	min_length: 8
//	max_length: 20
//
// Length bounds apply to the whole plan and are enforced by the runner, which still
// counts filtered candidates toward the checkpoint.
type Spec struct {
	Type      string     `json:"type"                 yaml:"type"`
	Wordlist  string     `json:"wordlist,omitempty"   yaml:"wordlist,omitempty"`
	Rules     string     `json:"rules,omitempty"      yaml:"rules,omitempty"`
	Mask      string     `json:"mask,omitempty"       yaml:"mask,omitempty"`
	Charsets  []string   `json:"charsets,omitempty"   yaml:"charsets,omitempty"`
	Increment *Increment `json:"increment,omitempty"  yaml:"increment,omitempty"`
	Mode      HybridMode `json:"mode,omitempty"       yaml:"mode,omitempty"`
	Parts     []Spec     `json:"parts,omitempty"      yaml:"parts,omitempty"`
	MinLength int        `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength int        `json:"max_length,omitempty" yaml:"max_length,omitempty"`
}

// Bounded reports whether the spec carries a length bound.
func (s Spec) Bounded() bool {
	return s.MinLength != 0 || s.MaxLength != 0
}

// Accepts reports whether c satisfies the length bounds. Lengths are counted in
// runes and a zero bound is open.
func (s Spec) Accepts(c string) bool {
	if !s.Bounded() {
		return true
	}

	n := utf8.RuneCountInString(c)
	if n < s.MinLength {
		return false
	}

	return s.MaxLength == 0 || n <= s.MaxLength
}

func (s Spec) checkLengths() error {
	if s.MinLength < 0 || s.MaxLength < 0 {
		return unsupported("length bounds must not be negative")
	}

	if s.MaxLength != 0 && s.MaxLength < s.MinLength {
		return unsupported("max_length %d is below min_length %d", s.MaxLength, s.MinLength)
	}

	return nil
}

// Build converts the spec into a Strategy, failing with cserrors.ErrUnsupportedStrategy
// when it is incomplete or inconsistent.
func (s Spec) Build() (Strategy, error) {
	if err := s.checkLengths(); err != nil {
		return nil, err
	}

	switch s.Type {
	case TypeDictionary:
		if strutil.IsBlank(s.Wordlist) {
			return nil, unsupported("dictionary strategy needs a wordlist")
		}

		return Dictionary{Wordlist: s.Wordlist}, nil
	case TypeRules:
		if strutil.IsBlank(s.Wordlist) || strutil.IsBlank(s.Rules) {
			return nil, unsupported("rules strategy needs a wordlist and a rule file")
		}

		return RuleMutated{Wordlist: s.Wordlist, Rules: s.Rules}, nil
	case TypeMask:
		m := Mask{Pattern: s.Mask, Charsets: s.Charsets, Increment: s.Increment}
		if _, err := m.positions(); err != nil {
			return nil, err
		}

		return m, nil
	case TypeHybrid:
		h := Hybrid{Mode: s.Mode, Parts: make([]Strategy, 0, len(s.Parts))}

		for i, part := range s.Parts {
			if part.Bounded() {
				return nil, unsupported("hybrid part %d: length bounds belong on the plan, not its parts", i+1)
			}

			built, err := part.Build()
			if err != nil {
				return nil, fmt.Errorf("hybrid part %d: %w", i+1, err)
			}

			h.Parts = append(h.Parts, built)
		}

		if err := h.validate(); err != nil {
			return nil, err
		}

		return h, nil
	case "":
		return nil, unsupported("strategy type is missing")
	default:
		return nil, unsupported("unknown strategy type %q", s.Type)
	}
}

// ParsePlan decodes a YAML plan and checks that it builds.
func ParsePlan(data []byte) (Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Spec{}, unsupported("invalid plan: %v", err)
	}

	if _, err := s.Build(); err != nil {
		return Spec{}, err
	}

	return s, nil
}

// LoadPlan reads and decodes a YAML plan file.
func LoadPlan(path string) (Spec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Operator supplied path
	if err != nil {
		return Spec{}, fmt.Errorf("reading plan %q: %w", path, err)
	}

	return ParsePlan(data)
}
