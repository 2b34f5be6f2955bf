package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/candidate"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
)

// strategyFlags turns command line options into a candidate.Spec. A wordlist and a mask
// together make a hybrid.
type strategyFlags struct {
	plan      string
	wordlist  string
	rules     string
	mask      string
	charsets  []string
	incMin    int
	incMax    int
	hybrid    string
	maskFirst bool
	minLength int
	maxLength int
}

func (f *strategyFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.plan, "plan", "p", "", "YAML strategy plan file")
	flags.StringVarP(&f.wordlist, "wordlist", "w", "", "Wordlist, relative to files_path")
	flags.StringVarP(&f.rules, "rules", "r", "", "Rule file applied to the wordlist")
	flags.StringVarP(&f.mask, "mask", "m", "", "hashcat-style mask, e.g. ?u?l?l?l?d?d")
	flags.StringArrayVarP(&f.charsets, "charset", "c", nil, "Custom charset for ?1..?9, repeatable")
	flags.IntVar(&f.incMin, "increment-min", 0, "Shortest mask prefix to try")
	flags.IntVar(&f.incMax, "increment-max", 0, "Longest mask prefix to try")
	flags.StringVar(&f.hybrid, "hybrid", string(candidate.HybridCross), "How a wordlist and a mask combine: cross or sequential")
	flags.BoolVar(&f.maskFirst, "mask-first", false, "Put the mask before the wordlist in a hybrid")
	flags.IntVar(&f.minLength, "min-length", 0, "Skip candidates shorter than this many characters")
	flags.IntVar(&f.maxLength, "max-length", 0, "Skip candidates longer than this many characters (0 for no limit)")
}

func (f *strategyFlags) spec() (candidate.Spec, error) {
	if f.plan != "" {
		if f.wordlist != "" || f.rules != "" || f.mask != "" {
			return candidate.Spec{}, fmt.Errorf("%w: --plan cannot be combined with other strategy flags", cserrors.ErrUnsupportedStrategy)
		}

		spec, err := candidate.LoadPlan(f.plan)
		if err != nil {
			return candidate.Spec{}, err
		}

		return f.bound(spec)
	}

	var parts []candidate.Spec

	switch {
	case f.wordlist != "" && f.rules != "":
		parts = append(parts, candidate.Spec{Type: candidate.TypeRules, Wordlist: f.wordlist, Rules: f.rules})
	case f.wordlist != "":
		parts = append(parts, candidate.Spec{Type: candidate.TypeDictionary, Wordlist: f.wordlist})
	case f.rules != "":
		return candidate.Spec{}, fmt.Errorf("%w: --rules needs --wordlist", cserrors.ErrUnsupportedStrategy)
	}

	if f.mask != "" {
		maskSpec := candidate.Spec{Type: candidate.TypeMask, Mask: f.mask, Charsets: f.charsets}
		if f.incMin > 0 || f.incMax > 0 {
			maskSpec.Increment = &candidate.Increment{Min: f.incMin, Max: f.incMax}
		}

		if f.maskFirst {
			parts = append([]candidate.Spec{maskSpec}, parts...)
		} else {
			parts = append(parts, maskSpec)
		}
	} else if len(f.charsets) > 0 || f.incMin > 0 || f.incMax > 0 {
		return candidate.Spec{}, fmt.Errorf("%w: --charset and --increment-* need --mask", cserrors.ErrUnsupportedStrategy)
	}

	var spec candidate.Spec

	switch len(parts) {
	case 0:
		return candidate.Spec{}, fmt.Errorf("%w: give --plan, --wordlist or --mask", cserrors.ErrUnsupportedStrategy)
	case 1:
		spec = parts[0]
	default:
		spec = candidate.Spec{Type: candidate.TypeHybrid, Mode: candidate.HybridMode(f.hybrid), Parts: parts}
	}

	return f.bound(spec)
}

// bound applies --min-length and --max-length, which override a plan's bounds when given.
func (f *strategyFlags) bound(spec candidate.Spec) (candidate.Spec, error) {
	if f.minLength != 0 {
		spec.MinLength = f.minLength
	}

	if f.maxLength != 0 {
		spec.MaxLength = f.maxLength
	}

	if _, err := spec.Build(); err != nil {
		return candidate.Spec{}, err
	}

	return spec, nil
}

func fileSource() candidate.DirSource {
	return candidate.DirSource{Root: appstate.State.FilePath}
}
