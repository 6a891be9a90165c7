// Package postedit cleans raw model output before it is returned to clients.
//
// Each direction has an ordered list of regex substitutions. The list is
// applied until the text stops changing, then the first letter is
// upper-cased and a final period is added when terminal punctuation is
// missing. Running Clean on its own output is a no-op.
package postedit

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/basaa-mt/translator-api/internal/direction"
	"github.com/basaa-mt/translator-api/pkg/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RE2 \w and \b are ASCII only; Basaa and French output is not.
const (
	word    = `[\p{L}\p{N}_]`
	nonWord = `[^\p{L}\p{N}_]`
	space   = `[\s\p{Zs}]`
)

// Rule is a single substitution. Replacement uses regexp.Expand syntax.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

func rule(name, pattern, replacement string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Replacement: replacement}
}

var (
	mergeSubword  = rule("merge-subword", `(`+word+`+)`+space+`+##`, `${1}`)
	dropBPEMarker = rule("drop-bpe-marker", `@@`+space+`+`, ``)
	punctSpacing  = rule("punct-spacing", space+`+([.,;!?])`, `${1}`)
	joinHyphen    = rule("join-hyphen", `(`+word+`)`+space+`+-`+space+`+(`+word+`)`, `${1}-${2}`)
)

// repeated builds a rule collapsing "phrase phrase-tail" at word boundaries.
func repeated(name, pattern, replacement string) Rule {
	return rule(name, `(^|`+nonWord+`)`+pattern+`(`+nonWord+`|$)`, `${1}`+replacement+`${2}`)
}

var rules = map[direction.Direction][]Rule{
	direction.FrenchToBasaa: {
		mergeSubword,
		dropBPEMarker,
		punctSpacing,
		joinHyphen,
	},
	direction.BasaaToFrench: {
		mergeSubword,
		dropBPEMarker,
		joinHyphen,
		repeated("je-vous-vous", `je`+space+`+vous`+space+`+vous`, `je vous`),
		repeated("tu-tu", `tu`+space+`+tu`, `tu`),
		repeated("ils-ils", `ils`+space+`+ils`, `ils`),
	},
}

// Rules returns the substitution list for d, nil for unknown directions.
func Rules(d direction.Direction) []Rule {
	return rules[d]
}

// Clean post-edits text produced for direction d.
func Clean(text string, d direction.Direction) string {
	if text == "" {
		return text
	}
	text = applyRules(text, Rules(d))
	text = strings.TrimSpace(text)
	text = capitalize(text, d.Target())
	text = ensureTerminalPunctuation(text)
	return text
}

// applyRules runs the ordered list until a fixpoint. Every rule shortens the
// text when it fires, so the loop terminates.
func applyRules(text string, list []Rule) string {
	for {
		next := text
		for _, r := range list {
			out := r.Pattern.ReplaceAllString(next, r.Replacement)
			if out != next {
				log.Debug("Post-edit rule %s applied", r.Name)
			}
			next = out
		}
		if next == text {
			return text
		}
		text = next
	}
}

// capitalize upper-cases the first letter using the casing rules of lang.
// An undetermined tag gives the default Unicode mapping.
func capitalize(text string, lang language.Tag) string {
	if text == "" {
		return text
	}
	first, size := utf8.DecodeRuneInString(text)
	if !unicode.IsLetter(first) {
		return text
	}
	// Casers carry state; build one per call.
	return cases.Upper(lang).String(text[:size]) + text[size:]
}

func ensureTerminalPunctuation(text string) string {
	if text == "" {
		return text
	}
	switch text[len(text)-1] {
	case '.', '!', '?':
		return text
	}
	return text + "."
}
