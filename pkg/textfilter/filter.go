package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// softer maps words that are cleaned from dialogue in filtered ratings to the
// word that replaces them.
var softer = map[string]string{
	"fuck":         "fudge",
	"fucking":      "freaking",
	"shit":         "shoot",
	"damn":         "dang",
	"goddamn":      "gosh-dang",
	"hell":         "heck",
	"ass":          "butt",
	"asshole":      "jerk",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "ticked",
	"dick":         "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douche":       "jerk",
	"douchebag":    "jerk",
	"motherfucker": "mother-trucker",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"dumbass":      "dummy",
	"dipshit":      "dummy",
	"jackass":      "jerk",
	"smartass":     "smarty",
	"badass":       "tough",
	"shithead":     "jerk",
	"jesus christ": "jeez",
	"christ":       "crikey",
	"cock":         "[censored]",
	"pussy":        "[censored]",
	"tits":         "[censored]",
	"boobs":        "[censored]",
	"whore":        "[censored]",
	"slut":         "[censored]",
	"fag":          "[censored]",
	"retard":       "[censored]",
	"nigger":       "[censored]",
	"nigga":        "[censored]",
	"spic":         "[censored]",
	"chink":        "[censored]",
	"kike":         "[censored]",
}

type pattern struct {
	word string
	re   *regexp.Regexp
}

// Filter replaces profanity in player messages and generated NPC dialogue.
// A Filter is safe for concurrent use.
type Filter struct {
	patterns []pattern
}

// New compiles the word list. Longer words are tried first so that
// "motherfucker" is not half-replaced by "fuck".
func New() *Filter {
	words := make([]string, 0, len(softer))
	for w := range softer {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})

	f := &Filter{patterns: make([]pattern, 0, len(words))}
	for _, w := range words {
		// optional plural suffix, captured so it can be carried over
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `(e?s)?\b`)
		f.patterns = append(f.patterns, pattern{word: w, re: re})
	}
	return f
}

// Clean returns text with every listed word replaced by its softer form.
// The case shape of the original word is kept.
func (f *Filter) Clean(text string) string {
	result := text
	for _, p := range f.patterns {
		replacement := softer[p.word]
		result = p.re.ReplaceAllStringFunc(result, func(match string) string {
			base, suffix := match[:len(p.word)], match[len(p.word):]
			out := preserveCase(base, replacement)
			if suffix != "" && !strings.HasPrefix(replacement, "[") {
				out += pluralSuffix(replacement, suffix)
			}
			return out
		})
	}
	return result
}

// Contains reports whether text has any listed word.
func (f *Filter) Contains(text string) bool {
	for _, p := range f.patterns {
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}

// ForRating cleans text when the rating calls for it and returns it
// unchanged otherwise.
func (f *Filter) ForRating(rating, text string) string {
	if !AppliesTo(rating) {
		return text
	}
	return f.Clean(text)
}

// AppliesTo reports whether dialogue at rating is filtered. Everything up to
// and including PG-13 is.
func AppliesTo(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	default:
		return false
	}
}

func pluralSuffix(replacement, suffix string) string {
	s := "s"
	if strings.HasSuffix(replacement, "s") || strings.HasSuffix(replacement, "sh") {
		s = "es"
	}
	if strings.ToUpper(suffix) == suffix {
		return strings.ToUpper(s)
	}
	return s
}

// preserveCase applies the case shape of original to replacement.
func preserveCase(original, replacement string) string {
	if original == "" {
		return replacement
	}
	if strings.ToUpper(original) == original {
		return strings.ToUpper(replacement)
	}
	if strings.ToLower(original) == original {
		return strings.ToLower(replacement)
	}

	title := cases.Title(language.English)
	if title.String(strings.ToLower(original)) == original {
		return title.String(replacement)
	}

	// mixed case, position by position
	orig := []rune(original)
	out := []rune(replacement)
	for i := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(out[i])
		} else {
			out[i] = unicode.ToLower(out[i])
		}
	}
	return string(out)
}
