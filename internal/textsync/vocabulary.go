package textsync

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"murmur/internal/config"
)

// Vocabulary rewrites recurring misrecognitions to their canonical form
// before text reaches the sync engine: "a p i" becomes "API", "o auth"
// becomes "OAuth". Matching is case-insensitive; multi-word aliases are
// replaced first, longest first, so "yap a tron" wins over "a".
type Vocabulary struct {
	multi  []*multiAlias
	single map[string]string
}

type multiAlias struct {
	re   *regexp.Regexp
	word string
}

// NewVocabulary compiles the configured entries. Returns nil when there is
// nothing to substitute, and Apply on a nil Vocabulary is a no-op.
func NewVocabulary(entries []config.VocabularyEntry) *Vocabulary {
	v := &Vocabulary{single: make(map[string]string)}
	for _, e := range entries {
		if e.Word == "" {
			continue
		}
		for _, alias := range e.Aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			if strings.Contains(alias, " ") {
				re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(alias))
				if err != nil {
					continue
				}
				v.multi = append(v.multi, &multiAlias{re: re, word: e.Word})
			} else {
				v.single[alias] = e.Word
			}
		}
	}
	if len(v.multi) == 0 && len(v.single) == 0 {
		return nil
	}
	sort.SliceStable(v.multi, func(i, j int) bool {
		return len(v.multi[i].re.String()) > len(v.multi[j].re.String())
	})
	return v
}

// Apply returns text with every alias replaced by its canonical word.
// Punctuation attached to a word survives the replacement.
func (v *Vocabulary) Apply(text string) string {
	if v == nil || text == "" {
		return text
	}
	for _, m := range v.multi {
		text = m.re.ReplaceAllString(text, m.word)
	}
	if len(v.single) == 0 {
		return text
	}
	words := strings.Fields(text)
	for i, word := range words {
		prefix, core, suffix := splitPunct(word)
		if canonical, ok := v.single[strings.ToLower(core)]; ok {
			words[i] = prefix + canonical + suffix
		}
	}
	return strings.Join(words, " ")
}

// splitPunct peels leading and trailing non-alphanumeric runes off a word.
func splitPunct(word string) (prefix, core, suffix string) {
	runes := []rune(word)
	start := 0
	for start < len(runes) && !isWordRune(runes[start]) {
		start++
	}
	end := len(runes)
	for end > start && !isWordRune(runes[end-1]) {
		end--
	}
	return string(runes[:start]), string(runes[start:end]), string(runes[end:])
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
