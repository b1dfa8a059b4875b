package tokenizer

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/samcharles93/tokengen/internal/vocab"
)

// FragmentKind says how a fragment's id was obtained.
type FragmentKind uint8

const (
	// KindWord is a whole word found in the vocabulary.
	KindWord FragmentKind = iota
	// KindPiece is a merged sub-word unit found in the vocabulary.
	KindPiece
	// KindHashed is a sub-word unit mapped through vocab.HashFallback.
	KindHashed
	// KindSeparator is the token emitted between two words.
	KindSeparator
)

func (k FragmentKind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindPiece:
		return "piece"
	case KindHashed:
		return "hashed"
	case KindSeparator:
		return "separator"
	default:
		return "unknown"
	}
}

// Fragment is one resolved unit of segmented text.
type Fragment struct {
	Text string
	ID   int
	Kind FragmentKind
}

// MergeRules is the set of pair concatenations the segmenter may form.
type MergeRules map[string]struct{}

// DefaultMergeRules are the pair merges applied to words missing from the
// vocabulary.
var DefaultMergeRules = NewMergeRules("th", "he", "in", "er", "an", "re", "on", "at", "en", "nd", "es")

// NewMergeRules builds a rule set from merged pair strings.
func NewMergeRules(pairs ...string) MergeRules {
	r := make(MergeRules, len(pairs))
	for _, p := range pairs {
		r[p] = struct{}{}
	}
	return r
}

// Has reports whether merged is a permitted concatenation.
func (r MergeRules) Has(merged string) bool {
	_, ok := r[merged]
	return ok
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

// SplitWords returns the maximal runs of non-separator characters in text.
// Only space, tab and newline separate words.
func SplitWords(text string) []string {
	return strings.FieldsFunc(text, isSeparator)
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// MergePairs repeatedly merges the leftmost adjacent pair whose concatenation
// is in rules, rescanning from the start after every merge, until a full scan
// finds nothing. The input slice is not modified.
func MergePairs(frags []string, rules MergeRules) []string {
	word := append([]string(nil), frags...)
	for {
		i := firstMerge(word, rules)
		if i < 0 {
			return word
		}
		word = mergeAt(word, i)
	}
}

func firstMerge(word []string, rules MergeRules) int {
	for i := 0; i+1 < len(word); i++ {
		if rules.Has(word[i] + word[i+1]) {
			return i
		}
	}
	return -1
}

func mergeAt(word []string, i int) []string {
	word[i] += word[i+1]
	copy(word[i+1:], word[i+2:])
	return word[:len(word)-1]
}

// Segmenter turns text into resolved fragments for one vocabulary.
// It is safe for concurrent use.
type Segmenter struct {
	vocab *vocab.Vocabulary
	rules MergeRules
	cache *lru.Cache[string, []Fragment]
}

// NewSegmenter creates a segmenter. A cacheSize of zero or less disables the
// per-word cache.
func NewSegmenter(v *vocab.Vocabulary, rules MergeRules, cacheSize int) *Segmenter {
	if rules == nil {
		rules = DefaultMergeRules
	}
	s := &Segmenter{vocab: v, rules: rules}
	if cacheSize > 0 {
		if c, err := lru.New[string, []Fragment](cacheSize); err == nil {
			s.cache = c
		}
	}
	return s
}

// Segment splits text into words and resolves each one, inserting a separator
// fragment between consecutive words.
func (s *Segmenter) Segment(text string) []Fragment {
	words := SplitWords(text)
	if len(words) == 0 {
		return nil
	}
	out := make([]Fragment, 0, 2*len(words))
	sep := s.separator()
	for i, w := range words {
		out = append(out, s.Word(w)...)
		if i < len(words)-1 {
			out = append(out, sep)
		}
	}
	return out
}

// Word resolves a single word, falling back to merged sub-word units.
// The returned slice must not be modified.
func (s *Segmenter) Word(w string) []Fragment {
	if s.cache != nil {
		if frags, ok := s.cache.Get(w); ok {
			return frags
		}
	}
	frags := s.resolveWord(w)
	if s.cache != nil {
		s.cache.Add(w, frags)
	}
	return frags
}

func (s *Segmenter) resolveWord(w string) []Fragment {
	if id, ok := s.vocab.Resolve(w); ok {
		return []Fragment{{Text: w, ID: id, Kind: KindWord}}
	}
	pieces := MergePairs(splitRunes(w), s.rules)
	frags := make([]Fragment, len(pieces))
	for i, p := range pieces {
		if id, ok := s.vocab.Resolve(p); ok {
			frags[i] = Fragment{Text: p, ID: id, Kind: KindPiece}
			continue
		}
		frags[i] = Fragment{Text: p, ID: vocab.HashFallback(p, s.vocab.Size()), Kind: KindHashed}
	}
	return frags
}

func (s *Segmenter) separator() Fragment {
	if id, ok := s.vocab.Resolve(" "); ok {
		return Fragment{Text: " ", ID: id, Kind: KindSeparator}
	}
	return Fragment{Text: " ", ID: vocab.SpaceID, Kind: KindSeparator}
}
