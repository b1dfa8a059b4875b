package tokenizer

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/samcharles93/tokengen/internal/vocab"
)

// DefaultCacheSize is the number of distinct words the segmenter remembers.
const DefaultCacheSize = 4096

// Config describes a tokenizer for one model.
type Config struct {
	VocabSize int
	Specials  vocab.Specials
	// Normalize selects a Unicode normalization applied before segmentation:
	// "", "none", "nfc" or "nfkc".
	Normalize  string
	MergeRules MergeRules
	CacheSize  int
}

func normalizer(name string) (func(string) string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case "nfc":
		return norm.NFC.String, nil
	case "nfkc":
		return norm.NFKC.String, nil
	default:
		return nil, fmt.Errorf("unknown normalization %q", name)
	}
}
