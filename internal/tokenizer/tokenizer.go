package tokenizer

import (
	"errors"
	"strconv"
	"strings"

	"github.com/samcharles93/tokengen/internal/vocab"
)

// ErrInvalidCapacity is returned by Encode when the capacity cannot hold a
// single token.
var ErrInvalidCapacity = errors.New("tokenizer: capacity must be positive")

// Tokenizer converts between text and token ids.
type Tokenizer struct {
	vocab     *vocab.Vocabulary
	seg       *Segmenter
	normalize func(string) string
	bosID     int
	eosID     int
	padID     int
}

// New validates cfg and builds a tokenizer.
func New(cfg Config) (*Tokenizer, error) {
	v := vocab.New(cfg.VocabSize, cfg.Specials)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	normalize, err := normalizer(cfg.Normalize)
	if err != nil {
		return nil, err
	}
	cacheSize := cfg.CacheSize
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}
	return &Tokenizer{
		vocab:     v,
		seg:       NewSegmenter(v, cfg.MergeRules, cacheSize),
		normalize: normalize,
		bosID:     cfg.Specials.BOS.ID,
		eosID:     cfg.Specials.EOS.ID,
		padID:     cfg.Specials.PAD.ID,
	}, nil
}

func (t *Tokenizer) BOSID() int     { return t.bosID }
func (t *Tokenizer) EOSID() int     { return t.eosID }
func (t *Tokenizer) PADID() int     { return t.padID }
func (t *Tokenizer) VocabSize() int { return t.vocab.Size() }

// Segment normalizes text and returns its resolved fragments without the
// bos/eos framing.
func (t *Tokenizer) Segment(text string) []Fragment {
	if t.normalize != nil {
		text = t.normalize(text)
	}
	return t.seg.Segment(text)
}

// Encode tokenizes text into at most capacity ids. The bos id leads when it is
// configured (> 0) and the eos id closes the sequence when configured and
// there is room left. Fragments beyond capacity are dropped silently.
func (t *Tokenizer) Encode(text string, capacity int) ([]int, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	frags := t.Segment(text)
	ids := make([]int, 0, min(capacity, len(frags)+2))
	if t.bosID > 0 {
		ids = append(ids, t.bosID)
	}
	for _, f := range frags {
		if len(ids) >= capacity {
			break
		}
		ids = append(ids, f.ID)
	}
	if t.eosID > 0 && len(ids) < capacity {
		ids = append(ids, t.eosID)
	}
	return ids, nil
}

// Decode renders ids as text. The mapping is lossy: bos, eos and pad are
// skipped, ids with a literal (common words and the remaining specials) decode
// to it and every other id decodes to the placeholder "word<id>". Pieces are
// joined by single spaces. When maxBytes is positive, output stops before the
// first piece that would exceed it. Decode never fails.
func (t *Tokenizer) Decode(ids []int, maxBytes int) string {
	var b strings.Builder
	for _, id := range ids {
		if id == t.bosID || id == t.eosID || id == t.padID {
			continue
		}
		word := t.TokenText(id)
		n := len(word)
		if b.Len() > 0 {
			n++
		}
		if maxBytes > 0 && b.Len()+n > maxBytes {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	return b.String()
}

// TokenID returns the id text encodes to as a single fragment.
func (t *Tokenizer) TokenID(text string) int {
	if id, ok := t.vocab.Resolve(text); ok {
		return id
	}
	return vocab.HashFallback(text, t.vocab.Size())
}

// TokenText returns the surface form Decode uses for id.
func (t *Tokenizer) TokenText(id int) string {
	if s, ok := t.vocab.Text(id); ok {
		return s
	}
	return "word" + strconv.Itoa(id)
}
