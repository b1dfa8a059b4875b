package tokenizer

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/samcharles93/tokengen/internal/vocab"
)

func testSpecials() vocab.Specials {
	return vocab.Specials{
		PAD:  vocab.Token{ID: 0, Text: "<pad>"},
		BOS:  vocab.Token{ID: 1, Text: "<s>"},
		EOS:  vocab.Token{ID: 2, Text: "</s>"},
		SEP:  vocab.Token{ID: 3, Text: "</s>"},
		CLS:  vocab.Token{ID: 4, Text: "<s>"},
		MASK: vocab.Token{ID: 5, Text: "<mask>"},
		UNK:  vocab.Token{ID: 6, Text: "<unk>"},
	}
}

func newTestTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := New(Config{VocabSize: 32000, Specials: testSpecials()})
	if err != nil {
		t.Fatalf("new tokenizer: %v", err)
	}
	return tok
}

func TestEncodeTheCat(t *testing.T) {
	t.Parallel()

	tok := newTestTokenizer(t)
	ids, err := tok.Encode("the cat", 64)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []int{1, 100, vocab.SpaceID, vocab.HashFallback("c", 32000), 115, 2}
	if !slices.Equal(ids, want) {
		t.Fatalf("encode mismatch: got %v want %v", ids, want)
	}
}

func TestEncodeEmptyText(t *testing.T) {
	t.Parallel()

	tok := newTestTokenizer(t)
	for _, text := range []string{"", "   ", "\t\n \n"} {
		ids, err := tok.Encode(text, 16)
		if err != nil {
			t.Fatalf("encode %q: %v", text, err)
		}
		if !slices.Equal(ids, []int{1, 2}) {
			t.Fatalf("encode %q: got %v want [1 2]", text, ids)
		}
	}
}

func TestEncodeWithoutBOSAndEOS(t *testing.T) {
	t.Parallel()

	sp := testSpecials()
	sp.BOS.ID = 0
	sp.EOS.ID = 0
	sp.PAD.ID = 7
	tok, err := New(Config{VocabSize: 1000, Specials: sp})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ids, err := tok.Encode("", 8)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no ids, got %v", ids)
	}
	ids, _ = tok.Encode("the", 8)
	if !slices.Equal(ids, []int{100}) {
		t.Fatalf("got %v want [100]", ids)
	}
}

func TestEncodeTruncatesAtCapacity(t *testing.T) {
	t.Parallel()

	tok := newTestTokenizer(t)
	ids, err := tok.Encode("the of and to in", 4)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// bos, the, space, of; no room for eos
	want := []int{1, 100, vocab.SpaceID, 101}
	if !slices.Equal(ids, want) {
		t.Fatalf("got %v want %v", ids, want)
	}

	ids, _ = tok.Encode("the", 1)
	if !slices.Equal(ids, []int{1}) {
		t.Fatalf("capacity 1: got %v", ids)
	}
}

func TestEncodeRejectsNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	tok := newTestTokenizer(t)
	if _, err := tok.Encode("the", 0); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("expected ErrInvalidCapacity, got %v", err)
	}
}

func TestEncodeSpecialLiteralIsNotSplit(t *testing.T) {
	t.Parallel()

	tok := newTestTokenizer(t)
	ids, _ := tok.Encode("<mask> the", 16)
	want := []int{1, 5, vocab.SpaceID, 100, 2}
	if !slices.Equal(ids, want) {
		t.Fatalf("got %v want %v", ids, want)
	}
}

func TestEncodeSpaceLiteralOverridesSpaceID(t *testing.T) {
	t.Parallel()

	sp := testSpecials()
	sp.SEP.Text = " "
	tok, err := New(Config{VocabSize: 32000, Specials: sp})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ids, _ := tok.Encode("the of", 16)
	want := []int{1, 100, 3, 101, 2}
	if !slices.Equal(ids, want) {
		t.Fatalf("got %v want %v", ids, want)
	}
}

func TestNormalization(t *testing.T) {
	t.Parallel()

	cfg := Config{VocabSize: 32000, Specials: testSpecials(), Normalize: "nfkc"}
	tok, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// Fullwidth letters fold to ASCII under NFKC.
	ids, _ := tok.Encode("ｔｈｅ", 8)
	if !slices.Equal(ids, []int{1, 100, 2}) {
		t.Fatalf("got %v", ids)
	}

	cfg.Normalize = "bogus"
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for unknown normalization")
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tok := newTestTokenizer(t)
	tests := []struct {
		name     string
		ids      []int
		maxBytes int
		want     string
	}{
		{"empty", nil, 0, ""},
		{"specials only", []int{1, 0, 2, 0, 1}, 0, ""},
		{"common words", []int{1, 100, 147, 2}, 0, "the you"},
		{"placeholders", []int{299, 3323}, 0, "word299 word3323"},
		{"remaining specials", []int{5, 6}, 0, "<mask> <unk>"},
		{"space id", []int{100, vocab.SpaceID, 101}, 0, "the word151 of"},
		{"truncated", []int{100, 101, 102}, 6, "the of"},
		{"first too long", []int{12345}, 3, ""},
		{"out of range", []int{-4, 99999}, 0, "word-4 word99999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Decode(tt.ids, tt.maxBytes)
			if got != tt.want {
				t.Fatalf("decode %v: got %q want %q", tt.ids, got, tt.want)
			}
			if tt.maxBytes > 0 && len(got) > tt.maxBytes {
				t.Fatalf("decode exceeded %d bytes: %q", tt.maxBytes, got)
			}
		})
	}
}

func TestDecodeIsNotInverse(t *testing.T) {
	t.Parallel()

	tok := newTestTokenizer(t)
	ids, _ := tok.Encode("the cat", 16)
	got := tok.Decode(ids, 0)
	if got == "the cat" {
		t.Fatalf("decode unexpectedly reproduced the input")
	}
	if !strings.HasPrefix(got, "the ") {
		t.Fatalf("expected common word to survive, got %q", got)
	}
}

func TestTokenIDAndText(t *testing.T) {
	t.Parallel()

	tok := newTestTokenizer(t)
	if id := tok.TokenID("the"); id != 100 {
		t.Fatalf("TokenID(the) = %d", id)
	}
	if id := tok.TokenID("zz"); id != vocab.HashFallback("zz", 32000) {
		t.Fatalf("TokenID(zz) = %d", id)
	}
	if s := tok.TokenText(2); s != "</s>" {
		t.Fatalf("TokenText(2) = %q", s)
	}
	if s := tok.TokenText(4242); s != "word4242" {
		t.Fatalf("TokenText(4242) = %q", s)
	}
}

func TestNewRejectsSmallVocab(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{VocabSize: 200, Specials: testSpecials()}); err == nil {
		t.Fatalf("expected error for vocab size 200")
	}
}
