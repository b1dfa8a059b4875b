package vocab

import "fmt"

// HashBase is the first id available to hashed fragments. Everything below it
// belongs to special tokens and the common word table.
const HashBase = 200

// SpaceID is emitted for the inter-word separator when no special literal
// resolves a single space.
const SpaceID = 151

// Token binds a literal to an id.
type Token struct {
	ID   int
	Text string
}

// Specials holds the seven special tokens of a model.
type Specials struct {
	BOS, EOS, PAD, SEP, CLS, MASK, UNK Token
}

// Vocabulary resolves text fragments to ids for a single model.
type Vocabulary struct {
	size     int
	specials []Token
}

// New builds a vocabulary for a model with the given size and special tokens.
func New(size int, sp Specials) *Vocabulary {
	// Resolution order is bos, eos, pad, sep, cls, mask, unk. Literals shared
	// between two roles resolve to the first.
	return &Vocabulary{
		size:     size,
		specials: []Token{sp.BOS, sp.EOS, sp.PAD, sp.SEP, sp.CLS, sp.MASK, sp.UNK},
	}
}

// Size returns the vocabulary size.
func (v *Vocabulary) Size() int { return v.size }

// Resolve maps an exact fragment to its id. Special literals win over the
// common word table; nothing else is known.
func (v *Vocabulary) Resolve(fragment string) (int, bool) {
	for _, s := range v.specials {
		if s.Text != "" && s.Text == fragment {
			return s.ID, true
		}
	}
	return CommonID(fragment)
}

// Text is the reverse of Resolve for ids with a literal binding.
func (v *Vocabulary) Text(id int) (string, bool) {
	for _, s := range v.specials {
		if s.ID == id && s.Text != "" {
			return s.Text, true
		}
	}
	if id >= commonFirstID && id < commonFirstID+len(commonWords) {
		return commonWords[id-commonFirstID], true
	}
	return "", false
}

// Validate checks the invariants the rest of the pipeline depends on.
func (v *Vocabulary) Validate() error {
	if v.size <= HashBase {
		return fmt.Errorf("vocab size %d must exceed %d", v.size, HashBase)
	}
	roles := [...]string{"bos", "eos", "pad", "sep", "cls", "mask", "unk"}
	seen := make(map[int]string, len(v.specials))
	for i, s := range v.specials {
		if i < 2 && s.ID == 0 {
			// bos/eos id 0 means the model does not use them.
			continue
		}
		if s.ID < 0 || s.ID >= v.size {
			return fmt.Errorf("%s token id %d outside vocab of %d", roles[i], s.ID, v.size)
		}
		if other, dup := seen[s.ID]; dup {
			return fmt.Errorf("%s and %s share token id %d", other, roles[i], s.ID)
		}
		seen[s.ID] = roles[i]
	}
	return nil
}

// HashFallback derives an id for an unknown fragment. The result always lies
// in [HashBase, vocabSize).
func HashFallback(fragment string, vocabSize int) int {
	span := vocabSize - HashBase
	if span <= 0 {
		return HashBase
	}
	var h uint32
	for i := 0; i < len(fragment); i++ {
		h = h*31 + uint32(fragment[i])
	}
	return int(h%uint32(span)) + HashBase
}
