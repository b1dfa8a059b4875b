// Package modelcfg reads and writes the three JSON documents describing a
// model: its architecture and special token ids, its tokenizer literals, and
// its generation defaults.
package modelcfg

import (
	"github.com/samcharles93/tokengen/internal/logits"
	"github.com/samcharles93/tokengen/internal/tokenizer"
	"github.com/samcharles93/tokengen/internal/vocab"
)

// ModelType names the network family a model claims to be.
type ModelType string

const (
	TypeTransformer ModelType = "transformer"
	TypeCNN         ModelType = "cnn"
	TypeRNN         ModelType = "rnn"
	TypeLSTM        ModelType = "lstm"
	TypeGRU         ModelType = "gru"
	TypeCustom      ModelType = "custom"
)

func (t ModelType) valid() bool {
	switch t {
	case TypeTransformer, TypeCNN, TypeRNN, TypeLSTM, TypeGRU, TypeCustom:
		return true
	}
	return false
}

// Model is the model configuration document.
type Model struct {
	Name                  string    `json:"name"`
	Type                  ModelType `json:"model_type"`
	VocabSize             int       `json:"vocab_size"`
	HiddenSize            int       `json:"hidden_size"`
	NumHiddenLayers       int       `json:"num_hidden_layers"`
	NumAttentionHeads     int       `json:"num_attention_heads"`
	IntermediateSize      int       `json:"intermediate_size"`
	MaxPositionEmbeddings int       `json:"max_position_embeddings"`
	TypeVocabSize         int       `json:"type_vocab_size"`
	InitializerRange      float64   `json:"initializer_range"`
	LayerNormEps          float64   `json:"layer_norm_eps"`
	PadTokenID            int       `json:"pad_token_id"`
	BOSTokenID            int       `json:"bos_token_id"`
	EOSTokenID            int       `json:"eos_token_id"`
	SEPTokenID            int       `json:"sep_token_id"`
	CLSTokenID            int       `json:"cls_token_id"`
	MaskTokenID           int       `json:"mask_token_id"`
	UNKTokenID            int       `json:"unk_token_id"`
}

// DefaultModel returns the configuration used for every field a model
// document leaves out.
func DefaultModel() Model {
	return Model{
		Name:                  "deepseek-r1",
		Type:                  TypeTransformer,
		VocabSize:             32000,
		HiddenSize:            2048,
		NumHiddenLayers:       24,
		NumAttentionHeads:     16,
		IntermediateSize:      8192,
		MaxPositionEmbeddings: 2048,
		TypeVocabSize:         2,
		InitializerRange:      0.02,
		LayerNormEps:          1e-12,
		PadTokenID:            0,
		BOSTokenID:            1,
		EOSTokenID:            2,
		SEPTokenID:            3,
		CLSTokenID:            4,
		MaskTokenID:           5,
		UNKTokenID:            6,
	}
}

// Tokenizer is the tokenizer configuration document.
type Tokenizer struct {
	VocabSize int    `json:"vocab_size"`
	MaxLength int    `json:"max_length"`
	BOSToken  string `json:"bos_token"`
	EOSToken  string `json:"eos_token"`
	PadToken  string `json:"pad_token"`
	SEPToken  string `json:"sep_token"`
	CLSToken  string `json:"cls_token"`
	MaskToken string `json:"mask_token"`
	UNKToken  string `json:"unk_token"`
	Normalize string `json:"normalize,omitempty"`
	CacheSize int    `json:"cache_size,omitempty"`
}

func DefaultTokenizer() Tokenizer {
	return Tokenizer{
		VocabSize: 32000,
		MaxLength: 2048,
		BOSToken:  "<s>",
		EOSToken:  "</s>",
		PadToken:  "<pad>",
		SEPToken:  "</s>",
		CLSToken:  "<s>",
		MaskToken: "<mask>",
		UNKToken:  "<unk>",
	}
}

// Generation holds the generation defaults of a model. Beam search, length
// and diversity penalties and n-gram blocking are parsed and round-tripped
// but not acted on by the engine.
type Generation struct {
	MaxLength                int     `json:"max_length"`
	MinLength                int     `json:"min_length"`
	Temperature              float64 `json:"temperature"`
	TopP                     float64 `json:"top_p"`
	TopK                     int     `json:"top_k"`
	RepetitionPenalty        float64 `json:"repetition_penalty"`
	LengthPenalty            float64 `json:"length_penalty"`
	DiversityPenalty         float64 `json:"diversity_penalty"`
	NumBeams                 int     `json:"num_beams"`
	NumBeamGroups            int     `json:"num_beam_groups"`
	NumReturnSequences       int     `json:"num_return_sequences"`
	EarlyStopping            bool    `json:"early_stopping"`
	DoSample                 bool    `json:"do_sample"`
	NoRepeatNgramSize        int     `json:"no_repeat_ngram_size"`
	EncoderNoRepeatNgramSize int     `json:"encoder_no_repeat_ngram_size"`
	ForcedBOSTokenID         int     `json:"forced_bos_token_id"`
	ForcedEOSTokenID         int     `json:"forced_eos_token_id"`
}

func DefaultGeneration() Generation {
	return Generation{
		MaxLength:          2048,
		MinLength:          0,
		Temperature:        0.7,
		TopP:               0.9,
		TopK:               50,
		RepetitionPenalty:  1.0,
		LengthPenalty:      1.0,
		DiversityPenalty:   0,
		NumBeams:           1,
		NumBeamGroups:      1,
		NumReturnSequences: 1,
		EarlyStopping:      false,
		DoSample:           true,
	}
}

// Policy converts the sampling fields into a sampler policy. With do_sample
// off the policy is greedy. A repetition penalty above 1 (1.05 included)
// becomes the penalty base; 1 or less means "unset" and keeps the default
// base of 1.1.
func (g Generation) Policy() logits.Policy {
	p := logits.Policy{
		Temperature:   g.Temperature,
		PenaltyBase:   logits.DefaultPenaltyBase,
		PenaltyWindow: logits.DefaultPenaltyWindow,
		TopK:          g.TopK,
		TopP:          g.TopP,
	}
	if !g.DoSample {
		p.Temperature = 0
	}
	if g.RepetitionPenalty > 1 {
		p.PenaltyBase = g.RepetitionPenalty
	}
	if p.TopK < 0 {
		p.TopK = 0
	}
	if p.TopP < 0 {
		p.TopP = 0
	}
	return p
}

// Specials pairs the model's special ids with the tokenizer's literals.
func Specials(m Model, t Tokenizer) vocab.Specials {
	return vocab.Specials{
		BOS:  vocab.Token{ID: m.BOSTokenID, Text: t.BOSToken},
		EOS:  vocab.Token{ID: m.EOSTokenID, Text: t.EOSToken},
		PAD:  vocab.Token{ID: m.PadTokenID, Text: t.PadToken},
		SEP:  vocab.Token{ID: m.SEPTokenID, Text: t.SEPToken},
		CLS:  vocab.Token{ID: m.CLSTokenID, Text: t.CLSToken},
		MASK: vocab.Token{ID: m.MaskTokenID, Text: t.MaskToken},
		UNK:  vocab.Token{ID: m.UNKTokenID, Text: t.UNKToken},
	}
}

// TokenizerConfig builds the tokenizer configuration for a model. The model's
// vocab size wins over the tokenizer document's.
func TokenizerConfig(m Model, t Tokenizer) tokenizer.Config {
	return tokenizer.Config{
		VocabSize: m.VocabSize,
		Specials:  Specials(m, t),
		Normalize: t.Normalize,
		CacheSize: t.CacheSize,
	}
}
