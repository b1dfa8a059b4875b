package modelcfg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Config documents are read leniently: every field starts at its default,
// and a key that is missing, of the wrong kind or out of range leaves the
// default in place. Numbers may be quoted and may carry a leading sign;
// integer fields truncate fractional values. Booleans accept true/false and
// numerals (non-zero is true). Only a document that is not a JSON object at
// all is an error.

type fields map[string]json.RawMessage

func decodeFields(data []byte) (fields, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return fields{}, nil
	}
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config is not a JSON object: %w", err)
	}
	return f, nil
}

// scalar returns the text of a raw value with string quotes removed. Objects,
// arrays and null report false.
func (f fields) scalar(key string) (string, bool) {
	raw, ok := f[key]
	if !ok {
		return "", false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '{', '[', 'n':
		return "", false
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	return string(raw), true
}

func (f fields) setString(key string, dst *string) {
	raw, ok := f[key]
	if !ok {
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*dst = s
	}
}

func (f fields) setInt(key string, dst *int) {
	s, ok := f.scalar(key)
	if !ok {
		return
	}
	if v, ok := parseInt(s); ok {
		*dst = v
	}
}

func parseInt(s string) (int, bool) {
	if v, err := strconv.ParseInt(s, 10, 0); err == nil {
		return int(v), true
	}
	fv, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(fv) || fv >= math.MaxInt || fv < math.MinInt {
		return 0, false
	}
	return int(fv), true
}

func (f fields) setFloat(key string, dst *float64) {
	s, ok := f.scalar(key)
	if !ok {
		return
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	*dst = v
}

func (f fields) setBool(key string, dst *bool) {
	s, ok := f.scalar(key)
	if !ok {
		return
	}
	switch strings.ToLower(s) {
	case "true":
		*dst = true
		return
	case "false":
		*dst = false
		return
	}
	if v, ok := parseInt(s); ok {
		*dst = v != 0
	}
}

// ParseModel reads a model document over DefaultModel.
func ParseModel(data []byte) (Model, error) {
	m := DefaultModel()
	f, err := decodeFields(data)
	if err != nil {
		return m, err
	}
	f.setString("name", &m.Name)
	var typ string
	f.setString("model_type", &typ)
	if t := ModelType(strings.ToLower(typ)); t.valid() {
		m.Type = t
	}
	f.setInt("vocab_size", &m.VocabSize)
	f.setInt("hidden_size", &m.HiddenSize)
	f.setInt("num_hidden_layers", &m.NumHiddenLayers)
	f.setInt("num_attention_heads", &m.NumAttentionHeads)
	f.setInt("intermediate_size", &m.IntermediateSize)
	f.setInt("max_position_embeddings", &m.MaxPositionEmbeddings)
	f.setInt("type_vocab_size", &m.TypeVocabSize)
	f.setFloat("initializer_range", &m.InitializerRange)
	f.setFloat("layer_norm_eps", &m.LayerNormEps)
	f.setInt("pad_token_id", &m.PadTokenID)
	f.setInt("bos_token_id", &m.BOSTokenID)
	f.setInt("eos_token_id", &m.EOSTokenID)
	f.setInt("sep_token_id", &m.SEPTokenID)
	f.setInt("cls_token_id", &m.CLSTokenID)
	f.setInt("mask_token_id", &m.MaskTokenID)
	f.setInt("unk_token_id", &m.UNKTokenID)
	return m, nil
}

// ParseTokenizer reads a tokenizer document over DefaultTokenizer.
func ParseTokenizer(data []byte) (Tokenizer, error) {
	t := DefaultTokenizer()
	f, err := decodeFields(data)
	if err != nil {
		return t, err
	}
	f.setInt("vocab_size", &t.VocabSize)
	f.setInt("max_length", &t.MaxLength)
	f.setString("bos_token", &t.BOSToken)
	f.setString("eos_token", &t.EOSToken)
	f.setString("pad_token", &t.PadToken)
	f.setString("sep_token", &t.SEPToken)
	f.setString("cls_token", &t.CLSToken)
	f.setString("mask_token", &t.MaskToken)
	f.setString("unk_token", &t.UNKToken)
	f.setString("normalize", &t.Normalize)
	f.setInt("cache_size", &t.CacheSize)
	return t, nil
}

// ParseGeneration reads a generation document over DefaultGeneration.
func ParseGeneration(data []byte) (Generation, error) {
	g := DefaultGeneration()
	f, err := decodeFields(data)
	if err != nil {
		return g, err
	}
	f.setInt("max_length", &g.MaxLength)
	f.setInt("min_length", &g.MinLength)
	f.setFloat("temperature", &g.Temperature)
	f.setFloat("top_p", &g.TopP)
	f.setInt("top_k", &g.TopK)
	f.setFloat("repetition_penalty", &g.RepetitionPenalty)
	f.setFloat("length_penalty", &g.LengthPenalty)
	f.setFloat("diversity_penalty", &g.DiversityPenalty)
	f.setInt("num_beams", &g.NumBeams)
	f.setInt("num_beam_groups", &g.NumBeamGroups)
	f.setInt("num_return_sequences", &g.NumReturnSequences)
	f.setBool("early_stopping", &g.EarlyStopping)
	f.setBool("do_sample", &g.DoSample)
	f.setInt("no_repeat_ngram_size", &g.NoRepeatNgramSize)
	f.setInt("encoder_no_repeat_ngram_size", &g.EncoderNoRepeatNgramSize)
	f.setInt("forced_bos_token_id", &g.ForcedBOSTokenID)
	f.setInt("forced_eos_token_id", &g.ForcedEOSTokenID)
	return g, nil
}

// ReadFile reads path and parses it with parse. An empty path yields the
// defaults.
func ReadFile[T any](path string, parse func([]byte) (T, error)) (T, error) {
	if path == "" {
		return parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := parse(data)
	if err != nil {
		return v, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Save writes v as indented JSON.
func Save(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SaveFile writes v as indented JSON to path, refusing to replace an existing
// file unless overwrite is set.
func SaveFile(path string, v any, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	if err := Save(f, v); err != nil {
		return errors.Join(err, f.Close())
	}
	return f.Close()
}

// Validate reports generation settings the engine cannot run with.
func (g Generation) Validate() error {
	if g.MaxLength < 0 {
		return fmt.Errorf("max_length %d must be >= 0", g.MaxLength)
	}
	if g.MinLength < 0 {
		return fmt.Errorf("min_length %d must be >= 0", g.MinLength)
	}
	return g.Policy().Validate()
}
