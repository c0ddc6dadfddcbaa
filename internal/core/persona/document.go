package persona

import (
	"errors"
	"fmt"
)

// ErrInvalidDocument はドキュメントが persona_core の構造を満たさないことを示す
var ErrInvalidDocument = errors.New("persona: invalid core document")

// FromDocument はネストしたドキュメント表現からコアを復元する。
// 欠落フィールドはゼロ値で補うが、型が合わない値は受け付けない。
// 編集適用後の再検証はこの関数で行う。
func FromDocument(doc map[string]any) (Core, error) {
	var core Core
	var err error

	credo, err := objectField(doc, "credo")
	if err != nil {
		return Core{}, err
	}
	if core.Credo.Summary, err = stringField(credo, "credo.summary"); err != nil {
		return Core{}, err
	}
	if core.Credo.Statements, err = stringListField(credo, "credo.statements"); err != nil {
		return Core{}, err
	}

	ethos, err := objectField(doc, "ethos")
	if err != nil {
		return Core{}, err
	}
	if core.Ethos.Virtues, err = stringListField(ethos, "ethos.virtues"); err != nil {
		return Core{}, err
	}
	if core.Ethos.AntiPatterns, err = stringListField(ethos, "ethos.anti_patterns"); err != nil {
		return Core{}, err
	}
	if core.Ethos.EmotionalTone, err = stringListField(ethos, "ethos.emotional_tone"); err != nil {
		return Core{}, err
	}

	theoLogic, err := objectField(doc, "theo_logic")
	if err != nil {
		return Core{}, err
	}
	if core.TheoLogic.Principles, err = stringListField(theoLogic, "theo_logic.principles"); err != nil {
		return Core{}, err
	}
	if core.TheoLogic.ReasoningStyle, err = stringField(theoLogic, "theo_logic.reasoning_style"); err != nil {
		return Core{}, err
	}

	style, err := objectField(doc, "style")
	if err != nil {
		return Core{}, err
	}
	if core.Style.Voice, err = stringField(style, "style.voice"); err != nil {
		return Core{}, err
	}
	if core.Style.Cadence, err = stringField(style, "style.cadence"); err != nil {
		return Core{}, err
	}
	if core.Style.Dos, err = stringListField(style, "style.dos"); err != nil {
		return Core{}, err
	}
	if core.Style.Donts, err = stringListField(style, "style.donts"); err != nil {
		return Core{}, err
	}

	lexicon, err := objectField(doc, "lexicon")
	if err != nil {
		return Core{}, err
	}
	if core.Lexicon.SignaturePhrases, err = stringListField(lexicon, "lexicon.signature_phrases"); err != nil {
		return Core{}, err
	}
	if core.Lexicon.Keywords, err = stringListField(lexicon, "lexicon.keywords"); err != nil {
		return Core{}, err
	}
	if core.Lexicon.TabooWords, err = stringListField(lexicon, "lexicon.taboo_words"); err != nil {
		return Core{}, err
	}

	topics, err := objectField(doc, "topics")
	if err != nil {
		return Core{}, err
	}
	if core.Topics.Primary, err = stringListField(topics, "topics.primary"); err != nil {
		return Core{}, err
	}
	if core.Topics.Secondary, err = stringListField(topics, "topics.secondary"); err != nil {
		return Core{}, err
	}

	alignment, err := objectField(doc, "alignment")
	if err != nil {
		return Core{}, err
	}
	if core.Alignment.FaithAlignmentVector, err = floatListField(alignment, "alignment.faith_alignment_vector"); err != nil {
		return Core{}, err
	}

	origin, err := objectField(doc, "origin")
	if err != nil {
		return Core{}, err
	}
	if core.Origin.InspirationSource, err = stringField(origin, "origin.inspiration_source"); err != nil {
		return Core{}, err
	}
	if core.Origin.Sources, err = stringListField(origin, "origin.sources"); err != nil {
		return Core{}, err
	}
	if core.Origin.CreatedAt, err = stringField(origin, "origin.created_at"); err != nil {
		return Core{}, err
	}

	if core.Language, err = stringField(doc, "language"); err != nil {
		return Core{}, err
	}
	if core.Language == "" {
		core.Language = "en"
	}

	return core, nil
}

// objectField はブロックを取り出す。欠落は空ブロックとして扱う。
func objectField(doc map[string]any, key string) (map[string]any, error) {
	raw, exists := doc[key]
	if !exists || raw == nil {
		return map[string]any{}, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s はオブジェクトではありません", ErrInvalidDocument, key)
	}
	return obj, nil
}

func stringField(obj map[string]any, path string) (string, error) {
	key := lastSegment(path)
	raw, exists := obj[key]
	if !exists || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s は文字列ではありません", ErrInvalidDocument, path)
	}
	return s, nil
}

func stringListField(obj map[string]any, path string) ([]string, error) {
	key := lastSegment(path)
	raw, exists := obj[key]
	if !exists || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s は文字列リストではありません", ErrInvalidDocument, path)
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] は文字列ではありません", ErrInvalidDocument, path, i)
		}
		out = append(out, s)
	}
	return out, nil
}

func floatListField(obj map[string]any, path string) ([]float64, error) {
	key := lastSegment(path)
	raw, exists := obj[key]
	if !exists || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s は数値リストではありません", ErrInvalidDocument, path)
	}
	out := make([]float64, 0, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case float64:
			out = append(out, v)
		case int:
			out = append(out, float64(v))
		default:
			return nil, fmt.Errorf("%w: %s[%d] は数値ではありません", ErrInvalidDocument, path, i)
		}
	}
	return out, nil
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return path
}
