package persona

// === Core ===

// Core は persona_core.json の正準構造を表す。
// 各ブロックは生成パイプラインの成果物であり、空値で初期化できる。
type Core struct {
	Credo     Credo     `json:"credo"`
	Ethos     Ethos     `json:"ethos"`
	TheoLogic TheoLogic `json:"theo_logic"`
	Style     Style     `json:"style"`
	Lexicon   Lexicon   `json:"lexicon"`
	Topics    Topics    `json:"topics"`
	Alignment Alignment `json:"alignment"`
	Origin    Origin    `json:"origin"`
	Language  string    `json:"language"`
}

// Credo は信条(価値観の基盤)を表す
type Credo struct {
	Summary    string   `json:"summary"`
	Statements []string `json:"statements"`
}

// Ethos は気質と情緒的トーンを表す
type Ethos struct {
	Virtues       []string `json:"virtues"`
	AntiPatterns  []string `json:"anti_patterns"`
	EmotionalTone []string `json:"emotional_tone"`
}

// TheoLogic は推論原則とそのスタイルを表す
type TheoLogic struct {
	Principles     []string `json:"principles"`
	ReasoningStyle string   `json:"reasoning_style"`
}

// Style は語り口を表す
type Style struct {
	Voice   string   `json:"voice"`
	Cadence string   `json:"cadence"`
	Dos     []string `json:"dos"`
	Donts   []string `json:"donts"`
}

// Lexicon は語彙と定型句を表す
type Lexicon struct {
	SignaturePhrases []string `json:"signature_phrases"`
	Keywords         []string `json:"keywords"`
	TabooWords       []string `json:"taboo_words"`
}

// Topics は話題の選好を表す
type Topics struct {
	Primary   []string `json:"primary"`
	Secondary []string `json:"secondary"`
}

// Alignment は世界観の数値的アラインメントを表す
type Alignment struct {
	FaithAlignmentVector []float64 `json:"faith_alignment_vector"`
}

// Origin は生成元メタデータを表す
type Origin struct {
	InspirationSource string   `json:"inspiration_source"`
	Sources           []string `json:"sources"`
	CreatedAt         string   `json:"created_at"`
}

// NewCore は言語のみ指定した空のコアを返す
func NewCore(language string) Core {
	if language == "" {
		language = "en"
	}
	return Core{Language: language}
}

// Document はコアをネストしたドキュメント表現へ変換する。
// 編集適用(patchパッケージ)はこの表現の上で行われる。
func (c Core) Document() map[string]any {
	return map[string]any{
		"credo": map[string]any{
			"summary":    c.Credo.Summary,
			"statements": toAnyList(c.Credo.Statements),
		},
		"ethos": map[string]any{
			"virtues":        toAnyList(c.Ethos.Virtues),
			"anti_patterns":  toAnyList(c.Ethos.AntiPatterns),
			"emotional_tone": toAnyList(c.Ethos.EmotionalTone),
		},
		"theo_logic": map[string]any{
			"principles":      toAnyList(c.TheoLogic.Principles),
			"reasoning_style": c.TheoLogic.ReasoningStyle,
		},
		"style": map[string]any{
			"voice":   c.Style.Voice,
			"cadence": c.Style.Cadence,
			"dos":     toAnyList(c.Style.Dos),
			"donts":   toAnyList(c.Style.Donts),
		},
		"lexicon": map[string]any{
			"signature_phrases": toAnyList(c.Lexicon.SignaturePhrases),
			"keywords":          toAnyList(c.Lexicon.Keywords),
			"taboo_words":       toAnyList(c.Lexicon.TabooWords),
		},
		"topics": map[string]any{
			"primary":   toAnyList(c.Topics.Primary),
			"secondary": toAnyList(c.Topics.Secondary),
		},
		"alignment": map[string]any{
			"faith_alignment_vector": floatsToAnyList(c.Alignment.FaithAlignmentVector),
		},
		"origin": map[string]any{
			"inspiration_source": c.Origin.InspirationSource,
			"sources":            toAnyList(c.Origin.Sources),
			"created_at":         c.Origin.CreatedAt,
		},
		"language": c.Language,
	}
}

func toAnyList(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func floatsToAnyList(items []float64) []any {
	out := make([]any, len(items))
	for i, f := range items {
		out[i] = f
	}
	return out
}
