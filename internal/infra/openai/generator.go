package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mpis/persona-genesis/internal/core/genesis"
	"github.com/mpis/persona-genesis/internal/core/persona"
)

const (
	// DefaultGenerationMaxTokens は生成レスポンスのデフォルト上限
	DefaultGenerationMaxTokens = 4000

	// conceptsPromptTokenBudget は概念抽出プロンプトに含めるソーステキストの上限
	conceptsPromptTokenBudget = 10000

	// corePromptTokenBudget はコア生成プロンプトに含めるソーステキストの上限
	corePromptTokenBudget = 8000

	// styleSampleMaxChars はスタイル参照用サンプルの文字数上限
	styleSampleMaxChars = 3000

	// reviewPromptMaxTokens はレビュー文生成レスポンスの上限
	reviewPromptMaxTokens = 1000

	// tokenEncoding はトークン数算出に使うtiktokenエンコーディング
	tokenEncoding = "cl100k_base"
)

// Generator は LLM を使用して概念抽出・コア生成・レビュー文生成を行う。
// 生成や検証に失敗した場合は決定的なプレースホルダへフォールバックする。
type Generator struct {
	client    *Client
	encoding  *tiktoken.Tiktoken
	dryRun    bool
	maxTokens int
	logger    *slog.Logger
}

type generatorOptions struct {
	dryRun    bool
	maxTokens int
	logger    *slog.Logger
}

// GeneratorOption は Generator のオプション設定
type GeneratorOption func(*generatorOptions)

// WithDryRun はAPIを呼ばずプレースホルダのみを返すモードを有効化する
func WithDryRun(dryRun bool) GeneratorOption {
	return func(o *generatorOptions) {
		o.dryRun = dryRun
	}
}

// WithGenerationMaxTokens は生成レスポンスのトークン上限を上書きする
func WithGenerationMaxTokens(maxTokens int) GeneratorOption {
	return func(o *generatorOptions) {
		o.maxTokens = maxTokens
	}
}

// WithGeneratorLogger はロガーを上書きする
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(o *generatorOptions) {
		o.logger = logger
	}
}

// NewGenerator は新しい Generator を作成する。
// ドライラン以外では client が必須。
func NewGenerator(client *Client, opts ...GeneratorOption) (*Generator, error) {
	options := generatorOptions{
		maxTokens: DefaultGenerationMaxTokens,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if client == nil && !options.dryRun {
		return nil, errors.New("openai client is required unless dry run is enabled")
	}

	encoding, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}

	return &Generator{
		client:    client,
		encoding:  encoding,
		dryRun:    options.dryRun,
		maxTokens: options.maxTokens,
		logger:    options.logger,
	}, nil
}

// === 概念抽出 ===

type conceptsPayload struct {
	Themes              []string `json:"themes"`
	Virtues             []string `json:"virtues"`
	Tone                []string `json:"tone"`
	RecurringIdeas      []string `json:"recurring_ideas"`
	NotableDistinctions []string `json:"notable_distinctions"`
}

// ExtractConcepts はソーステキスト群からテーマ・徳性・トーン等の概念を抽出する
func (g *Generator) ExtractConcepts(ctx context.Context, texts []string) (genesis.Concepts, error) {
	if g.dryRun {
		return placeholderConcepts(), nil
	}

	combined := g.truncateTexts(texts, conceptsPromptTokenBudget)

	prompt := `Analyze the following texts and extract key concepts for building a persona profile.

Return ONLY valid JSON with this structure:
{
    "themes": ["list of 3-7 main themes"],
    "virtues": ["list of 3-5 core virtues or strengths"],
    "tone": ["list of 2-4 emotional/communication tones"],
    "recurring_ideas": ["list of 5-10 recurring ideas or motifs"],
    "notable_distinctions": ["list of 2-5 unique perspectives or approaches"]
}

Texts to analyze:
---
` + combined + `
---

Return ONLY the JSON object, no other text.`

	resp, err := g.client.GenerateCompletion(ctx, CompletionRequest{
		Prompt:         prompt,
		MaxTokens:      g.maxTokens,
		ResponseFormat: "json",
	})
	if err != nil {
		g.logger.Warn("概念抽出に失敗したためプレースホルダを使用します", slog.String("error", err.Error()))
		return placeholderConcepts(), nil
	}

	var payload conceptsPayload
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Content)), &payload); err != nil {
		g.logger.Warn("概念抽出レスポンスの解析に失敗したためプレースホルダを使用します", slog.String("error", err.Error()))
		return placeholderConcepts(), nil
	}

	return genesis.Concepts{
		Themes:              payload.Themes,
		Virtues:             payload.Virtues,
		Tone:                payload.Tone,
		RecurringIdeas:      payload.RecurringIdeas,
		NotableDistinctions: payload.NotableDistinctions,
	}, nil
}

// === コア生成 ===

// GenerateCore は概念とソーステキストから完全なペルソナコアを生成する。
// レスポンスの構造検証に失敗した場合は1回まで修復を試み、
// それでも失敗した場合はプレースホルダへフォールバックする。
func (g *Generator) GenerateCore(ctx context.Context, req genesis.GenerateCoreRequest) (persona.Core, error) {
	if g.dryRun {
		return placeholderCore(req), nil
	}

	prompt := g.buildCorePrompt(req)

	resp, err := g.client.GenerateCompletion(ctx, CompletionRequest{
		Prompt:         prompt,
		MaxTokens:      g.maxTokens,
		ResponseFormat: "json",
	})
	if err != nil {
		g.logger.Warn("コア生成に失敗したためプレースホルダを使用します", slog.String("error", err.Error()))
		return placeholderCore(req), nil
	}

	core, err := g.parseCore(resp.Content)
	if err == nil {
		return core, nil
	}

	g.logger.Warn("コアの検証に失敗したため修復を試みます", slog.String("error", err.Error()))

	core, repairErr := g.repairCore(ctx, resp.Content, err)
	if repairErr != nil {
		g.logger.Warn("コアの修復に失敗したためプレースホルダを使用します", slog.String("error", repairErr.Error()))
		return placeholderCore(req), nil
	}

	return core, nil
}

func (g *Generator) buildCorePrompt(req genesis.GenerateCoreRequest) string {
	inspiration := req.InspirationSource
	if inspiration == "" {
		inspiration = "the provided source materials"
	}

	originSource := req.InspirationSource
	if originSource == "" {
		originSource = "source materials"
	}

	combined := g.truncateTexts(req.Texts, corePromptTokenBudget)
	if len(combined) > styleSampleMaxChars {
		combined = combined[:styleSampleMaxChars]
	}

	return fmt.Sprintf(`Create a complete persona profile for "%s" based on the following concepts and source texts.

The persona should be inspired by: %s
Primary language: %s

Extracted concepts:
- Themes: %s
- Virtues: %s
- Tone: %s
- Recurring ideas: %s
- Notable distinctions: %s

Sample source text (for style reference):
---
%s
---

Generate a complete persona profile as STRICT JSON with ALL these required fields:
{
    "credo": {
        "summary": "Brief philosophical summary (1-2 sentences)",
        "statements": ["3-7 core belief statements"]
    },
    "ethos": {
        "virtues": ["3-5 character virtues"],
        "anti_patterns": ["2-4 behaviors to avoid"],
        "emotional_tone": ["2-4 emotional characteristics"]
    },
    "theo_logic": {
        "principles": ["3-5 reasoning principles"],
        "reasoning_style": "Description of thinking approach"
    },
    "style": {
        "voice": "Description of speaking voice",
        "cadence": "Rhythm and pace",
        "dos": ["3-5 communication practices"],
        "donts": ["2-4 things to avoid"]
    },
    "lexicon": {
        "signature_phrases": ["3-5 characteristic phrases"],
        "keywords": ["5-10 key vocabulary words"],
        "taboo_words": ["words to avoid, if any"]
    },
    "topics": {
        "primary": ["3-5 main topics"],
        "secondary": ["2-4 related topics"]
    },
    "alignment": {
        "faith_alignment_vector": []
    },
    "origin": {
        "inspiration_source": "%s",
        "sources": [],
        "created_at": "%s"
    },
    "language": "%s"
}

Return ONLY the JSON object, no other text. Ensure all strings are properly escaped.`,
		req.PersonaName,
		inspiration,
		req.Language,
		strings.Join(req.Concepts.Themes, ", "),
		strings.Join(req.Concepts.Virtues, ", "),
		strings.Join(req.Concepts.Tone, ", "),
		strings.Join(req.Concepts.RecurringIdeas, ", "),
		strings.Join(req.Concepts.NotableDistinctions, ", "),
		combined,
		originSource,
		nowUTC(),
		req.Language,
	)
}

func (g *Generator) parseCore(content string) (persona.Core, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &doc); err != nil {
		return persona.Core{}, fmt.Errorf("parse core response: %w", err)
	}
	return persona.FromDocument(doc)
}

func (g *Generator) repairCore(ctx context.Context, original string, validationErr error) (persona.Core, error) {
	prompt := fmt.Sprintf(`The following JSON has a validation error. Please fix it and return ONLY valid JSON.

Error: %s

Original JSON:
%s

Return ONLY the corrected JSON, no explanations.`, validationErr.Error(), original)

	resp, err := g.client.GenerateCompletion(ctx, CompletionRequest{
		Prompt:         prompt,
		MaxTokens:      g.maxTokens,
		ResponseFormat: "json",
	})
	if err != nil {
		return persona.Core{}, err
	}

	return g.parseCore(resp.Content)
}

// === レビュー文生成 ===

// GenerateReviewPrompt はドラフトの人間レビュー用要約文を生成する
func (g *Generator) GenerateReviewPrompt(ctx context.Context, core persona.Core, draftNo int) (string, error) {
	if g.dryRun {
		return placeholderReviewPrompt(core, draftNo), nil
	}

	coreJSON, err := json.MarshalIndent(core, "", "  ")
	if err != nil {
		return placeholderReviewPrompt(core, draftNo), nil
	}

	prompt := fmt.Sprintf(`Based on the following persona profile draft (v%d), create a clear human-readable summary and 2-3 questions for the user to consider.

Persona Profile:
%s

Generate a natural language summary that:
1. Summarizes the persona's core beliefs and character
2. Highlights key traits and communication style
3. Lists 2-3 specific questions for user feedback

Keep it concise but comprehensive. Write in a conversational tone.`, draftNo, string(coreJSON))

	resp, err := g.client.GenerateCompletion(ctx, CompletionRequest{
		Prompt:    prompt,
		MaxTokens: reviewPromptMaxTokens,
	})
	if err != nil {
		g.logger.Warn("レビュー文の生成に失敗したためプレースホルダを使用します", slog.String("error", err.Error()))
		return placeholderReviewPrompt(core, draftNo), nil
	}

	return resp.Content, nil
}

// === プレースホルダ ===

func placeholderConcepts() genesis.Concepts {
	return genesis.Concepts{
		Themes:  []string{"faith", "hope", "meaning", "suffering"},
		Virtues: []string{"humility", "wisdom", "compassion"},
		Tone:    []string{"thoughtful", "warm", "encouraging"},
		RecurringIdeas: []string{
			"Finding meaning in difficulty",
			"Grace as foundation",
			"Community over isolation",
		},
		NotableDistinctions: []string{
			"Balances intellect with heart",
			"Questions before answers",
		},
	}
}

func placeholderCore(req genesis.GenerateCoreRequest) persona.Core {
	inspiration := req.InspirationSource
	if inspiration == "" {
		inspiration = "wisdom traditions"
	}

	originSource := req.InspirationSource
	if originSource == "" {
		originSource = "source materials"
	}

	core := persona.NewCore(req.Language)
	core.Credo = persona.Credo{
		Summary: fmt.Sprintf("A thoughtful persona inspired by %s", inspiration),
		Statements: []string{
			"Meaning emerges through relationship",
			"Truth is discovered in community",
			"Hope persists through difficulty",
		},
	}
	core.Ethos = persona.Ethos{
		Virtues:       fallbackList(req.Concepts.Virtues, []string{"wisdom", "compassion", "humility"}),
		AntiPatterns:  []string{"pride", "cynicism", "isolation"},
		EmotionalTone: fallbackList(req.Concepts.Tone, []string{"thoughtful", "warm"}),
	}
	core.TheoLogic = persona.TheoLogic{
		Principles:     []string{"Grace precedes merit", "Questions open doors"},
		ReasoningStyle: "Socratic dialogue with pastoral care",
	}
	core.Style = persona.Style{
		Voice:   "Gentle mentor and thoughtful companion",
		Cadence: "Measured and reflective",
		Dos:     []string{"Use metaphors", "Ask questions", "Acknowledge complexity"},
		Donts:   []string{"Oversimplify", "Be preachy", "Dismiss doubts"},
	}
	core.Lexicon = persona.Lexicon{
		SignaturePhrases: []string{"Consider this...", "What might it mean..."},
		Keywords:         fallbackList(req.Concepts.Themes, []string{"faith", "hope", "meaning"}),
		TabooWords:       []string{},
	}
	core.Topics = placeholderTopics(req.Concepts.Themes)
	core.Alignment = persona.Alignment{FaithAlignmentVector: []float64{}}
	core.Origin = persona.Origin{
		InspirationSource: originSource,
		Sources:           []string{},
		CreatedAt:         nowUTC(),
	}

	return core
}

func placeholderTopics(themes []string) persona.Topics {
	if len(themes) == 0 {
		return persona.Topics{
			Primary:   []string{"faith", "meaning"},
			Secondary: []string{"culture"},
		}
	}

	topics := persona.Topics{
		Primary:   themes,
		Secondary: []string{"culture"},
	}
	if len(themes) > 3 {
		topics.Primary = themes[:3]
		topics.Secondary = themes[3:]
	}
	return topics
}

func placeholderReviewPrompt(core persona.Core, draftNo int) string {
	var beliefs strings.Builder
	for _, s := range headOf(core.Credo.Statements, 3) {
		beliefs.WriteString("- " + s + "\n")
	}

	return fmt.Sprintf(`## Persona Draft v%d: Review Requested

**Summary:**
This persona embodies %s

**Core Beliefs:**
%s
**Character:**
- Virtues: %s
- Tone: %s

**Questions for Review:**
1. Does this capture the essence of the inspiration source?
2. Are there any virtues or traits that should be added or removed?
3. Does the communication style feel authentic?

Reply with "confirm: true" to finalize, or provide edits.`,
		draftNo,
		core.Credo.Summary,
		beliefs.String(),
		strings.Join(headOf(core.Ethos.Virtues, 3), ", "),
		strings.Join(headOf(core.Ethos.EmotionalTone, 3), ", "),
	)
}

func fallbackList(items, fallback []string) []string {
	if len(items) == 0 {
		return fallback
	}
	return items
}

func headOf(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// === ユーティリティ ===

// truncateTexts はテキスト群を結合し、トークン数で上限までに切り詰める
func (g *Generator) truncateTexts(texts []string, maxTokens int) string {
	combined := strings.Join(texts, "\n\n---\n\n")

	tokens := g.encoding.Encode(combined, nil, nil)
	if len(tokens) <= maxTokens {
		return combined
	}

	return g.encoding.Decode(tokens[:maxTokens]) + "...[truncated]"
}

// stripCodeFences はレスポンス先頭・末尾のMarkdownコードフェンスを除去する
func stripCodeFences(s string) string {
	text := strings.TrimSpace(s)

	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}

	text = strings.TrimSuffix(text, "```")

	return strings.TrimSpace(text)
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// インターフェース実装の確認
var _ genesis.Generator = (*Generator)(nil)
