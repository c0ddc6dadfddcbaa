package persona

import (
	"github.com/google/uuid"
)

// Card はCLI表示用のペルソナ要約カード
type Card struct {
	PersonaID     *uuid.UUID `json:"personaID,omitempty"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	ActiveVersion string     `json:"activeVersion"`
	Summary       string     `json:"summary"`
	TopTopics     []string   `json:"topTopics"`
	DominantTones []string   `json:"dominantTones"`
	NextActions   []string   `json:"nextActions"`
}

// DraftVersion はコミット前のカードに表示するバージョン表記
const DraftVersion = "draft"

// BuildCard はコアからプレビューカードを組み立てる
func BuildCard(personaID *uuid.UUID, name, slug string, core Core, version string) Card {
	return Card{
		PersonaID:     personaID,
		Name:          name,
		Slug:          slug,
		ActiveVersion: version,
		Summary:       core.Credo.Summary,
		TopTopics:     headOf(core.Topics.Primary, 5),
		DominantTones: headOf(core.Ethos.EmotionalTone, 3),
		NextActions:   SuggestNextActions(core),
	}
}

// SuggestNextActions はコアの充足度から次の作業候補を最大3件返す
func SuggestNextActions(core Core) []string {
	var actions []string

	if len(core.Credo.Statements) == 0 {
		actions = append(actions, "Add core belief statements")
	}
	if len(core.Lexicon.SignaturePhrases) == 0 {
		actions = append(actions, "Add signature phrases")
	}
	if len(core.Topics.Primary) < 3 {
		actions = append(actions, "Expand primary topics")
	}

	if len(actions) == 0 {
		actions = []string{"Review and confirm persona", "Test with sample prompts"}
	}
	if len(actions) > 3 {
		actions = actions[:3]
	}
	return actions
}

func headOf(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
