package textutil

import (
	"strings"
	"unicode"
)

// tokensToWords はトークン数から単語数への換算係数。
// 経験則として 1トークン ≈ 0.75単語 を用いる。Embedding側のトークナイザとは
// 独立した近似であり、チャンク分割の再現性を保証するためこの係数は固定する。
const tokensToWords = 0.75

// Chunk はテキストを段落境界を優先してトークン上限内のセグメント列に分割する。
//
// アルゴリズム:
//  1. 段落単位で蓄積し、次の段落を足すと maxTokens を超える場合にフラッシュ
//  2. フラッシュ時は直前セグメント末尾の overlapTokens 相当の単語を
//     次セグメントの先頭に引き継ぐ（スライディングオーバーラップ）
//  3. 単一段落が maxTokens を超える場合は文境界で同じロジックを適用
//  4. 複数チャンクが存在する場合のみ、minTokens/2 未満の末端チャンクを除外
//
// 外部状態を持たない純粋関数であり、入力順は出力順に保存される。
func Chunk(text string, minTokens, maxTokens, overlapTokens int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	minWords := int(float64(minTokens) * tokensToWords)
	maxWords := int(float64(maxTokens) * tokensToWords)
	overlapWords := int(float64(overlapTokens) * tokensToWords)

	paragraphs := splitParagraphs(text)

	var chunks []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))
		// オーバーラップ分を次チャンクの先頭に引き継ぐ
		start := len(current) - overlapWords
		if start < 0 {
			start = 0
		}
		current = append([]string(nil), current[start:]...)
	}

	for _, para := range paragraphs {
		paraWords := strings.Fields(para)

		if len(paraWords) > maxWords {
			// 段落単体が上限超過: 文境界で分割して同じ蓄積ロジックを適用
			flush()
			for _, sentence := range splitSentences(para) {
				sentenceWords := strings.Fields(sentence)
				if len(current)+len(sentenceWords) > maxWords {
					flush()
				}
				current = append(current, sentenceWords...)
			}
			continue
		}

		if len(current)+len(paraWords) > maxWords {
			flush()
		}
		current = append(current, paraWords...)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	// 末端の極小チャンクを除外（唯一のチャンクは短くても残す）
	if len(chunks) > 1 {
		filtered := chunks[:0]
		for _, c := range chunks {
			if len(strings.Fields(c)) >= minWords/2 {
				filtered = append(filtered, c)
			}
		}
		chunks = filtered
	}

	return chunks
}

// splitParagraphs は空行区切りで段落に分割し、空段落を除外する
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// splitSentences は文末記号(. ! ?)+空白 の位置で文に分割する
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		// 文末記号の直後が空白なら境界とみなす
		if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentence := strings.TrimSpace(string(runes[start : i+1]))
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = i + 1
		}
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}
