package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SegmentKind はパスセグメントの種別タグ
type SegmentKind int

const (
	// KindKey はオブジェクトのフィールド名
	KindKey SegmentKind = iota
	// KindIndex はシーケンスの整数位置
	KindIndex
)

// Segment はパス式の1要素。Key または Index の閉じたバリアントであり、
// ナビゲーションは種別タグで分岐する。
type Segment struct {
	kind  SegmentKind
	key   string
	index int
}

// KeySegment はフィールド名セグメントを作る
func KeySegment(key string) Segment {
	return Segment{kind: KindKey, key: key}
}

// IndexSegment は添字セグメントを作る
func IndexSegment(index int) Segment {
	return Segment{kind: KindIndex, index: index}
}

// Kind は種別タグを返す
func (s Segment) Kind() SegmentKind { return s.kind }

// Key はフィールド名を返す（KindKeyのときのみ有効）
func (s Segment) Key() string { return s.key }

// Index は添字を返す（KindIndexのときのみ有効）
func (s Segment) Index() int { return s.index }

// String はセグメントの表示形式を返す
func (s Segment) String() string {
	if s.kind == KindIndex {
		return fmt.Sprintf("[%d]", s.index)
	}
	return s.key
}

var (
	keyIndexPattern = regexp.MustCompile(`^(\w+)\[(\d+)\]$`)
	bareIndexPattern = regexp.MustCompile(`^\[(\d+)\]$`)
	bareKeyPattern   = regexp.MustCompile(`^\w+$`)
)

// ParsePath はドット記法のパス式をセグメント列に解析する。
//
// 文法: segment ("." segment)*
// segment = identifier | identifier "[" integer "]" | "[" integer "]"
//
// 例:
//
//	"credo.statements[1]" -> [Key(credo), Key(statements), Index(1)]
//	"topics.primary"      -> [Key(topics), Key(primary)]
func ParsePath(path string) ([]Segment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}

	var segments []Segment
	for _, part := range strings.Split(path, ".") {
		switch {
		case keyIndexPattern.MatchString(part):
			m := keyIndexPattern.FindStringSubmatch(part)
			idx, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPath, part)
			}
			segments = append(segments, KeySegment(m[1]), IndexSegment(idx))

		case bareIndexPattern.MatchString(part):
			m := bareIndexPattern.FindStringSubmatch(part)
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPath, part)
			}
			segments = append(segments, IndexSegment(idx))

		case bareKeyPattern.MatchString(part):
			segments = append(segments, KeySegment(part))

		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, part)
		}
	}

	return segments, nil
}
