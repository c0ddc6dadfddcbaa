package patch

import (
	"fmt"
)

// Op は編集操作の種別
type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Edit は1件の構造的編集指示。バッチはドラフトに対して
// 原子的に適用される（1件でも失敗すれば全体を破棄）。
type Edit struct {
	Path  string `json:"path"`
	Op    Op     `json:"op"`
	Value any    `json:"value,omitempty"`
}

// Apply は編集バッチをドキュメントのディープコピーへ順番に適用し、
// 新しいドキュメントを返す。入力は決して変更しない。
// 編集は記述順に適用されるため、同一バッチ内で先行する編集が作った
// フィールドを後続の編集が参照できる。この順序はコントラクトの一部。
func Apply(doc map[string]any, edits []Edit) (map[string]any, error) {
	result := deepCopyMap(doc)

	for i, edit := range edits {
		segments, err := ParsePath(edit.Path)
		if err != nil {
			return nil, fmt.Errorf("edit %d (%s): %w", i, edit.Path, err)
		}

		switch edit.Op {
		case OpReplace:
			if edit.Value == nil {
				return nil, fmt.Errorf("edit %d (%s): replace: %w", i, edit.Path, ErrValueRequired)
			}
			if _, err := replaceAt(result, segments, edit.Value); err != nil {
				return nil, fmt.Errorf("edit %d (%s): replace: %w", i, edit.Path, err)
			}

		case OpAdd:
			if edit.Value == nil {
				return nil, fmt.Errorf("edit %d (%s): add: %w", i, edit.Path, ErrValueRequired)
			}
			if _, err := addAt(result, segments, edit.Value); err != nil {
				return nil, fmt.Errorf("edit %d (%s): add: %w", i, edit.Path, err)
			}

		case OpRemove:
			if edit.Value != nil {
				return nil, fmt.Errorf("edit %d (%s): remove: %w", i, edit.Path, ErrValueNotAllowed)
			}
			if _, err := removeAt(result, segments); err != nil {
				return nil, fmt.Errorf("edit %d (%s): remove: %w", i, edit.Path, err)
			}

		default:
			return nil, fmt.Errorf("edit %d (%s): %w: %q", i, edit.Path, ErrUnknownOp, edit.Op)
		}
	}

	return result, nil
}

// descend はセグメント1つ分コンテナを降下する。
// 種別タグとコンテナ種別が一致しない場合は閉じた形で失敗する。
func descend(container any, seg Segment) (any, error) {
	switch seg.Kind() {
	case KindIndex:
		list, ok := container.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected sequence at %s", ErrTypeMismatch, seg)
		}
		if seg.Index() < 0 || seg.Index() >= len(list) {
			return nil, fmt.Errorf("%w: %s (length %d)", ErrIndexOutOfRange, seg, len(list))
		}
		return list[seg.Index()], nil

	default: // KindKey
		obj, ok := container.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected object at %q", ErrTypeMismatch, seg.Key())
		}
		value, exists := obj[seg.Key()]
		if !exists {
			return nil, fmt.Errorf("%w: %q", ErrPathNotFound, seg.Key())
		}
		return value, nil
	}
}

// writeBack は降下したセグメント位置に子コンテナを書き戻す。
// スライスは操作で長さが変わるため、再帰の戻りで必ず書き戻す。
func writeBack(container any, seg Segment, child any) error {
	switch seg.Kind() {
	case KindIndex:
		list, ok := container.([]any)
		if !ok {
			return fmt.Errorf("%w: expected sequence at %s", ErrTypeMismatch, seg)
		}
		list[seg.Index()] = child
		return nil

	default:
		obj, ok := container.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: expected object at %q", ErrTypeMismatch, seg.Key())
		}
		obj[seg.Key()] = child
		return nil
	}
}

// replaceAt は既存スロットのみ上書きする（存在しないパスは失敗）。
func replaceAt(container any, segments []Segment, value any) (any, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyPath
	}

	seg := segments[0]
	if len(segments) == 1 {
		switch seg.Kind() {
		case KindIndex:
			list, ok := container.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: expected sequence at %s", ErrTypeMismatch, seg)
			}
			if seg.Index() < 0 || seg.Index() >= len(list) {
				return nil, fmt.Errorf("%w: %s (length %d)", ErrIndexOutOfRange, seg, len(list))
			}
			list[seg.Index()] = value
			return container, nil

		default:
			obj, ok := container.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: expected object at %q", ErrTypeMismatch, seg.Key())
			}
			if _, exists := obj[seg.Key()]; !exists {
				return nil, fmt.Errorf("%w: %q", ErrPathNotFound, seg.Key())
			}
			obj[seg.Key()] = value
			return container, nil
		}
	}

	child, err := descend(container, seg)
	if err != nil {
		return nil, err
	}
	newChild, err := replaceAt(child, segments[1:], value)
	if err != nil {
		return nil, err
	}
	if err := writeBack(container, seg, newChild); err != nil {
		return nil, err
	}
	return container, nil
}

// addAt は追加操作を適用する。末端キーの既存値がシーケンスの場合は
// 末尾に要素を追加し（配列フィールドへのaddは「1要素追記」の意味）、
// それ以外はアップサートとして振る舞う。
func addAt(container any, segments []Segment, value any) (any, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyPath
	}

	seg := segments[0]
	if len(segments) == 1 {
		switch seg.Kind() {
		case KindIndex:
			list, ok := container.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: expected sequence at %s", ErrTypeMismatch, seg)
			}
			if seg.Index() >= len(list) {
				return append(list, value), nil
			}
			if seg.Index() < 0 {
				return nil, fmt.Errorf("%w: %s", ErrIndexOutOfRange, seg)
			}
			// 既存位置への挿入（後続要素を後ろへずらす）
			list = append(list[:seg.Index()], append([]any{value}, list[seg.Index():]...)...)
			return list, nil

		default:
			obj, ok := container.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: expected object at %q", ErrTypeMismatch, seg.Key())
			}
			if existing, exists := obj[seg.Key()]; exists {
				if list, isList := existing.([]any); isList {
					obj[seg.Key()] = append(list, value)
					return container, nil
				}
			}
			obj[seg.Key()] = value
			return container, nil
		}
	}

	child, err := descend(container, seg)
	if err != nil {
		return nil, err
	}
	newChild, err := addAt(child, segments[1:], value)
	if err != nil {
		return nil, err
	}
	if err := writeBack(container, seg, newChild); err != nil {
		return nil, err
	}
	return container, nil
}

// removeAt は末端キーの削除、または末端添字の要素除去（後続を前詰め）を行う。
func removeAt(container any, segments []Segment) (any, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyPath
	}

	seg := segments[0]
	if len(segments) == 1 {
		switch seg.Kind() {
		case KindIndex:
			list, ok := container.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: expected sequence at %s", ErrTypeMismatch, seg)
			}
			if seg.Index() < 0 || seg.Index() >= len(list) {
				return nil, fmt.Errorf("%w: %s (length %d)", ErrIndexOutOfRange, seg, len(list))
			}
			return append(list[:seg.Index()], list[seg.Index()+1:]...), nil

		default:
			obj, ok := container.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: expected object at %q", ErrTypeMismatch, seg.Key())
			}
			if _, exists := obj[seg.Key()]; !exists {
				return nil, fmt.Errorf("%w: %q", ErrPathNotFound, seg.Key())
			}
			delete(obj, seg.Key())
			return container, nil
		}
	}

	child, err := descend(container, seg)
	if err != nil {
		return nil, err
	}
	newChild, err := removeAt(child, segments[1:])
	if err != nil {
		return nil, err
	}
	if err := writeBack(container, seg, newChild); err != nil {
		return nil, err
	}
	return container, nil
}

// deepCopyMap はドキュメントを再帰的に複製する
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		// JSONプリミティブ（string/float64/bool/nil）は値コピーで十分
		return val
	}
}
