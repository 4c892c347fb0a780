package memstore

import (
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// toDoc 经 bson 编解码往返，把任意文档转换为规范化的 bson.M
func toDoc(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("memstore: marshal: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("memstore: unmarshal: %w", err)
	}
	return normalize(m).(bson.M), nil
}

func decode(doc bson.M, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("memstore: marshal: %w", err)
	}
	return bson.Unmarshal(raw, out)
}

// normalize 深拷贝，并把嵌套的 bson.D / map / []any 统一成 bson.M / bson.A
func normalize(v any) any {
	switch t := v.(type) {
	case bson.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.M:
		m := make(bson.M, len(t))
		for k, x := range t {
			m[k] = normalize(x)
		}
		return m
	case map[string]any:
		m := make(bson.M, len(t))
		for k, x := range t {
			m[k] = normalize(x)
		}
		return m
	case bson.A:
		a := make(bson.A, len(t))
		for i, x := range t {
			a[i] = normalize(x)
		}
		return a
	case []any:
		a := make(bson.A, len(t))
		for i, x := range t {
			a[i] = normalize(x)
		}
		return a
	default:
		return v
	}
}

// matches 顶层字段精确匹配
func matches(doc, filter bson.M) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// applyUpdate 就地修改 doc，返回是否发生变化
func applyUpdate(doc, update bson.M) (bool, error) {
	changed := false
	for op, arg := range update {
		fields, ok := arg.(bson.M)
		if !ok {
			return false, fmt.Errorf("memstore: %s expects a document", op)
		}
		for field, value := range fields {
			switch op {
			case "$set":
				if !reflect.DeepEqual(doc[field], value) {
					doc[field] = value
					changed = true
				}
			case "$push":
				arr, err := arrayField(doc, field)
				if err != nil {
					return false, err
				}
				doc[field] = append(arr, value)
				changed = true
			case "$addToSet":
				arr, err := arrayField(doc, field)
				if err != nil {
					return false, err
				}
				if !contains(arr, value) {
					doc[field] = append(arr, value)
					changed = true
				}
			case "$pull":
				arr, err := arrayField(doc, field)
				if err != nil {
					return false, err
				}
				kept := make(bson.A, 0, len(arr))
				for _, item := range arr {
					if !pullMatches(item, value) {
						kept = append(kept, item)
					}
				}
				if len(kept) != len(arr) {
					doc[field] = kept
					changed = true
				}
			default:
				return false, fmt.Errorf("memstore: unsupported update operator %q", op)
			}
		}
	}
	return changed, nil
}

// arrayField 与 MongoDB 一致：字段缺失视为空数组，null 或非数组报错
func arrayField(doc bson.M, field string) (bson.A, error) {
	v, ok := doc[field]
	if !ok {
		return bson.A{}, nil
	}
	arr, ok := v.(bson.A)
	if !ok {
		return nil, fmt.Errorf("memstore: field %q must be an array but is of type %T", field, v)
	}
	return arr, nil
}

func contains(arr bson.A, v any) bool {
	for _, item := range arr {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}

// pullMatches 条件为文档时按字段子集匹配，否则按值相等匹配
func pullMatches(item, cond any) bool {
	c, ok := cond.(bson.M)
	if !ok {
		return reflect.DeepEqual(item, cond)
	}
	m, ok := item.(bson.M)
	if !ok {
		return false
	}
	return matches(m, c)
}
