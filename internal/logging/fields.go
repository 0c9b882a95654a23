package logging

import (
	"log/slog"
	"strings"
)

type field struct {
	key   string
	value slog.Value
}

// attrScope is the WithAttrs/WithGroup state shared by the console and
// stream handlers. Values are copied on every derivation.
type attrScope struct {
	attrs  []slog.Attr
	groups []string
}

func (s attrScope) withAttrs(attrs []slog.Attr) attrScope {
	return attrScope{attrs: append(cloneSlice(s.attrs), attrs...), groups: s.groups}
}

func (s attrScope) withGroup(name string) attrScope {
	return attrScope{attrs: s.attrs, groups: append(cloneSlice(s.groups), name)}
}

// fields flattens the scope plus the record's own attrs into dotted keys.
// A repeated key keeps its first position and its last value.
func (s attrScope) fields(record slog.Record) []field {
	out := make([]field, 0, len(s.attrs)+record.NumAttrs())
	index := make(map[string]int, cap(out))
	add := func(key string, value slog.Value) {
		if key == "" {
			return
		}
		if pos, ok := index[key]; ok {
			out[pos].value = value
			return
		}
		index[key] = len(out)
		out = append(out, field{key: key, value: value})
	}
	for _, attr := range s.attrs {
		walkAttr(s.groups, attr, add)
	}
	record.Attrs(func(attr slog.Attr) bool {
		walkAttr(s.groups, attr, add)
		return true
	})
	return out
}

func walkAttr(path []string, attr slog.Attr, emit func(string, slog.Value)) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			path = append(cloneSlice(path), attr.Key)
		}
		for _, child := range value.Group() {
			walkAttr(path, child, emit)
		}
		return
	}
	key := attr.Key
	if len(path) > 0 {
		key = strings.Join(path, ".")
		if attr.Key != "" {
			key += "." + attr.Key
		}
	}
	emit(key, value)
}

func cloneSlice[T any](in []T) []T {
	return append([]T(nil), in...)
}
