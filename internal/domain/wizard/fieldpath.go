package wizard

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// maxPathIndex bounds bracket indices accepted by FormData.Set so a typo in a
// path cannot allocate an enormous slice.
const maxPathIndex = 1024

// FormData holds the values entered across all steps. Values are nested maps
// and slices addressed with dot/bracket field paths such as owners[0].ssn.
type FormData map[string]any

type pathSegment struct {
	key      string
	index    int
	isIndex  bool
	wildcard bool
}

// ParsePath validates a dot/bracket field path. The wildcard index [*] is
// accepted and matches every element of a list.
func ParsePath(path string) error {
	_, err := parsePath(path)
	return err
}

func parsePath(path string) ([]pathSegment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, newInvalidPathError(path, "field path is empty")
	}

	var segments []pathSegment
	i := 0
	expectKey := true
	for i < len(path) {
		switch {
		case path[i] == '.':
			if expectKey {
				return nil, newInvalidPathError(path, "unexpected '.'")
			}
			expectKey = true
			i++
		case path[i] == '[':
			if len(segments) == 0 {
				return nil, newInvalidPathError(path, "path cannot start with an index")
			}
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, newInvalidPathError(path, "unterminated '['")
			}
			raw := path[i+1 : i+end]
			if raw == "*" {
				segments = append(segments, pathSegment{isIndex: true, wildcard: true})
			} else {
				idx, err := strconv.Atoi(raw)
				if err != nil || idx < 0 {
					return nil, newInvalidPathError(path, fmt.Sprintf("invalid index %q", raw))
				}
				segments = append(segments, pathSegment{isIndex: true, index: idx})
			}
			expectKey = false
			i += end + 1
		default:
			if !expectKey {
				return nil, newInvalidPathError(path, "missing '.' before key")
			}
			j := i
			for j < len(path) && path[j] != '.' && path[j] != '[' {
				j++
			}
			segments = append(segments, pathSegment{key: path[i:j]})
			expectKey = false
			i = j
		}
	}
	if expectKey {
		return nil, newInvalidPathError(path, "path ends with '.'")
	}
	return segments, nil
}

func formatPath(segments []pathSegment) string {
	var b strings.Builder
	for i, seg := range segments {
		switch {
		case seg.wildcard:
			b.WriteString("[*]")
		case seg.isIndex:
			b.WriteString("[")
			b.WriteString(strconv.Itoa(seg.index))
			b.WriteString("]")
		default:
			if i > 0 {
				b.WriteString(".")
			}
			b.WriteString(seg.key)
		}
	}
	return b.String()
}

// Lookup returns the value stored at path. Wildcard paths never resolve.
func (d FormData) Lookup(path string) (any, bool) {
	segments, err := parsePath(path)
	if err != nil {
		return nil, false
	}
	var current any = map[string]any(d)
	for _, seg := range segments {
		if seg.wildcard {
			return nil, false
		}
		if seg.isIndex {
			list, ok := current.([]any)
			if !ok || seg.index >= len(list) {
				return nil, false
			}
			current = list[seg.index]
			continue
		}
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[seg.key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// HasValue reports whether path resolves to a non-empty value. Nil, empty
// strings and empty lists or maps count as absent; false and 0 are values.
func (d FormData) HasValue(path string) bool {
	for _, concrete := range d.Expand(path) {
		value, ok := d.Lookup(concrete)
		if ok && !isEmptyValue(value) {
			return true
		}
	}
	return false
}

// Expand resolves [*] wildcards against the current data and returns the
// concrete paths in index order. Paths without wildcards are returned as-is.
func (d FormData) Expand(pattern string) []string {
	segments, err := parsePath(pattern)
	if err != nil {
		return nil
	}
	wild := false
	for _, seg := range segments {
		if seg.wildcard {
			wild = true
			break
		}
	}
	if !wild {
		return []string{pattern}
	}

	var out []string
	var walk func(prefix []pathSegment, rest []pathSegment)
	walk = func(prefix []pathSegment, rest []pathSegment) {
		if len(rest) == 0 {
			out = append(out, formatPath(prefix))
			return
		}
		seg := rest[0]
		if !seg.wildcard {
			walk(append(prefix, seg), rest[1:])
			return
		}
		value, ok := d.Lookup(formatPath(prefix))
		if !ok {
			return
		}
		list, ok := value.([]any)
		if !ok {
			return
		}
		for i := range list {
			next := make([]pathSegment, len(prefix), len(prefix)+1)
			copy(next, prefix)
			walk(append(next, pathSegment{isIndex: true, index: i}), rest[1:])
		}
	}
	walk(nil, segments)
	return out
}

// Set stores value at path, creating intermediate maps and lists.
func (d FormData) Set(path string, value any) error {
	segments, err := parsePath(path)
	if err != nil {
		return err
	}
	for _, seg := range segments {
		if seg.wildcard {
			return newInvalidPathError(path, "wildcard paths cannot be assigned")
		}
		if seg.isIndex && seg.index > maxPathIndex {
			return newInvalidPathError(path, fmt.Sprintf("index exceeds %d", maxPathIndex))
		}
	}

	head := segments[0]
	if len(segments) == 1 {
		d[head.key] = value
		return nil
	}
	child, err := setIn(d[head.key], segments[1:], value, path)
	if err != nil {
		return err
	}
	d[head.key] = child
	return nil
}

func setIn(container any, segments []pathSegment, value any, path string) (any, error) {
	seg := segments[0]
	last := len(segments) == 1

	if seg.isIndex {
		list, ok := container.([]any)
		if !ok && container != nil {
			return nil, newInvalidPathError(path, "value is not a list")
		}
		for len(list) <= seg.index {
			list = append(list, nil)
		}
		if last {
			list[seg.index] = value
			return list, nil
		}
		child, err := setIn(list[seg.index], segments[1:], value, path)
		if err != nil {
			return nil, err
		}
		list[seg.index] = child
		return list, nil
	}

	m, ok := asMap(container)
	if !ok {
		if container != nil {
			return nil, newInvalidPathError(path, "value is not an object")
		}
		m = map[string]any{}
	}
	if last {
		m[seg.key] = value
		return m, nil
	}
	child, err := setIn(m[seg.key], segments[1:], value, path)
	if err != nil {
		return nil, err
	}
	m[seg.key] = child
	return m, nil
}

// Delete removes the value at path. List elements are cleared rather than
// removed so sibling indices stay stable.
func (d FormData) Delete(path string) error {
	segments, err := parsePath(path)
	if err != nil {
		return err
	}
	if len(segments) == 1 {
		delete(d, segments[0].key)
		return nil
	}
	parentPath := formatPath(segments[:len(segments)-1])
	parent, ok := d.Lookup(parentPath)
	if !ok {
		return nil
	}
	last := segments[len(segments)-1]
	if last.isIndex {
		if list, ok := parent.([]any); ok && last.index < len(list) {
			list[last.index] = nil
		}
		return nil
	}
	if m, ok := asMap(parent); ok {
		delete(m, last.key)
	}
	return nil
}

// Clone returns a deep copy of the data.
func (d FormData) Clone() FormData {
	if d == nil {
		return FormData{}
	}
	out := make(FormData, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// Paths lists every leaf path in the data, sorted.
func (d FormData) Paths() []string {
	var out []string
	var walk func(prefix string, value any)
	walk = func(prefix string, value any) {
		switch v := value.(type) {
		case map[string]any:
			if len(v) == 0 {
				out = append(out, prefix)
			}
			for k, child := range v {
				walk(joinKey(prefix, k), child)
			}
		case FormData:
			walk(prefix, map[string]any(v))
		case []any:
			if len(v) == 0 {
				out = append(out, prefix)
			}
			for i, child := range v {
				walk(fmt.Sprintf("%s[%d]", prefix, i), child)
			}
		default:
			out = append(out, prefix)
		}
	}
	for k, v := range d {
		walk(k, v)
	}
	sort.Strings(out)
	return out
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// PathsOverlap reports whether one path addresses the other or one of its
// ancestors or descendants. Wildcard segments match any index.
func PathsOverlap(a, b string) bool {
	sa, err := parsePath(a)
	if err != nil {
		return false
	}
	sb, err := parsePath(b)
	if err != nil {
		return false
	}
	n := len(sa)
	if len(sb) < n {
		n = len(sb)
	}
	for i := 0; i < n; i++ {
		x, y := sa[i], sb[i]
		if x.isIndex != y.isIndex {
			return false
		}
		if x.isIndex {
			if x.wildcard || y.wildcard {
				continue
			}
			if x.index != y.index {
				return false
			}
			continue
		}
		if x.key != y.key {
			return false
		}
	}
	return true
}

func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case FormData:
		return map[string]any(v), true
	}
	return nil, false
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = cloneValue(child)
		}
		return out
	case FormData:
		return map[string]any(v.Clone())
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = cloneValue(child)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	}
	return value
}

func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	case []any:
		for _, item := range v {
			if !isEmptyValue(item) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, item := range v {
			if !isEmptyValue(item) {
				return false
			}
		}
		return true
	case FormData:
		return isEmptyValue(map[string]any(v))
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Apply merges a patch keyed by field path into the data and returns the
// paths whose value actually changed, sorted. A nil value deletes the path.
// The data may be partially modified when an error is returned; callers that
// need atomicity apply the patch to a Clone.
func (d FormData) Apply(patch map[string]any) ([]string, error) {
	keys := make([]string, 0, len(patch))
	for key := range patch {
		if err := ParsePath(key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var changed []string
	for _, key := range keys {
		value := patch[key]
		old, had := d.Lookup(key)
		if value == nil {
			if !had {
				continue
			}
			if err := d.Delete(key); err != nil {
				return nil, err
			}
			changed = append(changed, key)
			continue
		}
		if had && reflect.DeepEqual(old, value) {
			continue
		}
		if err := d.Set(key, cloneValue(value)); err != nil {
			return nil, err
		}
		changed = append(changed, key)
	}
	return changed, nil
}
