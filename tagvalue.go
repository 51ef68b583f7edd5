package dkim

import "strings"

// TagList is an ordered mapping from tag names to values, as produced by
// ParseTagList and built up by signers. Key order is insertion order; keys
// are unique (ParseTagList rejects duplicates, Set overwrites in place).
type TagList struct {
	keys   []string
	values map[string]string
}

// NewTagList returns an empty, ready-to-use TagList.
func NewTagList() *TagList {
	return &TagList{values: make(map[string]string)}
}

// Get returns the value for key and whether it was present.
func (t *TagList) Get(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Set inserts key=value, appending key to the end of the order if it's new,
// or overwriting the existing value in place if key is already present.
func (t *TagList) Set(key, value string) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	if t.values == nil {
		t.values = make(map[string]string)
	}
	t.values[key] = value
}

// Keys returns the tag names in insertion order.
func (t *TagList) Keys() []string {
	return t.keys
}

// String serializes the list as "k1=v1; k2=v2; ..." in insertion order.
func (t *TagList) String() string {
	var b strings.Builder
	for i, k := range t.keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(t.values[k])
	}
	return b.String()
}

// ParseTagList decodes "k=v; k=v; ..." into an ordered mapping (spec §4.A).
// Entries are split on ";", then each entry on the first "=", with ASCII
// whitespace trimmed from both the key and the value. A segment with no "="
// (other than one that is empty or all-whitespace, which is silently
// skipped) or a duplicate key fails with InvalidTagListError.
func ParseTagList(s string) (*TagList, error) {
	t := NewTagList()
	for _, entry := range strings.Split(s, ";") {
		if strings.TrimSpace(entry) == "" {
			continue
		}

		eq := strings.IndexByte(entry, '=')
		if eq == -1 {
			return nil, invalidTagListErrorf("tag with no value: %q", entry)
		}

		k := strings.TrimSpace(entry[:eq])
		v := strings.TrimSpace(entry[eq+1:])
		if k == "" {
			return nil, invalidTagListErrorf("empty tag name in %q", entry)
		}
		if _, ok := t.values[k]; ok {
			return nil, invalidTagListErrorf("duplicate tag %q", k)
		}
		t.Set(k, v)
	}
	return t, nil
}
