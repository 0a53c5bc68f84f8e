package util

import (
	"fmt"
	"sort"
	"strings"
)

// ParsedTag is one validated NAME=VALUE override.
type ParsedTag struct {
	Info  TagInfo
	Value string
}

// ParsedTags holds tag overrides keyed by canonical tag name.
type ParsedTags map[string]ParsedTag

// ParseTagFlags parses repeated --tag NAME=VALUE arguments. Names are
// resolved through the registry and values checked against the tag's VR;
// a later value for the same tag wins.
func ParseTagFlags(args []string) (ParsedTags, error) {
	out := make(ParsedTags, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid tag %q, expected NAME=VALUE", arg)
		}
		info, err := GetTagByName(name)
		if err != nil {
			return nil, err
		}
		value = strings.TrimSpace(value)
		if err := info.VR.Validate(value); err != nil {
			return nil, fmt.Errorf("tag %s=%q: %w", info.Name, value, err)
		}
		out[info.Name] = ParsedTag{Info: info, Value: value}
	}
	return out, nil
}

// Get returns the override for a canonical tag name.
func (p ParsedTags) Get(name string) (string, bool) {
	t, ok := p[name]
	if !ok {
		return "", false
	}
	return t.Value, true
}

// Sorted returns the overrides ordered by DICOM tag.
func (p ParsedTags) Sorted() []ParsedTag {
	out := make([]ParsedTag, 0, len(p))
	for _, t := range p {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Info.Tag, out[j].Info.Tag
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Element < b.Element
	})
	return out
}
