package types

import (
	"fmt"
	"strings"
)

// AttributeSkip is the reserved attribute key that excludes a test from execution.
// Its value is the human readable reason reported to the Reporter.
const AttributeSkip = "Skip"

// Attribute is a key/value tag attached to a test.
type Attribute struct {
	Key   string `yaml:"key" json:"key"`
	Value string `yaml:"value" json:"value"`
}

func (a Attribute) String() string {
	if a.Value == "" {
		return a.Key
	}
	return a.Key + "=" + a.Value
}

// Matches reports whether other selects a. An empty value in other matches any value.
func (a Attribute) Matches(other Attribute) bool {
	if a.Key != other.Key {
		return false
	}
	return other.Value == "" || a.Value == other.Value
}

// ParseAttribute parses "key=value" or a bare "key".
func ParseAttribute(s string) (Attribute, error) {
	key, value, _ := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return Attribute{}, fmt.Errorf("attribute %q has an empty key", s)
	}
	return Attribute{Key: key, Value: strings.TrimSpace(value)}, nil
}

// ParseAttributes parses every entry with ParseAttribute.
func ParseAttributes(entries []string) (Attributes, error) {
	attrs := make(Attributes, 0, len(entries))
	for _, entry := range entries {
		attr, err := ParseAttribute(entry)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// Attributes is an ordered collection of attributes. Duplicate keys are permitted.
type Attributes []Attribute

// FindAll returns the values of every attribute with the given key, in order.
func (as Attributes) FindAll(key string) []string {
	var values []string
	for _, a := range as {
		if a.Key == key {
			values = append(values, a.Value)
		}
	}
	return values
}

// Find returns the first value stored under key.
func (as Attributes) Find(key string) (string, bool) {
	for _, a := range as {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Has reports whether any attribute uses key.
func (as Attributes) Has(key string) bool {
	_, ok := as.Find(key)
	return ok
}

// MatchesAny reports whether any attribute is selected by any of the selectors.
func (as Attributes) MatchesAny(selectors []Attribute) bool {
	for _, a := range as {
		for _, sel := range selectors {
			if a.Matches(sel) {
				return true
			}
		}
	}
	return false
}

// SkipReason returns the reason attached to the reserved Skip attribute.
// Multiple Skip attributes are joined with "; ".
func (as Attributes) SkipReason() (string, bool) {
	reasons := as.FindAll(AttributeSkip)
	if len(reasons) == 0 {
		return "", false
	}
	return strings.Join(reasons, "; "), true
}

// With returns a copy of as with extra appended.
func (as Attributes) With(extra ...Attribute) Attributes {
	out := make(Attributes, 0, len(as)+len(extra))
	out = append(out, as...)
	return append(out, extra...)
}

func (as Attributes) String() string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}
