package types

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
)

// Answer is either a single string (single choice, text) or an ordered,
// duplicate-free list (multiple choice).
type Answer struct {
	text   string
	items  []string
	isList bool
}

func TextAnswer(s string) Answer {
	return Answer{text: s}
}

func ListAnswer(items ...string) Answer {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !slices.Contains(out, it) {
			out = append(out, it)
		}
	}
	return Answer{items: out, isList: true}
}

func (a Answer) IsList() bool { return a.isList }

// Text returns the single value; for lists it is the empty string.
func (a Answer) Text() string { return a.text }

// Items returns a copy of the list value.
func (a Answer) Items() []string {
	if !a.isList {
		return nil
	}
	return slices.Clone(a.items)
}

// Contains reports whether v is the selected value or part of the list.
func (a Answer) Contains(v string) bool {
	if a.isList {
		return slices.Contains(a.items, v)
	}
	return a.text == v
}

// Empty reports whether the answer counts as unanswered: a blank string or
// an empty list.
func (a Answer) Empty() bool {
	if a.isList {
		return len(a.items) == 0
	}
	return strings.TrimSpace(a.text) == ""
}

// First returns the single value or the first list element.
func (a Answer) First() string {
	if !a.isList {
		return a.text
	}
	if len(a.items) == 0 {
		return ""
	}
	return a.items[0]
}

// Toggle removes v when present, otherwise appends it. Non-list answers are
// promoted to a list seeded with their non-empty value.
func (a Answer) Toggle(v string) Answer {
	items := a.items
	if !a.isList && a.text != "" {
		items = []string{a.text}
	}
	if idx := slices.Index(items, v); idx >= 0 {
		out := make([]string, 0, len(items)-1)
		out = append(out, items[:idx]...)
		out = append(out, items[idx+1:]...)
		return Answer{items: out, isList: true}
	}
	out := make([]string, 0, len(items)+1)
	out = append(out, items...)
	out = append(out, v)
	return Answer{items: out, isList: true}
}

func (a Answer) Equal(b Answer) bool {
	if a.isList != b.isList {
		return false
	}
	if a.isList {
		return slices.Equal(a.items, b.items)
	}
	return a.text == b.text
}

func (a Answer) String() string {
	if a.isList {
		return strings.Join(a.items, ", ")
	}
	return a.text
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.isList {
		items := a.items
		if items == nil {
			items = []string{}
		}
		return sonic.Marshal(items)
	}
	return sonic.Marshal(a.text)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var s string
	if err := sonic.Unmarshal(data, &s); err == nil {
		*a = TextAnswer(s)
		return nil
	}
	var items []string
	if err := sonic.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("answer must be a string or a list of strings: %w", err)
	}
	*a = ListAnswer(items...)
	return nil
}

// Expansion is the elaboration panel of one option.
type Expansion struct {
	Expanded bool   `json:"expanded"`
	Text     string `json:"text"`
}
