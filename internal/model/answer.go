package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// AnswerKind tags the variant held by an AnswerValue.
type AnswerKind string

const (
	KindNone   AnswerKind = ""
	KindChoice AnswerKind = "choice"
	KindOX     AnswerKind = "ox"
	KindText   AnswerKind = "text"
)

// AnswerValue is a tagged union: a numbered choice, an O/X mark, or free text.
// The zero value is the "no answer" variant used by essays.
type AnswerValue struct {
	kind   AnswerKind
	choice int
	ox     bool
	text   string
}

// Choice builds a numbered multiple-choice answer.
func Choice(n int) AnswerValue {
	return AnswerValue{kind: KindChoice, choice: n}
}

// OX builds a true/false answer; true is O.
func OX(o bool) AnswerValue {
	return AnswerValue{kind: KindOX, ox: o}
}

// Text builds a short-answer value.
func Text(s string) AnswerValue {
	return AnswerValue{kind: KindText, text: s}
}

// Kind reports which variant v holds; KindNone for the zero value.
func (v AnswerValue) Kind() AnswerKind { return v.kind }

// ChoiceNumber returns the option number and whether v is a choice.
func (v AnswerValue) ChoiceNumber() (int, bool) {
	return v.choice, v.kind == KindChoice
}

// IsO returns the mark and whether v is an O/X value.
func (v AnswerValue) IsO() (bool, bool) {
	return v.ox, v.kind == KindOX
}

// TextValue returns the text and whether v is a text value.
func (v AnswerValue) TextValue() (string, bool) {
	return v.text, v.kind == KindText
}

// Key is a comparable identity for set operations.
func (v AnswerValue) Key() string {
	switch v.kind {
	case KindChoice:
		return "c:" + strconv.Itoa(v.choice)
	case KindOX:
		if v.ox {
			return "ox:O"
		}
		return "ox:X"
	case KindText:
		return "t:" + v.text
	}
	return ""
}

// String renders the value the way a teacher would type it.
func (v AnswerValue) String() string {
	switch v.kind {
	case KindChoice:
		return strconv.Itoa(v.choice)
	case KindOX:
		if v.ox {
			return "O"
		}
		return "X"
	case KindText:
		return v.text
	}
	return ""
}

type answerJSON struct {
	Kind  AnswerKind      `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	out := answerJSON{Kind: v.kind}
	var err error
	switch v.kind {
	case KindChoice:
		out.Value, err = json.Marshal(v.choice)
	case KindOX, KindText:
		out.Value, err = json.Marshal(v.String())
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var in answerJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode answer value: %w", err)
	}
	switch in.Kind {
	case KindNone:
		*v = AnswerValue{}
	case KindChoice:
		var n int
		if err := json.Unmarshal(in.Value, &n); err != nil {
			return fmt.Errorf("decode choice value: %w", err)
		}
		*v = Choice(n)
	case KindOX:
		var s string
		if err := json.Unmarshal(in.Value, &s); err != nil {
			return fmt.Errorf("decode ox value: %w", err)
		}
		switch s {
		case "O":
			*v = OX(true)
		case "X":
			*v = OX(false)
		default:
			return fmt.Errorf("decode ox value: unknown mark %q", s)
		}
	case KindText:
		var s string
		if err := json.Unmarshal(in.Value, &s); err != nil {
			return fmt.Errorf("decode text value: %w", err)
		}
		*v = Text(s)
	default:
		return fmt.Errorf("decode answer value: unknown kind %q", in.Kind)
	}
	return nil
}

// Keys returns the set of value keys.
func Keys(vals []AnswerValue) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v.Key()] = struct{}{}
	}
	return m
}

// SameSet reports whether a and b hold the same values, ignoring order and duplicates.
func SameSet(a, b []AnswerValue) bool {
	ka, kb := Keys(a), Keys(b)
	if len(ka) != len(kb) {
		return false
	}
	for k := range ka {
		if _, ok := kb[k]; !ok {
			return false
		}
	}
	return true
}
