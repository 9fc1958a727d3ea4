// Package editor models the character sheet editor: the document exchanged
// with the server and sheet files, the edit/display view model, and the
// derived values shown on the sheet.
package editor

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
)

var textType = reflect.TypeOf(Text(""))

// Text is a form input value. Sheet files written by older clients carry
// numbers where newer ones carry strings, so both decode to the same text.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		// numbers and booleans keep their literal spelling
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		if _, ok := v.(map[string]any); ok {
			return &json.UnmarshalTypeError{Value: "object", Type: textType}
		}
		if _, ok := v.([]any); ok {
			return &json.UnmarshalTypeError{Value: "array", Type: textType}
		}
		*t = Text(b)
	}
	return nil
}

// Count is a non-negative checkbox count; strings are parsed like form input.
type Count int

func (c *Count) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	n, ok := parseInt(string(t))
	if !ok || n < 0 {
		n = 0
	}
	*c = Count(n)
	return nil
}

type Header struct {
	Name       Text `json:"name"`
	Gender     Text `json:"gender"`
	Race       Text `json:"race"`
	Class      Text `json:"class"`
	Level      Text `json:"level"`
	Status     Text `json:"status"`
	Speed      Text `json:"speed"`
	Background Text `json:"background"`
	Credits    Text `json:"credits"`
	Doch       Text `json:"doch"`
	Renown     Text `json:"renown"`
}

type Stats struct {
	WS    *Text `json:"ws,omitempty"`
	BS    *Text `json:"bs,omitempty"`
	TN    *Text `json:"tn,omitempty"`
	STR   *Text `json:"str,omitempty"`
	DEX   *Text `json:"dex,omitempty"`
	INT   *Text `json:"int,omitempty"`
	PER   *Text `json:"per,omitempty"`
	WP    *Text `json:"wp,omitempty"`
	FEL   *Text `json:"fel,omitempty"`
	Extra Text  `json:"extra"`
}

func (s *Stats) field(a Attribute) **Text {
	switch a {
	case WS:
		return &s.WS
	case BS:
		return &s.BS
	case TN:
		return &s.TN
	case STR:
		return &s.STR
	case DEX:
		return &s.DEX
	case INT:
		return &s.INT
	case PER:
		return &s.PER
	case WP:
		return &s.WP
	case FEL:
		return &s.FEL
	}
	return nil
}

type Mods struct {
	Wounds  Text `json:"wounds"`
	Stamina Text `json:"stamina"`
}

type StatusState struct {
	Wounds  Count `json:"wounds"`
	Stamina Count `json:"stamina"`
}

type TrackerState struct {
	Name    string `json:"name"`
	Max     Count  `json:"max"`
	Current Count  `json:"current"`
}

type Appearance struct {
	Pfp string `json:"pfp"`
}

// ListEntry is one free-text row with optional textarea size hints.
type ListEntry struct {
	Text   string `json:"text"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// UnmarshalJSON also accepts a bare string, the format of early sheet files.
func (e *ListEntry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '{' {
		var t Text
		if err := t.UnmarshalJSON(b); err != nil {
			return err
		}
		*e = ListEntry{Text: string(t)}
		return nil
	}
	type plain ListEntry
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = ListEntry(p)
	return nil
}

// Document is the sheet as saved to the server or a file. Every section is
// optional; a missing section leaves the editor's current values alone.
type Document struct {
	Header         *Header                `json:"header,omitempty"`
	Stats          *Stats                 `json:"stats,omitempty"`
	Mods           *Mods                  `json:"mods,omitempty"`
	StatusState    *StatusState           `json:"statusState,omitempty"`
	CustomTrackers []TrackerState         `json:"customTrackers,omitempty"`
	Appearance     *Appearance            `json:"appearance,omitempty"`
	Lists          map[string][]ListEntry `json:"lists,omitempty"`
}

// parseInt reads a leading base-10 integer the way form inputs are read:
// leading whitespace and a sign are allowed, trailing garbage is ignored.
func parseInt(s string) (int, bool) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[start:i])
	if err != nil {
		return 0, false
	}
	return n, true
}

// intOr returns the parsed value, or def when it is blank, invalid or zero.
func intOr(s string, def int) int {
	if n, ok := parseInt(s); ok && n != 0 {
		return n
	}
	return def
}
