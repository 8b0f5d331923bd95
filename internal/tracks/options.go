// Package tracks discovers GPX track files on a mounted device and narrows
// the candidate set with the selection policy configured in the browser
// extension (most-recent-N, max age, max size).
package tracks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Method selects how the candidate list is narrowed before the size filter.
type Method int

const (
	MethodNone Method = iota
	MethodRecent
	MethodTime
	MethodUnknown
)

// ParseMethod maps the extension's option string to a Method. An empty
// string is MethodNone; anything unrecognized is MethodUnknown, which
// applies no count/time filtering.
func ParseMethod(s string) Method {
	switch strings.TrimSpace(s) {
	case "":
		return MethodNone
	case "recent":
		return MethodRecent
	case "time":
		return MethodTime
	default:
		return MethodUnknown
	}
}

func (m Method) String() string {
	switch m {
	case MethodNone:
		return ""
	case MethodRecent:
		return "recent"
	case MethodTime:
		return "time"
	default:
		return "unknown"
	}
}

// Options is the filter policy sent with an import request. The numeric
// fields are pointers so "absent" can be told apart from zero.
type Options struct {
	Method         Method
	RecentSel      *int
	RecentSelFirst *int
	TimeSel        *float64 // hours
	Size           bool
	SizeSel        string
}

// rawOptions mirrors the wire shape. The extension stores its settings as
// strings ("72", "3", "100kB") but numbers are accepted too.
type rawOptions struct {
	Method         string          `json:"method"`
	RecentSel      json.RawMessage `json:"recentSel"`
	RecentSelFirst json.RawMessage `json:"recentSelFirst"`
	TimeSel        json.RawMessage `json:"timeSel"`
	Size           json.RawMessage `json:"size"`
	SizeSel        string          `json:"sizeSel"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Options) UnmarshalJSON(data []byte) error {
	var raw rawOptions
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("options: %w", err)
	}

	out := Options{
		Method:  ParseMethod(raw.Method),
		SizeSel: strings.TrimSpace(raw.SizeSel),
	}

	var err error
	if out.RecentSel, err = optionalInt("recentSel", raw.RecentSel); err != nil {
		return err
	}
	if out.RecentSelFirst, err = optionalInt("recentSelFirst", raw.RecentSelFirst); err != nil {
		return err
	}
	if out.TimeSel, err = optionalFloat("timeSel", raw.TimeSel); err != nil {
		return err
	}
	out.Size = truthy(raw.Size)

	*o = out
	return nil
}

func optionalFloat(name string, raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("options: %s: %w", name, err)
		}
	} else {
		text = string(raw)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("options: %s must be a number, got %s", name, string(raw))
	}
	return &v, nil
}

func optionalInt(name string, raw json.RawMessage) (*int, error) {
	f, err := optionalFloat(name, raw)
	if err != nil || f == nil {
		return nil, err
	}
	if *f > math.MaxInt32 || *f < math.MinInt32 {
		return nil, fmt.Errorf("options: %s out of range: %v", name, *f)
	}
	n := int(*f)
	return &n, nil
}

// truthy reports whether a JSON value should switch a boolean option on.
// false, 0, "", "false", "0" and null are off; anything else is on.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s != "" && s != "false" && s != "0"
	case nil:
		return false
	default:
		return true
	}
}
