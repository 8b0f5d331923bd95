package ipc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/gpsio/gpsio-host/internal/tracks"
)

// requestSchema constrains field types only. Presence rules (cmd, target,
// data on export) produce their own messages in the dispatcher.
const requestSchema = `{
	"$schema": "http://json-schema.org/draft-04/schema#",
	"type": "object",
	"properties": {
		"cmd":    {"type": "string"},
		"data":   {"type": ["string", "null"]},
		"target": {"type": "string"},
		"options": {
			"type": ["object", "null"],
			"properties": {
				"method":         {"type": ["string", "null"]},
				"recentSel":      {"type": ["integer", "number", "string", "null"]},
				"recentSelFirst": {"type": ["integer", "number", "string", "null"]},
				"timeSel":        {"type": ["integer", "number", "string", "null"]},
				"size":           {"type": ["boolean", "integer", "number", "string", "null"]},
				"sizeSel":        {"type": ["string", "null"]}
			}
		}
	}
}`

var requestSchemaLoader = gojsonschema.NewStringLoader(requestSchema)

// ValidationError lists the schema violations of a request.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Details, "; ")
}

// ValidateRequest checks raw against the request schema.
func ValidateRequest(raw []byte) error {
	result, err := gojsonschema.Validate(requestSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationError{Details: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return &ValidationError{Details: details}
}

// PeekCommand returns the cmd field of raw if it is a non-empty string.
// It does not validate the rest of the request.
func PeekCommand(raw []byte) (string, bool) {
	var probe struct {
		Cmd interface{} `json:"cmd"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", false
	}
	s, ok := probe.Cmd.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ParseRequest validates and decodes a request payload.
func ParseRequest(raw []byte) (*Request, error) {
	if err := ValidateRequest(raw); err != nil {
		return nil, err
	}

	var wire struct {
		Cmd     string          `json:"cmd"`
		Data    *string         `json:"data"`
		Target  string          `json:"target"`
		Options json.RawMessage `json:"options"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &ValidationError{Details: []string{err.Error()}}
	}

	req := &Request{
		Cmd:    wire.Cmd,
		Data:   wire.Data,
		Target: wire.Target,
		Raw:    raw,
	}

	opts := bytes.TrimSpace(wire.Options)
	if len(opts) > 0 && !bytes.Equal(opts, []byte("null")) {
		var o tracks.Options
		if err := json.Unmarshal(opts, &o); err != nil {
			return nil, &ValidationError{Details: []string{err.Error()}}
		}
		req.Options = &o
	}

	return req, nil
}

// EncodeRequest serializes a request for the wire, including options.
func EncodeRequest(req Request, options map[string]interface{}) ([]byte, error) {
	payload := map[string]interface{}{}
	if req.Cmd != "" {
		payload["cmd"] = req.Cmd
	}
	if req.Data != nil {
		payload["data"] = *req.Data
	}
	if req.Target != "" {
		payload["target"] = req.Target
	}
	if options != nil {
		payload["options"] = options
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return data, nil
}
