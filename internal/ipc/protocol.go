package ipc

import (
	"encoding/json"

	"github.com/gpsio/gpsio-host/internal/tracks"
)

// ProtocolVersion is reported in the ping-host response.
const ProtocolVersion = 1

// Command is the closed set of request commands.
type Command string

const (
	CommandPing   Command = "ping-host"
	CommandImport Command = "import"
	CommandExport Command = "export"
)

// ParseCommand maps a wire string to a Command.
func ParseCommand(s string) (Command, bool) {
	switch Command(s) {
	case CommandPing, CommandImport, CommandExport:
		return Command(s), true
	default:
		return "", false
	}
}

// Target is the closed set of device families.
type Target string

const (
	TargetGarmin Target = "garmin"
)

// ParseTarget maps a wire string to a Target.
func ParseTarget(s string) (Target, bool) {
	switch Target(s) {
	case TargetGarmin:
		return TargetGarmin, true
	default:
		return "", false
	}
}

// Status is the response status.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Request is a JSON message sent from the extension to the host.
type Request struct {
	Cmd     string          `json:"cmd,omitempty"`
	Data    *string         `json:"data,omitempty"`   // GPX text, required for export
	Target  string          `json:"target,omitempty"` // "garmin"
	Options *tracks.Options `json:"-"`
	Raw     json.RawMessage `json:"-"`
}

// Response is a JSON message sent from the host to the extension.
type Response struct {
	Cmd     string  `json:"cmd"`
	Status  Status  `json:"status"`
	Message *string `json:"message,omitempty"`
	Note    string  `json:"note,omitempty"`
	Version int     `json:"version,omitempty"`
}

// Text returns the message or "".
func (r Response) Text() string {
	if r.Message == nil {
		return ""
	}
	return *r.Message
}

// OK builds a successful response carrying message.
func OK(cmd, message string) Response {
	return Response{Cmd: cmd, Status: StatusOK, Message: &message}
}

// Fail builds an error response carrying message.
func Fail(cmd, message string) Response {
	return Response{Cmd: cmd, Status: StatusError, Message: &message}
}

// Pong is the liveness reply to ping-host.
func Pong() Response {
	return Response{Cmd: string(CommandPing), Status: StatusOK, Version: ProtocolVersion}
}
