// Package converter runs the external track-format converter (gpsbabel)
// and interprets its output streams.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"
)

// Result holds the captured streams of one converter run.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner runs the converter with args, feeding stdin when non-nil.
type Runner interface {
	Run(ctx context.Context, args []string, stdin []byte) (Result, error)
}

// ExecRunner runs the converter as a child process.
type ExecRunner struct {
	Path string
}

// Run implements Runner. A non-zero exit status is reported in
// Result.ExitCode, not as an error; only failing to start is an error.
func (r ExecRunner) Run(ctx context.Context, args []string, stdin []byte) (Result, error) {
	cmd := exec.CommandContext(ctx, r.Path, args...)
	hideWindow(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("run %s: %w", r.Path, err)
	}
	return res, nil
}

// USB is the converter's file name for a device on the native USB protocol.
const USB = "usb:"

// baseArgs asks for waypoints, routes and tracks.
var baseArgs = []string{"-w", "-r", "-t"}

// MergeArgs reads every file as GPX and writes one merged GPX to stdout.
func MergeArgs(files []string) []string {
	args := append([]string{}, baseArgs...)
	args = append(args, "-i", "gpx")
	for _, f := range files {
		args = append(args, "-f", f)
	}
	return append(args, "-o", "gpx", "-F", "-")
}

// DeviceImportArgs reads from a device speaking format over USB and writes
// GPX to stdout.
func DeviceImportArgs(format string) []string {
	args := append([]string{}, baseArgs...)
	return append(args, "-i", format, "-f", USB, "-o", "gpx", "-F", "-")
}

// DeviceExportArgs reads GPX from stdin and writes it to a device speaking
// format over USB.
func DeviceExportArgs(format string) []string {
	args := append([]string{}, baseArgs...)
	return append(args, "-i", "gpx", "-f", "-", "-o", format, "-F", USB)
}

// noDevice lists diagnostics the converter prints when nothing is attached.
var noDevice = []string{
	"cannot find the path specified",
	"device is not ready",
	"can't init usb",
}

// IsNoDevice reports whether stderr says no device is connected.
func IsNoDevice(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, s := range noDevice {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Significant reports whether stderr holds more than a stray newline.
func Significant(stderr []byte) bool {
	return len(stderr) > 2
}

// DecodeText returns b as a string, treating it as Latin-1 when it is not
// valid UTF-8.
func DecodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b) * 2)
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
