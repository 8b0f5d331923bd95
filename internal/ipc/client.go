package ipc

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Client talks to a native-messaging host executable the way the browser
// does: one process per request, framed request on stdin, chunked response
// on stdout.
type Client struct {
	hostPath string
	args     []string
	timeout  time.Duration
}

// NewClient creates a client that launches the host at hostPath with args.
func NewClient(hostPath string, args ...string) *Client {
	return &Client{
		hostPath: hostPath,
		args:     args,
		timeout:  30 * time.Second,
	}
}

// Ping tests if the host answers ping-host and returns its protocol version.
func (c *Client) Ping(ctx context.Context) (int, error) {
	resp, err := c.Call(ctx, Request{Cmd: string(CommandPing)}, nil)
	if err != nil {
		return 0, err
	}
	if resp.Status != StatusOK {
		return 0, fmt.Errorf("host error: %s", resp.Text())
	}
	return resp.Version, nil
}

// Call launches the host, sends req, and returns the reassembled response.
func (c *Client) Call(ctx context.Context, req Request, options map[string]interface{}) (*Response, error) {
	payload, err := EncodeRequest(req, options)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stdin, stdout, stderr bytes.Buffer
	if err := WriteFrame(&stdin, payload); err != nil {
		return nil, fmt.Errorf("frame request: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.hostPath, c.args...)
	cmd.Stdin = &stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("run host: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("run host: %w", err)
	}

	return ReadResponse(&stdout)
}

// ReadResponse reads chunk frames until EOF, concatenates the decoded
// slices in order, and parses the result.
func ReadResponse(r io.Reader) (*Response, error) {
	text, chunks, err := ReadChunks(r)
	if err != nil {
		return nil, err
	}
	if chunks == 0 {
		return nil, fmt.Errorf("empty response from host")
	}

	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

// ReadChunks reassembles the serialized response text and reports how many
// chunk frames carried it.
func ReadChunks(r io.Reader) (string, int, error) {
	var b strings.Builder
	count := 0
	for {
		var lengthBuf [lengthPrefixBytes]byte
		if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return b.String(), count, nil
			}
			return "", count, fmt.Errorf("read chunk %d length: %w", count, err)
		}

		frame := make([]byte, binary.NativeEndian.Uint32(lengthBuf[:]))
		if _, err := io.ReadFull(r, frame); err != nil {
			return "", count, fmt.Errorf("read chunk %d: %w", count, err)
		}

		var slice string
		if err := json.Unmarshal(frame, &slice); err != nil {
			return "", count, fmt.Errorf("decode chunk %d: %w", count, err)
		}
		b.WriteString(slice)
		count++
	}
}
