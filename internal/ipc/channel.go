// Package ipc implements the browser native-messaging wire format: a single
// length-prefixed JSON request on stdin, and a response on stdout split into
// length-prefixed JSON string chunks that the extension concatenates.
package ipc

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	// MaxMessageBytes is the browser's ceiling for one host-to-extension
	// message. Every chunk must stay strictly below it.
	MaxMessageBytes = 1_000_000

	// MaxChunkChars is the largest chunk size whose worst-case encoding
	// (6 bytes per character for \u00XX escapes, plus two quotes) stays
	// below MaxMessageBytes.
	MaxChunkChars = (MaxMessageBytes - 3) / 6

	// MaxRequestBytes bounds the inbound payload a host will allocate for.
	MaxRequestBytes = 64 << 20

	lengthPrefixBytes = 4
)

// ErrMalformedRequest is returned when the inbound frame is truncated or is
// not a JSON object. No response can be framed for such a request.
var ErrMalformedRequest = errors.New("malformed request")

// ReadRequest reads one framed request: a 4-byte unsigned length in the
// browser's native byte order followed by that many bytes of UTF-8 JSON.
// The returned payload is guaranteed to be a JSON object.
func ReadRequest(r io.Reader) ([]byte, error) {
	var lengthBuf [lengthPrefixBytes]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: read length prefix: %v", ErrMalformedRequest, err)
	}

	length := binary.NativeEndian.Uint32(lengthBuf[:])
	if length > MaxRequestBytes {
		return nil, fmt.Errorf("%w: request of %d bytes exceeds limit %d", ErrMalformedRequest, length, MaxRequestBytes)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: read %d byte payload: %v", ErrMalformedRequest, length, err)
	}

	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not UTF-8", ErrMalformedRequest)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", ErrMalformedRequest)
	}
	if trimmed := bytes.TrimSpace(payload); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedRequest)
	}

	return payload, nil
}

// WriteFrame writes one length-prefixed message.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("frame of %d bytes does not fit a 32-bit length", len(payload))
	}
	var lengthBuf [lengthPrefixBytes]byte
	binary.NativeEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := w.Write(lengthBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

type flusher interface {
	Flush() error
}

// Writer sends responses as a sequence of chunk frames.
type Writer struct {
	w         io.Writer
	chunkSize int
	log       logrus.FieldLogger
}

// NewWriter creates a Writer that splits serialized responses into slices
// of at most chunkSize characters.
func NewWriter(w io.Writer, chunkSize int, log logrus.FieldLogger) *Writer {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Writer{w: w, chunkSize: chunkSize, log: log}
}

// Send serializes resp and writes it as one or more chunk frames, flushing
// after each one. It returns the number of chunks written.
func (cw *Writer) Send(resp Response) (int, error) {
	if cw.chunkSize < 1 || cw.chunkSize > MaxChunkChars {
		return 0, fmt.Errorf("chunk size %d outside 1..%d", cw.chunkSize, MaxChunkChars)
	}

	text, err := marshalCompact(resp)
	if err != nil {
		return 0, fmt.Errorf("marshal response: %w", err)
	}

	chunks := SplitChunks(string(text), cw.chunkSize)
	cw.log.WithFields(logrus.Fields{
		"msglen": utf8.RuneCount(text),
		"chunks": len(chunks),
	}).Debug("sending response")

	for i, chunk := range chunks {
		encoded, err := marshalCompact(chunk)
		if err != nil {
			return i, fmt.Errorf("encode chunk %d: %w", i, err)
		}
		if len(encoded) >= MaxMessageBytes {
			return i, fmt.Errorf("chunk %d encodes to %d bytes, limit %d", i, len(encoded), MaxMessageBytes)
		}
		if err := WriteFrame(cw.w, encoded); err != nil {
			return i, fmt.Errorf("write chunk %d: %w", i, err)
		}
		if f, ok := cw.w.(flusher); ok {
			if err := f.Flush(); err != nil {
				return i, fmt.Errorf("flush chunk %d: %w", i, err)
			}
		}
		cw.log.WithField("bytes", len(encoded)).Debugf("chunk %d written", i)
	}

	return len(chunks), nil
}

// SplitChunks partitions s into consecutive slices of at most size
// characters. The empty string yields no chunks.
func SplitChunks(s string, size int) []string {
	if size < 1 {
		size = 1
	}
	var chunks []string
	for len(s) > 0 {
		end, count := 0, 0
		for end < len(s) && count < size {
			_, n := utf8.DecodeRuneInString(s[end:])
			end += n
			count++
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}

// marshalCompact encodes v as JSON without HTML escaping so GPX markup is
// not inflated to \u003c sequences.
func marshalCompact(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
