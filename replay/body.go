// Package replay holds response bodies that have already been read off the wire
// so they can be handed out again, e.g. after being pulled from a cache.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// UsageError is returned by every operation a Body does not support. It
// matches errors.ErrUnsupported.
type UsageError struct {
	Op string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("replay: %s is not supported on a replayable body", e.Op)
}

func (e *UsageError) Unwrap() error {
	return errors.ErrUnsupported
}

// Body is a read-only, position-less view over a fixed byte buffer captured at
// construction time.
//
// Read does not keep a cursor: every call starts at byte 0. Callers that need
// the full payload use Contents, and callers that need an io.Reader (such as
// http.Response.Body) use NewReader.
type Body struct {
	content []byte
}

// New returns a Body over b. The slice is copied.
func New(b []byte) *Body {
	c := make([]byte, len(b))
	copy(c, b)
	return &Body{content: c}
}

// FromReader drains r into a new Body.
func FromReader(r io.Reader) (*Body, error) {
	if r == nil {
		return &Body{content: []byte{}}, nil
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("replay: reading body: %w", err)
	}

	return &Body{content: b}, nil
}

// Read returns up to n bytes from the start of the buffer.
func (b *Body) Read(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	if n > len(b.content) {
		n = len(b.content)
	}

	out := make([]byte, n)
	copy(out, b.content[:n])
	return out
}

// Contents returns the whole buffer.
func (b *Body) Contents() []byte {
	out := make([]byte, len(b.content))
	copy(out, b.content)
	return out
}

func (b *Body) String() string {
	return string(b.content)
}

// Size returns the buffer length in bytes.
func (b *Body) Size() int {
	return len(b.content)
}

// NewReader returns an independent sequential reader over the buffer. Closing
// it does not affect the Body or other readers.
func (b *Body) NewReader() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b.content))
}

func (b *Body) IsReadable() bool { return true }
func (b *Body) IsWritable() bool { return false }
func (b *Body) IsSeekable() bool { return false }

func (b *Body) Seek(int64, int) (int64, error) {
	return 0, &UsageError{Op: "seek"}
}

func (b *Body) Write([]byte) (int, error) {
	return 0, &UsageError{Op: "write"}
}

func (b *Body) Tell() (int64, error) {
	return 0, &UsageError{Op: "tell"}
}

func (b *Body) EOF() (bool, error) {
	return false, &UsageError{Op: "eof"}
}

func (b *Body) Detach() error {
	return &UsageError{Op: "detach"}
}

func (b *Body) Attach(io.Reader) error {
	return &UsageError{Op: "attach"}
}

func (b *Body) Metadata(string) (any, error) {
	return nil, &UsageError{Op: "metadata"}
}

func (b *Body) Close() error {
	return &UsageError{Op: "close"}
}
