package signaling

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Reader pulls descriptors from a line-oriented input. Reuse one Reader per
// input so lines buffered after a failed attempt are not lost.
type Reader struct {
	sc *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxCompactSize)
	return &Reader{sc: sc}
}

// Read consumes a single descriptor from r.
func Read(r io.Reader) (Descriptor, error) {
	return NewReader(r).Next()
}

// Next consumes lines until they form a descriptor.
// Pasted JSON may be wrapped across lines by a terminal, so lines are joined
// until Parse succeeds; a blank line after some input gives up.
func (r *Reader) Next() (Descriptor, error) {
	sc := r.sc

	var (
		sb      strings.Builder
		lastErr error
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if sb.Len() == 0 {
				continue
			}
			break
		}

		sb.WriteString(line)
		d, err := Parse(sb.String())
		if err == nil {
			return d, nil
		}
		lastErr = err
	}

	if err := sc.Err(); err != nil {
		return Descriptor{}, fmt.Errorf("read descriptor: %w", err)
	}
	if lastErr != nil {
		return Descriptor{}, lastErr
	}
	return Descriptor{}, fmt.Errorf("%w: %w", ErrParse, io.ErrUnexpectedEOF)
}

// IsParseError reports whether err came from descriptor parsing.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}
