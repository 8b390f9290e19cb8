package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/sarchlab/avdcache/mem/mem"
)

// A Reference is one memory access read from a trace.
type Reference struct {
	Type    mem.AccessType
	Address uint64
}

// A ParseError reports a trace line that is not a valid reference.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("trace line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// A Reader reads references from a text trace. Each line holds an access
// type (R or W) and an address, in decimal or 0x-prefixed hexadecimal.
// Blank lines and lines starting with # are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	offset  uint64
}

// NewReader creates a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	reader := &Reader{scanner: bufio.NewScanner(r)}
	reader.scanner.Split(reader.scanLines)

	return reader
}

func (r *Reader) scanLines(data []byte, atEOF bool) (int, []byte, error) {
	advance, token, err := bufio.ScanLines(data, atEOF)
	r.offset += uint64(advance)

	return advance, token, err
}

// Offset returns the number of bytes of the trace consumed so far.
func (r *Reader) Offset() uint64 {
	return r.offset
}

// Open opens a trace file on the given filesystem. The caller closes the
// returned file.
func Open(fs afero.Fs, path string) (*Reader, io.Closer, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening trace: %w", err)
	}

	return NewReader(f), f, nil
}

// Next returns the next reference. It returns io.EOF when the trace ends.
func (r *Reader) Next() (Reference, error) {
	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		ref, err := parseReference(text)
		if err != nil {
			return Reference{}, &ParseError{Line: r.line, Text: text, Err: err}
		}

		return ref, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Reference{}, err
	}

	return Reference{}, io.EOF
}

// ForEach calls fn for every remaining reference. It stops at the first
// error from the trace or from fn.
func (r *Reader) ForEach(fn func(Reference) error) error {
	for {
		ref, err := r.Next()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		if err := fn(ref); err != nil {
			return err
		}
	}
}

func parseReference(text string) (Reference, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return Reference{}, fmt.Errorf("expected 2 fields, got %d", len(fields))
	}

	accessType, err := mem.ParseAccessType(fields[0])
	if err != nil {
		return Reference{}, err
	}

	addr, err := parseAddress(fields[1])
	if err != nil {
		return Reference{}, err
	}

	return Reference{Type: accessType, Address: addr}, nil
}

func parseAddress(s string) (uint64, error) {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") {
		return strconv.ParseUint(lower[2:], 16, 64)
	}

	return strconv.ParseUint(s, 10, 64)
}
