package corpus

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Source is a named stream of corpus lines.
type Source struct {
	Name string
	io.ReadCloser
}

// Stdin wraps standard input as a Source. Closing it is a no-op.
func Stdin() *Source {
	return &Source{Name: "<stdin>", ReadCloser: io.NopCloser(os.Stdin)}
}

// Open opens a corpus file. Gzip input, as the raw n-gram exports are
// shipped, is detected from its magic bytes and decompressed.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	rc, err := Decompress(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	return &Source{Name: path, ReadCloser: rc}, nil
}

// Decompress returns r unchanged unless it starts with the gzip magic, in
// which case the returned reader inflates it. Closing the result closes r.
func Decompress(r io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("sniffing compression: %w", err)
	}
	if !bytes.Equal(magic, gzipMagic) {
		return &readCloser{Reader: br, closers: []io.Closer{r}}, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	return &readCloser{Reader: zr, closers: []io.Closer{zr, r}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
