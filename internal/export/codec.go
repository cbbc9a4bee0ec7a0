// Package export moves decomposition data between autofragment and files:
// results are written as JSON, optionally gzip or zstd compressed, and input
// molecule tables are read from JSON, CSV, TSV or SMILES files.
package export

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// Compression selects the stream wrapper around the JSON document.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

// Extension is the file suffix appended after ".json".
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// ContentEncoding is the HTTP/S3 Content-Encoding value, empty for none.
func (c Compression) ContentEncoding() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return ""
	}
}

// ParseCompression accepts "", "none", "gzip"/"gz" and "zstd"/"zst".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	}
	return CompressionNone, errors.Newf(errors.ErrCodeValidation, "unknown compression %q", s)
}

// CompressionForPath infers the compression from a file name.
func CompressionForPath(path string) Compression {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".zstd"):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// stripCompression removes a compression suffix from path.
func stripCompression(path string) string {
	lower := strings.ToLower(path)
	for _, ext := range []string{".gz", ".zst", ".zstd"} {
		if strings.HasSuffix(lower, ext) {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}

// zstdReadCloser adapts *zstd.Decoder, whose Close returns nothing.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

func newWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZstd:
		return zstd.NewWriter(w)
	default:
		return nopWriteCloser{w}, nil
	}
}

func newReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionZstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{d}, nil
	default:
		return io.NopCloser(r), nil
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Encode writes result as indented JSON through the chosen compression.
func Encode(w io.Writer, result *molecule.DecompositionResult, c Compression) error {
	if result == nil {
		return errors.InvalidParam("result is nil")
	}
	cw, err := newWriter(w, c)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to open compressor")
	}
	enc := json.NewEncoder(cw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		_ = cw.Close()
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode result")
	}
	if err := cw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to flush compressor")
	}
	return nil
}

// Decode reads a result written by Encode.
func Decode(r io.Reader, c Compression) (*molecule.DecompositionResult, error) {
	cr, err := newReader(r, c)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to open decompressor")
	}
	defer cr.Close()

	var result molecule.DecompositionResult
	if err := json.NewDecoder(cr).Decode(&result); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode result")
	}
	if result.Fragments == nil {
		result.Fragments = make(map[string]molecule.FragmentCountMap)
	}
	if result.FailedIDs == nil {
		result.FailedIDs = []string{}
	}
	return &result, nil
}

// Marshal is Encode into memory.
func Marshal(result *molecule.DecompositionResult, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, result, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal is Decode from memory.
func Unmarshal(data []byte, c Compression) (*molecule.DecompositionResult, error) {
	return Decode(bytes.NewReader(data), c)
}

// WriteFile encodes result to path, choosing the compression from its suffix.
func WriteFile(path string, result *molecule.DecompositionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create output file").WithDetail(path)
	}
	if err := Encode(f, result, CompressionForPath(path)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to close output file").WithDetail(path)
	}
	return nil
}

// ReadFile reads a result written by WriteFile.
func ReadFile(path string) (*molecule.DecompositionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "failed to open result file").WithDetail(path)
	}
	defer f.Close()
	return Decode(f, CompressionForPath(path))
}

//Personal.AI order the ending
