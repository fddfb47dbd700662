package storage

import (
	"io"

	"github.com/valyala/gozstd"
)

// ============================================================================
// ZSTD COMPRESSION ABSTRACTION LAYER
// ============================================================================
// This file provides a clean interface for zstd operations.
// Swap implementations by changing the functions in this file.

const (
	// CompressionLevel is the zstd level used for file content
	CompressionLevel = 3
)

// CompressZstd compresses a whole file body into a single zstd frame
func CompressZstd(data []byte) []byte {
	return gozstd.CompressLevel(nil, data, CompressionLevel)
}

// NewStreamingReader creates a streaming decompressor
// Returns a reader that must be released with Release()
func NewStreamingReader(r io.Reader) StreamReader {
	return &gozstdReader{reader: gozstd.NewReader(r)}
}

// NewStreamingWriter creates a streaming compressor at CompressionLevel
// Returns a writer that must be closed with Close() then released with Release()
func NewStreamingWriter(w io.Writer) StreamWriter {
	return &gozstdWriter{writer: gozstd.NewWriterLevel(w, CompressionLevel)}
}

// ============================================================================
// INTERFACES (for abstraction)
// ============================================================================

// StreamReader is a streaming decompression reader
type StreamReader interface {
	io.Reader
	io.WriterTo
	Release()
}

// StreamWriter is a streaming compression writer
type StreamWriter interface {
	io.Writer
	io.Closer
	Flush() error
	Release()
}

// ============================================================================
// WRAPPER TYPES (valyala/gozstd specific)
// ============================================================================

type gozstdReader struct {
	reader *gozstd.Reader
}

func (r *gozstdReader) Read(p []byte) (int, error) {
	return r.reader.Read(p)
}

func (r *gozstdReader) WriteTo(w io.Writer) (int64, error) {
	return r.reader.WriteTo(w)
}

func (r *gozstdReader) Release() {
	r.reader.Release()
}

type gozstdWriter struct {
	writer *gozstd.Writer
}

func (w *gozstdWriter) Write(p []byte) (int, error) {
	return w.writer.Write(p)
}

func (w *gozstdWriter) Close() error {
	return w.writer.Close()
}

func (w *gozstdWriter) Flush() error {
	return w.writer.Flush()
}

func (w *gozstdWriter) Release() {
	w.writer.Release()
}
