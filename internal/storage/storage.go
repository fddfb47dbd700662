package storage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pierrec/lz4/v4"
)

// Encoding names the reversible transform applied to a file body before it
// is embedded in an archive. The names are wire constants.
type Encoding string

const (
	EncodingUTF8       Encoding = "utf8"
	EncodingBase64     Encoding = "base64"
	EncodingZstdBase64 Encoding = "zstd+base64"
	EncodingLZ4Base64  Encoding = "lz4+base64"
)

// Compression selects which compressor the encoder may try for a body
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// StreamThreshold is the body size above which zstd compresses through the
// streaming writer instead of a single-shot buffer
const StreamThreshold = 4 << 20

// ParseEncoding validates an encoding name read from an archive
func ParseEncoding(name string) (Encoding, error) {
	switch enc := Encoding(name); enc {
	case EncodingUTF8, EncodingBase64, EncodingZstdBase64, EncodingLZ4Base64:
		return enc, nil
	default:
		return "", fmt.Errorf("unknown content encoding: %q", name)
	}
}

// ParseCompression parses a compression name from configuration
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(strings.ToLower(name)); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd, CompressionLZ4:
		return c, nil
	default:
		return "", fmt.Errorf("unknown compression: %q", name)
	}
}

// ========================================
// ENCODING SELECTION
// ========================================

// IsTextSafe reports whether content can be embedded verbatim. The forbidden
// substrings are the structural markers of the surrounding document.
func IsTextSafe(content []byte, forbidden ...string) bool {
	if !utf8.Valid(content) {
		return false
	}
	for _, f := range forbidden {
		if f != "" && bytes.Contains(content, []byte(f)) {
			return false
		}
	}
	return true
}

// EncodeBest picks the encoding for a body and returns the encoded payload.
// A compressed form is kept only when it is shorter than the plain one.
// textSafe is the caller's verdict on whether the body may be stored verbatim.
func EncodeBest(content []byte, compression Compression, textSafe bool) (Encoding, string, error) {
	plainEnc := EncodingBase64
	if textSafe {
		plainEnc = EncodingUTF8
	}
	plain, err := Encode(content, plainEnc)
	if err != nil {
		return "", "", err
	}

	var compEnc Encoding
	switch compression {
	case CompressionZstd:
		compEnc = EncodingZstdBase64
	case CompressionLZ4:
		compEnc = EncodingLZ4Base64
	default:
		return plainEnc, plain, nil
	}

	if len(content) == 0 {
		return plainEnc, plain, nil
	}

	packed, err := Encode(content, compEnc)
	if err != nil {
		if err == errIncompressible {
			return plainEnc, plain, nil
		}
		return "", "", err
	}
	if len(packed) >= len(plain) {
		return plainEnc, plain, nil
	}
	return compEnc, packed, nil
}

// ========================================
// CORE TRANSFORMS
// ========================================

// Encode applies enc to content
func Encode(content []byte, enc Encoding) (string, error) {
	switch enc {
	case EncodingUTF8:
		if !utf8.Valid(content) {
			return "", fmt.Errorf("content is not valid UTF-8")
		}
		return string(content), nil

	case EncodingBase64:
		return base64.StdEncoding.EncodeToString(content), nil

	case EncodingZstdBase64:
		compressed, err := compressZstd(content)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(compressed), nil

	case EncodingLZ4Base64:
		compressed, err := compressLZ4(content)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(compressed), nil

	default:
		return "", fmt.Errorf("unsupported content encoding: %q", enc)
	}
}

// Decode inverts Encode. size is the original length recorded in the
// archive. Decompressed output is never allowed to exceed it; a shorter
// output is returned as is and callers compare lengths for their verdict.
func Decode(payload string, enc Encoding, size int64) ([]byte, error) {
	switch enc {
	case EncodingUTF8:
		return []byte(payload), nil

	case EncodingBase64:
		return decodeBase64(payload)

	case EncodingZstdBase64:
		compressed, err := decodeBase64(payload)
		if err != nil {
			return nil, err
		}
		return decompressZstd(compressed, size)

	case EncodingLZ4Base64:
		compressed, err := decodeBase64(payload)
		if err != nil {
			return nil, err
		}
		return decompressLZ4(compressed, size)

	default:
		return nil, fmt.Errorf("unsupported content encoding: %q", enc)
	}
}

// decodeBase64 accepts wrapped input; the standard decoder skips CR and LF
func decodeBase64(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

// Wrap breaks s into lines of at most width characters, each terminated by
// a newline. width <= 0 returns s unchanged.
func Wrap(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/width + 1)
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}

// ========================================
// COMPRESSORS
// ========================================

var errIncompressible = fmt.Errorf("data is incompressible")

// lz4MaxRatio bounds the expansion of an lz4 block
const lz4MaxRatio = 255

func compressZstd(data []byte) ([]byte, error) {
	if len(data) < StreamThreshold {
		return CompressZstd(data), nil
	}

	var buf bytes.Buffer
	w := NewStreamingWriter(&buf)
	defer w.Release()

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zstd stream write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zstd stream close: %w", err)
	}
	return buf.Bytes(), nil
}

// decompressZstd streams the frame through a reader limited to size+1 bytes,
// so a frame declaring more content than the archive recorded fails without
// allocating it
func decompressZstd(compressed []byte, size int64) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("zstd decompress: negative size %d", size)
	}

	r := NewStreamingReader(bytes.NewReader(compressed))
	defer r.Release()

	var buf bytes.Buffer
	buf.Grow(int(min(size, StreamThreshold)))
	if _, err := buf.ReadFrom(io.LimitReader(r, size+1)); err != nil {
		return nil, fmt.Errorf("zstd stream read: %w", err)
	}
	if int64(buf.Len()) > size {
		return nil, fmt.Errorf("zstd decompress: output exceeds recorded size %d", size)
	}
	return buf.Bytes(), nil
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))

	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	// CompressBlock returns 0 for incompressible input
	if written == 0 {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int64) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("lz4 decompress: negative size %d", size)
	}
	if size > int64(len(compressed))*lz4MaxRatio+lz4MaxRatio {
		return nil, fmt.Errorf("lz4 decompress: size %d is implausible for %d compressed bytes", size, len(compressed))
	}
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return destination[:read], nil
}
