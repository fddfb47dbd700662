package bundle

import (
	"fmt"
	"strings"

	"tangled.org/tokentrim.app/tokentrim/internal/storage"
	"tangled.org/tokentrim.app/tokentrim/internal/types"
)

const (
	// FormatName identifies a lossless archive
	FormatName = types.FORMAT_NAME

	// FormatVersion is the archive version written by this encoder
	FormatVersion = types.FORMAT_VERSION

	// UnknownLanguage is stored when no language was resolved
	UnknownLanguage = types.UNKNOWN_LANGUAGE

	// DetectingLanguage is the in-progress placeholder that is never exported
	DetectingLanguage = types.DETECTING_LANGUAGE
)

// Re-exported storage settings
type (
	Compression     = storage.Compression
	DigestAlgorithm = storage.DigestAlgorithm
	Encoding        = storage.Encoding
)

const (
	CompressionNone = storage.CompressionNone
	CompressionZstd = storage.CompressionZstd
	CompressionLZ4  = storage.CompressionLZ4

	DigestNone   = storage.DigestNone
	DigestBLAKE3 = storage.DigestBLAKE3
	DigestSHA256 = storage.DigestSHA256
)

// Mode selects the artifact shape
type Mode int

const (
	// ModeAuto lets the decoder detect the artifact kind
	ModeAuto Mode = iota
	// ModeRaw is the one-way plain concatenation
	ModeRaw
	// ModeLosslessJSON is the canonical .json archive
	ModeLosslessJSON
	// ModeNoExtension is self-describing text any reader can decode
	ModeNoExtension
	// ModeWithExtension wraps the archive between sentinel lines
	ModeWithExtension
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeRaw:
		return "raw"
	case ModeLosslessJSON:
		return "json"
	case ModeNoExtension:
		return "no-ext"
	case ModeWithExtension:
		return "with-ext"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name as accepted on the command line
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return ModeAuto, nil
	case "raw":
		return ModeRaw, nil
	case "json", "lossless":
		return ModeLosslessJSON, nil
	case "no-ext", "no-extension", "noext":
		return ModeNoExtension, nil
	case "with-ext", "with-extension", "ext":
		return ModeWithExtension, nil
	default:
		return 0, fmt.Errorf("unknown mode: %q", name)
	}
}

// ========================================
// ENCODER INPUT
// ========================================

// FileRecord is one file handed to the encoder
type FileRecord struct {
	Filename     string
	Content      []byte
	Language     string
	OriginalSize int64
	Compressed   string // collaborator output, never used for reconstruction
	TokenCount   int
}

// ========================================
// ARCHIVE
// ========================================

// Archive is the canonical lossless representation
type Archive struct {
	Format          string          `json:"format"`
	FormatVersion   int             `json:"format_version"`
	DigestAlgorithm DigestAlgorithm `json:"digest_algorithm,omitempty"`
	TotalFiles      int             `json:"total_files"`
	Files           []ArchiveFile   `json:"files"`
}

// ArchiveFile is one entry of an Archive
type ArchiveFile struct {
	Filename       string   `json:"filename"`
	OriginalSize   int64    `json:"original_size"`
	Language       string   `json:"language"`
	TokenCount     int      `json:"token_count"`
	CompressedSize int64    `json:"compressed_size,omitempty"`
	Encoding       Encoding `json:"encoding"`
	Content        string   `json:"content"`
	Digest         string   `json:"digest,omitempty"`
}

// ========================================
// DECODER OUTPUT
// ========================================

// RecoveredFile is one reconstructed file
type RecoveredFile struct {
	Index          int // position in the archive, stable under duplicate names
	Filename       string
	Content        []byte
	RecoveredSize  int64
	OriginalSize   int64
	Language       string
	TokenCount     int
	Digest         string
	DigestVerified bool
	Match          bool
}

// DecodeResult is the outcome of one decode call
type DecodeResult struct {
	Kind            Mode
	FormatVersion   int
	DigestAlgorithm DigestAlgorithm
	TotalFiles      int
	Files           []RecoveredFile
}

// AllMatch reports whether every recovered file matched its recorded size and digest
func (r *DecodeResult) AllMatch() bool {
	for _, f := range r.Files {
		if !f.Match {
			return false
		}
	}
	return true
}

// Mismatched returns the recovered files whose verdict is false
func (r *DecodeResult) Mismatched() []RecoveredFile {
	var out []RecoveredFile
	for _, f := range r.Files {
		if !f.Match {
			out = append(out, f)
		}
	}
	return out
}

// TotalBytes returns the sum of recovered sizes
func (r *DecodeResult) TotalBytes() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.RecoveredSize
	}
	return total
}

// Artifact is an encoded bundle ready to be offered for download
type Artifact struct {
	Mode        Mode
	Filename    string
	ContentType string
	Data        []byte
}

// ========================================
// CONFIG
// ========================================

// Config holds codec settings
type Config struct {
	// MaxPayloadBytes caps artifact size on encode and input size on decode (0 = unlimited)
	MaxPayloadBytes int64
	// MaxDecodedBytes caps the summed original_size of a decoded archive (0 = unlimited)
	MaxDecodedBytes int64
	Compression     Compression
	Digest          DigestAlgorithm
	// Workers bounds per-file parallelism (<= 0 uses runtime.NumCPU)
	Workers   int
	WrapWidth int
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxPayloadBytes: types.DEFAULT_MAX_PAYLOAD_BYTES,
		MaxDecodedBytes: types.DEFAULT_MAX_DECODED_BYTES,
		Compression:     CompressionNone,
		Digest:          DigestBLAKE3,
		Workers:         0,
		WrapWidth:       types.DEFAULT_WRAP_WIDTH,
	}
}

// Validate checks the config for unknown settings
func (c *Config) Validate() error {
	if c.MaxPayloadBytes < 0 {
		return fmt.Errorf("invalid max payload bytes: %d", c.MaxPayloadBytes)
	}
	if c.MaxDecodedBytes < 0 {
		return fmt.Errorf("invalid max decoded bytes: %d", c.MaxDecodedBytes)
	}
	if _, err := storage.ParseCompression(string(c.Compression)); err != nil {
		return err
	}
	if _, err := storage.ParseDigestAlgorithm(string(c.Digest)); err != nil {
		return err
	}
	if c.WrapWidth < 0 {
		return fmt.Errorf("invalid wrap width: %d", c.WrapWidth)
	}
	return nil
}
