package tokentrim

import (
	"tangled.org/tokentrim.app/tokentrim/bundle"
	"tangled.org/tokentrim.app/tokentrim/internal/detect"
	"tangled.org/tokentrim.app/tokentrim/internal/types"
)

// Re-export commonly used types for convenience
type (
	Archive       = bundle.Archive
	ArchiveFile   = bundle.ArchiveFile
	Artifact      = bundle.Artifact
	Config        = bundle.Config
	DecodeResult  = bundle.DecodeResult
	Decoder       = bundle.Decoder
	Encoder       = bundle.Encoder
	FileRecord    = bundle.FileRecord
	Mode          = bundle.Mode
	RecoveredFile = bundle.RecoveredFile
	Session       = bundle.Session
	SessionState  = bundle.SessionState
	CodecError    = bundle.CodecError

	Compression     = bundle.Compression
	DigestAlgorithm = bundle.DigestAlgorithm

	Logger = types.Logger
)

// Re-export constants
const (
	ModeAuto          = bundle.ModeAuto
	ModeRaw           = bundle.ModeRaw
	ModeLosslessJSON  = bundle.ModeLosslessJSON
	ModeNoExtension   = bundle.ModeNoExtension
	ModeWithExtension = bundle.ModeWithExtension

	CompressionNone = bundle.CompressionNone
	CompressionZstd = bundle.CompressionZstd
	CompressionLZ4  = bundle.CompressionLZ4

	DigestNone   = bundle.DigestNone
	DigestBLAKE3 = bundle.DigestBLAKE3
	DigestSHA256 = bundle.DigestSHA256

	FORMAT_NAME    = types.FORMAT_NAME
	FORMAT_VERSION = types.FORMAT_VERSION
)

// Re-export error kinds
var (
	ErrMalformedArchive   = bundle.ErrMalformedArchive
	ErrUnsupportedVersion = bundle.ErrUnsupportedVersion
	ErrSchemaMismatch     = bundle.ErrSchemaMismatch
	ErrCountMismatch      = bundle.ErrCountMismatch
	ErrUnrecognizedFormat = bundle.ErrUnrecognizedFormat
	ErrTruncatedPayload   = bundle.ErrTruncatedPayload
	ErrUnsafeFilename     = bundle.ErrUnsafeFilename
	ErrEmptyInput         = bundle.ErrEmptyInput
	ErrPayloadTooLarge    = bundle.ErrPayloadTooLarge
)

// DefaultConfig returns default configuration (convenience wrapper)
func DefaultConfig() *Config {
	return bundle.DefaultConfig()
}

// ParseMode parses a mode name (convenience wrapper)
func ParseMode(name string) (Mode, error) {
	return bundle.ParseMode(name)
}

// DetectMode classifies an artifact (convenience wrapper)
func DetectMode(data []byte) (Mode, error) {
	return bundle.DetectMode(data)
}

// Serialize renders an archive as JSON (convenience wrapper)
func Serialize(a *Archive) ([]byte, error) {
	return bundle.Serialize(a)
}

// Deserialize parses and validates a JSON archive (convenience wrapper)
func Deserialize(data []byte) (*Archive, error) {
	return bundle.Deserialize(data)
}

// NewFileRecord builds an encoder input for content, filling language and
// token estimate
func NewFileRecord(filename string, content []byte) FileRecord {
	return FileRecord{
		Filename:     filename,
		Content:      content,
		Language:     detect.Language(filename, content),
		OriginalSize: int64(len(content)),
		TokenCount:   detect.EstimateTokens(content),
	}
}
