package bundle

import (
	"bytes"
	"context"

	"github.com/goccy/go-json"
	"tangled.org/tokentrim.app/tokentrim/internal/storage"
)

// Decoder reconstructs files from lossless artifacts. It holds no state
// between calls and is safe for concurrent use.
type Decoder struct {
	config *Config
}

// NewDecoder creates a decoder. A nil config uses DefaultConfig.
func NewDecoder(cfg *Config) *Decoder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Decoder{config: cfg}
}

// Decode parses an artifact and reconstructs every file in archive order.
// With ModeAuto the artifact kind is detected from its content.
func (d *Decoder) Decode(ctx context.Context, data []byte, mode Mode) (*DecodeResult, error) {
	if limit := d.config.MaxPayloadBytes; limit > 0 && int64(len(data)) > limit {
		return nil, codecErrorf(ErrPayloadTooLarge, "input is %d bytes, limit is %d", len(data), limit)
	}

	if mode == ModeAuto {
		detected, err := DetectMode(data)
		if err != nil {
			return nil, err
		}
		mode = detected
	}

	archive, err := d.parse(data, mode)
	if err != nil {
		return nil, err
	}

	if archive.TotalFiles != len(archive.Files) {
		return nil, &CodecError{
			Kind: ErrCountMismatch,
			Msg:  "archive declares total_files but carries a different number of entries",
			Err:  codecErrorf(ErrSchemaMismatch, "total_files is %d, entries %d", archive.TotalFiles, len(archive.Files)),
		}
	}

	if err := d.checkDecodedSize(archive); err != nil {
		return nil, err
	}

	files, err := d.reconstruct(ctx, archive)
	if err != nil {
		return nil, err
	}

	return &DecodeResult{
		Kind:            mode,
		FormatVersion:   archive.FormatVersion,
		DigestAlgorithm: archive.DigestAlgorithm,
		TotalFiles:      len(files),
		Files:           files,
	}, nil
}

// DetectMode classifies an artifact. JSON wins over sentinels, which win
// over bundle markers.
func DetectMode(data []byte) (Mode, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0, codecErrorf(ErrUnrecognizedFormat, "empty input")
	}

	if trimmed[0] == '{' && json.Valid(trimmed) {
		return ModeLosslessJSON, nil
	}
	if hasSentinel(data) {
		return ModeWithExtension, nil
	}
	if hasBundleMarkers(data) {
		return ModeNoExtension, nil
	}
	if trimmed[0] == '{' {
		return 0, codecErrorf(ErrMalformedArchive, "input looks like JSON but does not parse")
	}
	return 0, codecErrorf(ErrUnrecognizedFormat, "no archive, sentinel or bundle marker found")
}

func (d *Decoder) parse(data []byte, mode Mode) (*Archive, error) {
	switch mode {
	case ModeLosslessJSON:
		return parseArchive(data)

	case ModeWithExtension:
		payload, err := extractSentinelPayload(data)
		if err != nil {
			return nil, err
		}
		return parseArchive(payload)

	case ModeNoExtension:
		return parseNoExtension(data)

	default:
		return nil, codecErrorf(ErrUnrecognizedFormat, "mode %s cannot be decoded", mode)
	}
}

// checkDecodedSize bounds the memory a decode may allocate. Entries can never
// decompress past their recorded size, so the recorded sizes are the bound.
func (d *Decoder) checkDecodedSize(archive *Archive) error {
	limit := d.config.MaxDecodedBytes
	if limit <= 0 {
		return nil
	}
	var total int64
	for i := range archive.Files {
		total += archive.Files[i].OriginalSize
		if total > limit || total < 0 {
			return codecErrorf(ErrPayloadTooLarge, "archive records more than %d bytes of content", limit)
		}
	}
	return nil
}

// reconstruct inverts every entry. A failing entry aborts the decode and the
// lowest failing index is reported.
func (d *Decoder) reconstruct(ctx context.Context, archive *Archive) ([]RecoveredFile, error) {
	files := make([]RecoveredFile, len(archive.Files))
	alg := digestOrNone(archive.DigestAlgorithm)

	err := forEachFile(ctx, len(archive.Files), d.config.Workers, func(i int) error {
		entry := &archive.Files[i]

		content, err := storage.Decode(entry.Content, entry.Encoding, entry.OriginalSize)
		if err != nil {
			return wrapCodecError(ErrMalformedArchive, err, "entry %d (%s)", i, entry.Filename)
		}

		size := int64(len(content))
		verified, _ := storage.VerifyDigest(content, alg, entry.Digest)
		if alg != DigestNone && entry.Digest == "" {
			// a declared algorithm without a digest cannot vouch for the content
			verified = false
		}

		files[i] = RecoveredFile{
			Index:          i,
			Filename:       entry.Filename,
			Content:        content,
			RecoveredSize:  size,
			OriginalSize:   entry.OriginalSize,
			Language:       entry.Language,
			TokenCount:     entry.TokenCount,
			Digest:         entry.Digest,
			DigestVerified: verified && alg != DigestNone,
			Match:          size == entry.OriginalSize && verified,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
