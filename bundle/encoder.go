package bundle

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"tangled.org/tokentrim.app/tokentrim/internal/storage"
)

// Suggested download names per mode
const (
	RawFilename     = "tokentrim-raw.txt"
	ArchiveFilename = "tokentrim-bundle.json"
	TextFilename    = "tokentrim-bundle.txt"

	jsonContentType = "application/json"
	textContentType = "text/plain; charset=utf-8"
)

// Encoder produces exportable artifacts from file records. It holds no state
// between calls and is safe for concurrent use.
type Encoder struct {
	config *Config
}

// NewEncoder creates an encoder. A nil config uses DefaultConfig.
func NewEncoder(cfg *Config) *Encoder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Encoder{config: cfg}
}

// Encode produces the artifact for mode
func (e *Encoder) Encode(ctx context.Context, mode Mode, files []FileRecord) (*Artifact, error) {
	switch mode {
	case ModeRaw:
		return e.RawBundle(files)
	case ModeLosslessJSON:
		return e.LosslessJSON(ctx, files)
	case ModeNoExtension:
		return e.NoExtension(ctx, files)
	case ModeWithExtension:
		return e.WithExtension(ctx, files)
	default:
		return nil, codecErrorf(ErrUnrecognizedFormat, "cannot encode in mode %s", mode)
	}
}

// ========================================
// MODES
// ========================================

// RawBundle concatenates the original contents between filename delimiters.
// The output is meant for direct reading and cannot be decoded.
func (e *Encoder) RawBundle(files []FileRecord) (*Artifact, error) {
	if len(files) == 0 {
		return nil, codecErrorf(ErrEmptyInput, "raw bundle")
	}

	var buf bytes.Buffer
	for i, f := range files {
		if err := checkFilename(i, f.Filename, false); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "=== FILE: %s ===\n", f.Filename)
		buf.Write(f.Content)
		if len(f.Content) > 0 && f.Content[len(f.Content)-1] != '\n' {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "=== END FILE: %s ===\n\n", f.Filename)

		if err := e.checkSize(buf.Len()); err != nil {
			return nil, err
		}
	}

	return &Artifact{
		Mode:        ModeRaw,
		Filename:    RawFilename,
		ContentType: textContentType,
		Data:        buf.Bytes(),
	}, nil
}

// LosslessJSON builds and serializes the canonical archive
func (e *Encoder) LosslessJSON(ctx context.Context, files []FileRecord) (*Artifact, error) {
	archive, err := e.BuildArchive(ctx, files)
	if err != nil {
		return nil, err
	}

	data, err := Serialize(archive)
	if err != nil {
		return nil, err
	}
	if err := e.checkSize(len(data)); err != nil {
		return nil, err
	}

	return &Artifact{
		Mode:        ModeLosslessJSON,
		Filename:    ArchiveFilename,
		ContentType: jsonContentType,
		Data:        data,
	}, nil
}

// NoExtension renders the archive as marker-delimited text preceded by a
// decode guide
func (e *Encoder) NoExtension(ctx context.Context, files []FileRecord) (*Artifact, error) {
	archive, err := e.buildArchive(ctx, files, archiveOptions{
		compression: CompressionNone,
		textMode:    true,
		forbidden:   reservedStrings,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeNoExtension(&buf, archive, e.config.WrapWidth)
	if err := e.checkSize(buf.Len()); err != nil {
		return nil, err
	}

	return &Artifact{
		Mode:        ModeNoExtension,
		Filename:    TextFilename,
		ContentType: textContentType,
		Data:        buf.Bytes(),
	}, nil
}

// WithExtension wraps the serialized archive between sentinel lines
func (e *Encoder) WithExtension(ctx context.Context, files []FileRecord) (*Artifact, error) {
	archive, err := e.buildArchive(ctx, files, archiveOptions{
		compression: e.config.Compression,
		textMode:    true,
	})
	if err != nil {
		return nil, err
	}

	data, err := Serialize(archive)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeWithExtension(&buf, data, e.config.WrapWidth)
	if err := e.checkSize(buf.Len()); err != nil {
		return nil, err
	}

	return &Artifact{
		Mode:        ModeWithExtension,
		Filename:    TextFilename,
		ContentType: textContentType,
		Data:        buf.Bytes(),
	}, nil
}

// ========================================
// ARCHIVE BUILDING
// ========================================

type archiveOptions struct {
	compression Compression
	// textMode applies the filename rules of text bundles
	textMode bool
	// forbidden substrings force base64 bodies
	forbidden []string
}

// BuildArchive converts file records into an archive using the configured
// compression and digest. Original contents are used, never the
// collaborator's compressed payload.
func (e *Encoder) BuildArchive(ctx context.Context, files []FileRecord) (*Archive, error) {
	return e.buildArchive(ctx, files, archiveOptions{compression: e.config.Compression})
}

func (e *Encoder) buildArchive(ctx context.Context, files []FileRecord, opts archiveOptions) (*Archive, error) {
	if len(files) == 0 {
		return nil, codecErrorf(ErrEmptyInput, "archive")
	}
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder config: %w", err)
	}

	digestAlg, _ := storage.ParseDigestAlgorithm(string(e.config.Digest))
	compression, _ := storage.ParseCompression(string(opts.compression))

	for i, f := range files {
		if err := checkFilename(i, f.Filename, opts.textMode); err != nil {
			return nil, err
		}
	}

	entries := make([]ArchiveFile, len(files))
	err := forEachFile(ctx, len(files), e.config.Workers, func(i int) error {
		f := &files[i]

		textSafe := storage.IsTextSafe(f.Content, opts.forbidden...)
		enc, payload, err := storage.EncodeBest(f.Content, compression, textSafe)
		if err != nil {
			return wrapCodecError(ErrMalformedArchive, err, "failed to encode %s", f.Filename)
		}

		entries[i] = ArchiveFile{
			Filename:       f.Filename,
			OriginalSize:   int64(len(f.Content)),
			Language:       normalizeLanguage(f.Language),
			TokenCount:     max(f.TokenCount, 0),
			CompressedSize: int64(len(f.Compressed)),
			Encoding:       enc,
			Content:        payload,
			Digest:         storage.Digest(f.Content, digestAlg),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	archive := &Archive{
		Format:        FormatName,
		FormatVersion: FormatVersion,
		TotalFiles:    len(entries),
		Files:         entries,
	}
	if digestAlg != DigestNone {
		archive.DigestAlgorithm = digestAlg
	}
	return archive, nil
}

// checkFilename rejects names that would produce an ambiguous artifact
func checkFilename(i int, name string, textMode bool) error {
	if name == "" {
		return codecErrorf(ErrUnsafeFilename, "file %d has an empty name", i+1)
	}
	if !utf8.ValidString(name) {
		return codecErrorf(ErrUnsafeFilename, "file %d name %q is not valid UTF-8", i+1, name)
	}
	if !textMode {
		return nil
	}
	if strings.ContainsAny(name, "\r\n") {
		return codecErrorf(ErrUnsafeFilename, "%q contains a line break", name)
	}
	for _, reserved := range reservedStrings {
		if strings.Contains(name, reserved) {
			return codecErrorf(ErrUnsafeFilename, "%q contains reserved marker %q", name, reserved)
		}
	}
	return nil
}

// normalizeLanguage keeps the in-progress placeholder out of archives
func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" || lang == DetectingLanguage {
		return UnknownLanguage
	}
	return lang
}

func (e *Encoder) checkSize(n int) error {
	if limit := e.config.MaxPayloadBytes; limit > 0 && int64(n) > limit {
		return codecErrorf(ErrPayloadTooLarge, "artifact is %d bytes, limit is %d", n, limit)
	}
	return nil
}
