package bundle

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"tangled.org/tokentrim.app/tokentrim/internal/storage"
)

// archiveWire mirrors Archive with optional fields so missing keys can be
// told apart from zero values
type archiveWire struct {
	Format          *string         `json:"format"`
	FormatVersion   json.RawMessage `json:"format_version"`
	DigestAlgorithm string          `json:"digest_algorithm"`
	TotalFiles      *int            `json:"total_files"`
	Files           *[]ArchiveFile  `json:"files"`
}

// Serialize renders an archive as indented JSON. Output is deterministic for
// a given archive.
func Serialize(a *Archive) ([]byte, error) {
	if a == nil {
		return nil, codecErrorf(ErrMalformedArchive, "nil archive")
	}
	if a.TotalFiles != len(a.Files) {
		return nil, codecErrorf(ErrSchemaMismatch, "total_files is %d but archive has %d entries", a.TotalFiles, len(a.Files))
	}

	if a.Files == nil {
		normalized := *a
		normalized.Files = []ArchiveFile{}
		a = &normalized
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, wrapCodecError(ErrMalformedArchive, err, "failed to marshal archive")
	}
	return append(data, '\n'), nil
}

// Deserialize parses an archive and validates its structure, version and
// file count
func Deserialize(data []byte) (*Archive, error) {
	a, err := parseArchive(data)
	if err != nil {
		return nil, err
	}
	if err := checkCount(a); err != nil {
		return nil, err
	}
	return a, nil
}

// parseArchive performs every check except the total_files comparison,
// which callers report with their own error kind
func parseArchive(data []byte) (*Archive, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, codecErrorf(ErrMalformedArchive, "empty document")
	}

	var wire archiveWire
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, wrapCodecError(ErrMalformedArchive, err, "invalid JSON")
	}

	if wire.Format != nil && *wire.Format != FormatName {
		return nil, codecErrorf(ErrUnrecognizedFormat, "format %q is not %q", *wire.Format, FormatName)
	}

	if len(wire.FormatVersion) == 0 {
		return nil, codecErrorf(ErrMalformedArchive, "missing format_version")
	}
	version, err := parseVersion(wire.FormatVersion)
	if err != nil {
		return nil, err
	}
	if !isSupportedVersion(version) {
		return nil, codecErrorf(ErrUnsupportedVersion, "format_version %d (supported: %d)", version, FormatVersion)
	}

	if wire.TotalFiles == nil {
		return nil, codecErrorf(ErrMalformedArchive, "missing total_files")
	}
	if wire.Files == nil {
		return nil, codecErrorf(ErrMalformedArchive, "missing files")
	}

	digestAlg, err := storage.ParseDigestAlgorithm(wire.DigestAlgorithm)
	if err != nil {
		return nil, wrapCodecError(ErrMalformedArchive, err, "invalid digest_algorithm")
	}

	a := &Archive{
		Format:          FormatName,
		FormatVersion:   version,
		DigestAlgorithm: digestAlg,
		TotalFiles:      *wire.TotalFiles,
		Files:           *wire.Files,
	}
	if digestAlg == DigestNone {
		a.DigestAlgorithm = ""
	}
	if a.Files == nil {
		a.Files = []ArchiveFile{}
	}

	for i := range a.Files {
		if err := validateEntry(i, &a.Files[i]); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// parseVersion accepts a JSON number or a numeric string
func parseVersion(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	// "1.0" style versions are accepted when the fraction is zero
	s = strings.TrimSuffix(s, ".0")

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, codecErrorf(ErrUnsupportedVersion, "format_version %s is not a recognized version", string(raw))
	}
	return v, nil
}

func isSupportedVersion(v int) bool {
	return v == FormatVersion
}

func validateEntry(i int, f *ArchiveFile) error {
	if f.Filename == "" {
		return codecErrorf(ErrMalformedArchive, "entry %d: empty filename", i)
	}
	if !utf8.ValidString(f.Filename) {
		return codecErrorf(ErrMalformedArchive, "entry %d: filename %q is not valid UTF-8", i, f.Filename)
	}
	if f.OriginalSize < 0 {
		return codecErrorf(ErrMalformedArchive, "entry %d (%s): negative original_size %d", i, f.Filename, f.OriginalSize)
	}
	if f.Encoding == "" {
		// archives written before encodings were recorded carry plain text
		f.Encoding = storage.EncodingUTF8
	}
	if _, err := storage.ParseEncoding(string(f.Encoding)); err != nil {
		return wrapCodecError(ErrMalformedArchive, err, "entry %d (%s)", i, f.Filename)
	}
	return nil
}

func checkCount(a *Archive) error {
	if a.TotalFiles != len(a.Files) {
		return codecErrorf(ErrSchemaMismatch, "total_files is %d but archive has %d entries", a.TotalFiles, len(a.Files))
	}
	return nil
}
