package bundle

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"tangled.org/tokentrim.app/tokentrim/internal/storage"
)

// Structural markers of the no-extension text bundle. Every marker sits at
// the start of its own line.
const (
	MarkerPrefix      = "@@TOKENTRIM-"
	BundleBeginMarker = "@@TOKENTRIM-BUNDLE-BEGIN"
	BundleEndMarker   = "@@TOKENTRIM-BUNDLE-END@@"
	FileBeginMarker   = "@@TOKENTRIM-FILE-BEGIN"
	FileEndMarker     = "@@TOKENTRIM-FILE-END"
	markerClose       = "@@"
)

// Sentinels of the with-extension bundle, recognized by the browser
// extension before the text reaches a model
const (
	SentinelPrefix = "<<<TOKENTRIM-"
	SentinelBegin  = "<<<TOKENTRIM-LOSSLESS-BEGIN"
	SentinelEnd    = "<<<TOKENTRIM-LOSSLESS-END>>>"
	sentinelClose  = ">>>"

	sentinelPayloadEncoding = "base64"
)

// reservedStrings may not appear in filenames of text bundles and force
// base64 bodies when they appear in content
var reservedStrings = []string{MarkerPrefix, SentinelPrefix}

// ========================================
// ATTRIBUTES
// ========================================

type attr struct {
	key    string
	value  string
	quoted bool
}

func intAttr(key string, v int64) attr {
	return attr{key: key, value: strconv.FormatInt(v, 10)}
}

func strAttr(key, v string) attr {
	return attr{key: key, value: v, quoted: true}
}

func formatAttrs(attrs []attr) string {
	var b strings.Builder
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.key)
		b.WriteByte('=')
		if a.quoted {
			b.WriteString(strconv.Quote(a.value))
		} else {
			b.WriteString(a.value)
		}
	}
	return b.String()
}

// parseAttrs parses `key=value key="quoted value"` sequences
func parseAttrs(s string) (map[string]string, error) {
	attrs := make(map[string]string)
	rest := s
	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			return attrs, nil
		}

		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("expected key=value at %q", rest)
		}
		key := rest[:eq]
		if strings.ContainsAny(key, " \t\"") {
			return nil, fmt.Errorf("invalid attribute key %q", key)
		}
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, fmt.Errorf("attribute %s: %w", key, err)
			}
			value, err = strconv.Unquote(quoted)
			if err != nil {
				return nil, fmt.Errorf("attribute %s: %w", key, err)
			}
			rest = rest[len(quoted):]
		} else {
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				end = len(rest)
			}
			value = rest[:end]
			rest = rest[end:]
		}

		if _, dup := attrs[key]; dup {
			return nil, fmt.Errorf("duplicate attribute %s", key)
		}
		attrs[key] = value
	}
}

func attrInt(attrs map[string]string, key string) (int64, error) {
	v, ok := attrs[key]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", key)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %w", key, err)
	}
	return n, nil
}

// ========================================
// LINE SCANNING
// ========================================

// indexLineStart returns the offset of the first occurrence of marker that
// begins a line, searching from offset from
func indexLineStart(data []byte, marker string, from int) int {
	m := []byte(marker)
	for from <= len(data) {
		i := bytes.Index(data[from:], m)
		if i < 0 {
			return -1
		}
		pos := from + i
		if pos == 0 || data[pos-1] == '\n' {
			return pos
		}
		from = pos + 1
	}
	return -1
}

// readLine returns the line starting at pos without its terminator, the
// offset after the terminator, and whether a terminator was found
func readLine(data []byte, pos int) (string, int, bool) {
	nl := bytes.IndexByte(data[pos:], '\n')
	if nl < 0 {
		return strings.TrimRight(string(data[pos:]), "\r"), len(data), false
	}
	return strings.TrimRight(string(data[pos:pos+nl]), "\r"), pos + nl + 1, true
}

// markerBody strips prefix and closing token from a marker line
func markerBody(line, prefix, closing string) (string, bool) {
	if !strings.HasPrefix(line, prefix) || !strings.HasSuffix(line, closing) {
		return "", false
	}
	if len(line) < len(prefix)+len(closing) {
		return "", false
	}
	return line[len(prefix) : len(line)-len(closing)], true
}

func hasBundleMarkers(data []byte) bool {
	return indexLineStart(data, BundleBeginMarker, 0) >= 0 || indexLineStart(data, BundleEndMarker, 0) >= 0
}

func hasSentinel(data []byte) bool {
	return indexLineStart(data, SentinelBegin, 0) >= 0 || indexLineStart(data, SentinelEnd, 0) >= 0
}

// ========================================
// NO-EXTENSION FORMAT
// ========================================

// writeNoExtension renders a text-safe archive as a self-describing document
func writeNoExtension(buf *bytes.Buffer, a *Archive, wrapWidth int) {
	buf.WriteString(noExtensionGuide(a))
	buf.WriteString("\n")

	buf.WriteString(BundleBeginMarker)
	buf.WriteString(formatAttrs([]attr{
		strAttr("format", FormatName),
		intAttr("version", int64(a.FormatVersion)),
		intAttr("total_files", int64(a.TotalFiles)),
		strAttr("digest", string(digestOrNone(a.DigestAlgorithm))),
	}))
	buf.WriteString(markerClose + "\n")

	for i, f := range a.Files {
		body := f.Content
		if f.Encoding != storage.EncodingUTF8 {
			body = storage.Wrap(body, wrapWidth)
		}

		attrs := []attr{
			intAttr("index", int64(i+1)),
			strAttr("name", f.Filename),
			intAttr("size", f.OriginalSize),
			strAttr("language", f.Language),
			intAttr("tokens", int64(f.TokenCount)),
			strAttr("encoding", string(f.Encoding)),
			intAttr("length", int64(len(body))),
		}
		if f.Digest != "" {
			attrs = append(attrs, strAttr("digest", f.Digest))
		}

		buf.WriteString(FileBeginMarker)
		buf.WriteString(formatAttrs(attrs))
		buf.WriteString(markerClose + "\n")
		buf.WriteString(body)
		buf.WriteString("\n")
		buf.WriteString(FileEndMarker)
		buf.WriteString(formatAttrs([]attr{intAttr("index", int64(i+1))}))
		buf.WriteString(markerClose + "\n")
	}

	buf.WriteString(BundleEndMarker + "\n")
}

// parseNoExtension reads the marker structure back into an archive. The
// total_files comparison is left to the caller.
func parseNoExtension(data []byte) (*Archive, error) {
	begin := indexLineStart(data, BundleBeginMarker, 0)
	if begin < 0 {
		if indexLineStart(data, BundleEndMarker, 0) >= 0 {
			return nil, codecErrorf(ErrTruncatedPayload, "bundle end marker without begin marker")
		}
		return nil, codecErrorf(ErrUnrecognizedFormat, "no bundle markers found")
	}

	line, pos, ok := readLine(data, begin)
	if !ok {
		return nil, codecErrorf(ErrTruncatedPayload, "bundle header is not terminated")
	}
	body, ok := markerBody(line, BundleBeginMarker, markerClose)
	if !ok {
		return nil, codecErrorf(ErrMalformedArchive, "invalid bundle header line")
	}
	header, err := parseAttrs(body)
	if err != nil {
		return nil, wrapCodecError(ErrMalformedArchive, err, "bundle header")
	}

	a, err := archiveFromHeader(header)
	if err != nil {
		return nil, err
	}

	for {
		if pos >= len(data) {
			return nil, codecErrorf(ErrTruncatedPayload, "missing bundle end marker after %d files", len(a.Files))
		}

		line, next, _ := readLine(data, pos)
		switch {
		case line == BundleEndMarker:
			return a, nil

		case strings.TrimSpace(line) == "":
			pos = next

		case strings.HasPrefix(line, FileBeginMarker):
			entry, after, err := parseFileBlock(data, pos, len(a.Files)+1)
			if err != nil {
				return nil, err
			}
			a.Files = append(a.Files, *entry)
			pos = after

		default:
			return nil, codecErrorf(ErrMalformedArchive, "unexpected line after file %d: %.40q", len(a.Files), line)
		}
	}
}

func archiveFromHeader(header map[string]string) (*Archive, error) {
	if format, ok := header["format"]; ok && format != FormatName {
		return nil, codecErrorf(ErrUnrecognizedFormat, "format %q is not %q", format, FormatName)
	}

	version, err := attrInt(header, "version")
	if err != nil {
		return nil, wrapCodecError(ErrMalformedArchive, err, "bundle header")
	}
	if !isSupportedVersion(int(version)) {
		return nil, codecErrorf(ErrUnsupportedVersion, "version %d (supported: %d)", version, FormatVersion)
	}

	total, err := attrInt(header, "total_files")
	if err != nil {
		return nil, wrapCodecError(ErrMalformedArchive, err, "bundle header")
	}

	digestAlg, err := storage.ParseDigestAlgorithm(header["digest"])
	if err != nil {
		return nil, wrapCodecError(ErrMalformedArchive, err, "bundle header")
	}
	if digestAlg == DigestNone {
		digestAlg = ""
	}

	return &Archive{
		Format:          FormatName,
		FormatVersion:   int(version),
		DigestAlgorithm: digestAlg,
		TotalFiles:      int(total),
		Files:           []ArchiveFile{},
	}, nil
}

// parseFileBlock parses one header/body/end triple starting at pos
func parseFileBlock(data []byte, pos int, want int) (*ArchiveFile, int, error) {
	line, pos, ok := readLine(data, pos)
	if !ok {
		return nil, 0, codecErrorf(ErrTruncatedPayload, "file %d header is not terminated", want)
	}
	body, ok := markerBody(line, FileBeginMarker, markerClose)
	if !ok {
		return nil, 0, codecErrorf(ErrMalformedArchive, "file %d: invalid header line", want)
	}
	attrs, err := parseAttrs(body)
	if err != nil {
		return nil, 0, wrapCodecError(ErrMalformedArchive, err, "file %d header", want)
	}

	index, err := attrInt(attrs, "index")
	if err != nil {
		return nil, 0, wrapCodecError(ErrMalformedArchive, err, "file %d header", want)
	}
	if index != int64(want) {
		return nil, 0, codecErrorf(ErrMalformedArchive, "file index %d out of sequence (expected %d)", index, want)
	}

	size, err := attrInt(attrs, "size")
	if err != nil {
		return nil, 0, wrapCodecError(ErrMalformedArchive, err, "file %d header", want)
	}
	length, err := attrInt(attrs, "length")
	if err != nil {
		return nil, 0, wrapCodecError(ErrMalformedArchive, err, "file %d header", want)
	}
	if length < 0 {
		return nil, 0, codecErrorf(ErrMalformedArchive, "file %d: negative length %d", want, length)
	}

	var tokens int64
	if _, ok := attrs["tokens"]; ok {
		if tokens, err = attrInt(attrs, "tokens"); err != nil {
			return nil, 0, wrapCodecError(ErrMalformedArchive, err, "file %d header", want)
		}
	}

	entry := &ArchiveFile{
		Filename:     attrs["name"],
		OriginalSize: size,
		Language:     attrs["language"],
		TokenCount:   int(tokens),
		Encoding:     Encoding(attrs["encoding"]),
		Digest:       attrs["digest"],
	}
	if err := validateEntry(want-1, entry); err != nil {
		return nil, 0, err
	}

	if int64(len(data)-pos) < length {
		return nil, 0, codecErrorf(ErrTruncatedPayload, "file %d (%s): body has %d of %d bytes", want, entry.Filename, len(data)-pos, length)
	}
	entry.Content = string(data[pos : pos+int(length)])
	pos += int(length)

	// body terminator, tolerating a CRLF conversion of the separator only
	if pos < len(data) && data[pos] == '\r' {
		pos++
	}
	if pos >= len(data) {
		return nil, 0, codecErrorf(ErrTruncatedPayload, "file %d (%s): missing end marker", want, entry.Filename)
	}
	if data[pos] != '\n' {
		return nil, 0, codecErrorf(ErrMalformedArchive, "file %d (%s): body longer than declared length %d", want, entry.Filename, length)
	}
	pos++

	endLine, next, _ := readLine(data, pos)
	if pos >= len(data) {
		return nil, 0, codecErrorf(ErrTruncatedPayload, "file %d (%s): missing end marker", want, entry.Filename)
	}
	endBody, ok := markerBody(endLine, FileEndMarker, markerClose)
	if !ok {
		return nil, 0, codecErrorf(ErrMalformedArchive, "file %d (%s): expected end marker", want, entry.Filename)
	}
	endAttrs, err := parseAttrs(endBody)
	if err != nil {
		return nil, 0, wrapCodecError(ErrMalformedArchive, err, "file %d end marker", want)
	}
	if endIndex, err := attrInt(endAttrs, "index"); err != nil || endIndex != index {
		return nil, 0, codecErrorf(ErrMalformedArchive, "file %d: end marker does not match", want)
	}

	return entry, next, nil
}

// ========================================
// WITH-EXTENSION FORMAT
// ========================================

// writeWithExtension wraps a serialized archive between sentinel lines
func writeWithExtension(buf *bytes.Buffer, archiveJSON []byte, wrapWidth int) {
	buf.WriteString(SentinelBegin)
	buf.WriteString(formatAttrs([]attr{
		strAttr("format", FormatName),
		intAttr("version", FormatVersion),
		strAttr("encoding", sentinelPayloadEncoding),
		intAttr("length", int64(len(archiveJSON))),
	}))
	buf.WriteString(sentinelClose + "\n")

	for _, g := range sentinelGuide {
		buf.WriteString("# ")
		buf.WriteString(g)
		buf.WriteString("\n")
	}

	payload, _ := storage.Encode(archiveJSON, storage.EncodingBase64)
	buf.WriteString(storage.Wrap(payload, wrapWidth))
	buf.WriteString("\n")
	buf.WriteString(SentinelEnd + "\n")
}

// extractSentinelPayload returns the archive JSON enclosed by the first
// sentinel pair
func extractSentinelPayload(data []byte) ([]byte, error) {
	begin := indexLineStart(data, SentinelBegin, 0)
	firstEnd := indexLineStart(data, SentinelEnd, 0)

	if begin < 0 {
		if firstEnd >= 0 {
			return nil, codecErrorf(ErrTruncatedPayload, "end sentinel without begin sentinel")
		}
		return nil, codecErrorf(ErrUnrecognizedFormat, "no sentinel found")
	}
	if firstEnd >= 0 && firstEnd < begin {
		return nil, codecErrorf(ErrTruncatedPayload, "end sentinel appears before begin sentinel")
	}

	line, pos, ok := readLine(data, begin)
	if !ok {
		return nil, codecErrorf(ErrTruncatedPayload, "missing end sentinel")
	}
	body, ok := markerBody(strings.TrimSpace(line), SentinelBegin, sentinelClose)
	if !ok {
		return nil, codecErrorf(ErrMalformedArchive, "invalid begin sentinel line")
	}
	attrs, err := parseAttrs(body)
	if err != nil {
		return nil, wrapCodecError(ErrMalformedArchive, err, "begin sentinel")
	}

	if format, ok := attrs["format"]; ok && format != FormatName {
		return nil, codecErrorf(ErrUnrecognizedFormat, "format %q is not %q", format, FormatName)
	}
	if v, ok := attrs["version"]; ok {
		version, err := strconv.Atoi(v)
		if err != nil || !isSupportedVersion(version) {
			return nil, codecErrorf(ErrUnsupportedVersion, "sentinel version %q (supported: %d)", v, FormatVersion)
		}
	}
	if enc, ok := attrs["encoding"]; ok && enc != sentinelPayloadEncoding {
		return nil, codecErrorf(ErrMalformedArchive, "unsupported sentinel payload encoding %q", enc)
	}

	end := indexLineStart(data, SentinelEnd, pos)
	if end < 0 {
		return nil, codecErrorf(ErrTruncatedPayload, "missing end sentinel")
	}
	if nested := indexLineStart(data[:end], SentinelBegin, pos); nested >= 0 {
		return nil, codecErrorf(ErrMalformedArchive, "nested begin sentinel")
	}

	var payload strings.Builder
	for pos < end {
		l, next, _ := readLine(data, pos)
		pos = next
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		payload.WriteString(l)
	}

	decoded, err := storage.Decode(payload.String(), storage.EncodingBase64, 0)
	if err != nil {
		return nil, wrapCodecError(ErrMalformedArchive, err, "sentinel payload")
	}

	if v, ok := attrs["length"]; ok {
		length, err := strconv.Atoi(v)
		if err != nil {
			return nil, codecErrorf(ErrMalformedArchive, "invalid sentinel length %q", v)
		}
		if len(decoded) < length {
			return nil, codecErrorf(ErrTruncatedPayload, "sentinel payload has %d of %d bytes", len(decoded), length)
		}
		if len(decoded) != length {
			return nil, codecErrorf(ErrMalformedArchive, "sentinel payload has %d bytes, declared %d", len(decoded), length)
		}
	}

	return decoded, nil
}

func digestOrNone(alg DigestAlgorithm) DigestAlgorithm {
	if alg == "" {
		return DigestNone
	}
	return alg
}
