package types

// Logger is a simple logging interface used throughout tokentrim
type Logger interface {
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

const (
	// FORMAT_NAME identifies a tokentrim lossless archive
	FORMAT_NAME = "tokentrim.lossless"

	// FORMAT_VERSION is the current archive format version
	FORMAT_VERSION = 1

	// UNKNOWN_LANGUAGE is stored when no language was resolved
	UNKNOWN_LANGUAGE = "unknown"

	// DETECTING_LANGUAGE is the in-progress placeholder shown while detection runs.
	// It must never end up in an exported archive.
	DETECTING_LANGUAGE = "Detecting..."

	// DEFAULT_MAX_PAYLOAD_BYTES is the default artifact size ceiling (64 MiB)
	DEFAULT_MAX_PAYLOAD_BYTES = 64 << 20

	// DEFAULT_MAX_DECODED_BYTES is the default ceiling on the recorded sizes of
	// all files in one decoded archive (1 GiB)
	DEFAULT_MAX_DECODED_BYTES = 1 << 30

	// DEFAULT_WRAP_WIDTH is the column width for base64 bodies in text bundles
	DEFAULT_WRAP_WIDTH = 76
)
