package bundle

import (
	"fmt"
	"strings"
)

// sentinelGuide is written as '#' comment lines inside the sentinel pair
var sentinelGuide = []string{
	"TokenTrim lossless payload. A TokenTrim-aware extension replaces this block",
	"with the original files before the text reaches a model.",
	"To decode by hand: drop the lines starting with '#', join the rest,",
	"base64-decode it and read the JSON archive it contains.",
}

// noExtensionGuide returns the prose placed before the bundle markers. No
// line of the guide starts with a marker, so the guide never parses as
// structure.
func noExtensionGuide(a *Archive) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TokenTrim lossless bundle (%s, version %d) containing %d file(s).\n", FormatName, a.FormatVersion, a.TotalFiles)
	b.WriteString("\n")
	b.WriteString("How to reconstruct the files:\n")
	fmt.Fprintf(&b, "1. Everything before the line that starts with %s is this guide.\n", BundleBeginMarker)
	fmt.Fprintf(&b, "2. Each file starts with a line beginning %s followed by key=value\n", FileBeginMarker)
	b.WriteString("   attributes: index, name (quoted), size (original bytes), language, tokens,\n")
	b.WriteString("   encoding, length and, when present, digest.\n")
	b.WriteString("3. The body is exactly `length` bytes and starts right after that header line.\n")
	b.WriteString("   A single newline follows the body, then the matching end line\n")
	fmt.Fprintf(&b, "   beginning %s with the same index.\n", FileEndMarker)
	b.WriteString("4. encoding=\"utf8\" bodies are the file content verbatim. encoding=\"base64\"\n")
	b.WriteString("   bodies are standard base64 broken into lines; remove the line breaks and\n")
	b.WriteString("   decode to get the original bytes.\n")
	b.WriteString("5. The decoded content must be exactly `size` bytes long.\n")
	if a.DigestAlgorithm != "" && a.DigestAlgorithm != DigestNone {
		fmt.Fprintf(&b, "   Its %s hex digest must equal the `digest` attribute.\n", a.DigestAlgorithm)
	}
	fmt.Fprintf(&b, "6. The bundle ends at the line %s.\n", BundleEndMarker)
	b.WriteString("Write each file under its `name`, in index order, without modification.\n")

	return b.String()
}
