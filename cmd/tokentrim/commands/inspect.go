package commands

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"tangled.org/tokentrim.app/tokentrim"
	"tangled.org/tokentrim.app/tokentrim/cmd/tokentrim/ui"
)

type inspectFile struct {
	Index          int    `json:"index"`
	Filename       string `json:"filename"`
	Language       string `json:"language"`
	TokenCount     int    `json:"token_count"`
	RecoveredSize  int64  `json:"recovered_size"`
	OriginalSize   int64  `json:"original_size"`
	Digest         string `json:"digest,omitempty"`
	DigestVerified bool   `json:"digest_verified"`
	Match          bool   `json:"match"`
}

type inspectReport struct {
	Kind            string        `json:"kind"`
	FormatVersion   int           `json:"format_version"`
	DigestAlgorithm string        `json:"digest_algorithm,omitempty"`
	TotalFiles      int           `json:"total_files"`
	AllMatch        bool          `json:"all_match"`
	Files           []inspectFile `json:"files"`
}

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	var (
		mode     = modeFlag{mode: tokentrim.ModeAuto}
		showJSON bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Show the per-file verdicts of a bundle",
		Long: `Show the per-file verdicts of a bundle

Decodes the artifact in memory and prints one row per file with its
language, size, digest check and match verdict. Nothing is written.`,

		Example: `  tokentrim inspect tokentrim-bundle.json

  # JSON output (for scripting)
  tokentrim inspect bundle.txt --json`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {

			codec, err := getCodec(cmd)
			if err != nil {
				return err
			}

			data, err := readInput(args[0])
			if err != nil {
				return fmt.Errorf("failed to read artifact: %w", err)
			}

			result, err := codec.Decode(cmd.Context(), data, mode.mode)
			if err != nil {
				return err
			}

			if showJSON {
				out, err := json.MarshalIndent(newInspectReport(result), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			ui.RenderVerdicts(cmd.OutOrStdout(), result, ui.IsTTY(os.Stdout))
			return nil
		},
	}

	cmd.Flags().VarP(&mode, "mode", "m", "Artifact kind (auto|json|with-ext|no-ext)")
	cmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")

	return cmd
}

func newInspectReport(result *tokentrim.DecodeResult) *inspectReport {
	report := &inspectReport{
		Kind:            result.Kind.String(),
		FormatVersion:   result.FormatVersion,
		DigestAlgorithm: string(result.DigestAlgorithm),
		TotalFiles:      result.TotalFiles,
		AllMatch:        result.AllMatch(),
		Files:           make([]inspectFile, 0, len(result.Files)),
	}
	for _, f := range result.Files {
		report.Files = append(report.Files, inspectFile{
			Index:          f.Index,
			Filename:       f.Filename,
			Language:       f.Language,
			TokenCount:     f.TokenCount,
			RecoveredSize:  f.RecoveredSize,
			OriginalSize:   f.OriginalSize,
			Digest:         f.Digest,
			DigestVerified: f.DigestVerified,
			Match:          f.Match,
		})
	}
	return report
}
