package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"tangled.org/tokentrim.app/tokentrim"
	"tangled.org/tokentrim.app/tokentrim/cmd/tokentrim/ui"
)

// NewEncodeCommand creates the encode command
func NewEncodeCommand() *cobra.Command {
	var (
		mode   = modeFlag{mode: tokentrim.ModeLosslessJSON}
		output string
	)

	cmd := &cobra.Command{
		Use:   "encode <path>...",
		Short: "Package files into a bundle",
		Long: `Package files into a bundle

Reads the given files and directories (recursively, hidden entries skipped)
and writes one artifact:

  json      lossless JSON archive (default)
  no-ext    self-describing text any reader can decode
  with-ext  lossless payload between extension sentinels
  raw       plain concatenation for direct reading, not decodable`,

		Example: `  # Lossless archive of a source tree
  tokentrim encode ./src

  # Text bundle to paste into a chat
  tokentrim encode main.go util.go --mode no-ext -o bundle.txt

  # Write to stdout
  tokentrim encode ./src --mode with-ext -o -`,

		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			if mode.mode == tokentrim.ModeAuto {
				return fmt.Errorf("encode needs an explicit --mode")
			}

			codec, err := getCodec(cmd)
			if err != nil {
				return err
			}
			logger := getLogger(cmd)

			records, err := collectFiles(args)
			if err != nil {
				return err
			}
			if isVerbose(cmd) {
				for _, r := range records {
					logger.Printf("  %-40s %10s  %-12s ~%d tokens", r.Filename, ui.FormatBytes(r.OriginalSize), r.Language, r.TokenCount)
				}
			}

			artifact, err := codec.Encode(cmd.Context(), mode.mode, records)
			if err != nil {
				return err
			}

			if output == "" {
				output = artifact.Filename
			}
			if output == stdioName {
				_, err = os.Stdout.Write(artifact.Data)
				return err
			}
			if err := os.WriteFile(output, artifact.Data, 0644); err != nil {
				return fmt.Errorf("failed to write artifact: %w", err)
			}

			logger.Printf("✓ Encoded %d file(s) (%s) as %s → %s (%s)",
				len(records), ui.FormatBytes(totalSize(records)), artifact.Mode, output, ui.FormatBytes(int64(len(artifact.Data))))
			return nil
		},
	}

	cmd.Flags().VarP(&mode, "mode", "m", "Artifact mode (json|no-ext|with-ext|raw)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: suggested artifact name, - for stdout)")

	return cmd
}
