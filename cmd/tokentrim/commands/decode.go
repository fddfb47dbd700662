package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"tangled.org/tokentrim.app/tokentrim"
	"tangled.org/tokentrim.app/tokentrim/cmd/tokentrim/ui"
)

// NewDecodeCommand creates the decode command
func NewDecodeCommand() *cobra.Command {
	var (
		outDir string
		mode   = modeFlag{mode: tokentrim.ModeAuto}
		dryRun bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "decode <artifact>",
		Short: "Reconstruct files from a bundle",
		Long: `Reconstruct files from a bundle

Detects the artifact kind (JSON archive, with-extension sentinel text or
no-extension text), rebuilds every file and checks it against the recorded
size and digest.

Files are written to a staging directory first and only moved into place
once every file was written. Paths that would escape the output directory
are rejected. Files sharing a name are kept, later ones get a positional
suffix.`,

		Example: `  # Restore into ./restored
  tokentrim decode tokentrim-bundle.json -o restored

  # Check a text bundle without writing anything
  tokentrim decode chat-export.txt --dry-run

  # Read from stdin
  pbpaste | tokentrim decode - -o out`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {

			codec, err := getCodec(cmd)
			if err != nil {
				return err
			}
			logger := getLogger(cmd)

			data, err := readInput(args[0])
			if err != nil {
				return fmt.Errorf("failed to read artifact: %w", err)
			}

			result, err := codec.Decode(cmd.Context(), data, mode.mode)
			if err != nil {
				return err
			}

			if dryRun || isVerbose(cmd) {
				ui.RenderVerdicts(os.Stdout, result, ui.IsTTY(os.Stdout))
			}
			if dryRun {
				return nil
			}

			bar := newProgress(cmd, len(result.Files))
			written, err := writeRecovered(outDir, result.Files, force, func(f tokentrim.RecoveredFile) {
				if bar != nil {
					bar.AddBytes(1, f.RecoveredSize)
				}
			})
			if bar != nil {
				bar.Finish()
			}
			if err != nil {
				return err
			}

			logger.Printf("✓ Recovered %d file(s) (%s) into %s", len(written), ui.FormatBytes(result.TotalBytes()), outDir)
			if mismatched := result.Mismatched(); len(mismatched) > 0 {
				for _, f := range mismatched {
					logger.Printf("⚠️  %s: recovered %d bytes, recorded %d, digest verified %v",
						f.Filename, f.RecoveredSize, f.OriginalSize, f.DigestVerified)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Output directory")
	cmd.Flags().VarP(&mode, "mode", "m", "Artifact kind (auto|json|with-ext|no-ext)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the verdict table without writing files")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

// targetNames maps recovered files to local relative paths. Duplicates keep
// their position through a numeric suffix.
func targetNames(files []tokentrim.RecoveredFile) ([]string, error) {
	names := make([]string, len(files))
	seen := make(map[string]bool, len(files))

	for i, f := range files {
		name := filepath.Clean(filepath.FromSlash(f.Filename))
		if !filepath.IsLocal(name) {
			return nil, fmt.Errorf("refusing to write %q: path leaves the output directory", f.Filename)
		}

		if seen[name] {
			ext := filepath.Ext(name)
			base := strings.TrimSuffix(name, ext)
			for n := f.Index + 1; seen[name]; n++ {
				name = fmt.Sprintf("%s.%d%s", base, n, ext)
			}
		}
		seen[name] = true
		names[i] = name
	}

	return names, nil
}

// writeRecovered writes every file under outDir. Nothing is moved into
// outDir until all files are staged.
func writeRecovered(outDir string, files []tokentrim.RecoveredFile, force bool, progress func(tokentrim.RecoveredFile)) ([]string, error) {
	names, err := targetNames(files)
	if err != nil {
		return nil, err
	}

	if !force {
		for _, name := range names {
			if _, err := os.Lstat(filepath.Join(outDir, name)); err == nil {
				return nil, fmt.Errorf("%s already exists (use --force to overwrite)", filepath.Join(outDir, name))
			}
		}
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	staging, err := os.MkdirTemp(outDir, ".tokentrim-staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	for i, f := range files {
		path := filepath.Join(staging, names[i])
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", f.Filename, err)
		}
		if err := os.WriteFile(path, f.Content, 0644); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", f.Filename, err)
		}
		if progress != nil {
			progress(f)
		}
	}

	written := make([]string, 0, len(names))
	for _, name := range names {
		target := filepath.Join(outDir, name)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
		}
		if err := os.Rename(filepath.Join(staging, name), target); err != nil {
			return written, fmt.Errorf("failed to move %s into place: %w", name, err)
		}
		written = append(written, target)
	}

	return written, nil
}
