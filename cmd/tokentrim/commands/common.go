package commands

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"tangled.org/tokentrim.app/tokentrim"
	"tangled.org/tokentrim.app/tokentrim/cmd/tokentrim/ui"
	"tangled.org/tokentrim.app/tokentrim/internal/config"
	"tangled.org/tokentrim.app/tokentrim/internal/types"
)

// stdioName selects stdin or stdout in place of a file path
const stdioName = "-"

// getCodec builds a codec from the --config flag or TOKENTRIM_CONFIG
func getCodec(cmd *cobra.Command) (*tokentrim.Codec, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")

	cfg, err := config.Load(config.Path(path))
	if err != nil {
		return nil, err
	}

	return tokentrim.New(
		tokentrim.WithConfig(cfg),
		tokentrim.WithLogger(getLogger(cmd)),
	)
}

func getLogger(cmd *cobra.Command) types.Logger {
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return &commandLogger{quiet: quiet}
}

func isVerbose(cmd *cobra.Command) bool {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	return verbose
}

// collectFiles reads every regular file under paths. Directories are walked
// in lexical order and hidden entries below them are skipped. Names are
// relative to the directory argument, with forward slashes.
func collectFiles(paths []string) ([]tokentrim.FileRecord, error) {
	var records []tokentrim.FileRecord

	add := func(path, name string) error {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		records = append(records, tokentrim.NewFileRecord(name, content))
		return nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if err := add(root, filepath.Base(root)); err != nil {
				return nil, err
			}
			continue
		}

		var files []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
		sort.Strings(files)

		for _, path := range files {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil, err
			}
			if err := add(path, filepath.ToSlash(rel)); err != nil {
				return nil, err
			}
		}
	}

	return records, nil
}

// modeFlag parses --mode values
type modeFlag struct {
	mode tokentrim.Mode
}

var _ pflag.Value = (*modeFlag)(nil)

func (m *modeFlag) String() string { return m.mode.String() }

func (m *modeFlag) Set(s string) error {
	mode, err := tokentrim.ParseMode(s)
	if err != nil {
		return err
	}
	m.mode = mode
	return nil
}

func (m *modeFlag) Type() string { return "mode" }

func readInput(path string) ([]byte, error) {
	if path == stdioName {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func totalSize(records []tokentrim.FileRecord) int64 {
	var total int64
	for _, r := range records {
		total += int64(len(r.Content))
	}
	return total
}

func newProgress(cmd *cobra.Command, total int) *ui.ProgressBar {
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	if quiet || total < 2 {
		return nil
	}
	return ui.NewProgressBar(total)
}

// commandLogger adapts to types.Logger
type commandLogger struct {
	quiet bool
}

func (l *commandLogger) Printf(format string, v ...interface{}) {
	if !l.quiet {
		fmt.Fprintf(os.Stderr, format+"\n", v...)
	}
}

func (l *commandLogger) Println(v ...interface{}) {
	if !l.quiet {
		fmt.Fprintln(os.Stderr, v...)
	}
}
