package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"tangled.org/tokentrim.app/tokentrim/cmd/tokentrim/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tokentrim",
		Short: "Lossless source bundles for LLM prompts",
		Long: `tokentrim packages source files into a single artifact and
reconstructs them byte for byte.

Artifacts are a lossless JSON archive, a self-describing text bundle any
reader can decode, a sentinel-wrapped text bundle for the browser extension,
or a plain concatenation.`,
		Version:       commands.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Config file (YAML or JSONC, default $TOKENTRIM_CONFIG)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	root.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")

	root.AddCommand(
		commands.NewEncodeCommand(),
		commands.NewDecodeCommand(),
		commands.NewInspectCommand(),
		commands.NewVersionCommand(),
	)

	return root
}
