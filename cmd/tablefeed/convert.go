package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablefeed/tablefeed/internal/core"
	"github.com/tablefeed/tablefeed/internal/profile"
)

func convertCmd() *cobra.Command {
	var profileKey, output, profilesPath string

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a flat-text file to NDJSON on stdout",
		Long: `Reads a delimited flat-text file (optionally lz4-compressed), maps each
line to a JSON record using the selected format profile, and writes one
record per line. Pass "-" or no argument to read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if profilesPath != "" {
				if err := profile.LoadFile(profilesPath); err != nil {
					return err
				}
			}

			prof, ok := profile.Get(profileKey)
			if !ok {
				return fmt.Errorf("unknown profile: %s", profileKey)
			}

			in, size, err := openInput(args)
			if err != nil {
				return err
			}
			defer in.Close()

			out := os.Stdout
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			sink := core.NewNDJSONSink(out)
			result, err := core.RunStream(context.Background(), prof, in, size, sink, nil)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "%d lines read, %d records written, %d skipped, %d failed\n",
				result.Lines, result.Records, result.Skipped, result.Failed)
			for _, fl := range result.FailedLines {
				fmt.Fprintf(os.Stderr, "line %d: %s\n", fl.LineNumber, fl.Reason)
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d lines failed to parse", result.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileKey, "profile", "p", "csv", "Format profile to apply")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (default stdout)")
	cmd.Flags().StringVar(&profilesPath, "profiles", "", "TOML file with additional profiles")

	return cmd
}

// openInput resolves the input argument to a reader and its size.
// Size is 0 for stdin, which disables percentage progress.
func openInput(args []string) (io.ReadCloser, int64, error) {
	if len(args) == 0 || args[0] == "-" {
		return os.Stdin, 0, nil
	}

	f, err := os.Open(args[0])
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}
