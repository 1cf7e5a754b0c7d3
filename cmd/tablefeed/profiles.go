package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tablefeed/tablefeed/internal/profile"
)

func profilesCmd() *cobra.Command {
	var profilesPath string

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the registered format profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if profilesPath != "" {
				if err := profile.LoadFile(profilesPath); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tLABEL\tFORMAT\tHEADER\tSKIP\tFIELDS")
			for _, p := range profile.All() {
				fields := "(from header)"
				if len(p.FieldNames) > 0 {
					fields = fmt.Sprintf("%d fixed", len(p.FieldNames))
				} else if !p.HasHeaderRow {
					fields = "(generated)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%s\n",
					p.Key, p.Label, p.Format, p.HasHeaderRow, p.SkipHeaderRows, fields)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&profilesPath, "profiles", "", "TOML file with additional profiles")

	return cmd
}
