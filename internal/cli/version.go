package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/cvsearch/internal/version"
)

func newVersionCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{
					"version":   version.Version,
					"commit":    version.Commit,
					"built":     version.Date,
					"goVersion": runtime.Version(),
				})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "cvctl version %s\n", version.Version)
			fmt.Fprintf(w, "  commit:     %s\n", version.Commit)
			fmt.Fprintf(w, "  built:      %s\n", version.Date)
			fmt.Fprintf(w, "  go version: %s\n", runtime.Version())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
