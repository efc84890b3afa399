package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "glog-reader",
		Short: "Decode Glog binary log containers",
		Long: `glog-reader extracts and decodes Glog binary log containers,
either from a client log bundle (.zip) or from a single .glog /
.glogmmap file.

Corrupted regions are skipped and reported; zlib-compressed and
AES-encrypted (V4) containers are handled transparently. Decrypting a
V4 container requires the matching server private key.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "log bundle (.zip) or single log file (required)")
	flags.StringVarP(&opts.key, "key", "k", "", "server private key for encrypted containers (hex)")
	flags.StringVarP(&opts.types, "types", "t", "", "only output these log types (comma separated, e.g. 0,1,2)")
	flags.StringVarP(&opts.output, "output", "o", "log_output.txt", "output text file")
	flags.StringVar(&opts.dbPath, "db", "", "also index decoded records into a SQLite database at this path")
	rootCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("glog-reader %s (%s)\n", version, commit)
		},
	}
}
