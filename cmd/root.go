package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global output flags only
	verbose   bool
	imagePath string
)

var rootCmd = &cobra.Command{
	Use:   "go-btrfs",
	Short: "Btrfs metadata inspector and tree checker",
	Long: `go-btrfs is a cross-platform, read-only command-line tool for inspecting
btrfs metadata and validating tree blocks directly from raw disks,
partitions, or image files without mounting.

Every block is checked the way the disk-read path would check it: key
ordering, item packing and bounds, and the per-item-type format rules,
so corruption can be located before anything else trusts the block.

Commands:
  check       Validate the superblock system chunks or a tree block`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&imagePath, "image", "", "path to the device or image file")
}
