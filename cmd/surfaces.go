package cmd

import (
	"fmt"

	"github.com/kozaktomas/photo-publisher/internal/surface"
	"github.com/spf13/cobra"
)

var surfacesCmd = &cobra.Command{
	Use:   "surfaces",
	Short: "List the supported publishing platforms",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%-12s %-22s %10s %8s\n", "KEY", "PLATFORM", "MAX DIM", "QUALITY")
		for _, s := range surface.All() {
			p := s.Profile()
			fmt.Printf("%-12s %-22s %8dpx %8.0f\n", s.Key(), p.Label, p.MaxDimension, p.Quality*100)
		}
	},
}

func init() {
	rootCmd.AddCommand(surfacesCmd)
}
