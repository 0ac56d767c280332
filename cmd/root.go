package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-publisher",
	Short: "A CLI tool for preparing photos for multi-platform publishing",
	Long: `Photo Publisher prepares a batch of photos for publishing across
multiple platforms. It derives SEO-safe filenames and per-platform text
metadata, transcodes each photo to every platform's size and quality
profile, and packages everything into a zip archive with CSV manifests.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
