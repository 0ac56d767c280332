package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-publisher/internal/config"
	"github.com/kozaktomas/photo-publisher/internal/export"
	"github.com/kozaktomas/photo-publisher/internal/metadata"
	"github.com/kozaktomas/photo-publisher/internal/session"
	"github.com/kozaktomas/photo-publisher/internal/surface"
)

var exportCmd = &cobra.Command{
	Use:   "export [photos...]",
	Short: "Export photos for multi-platform publishing",
	Long: `Export a batch of photos into a publishing-ready zip archive.
Each photo is transcoded once per selected platform, metadata manifests
are written in long and wide form, and the archive is only produced when
the file and row counts provably match.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("out", "photo-export.zip", "Output zip path")
	exportCmd.Flags().StringSlice("surfaces", nil, "Platforms to export for (default: all)")
	exportCmd.Flags().String("category", "", "Content category (default: DEFAULT_CATEGORY)")
	exportCmd.Flags().String("location", "", "Location as 'neighborhood, city'")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	outPath := mustGetString(cmd, "out")
	category := mustGetString(cmd, "category")
	location := mustGetString(cmd, "location")
	surfaceKeys := mustGetStringSlice(cmd, "surfaces")

	if category == "" {
		category = cfg.Business.DefaultCategory
	}

	surfaces := surface.All()
	if len(surfaceKeys) > 0 {
		var err error
		surfaces, err = surface.ParseAll(surfaceKeys)
		if err != nil {
			return err
		}
	}

	// Set up context with signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	sess := session.New()
	imageIDs := make([]string, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		img, err := sess.AddImage(filepath.Base(path), data)
		if err != nil {
			return fmt.Errorf("not a supported image: %s: %w", path, err)
		}
		imageIDs = append(imageIDs, img.ID)
	}

	fmt.Printf("Exporting %d photos for %d platforms\n", len(imageIDs), len(surfaces))
	fmt.Printf("Category: %s\n", metadata.CategoryLabel(category))
	if location != "" {
		fmt.Printf("Location: %s\n", location)
	}
	fmt.Println()

	for _, id := range imageIDs {
		img := sess.Image(id)
		for _, surf := range surfaces {
			md := metadata.Generate(img.OriginalFilename, img.PhotoID, surf, cfg.Business.Name, category, location)
			sess.SetMetadata(id, surf, md)
		}
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Exporting"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	result, err := export.Run(ctx, sess, imageIDs, surfaces, export.Options{
		OnProgress: func(info export.ProgressInfo) {
			_ = bar.Set(info.Percent)
		},
	})
	fmt.Println()
	if err != nil {
		printExportFailure(err)
		return fmt.Errorf("export failed: %w", err)
	}

	if err := os.WriteFile(outPath, result.Archive, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	fmt.Printf("\nExport finalized: %s\n", outPath)
	fmt.Printf("  Photos:    %d\n", result.Summary.ImageCount)
	fmt.Printf("  Platforms: %d\n", result.Summary.SurfaceCount)
	fmt.Printf("  Files:     %d (+ 2 manifests)\n", result.Summary.ArchivedFiles)
	return nil
}

// printExportFailure explains typed export errors pair by pair.
func printExportFailure(err error) {
	var missing *export.MissingMetadataError
	if errors.As(err, &missing) {
		fmt.Printf("Missing metadata for %d pairs:\n", len(missing.Pairs))
		for _, p := range missing.Pairs {
			fmt.Printf("  - %s (%s)\n", p.OriginalFilename, p.Surface)
		}
		return
	}

	var mismatch *export.SelfTestMismatchError
	if errors.As(err, &mismatch) {
		fmt.Printf("Self-test failed: expected %d files, archived %d, manifest rows %d\n",
			mismatch.Expected, mismatch.Archived, mismatch.Rows)
		if len(mismatch.Failed) > 0 {
			var pairs []string
			for _, p := range mismatch.Failed {
				pairs = append(pairs, fmt.Sprintf("%s (%s)", p.OriginalFilename, p.Surface))
			}
			fmt.Printf("Failed artifacts: %s\n", strings.Join(pairs, ", "))
		}
	}
}
