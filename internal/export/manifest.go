package export

import (
	"github.com/kozaktomas/photo-publisher/internal/metadata"
	"github.com/kozaktomas/photo-publisher/internal/session"
	"github.com/kozaktomas/photo-publisher/internal/surface"
)

// Manifest filenames at the archive root.
const (
	LongManifestName = "metadata.csv"
	WideManifestName = "metadata_master.csv"
)

// longHeader is the fixed column set of the long-form (row-per-pair) manifest.
func longHeader() []string {
	return []string{
		"original_filename", "platform", "new_filename", "alt_text", "caption",
		"category", "location", "keyword_master", "descriptor", "slug_base",
	}
}

// wideHeader builds the column set of the wide-form (row-per-image)
// manifest for the selected surfaces.
func wideHeader(surfaces []surface.Surface) []string {
	header := []string{
		"photo_id", "original_filename", "category", "neighborhood", "city",
		"descriptor", "keyword_master", "slug_base",
	}
	for _, s := range surfaces {
		header = append(header, "filename_"+s.Key())
	}
	header = append(header, "alt_web", "caption_web")
	for _, s := range selectedSocial(surfaces) {
		header = append(header, "caption_"+s.Key())
	}
	return append(header, "pinterest_title", "pinterest_description", "hashtags", "notes")
}

// selectedSocial filters the social caption surfaces down to the selection.
func selectedSocial(surfaces []surface.Surface) []surface.Surface {
	selected := make(map[surface.Surface]bool, len(surfaces))
	for _, s := range surfaces {
		selected[s] = true
	}
	var out []surface.Surface
	for _, s := range surface.Social() {
		if selected[s] {
			out = append(out, s)
		}
	}
	return out
}

// records is the validated metadata snapshot an export run works from.
type records map[string]map[surface.Surface]metadata.SurfaceMetadata

// buildLongRows produces header plus one row per (image, surface) pair.
// Captions are newline-escaped so every row is one physical line.
func buildLongRows(images []*session.SourceImage, surfaces []surface.Surface, recs records) [][]string {
	rows := [][]string{longHeader()}
	for _, img := range images {
		for _, surf := range surfaces {
			md := recs[img.ID][surf]
			rows = append(rows, []string{
				img.OriginalFilename,
				surf.Key(),
				md.Filename,
				md.AltText,
				EscapeNewlines(md.Caption),
				md.Category,
				md.Location,
				md.Keyword,
				md.Descriptor,
				md.SlugBase,
			})
		}
	}
	return rows
}

// buildWideRows produces header plus one row per image with all surfaces'
// outputs as sibling columns. Columns for unselected or failed-to-generate
// surfaces stay empty.
func buildWideRows(images []*session.SourceImage, surfaces []surface.Surface, recs records) [][]string {
	rows := [][]string{wideHeader(surfaces)}
	social := selectedSocial(surfaces)

	for _, img := range images {
		table := recs[img.ID]

		// Shared identity fields come from any record of the image; they
		// are provenance copies of the same derivation.
		var first metadata.SurfaceMetadata
		for _, surf := range surfaces {
			if md, ok := table[surf]; ok {
				first = md
				break
			}
		}
		neighborhood, city := metadata.SplitLocation(first.Location)

		row := []string{
			img.PhotoID,
			img.OriginalFilename,
			first.Category,
			neighborhood,
			city,
			first.Descriptor,
			first.Keyword,
			first.SlugBase,
		}
		for _, surf := range surfaces {
			row = append(row, table[surf].Filename)
		}

		web := table[surface.Web]
		row = append(row, web.AltText, EscapeNewlines(web.Caption))
		for _, surf := range social {
			row = append(row, EscapeNewlines(table[surf].Caption))
		}

		pin := table[surface.Pinterest]
		row = append(row,
			pin.PinTitle,
			EscapeNewlines(pin.PinDescription),
			table[surface.Instagram].Hashtags,
			"", // notes: free column for the person reviewing the sheet
		)
		rows = append(rows, row)
	}
	return rows
}
