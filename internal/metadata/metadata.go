// Package metadata derives per-image identity fields and generates the
// per-surface filename, alt text, and caption records used by the exporter.
//
// All generated text is deterministic: descriptor and photo-id come from a
// stable hash of the original filename, and every template is a pure
// function of its inputs. The only time-dependent output is the print
// caption's copyright year.
package metadata

import (
	_ "embed"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-publisher/internal/slugify"
	"github.com/kozaktomas/photo-publisher/internal/surface"
)

//go:embed vocab.yaml
var vocabYAML []byte

type vocabulary struct {
	DefaultKeyword string                   `yaml:"default_keyword"`
	Descriptors    []string                 `yaml:"descriptors"`
	Categories     map[string]categoryEntry `yaml:"categories"`
}

type categoryEntry struct {
	Label   string `yaml:"label"`
	Keyword string `yaml:"keyword"`
}

var vocab vocabulary

func init() {
	if err := yaml.Unmarshal(vocabYAML, &vocab); err != nil {
		panic("failed to unmarshal embedded vocab.yaml: " + err.Error())
	}
	if len(vocab.Descriptors) == 0 {
		panic("vocab.yaml defines no descriptors")
	}
}

// Alt text length guideline. Out-of-range alt text is flagged, never rejected.
const (
	AltTextMinLen = 80
	AltTextMaxLen = 125
)

// Fields holds the semantic identity inputs of one image.
type Fields struct {
	Subject     string `json:"subject"`
	SubLocation string `json:"sub_location"`
	City        string `json:"city"`
	Category    string `json:"category"`
	Descriptor  string `json:"descriptor"`
	Keyword     string `json:"keyword"`
	PhotoID     string `json:"photo_id"`
}

// SurfaceMetadata is the generated record for one (image, surface) pair.
type SurfaceMetadata struct {
	Surface        string `json:"surface"`
	Filename       string `json:"filename"`
	AltText        string `json:"alt_text"`
	AltTextInRange bool   `json:"alt_text_in_range"`
	Caption        string `json:"caption"`
	PinTitle       string `json:"pin_title,omitempty"`
	PinDescription string `json:"pin_description,omitempty"`
	Hashtags       string `json:"hashtags,omitempty"`

	// Provenance copies of the inputs the record was built from.
	Category   string `json:"category"`
	Location   string `json:"location"`
	Keyword    string `json:"keyword_master"`
	Descriptor string `json:"descriptor"`
	SlugBase   string `json:"slug_base"`
}

// SplitLocation parses a location string into sub-location and city by
// splitting on the first comma. "SoHo, NYC" becomes ("SoHo", "NYC"); a
// comma-less input is all sub-location.
func SplitLocation(location string) (subLocation, city string) {
	before, after, found := strings.Cut(location, ",")
	if !found {
		return strings.TrimSpace(location), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// DescriptorFor stably selects a descriptor phrase for an original filename
// using the character-sum hash. Same filename, same descriptor, every run.
func DescriptorFor(originalFilename string) string {
	return vocab.Descriptors[slugify.CharSum(originalFilename)%len(vocab.Descriptors)]
}

// KeywordFor returns the keyword phrase for a category, falling back to the
// default keyword for unknown categories.
func KeywordFor(category string) string {
	if entry, ok := vocab.Categories[category]; ok && entry.Keyword != "" {
		return entry.Keyword
	}
	return vocab.DefaultKeyword
}

// CategoryLabel returns the display label for a category. Unknown categories
// fall back to the normalized category key with hyphens as spaces.
func CategoryLabel(category string) string {
	if entry, ok := vocab.Categories[category]; ok && entry.Label != "" {
		return entry.Label
	}
	return strings.ReplaceAll(slugify.Normalize(category), "-", " ")
}

// Categories returns the known category keys.
func Categories() []string {
	keys := make([]string, 0, len(vocab.Categories))
	for k := range vocab.Categories {
		keys = append(keys, k)
	}
	return keys
}

// DeriveFields computes the identity fields for an image from its original
// filename and the session-level inputs. photoID is the session-assigned id
// (unique across images even when filenames collide); an empty photoID falls
// back to deriving one from the filename.
func DeriveFields(originalFilename, photoID, subject, category, location string) Fields {
	if photoID == "" {
		photoID = slugify.PhotoID(originalFilename)
	}
	subLoc, city := SplitLocation(location)
	return Fields{
		Subject:     subject,
		SubLocation: subLoc,
		City:        city,
		Category:    category,
		Descriptor:  DescriptorFor(originalFilename),
		Keyword:     KeywordFor(category),
		PhotoID:     photoID,
	}
}

// SlugBase builds the compound slug for the fields.
func (f Fields) SlugBase() string {
	return slugify.BuildSlug(f.Subject, f.SubLocation, f.City, f.Keyword, f.Descriptor, f.PhotoID)
}

// place renders the human-readable location ("SoHo, NYC", "SoHo", or "").
func (f Fields) place() string {
	switch {
	case f.SubLocation != "" && f.City != "":
		return f.SubLocation + ", " + f.City
	case f.SubLocation != "":
		return f.SubLocation
	default:
		return f.City
	}
}

// Generate produces the metadata record for one (image, surface) pair.
// The caller persists the result into the session's per-image table. Passing
// the session-assigned photoID keeps slugs distinct when two images share an
// original filename.
func Generate(originalFilename, photoID string, surf surface.Surface, subject, category, location string) SurfaceMetadata {
	fields := DeriveFields(originalFilename, photoID, subject, category, location)
	slugBase := fields.SlugBase()

	// Fixed ideal-extension policy: the transcoder always re-encodes JPEG,
	// so every surface gets .jpg regardless of the source format.
	filename := slugBase + "__" + surf.Key() + ".jpg"

	altText := fields.altText()

	md := SurfaceMetadata{
		Surface:        surf.Key(),
		Filename:       filename,
		AltText:        altText,
		AltTextInRange: len(altText) >= AltTextMinLen && len(altText) <= AltTextMaxLen,
		Category:       category,
		Location:       location,
		Keyword:        fields.Keyword,
		Descriptor:     fields.Descriptor,
		SlugBase:       slugBase,
	}

	label := CategoryLabel(category)
	place := fields.place()

	switch surf {
	case surface.Web:
		md.Caption = fmt.Sprintf("The %s %s at %s%s. Book your next shoot today.",
			fields.Descriptor, label, subject, inPlace(place))
	case surface.Instagram:
		md.Hashtags = strings.Join(Hashtags(fields), " ")
		md.Caption = fmt.Sprintf("%s %s at %s%s.\n\n%s",
			capitalize(fields.Descriptor), label, subject, inPlace(place), md.Hashtags)
	case surface.Pinterest:
		md.PinTitle = fmt.Sprintf("%s %s%s", capitalize(fields.Descriptor), label, inPlace(place))
		md.PinDescription = fmt.Sprintf("%s %s at %s%s. A flexible %s for photographers and creative teams.",
			capitalize(fields.Descriptor), label, subject, inPlace(place), fields.Keyword)
		md.Caption = md.PinDescription
	case surface.GBP:
		md.Caption = fmt.Sprintf("%s %s available for hourly rental at %s%s.",
			capitalize(fields.Descriptor), label, subject, inPlace(place))
	case surface.WhatsApp:
		md.Caption = fmt.Sprintf("%s at %s%s", capitalize(label), subject, inPlace(place))
	case surface.Print:
		md.Caption = fmt.Sprintf("© %d %s. %s%s. All rights reserved.",
			time.Now().Year(), subject, capitalize(label), inPlace(place))
	}

	return md
}

// altText renders the single descriptive alt sentence.
func (f Fields) altText() string {
	place := f.place()
	return fmt.Sprintf("%s %s at %s%s, ideal for photo shoots, video production, and creative events.",
		capitalize(f.Descriptor), CategoryLabel(f.Category), f.Subject, inPlace(place))
}

// Hashtags builds the normalized hashtag list for tag-capable surfaces:
// each token lowercased with non-alphanumerics stripped and prefixed with #.
func Hashtags(f Fields) []string {
	raw := []string{f.Keyword, f.Descriptor, f.SubLocation, f.City, f.Subject}
	var tags []string
	seen := map[string]bool{}
	for _, phrase := range raw {
		tag := hashtagToken(phrase)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, "#"+tag)
	}
	return tags
}

// hashtagToken lowercases a phrase and strips everything outside [a-z0-9].
func hashtagToken(phrase string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(phrase) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// inPlace renders " in <place>" or nothing when the place is empty.
func inPlace(place string) string {
	if place == "" {
		return ""
	}
	return " in " + place
}

// capitalize upper-cases the first rune of s.
func capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
