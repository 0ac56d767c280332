// Package surface defines the closed set of publishing surfaces and the
// per-surface size/quality profiles. The set is a tagged enumeration rather
// than free-form string keys so an unknown surface cannot slip past the
// compiler into an export run.
package surface

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Surface identifies one publishing destination.
type Surface int

// The full surface set, in manifest column order.
const (
	Web Surface = iota
	Instagram
	Pinterest
	GBP
	WhatsApp
	Print
)

// Profile holds the transcoding parameters for one surface.
type Profile struct {
	Label        string  `yaml:"label"`
	MaxDimension int     `yaml:"max_dimension"` // longest edge in pixels
	Quality      float64 `yaml:"quality"`       // JPEG quality factor in (0,1]
}

//go:embed profiles.yaml
var profilesYAML []byte

var profiles map[Surface]Profile

func init() {
	var raw struct {
		Surfaces map[string]Profile `yaml:"surfaces"`
	}
	if err := yaml.Unmarshal(profilesYAML, &raw); err != nil {
		// Embedded file, so this can only fail on a bad edit.
		panic("failed to unmarshal embedded profiles.yaml: " + err.Error())
	}

	profiles = make(map[Surface]Profile, len(All()))
	for _, s := range All() {
		p, ok := raw.Surfaces[s.Key()]
		if !ok {
			panic("profiles.yaml is missing surface " + s.Key())
		}
		if p.MaxDimension <= 0 || p.Quality <= 0 || p.Quality > 1 {
			panic(fmt.Sprintf("profiles.yaml has invalid profile for %s: %+v", s.Key(), p))
		}
		profiles[s] = p
	}
}

// All returns every surface in declaration order.
func All() []Surface {
	return []Surface{Web, Instagram, Pinterest, GBP, WhatsApp, Print}
}

// Social returns the surfaces whose captions get their own column in the
// wide-form manifest (Pinterest is excluded: it exports a title/description
// pair instead of a caption).
func Social() []Surface {
	return []Surface{Instagram, GBP, WhatsApp}
}

// Key returns the stable identifier used in filenames, archive folders and
// manifest columns.
func (s Surface) Key() string {
	switch s {
	case Web:
		return "web"
	case Instagram:
		return "instagram"
	case Pinterest:
		return "pinterest"
	case GBP:
		return "gbp"
	case WhatsApp:
		return "whatsapp"
	case Print:
		return "print"
	default:
		return "unknown"
	}
}

// Label returns the human-readable name from the profile table.
func (s Surface) Label() string {
	return profiles[s].Label
}

// Profile returns the transcoding profile for the surface.
func (s Surface) Profile() Profile {
	return profiles[s]
}

// String implements fmt.Stringer.
func (s Surface) String() string {
	return s.Key()
}

// Parse maps a surface key back to its Surface. Unknown keys are an error so
// callers cannot silently export to a surface that does not exist.
func Parse(key string) (Surface, error) {
	for _, s := range All() {
		if s.Key() == key {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown surface %q", key)
}

// ParseAll parses a list of surface keys, deduplicating while preserving
// declaration order of the surface set.
func ParseAll(keys []string) ([]Surface, error) {
	seen := make(map[Surface]bool, len(keys))
	for _, key := range keys {
		s, err := Parse(key)
		if err != nil {
			return nil, err
		}
		seen[s] = true
	}
	var out []Surface
	for _, s := range All() {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out, nil
}
