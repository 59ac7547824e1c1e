package assets

import (
	"path/filepath"
	"strings"
)

// fontFiles maps normalized font family names to file paths relative to the
// configured font directory. The set is fixed; anything else falls back to
// DefaultFontFile.
var fontFiles = map[string]string{
	"arial":           "liberation/LiberationSans-Regular.ttf",
	"arial bold":      "liberation/LiberationSans-Bold.ttf",
	"helvetica":       "liberation/LiberationSans-Regular.ttf",
	"times new roman": "liberation/LiberationSerif-Regular.ttf",
	"georgia":         "liberation/LiberationSerif-Regular.ttf",
	"courier new":     "liberation/LiberationMono-Regular.ttf",
	"courier":         "liberation/LiberationMono-Regular.ttf",
	"verdana":         "dejavu/DejaVuSans.ttf",
	"dejavu sans":     "dejavu/DejaVuSans.ttf",
	"roboto":          "roboto/Roboto-Regular.ttf",
	"open sans":       "open-sans/OpenSans-Regular.ttf",
	"montserrat":      "montserrat/Montserrat-Regular.ttf",
}

// DefaultFontFile is the fallback face for unresolved families.
const DefaultFontFile = "dejavu/DejaVuSans.ttf"

// FontTable resolves font family names to font file paths under a base
// directory.
type FontTable struct {
	dir string
}

// NewFontTable constructs a font table rooted at dir.
func NewFontTable(dir string) *FontTable {
	return &FontTable{dir: dir}
}

// Resolve returns the font file path for a family name. Lookups are
// case-insensitive; unknown or empty families resolve to the default face.
func (t *FontTable) Resolve(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	file, ok := fontFiles[normalized]
	if !ok {
		file = DefaultFontFile
	}
	return filepath.Join(t.dir, file)
}
