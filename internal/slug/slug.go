// Package slug derives external resource keys from a digimon's English name:
// the icon image name and the reference-page path on the upstream wiki.
package slug

import (
	"strings"
	"unicode"

	"github.com/suminhong/diribon2gg/internal/catalog"
)

// NamePlaceholder is replaced by the derived slug in link templates.
const NamePlaceholder = "{name}"

// ImageName lowercases name, drops every character outside a-z, 0-9,
// whitespace and '-', then collapses each whitespace run into one '-'.
func ImageName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	inSpace := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			inSpace = false
		}
		// Anything else is dropped and does not end a whitespace run,
		// so "a ! b" becomes "a-b".
	}
	return b.String()
}

// ReferencePath is the wiki path segment for name. The wiki uses the same
// slug as the icon CDN.
func ReferencePath(name string) string {
	return ImageName(name)
}

// Links expands the configured URL templates for a digimon.
type Links struct {
	// ImageURL is the icon template, e.g. ".../icons/{name}-icon.png".
	ImageURL string

	// ReferenceURL is the wiki page template for regular digimon.
	ReferenceURL string

	// EggReferenceURL is used instead of ReferenceURL when the digimon's
	// stage equals EggStage. Empty disables the distinction.
	EggReferenceURL string

	// EggStage is the stage key that marks an egg.
	EggStage string
}

// Image returns the icon URL for d, or "" when no template is configured.
func (l Links) Image(d catalog.Digimon) string {
	return expand(l.ImageURL, ImageName(d.NameEN()))
}

// Reference returns the wiki URL for d.
func (l Links) Reference(d catalog.Digimon) string {
	tmpl := l.ReferenceURL
	if l.EggReferenceURL != "" && l.EggStage != "" && d.Value(catalog.CategoryStage) == l.EggStage {
		tmpl = l.EggReferenceURL
	}
	return expand(tmpl, ReferencePath(d.NameEN()))
}

func expand(tmpl, name string) string {
	if tmpl == "" {
		return ""
	}
	return strings.ReplaceAll(tmpl, NamePlaceholder, name)
}
