package attribute

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// AccentAlpha is the opacity applied to every derived accent.
const AccentAlpha = 0.2

// NeutralAccent is returned for absent or unrecognised colours.
var NeutralAccent = rgba(128, 128, 128)

// cssLevel4 holds the CSS keywords newer than the SVG 1.1 set in
// [colornames.Map].
var cssLevel4 = map[string]color.RGBA{
	"rebeccapurple": {0x66, 0x33, 0x99, 0xff},
}

// Accent derives a translucent background colour from a lookup colour. It
// accepts a CSS colour keyword, matched case-insensitively, or a six-digit
// hex value with or without the leading '#'. Anything else yields
// [NeutralAccent].
func Accent(color string) string {
	c, ok := parseColor(color)
	if !ok {
		return NeutralAccent
	}
	r, g, b := c.RGB255()
	return rgba(r, g, b)
}

// parseColor resolves a keyword or six-digit hex value.
func parseColor(s string) (colorful.Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if kw, ok := keyword(s); ok {
		return colorful.MakeColor(kw)
	}
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 || strings.IndexFunc(s, notHexDigit) >= 0 {
		return colorful.Color{}, false
	}
	c, err := colorful.Hex("#" + s)
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}

func keyword(name string) (color.RGBA, bool) {
	if c, ok := colornames.Map[name]; ok {
		return c, true
	}
	c, ok := cssLevel4[name]
	return c, ok
}

func notHexDigit(r rune) bool {
	return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f')
}

func rgba(r, g, b uint8) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %.1f)", r, g, b, AccentAlpha)
}
