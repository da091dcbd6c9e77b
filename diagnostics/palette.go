package diagnostics

import "github.com/fatih/color"

// Palette holds the colors used when printing a code frame. It is injected
// rather than fixed so hosts can match their own branding.
type Palette struct {
	Gutter  *color.Color // line-number column
	Marker  *color.Color // ">" prefix on the failing line
	BadLine *color.Color // source text of the failing line
	Caret   *color.Color // column caret under the failing line
}

// DefaultPalette is the stock scheme used by the dev server.
func DefaultPalette() Palette {
	return Palette{
		Gutter:  color.New(color.FgHiBlack),
		Marker:  color.New(color.FgRed, color.Bold),
		BadLine: color.New(color.FgWhite, color.Bold),
		Caret:   color.New(color.FgRed, color.Bold),
	}
}
