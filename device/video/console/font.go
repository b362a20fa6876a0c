package console

// Font describes the bitmap font a framebuffer console renders glyphs with.
// Each glyph consists of BytesPerRow * GlyphHeight bytes where a set bit
// selects the foreground color. Glyphs are indexed by byte value, PSF-style.
type Font struct {
	Name string

	GlyphWidth  uint32
	GlyphHeight uint32

	// BytesPerRow is the number of bytes describing one glyph row.
	BytesPerRow uint32

	Data []byte
}

// glyphSize returns the number of bytes occupied by one glyph.
func (f *Font) glyphSize() uint32 {
	return f.BytesPerRow * f.GlyphHeight
}

// defaultFont is the font handed to framebuffer consoles created by
// ProbeForMode. The bootstrap registers the font baked into the kernel
// image before the graphics stage runs.
var defaultFont *Font

// SetDefaultFont registers the font used by framebuffer consoles.
func SetDefaultFont(f *Font) {
	defaultFont = f
}
