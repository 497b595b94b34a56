// Package media produces pin images: an AI text-to-image generator and a
// local compositor that captions a background image.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// Pin canvas geometry.
const (
	Width  = 1000
	Height = 1500

	// WrapWidth is the caption line length in characters.
	WrapWidth = 28

	maxCaption    = 200
	maxBackground = 20 << 20
	textScale     = 4
	linePadding   = 3
	boxMargin     = 40
	boxBottom     = 60
	boxPadding    = 20
	jpegQuality   = 85
)

var (
	canvasGrey = color.RGBA{240, 240, 240, 255}
	boxShade   = color.NRGBA{0, 0, 0, 150}
)

// Compositor draws a caption box over a background image. When the
// background cannot be fetched or decoded it uses a flat grey canvas, so it
// only fails if encoding fails.
type Compositor struct {
	http *http.Client
	log  logger.Logger
}

// NewCompositor creates a Compositor.
func NewCompositor(httpClient *http.Client, log logger.Logger) *Compositor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Compositor{http: httpClient, log: log}
}

// Generate renders caption over the image at backgroundURL.
func (c *Compositor) Generate(ctx context.Context, backgroundURL, caption string) (types.Media, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
	bg, err := c.background(ctx, backgroundURL)
	if err != nil {
		if backgroundURL != "" {
			c.log.Debug("background unavailable, using plain canvas",
				logger.String("url", backgroundURL),
				logger.Error(err),
			)
		}
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(canvasGrey), image.Point{}, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), bg, bg.Bounds(), draw.Src, nil)
	}

	drawCaption(canvas, caption)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return types.Media{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return types.Media{
		Name:        "pin_" + uuid.NewString() + ".jpg",
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
	}, nil
}

func (c *Compositor) background(ctx context.Context, u string) (image.Image, error) {
	if u == "" {
		return nil, fmt.Errorf("no background")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxBackground))
	if err != nil {
		return nil, fmt.Errorf("decode background: %w", err)
	}
	return img, nil
}

// drawCaption renders the wrapped caption with the fixed-size basic font on
// a small mask, then scales it up into a shaded box near the bottom.
func drawCaption(dst *image.RGBA, caption string) {
	lines := Wrap(caption, WrapWidth)
	if len(lines) == 0 {
		return
	}

	face := basicfont.Face7x13
	lineH := face.Height + linePadding
	longest := 0
	for _, l := range lines {
		longest = max(longest, len([]rune(l)))
	}
	textW := longest*face.Advance + 2
	textH := len(lines) * lineH

	text := image.NewRGBA(image.Rect(0, 0, textW, textH))
	d := font.Drawer{Dst: text, Src: image.White, Face: face}
	for i, l := range lines {
		x := (textW - len([]rune(l))*face.Advance) / 2
		d.Dot = fixed.P(x, i*lineH+face.Ascent)
		d.DrawString(l)
	}

	scale := textScale
	for scale > 1 && textW*scale > Width-2*(boxMargin+boxPadding) {
		scale--
	}
	scaledW, scaledH := textW*scale, textH*scale

	boxH := scaledH + 2*boxPadding
	boxTop := Height - boxH - boxBottom
	box := image.Rect(boxMargin, boxTop, Width-boxMargin, boxTop+boxH)
	draw.Draw(dst, box, image.NewUniform(boxShade), image.Point{}, draw.Over)

	left := (Width - scaledW) / 2
	target := image.Rect(left, boxTop+boxPadding, left+scaledW, boxTop+boxPadding+scaledH)
	draw.NearestNeighbor.Scale(dst, target, text, text.Bounds(), draw.Over, nil)
}

// Wrap splits text into lines of at most width characters, breaking on
// spaces. A single word longer than width gets its own line. Text beyond
// 200 characters is dropped.
func Wrap(text string, width int) []string {
	if r := []rune(text); len(r) > maxCaption {
		text = string(r[:maxCaption])
	}
	var lines []string
	var line strings.Builder
	for _, w := range strings.Fields(text) {
		if line.Len() > 0 && len([]rune(line.String()))+len([]rune(w))+1 > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(w)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
