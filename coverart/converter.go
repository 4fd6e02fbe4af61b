// Package coverart renders track thumbnails as ASCII art for the player bar and
// the recommendation tiles.
package coverart

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"time"

	"github.com/qeesung/image2ascii/convert"

	"github.com/yhkl-dev/SonicCLI/cache"
)

// Converter downloads thumbnails and converts them to ASCII. Results are
// memoized by url and size.
type Converter struct {
	httpClient *http.Client
	converter  *convert.ImageConverter
	rendered   *cache.Table[string]
}

// NewConverter creates a new thumbnail converter
func NewConverter(timeout time.Duration) *Converter {
	return &Converter{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		converter: convert.NewImageConverter(),
		rendered:  cache.NewTable[string](cache.Exact),
	}
}

// Convert renders the image at url into a width x height block. An empty url, or
// any failure, yields the placeholder; failures also return the error.
func (c *Converter) Convert(ctx context.Context, url string, width, height int) (string, error) {
	if url == "" {
		return Placeholder(width, height), nil
	}
	key := fmt.Sprintf("%dx%d %s", width, height, url)
	if ascii, ok := c.rendered.Get(key); ok {
		return ascii, nil
	}

	img, err := c.download(ctx, url)
	if err != nil {
		return Placeholder(width, height), err
	}

	convertOptions := convert.DefaultOptions
	convertOptions.FixedWidth = width
	convertOptions.FixedHeight = height
	convertOptions.Colored = false // ANSI colors break tview regions

	ascii := c.converter.Image2ASCIIString(img, &convertOptions)
	c.rendered.Put(key, ascii)
	return ascii, nil
}

func (c *Converter) download(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	return img, nil
}

// Placeholder returns a framed note block of the given size
func Placeholder(width, height int) string {
	if width < 4 || height < 3 {
		return "♫"
	}
	const note = "♫ ♪ ♫"
	out := "[darkgray]┌" + strings.Repeat("─", width-2) + "┐\n"
	for row := 1; row < height-1; row++ {
		inner := strings.Repeat(" ", width-2)
		if row == (height-1)/2 && width-2 >= 5 {
			pad := (width - 2 - 5) / 2
			inner = strings.Repeat(" ", pad) + note + strings.Repeat(" ", width-2-5-pad)
		}
		out += "[darkgray]│" + inner + "│\n"
	}
	out += "[darkgray]└" + strings.Repeat("─", width-2) + "┘"
	return out
}
