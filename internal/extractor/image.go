package extractor

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

/*
ImagePlugin collects <img> tags with a usable src, skipping images inside
frame elements and small decorative icons (grounded on crawlit's
image_extractor.py). Each entry records enough to resolve and caption the
asset downstream without re-parsing the DOM.
*/

const decorativeIconMaxDimension = 16

var frameAncestorTags = []string{"iframe", "frame", "frameset"}

// ImagePlugin extracts an "images" field.
type ImagePlugin struct{}

// NewImagePlugin constructs an ImagePlugin.
func NewImagePlugin() *ImagePlugin { return &ImagePlugin{} }

func (p *ImagePlugin) Name() string { return "image" }

func (p *ImagePlugin) Extract(doc *goquery.Document) (map[string]any, failure.ClassifiedError) {
	var images []map[string]any

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if isInsideFrame(img) {
			return
		}
		src, ok := img.Attr("src")
		src = strings.TrimSpace(src)
		if !ok || src == "" {
			return
		}

		alt, _ := img.Attr("alt")
		width, hasWidth := parseDimension(img, "width")
		height, hasHeight := parseDimension(img, "height")

		if isDecorativeIcon(hasWidth, width, hasHeight, height, alt) {
			return
		}

		entry := map[string]any{
			"src":        src,
			"alt":        alt,
			"decorative": alt == "",
		}
		if hasWidth {
			entry["width"] = width
		}
		if hasHeight {
			entry["height"] = height
		}
		if parentTag := goquery.NodeName(img.Parent()); parentTag != "" {
			entry["parent_tag"] = parentTag
		}
		images = append(images, entry)
	})

	if images == nil {
		images = []map[string]any{}
	}
	return map[string]any{"images": images}, nil
}

func isInsideFrame(s *goquery.Selection) bool {
	inside := false
	for _, tag := range frameAncestorTags {
		s.ParentsFiltered(tag).Each(func(_ int, _ *goquery.Selection) {
			inside = true
		})
		if inside {
			return true
		}
	}
	return false
}

func parseDimension(s *goquery.Selection, attr string) (int, bool) {
	val, exists := s.Attr(attr)
	if !exists {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, false
	}
	return n, true
}

// isDecorativeIcon reports whether an image is a small, unlabeled icon
// (e.g. a tracking pixel or UI glyph) rather than meaningful page content.
func isDecorativeIcon(hasWidth bool, width int, hasHeight bool, height int, alt string) bool {
	if alt != "" {
		return false
	}
	return hasWidth && hasHeight && width <= decorativeIconMaxDimension && height <= decorativeIconMaxDimension
}
