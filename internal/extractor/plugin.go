package extractor

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

/*
Plugin augments the DOM waterfall with field-level extraction over the
isolated content node: keywords, tables, images. Unlike Extractor, which
isolates the one meaningful content node out of a whole document, a
Plugin runs over that already-isolated node and contributes named fields
to the artifact's Extracted map — it never decides what counts as content.

Plugins are independent of each other: the scheduler runs every enabled
plugin over the same document and merges their output by key, so one
plugin failing never prevents another's fields from landing.
*/

// Plugin extracts one or more named fields from an isolated content
// document and reports them as a flat map merged into
// artifact.PageArtifact.Extracted.
type Plugin interface {
	Name() string
	Extract(doc *goquery.Document) (map[string]any, failure.ClassifiedError)
}
