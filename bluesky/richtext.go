package bluesky

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bluesky-social/indigo/api/bsky"

	"crossfeed/models"
)

// segment is a run of post text, either plain or carrying one facet
type segment struct {
	text  string
	facet *bsky.RichtextFacet
}

// segments splits text on facet byte boundaries. Facets with missing or
// out-of-range offsets and facets overlapping an earlier one are dropped
// rather than failing the whole post.
func segments(text string, facets []*bsky.RichtextFacet) []segment {
	valid := make([]*bsky.RichtextFacet, 0, len(facets))
	for _, facet := range facets {
		if facet == nil || facet.Index == nil {
			continue
		}
		start, end := facet.Index.ByteStart, facet.Index.ByteEnd
		if start < 0 || end > int64(len(text)) || start >= end {
			continue
		}
		valid = append(valid, facet)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Index.ByteStart < valid[j].Index.ByteStart
	})

	var segs []segment
	var cursor int64
	for _, facet := range valid {
		start, end := facet.Index.ByteStart, facet.Index.ByteEnd
		if start < cursor {
			continue
		}
		if start > cursor {
			segs = append(segs, segment{text: text[cursor:start]})
		}
		segs = append(segs, segment{text: text[start:end], facet: facet})
		cursor = end
	}
	if cursor < int64(len(text)) {
		segs = append(segs, segment{text: text[cursor:]})
	}
	return segs
}

// FlattenMarkdown renders post text with its facets applied: links
// become their target uri, mentions become profile links and tags pass
// through verbatim.
func FlattenMarkdown(text string, facets []*bsky.RichtextFacet) string {
	var sb strings.Builder
	for _, seg := range segments(text, facets) {
		if seg.facet == nil {
			sb.WriteString(seg.text)
			continue
		}
		feature := firstFeature(seg.facet)
		switch {
		case feature == nil:
			sb.WriteString(seg.text)
		case feature.RichtextFacet_Link != nil:
			sb.WriteString(feature.RichtextFacet_Link.Uri)
		case feature.RichtextFacet_Mention != nil:
			fmt.Fprintf(&sb, "[%s](/profile/%s)", seg.text, feature.RichtextFacet_Mention.Did)
		default:
			sb.WriteString(seg.text)
		}
	}
	return sb.String()
}

// FacetSpans extracts the facet ranges in model form for API consumers.
func FacetSpans(text string, facets []*bsky.RichtextFacet) []models.FacetSpan {
	spans := []models.FacetSpan{}
	for _, seg := range segments(text, facets) {
		if seg.facet == nil {
			continue
		}
		feature := firstFeature(seg.facet)
		if feature == nil {
			continue
		}
		span := models.FacetSpan{
			ByteStart: seg.facet.Index.ByteStart,
			ByteEnd:   seg.facet.Index.ByteEnd,
		}
		switch {
		case feature.RichtextFacet_Link != nil:
			span.Type = "link"
			span.Value = feature.RichtextFacet_Link.Uri
		case feature.RichtextFacet_Mention != nil:
			span.Type = "mention"
			span.Value = feature.RichtextFacet_Mention.Did
		case feature.RichtextFacet_Tag != nil:
			span.Type = "tag"
			span.Value = feature.RichtextFacet_Tag.Tag
		default:
			continue
		}
		spans = append(spans, span)
	}
	return spans
}

// firstFeature picks the feature that decides how a facet renders. The
// lexicon allows several features per facet but clients set one.
func firstFeature(facet *bsky.RichtextFacet) *bsky.RichtextFacet_Features_Elem {
	for _, feature := range facet.Features {
		if feature != nil {
			return feature
		}
	}
	return nil
}
