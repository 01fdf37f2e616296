package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Page markers are embedded into the flattened text at extraction time as
// literal "--- Page N ---" lines, in strictly increasing page order.
const (
	pageMarkerPrefix = "--- Page "
	pageMarkerSuffix = " ---"
)

// maxPageDigits bounds the scan for the marker's closing token so a malformed
// marker cannot trigger a whole-document search.
const maxPageDigits = 12

// PageMarker formats the marker line prepended to page n during extraction.
func PageMarker(n int) string {
	return pageMarkerPrefix + strconv.Itoa(n) + pageMarkerSuffix + "\n"
}

// PageAt maps a character offset in flattened text to its page number: the
// page of the most recent well-formed marker at or before the offset.
// Content before the first marker is page 1. Malformed markers are skipped,
// never reported as errors.
func PageAt(text string, offset int) int {
	page := 1
	pos := 0
	// pos <= offset so a marker sitting exactly at the offset counts,
	// including one at the very start of the text.
	for pos <= offset && pos < len(text) {
		next := strings.Index(text[pos:], pageMarkerPrefix)
		if next < 0 {
			break
		}
		next += pos
		if next > offset {
			break
		}
		if n, ok := parseMarkerPage(text, next); ok {
			page = n
		}
		pos = next + 1
	}
	return page
}

// parseMarkerPage parses the page number of the marker starting at start.
func parseMarkerPage(text string, start int) (int, bool) {
	numStart := start + len(pageMarkerPrefix)
	limit := numStart + maxPageDigits
	if limit > len(text) {
		limit = len(text)
	}
	rel := strings.Index(text[numStart:limit], pageMarkerSuffix)
	if rel < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(text[numStart : numStart+rel]))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// PageIndex precomputes marker positions for repeated lookups within one
// document. Behaviorally equivalent to PageAt, but each lookup is a binary
// search instead of a scan.
type PageIndex struct {
	starts []int
	pages  []int
}

// NewPageIndex scans text once and records every well-formed page marker.
func NewPageIndex(text string) *PageIndex {
	idx := &PageIndex{}
	pos := 0
	for pos < len(text) {
		next := strings.Index(text[pos:], pageMarkerPrefix)
		if next < 0 {
			break
		}
		next += pos
		if n, ok := parseMarkerPage(text, next); ok {
			idx.starts = append(idx.starts, next)
			idx.pages = append(idx.pages, n)
		}
		pos = next + 1
	}
	return idx
}

// PageAt returns the page of the last marker at or before offset, default 1.
func (idx *PageIndex) PageAt(offset int) int {
	i := sort.SearchInts(idx.starts, offset+1)
	if i == 0 {
		return 1
	}
	return idx.pages[i-1]
}
