/*******************************************************************************
 * Copyright (c) 2026 The Francis Crick Institute.
 *
 * Authors:
 *	- Chris Cheshire <chris.cheshire@crick.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package barcode

import (
	"sort"
	"strings"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNoValidBarcodes = Error("no samples had a valid barcode")
	ErrInvalidPolicy   = Error("invalid barcode policy")

	segmentSeparator = "-"
	openParen        = "("
	closeParen       = ")"

	maxFixedSegments = 4
)

// Policy says how the segments of a raw barcode are assigned to index reads.
type Policy string

const (
	// FixedDualIndex assigns up to four segments positionally to the index,
	// index2, index3 and index4 columns. Kits used for bulk and 10X pools
	// follow this convention.
	FixedDualIndex Policy = "dual"

	// Combinatorial keeps every segment as one ordered list, for kits (eg.
	// single-cell ATAC) where a sample carries an arbitrary number of index
	// reads.
	Combinatorial Policy = "combinatorial"
)

// StringToPolicy converts a string to a Policy. Blank strings are treated as
// FixedDualIndex.
func StringToPolicy(s string) (Policy, error) {
	switch Policy(s) {
	case FixedDualIndex, Policy(""):
		return FixedDualIndex, nil
	case Combinatorial:
		return Combinatorial, nil
	default:
		return "", ErrInvalidPolicy
	}
}

// Index is a sample's normalized barcode: the ordered index read sequences
// pulled out of the raw LIMS barcode text.
type Index struct {
	Segments []string
}

var fixedColumns = [maxFixedSegments]string{"index", "index2", "index3", "index4"}

// Columns maps the segments to their samplesheet column names. A segment
// that was never present has no entry, so single-index samples produce no
// index2 column at all.
func (i Index) Columns() map[string]string {
	columns := make(map[string]string, len(i.Segments))

	for n, segment := range i.Segments {
		if n < len(fixedColumns) {
			columns[fixedColumns[n]] = segment
		}
	}

	return columns
}

// Lengths returns the lengths of the first and second index reads, with 0
// when a read is absent.
func (i Index) Lengths() (int, int) {
	var first, second int

	if len(i.Segments) > 0 {
		first = len(i.Segments[0])
	}

	if len(i.Segments) > 1 {
		second = len(i.Segments[1])
	}

	return first, second
}

// First returns the first index read sequence, or "" when absent.
func (i Index) First() string {
	if len(i.Segments) == 0 {
		return ""
	}

	return i.Segments[0]
}

// Second returns the second index read sequence, or "" when absent.
func (i Index) Second() string {
	if len(i.Segments) < 2 {
		return ""
	}

	return i.Segments[1]
}

// Extract returns the index portion of raw barcode text: the text between
// the last "(" and the following ")" when a parenthesized segment exists,
// eg. "SI-NA-G2 (ATAACCTA-CGGTGAGC)" gives "ATAACCTA-CGGTGAGC", otherwise
// the trimmed text verbatim.
func Extract(raw string) string {
	raw = strings.TrimSpace(raw)

	open := strings.LastIndex(raw, openParen)
	if open < 0 {
		return raw
	}

	closing := strings.Index(raw[open:], closeParen)
	if closing < 0 {
		return raw
	}

	return strings.TrimSpace(raw[open+1 : open+closing])
}

// Normalize extracts and splits a raw barcode in to an Index under this
// policy. Returns false for blank barcode text, which callers drop rather
// than error on.
func (p Policy) Normalize(raw string) (Index, bool) {
	extracted := Extract(raw)
	if extracted == "" {
		return Index{}, false
	}

	segments := strings.Split(extracted, segmentSeparator)

	if p == FixedDualIndex && len(segments) > maxFixedSegments {
		segments = segments[:maxFixedSegments]
	}

	return Index{Segments: segments}, true
}

// NormalizeAll normalizes a batch of raw barcodes keyed by sample name.
// Samples with blank barcode text are dropped and returned in sorted order
// for the caller to report. When no sample normalized at all, the empty
// result is returned together with ErrNoValidBarcodes; callers decide
// whether that aborts their run.
func (p Policy) NormalizeAll(barcodes map[string]string) (map[string]Index, []string, error) {
	indexes := make(map[string]Index, len(barcodes))

	var dropped []string

	for name, raw := range barcodes {
		index, ok := p.Normalize(raw)
		if !ok {
			dropped = append(dropped, name)

			continue
		}

		indexes[name] = index
	}

	sort.Strings(dropped)

	if len(barcodes) > 0 && len(indexes) == 0 {
		return indexes, dropped, ErrNoValidBarcodes
	}

	return indexes, dropped, nil
}
