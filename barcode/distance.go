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

// Distance is the number of mismatched positions between two index
// sequences: positional mismatches over the shared length, plus the length
// difference. The demultiplexer needs pooled indexes to keep a minimum
// distance from each other or reads become unassignable.
func Distance(a, b string) int {
	if len(a) > len(b) {
		a, b = b, a
	}

	distance := len(b) - len(a)

	for n := range a {
		if a[n] != b[n] {
			distance++
		}
	}

	return distance
}

// MinDistance returns the smallest pairwise Distance across a set of index
// sequences, or 0 for fewer than two sequences.
func MinDistance(indexes []string) int {
	min := 0
	first := true

	for n := range indexes {
		for m := n + 1; m < len(indexes); m++ {
			d := Distance(indexes[n], indexes[m])

			if first || d < min {
				min = d
				first = false
			}
		}
	}

	return min
}

var complements = map[byte]byte{
	'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C',
	'a': 't', 't': 'a', 'c': 'g', 'g': 'c',
	'N': 'N', 'n': 'n',
}

// ReverseComplement returns the reverse complement of an index sequence.
// Bases without a complement, eg. separators, are kept as they are. Some
// instruments read the second index in the opposite orientation to the
// barcode as manifested, so sheets for them need this transform.
func ReverseComplement(seq string) string {
	rc := make([]byte, len(seq))

	for n := 0; n < len(seq); n++ {
		base := seq[len(seq)-1-n]

		if complement, ok := complements[base]; ok {
			base = complement
		}

		rc[n] = base
	}

	return string(rc)
}
