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

package demux

import (
	"sort"

	"github.com/FrancisCrickInstitute/asf-tools/barcode"
)

// IndexLengthGroup is the set of samples sharing one (index, index2) length
// pair. Samples in a group can be demultiplexed together with a single
// OverrideCycles directive; samples in different groups cannot.
type IndexLengthGroup struct {
	Index1Len int
	Index2Len int
	Samples   []string
}

// GroupByIndexLength partitions normalized samples by their index length
// pair. Samples with no first index are skipped and returned in sorted order
// for the caller to warn about; every other sample lands in exactly one
// group. Groups come back ascending by length pair and sample names sorted,
// so repeated runs produce identical output.
func GroupByIndexLength(indexes map[string]barcode.Index) ([]IndexLengthGroup, []string) {
	byLength := make(map[[2]int][]string)

	var skipped []string

	for name, index := range indexes {
		if index.First() == "" {
			skipped = append(skipped, name)

			continue
		}

		first, second := index.Lengths()
		key := [2]int{first, second}
		byLength[key] = append(byLength[key], name)
	}

	sort.Strings(skipped)

	return sortGroups(byLength), skipped
}

func sortGroups(byLength map[[2]int][]string) []IndexLengthGroup {
	groups := make([]IndexLengthGroup, 0, len(byLength))

	for key, names := range byLength {
		sort.Strings(names)

		groups = append(groups, IndexLengthGroup{
			Index1Len: key[0],
			Index2Len: key[1],
			Samples:   names,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Index1Len != groups[j].Index1Len {
			return groups[i].Index1Len < groups[j].Index1Len
		}

		return groups[i].Index2Len < groups[j].Index2Len
	})

	return groups
}
