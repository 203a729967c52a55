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
	"strings"

	"github.com/FrancisCrickInstitute/asf-tools/barcode"
	"github.com/FrancisCrickInstitute/asf-tools/lims"
	"github.com/FrancisCrickInstitute/asf-tools/samplesheet"
)

const (
	// OtherSamples is the bucket for samples matching no category; it only
	// appears in split output when at least one sample fell to it.
	OtherSamples = "other_samples"

	// AllSamples is the bucket holding every row regardless of category.
	AllSamples = "all_samples"

	laneColumn     = "Lane"
	sampleIDColumn = "Sample_ID"
	laneKeyInfix   = "_lane_"
)

// Category classifies samples by their LIMS project metadata. A sample
// matches when its project type or data analysis type equals one of the
// Keywords, or contains one of the Substrings.
type Category struct {
	Name       string
	Keywords   []string
	Substrings []string
}

func (c Category) matches(sample lims.Sample) bool {
	for _, keyword := range c.Keywords {
		if sample.ProjectType == keyword || sample.DataAnalysisType == keyword {
			return true
		}
	}

	for _, substring := range c.Substrings {
		if substring == "" {
			continue
		}

		if strings.Contains(sample.ProjectType, substring) ||
			strings.Contains(sample.DataAnalysisType, substring) {
			return true
		}
	}

	return false
}

// DefaultCategories returns the facility's stock demultiplexing workflow
// categories. The keyword lists accumulate every spelling the LIMS has held
// for these project and analysis types.
func DefaultCategories() []Category {
	return []Category{
		{
			Name: "singlecell",
			Keywords: []string{
				"Single Cell",
				"10X",
				"10x Multiomics",
				"10x multiome",
				"10X-3prime-nuclei",
				"10X-Multiomics-GEX",
				"10X-FeatureBarcoding",
				"10X-3prime",
				"10X-CNV",
				"10X-Multiomics",
				"10X-Flex",
			},
		},
		{
			Name: "atac",
			Keywords: []string{
				"ATAC",
				"ATAC-Seq",
				"10X ATAC",
				"10X Multiomics ATAC",
				"10X-Multiomics-ATAC",
				"10X-ATAC",
			},
		},
		{
			Name:       "dlp",
			Substrings: []string{"DLP"},
		},
	}
}

// Buckets maps lowercased category names, and the other_samples and
// all_samples buckets, to their sample rows.
type Buckets map[string]samplesheet.Data

// Rows returns the named bucket's rows, which may be empty.
func (b Buckets) Rows(name string) samplesheet.Data {
	return b[name]
}

// SampleNames returns the sorted distinct Sample_ID values in the named
// bucket.
func (b Buckets) SampleNames(name string) []string {
	seen := make(map[string]bool)

	for _, row := range b[name] {
		seen[row[sampleIDColumn]] = true
	}

	names := make([]string, 0, len(seen))
	for sample := range seen {
		names = append(names, sample)
	}

	sort.Strings(names)

	return names
}

// Split fans each sample out to one row per lane assignment, keyed
// <sample>_lane_<lane>, and buckets the rows by the first matching category.
// Samples matching nothing, including samples with no project metadata at
// all, fall to other_samples. Every row also lands in all_samples. The
// category buckets and all_samples are always present in the result, even
// when empty; other_samples appears only when a sample fell to it.
func Split(samples lims.Samples, indexes map[string]barcode.Index, categories []Category) (Buckets, error) {
	if samples == nil {
		return nil, ErrNoSamples
	}

	buckets := Buckets{AllSamples: samplesheet.Data{}}

	for _, category := range categories {
		buckets[strings.ToLower(category.Name)] = samplesheet.Data{}
	}

	for _, sample := range samples {
		rows := sampleRows(sample, indexes)
		bucket := categorize(sample, categories)

		for key, row := range rows {
			buckets[AllSamples][key] = row

			if _, exists := buckets[bucket]; !exists {
				buckets[bucket] = samplesheet.Data{}
			}

			buckets[bucket][key] = row
		}
	}

	return buckets, nil
}

func categorize(sample lims.Sample, categories []Category) string {
	for _, category := range categories {
		if category.matches(sample) {
			return strings.ToLower(category.Name)
		}
	}

	return OtherSamples
}

// sampleRows builds the per-lane data rows for one sample. A sample whose
// barcode never normalized still gets rows, just without index columns.
func sampleRows(sample lims.Sample, indexes map[string]barcode.Index) samplesheet.Data {
	rows := make(samplesheet.Data, len(sample.Lanes))

	for _, lane := range sample.Lanes {
		row := samplesheet.Row{
			laneColumn:     lane,
			sampleIDColumn: sample.Name,
		}

		if index, ok := indexes[sample.Name]; ok {
			for column, value := range index.Columns() {
				row[column] = value
			}
		}

		rows[sample.Name+laneKeyInfix+lane] = row
	}

	return rows
}
