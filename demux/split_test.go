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
	"testing"

	"github.com/FrancisCrickInstitute/asf-tools/barcode"
	"github.com/FrancisCrickInstitute/asf-tools/lims"
	"github.com/FrancisCrickInstitute/asf-tools/samplesheet"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSplit(t *testing.T) {
	samples := lims.Samples{
		{Name: "sample1", ProjectType: "10X-3prime", Lanes: []string{"1"}},
		{Name: "sample2", ProjectType: "10X-ATAC", Lanes: []string{"1"}},
		{Name: "sample3", ProjectType: "RNA-Seq", DataAnalysisType: "None", Lanes: []string{"1", "2"}},
		{Name: "chip1", ProjectType: "Whole Genome", DataAnalysisType: "DLP-Seq", Lanes: []string{"2"}},
	}

	indexes := map[string]barcode.Index{
		"sample1": {Segments: []string{"AGCTAGCTAG", "TTGGAACCGG"}},
		"sample3": {Segments: []string{"ATTACTCG", "TATAGCCT"}},
	}

	Convey("You can split samples in to per-category buckets of lane rows", t, func() {
		buckets, err := Split(samples, indexes, DefaultCategories())
		So(err, ShouldBeNil)

		So(buckets.Rows("singlecell"), ShouldResemble, samplesheet.Data{
			"sample1_lane_1": {
				"Lane":      "1",
				"Sample_ID": "sample1",
				"index":     "AGCTAGCTAG",
				"index2":    "TTGGAACCGG",
			},
		})

		So(buckets.SampleNames("atac"), ShouldResemble, []string{"sample2"})
		So(buckets.SampleNames("dlp"), ShouldResemble, []string{"chip1"})
		So(buckets.SampleNames(OtherSamples), ShouldResemble, []string{"sample3"})
		So(buckets.SampleNames(AllSamples), ShouldResemble,
			[]string{"chip1", "sample1", "sample2", "sample3"})

		Convey("Samples fan out to one row per lane", func() {
			rows := buckets.Rows(OtherSamples)
			So(len(rows), ShouldEqual, 2)
			So(rows["sample3_lane_2"], ShouldResemble, samplesheet.Row{
				"Lane":      "2",
				"Sample_ID": "sample3",
				"index":     "ATTACTCG",
				"index2":    "TATAGCCT",
			})
		})

		Convey("Samples without a normalized barcode still get rows", func() {
			So(buckets.Rows("atac"), ShouldResemble, samplesheet.Data{
				"sample2_lane_1": {"Lane": "1", "Sample_ID": "sample2"},
			})
		})
	})

	Convey("Category buckets are always present, other_samples only when needed", t, func() {
		special := samples[:2]

		buckets, err := Split(special, indexes, DefaultCategories())
		So(err, ShouldBeNil)

		So(buckets.Rows("dlp"), ShouldNotBeNil)
		So(buckets.Rows("dlp"), ShouldBeEmpty)

		_, exists := buckets[OtherSamples]
		So(exists, ShouldBeFalse)
	})

	Convey("Samples with no project metadata fall to other_samples", t, func() {
		buckets, err := Split(lims.Samples{{Name: "mystery", Lanes: []string{"1"}}}, nil,
			DefaultCategories())
		So(err, ShouldBeNil)
		So(buckets.SampleNames(OtherSamples), ShouldResemble, []string{"mystery"})
	})

	Convey("Bucket names are lowercased", t, func() {
		categories := []Category{{Name: "MyWorkflow", Keywords: []string{"RNA-Seq"}}}

		buckets, err := Split(samples, indexes, categories)
		So(err, ShouldBeNil)
		So(buckets.SampleNames("myworkflow"), ShouldResemble, []string{"sample3"})
	})

	Convey("Splitting nil samples fails", t, func() {
		_, err := Split(nil, indexes, DefaultCategories())
		So(err, ShouldEqual, ErrNoSamples)
	})
}
