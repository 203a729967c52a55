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

package sheets

import (
	"errors"
	"testing"

	"github.com/FrancisCrickInstitute/asf-tools/lims"
	. "github.com/smartystreets/goconvey/convey"
)

type mockReader struct {
	sheets map[string]*Sheet
	err    error
}

func (m *mockReader) Read(docID, sheetName string) (*Sheet, error) {
	if m.err != nil {
		return nil, m.err
	}

	return m.sheets[sheetName], nil
}

func testManifestSheets() map[string]*Sheet {
	return map[string]*Sheet{
		"samples": {
			ColumnHeaders: []string{
				"flowcell", "sample_name", "group", "user", "project_id",
				"project_limsid", "project_type", "reference_genome",
				"data_analysis_type", "barcode", "lanes", "exclude",
			},
			Rows: [][]string{
				{"22MKK5LT3", "sample1", "lab1", "user1", "PM12345",
					"LIM123", "RNA-Seq", "GRCh38", "None",
					"ATTACTCG-TATAGCCT", "1,2", ""},
				{"22MKK5LT3", "sample2", "lab1", "user1", "PM12345",
					"LIM123", "10X-3prime", "GRCh38", "None",
					"SI-TT-A1 (AGCTAGCTAG-TTGGAACCGG)", "3", "false"},
				{"HVMYYDRXX", "sample3", "lab2", "user2", "PM99",
					"LIM99", "WGS", "GRCm39", "None",
					"CCGCGGTT-CTAGCGCT", "1", ""},
				{"22MKK5LT3", "failed1", "lab1", "user1", "PM12345",
					"LIM123", "RNA-Seq", "GRCh38", "None",
					"GGGGGGGG-CCCCCCCC", "1", "true"},
			},
		},
		"ont_runs": {
			ColumnHeaders: []string{
				"run_name", "sample_name", "group", "user", "project_id",
				"barcode", "exclude",
			},
			Rows: [][]string{
				{"run01", "ont_sample1", "lab1", "user1", "PM12345", "BC01", ""},
				{"run01", "ont_sample2", "lab1", "user1", "PM12345", "BC02", ""},
				{"run02", "ont_sample3", "lab2", "user2", "PM99", "", ""},
			},
		},
	}
}

func TestManifest(t *testing.T) {
	Convey("Given a manifest spreadsheet", t, func() {
		manifest := &Manifest{
			sheets:  &mockReader{sheets: testManifestSheets()},
			sheetID: "sheetid",
		}

		Convey("You can get all its samples, skipping excluded rows", func() {
			samples, err := manifest.Samples()
			So(err, ShouldBeNil)
			So(samples.Names(), ShouldResemble, []string{"sample1", "sample2", "sample3"})
			So(samples[0], ShouldResemble, lims.Sample{
				Name:             "sample1",
				Group:            "lab1",
				User:             "user1",
				ProjectID:        "PM12345",
				ProjectLIMSID:    "LIM123",
				ProjectType:      "RNA-Seq",
				ReferenceGenome:  "GRCh38",
				DataAnalysisType: "None",
				Barcode:          "ATTACTCG-TATAGCCT",
				Lanes:            []string{"1", "2"},
			})
		})

		Convey("You can get the samples for one flowcell", func() {
			samples, err := manifest.SamplesForFlowcell("22MKK5LT3")
			So(err, ShouldBeNil)
			So(samples.Names(), ShouldResemble, []string{"sample1", "sample2"})

			samples, err = manifest.SamplesForFlowcell("none-such")
			So(err, ShouldBeNil)
			So(samples, ShouldBeEmpty)
		})

		Convey("You can get the samples for one nanopore run", func() {
			samples, err := manifest.SamplesForONTRun("run01")
			So(err, ShouldBeNil)
			So(samples.Names(), ShouldResemble, []string{"ont_sample1", "ont_sample2"})
			So(samples[0].Barcode, ShouldEqual, "BC01")
			So(samples[0].Lanes, ShouldBeNil)
		})

		Convey("Non-numeric lanes are an error", func() {
			sheets := testManifestSheets()
			sheets["samples"].Rows[0][10] = "1,x"
			manifest.sheets = &mockReader{sheets: sheets}

			_, err := manifest.Samples()
			So(err, ShouldNotBeNil)
		})

		Convey("A missing column is an error", func() {
			sheets := testManifestSheets()
			sheets["samples"].ColumnHeaders[0] = "run"
			manifest.sheets = &mockReader{sheets: sheets}

			_, err := manifest.Samples()
			So(errors.Is(err, ErrMissingColumn), ShouldBeTrue)
		})

		Convey("An empty or missing worksheet is an error", func() {
			manifest.sheets = &mockReader{sheets: map[string]*Sheet{}}

			_, err := manifest.Samples()
			So(err, ShouldEqual, ErrNoData)

			_, err = manifest.SamplesForONTRun("run01")
			So(err, ShouldEqual, ErrNoData)
		})

		Convey("Read errors propagate", func() {
			readErr := Error("boom")
			manifest.sheets = &mockReader{err: readErr}

			_, err := manifest.Samples()
			So(err, ShouldEqual, readErr)
		})
	})
}
