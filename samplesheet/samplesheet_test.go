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

package samplesheet

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const testPerm = 0600

func testSheet() *Sheet {
	return &Sheet{
		Header: Section{
			"IEMFileVersion": "4",
			"Date":           "2024-09-12",
			"Workflow":       "GenerateFASTQ",
		},
		Reads: Section{
			"Read1Cycles": "151",
			"Adapter":     "AGATCGGAAGAGCACACGTCTGAACTCCAGTCA",
		},
		Settings: Section{
			"SoftwareVersion": "x.y.z",
			"AdapterBehavior": "trim",
		},
		Data: Data{
			"sample1": Row{"Sample_ID": "sample1", "index2": "B001", "index": "A001"},
			"sample2": Row{"Sample_ID": "sample2", "index": "A002", "index2": "B002"},
		},
	}
}

func TestSheet(t *testing.T) {
	Convey("Given a sheet with all four sections", t, func() {
		sheet := testSheet()

		Convey("Render emits them in fixed order with sorted keys", func() {
			So(string(sheet.Render()), ShouldEqual, `[Header],,,
Date,2024-09-12,,
IEMFileVersion,4,,
Workflow,GenerateFASTQ,,
[Reads],,,
Adapter,AGATCGGAAGAGCACACGTCTGAACTCCAGTCA,,
Read1Cycles,151,,
[BCLConvert_Settings],,,
AdapterBehavior,trim,,
SoftwareVersion,x.y.z,,
[BCLConvert_Data],,,
Sample_ID,index,index2
sample1,A001,B001
sample2,A002,B002
`)
		})

		Convey("Write creates the file and is byte-identical on rewrite", func() {
			path := filepath.Join(t.TempDir(), "test_samplesheet.csv")

			err := sheet.Write(path)
			So(err, ShouldBeNil)

			first, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(first), ShouldEqual, string(sheet.Render()))

			err = testSheet().Write(path)
			So(err, ShouldBeNil)

			second, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(second), ShouldResemble, string(first))
		})
	})

	Convey("Empty sections are left out entirely", t, func() {
		sheet := &Sheet{
			Header: Section{
				"IEMFileVersion": "4",
			},
			Reads: Section{
				"Read1Cycles": "151",
			},
		}

		rendered := string(sheet.Render())
		So(rendered, ShouldEqual, `[Header],,,
IEMFileVersion,4,,
[Reads],,,
Read1Cycles,151,,
`)
		So(rendered, ShouldNotContainSubstring, "[BCLConvert_Settings]")
		So(rendered, ShouldNotContainSubstring, "[BCLConvert_Data]")
	})

	Convey("Rows missing a column get an empty cell under the shared header", t, func() {
		sheet := &Sheet{
			Data: Data{
				"a": Row{"Sample_ID": "a", "index": "AAAA", "index2": "CCCC"},
				"b": Row{"Sample_ID": "b", "index": "GGGG"},
			},
		}

		So(string(sheet.Render()), ShouldEqual, `[BCLConvert_Data],,,
Sample_ID,index,index2
a,AAAA,CCCC
b,GGGG,
`)
	})
}

func TestCountSamples(t *testing.T) {
	Convey("CountSamples counts rows after the data header line", t, func() {
		dir := t.TempDir()

		path := filepath.Join(dir, "test_bcl_samplesheet.csv")
		err := os.WriteFile(path, []byte(
			"[Header],,\n"+
				"[FileFormatVersion],2,\n"+
				"[BCLConvert_Data],,\n"+
				"Lane,Sample_ID,index,index2\n"+
				"1,WAR6617A1,CGAATTGC,GTAAGGTG\n"+
				"2,WAR6617A1,CGAATTGC,GTAAGGTG\n"), testPerm)
		So(err, ShouldBeNil)

		count, found, err := CountSamples(path, "Sample_ID")
		So(err, ShouldBeNil)
		So(found, ShouldBeTrue)
		So(count, ShouldEqual, 2)

		Convey("Wherever the header line sits in the file", func() {
			path2 := filepath.Join(dir, "test_bcl_samplesheet_2.csv")
			err := os.WriteFile(path2, []byte(
				"[Header],,\n"+
					"Lane,Sample_ID,index,index2\n"+
					"1,WAR6617A1,CGAATTGC,GTAAGGTG\n"+
					"2,WAR6617A1,CGAATTGC,GTAAGGTG\n"+
					"2,WAR6617A1,CGAATTGC,GTAAGGTG\n"), testPerm)
			So(err, ShouldBeNil)

			count, found, err := CountSamples(path2, "Sample_ID")
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(count, ShouldEqual, 3)
		})

		Convey("A sheet without the column reports not found", func() {
			path3 := filepath.Join(dir, "test_bcl_samplesheet_3.csv")
			err := os.WriteFile(path3, []byte(
				"[Header],,\n"+
					"[FileFormatVersion],2,\n"), testPerm)
			So(err, ShouldBeNil)

			count, found, err := CountSamples(path3, "Sample_ID")
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
			So(count, ShouldEqual, 0)
		})

		Convey("The column must match a whole field, not a substring", func() {
			count, found, err := CountSamples(path, "Sample")
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
			So(count, ShouldEqual, 0)
		})

		Convey("An empty column name is an error", func() {
			_, _, err := CountSamples(path, "")
			So(err, ShouldEqual, ErrEmptyColumn)
		})

		Convey("A missing file is an error", func() {
			_, _, err := CountSamples(filepath.Join(dir, "missing.csv"), "Sample_ID")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestBCLConfig(t *testing.T) {
	Convey("NewBCLConfig seeds the standard header and settings", t, func() {
		config, err := NewBCLConfig("NovaseqX", "Flowcell123", nil, nil)
		So(err, ShouldBeNil)
		So(config.Header, ShouldResemble, map[string]any{
			"FileFormatVersion":  2,
			"InstrumentPlatform": "NovaseqX",
			"RunName":            "Flowcell123",
		})
		So(config.Settings, ShouldResemble, map[string]any{
			"SoftwareVersion":        "4.2.7",
			"FastqCompressionFormat": "gzip",
		})

		Convey("Extra values merge over the seeds", func() {
			config, err := NewBCLConfig("NovaseqX", "Flowcell123",
				map[string]any{"FileFormatVersion": 3, "ExtraHeaderField": "TestHeaderValue"},
				map[string]any{"SoftwareVersion": "4.3.0", "ExtraBCLConvertField": "TestBCLValue"})
			So(err, ShouldBeNil)
			So(config.Header, ShouldResemble, map[string]any{
				"FileFormatVersion":  3,
				"InstrumentPlatform": "NovaseqX",
				"RunName":            "Flowcell123",
				"ExtraHeaderField":   "TestHeaderValue",
			})
			So(config.Settings, ShouldResemble, map[string]any{
				"SoftwareVersion":        "4.3.0",
				"FastqCompressionFormat": "gzip",
				"ExtraBCLConvertField":   "TestBCLValue",
			})
		})

		Convey("Platform and run name are required", func() {
			_, err := NewBCLConfig("", "Flowcell123", nil, nil)
			So(err, ShouldEqual, ErrNoPlatform)

			_, err = NewBCLConfig("NovaseqX", "", nil, nil)
			So(err, ShouldEqual, ErrNoRunName)
		})
	})

	Convey("Save writes the exact two-key JSON shape", t, func() {
		config, err := NewBCLConfig("NovaseqX", "Flowcell123", nil, nil)
		So(err, ShouldBeNil)

		path := filepath.Join(t.TempDir(), "bcl_config_Flowcell123.json")
		So(config.Save(path), ShouldBeNil)

		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, `{
    "Header": {
        "FileFormatVersion": 2,
        "InstrumentPlatform": "NovaseqX",
        "RunName": "Flowcell123"
    },
    "BCLConvert_Settings": {
        "FastqCompressionFormat": "gzip",
        "SoftwareVersion": "4.2.7"
    }
}
`)

		Convey("And LoadBCLConfig reads it back", func() {
			loaded, err := LoadBCLConfig(path)
			So(err, ShouldBeNil)
			So(loaded.Header["InstrumentPlatform"], ShouldEqual, "NovaseqX")
			So(loaded.Settings["SoftwareVersion"], ShouldEqual, "4.2.7")

			Convey("With numbers rendering without a decimal point", func() {
				So(loaded.HeaderSection(), ShouldResemble, Section{
					"FileFormatVersion":  "2",
					"InstrumentPlatform": "NovaseqX",
					"RunName":            "Flowcell123",
				})
				So(loaded.SettingsSection(), ShouldResemble, Section{
					"SoftwareVersion":        "4.2.7",
					"FastqCompressionFormat": "gzip",
				})
			})
		})
	})

	Convey("LoadBCLConfig surfaces missing or malformed files", t, func() {
		dir := t.TempDir()

		_, err := LoadBCLConfig(filepath.Join(dir, "missing.json"))
		So(err, ShouldNotBeNil)

		bad := filepath.Join(dir, "bad.json")
		So(os.WriteFile(bad, []byte("not json"), testPerm), ShouldBeNil)

		_, err = LoadBCLConfig(bad)
		So(err, ShouldNotBeNil)
	})
}
