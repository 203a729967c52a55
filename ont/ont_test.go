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

package ont

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/FrancisCrickInstitute/asf-tools/lims"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	testPerm    = 0600
	testDirPerm = 0755

	newRun        = "20240711_1205_1H_PAW12345_f81b23a5"
	sequencingRun = "20240712_0930_1A_PAW54321_0d1c2b3a"
	oldRun        = "20240601_1400_2B_PAW00001_aaaa0000"
)

type mockSource struct {
	samples lims.Samples
	err     error
	queried []string
}

func (m *mockSource) SamplesForONTRun(runID string) (lims.Samples, error) {
	m.queried = append(m.queried, runID)

	return m.samples, m.err
}

func TestGenerator(t *testing.T) {
	Convey("Given source and target run directories", t, func() {
		sourceDir := t.TempDir()
		targetDir := t.TempDir()

		makeRun(t, sourceDir, newRun, true)
		makeRun(t, sourceDir, sequencingRun, false)
		makeRun(t, sourceDir, oldRun, true)
		makeRun(t, targetDir, oldRun, false)

		opts := GeneratorOptions{
			SourceDir:      sourceDir,
			TargetDir:      targetDir,
			PipelineDir:    "/pipelines/nanopore_demux",
			RunsDir:        "/camp/runs",
			NextflowCache:  "/cache/nxf",
			NextflowWork:   "/work/nxf",
			ContainerCache: "/cache/singularity",
		}

		Convey("Run processes completed runs not yet in the target directory", func() {
			g := NewGenerator(nil, nil, opts)

			processed, err := g.Run()
			So(err, ShouldBeNil)
			So(processed, ShouldResemble, []string{newRun})

			runDir := filepath.Join(targetDir, newRun)

			Convey("writing an executable sbatch script", func() {
				path := filepath.Join(runDir, "run_script.sh")
				script := readRunFile(t, path)

				So(script, ShouldStartWith, "#!/bin/sh\n")
				So(script, ShouldContainSubstring, "#SBATCH --partition=ncpu\n")
				So(script, ShouldContainSubstring,
					"#SBATCH --job-name=asf_nanopore_demux_"+newRun+"\n")
				So(script, ShouldContainSubstring, "#SBATCH --time=168:00:00\n")
				So(script, ShouldContainSubstring,
					"ml purge\nml Nextflow/23.10.0\nml Singularity/3.6.4\n")
				So(script, ShouldContainSubstring, `export NXF_HOME="/cache/nxf"`)
				So(script, ShouldContainSubstring, `export NXF_WORK="/work/nxf"`)
				So(script, ShouldContainSubstring,
					`export NXF_SINGULARITY_CACHEDIR="/cache/singularity"`)
				So(script, ShouldContainSubstring,
					"nextflow run /pipelines/nanopore_demux \\\n")
				So(script, ShouldContainSubstring, "-profile crick,nemo \\\n")
				So(script, ShouldContainSubstring,
					"--samplesheet ./samplesheet.csv \\\n")
				So(script, ShouldContainSubstring,
					"--run_dir /camp/runs/"+newRun+" \\\n")
				So(script, ShouldEndWith, "--dorado_bc_parse_pos 2\n")

				info, err := os.Stat(path)
				So(err, ShouldBeNil)
				So(info.Mode().Perm(), ShouldEqual, os.FileMode(0777))
			})

			Convey("and a default samplesheet readable by the lab", func() {
				path := filepath.Join(runDir, "samplesheet.csv")

				So(readRunFile(t, path), ShouldEqual,
					"id,sample_name,group,user,project_id,barcode\n"+
						"sample_01,sample_01,asf,no_name,no_proj,unclassified\n")

				info, err := os.Stat(path)
				So(err, ShouldBeNil)
				So(info.Mode().Perm(), ShouldEqual, os.FileMode(0666))
			})
		})

		Convey("A metadata source fills the samplesheet", func() {
			source := &mockSource{samples: lims.Samples{
				{Name: "sample_a", Group: "swantonc", User: "bob.jones",
					ProjectID: "DN24085", Barcode: "BC01"},
				{Name: "sample_b", Group: "swantonc", User: "bob.jones",
					ProjectID: "DN24085"},
			}}

			g := NewGenerator(source, nil, opts)

			_, err := g.Run()
			So(err, ShouldBeNil)
			So(source.queried, ShouldResemble, []string{newRun})

			sheet := readRunFile(t, filepath.Join(targetDir, newRun, "samplesheet.csv"))
			So(sheet, ShouldEqual,
				"id,sample_name,group,user,project_id,barcode\n"+
					"sample_a,sample_a,swantonc,bob.jones,DN24085,BC01\n"+
					"sample_b,sample_b,swantonc,bob.jones,DN24085,unclassified\n")
		})

		Convey("A run unknown to the metadata source gets the default sheet", func() {
			g := NewGenerator(&mockSource{}, nil, opts)

			_, err := g.Run()
			So(err, ShouldBeNil)

			sheet := readRunFile(t, filepath.Join(targetDir, newRun, "samplesheet.csv"))
			So(sheet, ShouldEqual,
				"id,sample_name,group,user,project_id,barcode\n"+
					"sample_01,sample_01,asf,no_name,no_proj,unclassified\n")
		})

		Convey("Metadata source errors propagate", func() {
			sourceErr := errors.New("lims down")
			g := NewGenerator(&mockSource{err: sourceErr}, nil, opts)

			_, err := g.Run()
			So(err, ShouldEqual, sourceErr)
		})

		Convey("The contains filter restricts which runs are processed", func() {
			opts.Contains = "PAW12345"

			processed, err := NewGenerator(nil, nil, opts).Run()
			So(err, ShouldBeNil)
			So(processed, ShouldResemble, []string{newRun})

			opts.Contains = "PAW54321"

			processed, err = NewGenerator(nil, nil, opts).Run()
			So(err, ShouldBeNil)
			So(processed, ShouldBeEmpty)
		})

		Convey("Samplesheet-only mode rewrites existing target folders", func() {
			opts.SamplesheetOnly = true

			processed, err := NewGenerator(nil, nil, opts).Run()
			So(err, ShouldBeNil)
			So(processed, ShouldResemble, []string{oldRun})

			runDir := filepath.Join(targetDir, oldRun)
			So(readRunFile(t, filepath.Join(runDir, "samplesheet.csv")),
				ShouldContainSubstring, "sample_01")

			_, err = os.Stat(filepath.Join(runDir, "run_script.sh"))
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("Without a nextflow cache the NXF_HOME export is omitted", func() {
			opts.NextflowCache = ""

			_, err := NewGenerator(nil, nil, opts).Run()
			So(err, ShouldBeNil)

			script := readRunFile(t, filepath.Join(targetDir, newRun, "run_script.sh"))
			So(script, ShouldNotContainSubstring, "NXF_HOME")
			So(script, ShouldContainSubstring, `export NXF_WORK="/work/nxf"`)
		})

		Convey("A missing source directory is an error", func() {
			opts.SourceDir = filepath.Join(sourceDir, "nowhere")

			_, err := NewGenerator(nil, nil, opts).Run()
			So(err, ShouldNotBeNil)
		})
	})
}

func makeRun(t *testing.T, parent, name string, complete bool) {
	t.Helper()

	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, testDirPerm); err != nil {
		t.Fatal(err)
	}

	if !complete {
		return
	}

	summary := filepath.Join(dir, "sequencing_summary_"+name+".txt")
	if err := os.WriteFile(summary, nil, testPerm); err != nil {
		t.Fatal(err)
	}
}

func readRunFile(t *testing.T, path string) string {
	t.Helper()

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	return string(contents)
}
