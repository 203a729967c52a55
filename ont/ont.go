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

// package ont prepares demultiplexing run folders for completed Oxford
// Nanopore sequencing runs: an sbatch script that launches the nanopore
// demux pipeline, and the samplesheet it consumes.

package ont

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FrancisCrickInstitute/asf-tools/lims"
	"github.com/FrancisCrickInstitute/asf-tools/runfolder"
	"github.com/inconshreveable/log15"
)

// Module versions loaded by the generated run scripts.
const (
	NextflowVersion    = "23.10.0"
	SingularityVersion = "3.6.4"
)

const (
	scriptName        = "run_script.sh"
	samplesheetName   = "samplesheet.csv"
	samplesheetHeader = "id,sample_name,group,user,project_id,barcode"
	defaultRow        = "sample_01,sample_01,asf,no_name,no_proj,unclassified"
	defaultBarcode    = "unclassified"

	// JobNamePrefix plus the run name gives the sbatch job name, which is
	// what the run-state scanner looks up in the queue.
	JobNamePrefix = "asf_nanopore_demux_"

	// The pipeline runs sbatch as the service user but the lab needs to be
	// able to edit what it wrote, hence the deliberately wide permissions.
	scriptPerm      = 0777
	samplesheetPerm = 0666
	dirPerm         = 0755
)

// MetadataSource supplies the sample metadata for an ONT run. metadata.Client
// satisfies this.
type MetadataSource interface {
	SamplesForONTRun(runID string) (lims.Samples, error)
}

// GeneratorOptions configure where a Generator looks for runs and what it
// writes into the run folders it creates.
type GeneratorOptions struct {
	// SourceDir holds the raw run folders written by the sequencers.
	SourceDir string

	// TargetDir is where demux run folders are created.
	TargetDir string

	// PipelineDir is the nextflow pipeline passed to nextflow run.
	PipelineDir string

	// RunsDir is the raw run folder base path as the pipeline will see it,
	// which differs from SourceDir when the pipeline runs in a container.
	RunsDir string

	// NextflowCache becomes NXF_HOME; empty omits the export.
	NextflowCache string

	// NextflowWork becomes NXF_WORK.
	NextflowWork string

	// ContainerCache becomes NXF_SINGULARITY_CACHEDIR.
	ContainerCache string

	// Contains restricts processing to run names containing this substring.
	Contains string

	// SamplesheetOnly rewrites the samplesheets of the run folders already
	// in TargetDir instead of creating new folders.
	SamplesheetOnly bool
}

// Generator creates a demux run folder for each completed sequencing run
// that doesn't have one yet.
type Generator struct {
	opts   GeneratorOptions
	source MetadataSource
	logger log15.Logger
}

// NewGenerator returns a Generator. A nil source means samplesheets get a
// single default row for the pipeline's unclassified output; a nil logger
// discards log output.
func NewGenerator(source MetadataSource, logger log15.Logger, opts GeneratorOptions) *Generator {
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}

	return &Generator{
		opts:   opts,
		source: source,
		logger: logger,
	}
}

// Run scans the source directory and writes a run folder for every
// completed run missing from the target directory, returning the names of
// the runs it processed.
func (g *Generator) Run() ([]string, error) {
	todo, err := g.runsToProcess()
	if err != nil {
		return nil, err
	}

	for _, runName := range todo {
		if err := g.processRun(runName); err != nil {
			return nil, err
		}
	}

	return todo, nil
}

func (g *Generator) runsToProcess() ([]string, error) {
	targetRuns, err := runfolder.ListRunDirs(g.opts.TargetDir)
	if err != nil {
		return nil, err
	}

	var todo []string

	if g.opts.SamplesheetOnly {
		todo = targetRuns

		g.logger.Info("found existing run folders", "count", len(todo))
	} else {
		completed, err := g.completedSourceRuns()
		if err != nil {
			return nil, err
		}

		todo = difference(completed, targetRuns)

		g.logger.Info("found new run folders", "count", len(todo))
	}

	if g.opts.Contains != "" {
		todo = filterContains(todo, g.opts.Contains)

		g.logger.Info("filtered run folders", "contains", g.opts.Contains, "count", len(todo))
	}

	return todo, nil
}

func (g *Generator) completedSourceRuns() ([]string, error) {
	sourceRuns, err := runfolder.ListRunDirs(g.opts.SourceDir)
	if err != nil {
		return nil, err
	}

	completed := make([]string, 0, len(sourceRuns))

	for _, runName := range sourceRuns {
		if !runfolder.OntSequencingComplete(filepath.Join(g.opts.SourceDir, runName)) {
			g.logger.Debug("skipping run still sequencing", "run", runName)

			continue
		}

		completed = append(completed, runName)
	}

	g.logger.Info("found completed runs", "count", len(completed))

	return completed, nil
}

// difference returns the elements of a that are not in b, preserving a's
// order.
func difference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, name := range b {
		inB[name] = true
	}

	diff := make([]string, 0, len(a))

	for _, name := range a {
		if !inB[name] {
			diff = append(diff, name)
		}
	}

	return diff
}

func filterContains(names []string, substring string) []string {
	filtered := make([]string, 0, len(names))

	for _, name := range names {
		if strings.Contains(name, substring) {
			filtered = append(filtered, name)
		}
	}

	return filtered
}

func (g *Generator) processRun(runName string) error {
	g.logger.Info("processing run", "run", runName)

	runDir := filepath.Join(g.opts.TargetDir, runName)

	if !g.opts.SamplesheetOnly {
		if err := os.MkdirAll(runDir, dirPerm); err != nil {
			return err
		}

		if err := g.writeRunScript(runDir, runName); err != nil {
			return err
		}
	}

	return g.writeSamplesheet(runDir, runName)
}

func (g *Generator) writeRunScript(runDir, runName string) error {
	return writeWorldWritable(filepath.Join(runDir, scriptName), g.runScript(runName), scriptPerm)
}

// runScript builds the sbatch script that launches the demux pipeline for a
// run.
func (g *Generator) runScript(runName string) string {
	lines := []string{
		"#!/bin/sh",
		"",
		"#SBATCH --partition=ncpu",
		"#SBATCH --job-name=" + JobNamePrefix + runName,
		"#SBATCH --mem=4G",
		"#SBATCH -n 1",
		"#SBATCH --time=168:00:00",
		"#SBATCH --output=run.o",
		"#SBATCH --error=run.o",
		"#SBATCH --res=asf",
		"",
		"ml purge",
		"ml Nextflow/" + NextflowVersion,
		"ml Singularity/" + SingularityVersion,
		"",
	}

	if g.opts.NextflowCache != "" {
		lines = append(lines, fmt.Sprintf("export NXF_HOME=%q", g.opts.NextflowCache))
	}

	lines = append(lines,
		fmt.Sprintf("export NXF_WORK=%q", g.opts.NextflowWork),
		fmt.Sprintf("export NXF_SINGULARITY_CACHEDIR=%q", g.opts.ContainerCache),
		"",
		"nextflow run "+g.opts.PipelineDir+" \\",
		"  -resume \\",
		"  -profile crick,nemo \\",
		"  --monochrome_logs \\",
		"  --samplesheet ./samplesheet.csv \\",
		"  --run_dir "+filepath.Join(g.opts.RunsDir, runName)+" \\",
		"  --dorado_bc_parse_pos 2",
	)

	return strings.Join(lines, "\n") + "\n"
}

func (g *Generator) writeSamplesheet(runDir, runName string) error {
	rows, err := g.samplesheetRows(runName)
	if err != nil {
		return err
	}

	lines := append([]string{samplesheetHeader}, rows...)

	return writeWorldWritable(filepath.Join(runDir, samplesheetName),
		strings.Join(lines, "\n")+"\n", samplesheetPerm)
}

// samplesheetRows asks the metadata source for the run's samples and falls
// back to the default row without one, or when it knows of no samples, so
// the pipeline still demultiplexes everything in to unclassified.
func (g *Generator) samplesheetRows(runName string) ([]string, error) {
	if g.source == nil {
		return []string{defaultRow}, nil
	}

	samples, err := g.source.SamplesForONTRun(runName)
	if err != nil {
		return nil, err
	}

	if len(samples) == 0 {
		g.logger.Warn("no sample metadata for run, using default samplesheet", "run", runName)

		return []string{defaultRow}, nil
	}

	rows := make([]string, 0, len(samples))

	for _, sample := range samples {
		barcode := sample.Barcode
		if barcode == "" {
			barcode = defaultBarcode
		}

		rows = append(rows, strings.Join([]string{
			sample.Name, sample.Name, sample.Group, sample.User, sample.ProjectID, barcode,
		}, ","))
	}

	return rows, nil
}

// writeWorldWritable writes the file then chmods it, since the mode given
// to WriteFile is masked by the umask.
func writeWorldWritable(path, content string, perm os.FileMode) error {
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return err
	}

	return os.Chmod(path, perm)
}
