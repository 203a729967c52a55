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

// package runfolder inspects sequencer output and pipeline run directories
// to determine how far each run has progressed.

package runfolder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/FrancisCrickInstitute/asf-tools/slurm"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrUnknownMode = Error("unknown sequencing mode")

	sequencingSummaryPrefix = "sequencing_summary"
	rtaCompleteFile         = "RTAComplete.txt"
	runStatusFile           = "RunCompletionStatus.xml"
	copyCompleteFile        = "CopyComplete.txt"
	runCompletedMarker      = "RunCompleted"
	pipelineCompletePath    = "results/pipeline_info/workflow_complete.txt"
)

// Mode selects which platform's completion markers a run directory is
// checked for.
type Mode string

const (
	ModeONT      Mode = "ont"
	ModeIllumina Mode = "illumina"
)

// Status describes how far a sequencing run has progressed, from the
// sequencer still writing data through to the demultiplexing pipeline
// having finished.
type Status string

const (
	StatusSequencingInProgress Status = "sequencing_in_progress"
	StatusSequencingComplete   Status = "sequencing_complete"
	StatusPipelinePending      Status = "pipeline_pending"
	StatusPipelineQueued       Status = "pipeline_queued"
	StatusPipelineRunning      Status = "pipeline_running"
	StatusPipelineComplete     Status = "pipeline_complete"
)

// JobChecker reports the scheduler state of a named job. slurm.Client and
// slurm.FileQueue both satisfy this.
type JobChecker interface {
	JobStatus(jobName string) (slurm.Status, error)
}

// ScanOptions control the queue lookups made by ScanRunState for runs whose
// pipeline hasn't finished.
type ScanOptions struct {
	// JobChecker resolves pipeline job states; nil means runs without a
	// completion marker are simply reported pending.
	JobChecker JobChecker

	// JobNamePrefix is prepended to a run name to form its scheduler job
	// name.
	JobNamePrefix string
}

// ListRunDirs returns the sorted names of the directories directly inside
// path. Symlinks that resolve to directories count; the sequencers mount
// their output that way.
func ListRunDirs(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() && !symlinkToDir(filepath.Join(path, entry.Name())) {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}

// symlinkToDir follows path and reports if it ends at a directory.
func symlinkToDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

// OntSequencingComplete reports if an ONT run directory contains a
// sequencing summary file, which the sequencer only writes once it has
// finished.
func OntSequencingComplete(runDir string) bool {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return false
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), sequencingSummaryPrefix) {
			return true
		}
	}

	return false
}

// IlluminaSequencingComplete reports if an Illumina run directory has
// finished sequencing and transferring: RTAComplete.txt,
// RunCompletionStatus.xml and CopyComplete.txt must all exist and the
// status file must record a RunCompleted outcome.
func IlluminaSequencingComplete(runDir string) bool {
	for _, name := range []string{rtaCompleteFile, runStatusFile, copyCompleteFile} {
		if !fileExists(filepath.Join(runDir, name)) {
			return false
		}
	}

	contents, err := os.ReadFile(filepath.Join(runDir, runStatusFile))
	if err != nil {
		return false
	}

	return strings.Contains(string(contents), runCompletedMarker)
}

// PipelineComplete reports if a pipeline run directory contains the
// workflow completion marker the demultiplexing pipeline writes as its
// final step.
func PipelineComplete(runDir string) bool {
	return fileExists(filepath.Join(runDir, filepath.FromSlash(pipelineCompletePath)))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

// ScanRunState walks the raw sequencing directory and the pipeline run
// directory and returns the Status of every run found in either. A run
// present in both directories gets its pipeline status, since that
// supersedes sequencing. Hidden directories in the raw directory are
// ignored.
func ScanRunState(rawDir, runDir string, mode Mode, opts ScanOptions) (map[string]Status, error) {
	states, err := sequencingStates(rawDir, mode)
	if err != nil {
		return nil, err
	}

	pipelineRuns, err := ListRunDirs(runDir)
	if err != nil {
		return nil, err
	}

	for _, name := range pipelineRuns {
		status, err := pipelineStatus(filepath.Join(runDir, name), name, opts)
		if err != nil {
			return nil, err
		}

		states[name] = status
	}

	return states, nil
}

func sequencingStates(rawDir string, mode Mode) (map[string]Status, error) {
	rawRuns, err := ListRunDirs(rawDir)
	if err != nil {
		return nil, err
	}

	states := make(map[string]Status, len(rawRuns))

	for _, name := range rawRuns {
		if strings.HasPrefix(name, ".") {
			continue
		}

		complete, err := sequencingComplete(filepath.Join(rawDir, name), mode)
		if err != nil {
			return nil, err
		}

		if complete {
			states[name] = StatusSequencingComplete
		} else {
			states[name] = StatusSequencingInProgress
		}
	}

	return states, nil
}

func sequencingComplete(runDir string, mode Mode) (bool, error) {
	switch mode {
	case ModeONT:
		return OntSequencingComplete(runDir), nil
	case ModeIllumina:
		return IlluminaSequencingComplete(runDir), nil
	}

	return false, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
}

func pipelineStatus(runDir, runName string, opts ScanOptions) (Status, error) {
	if PipelineComplete(runDir) {
		return StatusPipelineComplete, nil
	}

	if opts.JobChecker == nil {
		return StatusPipelinePending, nil
	}

	jobStatus, err := opts.JobChecker.JobStatus(opts.JobNamePrefix + runName)
	if err != nil {
		return "", err
	}

	switch jobStatus {
	case slurm.StatusRunning:
		return StatusPipelineRunning, nil
	case slurm.StatusQueued:
		return StatusPipelineQueued, nil
	}

	return StatusPipelinePending, nil
}
