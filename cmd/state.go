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

package cmd

import (
	"sort"

	"github.com/FrancisCrickInstitute/asf-tools/ont"
	"github.com/FrancisCrickInstitute/asf-tools/runfolder"
	"github.com/FrancisCrickInstitute/asf-tools/slurm"
	"github.com/spf13/cobra"
)

// options for this cmd.
var (
	stateRawDir    string
	stateRunDir    string
	stateMode      string
	stateUser      string
	stateJobPrefix string
	stateQueueFile string
)

// stateCmd represents the state command.
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Report the state of sequencing and demultiplexing runs.",
	Long: `Report the state of sequencing and demultiplexing runs.

Scans the raw sequencing directory and the pipeline run directory and prints
one line per run with its current state: sequencing in progress or complete
while only raw data exists, then pipeline pending, queued, running or
complete once a run folder exists.

Supply --user to look pending pipelines up in the SLURM queue, or
--queue-file to read a saved squeue listing instead, for hosts where squeue
is not available (such as inside a container). With neither, runs that have
not finished their pipeline are reported as pending.

An example command line could look like this:
$ asf-tools state --raw-dir /camp/asf/runs --run-dir /camp/asf/demux --mode ont --user asf
`,
	Run: func(_ *cobra.Command, _ []string) {
		states, err := runfolder.ScanRunState(stateRawDir, stateRunDir,
			runfolder.Mode(stateMode), scanOptions())
		if err != nil {
			die("%s", err.Error())
		}

		names := make([]string, 0, len(states))

		for name := range states {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			cliPrint("%s\t%s\n", name, states[name])
		}
	},
}

func init() {
	RootCmd.AddCommand(stateCmd)

	// flags specific to this sub-command
	stateCmd.Flags().StringVar(&stateRawDir, "raw-dir",
		"", "directory holding the raw sequencing runs")
	stateCmd.Flags().StringVar(&stateRunDir, "run-dir",
		"", "directory holding the pipeline run folders")
	stateCmd.Flags().StringVar(&stateMode, "mode",
		string(runfolder.ModeONT), "sequencing mode: ont or illumina")
	stateCmd.Flags().StringVar(&stateUser, "user",
		"", "SLURM user the pipeline jobs run as")
	stateCmd.Flags().StringVar(&stateJobPrefix, "job-prefix",
		ont.JobNamePrefix, "prefix of pipeline job names in the queue")
	stateCmd.Flags().StringVar(&stateQueueFile, "queue-file",
		"", "read squeue output from this file instead of running squeue")

	markFlagRequired(stateCmd, "raw-dir")
	markFlagRequired(stateCmd, "run-dir")
}

// scanOptions turns the queue-related flags in to ScanOptions: a file-backed
// queue if --queue-file was given, otherwise squeue for --user, otherwise no
// job checking at all.
func scanOptions() runfolder.ScanOptions {
	opts := runfolder.ScanOptions{JobNamePrefix: stateJobPrefix}

	switch {
	case stateQueueFile != "":
		opts.JobChecker = slurm.FileQueue{Path: stateQueueFile}
	case stateUser != "":
		opts.JobChecker = slurm.New(stateUser, "")
	}

	return opts
}
