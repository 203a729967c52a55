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
	"github.com/FrancisCrickInstitute/asf-tools/config"
	"github.com/FrancisCrickInstitute/asf-tools/ont"
	"github.com/spf13/cobra"
)

// options for the ont sub-commands.
var (
	ontSourceDir       string
	ontTargetDir       string
	ontPipelineDir     string
	ontRunsDir         string
	ontNextflowCache   string
	ontNextflowWork    string
	ontContainerCache  string
	ontContains        string
	ontSamplesheetOnly bool
	ontUseAPI          bool
)

// ontCmd represents the ont command.
var ontCmd = &cobra.Command{
	Use:   "ont",
	Short: "Nanopore commands.",
	Long: `Nanopore commands.

The various ont sub-commands manage demultiplexing runs for Oxford Nanopore
sequencing.
`,
}

// genDemuxRunCmd represents the gen-demux-run command.
var genDemuxRunCmd = &cobra.Command{
	Use:   "gen-demux-run",
	Short: "Create run folders for the nanopore demultiplexing pipeline.",
	Long: `Create run folders for the nanopore demultiplexing pipeline.

Every completed sequencing run in the source directory that has no folder in
the target directory gets one created, containing the sbatch script that
launches the pipeline and the samplesheet it needs. A run counts as completed
once its sequencing summary file exists. Launching the scripts is left to the
operator, so a bad run can be skipped.

The pipeline runs inside a container, so the script refers to the raw data by
the path given with --runs-dir, which may differ from --source-dir as seen
from this machine.

With --use-api the samplesheet rows come from the configured metadata sources
(see the samplesheets sub-command); without it a default samplesheet is
written and every read ends up unclassified, for the lab to reassign later.

With --samplesheet-only, the samplesheets of the run folders already in the
target directory are rewritten instead, and no scripts are touched.

An example command line could look like this:
$ asf-tools ont gen-demux-run -s /camp/asf/runs -t /camp/asf/demux \
	-p /camp/pipelines/nanopore_demux -r /camp/asf/runs -w /camp/work/nxf
`,
	Run: func(_ *cobra.Command, _ []string) {
		var source ont.MetadataSource

		if ontUseAPI {
			c, err := config.FromEnv()
			if err != nil {
				die("%s", err.Error())
			}

			client, err := metadataClient(c, sourceBoth)
			if err != nil {
				die("%s", err.Error())
			}

			defer client.Close()

			source = client
		}

		g := ont.NewGenerator(source, appLogger, ont.GeneratorOptions{
			SourceDir:       ontSourceDir,
			TargetDir:       ontTargetDir,
			PipelineDir:     ontPipelineDir,
			RunsDir:         ontRunsDir,
			NextflowCache:   ontNextflowCache,
			NextflowWork:    ontNextflowWork,
			ContainerCache:  ontContainerCache,
			Contains:        ontContains,
			SamplesheetOnly: ontSamplesheetOnly,
		})

		processed, err := g.Run()
		if err != nil {
			die("%s", err.Error())
		}

		if len(processed) == 0 {
			info("no runs to process")

			return
		}

		info("processed %d runs", len(processed))

		for _, name := range processed {
			cliPrintRaw(name + "\n")
		}
	},
}

func init() {
	RootCmd.AddCommand(ontCmd)
	ontCmd.AddCommand(genDemuxRunCmd)

	// flags specific to the gen-demux-run sub-command
	genDemuxRunCmd.Flags().StringVarP(&ontSourceDir, "source-dir", "s",
		"", "directory holding the raw sequencing runs")
	genDemuxRunCmd.Flags().StringVarP(&ontTargetDir, "target-dir", "t",
		"", "directory to create the pipeline run folders in")
	genDemuxRunCmd.Flags().StringVarP(&ontPipelineDir, "pipeline-dir", "p",
		"", "directory holding the demultiplexing pipeline")
	genDemuxRunCmd.Flags().StringVarP(&ontRunsDir, "runs-dir", "r",
		"", "path to the raw runs as the pipeline will see it")
	genDemuxRunCmd.Flags().StringVarP(&ontNextflowCache, "nextflow-cache", "n",
		"", "directory for the nextflow home cache")
	genDemuxRunCmd.Flags().StringVarP(&ontNextflowWork, "nextflow-work", "w",
		"", "directory for nextflow work files")
	genDemuxRunCmd.Flags().StringVarP(&ontContainerCache, "container-cache", "c",
		"", "directory for the singularity image cache")
	genDemuxRunCmd.Flags().StringVar(&ontContains, "contains",
		"", "only process runs whose name contains this string")
	genDemuxRunCmd.Flags().BoolVar(&ontSamplesheetOnly, "samplesheet-only",
		false, "rewrite samplesheets for existing run folders only")
	genDemuxRunCmd.Flags().BoolVar(&ontUseAPI, "use-api",
		false, "fill samplesheets from the configured metadata sources")

	for _, flag := range []string{"source-dir", "target-dir", "pipeline-dir", "runs-dir"} {
		markFlagRequired(genDemuxRunCmd, flag)
	}
}
