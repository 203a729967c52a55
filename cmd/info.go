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
	"github.com/FrancisCrickInstitute/asf-tools/samplesheet"
	"github.com/spf13/cobra"
)

// options for this cmd.
var (
	infoSheet  string
	infoColumn string
)

// infoCmd represents the info command.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarise a written samplesheet.",
	Long: `Summarise a written samplesheet.

Reads a BCL Convert samplesheet and reports how many sample rows it contains,
which is useful as a sanity check before launching demultiplexing. Rows are
counted below the first header line that contains the data column, Sample_ID
unless overridden with --column.
`,
	Run: func(_ *cobra.Command, _ []string) {
		count, found, err := samplesheet.CountSamples(infoSheet, infoColumn)
		if err != nil {
			die("%s", err.Error())
		}

		if !found {
			warn("no %s column found in %s", infoColumn, infoSheet)

			return
		}

		cliPrint("%d samples\n", count)
	},
}

func init() {
	RootCmd.AddCommand(infoCmd)

	// flags specific to this sub-command
	infoCmd.Flags().StringVarP(&infoSheet, "sheet", "s",
		"", "path to the samplesheet")
	infoCmd.Flags().StringVar(&infoColumn, "column",
		"Sample_ID", "data column that starts the sample rows")

	markFlagRequired(infoCmd, "sheet")
}
