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
	"fmt"

	"github.com/FrancisCrickInstitute/asf-tools/config"
	"github.com/FrancisCrickInstitute/asf-tools/demux"
	"github.com/FrancisCrickInstitute/asf-tools/lims"
	"github.com/FrancisCrickInstitute/asf-tools/metadata"
	"github.com/FrancisCrickInstitute/asf-tools/sheets"
	"github.com/FrancisCrickInstitute/asf-tools/slack"
	"github.com/spf13/cobra"
)

// ErrBadSource means the --source option was not one of the allowed values.
const ErrBadSource = Error("metadata source must be db, sheet or both")

const (
	sourceDB    = "db"
	sourceSheet = "sheet"
	sourceBoth  = "both"
)

// options for this cmd.
var (
	sheetsRunInfo     string
	sheetsOutput      string
	sheetsBCLConfig   string
	sheetsDLPBarcodes string
	sheetsSource      string
	sheetsNotify      bool
)

// samplesheetsCmd represents the samplesheets command.
var samplesheetsCmd = &cobra.Command{
	Use:   "samplesheets",
	Short: "Generate demultiplexing samplesheets for an Illumina run.",
	Long: `Generate demultiplexing samplesheets for an Illumina run.

Point this at the RunInfo.xml of a sequenced flowcell and it will fetch the
flowcell's sample metadata, group the samples that can be demultiplexed
together, and write the BCL Convert samplesheets in to the output directory.

A main samplesheet covering every sample is always written. Further sheets are
written for each workflow that has to be demultiplexed on its own (10X
single cell, ATAC, DLP), and for each group of remaining samples whose index
lengths differ from the run's cycle layout, with OverrideCycles set
accordingly. DLP samples are expanded using the chip's barcode file, supplied
with --dlp-barcodes.

Sample metadata is merged from the LIMS warehouse database and the facility's
manifest spreadsheet; pass --source to restrict it to one of them. The
environment variables described in the config package must be set for
whichever sources you use.

An example command line could look like this:
$ asf-tools samplesheets -r /seq/240711_A01295_0033_A22MKK5LT3/RunInfo.xml -o /demux/sheets

With --notify, the outcome is also posted to the configured Slack webhook.
`,
	Run: func(_ *cobra.Command, _ []string) {
		c, err := config.FromEnv()
		if err != nil {
			die("%s", err.Error())
		}

		client, err := metadataClient(c, sheetsSource)
		if err != nil {
			die("%s", err.Error())
		}

		defer client.Close()

		g := demux.NewGenerator(client, appLogger, demux.GeneratorOptions{})

		written, err := g.GenerateSampleSheets(sheetsRunInfo, sheetsOutput, demux.GenerateOptions{
			BCLConfigPath:  sheetsBCLConfig,
			DLPBarcodePath: sheetsDLPBarcodes,
		})
		notifySheetOutcome(c, written, err)

		if err != nil {
			die("%s", err.Error())
		}

		info("wrote %d samplesheets", len(written))

		for _, path := range written {
			cliPrintRaw(path + "\n")
		}
	},
}

func init() {
	RootCmd.AddCommand(samplesheetsCmd)

	// flags specific to this sub-command
	samplesheetsCmd.Flags().StringVarP(&sheetsRunInfo, "run-info", "r",
		"", "path to the run's RunInfo.xml")
	samplesheetsCmd.Flags().StringVarP(&sheetsOutput, "output", "o",
		".", "directory to write the samplesheets in to")
	samplesheetsCmd.Flags().StringVar(&sheetsBCLConfig, "bcl-config",
		"", "path to a BCL Convert settings JSON file")
	samplesheetsCmd.Flags().StringVar(&sheetsDLPBarcodes, "dlp-barcodes",
		"", "path to a DLP chip barcode CSV file")
	samplesheetsCmd.Flags().StringVar(&sheetsSource, "source",
		sourceBoth, "metadata source: db, sheet or both")
	samplesheetsCmd.Flags().BoolVar(&sheetsNotify, "notify",
		false, "post the outcome to the configured Slack webhook")

	markFlagRequired(samplesheetsCmd, "run-info")
}

// metadataClient makes a metadata Client backed by the sources named by
// source: the warehouse database, the manifest spreadsheet, or both.
func metadataClient(c *config.Config, source string) (*metadata.Client, error) {
	var (
		wc metadata.WarehouseClient
		mc metadata.ManifestClient
	)

	if source != sourceDB && source != sourceSheet && source != sourceBoth {
		return nil, ErrBadSource
	}

	if source == sourceDB || source == sourceBoth {
		db, err := lims.New(lims.MySQLConfigFromConfig(c))
		if err != nil {
			return nil, err
		}

		wc = db
	}

	if source == sourceSheet || source == sourceBoth {
		manifest, err := sheetManifest(c)
		if err != nil {
			return nil, err
		}

		mc = manifest
	}

	return metadata.New(wc, mc, metadata.ClientOptions{}), nil
}

func sheetManifest(c *config.Config) (*sheets.Manifest, error) {
	sc, err := sheets.ServiceCredentialsFromConfig(c)
	if err != nil {
		return nil, err
	}

	s, err := sheets.New(sc)
	if err != nil {
		return nil, err
	}

	return sheets.NewManifest(s, c.SheetID), nil
}

// notifySheetOutcome posts the generation outcome to Slack when --notify was
// given and a webhook is configured. Notification failures only warn; they
// never fail the command.
func notifySheetOutcome(c *config.Config, written []string, genErr error) {
	if !sheetsNotify {
		return
	}

	notifier := slack.New(c.SlackWebhook)

	var err error

	if genErr != nil {
		err = notifier.Notify(slack.LevelFailure,
			fmt.Sprintf("samplesheet generation failed for %s: %s", sheetsRunInfo, genErr))
	} else {
		err = notifier.Notify(slack.LevelSuccess,
			fmt.Sprintf("%d samplesheets written for %s", len(written), sheetsRunInfo))
	}

	if err != nil {
		warn("slack notification failed: %s", err)
	}
}
