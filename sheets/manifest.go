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
	"github.com/FrancisCrickInstitute/asf-tools/lims"
)

const (
	ErrNoData = Error("no data found in sheet")

	samplesSheetName = "samples"
	ontSheetName     = "ont_runs"
)

type sheetReader interface {
	Read(docID, sheetName string) (*Sheet, error)
}

// Manifest reads the facility's run manifest spreadsheet, the lab's readable
// mirror of the LIMS: a worksheet of Illumina flowcell samples and a
// worksheet of nanopore run samples. It serves the same sample metadata as
// the warehouse for runs the LIMS has not caught up with yet.
type Manifest struct {
	sheets  sheetReader
	sheetID string
}

// NewManifest returns a Manifest reading the spreadsheet with the given id
// through the given Sheets.
func NewManifest(sheets *Sheets, sheetID string) *Manifest {
	return &Manifest{sheets: sheets, sheetID: sheetID}
}

// Samples returns every sample in the manifest's samples worksheet, in
// worksheet row order. Rows flagged in the exclude column are skipped.
func (m *Manifest) Samples() (lims.Samples, error) {
	entries, err := m.flowcellEntries()
	if err != nil {
		return nil, err
	}

	samples := make(lims.Samples, len(entries))

	for n, entry := range entries {
		samples[n] = entry.sample
	}

	return samples, nil
}

// SamplesForFlowcell returns the manifest samples assigned to the given
// flowcell, in worksheet row order.
func (m *Manifest) SamplesForFlowcell(flowcellID string) (lims.Samples, error) {
	entries, err := m.flowcellEntries()
	if err != nil {
		return nil, err
	}

	var samples lims.Samples

	for _, entry := range entries {
		if entry.run == flowcellID {
			samples = append(samples, entry.sample)
		}
	}

	return samples, nil
}

// SamplesForONTRun returns the manifest samples loaded on the nanopore run
// with the given experiment name, in worksheet row order.
func (m *Manifest) SamplesForONTRun(runID string) (lims.Samples, error) {
	entries, err := m.ontEntries()
	if err != nil {
		return nil, err
	}

	var samples lims.Samples

	for _, entry := range entries {
		if entry.run == runID {
			samples = append(samples, entry.sample)
		}
	}

	return samples, nil
}

// manifestEntry pairs a sample with the flowcell or nanopore run its
// worksheet row assigned it to.
type manifestEntry struct {
	run    string
	sample lims.Sample
}

func (m *Manifest) flowcellEntries() ([]manifestEntry, error) {
	sheet, err := m.readSheet(samplesSheetName)
	if err != nil {
		return nil, err
	}

	rows, err := sheet.Columns(
		"flowcell",
		"sample_name",
		"group",
		"user",
		"project_id",
		"project_limsid",
		"project_type",
		"reference_genome",
		"data_analysis_type",
		"barcode",
		"lanes",
		"exclude",
	)
	if err != nil {
		return nil, err
	}

	entries := make([]manifestEntry, 0, len(rows))

	c := converter{}

	for _, row := range rows {
		if c.ToBool(row[11]) {
			continue
		}

		entries = append(entries, manifestEntry{
			run: row[0],
			sample: lims.Sample{
				Name:             row[1],
				Group:            row[2],
				User:             row[3],
				ProjectID:        row[4],
				ProjectLIMSID:    row[5],
				ProjectType:      row[6],
				ReferenceGenome:  row[7],
				DataAnalysisType: row[8],
				Barcode:          row[9],
				Lanes:            m.checkedLanes(&c, row[10]),
			},
		})
	}

	return entries, c.Err
}

// checkedLanes splits a lanes cell like "1,2" and confirms each lane is a
// number, since a typoed lane would otherwise flow silently in to the
// generated samplesheets.
func (m *Manifest) checkedLanes(c *converter, lanes string) []string {
	split := lims.SplitLanes(lanes)

	for _, lane := range split {
		c.ToInt(lane)
	}

	return split
}

func (m *Manifest) ontEntries() ([]manifestEntry, error) {
	sheet, err := m.readSheet(ontSheetName)
	if err != nil {
		return nil, err
	}

	rows, err := sheet.Columns(
		"run_name",
		"sample_name",
		"group",
		"user",
		"project_id",
		"barcode",
		"exclude",
	)
	if err != nil {
		return nil, err
	}

	entries := make([]manifestEntry, 0, len(rows))

	c := converter{}

	for _, row := range rows {
		if c.ToBool(row[6]) {
			continue
		}

		entries = append(entries, manifestEntry{
			run: row[0],
			sample: lims.Sample{
				Name:      row[1],
				Group:     row[2],
				User:      row[3],
				ProjectID: row[4],
				Barcode:   row[5],
			},
		})
	}

	return entries, c.Err
}

func (m *Manifest) readSheet(name string) (*Sheet, error) {
	sheet, err := m.sheets.Read(m.sheetID, name)
	if err != nil {
		return nil, err
	}

	if sheet == nil || len(sheet.Rows) == 0 {
		return nil, ErrNoData
	}

	return sheet, nil
}
