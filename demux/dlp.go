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

package demux

import (
	"fmt"
	"os"
	"strings"

	"github.com/FrancisCrickInstitute/asf-tools/samplesheet"
)

const (
	dlpRowColumn   = "row"
	dlpColColumn   = "column"
	dlpI7IDColumn  = "i7_index_id"
	dlpI7SeqColumn = "i7_index"
	dlpI5IDColumn  = "i5_index_id"
	dlpI5SeqColumn = "i5_index"
)

var dlpColumns = []string{
	dlpRowColumn, dlpColColumn,
	dlpI7IDColumn, dlpI7SeqColumn,
	dlpI5IDColumn, dlpI5SeqColumn,
}

// ReadDLPBarcodes reads a DLP chip barcode CSV and produces one data row per
// chip cell. DLP pools one physical sample across a chip of cells, each
// carrying its own i7/i5 pair, so one LIMS sample expands to a row per cell:
// Sample_ID <samplePrefix>_<i7 id>-<i5 id>, with the cell's chip position as
// the Lane, <column>x_<row>y.
//
// The file needs a header line naming at least the row, column, i7_index_id,
// i7_index, i5_index_id and i5_index columns; extra columns are ignored.
func ReadDLPBarcodes(path, samplePrefix string) (samplesheet.Data, error) {
	if samplePrefix == "" {
		return nil, ErrNoSamplePrefix
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	fields, err := dlpHeaderFields(lines[0])
	if err != nil {
		return nil, err
	}

	rows := make(samplesheet.Data, len(lines)-1)

	for n, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		key, row, err := dlpRow(line, fields, samplePrefix)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d", err, n+2)
		}

		rows[key] = row
	}

	return rows, nil
}

// dlpHeaderFields maps the needed column names to their positions in the
// header line.
func dlpHeaderFields(header string) (map[string]int, error) {
	fields := make(map[string]int)

	for n, name := range strings.Split(header, ",") {
		fields[strings.TrimSpace(name)] = n
	}

	for _, name := range dlpColumns {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("%w: no %s column", ErrMalformedBarcodeFile, name)
		}
	}

	return fields, nil
}

func dlpRow(line string, fields map[string]int, samplePrefix string) (string, samplesheet.Row, error) {
	cells := strings.Split(line, ",")

	values := make(map[string]string, len(dlpColumns))

	for _, name := range dlpColumns {
		if fields[name] >= len(cells) {
			return "", nil, ErrMalformedBarcodeFile
		}

		values[name] = strings.TrimSpace(cells[fields[name]])

		if values[name] == "" {
			return "", nil, ErrMalformedBarcodeFile
		}
	}

	key := samplePrefix + "_" + values[dlpI7IDColumn] + "-" + values[dlpI5IDColumn]

	return key, samplesheet.Row{
		laneColumn:     values[dlpColColumn] + "x_" + values[dlpRowColumn] + "y",
		sampleIDColumn: key,
		"index":        values[dlpI7SeqColumn],
		"index2":       values[dlpI5SeqColumn],
	}, nil
}
