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
	"sort"
	"strings"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrEmptyColumn = Error("column name cannot be empty")

	headerSection   = "[Header]"
	readsSection    = "[Reads]"
	settingsSection = "[BCLConvert_Settings]"
	dataSection     = "[BCLConvert_Data]"

	fieldSeparator = ","
	lineWidth      = 4

	sheetPerm = 0644
)

// Section is one key,value section of a BCL Convert samplesheet.
type Section map[string]string

// Row is one sample row of the data section, column name to value.
type Row map[string]string

// Data is the data section: row key to Row. Row keys only order the output;
// the emitted columns come from the Rows themselves.
type Data map[string]Row

// Sheet is a BCL Convert samplesheet. Empty sections are left out of the
// written file entirely.
type Sheet struct {
	Header   Section
	Reads    Section
	Settings Section
	Data     Data
}

// Render produces the samplesheet text. Sections appear in the fixed order
// Header, Reads, BCLConvert_Settings, BCLConvert_Data, with keys and rows
// sorted so that regenerating a sheet from identical input reproduces it
// byte for byte.
func (s *Sheet) Render() []byte {
	var lines []string

	lines = appendSection(lines, headerSection, s.Header)
	lines = appendSection(lines, readsSection, s.Reads)
	lines = appendSection(lines, settingsSection, s.Settings)
	lines = appendData(lines, s.Data)

	return []byte(strings.Join(lines, "\n") + "\n")
}

// Write renders the sheet to the file at path, overwriting whatever was
// there. The write is not atomic; a partial file from an aborted write is
// repaired by regenerating.
func (s *Sheet) Write(path string) error {
	return os.WriteFile(path, s.Render(), sheetPerm)
}

// appendSection emits a key,value section padded to four comma-separated
// fields per line, the layout BCL Convert and the downstream spreadsheet
// tooling both accept.
func appendSection(lines []string, name string, section Section) []string {
	if len(section) == 0 {
		return lines
	}

	lines = append(lines, padFields(name))

	for _, key := range sortedKeys(section) {
		lines = append(lines, padFields(key, section[key]))
	}

	return lines
}

func appendData(lines []string, data Data) []string {
	if len(data) == 0 {
		return lines
	}

	columns := dataColumns(data)

	lines = append(lines, padFields(dataSection))
	lines = append(lines, strings.Join(columns, fieldSeparator))

	rowKeys := make([]string, 0, len(data))
	for key := range data {
		rowKeys = append(rowKeys, key)
	}

	sort.Strings(rowKeys)

	for _, key := range rowKeys {
		lines = append(lines, renderRow(data[key], columns))
	}

	return lines
}

// dataColumns is the sorted union of column names across every row, so rows
// with differing columns still share one header.
func dataColumns(data Data) []string {
	seen := make(map[string]bool)

	var columns []string

	for _, row := range data {
		for column := range row {
			if !seen[column] {
				seen[column] = true

				columns = append(columns, column)
			}
		}
	}

	sort.Strings(columns)

	return columns
}

func renderRow(row Row, columns []string) string {
	fields := make([]string, len(columns))

	for n, column := range columns {
		fields[n] = row[column]
	}

	return strings.Join(fields, fieldSeparator)
}

func padFields(fields ...string) string {
	padded := make([]string, lineWidth)
	copy(padded, fields)

	return strings.Join(padded, fieldSeparator)
}

func sortedKeys(section Section) []string {
	keys := make([]string, 0, len(section))

	for key := range section {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// CountSamples counts the sample rows in a written samplesheet: the number
// of non-blank lines after the first line containing the named column, eg.
// Sample_ID. Returns false when no line mentions the column.
func CountSamples(path, column string) (int, bool, error) {
	if column == "" {
		return 0, false, ErrEmptyColumn
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false, err
	}

	lines := strings.Split(string(data), "\n")

	for n, line := range lines {
		if !containsField(line, column) {
			continue
		}

		count := 0

		for _, row := range lines[n+1:] {
			if strings.TrimSpace(row) != "" {
				count++
			}
		}

		return count, true, nil
	}

	return 0, false, nil
}

func containsField(line, column string) bool {
	for _, field := range strings.Split(line, fieldSeparator) {
		if field == column {
			return true
		}
	}

	return false
}
