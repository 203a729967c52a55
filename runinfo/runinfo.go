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

package runinfo

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrMalformedDocument = Error("run info document is not well-formed xml")
	ErrNoFlowcell        = Error("flowcell id not found in run info")
	ErrNoReads           = Error("no reads found in run info")
	ErrNoDocument        = Error("no document provided")
	ErrEmptyKey          = Error("search key cannot be empty")
	ErrKeyNotFound       = Error("key not found in document")
	ErrUnknownInstrument = Error("unrecognised instrument name")

	errTrailingContent = Error("unexpected content after document root")

	flowcellKey   = "Flowcell"
	runIDKey      = "@Id"
	instrumentKey = "Instrument"
	dateKey       = "Date"
	laneCountKey  = "@LaneCount"
	readKey       = "Read"
	numberKey     = "@Number"
	numCyclesKey  = "@NumCycles"
	isIndexedKey  = "@IsIndexedRead"
	indexedFlag   = "Y"
)

// EndType says whether a run is single or paired end.
type EndType string

const (
	SingleEnd EndType = "SR"
	PairedEnd EndType = "PE"
)

// Read is one sequencing read from the run descriptor, in instrument cycle
// order. Indexed reads sequence a barcode rather than an insert.
type Read struct {
	Number    int
	NumCycles int
	IsIndexed bool
}

// RunInfo is the parsed form of an instrument's RunInfo.xml run descriptor.
type RunInfo struct {
	RunID      string
	Flowcell   string
	Instrument string
	Date       string
	LaneCount  string
	Reads      []Read
}

// Parse parses RunInfo.xml text. The flowcell id and at least one Read
// element are required; run id, instrument, date and lane count are captured
// when present.
func Parse(data []byte) (*RunInfo, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}

	flowcell, err := doc.FindFirst(flowcellKey)
	if err != nil {
		return nil, ErrNoFlowcell
	}

	flowcellID, ok := stringValue(flowcell)
	if !ok || flowcellID == "" {
		return nil, ErrNoFlowcell
	}

	reads, err := extractReads(doc)
	if err != nil {
		return nil, err
	}

	return &RunInfo{
		RunID:      firstString(doc, runIDKey),
		Flowcell:   flowcellID,
		Instrument: firstString(doc, instrumentKey),
		Date:       firstString(doc, dateKey),
		LaneCount:  firstString(doc, laneCountKey),
		Reads:      reads,
	}, nil
}

// ParseFile reads and parses the RunInfo.xml at the given path.
func ParseFile(path string) (*RunInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

func firstString(doc Document, key string) string {
	node, err := doc.FindFirst(key)
	if err != nil {
		return ""
	}

	s, _ := stringValue(node)

	return s
}

// extractReads locates the Read elements wherever their container nests them
// and converts them in document order.
func extractReads(doc Document) ([]Read, error) {
	matches, err := doc.FindKey(readKey)
	if err != nil {
		return nil, err
	}

	var reads []Read

	for _, match := range matches {
		for _, node := range sequence(match) {
			read, ok, err := parseRead(node)
			if err != nil {
				return nil, err
			}

			if ok {
				reads = append(reads, read)
			}
		}
	}

	if len(reads) == 0 {
		return nil, ErrNoReads
	}

	return reads, nil
}

// sequence treats a node as a list of nodes, whether the element repeated or
// appeared once.
func sequence(node any) []any {
	if seq, ok := node.([]any); ok {
		return seq
	}

	return []any{node}
}

func parseRead(node any) (Read, bool, error) {
	m, ok := node.(map[string]any)
	if !ok {
		return Read{}, false, nil
	}

	number, err := intAttr(m, numberKey)
	if err != nil {
		return Read{}, false, err
	}

	numCycles, err := intAttr(m, numCyclesKey)
	if err != nil {
		return Read{}, false, err
	}

	indexed, _ := m[isIndexedKey].(string)

	return Read{
		Number:    number,
		NumCycles: numCycles,
		IsIndexed: indexed == indexedFlag,
	}, true, nil
}

func intAttr(m map[string]any, key string) (int, error) {
	value, _ := m[key].(string)

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s value %q", ErrMalformedDocument, key, value)
	}

	return n, nil
}

// Cycles returns the per-read cycle counts in document order.
func (r *RunInfo) Cycles() []int {
	cycles := make([]int, len(r.Reads))

	for i, read := range r.Reads {
		cycles[i] = read.NumCycles
	}

	return cycles
}

// EndType is PairedEnd when more than one non-indexed read is configured,
// otherwise SingleEnd.
func (r *RunInfo) EndType() EndType {
	sequencing := 0

	for _, read := range r.Reads {
		if !read.IsIndexed {
			sequencing++
		}
	}

	if sequencing > 1 {
		return PairedEnd
	}

	return SingleEnd
}

// IndexCycles returns the configured cycle counts of the first and second
// index reads, in document order, with 0 for an absent index read.
func (r *RunInfo) IndexCycles() (int, int) {
	var cycles []int

	for _, read := range r.Reads {
		if read.IsIndexed {
			cycles = append(cycles, read.NumCycles)
		}
	}

	return firstTwo(cycles)
}

// ReadCycles returns the configured cycle counts of the first and second
// sequencing (non-indexed) reads, with 0 for an absent second read.
func (r *RunInfo) ReadCycles() (int, int) {
	var cycles []int

	for _, read := range r.Reads {
		if !read.IsIndexed {
			cycles = append(cycles, read.NumCycles)
		}
	}

	return firstTwo(cycles)
}

func firstTwo(values []int) (int, int) {
	var first, second int

	if len(values) > 0 {
		first = values[0]
	}

	if len(values) > 1 {
		second = values[1]
	}

	return first, second
}

// machinePrefixes maps instrument name prefixes to machine models. Longer
// prefixes must come before shorter ones that they share a first letter with.
var machinePrefixes = []struct {
	prefix  string
	machine string
}{
	{"LH", "NovaSeqX"},
	{"VH", "NextSeq2000"},
	{"NB", "NextSeq"},
	{"NS", "NextSeq"},
	{"SN", "HiSeq2000"},
	{"A", "NovaSeq"},
	{"D", "HiSeq2500"},
	{"K", "HiSeq4000"},
	{"M", "MiSeq"},
}

// Machine derives the machine model from the instrument name, eg. LH00442 is
// a NovaSeqX. Returns an error wrapping ErrUnknownInstrument for instrument
// names not matching a known model.
func (r *RunInfo) Machine() (string, error) {
	for _, mp := range machinePrefixes {
		if strings.HasPrefix(r.Instrument, mp.prefix) {
			return mp.machine, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownInstrument, r.Instrument)
}

// ReadsSection converts the read layout to the cycle keys a BCL Convert
// [Reads] section wants: the nth sequencing read becomes Read<n>Cycles and
// the nth index read becomes Index<n>Cycles.
func (r *RunInfo) ReadsSection() map[string]string {
	section := make(map[string]string, len(r.Reads))
	sequencing, indexed := 0, 0

	for _, read := range r.Reads {
		var key string

		if read.IsIndexed {
			indexed++
			key = fmt.Sprintf("Index%dCycles", indexed)
		} else {
			sequencing++
			key = fmt.Sprintf("Read%dCycles", sequencing)
		}

		section[key] = strconv.Itoa(read.NumCycles)
	}

	return section
}

// NamedRead pairs a read's display name, eg. "Read 1" or "Index 2", with its
// cycle count.
type NamedRead struct {
	Name      string
	NumCycles string
}

// NamedReads returns the reads labelled by their read number and role.
func (r *RunInfo) NamedReads() []NamedRead {
	named := make([]NamedRead, len(r.Reads))

	for i, read := range r.Reads {
		role := "Read"
		if read.IsIndexed {
			role = "Index"
		}

		named[i] = NamedRead{
			Name:      fmt.Sprintf("%s %d", role, read.Number),
			NumCycles: strconv.Itoa(read.NumCycles),
		}
	}

	return named
}

// Summary is the merged run identity and read layout information recorded
// alongside generated samplesheets.
type Summary struct {
	RunID      string
	EndType    EndType
	Instrument string
	Machine    string
	LaneCount  string
	Reads      []NamedRead
}

// Summary merges the run identity with the machine model and named read
// layout. Fails if the instrument is not a recognised model.
func (r *RunInfo) Summary() (*Summary, error) {
	machine, err := r.Machine()
	if err != nil {
		return nil, err
	}

	return &Summary{
		RunID:      r.RunID,
		EndType:    r.EndType(),
		Instrument: r.Instrument,
		Machine:    machine,
		LaneCount:  r.LaneCount,
		Reads:      r.NamedReads(),
	}, nil
}
