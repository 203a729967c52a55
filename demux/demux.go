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

// package demux turns a sequencing run's RunInfo.xml and LIMS sample
// metadata in to the BCL Convert samplesheets that demultiplex it.

package demux

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/FrancisCrickInstitute/asf-tools/barcode"
	"github.com/FrancisCrickInstitute/asf-tools/lims"
	"github.com/FrancisCrickInstitute/asf-tools/runinfo"
	"github.com/FrancisCrickInstitute/asf-tools/samplesheet"
	"github.com/inconshreveable/log15"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNoSamples            = Error("no samples found for flowcell")
	ErrNoIndex              = Error("index cannot be empty")
	ErrNegativeCycles       = Error("cycle counts cannot be negative")
	ErrIndexTooLong         = Error("index is longer than the configured index cycles")
	ErrPartialIndex2        = Error("second index values must all be given or all be absent")
	ErrMalformedBarcodeFile = Error("malformed DLP barcode file")
	ErrNoSamplePrefix       = Error("sample prefix cannot be empty")
	ErrNoDLPBarcodeFile     = Error("run has DLP samples but no DLP barcode file was given")

	sheetSuffix      = "_samplesheet"
	sheetExtension   = ".csv"
	configPrefix     = "bcl_config_"
	configExtension  = ".json"
	overrideSetting  = "OverrideCycles"
	minPoolDistance  = 3
	dlpCategory      = "dlp"
	singleCellSuffix = "_singlecell"
	atacSuffix       = "_atac"
	dlpSuffix        = "_dlp"
)

// MetadataSource provides the per-sample metadata for a flowcell. lims.Client
// and sheets.Manifest both satisfy this.
type MetadataSource interface {
	SamplesForFlowcell(flowcellID string) (lims.Samples, error)
}

// Generator generates the demultiplexing samplesheets for sequencing runs.
type Generator struct {
	source     MetadataSource
	logger     log15.Logger
	policy     barcode.Policy
	categories []Category
}

// GeneratorOptions adjusts how a Generator classifies samples. The zero
// value means the FixedDualIndex barcode policy and the facility's stock
// workflow categories.
type GeneratorOptions struct {
	Policy     barcode.Policy
	Categories []Category
}

// NewGenerator returns a Generator reading sample metadata from the given
// source. A nil logger discards all logging.
func NewGenerator(source MetadataSource, logger log15.Logger, opts GeneratorOptions) *Generator {
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}

	policy := opts.Policy
	if policy == "" {
		policy = barcode.FixedDualIndex
	}

	categories := opts.Categories
	if categories == nil {
		categories = DefaultCategories()
	}

	return &Generator{
		source:     source,
		logger:     logger,
		policy:     policy,
		categories: categories,
	}
}

// GenerateOptions adjusts a single generation run. With no BCLConfigPath a
// config sidecar is generated from the run info and saved alongside the
// sheets. DLPBarcodePath is only needed for runs carrying DLP samples.
type GenerateOptions struct {
	BCLConfigPath  string
	DLPBarcodePath string
}

// GenerateSampleSheets reads the RunInfo.xml at runInfoPath, collects the
// flowcell's sample metadata, and writes the run's samplesheets in to
// outputDir: the full sheet, one sheet per special workflow that has
// samples, and one sheet per index length group of the rest, with an
// OverrideCycles setting on groups whose index lengths differ from the
// configured cycles. Returns the paths written, in write order.
func (g *Generator) GenerateSampleSheets(runInfoPath, outputDir string, opts GenerateOptions) ([]string, error) {
	ri, err := runinfo.ParseFile(runInfoPath)
	if err != nil {
		return nil, err
	}

	g.logger.Info("generating samplesheets", "flowcell", ri.Flowcell, "run", ri.RunID)

	samples, err := g.source.SamplesForFlowcell(ri.Flowcell)
	if err != nil {
		return nil, err
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSamples, ri.Flowcell)
	}

	indexes := g.normalizeBarcodes(ri.Flowcell, samples)

	run := &generation{
		ri:      ri,
		out:     outputDir,
		opts:    opts,
		samples: samples,
		indexes: indexes,
	}

	if err := g.prepareConfig(run); err != nil {
		return nil, err
	}

	if err := g.writeSheets(run); err != nil {
		return nil, err
	}

	return run.written, nil
}

// generation is the state of one GenerateSampleSheets invocation; nothing in
// it is shared between invocations.
type generation struct {
	ri      *runinfo.RunInfo
	out     string
	opts    GenerateOptions
	samples lims.Samples
	indexes map[string]barcode.Index

	header   samplesheet.Section
	reads    samplesheet.Section
	settings samplesheet.Section
	written  []string
}

func (g *Generator) normalizeBarcodes(flowcell string, samples lims.Samples) map[string]barcode.Index {
	barcodes := make(map[string]string, len(samples))

	for _, sample := range samples {
		barcodes[sample.Name] = sample.Barcode
	}

	indexes, dropped, err := g.policy.NormalizeAll(barcodes)

	for _, name := range dropped {
		g.logger.Debug("sample has no barcode", "sample", name)
	}

	if errors.Is(err, barcode.ErrNoValidBarcodes) {
		g.logger.Warn("no sample on this flowcell has a valid barcode", "flowcell", flowcell)
	}

	return indexes
}

// prepareConfig loads the caller's config sidecar, or generates one from the
// run info and saves it alongside the sheets.
func (g *Generator) prepareConfig(run *generation) error {
	config, err := g.loadOrCreateConfig(run)
	if err != nil {
		return err
	}

	run.header = config.HeaderSection()
	run.settings = config.SettingsSection()
	run.reads = samplesheet.Section(run.ri.ReadsSection())

	return nil
}

func (g *Generator) loadOrCreateConfig(run *generation) (*samplesheet.BCLConfig, error) {
	if run.opts.BCLConfigPath != "" {
		return samplesheet.LoadBCLConfig(run.opts.BCLConfigPath)
	}

	machine, err := run.ri.Machine()
	if err != nil {
		return nil, err
	}

	config, err := samplesheet.NewBCLConfig(machine, run.ri.Flowcell, nil, nil)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(run.out, configPrefix+run.ri.Flowcell+configExtension)

	if err := config.Save(path); err != nil {
		return nil, err
	}

	g.logger.Info("generated bcl config", "path", path)
	run.written = append(run.written, path)

	return config, nil
}

func (g *Generator) writeSheets(run *generation) error {
	buckets, err := Split(run.samples, run.indexes, g.categories)
	if err != nil {
		return err
	}

	if err := g.writeSheet(run, sheetName(run, ""), buckets.Rows(AllSamples), run.settings); err != nil {
		return err
	}

	if err := g.writeWorkflowSheets(run, buckets); err != nil {
		return err
	}

	return g.writeIndexLengthSheets(run, buckets)
}

// writeWorkflowSheets writes the special-workflow sheets for the buckets
// that have samples. DLP rows are not written as they come from the LIMS:
// each DLP sample is a whole chip, expanded to a row per chip cell through
// the DLP barcode table.
func (g *Generator) writeWorkflowSheets(run *generation, buckets Buckets) error {
	for _, bucket := range []struct {
		name   string
		suffix string
	}{
		{"singlecell", singleCellSuffix},
		{"atac", atacSuffix},
	} {
		rows := buckets.Rows(bucket.name)
		if len(rows) == 0 {
			continue
		}

		if err := g.writeSheet(run, sheetName(run, bucket.suffix), rows, run.settings); err != nil {
			return err
		}
	}

	return g.writeDLPSheet(run, buckets)
}

func (g *Generator) writeDLPSheet(run *generation, buckets Buckets) error {
	if len(buckets.Rows(dlpCategory)) == 0 {
		return nil
	}

	if run.opts.DLPBarcodePath == "" {
		return ErrNoDLPBarcodeFile
	}

	expanded := samplesheet.Data{}

	for _, name := range buckets.SampleNames(dlpCategory) {
		rows, err := ReadDLPBarcodes(run.opts.DLPBarcodePath, name)
		if err != nil {
			return err
		}

		for key, row := range rows {
			expanded[key] = row
		}
	}

	return g.writeSheet(run, sheetName(run, dlpSuffix), expanded, run.settings)
}

// writeIndexLengthSheets splits the leftover bulk samples by index length
// pair and writes one sheet per group, each with its own settings copy so an
// OverrideCycles directive for one group never leaks in to another.
func (g *Generator) writeIndexLengthSheets(run *generation, buckets Buckets) error {
	rows := buckets.Rows(OtherSamples)
	if len(rows) == 0 {
		return nil
	}

	groups, skipped := GroupByIndexLength(bucketIndexes(run.indexes, buckets))

	for _, name := range skipped {
		g.logger.Warn("sample has no usable index", "sample", name)
	}

	for _, group := range groups {
		g.checkPoolDistance(run, group)

		settings, err := g.groupSettings(run, group)
		if err != nil {
			return err
		}

		suffix := fmt.Sprintf("_%d_%d", group.Index1Len, group.Index2Len)

		if err := g.writeSheet(run, sheetName(run, suffix), groupRows(rows, group), settings); err != nil {
			return err
		}
	}

	return nil
}

// groupSettings copies the run settings and adds an OverrideCycles directive
// when the group's index lengths differ from the configured index cycles.
// Single-index groups compare the first index length only.
func (g *Generator) groupSettings(run *generation, group IndexLengthGroup) (samplesheet.Section, error) {
	settings := copySection(run.settings)

	index1Cycles, index2Cycles := run.ri.IndexCycles()
	read1Cycles, read2Cycles := run.ri.ReadCycles()

	representative := run.indexes[group.Samples[0]]

	request := OverrideRequest{
		Index:    representative.First(),
		IndexLen: index1Cycles,
		ReadLen:  read1Cycles,
	}

	if group.Index2Len == 0 {
		if group.Index1Len == index1Cycles {
			return settings, nil
		}
	} else {
		if group.Index1Len == index1Cycles && group.Index2Len == index2Cycles {
			return settings, nil
		}

		request.Index2 = representative.Second()
		request.Index2Len = index2Cycles
		request.Read2Len = read2Cycles
	}

	override, err := OverrideString(request)
	if err != nil {
		return nil, err
	}

	g.logger.Info("override cycles for index length group",
		"lengths", fmt.Sprintf("%d_%d", group.Index1Len, group.Index2Len), "override", override)
	settings[overrideSetting] = override

	return settings, nil
}

// checkPoolDistance warns when a group's combined indexes sit closer than
// the demultiplexer's mismatch tolerance can separate.
func (g *Generator) checkPoolDistance(run *generation, group IndexLengthGroup) {
	if len(group.Samples) < 2 {
		return
	}

	combined := make([]string, len(group.Samples))

	for n, name := range group.Samples {
		index := run.indexes[name]
		combined[n] = index.First() + index.Second()
	}

	if d := barcode.MinDistance(combined); d < minPoolDistance {
		g.logger.Warn("pooled indexes are very close", "flowcell", run.ri.Flowcell,
			"lengths", fmt.Sprintf("%d_%d", group.Index1Len, group.Index2Len), "distance", d)
	}
}

func (g *Generator) writeSheet(run *generation, path string, data samplesheet.Data, settings samplesheet.Section) error {
	sheet := &samplesheet.Sheet{
		Header:   run.header,
		Reads:    run.reads,
		Settings: settings,
		Data:     data,
	}

	if err := sheet.Write(path); err != nil {
		return err
	}

	g.logger.Info("wrote samplesheet", "path", path, "samples", len(data))
	run.written = append(run.written, path)

	return nil
}

func sheetName(run *generation, suffix string) string {
	return filepath.Join(run.out, run.ri.Flowcell+sheetSuffix+suffix+sheetExtension)
}

// bucketIndexes restricts the normalized indexes to the samples that fell to
// other_samples.
func bucketIndexes(indexes map[string]barcode.Index, buckets Buckets) map[string]barcode.Index {
	subset := make(map[string]barcode.Index)

	for _, name := range buckets.SampleNames(OtherSamples) {
		if index, ok := indexes[name]; ok {
			subset[name] = index
		}
	}

	return subset
}

// groupRows picks the bucket rows belonging to the group's samples.
func groupRows(rows samplesheet.Data, group IndexLengthGroup) samplesheet.Data {
	inGroup := make(map[string]bool, len(group.Samples))

	for _, name := range group.Samples {
		inGroup[name] = true
	}

	subset := make(samplesheet.Data)

	for key, row := range rows {
		if inGroup[row[sampleIDColumn]] {
			subset[key] = row
		}
	}

	return subset
}

func copySection(section samplesheet.Section) samplesheet.Section {
	copied := make(samplesheet.Section, len(section))

	for key, value := range section {
		copied[key] = value
	}

	return copied
}
