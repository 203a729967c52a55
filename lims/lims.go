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

package lims

import (
	"database/sql"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/FrancisCrickInstitute/asf-tools/config"
	"github.com/go-sql-driver/mysql"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNoSample = Error("sample not found")

	sqlDriverName   = "mysql"
	sqlNetwork      = "tcp"
	connMaxLifetime = time.Minute * 3
	maxOpenConns    = 10
	maxIdleConns    = 10

	laneSeparator = ","
)

// Sample holds the per-sample metadata needed to build demultiplexing
// samplesheets: submission identity, project classification and the reagent
// barcode. Classification and barcode fields can legitimately be blank for
// control samples.
type Sample struct {
	Name             string
	Group            string
	User             string
	ProjectID        string
	ProjectLIMSID    string
	ProjectType      string
	ReferenceGenome  string
	DataAnalysisType string
	Barcode          string
	Lanes            []string
}

// Samples is a slice of Sample, with helpers for keyed access.
type Samples []Sample

// Names returns the sample names in sorted order.
func (s Samples) Names() []string {
	names := make([]string, len(s))

	for i, sample := range s {
		names[i] = sample.Name
	}

	sort.Strings(names)

	return names
}

// ByName returns the samples keyed by sample name. Later duplicates replace
// earlier ones.
func (s Samples) ByName() map[string]Sample {
	byName := make(map[string]Sample, len(s))

	for _, sample := range s {
		byName[sample.Name] = sample
	}

	return byName
}

// Get returns the sample with the given name, or ErrNoSample.
func (s Samples) Get(name string) (Sample, error) {
	for _, sample := range s {
		if sample.Name == name {
			return sample, nil
		}
	}

	return Sample{}, ErrNoSample
}

// Client is a connection to the LIMS warehouse database.
type Client struct {
	pool *sql.DB
}

// MySQLConfigFromConfig converts our environment-based Config in to the
// mysql.Config needed by New().
func MySQLConfigFromConfig(c *config.Config) *mysql.Config {
	conf := mysql.NewConfig()
	conf.User = c.DBUser
	conf.Passwd = c.DBPassword
	conf.Net = sqlNetwork
	conf.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
	conf.DBName = c.DBName

	return conf
}

// New returns a new Client connected to the LIMS warehouse using mysql.Config
// that you can get from MySQLConfigFromConfig(config.FromEnv()).
func New(c *mysql.Config) (*Client, error) {
	pool, err := sql.Open(sqlDriverName, c.FormatDSN())
	if err != nil {
		return nil, err
	}

	pool.SetConnMaxLifetime(connMaxLifetime)
	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxIdleConns)

	return &Client{pool: pool}, pool.Ping()
}

const getFlowcellSamples = `
SELECT sa.name as SampleName, lab.name as LabName,
CONCAT(re.first_name, ' ', re.last_name) as UserName,
pr.name as ProjectID, pr.luid as ProjectLIMSID,
pr.project_type as ProjectType, pr.reference_genome as ReferenceGenome,
pr.data_analysis_type as DataAnalysisType, art.reagent_label as Barcode,
GROUP_CONCAT(DISTINCT pl.lane ORDER BY pl.lane) as Lanes
FROM flowcell fc
JOIN placement pl on pl.flowcell_id = fc.id
JOIN artifact art on art.id = pl.artifact_id
JOIN sample sa on sa.id = art.sample_id
JOIN project pr on pr.id = sa.project_id
JOIN researcher re on re.id = sa.submitter_id
JOIN lab on lab.id = re.lab_id
WHERE fc.name = ?
GROUP BY sa.name, lab.name, UserName, pr.name, pr.luid, pr.project_type,
pr.reference_genome, pr.data_analysis_type, art.reagent_label
`

// SamplesForFlowcell returns all samples placed on the flowcell with the given
// id, one Sample per pool member with its lane placements gathered together.
func (c *Client) SamplesForFlowcell(flowcellID string) (Samples, error) {
	return c.querySamples(getFlowcellSamples, flowcellID)
}

const getONTRunSamples = `
SELECT sa.name as SampleName, lab.name as LabName,
CONCAT(re.first_name, ' ', re.last_name) as UserName,
pr.name as ProjectID, pr.luid as ProjectLIMSID,
pr.project_type as ProjectType, pr.reference_genome as ReferenceGenome,
pr.data_analysis_type as DataAnalysisType, art.reagent_label as Barcode,
'' as Lanes
FROM ont_run run
JOIN artifact art on art.ont_run_id = run.id
JOIN sample sa on sa.id = art.sample_id
JOIN project pr on pr.id = sa.project_id
JOIN researcher re on re.id = sa.submitter_id
JOIN lab on lab.id = re.lab_id
WHERE run.experiment_name = ?
`

// SamplesForONTRun returns all samples loaded on the nanopore run with the
// given experiment name. ONT flowcells have no lane placements, and barcodes
// are absent for unmultiplexed runs.
func (c *Client) SamplesForONTRun(runID string) (Samples, error) {
	return c.querySamples(getONTRunSamples, runID)
}

func (c *Client) querySamples(query, id string) (Samples, error) {
	rows, err := c.pool.Query(query, id)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var samples Samples

	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}

		samples = append(samples, sample)
	}

	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// scanSample reads one result row. Classification columns, the barcode and
// the lane list are nullable in the warehouse.
func scanSample(rows *sql.Rows) (Sample, error) {
	var sample Sample

	var projectType, referenceGenome, dataAnalysisType, barcode, lanes sql.NullString

	if err := rows.Scan(
		&sample.Name,
		&sample.Group,
		&sample.User,
		&sample.ProjectID,
		&sample.ProjectLIMSID,
		&projectType,
		&referenceGenome,
		&dataAnalysisType,
		&barcode,
		&lanes,
	); err != nil {
		return Sample{}, err
	}

	sample.ProjectType = projectType.String
	sample.ReferenceGenome = referenceGenome.String
	sample.DataAnalysisType = dataAnalysisType.String
	sample.Barcode = barcode.String
	sample.Lanes = SplitLanes(lanes.String)

	return sample, nil
}

// SplitLanes converts a comma-joined lane list as stored in the warehouse in
// to individual lane values. Blank input yields no lanes.
func SplitLanes(lanes string) []string {
	if lanes == "" {
		return nil
	}

	return strings.Split(lanes, laneSeparator)
}

// Close closes the connection to the LIMS warehouse.
func (c *Client) Close() error {
	return c.pool.Close()
}
