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

package metadata

import (
	"sync"
	"time"

	"github.com/FrancisCrickInstitute/asf-tools/lims"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	flowcellKeyPrefix = "flowcell."
	ontKeyPrefix      = "ont."
)

// WarehouseClient is the LIMS warehouse side of a metadata Client.
// lims.Client satisfies this.
type WarehouseClient interface {
	// SamplesForFlowcell returns all samples loaded on the given flowcell.
	SamplesForFlowcell(flowcellID string) (lims.Samples, error)

	// SamplesForONTRun returns all samples on the given nanopore run.
	SamplesForONTRun(runID string) (lims.Samples, error)

	// Close closes the connection to the LIMS warehouse.
	Close() error
}

// ManifestClient is the manifest spreadsheet side of a metadata Client.
// sheets.Manifest satisfies this.
type ManifestClient interface {
	// SamplesForFlowcell returns the manifest samples assigned to the given
	// flowcell.
	SamplesForFlowcell(flowcellID string) (lims.Samples, error)

	// SamplesForONTRun returns the manifest samples on the given nanopore
	// run.
	SamplesForONTRun(runID string) (lims.Samples, error)
}

// cache ages each key separately, since one Client serves many runs and a
// fresh store for one flowcell must not make another's look current.
type cache struct {
	samples    map[string]lims.Samples
	updated    map[string]time.Time
	lastUpdate time.Time
	lifetime   time.Duration
	mu         sync.RWMutex
}

func newCache(lifetime time.Duration) *cache {
	return &cache{
		samples:  make(map[string]lims.Samples),
		updated:  make(map[string]time.Time),
		lifetime: lifetime,
	}
}

func (c *cache) getData(key string) (bool, lims.Samples) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached := c.updated[key].Add(c.lifetime).After(time.Now())
	data := c.samples[key]

	return cached, data
}

func (c *cache) storeData(key string, data lims.Samples) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	c.samples[key] = data
	c.updated[key] = now
	c.lastUpdate = now
}

func (c *cache) lastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastUpdate
}

// Client serves per-run sample metadata by merging the LIMS warehouse with
// the facility's manifest spreadsheet. The warehouse is authoritative; the
// manifest supplies samples the LIMS has not caught up with yet.
type Client struct {
	wc         WarehouseClient
	mc         ManifestClient
	cache      *cache
	prefetched map[string]bool

	stopCh chan struct{}
	stopMu sync.RWMutex

	err   error
	errMu sync.RWMutex
}

// ClientOptions are options for creating a new Client.
type ClientOptions struct {
	// CacheLifetime is the maximum age of cached results.
	CacheLifetime time.Duration

	// PrefetchFlowcells fetches SamplesForFlowcell() results for the given
	// flowcells every CacheLifetime so that you never have to wait for a
	// query and they're as fresh as possible. Errors are not returned, but
	// can be checked with Err().
	PrefetchFlowcells []string
}

// New returns a new Client that merges sample metadata from the given
// warehouse and manifest. Either source may be nil to run from the other
// alone.
func New(wc WarehouseClient, mc ManifestClient, opts ClientOptions) *Client {
	c := &Client{
		wc:         wc,
		mc:         mc,
		cache:      newCache(opts.CacheLifetime),
		prefetched: make(map[string]bool, len(opts.PrefetchFlowcells)),
	}

	for _, flowcellID := range opts.PrefetchFlowcells {
		c.prefetched[flowcellKeyPrefix+flowcellID] = true
	}

	if len(opts.PrefetchFlowcells) > 0 && opts.CacheLifetime > 0 {
		c.asyncForFlowcells(opts.PrefetchFlowcells)
		go c.prefetch(opts.CacheLifetime, opts.PrefetchFlowcells)
	}

	return c
}

func (c *Client) asyncForFlowcells(flowcells []string) {
	for _, flowcellID := range flowcells {
		result, err := c.freshFlowcellQuery(flowcellID)

		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()

		if err != nil {
			return
		}

		c.cache.storeData(flowcellKeyPrefix+flowcellID, result)
	}
}

func (c *Client) prefetch(sleepTime time.Duration, flowcells []string) {
	c.stopMu.Lock()
	stopCh := make(chan struct{})
	c.stopCh = stopCh
	c.stopMu.Unlock()

	ticker := time.NewTicker(sleepTime)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.asyncForFlowcells(flowcells)
		case <-stopCh:
			return
		}
	}
}

// Err returns the last error that occurred during prefetching (ie. errors
// from querying flowcells in the background). Successful prefetches clear
// the error.
func (c *Client) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.err
}

// LastPrefetchSuccess returns the time of the last successful prefetch. If
// no prefetch has succeeded yet, the zero time is returned.
func (c *Client) LastPrefetchSuccess() time.Time {
	return c.cache.lastUpdated()
}

// SamplesForFlowcell returns the merged warehouse and manifest samples for
// the given flowcell. It caches queries, so results can be up to
// CacheLifetime old.
//
// For flowcells you have prefetching enabled for, this always returns
// immediately with the result of the last successful prefetch, which might
// have been longer than CacheLifetime ago, if the last actual prefetch
// failed (see Err()).
func (c *Client) SamplesForFlowcell(flowcellID string) (lims.Samples, error) {
	return c.cachedSamples(flowcellKeyPrefix+flowcellID, func() (lims.Samples, error) {
		return c.freshFlowcellQuery(flowcellID)
	})
}

// SamplesForONTRun returns the merged warehouse and manifest samples for
// the given nanopore run. It caches queries, so results can be up to
// CacheLifetime old.
func (c *Client) SamplesForONTRun(runID string) (lims.Samples, error) {
	return c.cachedSamples(ontKeyPrefix+runID, func() (lims.Samples, error) {
		return c.freshONTQuery(runID)
	})
}

func (c *Client) cachedSamples(key string, fresh func() (lims.Samples, error)) (lims.Samples, error) {
	cached, result := c.cache.getData(key)

	if cached || c.prefetched[key] {
		return result, nil
	}

	result, err := fresh()
	if err != nil {
		return nil, err
	}

	c.cache.storeData(key, result)

	return result, nil
}

func (c *Client) freshFlowcellQuery(flowcellID string) (lims.Samples, error) {
	return c.freshQuery(
		func() (lims.Samples, error) { return c.wc.SamplesForFlowcell(flowcellID) },
		func() (lims.Samples, error) { return c.mc.SamplesForFlowcell(flowcellID) },
	)
}

func (c *Client) freshONTQuery(runID string) (lims.Samples, error) {
	return c.freshQuery(
		func() (lims.Samples, error) { return c.wc.SamplesForONTRun(runID) },
		func() (lims.Samples, error) { return c.mc.SamplesForONTRun(runID) },
	)
}

// freshQuery runs the warehouse and manifest sides of a query, skipping
// whichever source the Client was created without, and merges the results.
func (c *Client) freshQuery(warehouse, manifest func() (lims.Samples, error)) (lims.Samples, error) {
	var warehouseSamples, manifestSamples lims.Samples

	var err error

	if c.wc != nil {
		if warehouseSamples, err = warehouse(); err != nil {
			return nil, err
		}
	}

	if c.mc != nil {
		if manifestSamples, err = manifest(); err != nil {
			return nil, err
		}
	}

	return mergeSamples(warehouseSamples, manifestSamples), nil
}

// mergeSamples appends to the warehouse samples any manifest sample whose
// name the warehouse does not know. Where both know a name, the warehouse
// record wins.
func mergeSamples(warehouse, manifest lims.Samples) lims.Samples {
	seen := make(map[string]bool, len(warehouse))

	merged := make(lims.Samples, 0, len(warehouse)+len(manifest))

	for _, sample := range warehouse {
		seen[sample.Name] = true

		merged = append(merged, sample)
	}

	for _, sample := range manifest {
		if !seen[sample.Name] {
			merged = append(merged, sample)
		}
	}

	return merged
}

// Close closes the warehouse connection and stops prefetching.
func (c *Client) Close() error {
	var err error

	if c.wc != nil {
		err = c.wc.Close()
	}

	c.stopMu.Lock()
	defer c.stopMu.Unlock()

	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}

	return err
}
