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
)

// Override describes one index read reconciled against the instrument's
// configured cycles: the observed index length, the dark cycle padding
// needed to fill the configured index cycles, and the configured read
// length.
type Override struct {
	Observed int
	Padding  int
	ReadLen  int
}

// Calculate reconciles an observed index sequence with the configured index
// and read cycle counts. An empty index or negative cycle count is an
// invalid call; an index longer than the configured index cycles fails with
// ErrIndexTooLong, which means the sample metadata does not belong to this
// run.
func Calculate(index string, indexCycles, readCycles int) (Override, error) {
	if index == "" {
		return Override{}, ErrNoIndex
	}

	if indexCycles < 0 || readCycles < 0 {
		return Override{}, ErrNegativeCycles
	}

	padding := indexCycles - len(index)
	if padding < 0 {
		return Override{}, fmt.Errorf("%w: index %q against %d cycles", ErrIndexTooLong, index, indexCycles)
	}

	return Override{
		Observed: len(index),
		Padding:  padding,
		ReadLen:  readCycles,
	}, nil
}

// OverrideRequest carries the inputs for one OverrideCycles directive. The
// three second-index fields are set together for a dual-index pool and all
// left zero for a single-index one.
type OverrideRequest struct {
	Index     string
	IndexLen  int
	ReadLen   int
	Index2    string
	Index2Len int
	Read2Len  int
}

func (req OverrideRequest) dualIndex() bool {
	return req.Index2 != "" || req.Index2Len != 0 || req.Read2Len != 0
}

func (req OverrideRequest) partialIndex2() bool {
	return req.Index2 == "" || req.Index2Len == 0 || req.Read2Len == 0
}

// OverrideString formats the OverrideCycles directive for a pool whose index
// lengths differ from the instrument's configured cycles.
//
// Single index: N{configured index}Y{read};I{observed};N{configured
// index}Y{read}. Dual index: Y{read};{block1};{block2};Y{read2} where each
// index block is I{observed}, with N{padding} appended only when padding is
// needed. Supplying only some of the second-index fields is an invalid call.
func OverrideString(req OverrideRequest) (string, error) {
	first, err := Calculate(req.Index, req.IndexLen, req.ReadLen)
	if err != nil {
		return "", err
	}

	if !req.dualIndex() {
		return fmt.Sprintf("N%dY%d;I%d;N%dY%d",
			req.IndexLen, req.ReadLen, first.Observed, req.IndexLen, req.ReadLen), nil
	}

	if req.partialIndex2() {
		return "", ErrPartialIndex2
	}

	second, err := Calculate(req.Index2, req.Index2Len, req.Read2Len)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Y%d;%s;%s;Y%d",
		req.ReadLen, indexBlock(first), indexBlock(second), req.Read2Len), nil
}

func indexBlock(o Override) string {
	if o.Padding == 0 {
		return fmt.Sprintf("I%d", o.Observed)
	}

	return fmt.Sprintf("I%dN%d", o.Observed, o.Padding)
}
