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

// package slurm asks the SLURM scheduler about the state of our pipeline
// jobs by parsing squeue output.

package slurm

import (
	"os"
	"os/exec"
	"strings"
)

// DefaultExecutable is used to query the scheduler when no explicit path is
// supplied; it must be on the PATH.
const DefaultExecutable = "squeue"

const (
	queueFormat = "%.8i %.7P %.52j %.8u %.2t %.10M %.6D %R"

	nameColumn  = 2
	stateColumn = 4

	stateRunning    = "R"
	stateCompleting = "CG"
	statePending    = "PD"
)

// Status is the queue state of a job: StatusRunning, StatusQueued, or
// StatusNotFound for jobs absent from the queue.
type Status string

const (
	StatusNotFound Status = ""
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
)

// ParseQueueOutput finds the named job in squeue output formatted with
// queueFormat and returns its Status. Jobs in state R or CG count as running
// and PD as queued; anything else, including a job not listed at all, is
// StatusNotFound.
func ParseQueueOutput(out, jobName string) Status {
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Fields(line)
		if len(parts) <= stateColumn {
			continue
		}

		if parts[nameColumn] != jobName {
			continue
		}

		switch parts[stateColumn] {
		case stateRunning, stateCompleting:
			return StatusRunning
		case statePending:
			return StatusQueued
		}
	}

	return StatusNotFound
}

// Client queries the scheduler for the jobs of a single user.
type Client struct {
	exe  string
	user string
}

// New returns a Client that will report on jobs submitted by the given user.
// An empty exe falls back to DefaultExecutable.
func New(user, exe string) *Client {
	if exe == "" {
		exe = DefaultExecutable
	}

	return &Client{exe: exe, user: user}
}

// JobStatus runs squeue and returns the queue state of the named job.
func (c *Client) JobStatus(jobName string) (Status, error) {
	out, err := exec.Command(c.exe, "-u", c.user, "--format", queueFormat).Output()
	if err != nil {
		return StatusNotFound, err
	}

	return ParseQueueOutput(string(out), jobName), nil
}

// FileQueue reads a saved squeue listing instead of running the command. It
// answers JobStatus like Client does, for offline use and tests.
type FileQueue struct {
	Path string
}

// JobStatus returns the queue state of the named job according to the saved
// listing.
func (f FileQueue) JobStatus(jobName string) (Status, error) {
	out, err := os.ReadFile(f.Path)
	if err != nil {
		return StatusNotFound, err
	}

	return ParseQueueOutput(string(out), jobName), nil
}
