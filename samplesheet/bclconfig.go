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
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

const (
	ErrNoPlatform = Error("instrument platform cannot be empty")
	ErrNoRunName  = Error("run name cannot be empty")

	defaultFileFormatVersion = 2
	defaultSoftwareVersion   = "4.2.7"
	defaultCompressionFormat = "gzip"

	configIndent = "    "
	configPerm   = 0644
)

// BCLConfig is the config sidecar shared with the pipeline that consumes
// our sheets; its two-key JSON shape is their interface and must not grow
// further top-level keys.
type BCLConfig struct {
	Header   map[string]any `json:"Header"`
	Settings map[string]any `json:"BCLConvert_Settings"`
}

// NewBCLConfig returns a BCLConfig seeded with the standard header and
// settings values for the given instrument platform and run name. Extra
// header or settings values are merged over the seeds, so extras win on key
// collisions.
func NewBCLConfig(platform, runName string, headerExtra, settingsExtra map[string]any) (*BCLConfig, error) {
	if platform == "" {
		return nil, ErrNoPlatform
	}

	if runName == "" {
		return nil, ErrNoRunName
	}

	config := &BCLConfig{
		Header: map[string]any{
			"FileFormatVersion":  defaultFileFormatVersion,
			"InstrumentPlatform": platform,
			"RunName":            runName,
		},
		Settings: map[string]any{
			"SoftwareVersion":        defaultSoftwareVersion,
			"FastqCompressionFormat": defaultCompressionFormat,
		},
	}

	for key, value := range headerExtra {
		config.Header[key] = value
	}

	for key, value := range settingsExtra {
		config.Settings[key] = value
	}

	return config, nil
}

// LoadBCLConfig reads a config sidecar from a JSON file.
func LoadBCLConfig(path string) (*BCLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &BCLConfig{}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save writes the config sidecar as indented JSON.
func (c *BCLConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", configIndent)
	if err != nil {
		return err
	}

	return os.WriteFile(path, append(data, '\n'), configPerm)
}

// HeaderSection renders the header values as a samplesheet section.
func (c *BCLConfig) HeaderSection() Section {
	return toSection(c.Header)
}

// SettingsSection renders the settings values as a samplesheet section.
func (c *BCLConfig) SettingsSection() Section {
	return toSection(c.Settings)
}

func toSection(values map[string]any) Section {
	section := make(Section, len(values))

	for key, value := range values {
		section[key] = valueString(value)
	}

	return section
}

// valueString formats a JSON-typed value for a samplesheet cell. Numbers
// that round-tripped through JSON arrive as float64 and must not grow a
// decimal point.
func valueString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
