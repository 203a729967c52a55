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

package config

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvVarCreds   = "ASF_TOOLS_CREDENTIALS_FILE"
	EnvVarSheet   = "ASF_TOOLS_SPREADSHEET_ID"
	EnvVarDBUser  = "ASF_TOOLS_SQL_USER"
	EnvVarDBPass  = "ASF_TOOLS_SQL_PASS"
	EnvVarDBHost  = "ASF_TOOLS_SQL_HOST"
	EnvVarDBPort  = "ASF_TOOLS_SQL_PORT"
	EnvVarDBName  = "ASF_TOOLS_SQL_DB"
	EnvVarWebhook = "ASF_TOOLS_SLACK_WEBHOOK"
)

type Error string

func (e Error) Error() string { return string(e) }

const ErrMissingEnvs = Error("missing required environment variables")

// Config holds the service connection details every asf-tools command needs:
// the LIMS warehouse database, the Google service account reading the
// facility manifest spreadsheet, and optionally a Slack webhook for run
// notifications.
type Config struct {
	CredentialsPath string
	SheetID         string
	DBUser          string
	DBPassword      string
	DBHost          string
	DBPort          string
	DBName          string
	SlackWebhook    string
}

// FromEnv returns a new Config with properties populated from environment
// variables ASF_TOOLS_*, where * is amongst: CREDENTIALS_FILE,
// SPREADSHEET_ID, SQL_USER, SQL_PASS, SQL_HOST, SQL_PORT and SQL_DB, which
// are all required, and SLACK_WEBHOOK, which is optional.
//
// If these environment variables are defined in a file called .env (and not
// previously set in an environment variable), they will be automatically
// loaded.
//
// Optionally supply a directory to look for the .env file in.
func FromEnv(dir ...string) (*Config, error) {
	var parentDir string
	if len(dir) == 1 {
		parentDir = dir[0] + string(os.PathSeparator)
	}

	godotenv.Load(parentDir + ".env")

	config := &Config{
		CredentialsPath: os.Getenv(EnvVarCreds),
		SheetID:         os.Getenv(EnvVarSheet),
		DBUser:          os.Getenv(EnvVarDBUser),
		DBPassword:      os.Getenv(EnvVarDBPass),
		DBHost:          os.Getenv(EnvVarDBHost),
		DBPort:          os.Getenv(EnvVarDBPort),
		DBName:          os.Getenv(EnvVarDBName),
		SlackWebhook:    os.Getenv(EnvVarWebhook),
	}

	if config.CredentialsPath == "" || config.SheetID == "" ||
		config.DBUser == "" || config.DBPassword == "" ||
		config.DBHost == "" || config.DBPort == "" || config.DBName == "" {
		return nil, ErrMissingEnvs
	}

	return config, nil
}
