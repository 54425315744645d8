// Copyright 2024 The Conveyor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/conveyorci/conveyor/internal/sqlg/sql"
)

func validConfig() *Config {
	c := defaultConfig()
	c.DB = DB{Type: sql.Sqlite3, ConnString: "/var/lib/conveyor/db"}

	return c
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config func() *Config
		err    string
	}{
		{
			name:   "valid default config",
			config: validConfig,
		},
		{
			name: "empty listen address",
			config: func() *Config {
				c := validConfig()
				c.Web.ListenAddress = ""
				return c
			},
			err: "listen address undefined",
		},
		{
			name: "tls without key file",
			config: func() *Config {
				c := validConfig()
				c.Web.TLS = true
				c.Web.TLSCertFile = "/etc/conveyor/cert.pem"
				return c
			},
			err: "no tls key file specified",
		},
		{
			name: "tls without cert file",
			config: func() *Config {
				c := validConfig()
				c.Web.TLS = true
				c.Web.TLSKeyFile = "/etc/conveyor/key.pem"
				return c
			},
			err: "no tls cert file specified",
		},
		{
			name: "undefined db type",
			config: func() *Config {
				c := validConfig()
				c.DB.Type = ""
				return c
			},
			err: "db type undefined",
		},
		{
			name: "unknown db type",
			config: func() *Config {
				c := validConfig()
				c.DB.Type = "mysql"
				return c
			},
			err: `unknown db type: "mysql"`,
		},
		{
			name: "empty db connection string",
			config: func() *Config {
				c := validConfig()
				c.DB.ConnString = ""
				return c
			},
			err: "db connection string undefined",
		},
		{
			name: "unknown git provider type",
			config: func() *Config {
				c := validConfig()
				c.GitProvider.Type = "bitbucket"
				return c
			},
			err: `unknown git provider type: "bitbucket"`,
		},
		{
			name: "gitea without api url",
			config: func() *Config {
				c := validConfig()
				c.GitProvider.Type = GitProviderTypeGitea
				return c
			},
			err: "git provider api url undefined",
		},
		{
			name: "github without api url",
			config: func() *Config {
				c := validConfig()
				c.GitProvider.Type = GitProviderTypeGithub
				return c
			},
		},
		{
			name: "zero deployment workers",
			config: func() *Config {
				c := validConfig()
				c.Deployment.Workers = 0
				return c
			},
			err: "deployment workers must be greater than zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.config())

			if tt.err != "" {
				assert.Error(t, err, tt.err)
			} else {
				assert.NilError(t, err)
			}
		})
	}
}
