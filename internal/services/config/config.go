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
	"os"

	"github.com/sorintlab/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/conveyorci/conveyor/internal/sqlg/sql"
)

type Config struct {
	// ID defines the conveyor installation id. It's used to uniquely
	// distinguish this installation from others. Defaults to "conveyor".
	ID string `yaml:"id"`

	Debug bool `yaml:"debug"`

	Web Web `yaml:"web"`

	DB DB `yaml:"db"`

	// APIExposedURL is the api exposed url i.e. https://conveyor.example.com,
	// used when generating links pointing back to this installation.
	APIExposedURL string `yaml:"apiExposedURL"`

	GitProvider GitProvider `yaml:"gitProvider"`

	Chat     Chat     `yaml:"chat"`
	Email    Email    `yaml:"email"`
	Progress Progress `yaml:"progress"`

	Deployment Deployment `yaml:"deployment"`
}

type Web struct {
	// http listen addess
	ListenAddress string `yaml:"listenAddress"`

	// use TLS (https)
	TLS bool `yaml:"tls"`
	// TLSCert is the path to the pem formatted server certificate. If the
	// certificate is signed by a certificate authority, the certFile should be
	// the concatenation of the server's certificate, any intermediates, and the
	// CA's certificate.
	TLSCertFile string `yaml:"tlsCertFile"`
	// Server cert private key
	TLSKeyFile string `yaml:"tlsKeyFile"`

	// CORS allowed origins
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type DB struct {
	Type       sql.Type `yaml:"type"`
	ConnString string   `yaml:"connString"`
}

type GitProviderType string

const (
	GitProviderTypeGitea  GitProviderType = "gitea"
	GitProviderTypeGithub GitProviderType = "github"
	GitProviderTypeGitlab GitProviderType = "gitlab"
)

func (t GitProviderType) IsValid() bool {
	switch t {
	case GitProviderTypeGitea, GitProviderTypeGithub, GitProviderTypeGitlab:
		return true
	}
	return false
}

type GitProvider struct {
	Type GitProviderType `yaml:"type"`

	// APIURL is the provider api url. May be left empty for github.com.
	APIURL     string `yaml:"apiURL"`
	Token      string `yaml:"token"`
	SkipVerify bool   `yaml:"skipVerify"`

	// StatusContext is the commit status context reported to the provider.
	// Defaults to "conveyor".
	StatusContext string `yaml:"statusContext"`
}

type Chat struct {
	WebhookURL    string `yaml:"webhookURL"`
	WebhookSecret string `yaml:"webhookSecret"`
}

type Email struct {
	SMTPAddr string `yaml:"smtpAddr"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Progress struct {
	WebhookURL    string `yaml:"webhookURL"`
	WebhookSecret string `yaml:"webhookSecret"`
}

type Deployment struct {
	EndpointURL string `yaml:"endpointURL"`
	Token       string `yaml:"token"`

	// Workers is the number of concurrent deploy job workers. Defaults to 1.
	Workers int `yaml:"workers"`
}

var defaultConfig = func() *Config {
	return &Config{
		ID: "conveyor",
		Web: Web{
			ListenAddress: ":4000",
		},
		GitProvider: GitProvider{
			StatusContext: "conveyor",
		},
		Deployment: Deployment{
			Workers: 1,
		},
	}
}

func Parse(configFile string) (*Config, error) {
	configData, err := os.ReadFile(configFile)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	c := defaultConfig()
	if err := yaml.Unmarshal(configData, &c); err != nil {
		return nil, errors.WithStack(err)
	}

	return c, Validate(c)
}

func Validate(c *Config) error {
	if c.Web.ListenAddress == "" {
		return errors.Errorf("listen address undefined")
	}
	if c.Web.TLS {
		if c.Web.TLSKeyFile == "" {
			return errors.Errorf("no tls key file specified")
		}
		if c.Web.TLSCertFile == "" {
			return errors.Errorf("no tls cert file specified")
		}
	}

	switch c.DB.Type {
	case sql.Postgres, sql.Sqlite3:
	case "":
		return errors.Errorf("db type undefined")
	default:
		return errors.Errorf("unknown db type: %q", c.DB.Type)
	}
	if c.DB.ConnString == "" {
		return errors.Errorf("db connection string undefined")
	}

	if c.GitProvider.Type != "" && !c.GitProvider.Type.IsValid() {
		return errors.Errorf("unknown git provider type: %q", c.GitProvider.Type)
	}
	if c.GitProvider.Type == GitProviderTypeGitea || c.GitProvider.Type == GitProviderTypeGitlab {
		if c.GitProvider.APIURL == "" {
			return errors.Errorf("git provider api url undefined")
		}
	}

	if c.Deployment.Workers < 1 {
		return errors.Errorf("deployment workers must be greater than zero")
	}

	return nil
}
