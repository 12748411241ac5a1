package server

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cyclopcam/dbh"

	"github.com/forgeyard/forgeyard/server/deploy"
)

// DefaultMaxProjectNameLen bounds user-supplied project names.
const DefaultMaxProjectNameLen = 32

// Config is the JSON config file of the service.
// Every field without a stated default is required; a missing field is a
// fatal startup error.
type Config struct {
	ListenIP   string `json:"listenIP"`
	ListenPort int    `json:"listenPort"`
	// Workers caps the number of OS threads executing Go code (GOMAXPROCS).
	// 0 leaves the runtime default.
	Workers int `json:"workers"`

	// BaseDomain is where installed applications are exposed
	// (https://<canonical>-rpc.<baseDomain>, wss://<canonical>.<baseDomain>).
	BaseDomain string `json:"baseDomain"`
	// BaseRepoDomain is where the fronting git server is exposed
	// (https://git.<baseRepoDomain>/<canonical>.git).
	BaseRepoDomain string `json:"baseRepoDomain"`
	// BaseRepoDir is the directory holding all hosted bare repositories.
	BaseRepoDir string `json:"baseRepoDir"`
	// RepoOwner is the "user:group" applied to provisioned repositories.
	// Empty skips the chown (for deployments that don't run as root).
	RepoOwner string `json:"repoOwner"`

	MaxProjectNameLen int `json:"maxProjectNameLen"` // 0 = DefaultMaxProjectNameLen

	// TokenSecret keys the HMAC under which bearer tokens are stored.
	TokenSecret string `json:"tokenSecret"`
	// PasswordSalt is the process-wide salt of the legacy password hash format.
	PasswordSalt string `json:"passwordSalt"`

	DB       dbh.DBConfig          `json:"db"`
	Jenkins  deploy.JenkinsConfig  `json:"jenkins"`
	Deployer deploy.DeployerConfig `json:"deployer"`
}

// LoadConfig reads and validates the JSON config file.
func LoadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg := Config{}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("Error parsing config file %v: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid config file %v: %w", filename, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	required := []struct {
		name  string
		empty bool
	}{
		{"listenIP", c.ListenIP == ""},
		{"listenPort", c.ListenPort == 0},
		{"baseDomain", c.BaseDomain == ""},
		{"baseRepoDomain", c.BaseRepoDomain == ""},
		{"baseRepoDir", c.BaseRepoDir == ""},
		{"tokenSecret", c.TokenSecret == ""},
		{"passwordSalt", c.PasswordSalt == ""},
		{"db.driver", c.DB.Driver == ""},
		{"db.database", c.DB.Database == ""},
		{"jenkins.api", c.Jenkins.API == ""},
		{"jenkins.user", c.Jenkins.User == ""},
		{"jenkins.token", c.Jenkins.Token == ""},
		{"jenkins.jobName", c.Jenkins.JobName == ""},
		{"deployer.api", c.Deployer.API == ""},
		{"deployer.user", c.Deployer.User == ""},
		{"deployer.password", c.Deployer.Password == ""},
	}
	for _, f := range required {
		if f.empty {
			return fmt.Errorf("required config option %v is not set", f.name)
		}
	}
	return nil
}

func (c *Config) maxProjectNameLen() int {
	if c.MaxProjectNameLen != 0 {
		return c.MaxProjectNameLen
	}
	return DefaultMaxProjectNameLen
}
