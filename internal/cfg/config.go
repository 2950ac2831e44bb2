// Package cfg loads the configuration of the merge train.
// Settings are read from an optional TOML file, the connection parameters of
// the code host are read from environment variables.
package cfg

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/simplesurance/mergetrain/internal/retryer"
	"github.com/simplesurance/mergetrain/internal/train"
)

const (
	ProviderGitlab = "gitlab"
	ProviderGithub = "github"
)

// Defaults of the merge train settings are defined by the train and retryer
// packages.
const (
	DefProvider   = ProviderGitlab
	DefLogFormat  = "logfmt"
	DefLogLevel   = "info"
	DefLogTimeKey = "time_iso8601"
)

// Environment variable names, they are prefixed with the upper-case provider
// name and an underscore, e.g. GITLAB_TOKEN.
const (
	EnvHost    = "HOST"
	EnvToken   = "TOKEN"
	EnvProject = "PROJECT"
	EnvBotName = "BOT_NAME"
)

type Config struct {
	Provider                  string `toml:"provider"`
	Interval                  string `toml:"interval"`
	RebaseLimit               int    `toml:"rebase_limit"`
	CancelStalePipelines      *bool  `toml:"cancel_stale_pipelines"`
	ReassignOnPipelineFailure bool   `toml:"reassign_on_pipeline_failure"`
	RemoveSourceBranch        bool   `toml:"remove_source_branch"`
	CommitLookback            int    `toml:"commit_lookback"`
	FetchConcurrency          int    `toml:"fetch_concurrency"`
	ReadRetryTimeout          string `toml:"read_retry_timeout"`
	EligibilityFilterQuery    string `toml:"eligibility_filter_query"`
	DryRun                    bool   `toml:"dry_run"`

	HTTPListenAddr  string `toml:"http_server_listen_addr"`
	HTTPSListenAddr string `toml:"https_server_listen_addr"`
	HTTPSCertFile   string `toml:"https_ssl_cert_file"`
	HTTPSKeyFile    string `toml:"https_ssl_key_file"`
	HTTPStatusPath  string `toml:"http_status_endpoint"`
	HTTPMetricsPath string `toml:"http_metrics_endpoint"`
	LogFormat       string `toml:"log_format"`
	LogLevel        string `toml:"log_level"`
	LogTimeKey      string `toml:"log_time_key"`

	Host    string `toml:"-"`
	Token   string `toml:"-"`
	Project string `toml:"-"`
	BotName string `toml:"-"`
}

// Load parses a TOML configuration.
// Defaults are not applied.
func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// SetDefaults sets all unset settings to their default values.
func (c *Config) SetDefaults() {
	if c.Provider == "" {
		c.Provider = DefProvider
	}

	if c.Interval == "" {
		c.Interval = train.DefInterval.String()
	}

	if c.RebaseLimit == 0 {
		c.RebaseLimit = train.DefRebaseLimit
	}

	if c.CancelStalePipelines == nil {
		enabled := true
		c.CancelStalePipelines = &enabled
	}

	if c.CommitLookback == 0 {
		c.CommitLookback = train.DefCommitLookback
	}

	if c.FetchConcurrency == 0 {
		c.FetchConcurrency = train.DefFetchConcurrency
	}

	if c.ReadRetryTimeout == "" {
		c.ReadRetryTimeout = retryer.DefTimeout.String()
	}

	if c.HTTPStatusPath == "" {
		c.HTTPStatusPath = "/status"
	}

	if c.HTTPMetricsPath == "" {
		c.HTTPMetricsPath = "/metrics"
	}

	if c.LogFormat == "" {
		c.LogFormat = DefLogFormat
	}

	if c.LogLevel == "" {
		c.LogLevel = DefLogLevel
	}

	if c.LogTimeKey == "" {
		c.LogTimeKey = DefLogTimeKey
	}
}

// EnvPrefix returns the prefix of the environment variables of the
// configured provider.
func (c *Config) EnvPrefix() string {
	return strings.ToUpper(c.Provider) + "_"
}

// LoadEnv reads the code host connection settings from the environment.
// All of them are required.
func (c *Config) LoadEnv(getenv func(string) string) error {
	var missing []string

	get := func(name string) string {
		key := c.EnvPrefix() + name
		val := getenv(key)
		if val == "" {
			missing = append(missing, key)
		}

		return val
	}

	c.Host = get(EnvHost)
	c.Token = get(EnvToken)
	c.Project = get(EnvProject)
	c.BotName = get(EnvBotName)

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}

	return nil
}

// Validate returns an error if a setting has an invalid value.
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderGitlab, ProviderGithub:
	default:
		errs = append(errs, fmt.Errorf("provider: unsupported value %q, supported values: %s, %s", c.Provider, ProviderGitlab, ProviderGithub))
	}

	if d, err := time.ParseDuration(c.Interval); err != nil {
		errs = append(errs, fmt.Errorf("interval: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("interval: must be positive, is %s", d))
	}

	if d, err := time.ParseDuration(c.ReadRetryTimeout); err != nil {
		errs = append(errs, fmt.Errorf("read_retry_timeout: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("read_retry_timeout: must be positive, is %s", d))
	}

	if c.RebaseLimit < 1 {
		errs = append(errs, fmt.Errorf("rebase_limit: must be positive, is %d", c.RebaseLimit))
	}

	if c.CommitLookback < 1 {
		errs = append(errs, fmt.Errorf("commit_lookback: must be positive, is %d", c.CommitLookback))
	}

	if c.FetchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("fetch_concurrency: must be positive, is %d", c.FetchConcurrency))
	}

	if c.HTTPSListenAddr != "" && (c.HTTPSCertFile == "" || c.HTTPSKeyFile == "") {
		errs = append(errs, errors.New("https_server_listen_addr is set, https_ssl_cert_file and https_ssl_key_file must also be set"))
	}

	return errors.Join(errs...)
}

// PassInterval returns the parsed Interval setting.
// It must only be called on validated configurations.
func (c *Config) PassInterval() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// ReadRetryTimeoutDuration returns the parsed ReadRetryTimeout setting.
// It must only be called on validated configurations.
func (c *Config) ReadRetryTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReadRetryTimeout)
	return d
}

// Marshal writes the configuration as TOML to writer.
// Settings that are read from environment variables are omitted.
func (c *Config) Marshal(writer io.Writer) error {
	return toml.NewEncoder(writer).Encode(c)
}
