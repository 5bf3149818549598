package tiledb

import (
	"strconv"
	"strings"

	"github.com/wippyai/tiledb-go/errors"
)

func (c *Config) getBool(key string) (bool, error) {
	v, err := c.Get(key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, key)
	}
	return b, nil
}

func (c *Config) setBool(key string, v bool) error {
	return c.Set(key, strconv.FormatBool(v))
}

func (c *Config) getUint(key string) (uint64, error) {
	v, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, key)
	}
	return n, nil
}

func (c *Config) setUint(key string, v uint64) error {
	return c.Set(key, strconv.FormatUint(v, 10))
}

func (c *Config) getInt(key string) (int64, error) {
	v, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, key)
	}
	return n, nil
}

func (c *Config) getFloat(key string) (float64, error) {
	v, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, key)
	}
	return f, nil
}

// ConfigOptions groups the config.* parameters.
type ConfigOptions struct {
	cfg *Config
}

func (c *Config) Options() ConfigOptions { return ConfigOptions{cfg: c} }

// LoggingLevel is 0 when logging is off, 1 for fatal up to 5 for debug.
func (o ConfigOptions) LoggingLevel() (uint64, error) {
	return o.cfg.getUint("config.logging_level")
}

func (o ConfigOptions) SetLoggingLevel(level uint64) error {
	return o.cfg.setUint("config.logging_level", level)
}

// LoggingFormat is DEFAULT or JSON.
func (o ConfigOptions) LoggingFormat() (string, error) {
	return o.cfg.Get("config.logging_format")
}

func (o ConfigOptions) SetLoggingFormat(format string) error {
	return o.cfg.Set("config.logging_format", format)
}

// EnvVarPrefix is prepended to environment variable names consulted for
// unset parameters.
func (o ConfigOptions) EnvVarPrefix() (string, error) {
	return o.cfg.Get("config.env_var_prefix")
}

func (o ConfigOptions) SetEnvVarPrefix(prefix string) error {
	return o.cfg.Set("config.env_var_prefix", prefix)
}

// RestConfig groups the rest.* parameters.
type RestConfig struct {
	cfg *Config
}

func (c *Config) Rest() RestConfig { return RestConfig{cfg: c} }

func (r RestConfig) ServerAddress() (string, error) { return r.cfg.Get("rest.server_address") }
func (r RestConfig) SetServerAddress(v string) error {
	return r.cfg.Set("rest.server_address", v)
}

// ServerSerializationFormat is CAPNP or JSON.
func (r RestConfig) ServerSerializationFormat() (string, error) {
	return r.cfg.Get("rest.server_serialization_format")
}

func (r RestConfig) SetServerSerializationFormat(v string) error {
	return r.cfg.Set("rest.server_serialization_format", v)
}

func (r RestConfig) Username() (string, error)  { return r.cfg.Get("rest.username") }
func (r RestConfig) SetUsername(v string) error { return r.cfg.Set("rest.username", v) }
func (r RestConfig) Password() (string, error)  { return r.cfg.Get("rest.password") }
func (r RestConfig) SetPassword(v string) error { return r.cfg.Set("rest.password", v) }
func (r RestConfig) Token() (string, error)     { return r.cfg.Get("rest.token") }
func (r RestConfig) SetToken(v string) error    { return r.cfg.Set("rest.token", v) }

func (r RestConfig) ResubmitIncomplete() (bool, error) {
	return r.cfg.getBool("rest.resubmit_incomplete")
}

func (r RestConfig) SetResubmitIncomplete(v bool) error {
	return r.cfg.setBool("rest.resubmit_incomplete", v)
}

func (r RestConfig) IgnoreSSLValidation() (bool, error) {
	return r.cfg.getBool("rest.ignore_ssl_validation")
}

func (r RestConfig) SetIgnoreSSLValidation(v bool) error {
	return r.cfg.setBool("rest.ignore_ssl_validation", v)
}

func (r RestConfig) CreationAccessCredentialsName() (string, error) {
	return r.cfg.Get("rest.creation_access_credentials_name")
}

func (r RestConfig) SetCreationAccessCredentialsName(v string) error {
	return r.cfg.Set("rest.creation_access_credentials_name", v)
}

// RetryHTTPCodes returns the HTTP status codes that are retried.
func (r RestConfig) RetryHTTPCodes() ([]uint32, error) {
	v, err := r.cfg.Get("rest.retry_http_codes")
	if err != nil {
		return nil, err
	}
	var codes []uint32
	for _, f := range strings.Split(v, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "rest.retry_http_codes")
		}
		codes = append(codes, uint32(n))
	}
	return codes, nil
}

func (r RestConfig) SetRetryHTTPCodes(codes []uint32) error {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.FormatUint(uint64(c), 10)
	}
	return r.cfg.Set("rest.retry_http_codes", strings.Join(parts, ","))
}

func (r RestConfig) RetryCount() (uint64, error) { return r.cfg.getUint("rest.retry_count") }
func (r RestConfig) SetRetryCount(v uint64) error {
	return r.cfg.setUint("rest.retry_count", v)
}

func (r RestConfig) RetryInitialDelayMs() (uint64, error) {
	return r.cfg.getUint("rest.retry_initial_delay_ms")
}

func (r RestConfig) SetRetryInitialDelayMs(v uint64) error {
	return r.cfg.setUint("rest.retry_initial_delay_ms", v)
}

func (r RestConfig) RetryDelayFactor() (float64, error) {
	return r.cfg.getFloat("rest.retry_delay_factor")
}

func (r RestConfig) SetRetryDelayFactor(v float64) error {
	return r.cfg.Set("rest.retry_delay_factor", strconv.FormatFloat(v, 'f', -1, 64))
}

func (r RestConfig) LoadMetadataOnArrayOpen() (bool, error) {
	return r.cfg.getBool("rest.load_metadata_on_array_open")
}

func (r RestConfig) SetLoadMetadataOnArrayOpen(v bool) error {
	return r.cfg.setBool("rest.load_metadata_on_array_open", v)
}

func (r RestConfig) LoadNonEmptyDomainOnArrayOpen() (bool, error) {
	return r.cfg.getBool("rest.load_non_empty_domain_on_array_open")
}

func (r RestConfig) SetLoadNonEmptyDomainOnArrayOpen(v bool) error {
	return r.cfg.setBool("rest.load_non_empty_domain_on_array_open", v)
}

func (r RestConfig) UseRefactoredArrayOpen() (bool, error) {
	return r.cfg.getBool("rest.use_refactored_array_open")
}

func (r RestConfig) SetUseRefactoredArrayOpen(v bool) error {
	return r.cfg.setBool("rest.use_refactored_array_open", v)
}

func (r RestConfig) Curl() CurlConfig { return CurlConfig{cfg: r.cfg} }

// CurlConfig groups the rest.curl.* parameters.
type CurlConfig struct {
	cfg *Config
}

func (c CurlConfig) Verbose() (bool, error)  { return c.cfg.getBool("rest.curl.verbose") }
func (c CurlConfig) SetVerbose(v bool) error { return c.cfg.setBool("rest.curl.verbose", v) }

func (c CurlConfig) BufferSize() (uint64, error) { return c.cfg.getUint("rest.curl.buffer_size") }
func (c CurlConfig) SetBufferSize(v uint64) error {
	return c.cfg.setUint("rest.curl.buffer_size", v)
}

// SMConfig groups the storage manager parameters (sm.*).
type SMConfig struct {
	cfg *Config
}

func (c *Config) SM() SMConfig { return SMConfig{cfg: c} }

func (s SMConfig) MemoryBudget() (uint64, error) { return s.cfg.getUint("sm.memory_budget") }
func (s SMConfig) SetMemoryBudget(v uint64) error {
	return s.cfg.setUint("sm.memory_budget", v)
}

// ComputeConcurrencyLevel bounds the number of tiles filtered in parallel.
func (s SMConfig) ComputeConcurrencyLevel() (uint64, error) {
	return s.cfg.getUint("sm.compute_concurrency_level")
}

func (s SMConfig) SetComputeConcurrencyLevel(v uint64) error {
	return s.cfg.setUint("sm.compute_concurrency_level", v)
}

func (s SMConfig) IOConcurrencyLevel() (uint64, error) {
	return s.cfg.getUint("sm.io_concurrency_level")
}

func (s SMConfig) SetIOConcurrencyLevel(v uint64) error {
	return s.cfg.setUint("sm.io_concurrency_level", v)
}

func (s SMConfig) CheckCoordDups() (bool, error) { return s.cfg.getBool("sm.check_coord_dups") }
func (s SMConfig) SetCheckCoordDups(v bool) error {
	return s.cfg.setBool("sm.check_coord_dups", v)
}

func (s SMConfig) DedupCoords() (bool, error) { return s.cfg.getBool("sm.dedup_coords") }
func (s SMConfig) SetDedupCoords(v bool) error {
	return s.cfg.setBool("sm.dedup_coords", v)
}

// VFSConfig groups the vfs.* parameters.
type VFSConfig struct {
	cfg *Config
}

func (c *Config) VFS() VFSConfig { return VFSConfig{cfg: c} }

func (v VFSConfig) S3ConnectTimeoutMs() (int64, error) {
	return v.cfg.getInt("vfs.s3.connect_timeout_ms")
}

func (v VFSConfig) SetS3ConnectTimeoutMs(ms int64) error {
	return v.cfg.Set("vfs.s3.connect_timeout_ms", strconv.FormatInt(ms, 10))
}

// FilePosixFilePermissions returns the mode of files created by the posix
// backend.
func (v VFSConfig) FilePosixFilePermissions() (uint32, error) {
	s, err := v.cfg.Get("vfs.file.posix_file_permissions")
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "vfs.file.posix_file_permissions")
	}
	return uint32(n), nil
}

func (v VFSConfig) SetFilePosixFilePermissions(mode uint32) error {
	return v.cfg.Set("vfs.file.posix_file_permissions", strconv.FormatUint(uint64(mode), 8))
}
