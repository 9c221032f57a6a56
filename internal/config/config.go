package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/filemux/filemux/internal/errors"
)

// Config file names, in lookup order.
const (
	JSONFileName = "filemux.json"
	YAMLFileName = "filemux.yaml"
	YMLFileName  = "filemux.yml"
)

const (
	// DefaultAPIDir is the directory holding route files.
	DefaultAPIDir = "api"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultVersionHeader selects the resource version of a request.
	DefaultVersionHeader = "X-Api-Version"

	// DefaultRequestIDHeader carries the request ID.
	DefaultRequestIDHeader = "X-Request-Id"

	// DefaultDebounce is the default delay between a file event and its
	// application to the router.
	DefaultDebounce = 50 * time.Millisecond

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	// DefaultMetricsNamespace prefixes every metric name.
	DefaultMetricsNamespace = "filemux"

	// DefaultTracerName names the OpenTelemetry tracer.
	DefaultTracerName = "github.com/filemux/filemux"

	// DefaultManifestOutput is where `filemux build` writes the manifest.
	DefaultManifestOutput = "filemux.manifest.json"
)

// FileNames lists the accepted config file names in lookup order.
var FileNames = []string{JSONFileName, YAMLFileName, YMLFileName}

// Config is a filemux project configuration.
type Config struct {
	// API is the directory holding route files.
	API string `json:"api,omitempty" yaml:"api,omitempty"`

	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Dev contains file watching configuration.
	Dev DevConfig `json:"dev,omitempty" yaml:"dev,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`

	// Manifest contains route manifest publishing configuration.
	Manifest ManifestConfig `json:"manifest,omitempty" yaml:"manifest,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// VersionHeader is the request header selecting a resource version.
	VersionHeader string `json:"versionHeader,omitempty" yaml:"versionHeader,omitempty"`

	// RequestIDHeader is the header carrying the request ID.
	RequestIDHeader string `json:"requestIdHeader,omitempty" yaml:"requestIdHeader,omitempty"`

	// RedirectCanonical answers non-canonical paths with a 308 redirect
	// instead of serving them.
	RedirectCanonical *bool `json:"redirectCanonical,omitempty" yaml:"redirectCanonical,omitempty"`
}

// DevConfig contains file watching settings.
type DevConfig struct {
	// Watch enables applying file changes to the running router.
	Watch *bool `json:"watch,omitempty" yaml:"watch,omitempty"`

	// Ignore contains glob patterns of names to skip.
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`

	// Debounce is a Go duration string, e.g. "50ms".
	Debounce string `json:"debounce,omitempty" yaml:"debounce,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// ManifestConfig contains route manifest settings.
type ManifestConfig struct {
	// Output is the file the manifest is written to.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// S3 publishes the manifest to a bucket instead when Bucket is set.
	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// S3Config locates the manifest object.
type S3Config struct {
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Key      string `json:"key,omitempty" yaml:"key,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration file of dir.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New(errors.CodeConfigNotFound).
		WithDetail("No filemux.json or filemux.yaml found in " + dir).
		WithSuggestion("Create filemux.json, or pass --api to point at the route directory")
}

// LoadFile reads configuration from the specified file path. YAML files may
// reference environment variables as ${VAR} or ${VAR:-default}.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New(errors.CodeConfigParse).Wrap(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(expandEnv(data), cfg)
	default:
		err = decodeJSON(data, cfg)
	}
	if err != nil {
		return nil, parseError(path, data, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

func decodeJSON(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

// parseError builds an E100 pointing at the offending line when the
// decoder reports one.
func parseError(path string, data []byte, err error) error {
	e := errors.New(errors.CodeConfigParse).Wrap(err)

	line := 0
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		line = lineAt(data, syntaxErr.Offset)
	case stderrors.As(err, &typeErr):
		line = lineAt(data, typeErr.Offset)
	default:
		if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
	}
	if line > 0 {
		e = e.WithLocation(path, line, 0)
	}
	return e
}

// lineAt returns the 1-based line containing byte offset.
func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return bytes.Count(data[:offset], []byte("\n")) + 1
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnv replaces ${VAR} and ${VAR:-default}. "$$" escapes a dollar sign.
func expandEnv(data []byte) []byte {
	const escaped = "\x00DOLLAR\x00"
	content := strings.ReplaceAll(string(data), "$$", escaped)
	content = envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(m[1]); ok {
			return value
		}
		return m[2]
	})
	return []byte(strings.ReplaceAll(content, escaped, "$"))
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, as YAML when the extension says so.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New(errors.CodeConfigParse).Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.API == "" {
		c.API = DefaultAPIDir
	}

	// Server
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.VersionHeader == "" {
		c.Server.VersionHeader = DefaultVersionHeader
	}
	if c.Server.RequestIDHeader == "" {
		c.Server.RequestIDHeader = DefaultRequestIDHeader
	}
	if c.Server.RedirectCanonical == nil {
		c.Server.RedirectCanonical = boolPtr(true)
	}

	// Dev
	if c.Dev.Watch == nil {
		c.Dev.Watch = boolPtr(true)
	}
	if c.Dev.Debounce == "" {
		c.Dev.Debounce = DefaultDebounce.String()
	}

	// Metrics
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}

	// Tracing
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}

	// Manifest
	if c.Manifest.Output == "" {
		c.Manifest.Output = DefaultManifestOutput
	}
	if c.Manifest.S3.Bucket != "" && c.Manifest.S3.Key == "" {
		c.Manifest.S3.Key = DefaultManifestOutput
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New(errors.CodeConfigPort).
			WithDetailf("Port %d is not between 1 and 65535", c.Server.Port)
	}
	if _, err := time.ParseDuration(c.Dev.Debounce); err != nil {
		return errors.New(errors.CodeConfigParse).
			WithDetailf("dev.debounce %q is not a duration", c.Dev.Debounce).
			WithSuggestion(`Use a Go duration such as "50ms"`)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New(errors.CodeConfigParse).
			WithDetailf("metrics.path %q must start with /", c.Metrics.Path)
	}
	for _, pattern := range c.Dev.Ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return errors.New(errors.CodeConfigParse).
				WithDetailf("dev.ignore pattern %q is malformed", pattern).
				Wrap(err)
		}
	}
	return nil
}

// ValidateAPIDir checks that the API directory exists.
func (c *Config) ValidateAPIDir() error {
	info, err := os.Stat(c.APIPath())
	if err != nil || !info.IsDir() {
		e := errors.New(errors.CodeAPIDirMissing).
			WithDetailf("%s is not a directory", c.APIPath()).
			WithSuggestion("Create it, or set \"api\" in filemux.json")
		if err != nil {
			e = e.Wrap(err)
		}
		return e
	}
	return nil
}

// Address returns the host:port string for the server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the base URL of the server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// APIPath returns the absolute path to the API directory.
func (c *Config) APIPath() string {
	return c.resolve(c.API)
}

// RouterRoot returns the directory that router file paths are relative to.
// It is the project directory when the API directory lives inside it, so
// "api/users/route.ts" serves "/api/users". Otherwise it is the parent of
// the API directory.
func (c *Config) RouterRoot() string {
	api := c.APIPath()
	dir := c.Dir()
	if dir == "" {
		dir = "."
	}
	rel, err := filepath.Rel(dir, api)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Dir(api)
	}
	return dir
}

// ManifestPath returns the absolute path to the manifest output file.
func (c *Config) ManifestPath() string {
	return c.resolve(c.Manifest.Output)
}

// WatchEnabled reports whether file changes are applied live.
func (c *Config) WatchEnabled() bool {
	return c.Dev.Watch == nil || *c.Dev.Watch
}

// RedirectEnabled reports whether non-canonical paths are redirected.
func (c *Config) RedirectEnabled() bool {
	return c.Server.RedirectCanonical == nil || *c.Server.RedirectCanonical
}

// DebounceDuration returns the parsed debounce delay.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Dev.Debounce)
	if err != nil {
		return DefaultDebounce
	}
	return d
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeConfigNotFound).
				WithDetail("No filemux.json or filemux.yaml found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadDir(wd)
}

// LoadDir loads the configuration of the project containing dir. Without a
// config file, defaults rooted at dir are used.
func LoadDir(dir string) (*Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(dir)
	if err != nil {
		if errors.HasCode(err, errors.CodeConfigNotFound) {
			cfg := New()
			cfg.configPath = filepath.Join(dir, JSONFileName)
			return cfg, nil
		}
		return nil, err
	}

	return Load(root)
}

func boolPtr(b bool) *bool {
	return &b
}
