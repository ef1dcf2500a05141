package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rubiojr/gridsearch/pkg/query"
)

//go:embed config.toml.sample
var configTemplate string

const (
	BackendSQLite      = "sqlite"
	BackendMeilisearch = "meilisearch"

	defaultListen   = "localhost:8080"
	defaultIndex    = "documents"
	defaultMeiliURL = "http://localhost:7700"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	StorageDir string `toml:"storage_dir"`
	// Backend is "sqlite" or "meilisearch".
	Backend string `toml:"backend"`
	// Identifier is the model identifier field; the default sort target.
	Identifier  string `toml:"identifier"`
	PerPage     int    `toml:"per_page"`
	FieldSuffix string `toml:"field_suffix"`
	// SearchForm binds every filter through one composite search form.
	SearchForm bool   `toml:"search_form"`
	Listen     string `toml:"listen"`
	// DebugServices lists loggers with debug output enabled.
	DebugServices []string `toml:"debug_services,omitempty"`

	Server      ServerConfig      `toml:"server"`
	SQLite      SQLiteConfig      `toml:"sqlite"`
	Meilisearch MeilisearchConfig `toml:"meilisearch"`

	// FieldsMapping remaps column names to index fields for sorting.
	FieldsMapping map[string]string `toml:"fields_mapping"`
	ExtraFilter   *ExtraFilter      `toml:"extra_filter,omitempty"`
	Filters       []FilterConfig    `toml:"filters"`
	Columns       []ColumnConfig    `toml:"columns"`
}

type ServerConfig struct {
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

type SQLiteConfig struct {
	// Path defaults to <storage_dir>/gridsearch.db.
	Path string `toml:"path"`
}

type MeilisearchConfig struct {
	Host   string `toml:"host"`
	APIKey string `toml:"api_key"`
	Index  string `toml:"index"`
	// MaxTotalHits caps how many hits a listing can page through.
	MaxTotalHits int64 `toml:"max_total_hits,omitempty"`
}

// ExtraFilter is a text clause ANDed into every search.
type ExtraFilter struct {
	Field string `toml:"field"`
	Query string `toml:"query"`
}

type FilterConfig struct {
	Name      string     `toml:"name"`
	Kind      query.Kind `toml:"kind"`
	MinLength int        `toml:"min_length,omitempty"`
	Label     string     `toml:"label,omitempty"`
}

type ColumnConfig struct {
	Name     string `toml:"name"`
	Label    string `toml:"label,omitempty"`
	Sortable bool   `toml:"sortable"`
	// Field is the index field to sort on; defaults to Name.
	Field string `toml:"field,omitempty"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	c := &Config{StorageDir: storageDir}
	c.applyDefaults()
	return c, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes TOML data, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.Identifier == "" {
		c.Identifier = "id"
	}
	if c.PerPage <= 0 {
		c.PerPage = 25
	}
	if c.FieldSuffix == "" {
		c.FieldSuffix = query.DefaultFieldSuffix
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout = Duration{15 * time.Second}
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout = Duration{15 * time.Second}
	}
	if c.SQLite.Path == "" && c.StorageDir != "" {
		c.SQLite.Path = filepath.Join(c.StorageDir, "gridsearch.db")
	}
	if c.Meilisearch.Host == "" {
		c.Meilisearch.Host = defaultMeiliURL
	}
	if c.Meilisearch.Index == "" {
		c.Meilisearch.Index = defaultIndex
	}
	if c.FieldsMapping == nil {
		c.FieldsMapping = make(map[string]string)
	}
}

// Validate checks names are unique and references resolve.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendMeilisearch:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}

	seen := make(map[string]bool)
	for i, f := range c.Filters {
		if f.Name == "" {
			return fmt.Errorf("%w: filter #%d has no name", ErrInvalid, i+1)
		}
		if strings.ContainsAny(f.Name, "[]") {
			return fmt.Errorf("%w: filter name %q contains brackets", ErrInvalid, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate filter %q", ErrInvalid, f.Name)
		}
		seen[f.Name] = true
	}

	seen = make(map[string]bool)
	for i, col := range c.Columns {
		if col.Name == "" {
			return fmt.Errorf("%w: column #%d has no name", ErrInvalid, i+1)
		}
		if seen[col.Name] {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalid, col.Name)
		}
		seen[col.Name] = true
	}

	if c.ExtraFilter != nil && (c.ExtraFilter.Field == "" || c.ExtraFilter.Query == "") {
		return fmt.Errorf("%w: extra_filter needs both field and query", ErrInvalid)
	}
	return nil
}

// FilterSpecs returns the filter specifications in declaration order.
func (c *Config) FilterSpecs() []query.FilterSpec {
	specs := make([]query.FilterSpec, 0, len(c.Filters))
	for _, f := range c.Filters {
		specs = append(specs, query.FilterSpec{Name: f.Name, Kind: f.Kind, MinLength: f.MinLength})
	}
	return specs
}

// Filter returns the named filter configuration.
func (c *Config) Filter(name string) (FilterConfig, bool) {
	for _, f := range c.Filters {
		if f.Name == name {
			return f, true
		}
	}
	return FilterConfig{}, false
}

// TextFields lists the fields text filters target, the extra filter's
// field included.
func (c *Config) TextFields() []string {
	var fields []string
	for _, f := range c.Filters {
		if f.Kind == query.KindText && !slices.Contains(fields, f.Name) {
			fields = append(fields, f.Name)
		}
	}
	if c.ExtraFilter != nil && !slices.Contains(fields, c.ExtraFilter.Field) {
		fields = append(fields, c.ExtraFilter.Field)
	}
	return fields
}

func (c *Config) DateFields() []string {
	var fields []string
	for _, f := range c.Filters {
		if f.Kind == query.KindDateRange {
			fields = append(fields, f.Name)
		}
	}
	return fields
}

// SortFields lists the index fields sortable columns resolve to.
func (c *Config) SortFields() []string {
	fields := []string{c.Identifier}
	for _, col := range c.Columns {
		if !col.Sortable {
			continue
		}
		f := col.Field
		if f == "" {
			f = col.Name
		}
		if mapped, ok := c.FieldsMapping[f]; ok {
			f = mapped
		}
		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	return fields
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return "", fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	return strings.Replace(configTemplate, "/home/user/.local/share/gridsearch", storageDir, 1), nil
}

// GetDefaultStorageDir returns the default storage directory for databases
func GetDefaultStorageDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "gridsearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetConfigDir returns the configuration directory for gridsearch
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "gridsearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
