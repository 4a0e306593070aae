package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/indexdata/go-utils/utils"
	"gopkg.in/yaml.v3"
)

const (
	DriverMysql    = "mysql"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSqlite   = "sqlite3"
)

const (
	DefaultLoginField = "LAST_NM"
	DefaultTimeout    = 30 * time.Second
)

var ErrNoConfig = errors.New("configuration needs to be set")

type PickUpLocation struct {
	LocationID      string `toml:"locationID" yaml:"locationID" json:"locationID"`
	LocationDisplay string `toml:"locationDisplay" yaml:"locationDisplay" json:"locationDisplay"`
}

type Catalog struct {
	Database           string        `toml:"database" yaml:"database"`
	Host               string        `toml:"host" yaml:"host"`
	Port               int           `toml:"port" yaml:"port"`
	User               string        `toml:"user" yaml:"user"`
	Password           string        `toml:"password" yaml:"password"`
	Driver             string        `toml:"driver" yaml:"driver"`
	Dsn                string        `toml:"dsn" yaml:"dsn"`
	Charset            string        `toml:"charset" yaml:"charset"`
	LoginField         string        `toml:"login_field" yaml:"login_field"`
	CirculationService string        `toml:"circulation_service" yaml:"circulation_service"`
	DocstoreService    string        `toml:"docstore_service" yaml:"docstore_service"`
	OperatorId         string        `toml:"operator_id" yaml:"operator_id"`
	Timeout            time.Duration `toml:"timeout" yaml:"timeout"`
}

type Holds struct {
	DefaultPickUpLocation string           `toml:"defaultPickUpLocation" yaml:"defaultPickUpLocation"`
	PickUpLocations       []PickUpLocation `toml:"pickUpLocations" yaml:"pickUpLocations"`
}

type Renewals struct {
	CheckUpFront *bool `toml:"checkUpFront" yaml:"checkUpFront"`
}

type Config struct {
	Catalog  Catalog  `toml:"Catalog" yaml:"Catalog"`
	Holds    Holds    `toml:"Holds" yaml:"Holds"`
	Renewals Renewals `toml:"Renewals" yaml:"Renewals"`
	// raw sections, as returned by GetConfig
	sections map[string]any
}

// Parse decodes TOML driver configuration and applies defaults.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if _, err := toml.Decode(data, &cfg.sections); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.setDefaults()
	return &cfg, nil
}

// ParseYaml decodes the same configuration written as YAML.
func ParseYaml(data string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := yaml.Unmarshal([]byte(data), &cfg.sections); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.setDefaults()
	return &cfg, nil
}

// Load reads a configuration file; .yaml and .yml files are decoded as YAML, anything else as TOML.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrNoConfig
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYaml(string(buf))
	}
	return Parse(string(buf))
}

func (c *Config) setDefaults() {
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = DriverMysql
	}
	if c.Catalog.LoginField == "" {
		c.Catalog.LoginField = DefaultLoginField
	}
	if c.Catalog.Timeout <= 0 {
		c.Catalog.Timeout = DefaultTimeout
	}
	if len(c.Holds.PickUpLocations) == 0 {
		c.Holds.PickUpLocations = []PickUpLocation{{LocationID: "1", LocationDisplay: "Location 1"}}
	}
}

// CheckRenewalsUpFront defaults to true when Renewals.checkUpFront is absent.
func (c *Config) CheckRenewalsUpFront() bool {
	if c.Renewals.CheckUpFront == nil {
		return true
	}
	return *c.Renewals.CheckUpFront
}

// Section returns the raw configuration section with the given name.
func (c *Config) Section(name string) (map[string]any, bool) {
	if c.sections == nil {
		return nil, false
	}
	section, ok := c.sections[name].(map[string]any)
	return section, ok
}

// ApplyEnv overrides database settings with DB_USER, DB_PASSWORD, DB_HOST and DB_PORT.
func (c *Config) ApplyEnv() error {
	c.Catalog.User = utils.GetEnv("DB_USER", c.Catalog.User)
	c.Catalog.Password = utils.GetEnv("DB_PASSWORD", c.Catalog.Password)
	c.Catalog.Host = utils.GetEnv("DB_HOST", c.Catalog.Host)
	port, err := utils.GetEnvInt("DB_PORT", c.Catalog.Port)
	if err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	c.Catalog.Port = port
	return nil
}
