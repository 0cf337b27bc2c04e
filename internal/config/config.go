// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	DUT       DUTConfig       `mapstructure:"dut"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Report    ReportConfig    `mapstructure:"report"`
	Events    EventsConfig    `mapstructure:"events"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig represents the sweep history database
type DatabaseConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"dbname"`
	SSLMode        string        `mapstructure:"sslmode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	MigrationsPath string        `mapstructure:"migrations_path"`
	Retention      time.Duration `mapstructure:"retention"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DUTConfig represents the control link to the device under test
type DUTConfig struct {
	Address         string           `mapstructure:"address"`
	Link            string           `mapstructure:"link"`
	ConnectTimeout  time.Duration    `mapstructure:"connect_timeout"`
	RequestTimeout  time.Duration    `mapstructure:"request_timeout"`
	TransferTimeout time.Duration    `mapstructure:"transfer_timeout"`
	KeepAlive       bool             `mapstructure:"keep_alive"`
	Serial          SerialPortConfig `mapstructure:"serial"`
	OutputDir       string           `mapstructure:"output_dir"`
	CopyBufferSize  int              `mapstructure:"copy_buffer_size"`
}

// SerialPortConfig represents serial console configuration
type SerialPortConfig struct {
	Port     string `mapstructure:"port"`
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	StopBits int    `mapstructure:"stop_bits"`
	Parity   string `mapstructure:"parity"`
}

// AnalysisConfig represents the metrics pass over captured files
type AnalysisConfig struct {
	SampleRateMHz int  `mapstructure:"sample_rate_mhz"`
	Workers       int  `mapstructure:"workers"`
	PlotSpectra   bool `mapstructure:"plot_spectra"`
}

// ReportConfig represents report sink configuration
type ReportConfig struct {
	OutputDir string   `mapstructure:"output_dir"`
	Formats   []string `mapstructure:"formats"`
}

// EventsConfig represents the in-process event bus
type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// DiscoveryConfig represents the DUT finder
type DiscoveryConfig struct {
	Networks       []string      `mapstructure:"networks"`
	Port           int           `mapstructure:"port"`
	ConnTimeout    time.Duration `mapstructure:"connection_timeout"`
	Workers        int           `mapstructure:"workers"`
	SerialPatterns []string      `mapstructure:"serial_patterns"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from the default search paths and environment variables
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from an explicit file, or the search paths when path is empty
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/iqdump")
	}

	// Environment variable support
	v.SetEnvPrefix("IQDUMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Default returns the configuration built from defaults only
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.allowed_origins", []string{})

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "iqdump")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "./migrations")
	v.SetDefault("database.retention", "720h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// DUT defaults
	v.SetDefault("dut.address", "192.168.1.1:9600")
	v.SetDefault("dut.link", "tcp")
	v.SetDefault("dut.connect_timeout", "10s")
	v.SetDefault("dut.request_timeout", "30s")
	v.SetDefault("dut.transfer_timeout", "2m")
	v.SetDefault("dut.keep_alive", true)
	v.SetDefault("dut.serial.port", "/dev/ttyUSB0")
	v.SetDefault("dut.serial.baud_rate", 115200)
	v.SetDefault("dut.serial.data_bits", 8)
	v.SetDefault("dut.serial.stop_bits", 1)
	v.SetDefault("dut.serial.parity", "none")
	v.SetDefault("dut.output_dir", "./iq_dump")
	v.SetDefault("dut.copy_buffer_size", 64*1024)

	// Analysis defaults
	v.SetDefault("analysis.sample_rate_mhz", 40)
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.plot_spectra", false)

	// Report defaults
	v.SetDefault("report.output_dir", "./report")
	v.SetDefault("report.formats", []string{"csv"})

	v.SetDefault("events.buffer_size", 256)

	// Discovery defaults
	v.SetDefault("discovery.networks", []string{"192.168.1.0/24"})
	v.SetDefault("discovery.port", 9600)
	v.SetDefault("discovery.connection_timeout", "500ms")
	v.SetDefault("discovery.workers", 64)
	v.SetDefault("discovery.serial_patterns", []string{"/dev/ttyUSB*", "/dev/ttyACM*", "COM*"})

	// App defaults
	v.SetDefault("app.name", "iqdump-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.DUT.Address == "" && config.DUT.Link == "tcp" {
		return fmt.Errorf("dut.address is required for the tcp link")
	}
	if config.DUT.CopyBufferSize <= 0 {
		return fmt.Errorf("dut.copy_buffer_size must be positive")
	}
	if config.Analysis.SampleRateMHz < 1 || config.Analysis.SampleRateMHz > 255 {
		return fmt.Errorf("analysis.sample_rate_mhz must be within 1..255")
	}
	if config.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1")
	}

	if config.Discovery.Port < 1 || config.Discovery.Port > 65535 {
		return fmt.Errorf("discovery.port must be within 1..65535")
	}
	if config.Discovery.Workers < 1 {
		return fmt.Errorf("discovery.workers must be at least 1")
	}

	if !oneOf(config.DUT.Link, "tcp", "serial") {
		return fmt.Errorf("dut.link must be one of: %v", []string{"tcp", "serial"})
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !oneOf(config.App.Environment, validEnvs...) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !oneOf(config.Logging.Level, validLevels...) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	validFormats := []string{"csv", "parquet", "table"}
	for _, format := range config.Report.Formats {
		if !oneOf(format, validFormats...) {
			return fmt.Errorf("report.formats entries must be one of: %v", validFormats)
		}
	}

	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
