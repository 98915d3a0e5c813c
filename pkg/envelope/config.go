package envelope

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config manages engine defaults using Viper. Request fields left unset fall
// back to these values.
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults.
func NewConfig() *Config {
	v := viper.New()

	// Objective weights
	v.SetDefault("objective.alpha", 1.0)
	v.SetDefault("objective.beta", 1.0)

	// Voltage band; also defines the two voltage scenario vertices
	v.SetDefault("network.v_min", 0.9)
	v.SetDefault("network.v_max", 1.1)

	// Voltage angle bounds (radians)
	v.SetDefault("network.theta_min", -0.25)
	v.SetDefault("network.theta_max", 0.25)

	// Boundary exchange bounds at parent nodes (p.u.)
	v.SetDefault("boundary.p_min", -1.0)
	v.SetDefault("boundary.p_max", 1.0)

	// Solver parameters
	v.SetDefault("solver.tolerance", 1e-10)

	// Logging parameters
	v.SetDefault("logging.level", "info")

	return &Config{v: v}
}

// LoadFromFile loads configuration from file.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for engine parameters
func (c *Config) Alpha() float64    { return c.v.GetFloat64("objective.alpha") }
func (c *Config) Beta() float64     { return c.v.GetFloat64("objective.beta") }
func (c *Config) VMin() float64     { return c.v.GetFloat64("network.v_min") }
func (c *Config) VMax() float64     { return c.v.GetFloat64("network.v_max") }
func (c *Config) ThetaMin() float64 { return c.v.GetFloat64("network.theta_min") }
func (c *Config) ThetaMax() float64 { return c.v.GetFloat64("network.theta_max") }
func (c *Config) PMin() float64     { return c.v.GetFloat64("boundary.p_min") }
func (c *Config) PMax() float64     { return c.v.GetFloat64("boundary.p_max") }

func (c *Config) SolverTolerance() float64 { return c.v.GetFloat64("solver.tolerance") }

func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

// Set allows dynamic configuration changes.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// CreateLogger creates a zerolog logger based on config.
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "envelope").Logger()
}
