package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pingcap-incubator/nestkv/kv/util/typeutil"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Addr is the address the HTTP API listens on.
	Addr string `toml:"addr" json:"addr"`

	Log log.Config `toml:"log" json:"log"`
	Txn TxnConfig  `toml:"txn" json:"txn"`
	API APIConfig  `toml:"api" json:"api"`

	// For all warnings during parsing.
	WarningMsgs []string `toml:"-" json:"-"`

	logger   *zap.Logger
	logProps *log.ZapProperties
}

// TxnConfig bounds what a session may hold in open transactions. Zero means unbounded.
type TxnConfig struct {
	// MaxDepth is the maximum number of nested open transactions.
	MaxDepth int `toml:"max-depth" json:"max-depth"`
	// MaxFrameSize is the maximum size of the keys and values changed by the innermost transaction.
	MaxFrameSize typeutil.ByteSize `toml:"max-frame-size" json:"max-frame-size"`
}

type APIConfig struct {
	// RateLimit is the number of requests per second the API accepts, 0 disables limiting.
	RateLimit float64 `toml:"rate-limit" json:"rate-limit"`
	RateBurst int     `toml:"rate-burst" json:"rate-burst"`
}

const (
	defaultAddr      = "127.0.0.1:20170"
	defaultLogLevel  = "info"
	defaultRateBurst = 100
)

func getLogLevel() (logLevel string) {
	logLevel = defaultLogLevel
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		Addr: defaultAddr,
		Log: log.Config{
			Level: getLogLevel(),
		},
	}
}

func NewTestConfig() *Config {
	return &Config{
		Addr: "127.0.0.1:0",
		Log: log.Config{
			Level: getLogLevel(),
		},
		Txn: TxnConfig{
			MaxDepth:     16,
			MaxFrameSize: 1024 * 1024,
		},
	}
}

func adjustString(v *string, defValue string) {
	if len(*v) == 0 {
		*v = defValue
	}
}

func adjustInt(v *int, defValue int) {
	if *v == 0 {
		*v = defValue
	}
}

// FromFile loads path over the current values. Keys the config does not know are recorded in WarningMsgs.
func (c *Config) FromFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, key := range meta.Undecoded() {
		c.WarningMsgs = append(c.WarningMsgs, fmt.Sprintf("config contains undefined item: %s", key.String()))
	}
	return nil
}

// Adjust fills in defaults for the values left empty, then validates.
func (c *Config) Adjust() error {
	adjustString(&c.Addr, defaultAddr)
	adjustString(&c.Log.Level, getLogLevel())
	if c.API.RateLimit > 0 {
		adjustInt(&c.API.RateBurst, defaultRateBurst)
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.Txn.MaxDepth < 0 {
		return errors.Errorf("txn max-depth must not be negative, got %d", c.Txn.MaxDepth)
	}
	if c.API.RateLimit < 0 {
		return errors.Errorf("api rate-limit must not be negative, got %v", c.API.RateLimit)
	}
	if c.API.RateLimit > 0 && c.API.RateBurst < 1 {
		return errors.Errorf("api rate-burst must be at least 1 when rate-limit is set, got %d", c.API.RateBurst)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Clone returns a cloned configuration.
func (c *Config) Clone() *Config {
	cfg := &Config{}
	*cfg = *c
	return cfg
}

func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "<nil>"
	}
	return string(data)
}

// SetupLogger setup the logger.
func (c *Config) SetupLogger() error {
	lg, p, err := log.InitLogger(&c.Log, zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		return err
	}
	c.logger = lg
	c.logProps = p
	return nil
}

// GetZapLogger gets the created zap logger.
func (c *Config) GetZapLogger() *zap.Logger {
	return c.logger
}

// GetZapLogProperties gets properties of the zap logger.
func (c *Config) GetZapLogProperties() *log.ZapProperties {
	return c.logProps
}

// ParseLogLevel translates a log level name, in any case, to the zap level.
func ParseLogLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return l, errors.Annotatef(err, "invalid log level %q", level)
	}
	return l, nil
}
