package kaleidoscope

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/magiconair/properties"
)

const (
	BackendLLVM = "llvm"
	BackendEval = "eval"
)

type Config struct {
	Prompt    string
	Backend   string
	Optimize  bool
	Dump      bool
	Execute   bool
	LogLevel  string
	LogFormat string
}

func DefaultConfig() Config {
	return Config{
		Prompt:    "ready> ",
		Backend:   BackendLLVM,
		Optimize:  true,
		Dump:      true,
		Execute:   true,
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

func LoadConfig(filename string) (Config, error) {
	p, err := properties.LoadFile(filename, properties.UTF8)
	if err != nil {
		return Config{}, err
	}
	return configFromProperties(p)
}

func ParseConfig(source []byte) (Config, error) {
	p, err := properties.Load(source, properties.UTF8)
	if err != nil {
		return Config{}, err
	}
	return configFromProperties(p)
}

func configFromProperties(p *properties.Properties) (Config, error) {
	def := DefaultConfig()
	c := Config{
		Prompt:    p.GetString("prompt", def.Prompt),
		Backend:   p.GetString("backend", def.Backend),
		Optimize:  p.GetBool("optimize", def.Optimize),
		Dump:      p.GetBool("dump", def.Dump),
		Execute:   p.GetBool("execute", def.Execute),
		LogLevel:  p.GetString("log.level", def.LogLevel),
		LogFormat: p.GetString("log.format", def.LogFormat),
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendLLVM, BackendEval:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func (c Config) DriverOptions(filename string, logger *slog.Logger) DriverOptions {
	return DriverOptions{
		Filename: filename,
		Prompt:   c.Prompt,
		Dump:     c.Dump,
		Execute:  c.Execute,
		Logger:   logger,
	}
}
