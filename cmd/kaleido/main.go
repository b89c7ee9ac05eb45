package main

import (
	"errors"
	"fmt"
	"os"

	"kaleidoscope"
	"kaleidoscope/llvmgen"

	"github.com/jessevdk/go-flags"
)

type options struct {
	Config     string `short:"c" long:"config" description:"properties file with REPL settings"`
	Backend    string `short:"b" long:"backend" choice:"llvm" choice:"eval" description:"code generation backend"`
	Prompt     string `long:"prompt" description:"prompt printed before each line"`
	NoOptimize bool   `long:"no-optimize" description:"disable the function pass pipeline"`
	NoDump     bool   `long:"no-dump" description:"do not print compiled functions"`
	Verbose    bool   `short:"v" long:"verbose" description:"log debug records to stderr"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	cfg, err := loadConfig(opts)
	check(err)
	logger, err := cfg.NewLogger(os.Stderr)
	check(err)

	var backend kaleidoscope.Backend
	switch cfg.Backend {
	case kaleidoscope.BackendEval:
		backend = kaleidoscope.NewEvaluator(os.Stdout)
	default:
		llvmBackend := llvmgen.New(llvmgen.Options{
			ModuleName: "my cool jit",
			Optimize:   cfg.Optimize,
		})
		defer llvmBackend.Dispose()
		backend = llvmBackend
	}
	logger.Debug("session started", "backend", cfg.Backend, "optimize", cfg.Optimize)

	driver := kaleidoscope.NewDriver(backend, os.Stdout, cfg.DriverOptions("<stdin>", logger))
	if err := driver.Run(os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func loadConfig(opts options) (kaleidoscope.Config, error) {
	cfg := kaleidoscope.DefaultConfig()
	if opts.Config != "" {
		var err error
		cfg, err = kaleidoscope.LoadConfig(opts.Config)
		if err != nil {
			return cfg, err
		}
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.Prompt != "" {
		cfg.Prompt = opts.Prompt
	}
	if opts.NoOptimize {
		cfg.Optimize = false
	}
	if opts.NoDump {
		cfg.Dump = false
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func check(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
