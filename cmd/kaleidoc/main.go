package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"kaleidoscope"
	"kaleidoscope/llvmgen"

	"github.com/jessevdk/go-flags"
)

type options struct {
	NoOptimize bool   `long:"no-optimize" description:"disable the function pass pipeline"`
	Verbose    bool   `short:"v" long:"verbose" description:"echo statement acknowledgments to stderr"`
	Output     string `short:"o" long:"output" description:"write the module IR to this file instead of stdout"`
	Args       struct {
		Source string `positional-arg-name:"source" required:"yes"`
	} `positional-args:"yes"`
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
	source := opts.Args.Source
	if filepath.Ext(source) != ".kal" {
		check(fmt.Errorf("a source file with an extension .kal is expected"))
	}
	content, err := os.ReadFile(source)
	check(err)

	backend := llvmgen.New(llvmgen.Options{
		ModuleName: filepath.Base(source),
		Optimize:   !opts.NoOptimize,
	})
	defer backend.Dispose()

	var diagnostics io.Writer = io.Discard
	if opts.Verbose {
		diagnostics = os.Stderr
	}
	var report bytes.Buffer
	driver := kaleidoscope.NewDriver(backend, io.MultiWriter(&report, diagnostics), kaleidoscope.DriverOptions{
		Filename: filepath.Base(source),
	})
	driver.HandleSource(string(content))
	if driver.ErrorCount() > 0 {
		if !opts.Verbose {
			os.Stderr.Write(report.Bytes())
		}
		os.Exit(1)
	}

	ir := backend.Module().String()
	if opts.Output == "" {
		fmt.Print(ir)
		return
	}
	check(os.WriteFile(opts.Output, []byte(ir), 0644))
}

func check(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
