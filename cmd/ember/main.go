// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Command ember compiles and runs an ember script.
//
// Usage:
//
//	ember run [--config ember.toml] <script.ember>
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/ember/compiler"
	"github.com/probechain/ember/config"
	"github.com/probechain/ember/heap"
	"github.com/probechain/ember/natives"
	"github.com/probechain/ember/vm"
)

const version = "0.1.0"

var configFlag = cli.StringFlag{
	Name:  "config",
	Usage: "TOML file of interpreter build flags (default: ember.toml next to the script)",
}

var runCommand = cli.Command{
	Action:    run,
	Name:      "run",
	Usage:     "compile and run an ember script",
	ArgsUsage: "<script.ember>",
	Flags:     []cli.Flag{configFlag},
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ember"
	app.Usage = "the ember language interpreter"
	app.Version = version
	app.Commands = []cli.Command{runCommand}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errors.New("usage: ember run [--config ember.toml] <script.ember>")
	}
	path := ctx.Args().Get(0)

	source, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}

	configPath := ctx.String("config")
	if configPath == "" {
		configPath = filepath.Join(filepath.Dir(path), "ember.toml")
	}
	flags, err := config.Load(configPath)
	if err != nil {
		return errors.Wrapf(err, "loading %s", configPath)
	}

	h := heap.New()
	h.StressGC = flags.DebugStressGC
	h.LogGC = flags.DebugLogGC

	fn, errs := compiler.Compile(h, filepath.Base(path), string(source))
	if len(errs) != 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return errors.New("compilation failed")
	}

	if flags.DebugPrintCode {
		fmt.Fprint(os.Stderr, heap.DumpValue(fn.Value()))
	}

	v := vm.New(h, flags.VMConfig())
	natives.Register(v)

	if _, err := v.Interpret(fn); err != nil {
		return err
	}
	return nil
}
