// Command layermesh evaluates a toolpath script and writes the print and
// travel meshes of its layers as a JSON document.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/chazu/layermesh/pkg/config"
	"github.com/chazu/layermesh/pkg/export"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "", "YAML settings file")
	out := flag.String("o", "", "output file (default: stdout)")
	compress := flag.Bool("zstd", false, "zstd-compress the output")
	combined := flag.Bool("combined", false, "write all layers as one chained mesh")
	noJumps := flag.Bool("no-jumps", false, "omit travel-move meshes")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: layermesh [flags] script.lmesh\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	var l *zap.Logger
	if *verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	zap.ReplaceGlobals(l)
	defer l.Sync() //nolint:errcheck

	cfg := config.Default()
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			l.Fatal("load config", zap.String("path", *cfgPath), zap.Error(err))
		}
		l.Info("loaded config", zap.String("path", *cfgPath), zap.Int("palette", len(cfg.Palette)))
	}
	if *compress {
		cfg.Export.Compress = true
	}
	if *combined {
		cfg.Export.Combined = true
	}
	if *noJumps {
		cfg.Export.Jumps = false
	}

	script := flag.Arg(0)
	source, err := os.ReadFile(script)
	if err != nil {
		l.Fatal("read script", zap.String("path", script), zap.Error(err))
	}

	app, err := NewApp(cfg, l)
	if err != nil {
		l.Fatal("init", zap.Error(err))
	}
	res := app.Evaluate(string(source))
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			l.Error("script error", zap.String("path", script), zap.Int("line", e.Line), zap.String("message", e.Message))
		}
		l.Sync() //nolint:errcheck
		os.Exit(1)
	}

	if *out == "" {
		err = export.Write(os.Stdout, res.Document, cfg.Export.Compress)
	} else {
		err = export.WriteFile(*out, res.Document, cfg.Export.Compress)
	}
	if err != nil {
		l.Fatal("write output", zap.String("path", *out), zap.Error(err))
	}
}
