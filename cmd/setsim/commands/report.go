package commands

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/report"
	"git.home.luguber.info/inful/setsim/internal/stats"
	"git.home.luguber.info/inful/setsim/internal/store"
)

// ReportCmd implements the 'report' command.
type ReportCmd struct {
	Input     string `arg:"" optional:"" help:"Statistics file (default: output.consolidated)"`
	FromStore bool   `name:"from-store" help:"Read counts from storage.sqlite_path instead of a file"`
	Markdown  string `help:"Write a markdown report to this file"`
	HTML      string `name:"html" help:"Write an HTML report to this file"`
	Title     string `help:"Report title" default:"Set simulation results"`
}

func (r *ReportCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}

	var table stats.Table
	if r.FromStore {
		if cfg.Storage.SQLitePath == "" {
			return errors.ValidationError("--from-store needs storage.sqlite_path").Build()
		}
		s, err := store.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		if table, err = s.Table(context.Background()); err != nil {
			return err
		}
	} else {
		input := r.Input
		if input == "" {
			input = cfg.Output.Consolidated
		}
		table = make(stats.Table)
		if _, err := stats.LoadFile(input, table); err != nil {
			return err
		}
	}

	return WriteReports(g, table, r.Title, r.Markdown, r.HTML)
}

// WriteReports prints the terminal report and writes the requested files.
func WriteReports(g *Global, table stats.Table, title, markdownPath, htmlPath string) error {
	if err := report.Terminal(g.stdout(), table); err != nil {
		return err
	}
	if markdownPath != "" {
		if err := writeReportFile(markdownPath, func(f *os.File) error { return report.Markdown(f, title, table) }); err != nil {
			return err
		}
		printf(g, "Markdown report written to %s\n", markdownPath)
	}
	if htmlPath != "" {
		if err := writeReportFile(htmlPath, func(f *os.File) error { return report.HTML(f, title, table) }); err != nil {
			return err
		}
		printf(g, "HTML report written to %s\n", htmlPath)
	}
	return nil
}

func writeReportFile(path string, render func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileSystemError("create report directory").WithContext("path", path).WithCause(err).Build()
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.FileSystemError("create report file").WithContext("path", path).WithCause(err).Build()
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.FileSystemError("close report file").WithContext("path", path).WithCause(err).Build()
	}
	return nil
}
