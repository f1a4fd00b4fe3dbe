// Command nodesnap is the CLI adapter over the pack, unpack, and status
// core operations. It owns argument parsing, progress rendering, and
// exit codes; the core packages print nothing themselves except the
// warnings extractor and status write to stderr (missing blob, missing
// tree).
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/nodesnap/nodesnap/internal/extractor"
	"github.com/nodesnap/nodesnap/internal/packer"
	"github.com/nodesnap/nodesnap/internal/scanner"
	"github.com/nodesnap/nodesnap/internal/status"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("nodesnap: ")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "pack":
		err = runPack(os.Args[2:])
	case "unpack":
		err = runUnpack(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "nodesnap: unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `nodesnap snapshots a node_modules tree into a single database file
and restores it bit-identically.

Usage:
  nodesnap pack   [-s <source>] [-o <output>] [-c <level>] [--include-lockfile]
  nodesnap unpack [-i <input>] [-o <output>] [-f|--force]
  nodesnap status [--db <path>] [-n <path>]
`)
}

func runPack(args []string) error {
	flagSet := pflag.NewFlagSet("pack", pflag.ContinueOnError)
	source := flagSet.StringP("source", "s", "./node_modules", "dependency tree to snapshot")
	output := flagSet.StringP("output", "o", "./node_modules.db", "path to write the snapshot database")
	level := flagSet.IntP("compression", "c", 6, "gzip compression level (1-9)")
	includeLockfile := flagSet.Bool("include-lockfile", false, "record a hash of package-lock.json alongside the snapshot")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if *level < 1 || *level > 9 {
		return errInvalidLevel
	}

	fmt.Fprintf(os.Stderr, "Scanning %s...\n", *source)
	if count, err := scanner.CountFiles(*source); err == nil {
		fmt.Fprintf(os.Stderr, "Found %s to process\n", pluralFiles(count))
	}
	bar := newProgressReporter("Packing")

	result, err := packer.Pack(context.Background(), packer.Options{
		Source:           *source,
		Output:           *output,
		CompressionLevel: *level,
		IncludeLockfile:  *includeLockfile,
		Progress:         bar.report,
	})
	bar.finish()
	if err != nil {
		return fmt.Errorf("pack failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Found %d packages, %d files\n", result.PackagesCount, result.FilesCount)
	printBox("Pack Complete", result.Summary(), colorGreen)
	return nil
}

func runUnpack(args []string) error {
	flagSet := pflag.NewFlagSet("unpack", pflag.ContinueOnError)
	input := flagSet.StringP("input", "i", "./node_modules.db", "snapshot database to restore from")
	output := flagSet.StringP("output", "o", "./node_modules", "directory to restore into")
	force := flagSet.BoolP("force", "f", false, "overwrite the output directory if it already exists")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	bar := newProgressReporter("Unpacking")
	result, err := extractor.Extract(context.Background(), extractor.Options{
		InputDB:  *input,
		Output:   *output,
		Force:    *force,
		Progress: bar.report,
	})
	bar.finish()
	if err != nil {
		return fmt.Errorf("unpack failed: %w", err)
	}

	printBox("Unpack Complete", []string{
		fmt.Sprintf("Files: %d", result.TotalFiles),
		fmt.Sprintf("Size: %s", humanizeBytes(result.TotalSize)),
	}, colorGreen)
	return nil
}

func runStatus(args []string) error {
	flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
	db := flagSet.String("db", "./node_modules.db", "snapshot database to compare against")
	tree := flagSet.StringP("tree", "n", "./node_modules", "dependency tree to compare")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Comparing...")
	fmt.Fprintf(os.Stderr, "DB: %s\n", *db)
	fmt.Fprintf(os.Stderr, "node_modules: %s\n", *tree)

	bar := newProgressReporter("Comparing")
	result, err := status.Diff(context.Background(), status.Options{DB: *db, Tree: *tree, Progress: bar.report})
	bar.finish()
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	lines := []string{
		fmt.Sprintf("Unchanged: %d", result.Unchanged),
		fmt.Sprintf("Modified: %d", len(result.Modified)),
		fmt.Sprintf("Only in DB: %d", len(result.OnlyInDB)),
	}
	lines = append(lines, fileListLines("Modified files:", "M", result.Modified)...)
	lines = append(lines, fileListLines("Only in DB (deleted locally):", "D", result.OnlyInDB)...)
	if len(result.Modified) > 10 || len(result.OnlyInDB) > 10 {
		lines = append(lines, "", "(re-run with a narrower --tree for the full list)")
	}

	color := colorGreen
	if !result.Clean() {
		color = colorYellow
	}
	printBox("Status", lines, color)

	if result.Clean() {
		fmt.Fprintln(os.Stderr, "All files match!")
	}
	return nil
}

func fileListLines(header, marker string, files []string) []string {
	if len(files) == 0 || len(files) > 10 {
		return nil
	}
	lines := []string{"", header}
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("  %s %s", marker, f))
	}
	return lines
}

// progressReporter renders a single updating line when stderr is a
// terminal, and falls back to quiet operation otherwise (CI logs, pipes).
type progressReporter struct {
	label string
	tty   bool
}

func newProgressReporter(label string) *progressReporter {
	return &progressReporter{label: label, tty: isatty.IsTerminal(os.Stderr.Fd())}
}

func (p *progressReporter) report(current, total int, message string) {
	if !p.tty || total == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\r%s: %d/%d %-40s", p.label, current, total, truncate(message, 40))
}

func (p *progressReporter) finish() {
	if p.tty {
		fmt.Fprintln(os.Stderr)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var errInvalidLevel = errors.New("compression level must be between 1 and 9")

func pluralFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}
