// Command ds-log views and analyzes deepstream protocol capture files.
//
// Capture files are written by ds-client (or any client.Client) when a
// protocol log path is configured.
//
// Usage:
//
//	ds-log <command> [flags] <file.dlog>
//
// Commands:
//
//	view     View the capture in human-readable form
//	stats    Show statistics about the capture
//	export   Export the capture as JSON lines or CSV
//	filter   Write matching events to a new capture file
//
// Examples:
//
//	# View outgoing auth messages
//	ds-log view -direction out -topic auth client.dlog
//
//	# Statistics for one connection
//	ds-log stats -conn-id 3f2a9c1e client.dlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/deepstreamio/deepstream-go/cmd/ds-log/commands"
)

const usage = `ds-log - deepstream protocol log analyzer

Usage:
  ds-log <command> [flags] <file.dlog>

Commands:
  view     View the capture in human-readable form
  stats    Show statistics about the capture
  export   Export the capture as JSON lines or CSV
  filter   Write matching events to a new capture file

Use "ds-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "view":
		err = runView(args)
	case "stats":
		err = runStats(args)
	case "export":
		err = runExport(args)
	case "filter":
		err = runFilter(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet creates a flag set with the filter flags every command takes.
func newFlagSet(name, summary string) (*flag.FlagSet, *commands.FilterOptions) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "ds-log %s - %s\n\nUsage:\n  ds-log %s [flags] <file.dlog>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}

	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, wire, session)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, state, error)")
	fs.StringVar(&opts.Topic, "topic", "", "Filter messages by topic (connection, auth, event, ... or C, A, E, ...)")
	return fs, opts
}

// parsePath parses args and returns the capture file argument.
func parsePath(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return "", fmt.Errorf("log file path required")
	}
	return fs.Arg(0), nil
}

func runView(args []string) error {
	fs, opts := newFlagSet("view", "View the capture in human-readable form")
	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	return commands.RunView(path, *opts, os.Stdout)
}

func runStats(args []string) error {
	fs, opts := newFlagSet("stats", "Show statistics about the capture")
	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	return commands.RunStats(path, *opts, os.Stdout)
}

func runExport(args []string) error {
	fs, opts := newFlagSet("export", "Export the capture as JSON lines or CSV")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	return commands.RunExport(path, *format, *output, *opts, os.Stdout)
}

func runFilter(args []string) error {
	fs, opts := newFlagSet("filter", "Write matching events to a new capture file")
	output := fs.String("o", "", "Output file (required)")
	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	if *output == "" {
		fs.Usage()
		return fmt.Errorf("output file (-o) required")
	}
	return commands.RunFilter(path, *output, *opts, os.Stdout)
}
