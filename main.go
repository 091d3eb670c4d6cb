package main

import (
	"fmt"
	"io"
	"os"

	log "github.com/cihub/seelog"
	goflags "github.com/jessevdk/go-flags"
)

type Options struct {
	LogLevel string `short:"v" long:"log" description:"setting log level,options:trace,debug,info,warn,error" default:"info"`
	LogFile  string `long:"log-file" description:"file errors are also written to, empty to disable" default:"./pf.log"`
}

func main() {
	code := run(os.Args[1:], os.Stdout, os.Stderr)
	log.Flush()
	os.Exit(code)
}

func newParser(opts *Options, stdout io.Writer) (*goflags.Parser, error) {
	parser := goflags.NewParser(opts, goflags.HelpFlag|goflags.PassDoubleDash)
	parser.Name = "pf"
	parser.ShortDescription = "A CLI to run painless script tests on OpenSearch clusters"

	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"test", "Run a single test case", "Runs one painless script test case on the given OpenSearch cluster and compares the result with the expected document.", &TestCommand{out: stdout}},
		{"create-index", "Create an index from a mapping", "Initializes the cluster with an index created from a mapping file.", &CreateIndexCommand{out: stdout}},
		{"put-script", "Upload a stored script", "Stores a painless script under an id, replacing any previous version.", &PutScriptCommand{out: stdout}},
		{"index-document", "Index a document", "Creates or replaces one document by id.", &IndexDocumentCommand{out: stdout}},
		{"start", "Start a local OpenSearch instance", "Pulls the OpenSearch image and starts a single node container with docker.", &StartCommand{out: stdout}},
		{"health", "Show cluster version and health", "Prints the version and health status of an OpenSearch cluster.", &HealthCommand{out: stdout}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return nil, err
		}
	}

	parser.CommandHandler = func(command goflags.Commander, args []string) error {
		if err := setInitLogging(opts.LogLevel, opts.LogFile); err != nil {
			return err
		}
		if command == nil {
			return nil
		}
		return command.Execute(args)
	}
	return parser, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := &Options{}
	parser, err := newParser(opts, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	_, err = parser.ParseArgs(args)
	if err == nil {
		return exitOK
	}

	if flagsErr, ok := err.(*goflags.Error); ok {
		if flagsErr.Type == goflags.ErrHelp {
			fmt.Fprintln(stdout, flagsErr.Message)
			return exitOK
		}
		fmt.Fprintln(stderr, flagsErr.Message)
		return exitFailure
	}

	log.Error(err)
	log.Flush()
	return exitCode(err)
}
