package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/cihub/seelog"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
)

// TestCommand runs one painless script test case.
type TestCommand struct {
	DocID        string `short:"d" long:"doc-id" description:"id of the test case, only used in reports" required:"true"`
	CurrentState string `short:"c" long:"current-state" description:"current document, a path or inline json; leave empty for a create scenario"`
	Incoming     string `short:"i" long:"incoming" description:"incoming document passed to the script, a path or inline json" required:"true"`
	Expected     string `short:"e" long:"expected" description:"expected script result, a path or inline json; leave empty to only check the call succeeds"`
	ScriptPath   string `short:"s" long:"script-path" description:"painless source of the script under test" required:"true"`
	Context      string `long:"context" description:"painless execute context, ie: painless_test, filter, score" default:"painless_test"`
	IndexName    string `long:"index-name" description:"index used to set up the filter and score contexts"`

	Connection ConnectionOptions `group:"Connection Options"`

	out io.Writer
}

func (c *TestCommand) testCase() *TestCase {
	tc := &TestCase{
		ID:       c.DocID,
		Incoming: DocRefFromArg(c.Incoming),
	}
	if c.CurrentState != "" {
		ref := DocRefFromArg(c.CurrentState)
		tc.PriorState = &ref
	}
	if c.Expected != "" {
		ref := DocRefFromArg(c.Expected)
		tc.Expected = &ref
	}
	return tc
}

func (c *TestCommand) Execute(args []string) error {
	tc := c.testCase()

	script, err := PathRef(c.ScriptPath).Resolve()
	if err != nil {
		return errors.WithMessagef(err, "failed to read script file at %s", c.ScriptPath)
	}

	conn, err := Connect(c.Connection.Config())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), conn.Timeout)
	defer cancel()

	log.Infof("[%s] running against %s", tc.ID, conn.URL.Redacted())
	outcome, err := NewRunner(conn.API(), script, c.Context, c.IndexName).Run(ctx, tc)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, outcome)
	if outcome.Status != OutcomePass {
		return &exitError{code: outcome.exitCode(), err: errors.Errorf("test %s: %s", tc.ID, strings.ToLower(outcome.Status.String()))}
	}
	return nil
}

// CreateIndexCommand creates an index from a mapping file.
type CreateIndexCommand struct {
	Mapping   string `short:"m" long:"mapping" description:"path of the index mapping json" required:"true"`
	IndexName string `short:"i" long:"index-name" description:"name of the index to create" required:"true"`

	Connection ConnectionOptions `group:"Connection Options"`

	out io.Writer
}

func (c *CreateIndexCommand) Execute(args []string) error {
	mapping, err := readJSONFile("mapping", c.Mapping)
	if err != nil {
		return err
	}

	conn, err := Connect(c.Connection.Config())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), conn.Timeout)
	defer cancel()

	if err := conn.API().CreateIndex(ctx, c.IndexName, mapping); err != nil {
		return errors.WithMessagef(err, "failed to create index %s", c.IndexName)
	}
	fmt.Fprintf(c.out, "index %s created\n", c.IndexName)
	return nil
}

// PutScriptCommand stores a script, replacing any previous version.
type PutScriptCommand struct {
	ScriptPath string `short:"s" long:"script-path" description:"painless source, or a full json body with a script object" required:"true"`
	ScriptID   string `short:"i" long:"script-id" description:"id to store the script under" required:"true"`
	Context    string `long:"context" description:"script context to compile the script against, ie: update, ingest"`

	Connection ConnectionOptions `group:"Connection Options"`

	out io.Writer
}

func (c *PutScriptCommand) Execute(args []string) error {
	text, err := PathRef(c.ScriptPath).Resolve()
	if err != nil {
		return errors.WithMessagef(err, "failed to read script file at %s", c.ScriptPath)
	}
	body, err := scriptBody(text)
	if err != nil {
		return err
	}

	conn, err := Connect(c.Connection.Config())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), conn.Timeout)
	defer cancel()

	if err := conn.API().PutScript(ctx, c.ScriptID, c.Context, body); err != nil {
		return errors.WithMessagef(err, "failed to put script %s", c.ScriptID)
	}
	fmt.Fprintf(c.out, "script %s stored\n", c.ScriptID)
	return nil
}

// scriptBody sends json bodies holding a script object as they are and wraps
// anything else as painless source.
func scriptBody(text string) ([]byte, error) {
	if strings.HasPrefix(strings.TrimSpace(text), "{") {
		var doc map[string]interface{}
		if err := DecodeJson(text, &doc); err == nil {
			if _, ok := doc["script"].(map[string]interface{}); ok {
				return []byte(text), nil
			}
		}
	}
	return json.Marshal(map[string]interface{}{
		"script": map[string]interface{}{
			"lang":   "painless",
			"source": text,
		},
	})
}

// IndexDocumentCommand upserts one document.
type IndexDocumentCommand struct {
	IndexName string `short:"i" long:"index-name" description:"target index" required:"true"`
	ID        string `long:"id" description:"document id" required:"true"`
	DocPath   string `short:"d" long:"doc-path" description:"path of the document json" required:"true"`
	Refresh   bool   `long:"refresh" description:"refresh the index so the document is searchable right away"`

	Connection ConnectionOptions `group:"Connection Options"`

	out io.Writer
}

func (c *IndexDocumentCommand) Execute(args []string) error {
	doc, err := readJSONFile("document", c.DocPath)
	if err != nil {
		return err
	}

	conn, err := Connect(c.Connection.Config())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), conn.Timeout)
	defer cancel()

	result, err := conn.API().IndexDocument(ctx, c.IndexName, c.ID, doc, c.Refresh)
	if err != nil {
		return errors.WithMessagef(err, "failed to index document %s into %s", c.ID, c.IndexName)
	}
	fmt.Fprintf(c.out, "document %s/%s %s, version %d\n", c.IndexName, c.ID, result.Result, result.Version)
	return nil
}

// StartCommand runs a single node OpenSearch container.
type StartCommand struct {
	Version  string   `long:"version" description:"opensearch image tag" default:"1.3.13"`
	Image    string   `long:"image" description:"opensearch image repository" default:"public.ecr.aws/opensearchproject/opensearch"`
	Name     string   `long:"name" description:"container name" default:"opensearch"`
	Port     int      `long:"port" description:"port exposed by the container and bound on the host" default:"9100"`
	Env      []string `short:"e" long:"env" description:"extra container environment, ie: OPENSEARCH_INITIAL_ADMIN_PASSWORD=secret"`
	SkipPull bool     `long:"skip-pull" description:"use the local image without pulling it"`

	newLauncher func(showBar bool) (*Launcher, error)
	out         io.Writer
}

func (c *StartCommand) Execute(args []string) error {
	showBar := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	newLauncher := c.newLauncher
	if newLauncher == nil {
		newLauncher = NewLauncher
	}
	launcher, err := newLauncher(showBar)
	if err != nil {
		return err
	}
	defer launcher.Close()

	id, err := launcher.Start(context.Background(), LocalCluster{
		Image:    c.Image,
		Version:  c.Version,
		Name:     c.Name,
		Port:     c.Port,
		Env:      c.Env,
		SkipPull: c.SkipPull,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "container %s started (%s)\n", c.Name, shortID(id))
	return nil
}

// HealthCommand prints the version and health of a cluster.
type HealthCommand struct {
	Compress bool `long:"compress" description:"use gzip to compress traffic"`

	Connection ConnectionOptions `group:"Connection Options"`

	out io.Writer
}

func (c *HealthCommand) Execute(args []string) error {
	conn, err := Connect(c.Connection.Config())
	if err != nil {
		return err
	}

	version, err := conn.ClusterVersion()
	if err != nil {
		return errors.WithMessagef(err, "failed to read cluster info from %s", conn.URL.Redacted())
	}
	health, err := conn.ClusterHealth(c.Compress)
	if err != nil {
		return errors.WithMessagef(err, "failed to read cluster health from %s", conn.URL.Redacted())
	}

	distribution := version.Version.Distribution
	if distribution == "" {
		distribution = "elasticsearch"
	}
	fmt.Fprintf(c.out, "cluster %s (%s %s): %s, %d nodes, %d active shards, %d unassigned\n",
		health.Name, distribution, version.Version.Number, health.Status,
		health.NumberOfNodes, health.ActiveShards, health.UnassignedShards)
	return nil
}
