// Command schedulerdemo drives core/scheduler from the command line: it
// reads a small task script (one task per line: priority, reads, writes,
// label) and prints the dequeue order, optionally fusing adjacent
// writer/reader pairs that touch the same component.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/urfave/cli/v2"

	"github.com/unshacled/editor/core/scheduler"
)

func main() {
	app := &cli.App{
		Name:  "schedulerdemo",
		Usage: "replay a task script against the data-flow scheduler",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "script", Aliases: []string{"s"}, Required: true, Usage: "path to a task script"},
			&cli.BoolFlag{Name: "merge", Usage: "register a demo rewriter that fuses adjacent writer/reader pairs"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "schedulerdemo:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	f, err := os.Open(c.String("script"))
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	q := scheduler.New[string]()
	if c.Bool("merge") {
		q.RegisterRewriter(concatRewriter{})
	}

	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := parseLine(line)
		if err != nil {
			return fmt.Errorf("parse script: %w", err)
		}
		if err := q.Enqueue(t); err != nil {
			return fmt.Errorf("enqueue %v: %w", t.Payload, err)
		}
	}
	if err := scan.Err(); err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	for {
		t, ok := q.Dequeue()
		if !ok {
			break
		}
		fmt.Println(t.Payload)
	}
	return nil
}

// parseLine parses "priority|reads,comma,separated|writes,comma,separated|label".
func parseLine(line string) (scheduler.Task[string], error) {
	fields := strings.Split(line, "|")
	if len(fields) != 4 {
		return scheduler.Task[string]{}, fmt.Errorf("want 4 pipe-separated fields, got %d: %q", len(fields), line)
	}
	priority, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return scheduler.Task[string]{}, fmt.Errorf("priority: %w", err)
	}
	return scheduler.Task[string]{
		Payload:  fields[3],
		Reads:    components(fields[1]),
		Writes:   components(fields[2]),
		Priority: priority,
	}, nil
}

func components(field string) mapset.Set[string] {
	s := mapset.NewThreadUnsafeSet[string]()
	for _, c := range strings.Split(field, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			s.Add(c)
		}
	}
	return s
}

// concatRewriter is a toy rewriter for the demo: it fuses any writer with a
// dependent reader by concatenating their labels. The fused task writes the
// union of both write sets and reads the union of both read sets minus what
// the writer writes.
type concatRewriter struct{}

func (concatRewriter) IsOfInterest(scheduler.Task[string]) bool { return true }

func (concatRewriter) MaybeRewrite(first, second scheduler.Task[string]) (scheduler.Task[string], bool) {
	return scheduler.Task[string]{
		Payload:  first.Payload.(string) + "+" + second.Payload.(string),
		Reads:    first.Reads.Union(second.Reads).Difference(first.Writes),
		Writes:   first.Writes.Union(second.Writes),
		Priority: second.Priority,
	}, true
}
