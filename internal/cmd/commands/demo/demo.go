package demo

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/hashicorp-forge/casstore/internal/cmd/base"
	"github.com/hashicorp-forge/casstore/internal/config"
	"github.com/hashicorp-forge/casstore/pkg/casstorage"
	"github.com/hashicorp-forge/casstore/pkg/casstorage/memdoc"
	"github.com/hashicorp-forge/casstore/pkg/docid"
)

const demoProjectID = 1

type demoDocument struct {
	name string
	doc  *memdoc.Document
}

type Command struct {
	*base.Command

	flagConfig     string
	flagDocuments  int
	flagFailLoads  int
	flagIsolated   bool
	flagPurpose    string
	flagWriteFirst bool
}

func (c *Command) Synopsis() string {
	return "Walk through a storage session with in-memory documents"
}

func (c *Command) Help() string {
	return `Usage: casctl demo [options]

  This command opens a storage session, loads in-memory documents through
  retrying holders, checks write access, runs a nested session and closes
  everything again while reporting what happens.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("demo", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to a configuration `file`.",
	)
	f.IntVar(
		&c.flagDocuments, "documents", 3, "Number of documents to load.",
	)
	f.IntVar(
		&c.flagFailLoads, "fail-loads", 1,
		"Number of transient failures each document load runs into before it succeeds.",
	)
	f.BoolVar(
		&c.flagIsolated, "isolated", false,
		"Run the nested session isolated from the enclosing session.",
	)
	f.StringVar(
		&c.flagPurpose, "purpose", "scratch", "Purpose of the special purpose document.",
	)
	f.BoolVar(
		&c.flagWriteFirst, "write-first", true,
		"Manage the first document in exclusive write mode.",
	)

	return f
}

func (c *Command) Run(args []string) int {
	ui := c.UI

	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	if c.flagDocuments < 1 {
		ui.Error("documents must be at least 1")
		return 1
	}
	if c.flagFailLoads < 0 {
		ui.Error("fail-loads cannot be negative")
		return 1
	}

	cfg, logger := config.NewConfig(), c.Log
	if c.flagConfig != "" {
		var err error
		if cfg, err = config.LoadConfig(c.Fs, c.flagConfig); err != nil {
			ui.Error(fmt.Sprintf("error loading configuration: %v", err))
			return 1
		}
		logger = cfg.Logger(c.Log.Name())
	}

	manager := casstorage.NewManager(cfg.ManagerConfig(logger))

	var docs []demoDocument
	err := manager.WithSession(context.Background(), func(ctx context.Context, s *casstorage.Session) error {
		ui.Info(fmt.Sprintf("Opened session %s", s.ID()))

		for i := 1; i <= c.flagDocuments; i++ {
			key := docid.NewKey(demoProjectID, int64(i), docid.InitialVariant).
				WithProjectName("demo").
				WithDocumentName(fmt.Sprintf("doc-%d.txt", i))

			h := casstorage.HolderOfWithRetry(ctx, key, c.loader(key), cfg.BackOff())
			if err := h.Err(); err != nil {
				return err
			}

			mode := casstorage.SharedRead
			if i == 1 && c.flagWriteFirst {
				mode = casstorage.ExclusiveWrite
			}
			md, err := s.AddHolder(mode, h)
			if err != nil {
				return err
			}
			docs = append(docs, demoDocument{
				name: key.DisplayString(),
				doc:  h.MustDocument().(*memdoc.Document),
			})
			ui.Output(fmt.Sprintf("  managing %s", md))
		}

		for _, d := range docs {
			c.annotate(s, d)
		}

		return manager.WithNestedSession(ctx, c.flagIsolated, func(ctx context.Context, nested *casstorage.Session) error {
			ui.Info(fmt.Sprintf("Opened nested session %s (isolated=%t)", nested.ID(), nested.IsIsolated()))
			ui.Output(fmt.Sprintf("  %s visible: %t", docs[0].name, nested.Contains(docs[0].doc)))

			scratch := memdoc.New(docid.Key{}, "")
			md, err := nested.AddSpecialPurpose(c.flagPurpose, casstorage.ExclusiveWrite, scratch)
			if err != nil {
				return err
			}
			docs = append(docs, demoDocument{name: "special purpose " + string(md.Variant()), doc: scratch})
			ui.Output(fmt.Sprintf("  managing %s", md))
			return nil
		})
	})
	if err != nil {
		ui.Error(fmt.Sprintf("error running demo: %v", err))
		return 1
	}

	ui.Info("Closed all sessions")
	for _, d := range docs {
		ui.Output(fmt.Sprintf("  %s released %d time(s)", d.name, d.doc.Releases()))
	}

	stats := manager.Stats()
	ui.Output(fmt.Sprintf("Sessions opened: %d, still open: %d", stats.OpenedSessions, stats.OpenSessions))
	return 0
}

// loader returns a document loader that fails c.flagFailLoads times before it
// succeeds.
func (c *Command) loader(key docid.Key) casstorage.Loader {
	failures := c.flagFailLoads
	return func() (casstorage.Document, error) {
		if failures > 0 {
			failures--
			c.Log.Debug("simulated load failure", "key", key.String(), "remaining", failures)
			return nil, errors.New("storage temporarily unavailable")
		}
		return memdoc.New(key, strings.Repeat("lorem ipsum ", 4)), nil
	}
}

func (c *Command) annotate(s *casstorage.Session, d demoDocument) {
	name, doc := d.name, d.doc

	err := s.AssertWritingPermitted(doc)
	var accessErr *casstorage.WriteAccessError
	switch {
	case errors.As(err, &accessErr):
		c.UI.Output(fmt.Sprintf("  %s: write denied (%s)", name, accessErr.Reason))
		return
	case err != nil:
		c.UI.Warn(fmt.Sprintf("  %s: %v", name, err))
		return
	}

	if err := doc.Annotate(memdoc.Annotation{Layer: "token", Begin: 0, End: 5, Value: "lorem"}); err != nil {
		c.UI.Warn(fmt.Sprintf("  %s: %v", name, err))
		return
	}
	c.UI.Output(fmt.Sprintf("  %s: annotated (%d annotations)", name, len(doc.Annotations())))
}
