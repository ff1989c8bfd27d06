// Package check runs one grammar check over a document snapshot.
package check

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"grammarls/internal/annotate"
	"grammarls/internal/convert"
	"grammarls/internal/diagnostic"
	"grammarls/internal/document"
	"grammarls/internal/languagetool"
	"grammarls/internal/replay"
)

var log = commonlog.GetLogger("grammarls.check")

const DefaultConcurrency = 4

// Client submits one annotation batch. *languagetool.Client implements it.
type Client interface {
	Check(ctx context.Context, batch annotate.Batch) (*languagetool.Response, error)
}

type Checker struct {
	client      Client
	converter   *convert.Converter
	allowed     func(word string) bool
	concurrency int
}

type Option func(*Checker)

// WithAllowed drops misspellings of words for which allowed returns true.
func WithAllowed(allowed func(word string) bool) Option {
	return func(c *Checker) { c.allowed = allowed }
}

func WithConcurrency(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func New(client Client, converter *convert.Converter, opts ...Option) *Checker {
	if converter == nil {
		converter = convert.New(nil, 0)
	}
	c := &Checker{client: client, converter: converter, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result holds the diagnostics of one run, anchored to Version.
type Result struct {
	RunID       string
	Version     int
	Diagnostics []diagnostic.Diagnostic
	Batches     int
	Failed      int
}

// Run converts the snapshot, submits every batch concurrently and projects
// the responses in batch order. A batch whose request fails is skipped; the
// run only fails when ctx is done.
func (c *Checker) Run(ctx context.Context, snap document.Snapshot) (Result, error) {
	res := Result{RunID: uuid.NewString(), Version: snap.Version}
	batches := c.converter.Convert(snap.Tree)
	res.Batches = len(batches)
	log.Debugf("run %s: %d batches for version %d", res.RunID, len(batches), snap.Version)

	responses := make([]*languagetool.Response, len(batches))
	errs := make([]error, len(batches))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			responses[i], errs[i] = c.client.Check(ctx, batch)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("run %s: %w", res.RunID, err)
	}

	cursor := replay.New(snap.String())
	for i, batch := range batches {
		if errs[i] != nil {
			res.Failed++
			log.Errorf("run %s: batch %d: %s", res.RunID, i, errs[i].Error())
			if err := cursor.Advance(batch.Length); err != nil {
				log.Warningf("run %s: batch %d: %s", res.RunID, i, err.Error())
			}
			continue
		}
		matches := diagnostic.Filter(responses[i].Matches, c.allowed)
		diags, err := diagnostic.Project(cursor, batch, matches, snap.Version)
		if err != nil {
			log.Warningf("run %s: batch %d: %s", res.RunID, i, err.Error())
		}
		res.Diagnostics = append(res.Diagnostics, diags...)
	}
	log.Infof("run %s: %d diagnostics, %d of %d batches failed", res.RunID, len(res.Diagnostics), res.Failed, res.Batches)
	return res, nil
}
