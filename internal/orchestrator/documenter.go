package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/duyhunghd6/fastdoc-cli/internal/completion"
	"github.com/duyhunghd6/fastdoc-cli/internal/extract"
	"github.com/duyhunghd6/fastdoc-cli/internal/llm"
	"github.com/duyhunghd6/fastdoc-cli/internal/logger"
	"github.com/duyhunghd6/fastdoc-cli/internal/parser"
	"github.com/duyhunghd6/fastdoc-cli/internal/prompt"
	"github.com/duyhunghd6/fastdoc-cli/internal/report"
	"github.com/duyhunghd6/fastdoc-cli/internal/splice"
	"github.com/duyhunghd6/fastdoc-cli/internal/tokenizer"
	"github.com/duyhunghd6/fastdoc-cli/internal/types"
)

// Options tunes how a Documenter treats each element.
type Options struct {
	Elements       []string // allow-list of names, empty means all
	Overwrite      bool
	Nesting        extract.Nesting
	Timeout        time.Duration
	Retries        int
	Backoff        time.Duration
	DryRun         bool // never write files
	Diff           bool // attach a diff of the changes to each file report
	ValidateSyntax bool
}

// Documenter documents one file at a time.
type Documenter struct {
	backend llm.Completer
	prompts *prompt.Set
	caller  completion.Caller
	opts    Options
	allow   map[string]bool
	parser  *parser.Parser
	log     logger.Logger
}

// NewDocumenter builds a Documenter. A nil prompt set means the built-in
// templates and a nil logger discards output.
func NewDocumenter(backend llm.Completer, prompts *prompt.Set, opts Options, log logger.Logger) (*Documenter, error) {
	if backend == nil {
		return nil, errors.New("documenter needs a completion backend")
	}
	if prompts == nil {
		prompts = prompt.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	d := &Documenter{
		backend: backend,
		prompts: prompts,
		caller:  completion.Caller{Timeout: opts.Timeout, Retries: opts.Retries, Backoff: opts.Backoff},
		opts:    opts,
		log:     log,
	}
	if len(opts.Elements) > 0 {
		d.allow = make(map[string]bool, len(opts.Elements))
		for _, name := range opts.Elements {
			d.allow[name] = true
		}
	}
	if opts.ValidateSyntax {
		p, err := parser.New()
		if err != nil {
			return nil, err
		}
		d.parser = p
	}
	return d, nil
}

// DocumentSource documents already-decoded text and returns the new text.
// name is used for logs and reports only.
func (d *Documenter) DocumentSource(ctx context.Context, name, src string) (string, types.FileReport, error) {
	rep := types.FileReport{Path: name, RelativePath: name}
	toks, err := tokenizer.TokenizeString(src)
	if err != nil {
		var lexErr *tokenizer.LexError
		if errors.As(err, &lexErr) {
			lexErr.Path = name
		}
		rep.Error = err.Error()
		return src, rep, err
	}
	text, err := d.document(ctx, name, src, toks, &rep)
	if err != nil {
		rep.Error = err.Error()
		return src, rep, err
	}
	if d.opts.Diff {
		rep.Diff = report.Diff(name, src, text)
	}
	return text, rep, nil
}

// DocumentFile documents path in place, keeping its encoding. The file is
// left untouched when it cannot be read or lexed.
func (d *Documenter) DocumentFile(ctx context.Context, path string) (types.FileReport, error) {
	return d.documentFile(ctx, path, path)
}

func (d *Documenter) documentFile(ctx context.Context, path, name string) (types.FileReport, error) {
	start := time.Now()
	rep := types.FileReport{Path: path, RelativePath: name}

	toks, f, err := tokenizer.TokenizeFile(path)
	if err != nil {
		rep.Error = err.Error()
		rep.Duration = time.Since(start)
		return rep, err
	}
	rep.Encoding = f.Encoding

	text, err := d.document(ctx, name, f.Text, toks, &rep)
	if err != nil {
		rep.Error = err.Error()
		rep.Duration = time.Since(start)
		return rep, err
	}
	if d.opts.Diff {
		rep.Diff = report.Diff(name, f.Text, text)
	}
	if rep.Changed && !d.opts.DryRun {
		if err := f.Save(path, text); err != nil {
			err = fmt.Errorf("write %s: %w", name, err)
			rep.Error = err.Error()
			rep.Duration = time.Since(start)
			return rep, err
		}
	}
	rep.Duration = time.Since(start)
	return rep, nil
}

// document walks the elements in source order and splices docstrings into
// text. It fails only before the first edit.
func (d *Documenter) document(ctx context.Context, name, text string, toks []tokenizer.Token, rep *types.FileReport) (string, error) {
	if d.parser != nil {
		if err := d.parser.Validate(ctx, name, text); err != nil {
			return "", &tokenizer.LexError{Path: name, Err: err}
		}
	}

	res := extract.Extract(toks, extract.Options{Nesting: d.opts.Nesting})
	doc := splice.NewDocument(res.Text, res.Elements)
	flog := d.log.With("file", name)
	flog.Debug("extracted elements", "count", len(res.Elements))

	for _, el := range res.Sorted() {
		er := types.ElementReport{Kind: el.Kind.String(), Name: el.Name, Line: el.Line}

		switch {
		case d.allow != nil && !d.allow[el.Name]:
			er.Status = types.StatusFiltered
		case rep.Cancelled || ctx.Err() != nil:
			if !rep.Cancelled {
				flog.Warn("run cancelled, leaving the rest untouched", "kind", er.Kind, "name", el.Name)
			}
			rep.Cancelled = true
			er.Status = types.StatusCancelled
		case el.Inline:
			er.Status = types.StatusInline
		default:
			d.documentElement(ctx, doc, el, &er, flog.With("kind", er.Kind, "name", el.Name))
		}
		rep.Elements = append(rep.Elements, er)
	}

	rep.Changed = doc.Changed()
	return doc.Text(), nil
}

func (d *Documenter) documentElement(ctx context.Context, doc *splice.Document, el extract.Element, er *types.ElementReport, log logger.Logger) {
	if _, ok := doc.Existing(el.ID); ok && !d.opts.Overwrite {
		er.Status = types.StatusDocumented
		return
	}

	src, err := doc.Source(el.ID)
	if err != nil {
		d.markTODO(doc, el, er, log, err.Error())
		return
	}

	reply, err := d.caller.Call(ctx, d.backend, d.prompts.Render(el.Kind, src))
	if err != nil {
		switch completion.OutcomeOf(err) {
		case completion.Timeout:
			log.Warn("completion timed out", "timeout", d.opts.Timeout)
			d.markTODO(doc, el, er, log, completion.ErrTimeout.Error())
		default:
			log.Warn("completion failed", "error", err)
			d.markTODO(doc, el, er, log, err.Error())
		}
		return
	}

	body, ok := splice.ExtractBody(reply)
	if !ok {
		log.Warn("no docstring in reply")
		d.markTODO(doc, el, er, log, "reply had no docstring")
		return
	}

	action, err := doc.Apply(el.ID, body, d.opts.Overwrite)
	if err != nil {
		log.Error("splice docstring", "error", err)
		d.markTODO(doc, el, er, log, err.Error())
		return
	}
	switch action {
	case splice.ActionInserted:
		er.Status = types.StatusInserted
	case splice.ActionReplaced:
		er.Status = types.StatusReplaced
	default:
		er.Status = types.StatusDocumented
		return
	}
	er.Docstring = body
	log.Debug("generated docstring", "docstring", body)
}

func (d *Documenter) markTODO(doc *splice.Document, el extract.Element, er *types.ElementReport, log logger.Logger, reason string) {
	er.Status = types.StatusTODO
	er.Reason = reason
	if _, err := doc.MarkTODO(el.ID, el.Kind); err != nil {
		log.Error("insert TODO marker", "error", err)
	}
}
