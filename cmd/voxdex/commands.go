package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/voxdex"
	"github.com/poiesic/voxdex/chunkstore"
	"github.com/poiesic/voxdex/config"
	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/jsonx"
	"github.com/poiesic/voxdex/retrieval"
	"github.com/poiesic/voxdex/storage/artifact"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(config.ResolvePath(c.String("config")))
}

func openIndex(c *cli.Context) (*voxdex.Index, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return voxdex.Open(cfg, voxdex.WithProgress(c.App.ErrWriter))
}

func printJSON(w io.Writer, v any) error {
	data, err := jsonx.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func validateCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	profiles, err := cfg.Profiles()
	if err != nil {
		return err
	}
	var missing []string
	for _, dir := range []string{cfg.Storage.TranscriptsDir, cfg.Storage.MetadataDir} {
		if _, err := os.Stat(dir); err != nil {
			missing = append(missing, dir)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required paths: %s", core.ErrValidation, strings.Join(missing, ", "))
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	if os.Getenv(cfg.Models.APIKeyEnv) == "" {
		slog.Warn("API key is not set", "env", cfg.Models.APIKeyEnv)
	}
	fmt.Fprintf(c.App.Writer, "config ok: %s (%d retrieval profiles, chunking %s)\n",
		cfg.Path(), len(profiles), cfg.ChunkingFingerprint())
	return nil
}

func auditCommand(c *cli.Context) error {
	ix, err := openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	report, err := ix.Audit(c.Context)
	if err != nil {
		return err
	}
	if err := printJSON(c.App.Writer, report); err != nil {
		return err
	}
	return report.Err()
}

func enrichCommand(c *cli.Context) error {
	ix, err := openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	p, err := ix.NewPipeline(c.Bool("force"))
	if err != nil {
		return err
	}
	defer p.Release()

	result, err := p.Enrich(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, result)
}

func rebuildCommand(c *cli.Context) error {
	ix, err := openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	p, err := ix.NewPipeline(c.Bool("force"))
	if err != nil {
		return err
	}
	defer p.Release()

	summary, err := p.Rebuild(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, summary)
}

func appendCommand(c *cli.Context) error {
	ix, err := openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	p, err := ix.NewPipeline(false)
	if err != nil {
		return err
	}
	defer p.Release()

	summary, err := p.Append(c.Context)
	if err != nil {
		return err
	}
	if summary.Skipped {
		slog.Info("nothing new to append")
	}
	return printJSON(c.App.Writer, summary)
}

type inspectReport struct {
	Cache      *voxdex.CacheReport `json:"cache"`
	Index      *chunkstore.Status  `json:"index,omitempty"`
	IndexError string              `json:"index_error,omitempty"`
}

// inspectCommand reads artifacts and the enrichment cache only; it never
// opens the vector store or a model.
func inspectCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if n := c.Int("runs"); n > 0 {
		runs, err := artifact.NewRunLog(cfg.Logging.SummariesPath).All()
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, runs[max(0, len(runs)-n):])
	}

	if id := c.String("chunk"); id != "" {
		store, err := chunkstore.Load(chunkstore.PathsFor(cfg), core.CurrentVersions(), cfg.Enrichment.Model)
		if err != nil {
			return err
		}
		chunk, err := store.Get(id)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, chunk)
	}

	cache, backend, err := voxdex.OpenEnrichmentCache(cfg)
	if err != nil {
		return err
	}
	if backend != nil {
		defer backend.Close()
	}
	var report inspectReport
	if report.Cache, err = voxdex.InspectCache(c.Context, cache); err != nil {
		return err
	}
	store, err := chunkstore.Load(chunkstore.PathsFor(cfg), core.CurrentVersions(), cfg.Enrichment.Model)
	if err != nil {
		report.IndexError = err.Error()
	} else {
		st := store.Status()
		report.Index = &st
	}
	return printJSON(c.App.Writer, report)
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: a query is required", core.ErrValidation)
	}

	ix, err := openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	chunks, err := ix.LoadChunks()
	if err != nil {
		return err
	}
	orch, err := ix.NewOrchestrator(chunks)
	if err != nil {
		return err
	}

	questionType := c.String("type")
	if questionType == "" {
		verdict, err := ix.Provider().Classifier().Classify(c.Context, query)
		if err != nil {
			return err
		}
		questionType = string(verdict.Type)
		slog.Info("classified query", "question_type", questionType, "confidence", verdict.Confidence)
	}

	resp, err := orch.Search(c.Context, retrieval.Request{
		Query:            query,
		QuestionType:     questionType,
		TopK:             c.Int("top-k"),
		IntentFilters:    c.StringSlice("intent"),
		SentimentFilters: c.StringSlice("sentiment"),
	})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, resp)
}

func serveCommand(c *cli.Context) error {
	ix, err := openIndex(c)
	if err != nil {
		return err
	}
	defer ix.Close()

	srv, err := ix.NewServer()
	if err != nil {
		return err
	}
	addr := c.String("addr")
	if addr == "" {
		addr = ix.Config().Server.Addr
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx, addr)
}
