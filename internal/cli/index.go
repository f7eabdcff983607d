package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/cvsearch/internal/metrics"
	"github.com/kailas-cloud/cvsearch/internal/repository/dataset"
	transcriptrepo "github.com/kailas-cloud/cvsearch/internal/repository/transcript"
	"github.com/kailas-cloud/cvsearch/internal/usecase/indexing"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Recreate the index and bulk-load the transcription CSV",
		Long: `Delete the index if it exists, create it with explicit mappings, and
bulk-load every row of the dataset CSV. Reruns are idempotent: document ids
are derived from the clip path.

Examples:
  cvctl index
  cvctl index --csv asr/cv-valid-dev-updated.csv --workers 8
  cvctl index --index cv-staging --replicas 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runIndex(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.String("csv", "", "dataset CSV to load (default indexing.csv_path)")
	f.Int("workers", 0, "bulk indexer workers")
	f.Int("shards", 0, "primary shards of the new index")
	f.Int("replicas", 0, "replicas of the new index")

	_ = a.v.BindPFlag("indexing.csv_path", f.Lookup("csv"))
	_ = a.v.BindPFlag("indexing.workers", f.Lookup("workers"))
	_ = a.v.BindPFlag("indexing.shards", f.Lookup("shards"))
	_ = a.v.BindPFlag("indexing.replicas", f.Lookup("replicas"))
	return cmd
}

func (a *app) runIndex(ctx context.Context) error {
	store, err := a.engine()
	if err != nil {
		return err
	}

	metrics.RegisterIngestMetrics()
	a.serveMetrics(ctx)

	ic := a.cfg.Indexing
	repo := transcriptrepo.New(store, a.cfg.Elasticsearch.Index, ic.Shards, ic.ReplicaCount())
	svc := indexing.New(store, repo, a.logger)

	a.out.headingf("Indexing %s into %s", ic.CSVPath, a.cfg.Elasticsearch.Index)
	rows := func(ctx context.Context, fn func(seq int, row map[string]string) error) error {
		return dataset.Each(ctx, ic.CSVPath, fn)
	}
	rep, err := svc.Run(ctx, rows, indexing.Options{
		Workers:       ic.Workers,
		FlushBytes:    ic.FlushBytes,
		FlushInterval: time.Duration(ic.FlushInterval) * time.Second,
	})
	if err != nil {
		return err
	}

	a.out.kv([][]string{
		{"index", rep.Index},
		{"recreated", strconv.FormatBool(rep.Recreated)},
		{"rows", strconv.Itoa(rep.Rows)},
		{"indexed", strconv.Itoa(rep.Indexed)},
		{"failed", strconv.Itoa(rep.Failed)},
		{"documents", strconv.Itoa(rep.Documents)},
		{"duration", rep.Duration.Round(time.Millisecond).String()},
	})
	if rep.Failed > 0 {
		a.out.warnf("%d documents were rejected; see the log for details", rep.Failed)
		return nil
	}
	a.out.successf("Indexed %d documents", rep.Documents)
	return nil
}
