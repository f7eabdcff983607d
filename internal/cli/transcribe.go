package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cvsearch/internal/metrics"
	"github.com/kailas-cloud/cvsearch/internal/repository/dataset"
	"github.com/kailas-cloud/cvsearch/internal/transport/asr"
	openaitr "github.com/kailas-cloud/cvsearch/internal/transport/openai"
	"github.com/kailas-cloud/cvsearch/internal/usecase/transcription"
)

func newTranscribeCmd(a *app) *cobra.Command {
	var (
		fresh bool
		wait  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe every clip listed in the dataset CSV",
		Long: `Run each row's audio file through the ASR backend and write the text to the
generated_text column. Progress is checkpointed to the output CSV, and a rerun
resumes from it: rows that already have text are not sent again.

Examples:
  cvctl transcribe
  cvctl transcribe --backend openai --interval 0
  cvctl transcribe --data-root /data/cv-valid-dev --wait 2m
  cvctl transcribe --fresh          # ignore an existing output file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTranscribe(cmd.Context(), fresh, wait)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&fresh, "fresh", false, "start from the input CSV even if the output CSV exists")
	f.DurationVar(&wait, "wait", 0, "wait up to this long for the ASR service to come up")
	f.String("backend", "", "transcription backend: asr or openai")
	f.String("asr-host", "", "ASR service base URL")
	f.String("model", "", "transcription model (openai backend)")
	f.String("data-root", "", "directory the CSV filenames are relative to")
	f.String("input", "", "input dataset CSV")
	f.String("output", "", "output CSV with generated_text")
	f.Int("checkpoint-every", 0, "save the output after this many transcriptions")
	f.Int("interval", 0, "minimum milliseconds between ASR requests")
	f.Int("workers", 0, "concurrent transcriptions")

	_ = a.v.BindPFlag("asr.backend", f.Lookup("backend"))
	_ = a.v.BindPFlag("asr.host", f.Lookup("asr-host"))
	_ = a.v.BindPFlag("asr.model", f.Lookup("model"))
	_ = a.v.BindPFlag("asr.data_root", f.Lookup("data-root"))
	_ = a.v.BindPFlag("asr.input_csv", f.Lookup("input"))
	_ = a.v.BindPFlag("asr.output_csv", f.Lookup("output"))
	_ = a.v.BindPFlag("asr.checkpoint_every", f.Lookup("checkpoint-every"))
	_ = a.v.BindPFlag("asr.interval_ms", f.Lookup("interval"))
	_ = a.v.BindPFlag("asr.workers", f.Lookup("workers"))
	return cmd
}

func (a *app) runTranscribe(ctx context.Context, fresh bool, wait time.Duration) error {
	ac := a.cfg.ASR

	backend, err := a.transcriber(ctx, wait)
	if err != nil {
		return err
	}

	// Resume from the previous output unless asked not to.
	src := ac.InputCSV
	if !fresh && fileExists(ac.OutputCSV) {
		src = ac.OutputCSV
	}
	sheet, err := dataset.Read(src)
	if err != nil {
		return err
	}
	save := func() error { return sheet.WriteFile(ac.OutputCSV) }

	metrics.RegisterIngestMetrics()
	a.serveMetrics(ctx)

	a.out.headingf("Transcribing %d rows from %s with %s", sheet.Len(), src, backend.Name())
	a.logger.Info("Transcription started",
		zap.String("source", src),
		zap.String("output", ac.OutputCSV),
		zap.String("backend", backend.Name()),
		zap.Int("rows", sheet.Len()),
	)

	svc := transcription.New(backend, a.logger)
	rep, runErr := svc.Run(ctx, sheet, save, transcription.Options{
		DataRoot:        ac.DataRoot,
		CheckpointEvery: ac.CheckpointEvery,
		Interval:        time.Duration(ac.IntervalMillis) * time.Millisecond,
		Workers:         ac.Workers,
	})

	a.out.kv([][]string{
		{"total", strconv.Itoa(rep.Total)},
		{"succeeded", strconv.Itoa(rep.Succeeded)},
		{"transcribed", strconv.Itoa(rep.Transcribed)},
		{"already done", strconv.Itoa(rep.Skipped)},
		{"missing files", strconv.Itoa(rep.Missing)},
		{"failed", strconv.Itoa(rep.Failed)},
		{"checkpoints", strconv.Itoa(rep.Checkpoints)},
		{"output", ac.OutputCSV},
	})

	switch {
	case errors.Is(runErr, context.Canceled):
		a.out.warnf("Interrupted; progress saved to %s, rerun to resume", ac.OutputCSV)
		return nil
	case runErr != nil:
		return runErr
	case rep.Failed > 0 || rep.Missing > 0:
		a.out.warnf("Processed %d/%d rows", rep.Succeeded, rep.Total)
	default:
		a.out.successf("Processed %d/%d rows", rep.Succeeded, rep.Total)
	}
	return nil
}

// transcriber builds the configured backend and checks it is reachable.
func (a *app) transcriber(ctx context.Context, wait time.Duration) (transcription.Transcriber, error) {
	ac := a.cfg.ASR
	timeout := time.Duration(ac.TimeoutSec) * time.Second

	switch ac.Backend {
	case "openai":
		return openaitr.NewTranscriber(&openaitr.Config{
			APIKey:  ac.APIKey,
			BaseURL: ac.BaseURL,
			Model:   ac.Model,
		}), nil
	case "asr":
		c := asr.NewClient(asr.Config{Host: ac.Host, Timeout: timeout})
		if wait > 0 {
			a.out.headingf("Waiting for %s", ac.Host)
			if err := c.WaitReady(ctx, wait); err != nil {
				return nil, err
			}
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", ac.Backend)
	}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
