// Package cli implements the cvctl commands: index, transcribe, search and check.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cvsearch/internal/config"
	dbElastic "github.com/kailas-cloud/cvsearch/internal/db/elastic"
	logpkg "github.com/kailas-cloud/cvsearch/internal/logger"
)

// envPrefix namespaces flag overrides in the environment, e.g. CVCTL_ASR_BACKEND.
const envPrefix = "CVCTL"

// app carries state shared by all commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	noColor bool
	cfg     config.Config
	logger  *zap.Logger
	out     *printer
}

// NewRootCmd builds the cvctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "cvctl",
		Short: "Common Voice transcription index tooling",
		Long: `cvctl loads, transcribes and queries the Common Voice transcription index.

Example usage:
  cvctl transcribe                  # run every clip in the dataset through the ASR service
  cvctl index                       # recreate cv-transcriptions and bulk-load the CSV
  cvctl search "be careful"         # query the index from the terminal
  cvctl check                       # validate the search schema and result template`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default config/$ENV.yaml)")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	pf.String("es-url", "", "Elasticsearch URL")
	pf.String("index", "", "index name")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address while running, e.g. :9102")

	_ = a.v.BindPFlag("elasticsearch.url", pf.Lookup("es-url"))
	_ = a.v.BindPFlag("elasticsearch.index", pf.Lookup("index"))
	_ = a.v.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("metrics_addr", pf.Lookup("metrics-addr"))

	root.AddCommand(
		newIndexCmd(a),
		newTranscribeCmd(a),
		newSearchCmd(a),
		newCheckCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs cvctl and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "warning: .env: %v\n", err)
	}

	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		newPrinter(stdout, stderr, !noColorEnv()).errorf("%v", err)
		return 1
	}
	return 0
}

// init loads the config file, applies flag and environment overrides, and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	a.out = newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), !a.noColor && !noColorEnv())

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.applyOverrides()
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logpkg.NewLogger(config.GetEnv(), "cvctl", a.cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger
	return nil
}

// loadConfig reads --config, else config/$ENV.yaml, else falls back to defaults.
func (a *app) loadConfig() (config.Config, error) {
	if a.cfgFile != "" {
		return config.LoadFile(a.cfgFile)
	}
	return config.LoadOrDefault(config.GetEnv())
}

// applyOverrides copies every flag or CVCTL_* variable that was set onto the loaded config.
func (a *app) applyOverrides() {
	str := func(key string, dst *string) {
		if a.v.IsSet(key) {
			*dst = a.v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if a.v.IsSet(key) {
			*dst = a.v.GetInt(key)
		}
	}

	c := &a.cfg
	str("elasticsearch.url", &c.Elasticsearch.URL)
	str("elasticsearch.index", &c.Elasticsearch.Index)
	str("logging.level", &c.Logging.Level)

	str("indexing.csv_path", &c.Indexing.CSVPath)
	num("indexing.workers", &c.Indexing.Workers)
	num("indexing.shards", &c.Indexing.Shards)
	if a.v.IsSet("indexing.replicas") {
		n := a.v.GetInt("indexing.replicas")
		c.Indexing.Replicas = &n
	}

	str("asr.backend", &c.ASR.Backend)
	str("asr.host", &c.ASR.Host)
	str("asr.model", &c.ASR.Model)
	str("asr.data_root", &c.ASR.DataRoot)
	str("asr.input_csv", &c.ASR.InputCSV)
	str("asr.output_csv", &c.ASR.OutputCSV)
	num("asr.checkpoint_every", &c.ASR.CheckpointEvery)
	num("asr.interval_ms", &c.ASR.IntervalMillis)
	num("asr.workers", &c.ASR.Workers)
}

func (a *app) engine() (*dbElastic.Store, error) {
	store, err := dbElastic.NewStore(dbElastic.Config{
		Addrs:      []string{a.cfg.Elasticsearch.URL},
		Username:   a.cfg.Elasticsearch.Username,
		Password:   a.cfg.Elasticsearch.Password,
		MaxRetries: a.cfg.Elasticsearch.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create search engine client: %w", err)
	}
	return store, nil
}

// serveMetrics exposes /metrics on --metrics-addr until ctx is done. No-op when unset.
func (a *app) serveMetrics(ctx context.Context) {
	addr := a.v.GetString("metrics_addr")
	if addr == "" {
		return
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("Metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func noColorEnv() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok || os.Getenv("TERM") == "dumb"
}
