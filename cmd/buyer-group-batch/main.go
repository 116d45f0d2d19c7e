// cmd/buyer-group-batch/main.go
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"buyer-group-workers/internal/batch"
	"buyer-group-workers/internal/common/aws"
	"buyer-group-workers/internal/common/config"
	"buyer-group-workers/internal/common/database"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/store"
	"buyer-group-workers/internal/workers/buyer-group/compose"
)

type options struct {
	configPath    string
	workspaceID   string
	companies     []string
	companiesFile string
	concurrency   int
	dryRun        bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "buyer-group-batch",
		Short: "Compose buyer groups for many companies of one workspace",
		Long: `Runs buyer group composition outside the process engine. Groups are
saved and indexed exactly as the buyer-group.compose worker does; with
--dry-run nothing is written and the report only shows what would be composed.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			companies, err := opts.companyIDs(args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, companies, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: configs/config.yaml via the standard search)")
	flags.StringVarP(&opts.workspaceID, "workspace", "w", "", "workspace id")
	flags.StringSliceVarP(&opts.companies, "companies", "c", nil, "comma-separated company ids")
	flags.StringVar(&opts.companiesFile, "companies-file", "", "file with one company id per line")
	flags.IntVar(&opts.concurrency, "concurrency", batch.DefaultConcurrency, "companies composed in parallel")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "classify and compose without saving, indexing or remediating")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

// companyIDs merges positional args, --companies and --companies-file.
func (o *options) companyIDs(args []string) ([]string, error) {
	ids := append(append([]string{}, args...), o.companies...)
	if o.companiesFile != "" {
		f, err := os.Open(o.companiesFile)
		if err != nil {
			return nil, fmt.Errorf("open companies file: %w", err)
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && !strings.HasPrefix(line, "#") {
				ids = append(ids, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read companies file: %w", err)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no companies given: use args, --companies or --companies-file")
	}
	return ids, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func run(ctx context.Context, opts *options, companies []string, out io.Writer) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, "stderr")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"command": "buyer-group-batch"})

	constraints, err := cfg.BuyerGroup.Constraints()
	if err != nil {
		return err
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	redis := database.NewRedis(cfg.Database.Redis)
	defer redis.Close()
	var cache store.CandidateCacher
	if err := redis.Ping(ctx); err != nil {
		log.Warn("Redis unavailable, reading candidates from postgres only", map[string]interface{}{"error": err.Error()})
	} else {
		cache = store.NewCandidateCache(redis.Client, cfg.BuyerGroup.CacheTTL())
	}
	loader := store.NewCandidateLoader(store.NewCandidateStore(pg.DB), cache, log)

	var executor compose.Executor
	if opts.dryRun {
		executor = &batch.DryRun{Loader: loader, Constraints: constraints}
	} else {
		executor, err = newComposeService(ctx, cfg, pg, loader, log)
		if err != nil {
			return err
		}
	}

	report, runErr := batch.NewRunner(executor, log, opts.concurrency).Run(ctx, opts.workspaceID, companies)
	if report != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if runErr != nil {
		return runErr
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d companies failed", report.Failed, len(report.Results))
	}
	return nil
}

func newComposeService(ctx context.Context, cfg *config.Config, pg *database.PostgresClient, loader *store.CandidateLoader, log logger.Logger) (*compose.Service, error) {
	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
	if err != nil {
		return nil, err
	}
	index := store.NewGroupIndex(esClient.Client, cfg.BuyerGroup.IndexName)
	if err := index.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	constraints, err := cfg.BuyerGroup.Constraints()
	if err != nil {
		return nil, err
	}
	composeCfg := compose.DefaultConfig()
	composeCfg.Constraints = constraints
	composeCfg.RemediateInvalid = cfg.BuyerGroup.RemediateInvalid

	deps := compose.ServiceDependencies{
		Logger: log,
		Loader: loader,
		Groups: store.NewGroupStore(pg),
		Index:  index,
	}
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, err
		}
		deps.Remediator = aws.NewRemediationPublisher(snsClient, cfg.Integrations.AWS.SNS.RemediationTopicARN)
	}
	return compose.NewService(deps, composeCfg), nil
}
