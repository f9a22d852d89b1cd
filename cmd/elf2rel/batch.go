package main

import (
	"context"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/gc-modutils/elf2rel/rel"
)

// batchJob describes one ELF-to-REL conversion within a batch.
type batchJob struct {
	ModuleID uint32 `mapstructure:"module_id"`
	ELF      string `mapstructure:"elf"`
	Symbols  string `mapstructure:"symbols"`
	Output   string `mapstructure:"output"`
}

// batchConfig is the top-level shape of a convert-batch config file.
type batchConfig struct {
	Version     uint32     `mapstructure:"version" default:"3"`
	Concurrency int        `mapstructure:"concurrency" default:"4"`
	Jobs        []batchJob `mapstructure:"jobs"`
}

func newConvertBatchCommand(opts *rootOptions) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "convert-batch",
		Short: "Convert many ELF objects into REL modules concurrently, per a config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvertBatch(cmd.Context(), opts, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the batch config file (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func loadBatchConfig(path string) (*batchConfig, error) {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading batch config %q: %w", path, err)
	}

	cfg := &batchConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("setting batch config defaults: %w", err)
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling batch config: %w", err)
	}
	return cfg, nil
}

// runConvertBatch runs every job in cfg.Jobs concurrently, bounded by
// cfg.Concurrency. rel.Convert allocates no shared state and is safe
// to call from multiple goroutines on independent inputs, so jobs
// never need to coordinate with each other beyond this bound.
func runConvertBatch(ctx context.Context, opts *rootOptions, configPath string) error {
	cfg, err := loadBatchConfig(configPath)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for _, job := range cfg.Jobs {
		job := job
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return runBatchJob(opts, cfg.Version, job)
		})
	}

	return g.Wait()
}

func runBatchJob(opts *rootOptions, version uint32, job batchJob) error {
	elfBytes, err := os.ReadFile(job.ELF)
	if err != nil {
		return fmt.Errorf("job %s: reading ELF file: %w", job.ELF, err)
	}
	symbolBytes, err := os.ReadFile(job.Symbols)
	if err != nil {
		return fmt.Errorf("job %s: reading symbol map: %w", job.ELF, err)
	}

	out, err := rel.Convert(elfBytes, symbolBytes, rel.Options{ModuleID: job.ModuleID, Version: rel.Version(version)})
	if err != nil {
		logConversionFailure(opts.logger, elfBytes, err)
		return fmt.Errorf("job %s: %w", job.ELF, err)
	}

	if err := os.WriteFile(job.Output, out, 0o644); err != nil {
		return fmt.Errorf("job %s: writing REL module: %w", job.ELF, err)
	}

	opts.logger.Info("wrote REL module", "input", job.ELF, "output", job.Output, "module_id", job.ModuleID, "bytes", len(out))
	return nil
}
