// Package main implements the wordshard node binary. One binary runs any of
// the three data-path roles; the subcommand picks which.
//
//	worker      filters each line into its letter range and forwards the
//	            running batch to the first validators
//	validator   checks batches and forwards consistent ones
//	aggregator  merges validated batches and serves GET /results
//
// Every role registers itself with the coordinator shortly after its
// server starts. The results subcommand is a small client that prints an
// aggregator's table.
//
// Example usage:
//
//	./node aggregator
//	./node validator --listen :1004 --public-url http://127.0.0.1:1004
//	./node validator --listen :1005 --public-url http://127.0.0.1:1005
//	./node worker --listen :1002 --public-url http://127.0.0.1:1002
//	./node results --aggregator http://127.0.0.1:1006
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dreamware/wordshard/internal/aggregator"
	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/config"
	"github.com/dreamware/wordshard/internal/node"
	"github.com/dreamware/wordshard/internal/storage"
	"github.com/dreamware/wordshard/internal/validator"
	"github.com/dreamware/wordshard/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "node",
		Short:        "Run a wordshard worker, validator or aggregator",
		SilenceUsage: true,
	}
	root.AddCommand(
		newRoleCmd(config.RoleWorker, "Run a worker", buildWorker, workerFlags),
		newRoleCmd(config.RoleValidator, "Run a validator", buildValidator, nil),
		newRoleCmd(config.RoleAggregator, "Run the aggregator", buildAggregator, nil),
		newResultsCmd(),
	)
	return root
}

// buildFunc wires a role's component and returns its HTTP handler.
type buildFunc func(env *node.Env) (http.Handler, error)

func newRoleCmd(role, short string, build buildFunc, extra func(*pflag.FlagSet, *viper.Viper)) *cobra.Command {
	v := viper.New()
	config.SetDefaults(v, role)
	var cfgFile string

	cmd := &cobra.Command{
		Use:   role,
		Short: short,
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.ReadFile(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadNodeConfig(v)
			if err != nil {
				return err
			}
			return runRole(cmd.Context(), cfg, role, build)
		},
	}

	d := config.Defaults(role)
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "path to a YAML config file")
	flags.String("listen", d.Listen, "address to listen on")
	flags.String("public-url", d.PublicURL, "URL other nodes use to reach this one")
	flags.String("coordinator", d.CoordinatorURL, "coordinator URL")
	flags.Duration("register-delay", d.RegisterDelay, "wait before registering with the coordinator")
	flags.String("log-level", d.Log.Level, "log level")
	_ = v.BindPFlag("listen", flags.Lookup("listen"))
	_ = v.BindPFlag("public_url", flags.Lookup("public-url"))
	_ = v.BindPFlag("coordinator_url", flags.Lookup("coordinator"))
	_ = v.BindPFlag("register_delay", flags.Lookup("register-delay"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	if extra != nil {
		extra(flags, v)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the resolved " + role + " configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadNodeConfig(v)
			if err != nil {
				return err
			}
			out, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cmd
}

func loadNodeConfig(v *viper.Viper) (config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ValidateNode(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func workerFlags(flags *pflag.FlagSet, v *viper.Viper) {
	d := config.Defaults(config.RoleWorker)
	flags.String("range", d.Worker.Range, "initial letter range, e.g. A-M (default: wait for the coordinator)")
	flags.Int("fan-out", d.Worker.FanOut, "validators each batch is sent to")
	_ = v.BindPFlag("worker.range", flags.Lookup("range"))
	_ = v.BindPFlag("worker.fan_out", flags.Lookup("fan-out"))
}

func runRole(ctx context.Context, cfg config.Config, role string, build buildFunc) error {
	env, err := node.Setup(cfg, role)
	if err != nil {
		return err
	}
	defer env.Close(context.Background())

	handler, err := build(env)
	if err != nil {
		return err
	}
	reg, err := env.Registration(role)
	if err != nil {
		return err
	}

	env.Log.Info(role+" starting", "listen", cfg.Listen, "public_url", cfg.PublicURL, "coordinator", cfg.CoordinatorURL)
	if err := node.Run(ctx, node.Options{
		Handler:  handler,
		Listen:   cfg.Listen,
		Sender:   env.Sender,
		Logger:   env.Log,
		Register: reg,
	}); err != nil {
		return fmt.Errorf("%s: %w", role, err)
	}
	return nil
}

func buildWorker(env *node.Env) (http.Handler, error) {
	rng, err := env.Config.InitialRange()
	if err != nil {
		return nil, err
	}
	w := worker.New(worker.Options{
		Sender: env.Sender,
		Logger: env.Log,
		Tracer: env.Tracing.Tracer(),
		Range:  rng,
		FanOut: env.Config.Worker.FanOut,
	})
	return w.Handler(), nil
}

func buildValidator(env *node.Env) (http.Handler, error) {
	v := validator.New(validator.Options{
		Sender: env.Sender,
		Logger: env.Log,
		Tracer: env.Tracing.Tracer(),
	})
	return v.Handler(), nil
}

func buildAggregator(env *node.Env) (http.Handler, error) {
	a := aggregator.New(aggregator.Options{
		Store:  storage.NewMemoryStore(),
		Logger: env.Log,
		Tracer: env.Tracing.Tracer(),
	})
	return a.Handler(), nil
}

func newResultsCmd() *cobra.Command {
	var aggURL string
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Print the aggregator's per-letter results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp aggregator.ResultsResponse
			if err := cluster.GetJSON(cmd.Context(), strings.TrimRight(aggURL, "/")+"/results", &resp); err != nil {
				return fmt.Errorf("fetch results: %w", err)
			}
			return printResults(cmd.OutOrStdout(), resp.Results)
		},
	}
	d := config.Defaults(config.RoleAggregator)
	cmd.Flags().StringVar(&aggURL, "aggregator", d.PublicURL, "aggregator URL")
	return cmd
}

func printResults(out io.Writer, rows []storage.Row) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LETTER\tCOUNT\tWORDS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Letter, r.Count, r.Words)
	}
	return tw.Flush()
}
