// Command adminctl runs operator tasks against the admin database and queue.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/commerce-admin/internal/app"
	"github.com/odyssey-erp/commerce-admin/internal/auth"
	"github.com/odyssey-erp/commerce-admin/internal/platform/db"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/token"
	"github.com/odyssey-erp/commerce-admin/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	envFile string
}

func (o *options) config() (*app.Config, error) {
	return app.LoadConfig(o.envFile)
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "adminctl",
		Short:         "Operator tooling for the commerce admin backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.AddCommand(newMigrateCmd(opts), newSeedCmd(opts), newJobsCmd(opts), newTokenCmd(opts))
	return root
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			pool, err := db.New(cmd.Context(), cfg.PGDSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			applied, err := db.Migrate(cmd.Context(), pool)
			for _, v := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", v)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			}
			return nil
		},
	}
}

func newSeedCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert permissions, roles and an optional admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx, err := LoadFixture(file)
			if err != nil {
				return err
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			pool, err := db.New(cmd.Context(), cfg.PGDSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			res, err := Seed(cmd.Context(), pool, fx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d permissions, %d roles", res.Permissions, res.Roles)
			if res.Admin {
				fmt.Fprintf(cmd.OutOrStdout(), ", admin %s", fx.Admin.Email)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML fixture; defaults to the built-in read.all/write.all set")
	return cmd
}

func newJobsCmd(opts *options) *cobra.Command {
	jobsCmd := &cobra.Command{Use: "jobs", Short: "Inspect and trigger background jobs"}

	var email string
	trigger := &cobra.Command{
		Use:   "trigger <job>",
		Short: "Enqueue a job by type (" + jobs.TaskTypeWelcomeEmail + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != jobs.TaskTypeWelcomeEmail {
				return fmt.Errorf("unsupported job %s", args[0])
			}
			if email == "" {
				return errors.New("--email is required")
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, nil)
			defer client.Close()
			if err := client.EnqueueWelcomeEmail(cmd.Context(), email); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "enqueued", args[0], "for", email)
			return nil
		},
	}
	trigger.Flags().StringVar(&email, "email", "", "recipient address")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print default queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer inspector.Close()
			return printQueueStats(cmd.OutOrStdout(), inspector)
		},
	}
	jobsCmd.AddCommand(trigger, stats)
	return jobsCmd
}

func printQueueStats(w io.Writer, inspector jobs.QueueInspector) error {
	info, err := inspector.GetQueueInfo(jobs.QueueDefault)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		fmt.Fprintf(w, "queue %s: empty\n", jobs.QueueDefault)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "queue %s: pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Archived)
	return nil
}

func newTokenCmd(opts *options) *cobra.Command {
	tokenCmd := &cobra.Command{Use: "token", Short: "Token utilities"}
	var email string
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a token for an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			tokens, err := token.NewService(cfg.JWTSecret, cfg.TokenTTL)
			if err != nil {
				return err
			}
			pool, err := db.New(cmd.Context(), cfg.PGDSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			raw, err := issueToken(cmd.Context(), auth.NewRepository(pool), tokens, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	issue.Flags().StringVar(&email, "email", "", "account email")
	tokenCmd.AddCommand(issue)
	return tokenCmd
}

func issueToken(ctx context.Context, finder rbac.PrincipalFinder, tokens *token.Service, email string) (string, error) {
	p, err := finder.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return tokens.Issue(token.Subject{Identifier: p.Email, Permissions: p.Authorities()})
}
