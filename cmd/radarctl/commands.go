package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/ai"
	"github.com/kiranshivaraju/healthradar/internal/api/handler"
	"github.com/kiranshivaraju/healthradar/internal/broadcast"
	"github.com/kiranshivaraju/healthradar/internal/cache"
	"github.com/kiranshivaraju/healthradar/internal/config"
	"github.com/kiranshivaraju/healthradar/internal/counter"
	"github.com/kiranshivaraju/healthradar/internal/ingest"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/spf13/cobra"
)

// cli carries the connection factories so tests can swap in fakes.
type cli struct {
	openStore func(ctx context.Context, url string) (store.Store, func(), error)
	openCache func(ctx context.Context, url string) (cache.Cache, func(), error)
	migrate   func(url, dir string) error
	newAI     func(ctx context.Context, cfg config.AIConfig) (*ai.Service, error)

	databaseURL string
	redisURL    string
}

func newRootCmd(c *cli) *cobra.Command {
	if c.migrate == nil {
		c.migrate = store.RunMigrations
	}
	if c.newAI == nil {
		c.newAI = newAIService
	}

	root := &cobra.Command{
		Use:           "radarctl",
		Short:         "Operate a HealthRadar deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	root.PersistentFlags().StringVar(&c.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis connection URL")

	root.AddCommand(
		c.migrateCmd(),
		c.workerCmd(),
		c.keyCmd(),
		c.ingestCmd(),
		c.purgeCmd(),
		c.counterCmd(),
	)
	return root
}

func (c *cli) withStore(cmd *cobra.Command, fn func(st store.Store) error) error {
	st, closeFn, err := c.openStore(cmd.Context(), c.databaseURL)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(st)
}

// ─── migrate ─────────────────────────────────────────────────────────────────

func (c *cli) migrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.databaseURL == "" {
				return fmt.Errorf("database URL is required (--database-url or DATABASE_URL)")
			}
			if err := c.migrate(c.databaseURL, dir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "migrations directory")
	return cmd
}

// ─── worker ──────────────────────────────────────────────────────────────────

func (c *cli) workerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage health worker profiles",
	}

	var first, last, email, municipality, phone string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a health worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := handler.NewHealthWorker(first, last, email, municipality, phone)
			if err != nil {
				return err
			}
			return c.withStore(cmd, func(st store.Store) error {
				if err := st.CreateHealthWorker(cmd.Context(), w); err != nil {
					return fmt.Errorf("create health worker: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", w.ID, w.FullName(), w.Municipality)
				return nil
			})
		},
	}
	create.Flags().StringVar(&first, "first-name", "", "first name")
	create.Flags().StringVar(&last, "last-name", "", "last name")
	create.Flags().StringVar(&email, "email", "", "email address")
	create.Flags().StringVar(&municipality, "municipality", "", "assigned municipality, e.g. Mandaue")
	create.Flags().StringVar(&phone, "phone", "", "contact number")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("municipality")

	list := &cobra.Command{
		Use:   "list",
		Short: "List health workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd, func(st store.Store) error {
				workers, err := st.ListHealthWorkers(cmd.Context())
				if err != nil {
					return fmt.Errorf("list health workers: %w", err)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tMUNICIPALITY")
				for _, w := range workers {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", w.ID, w.FullName(), w.Email, w.Municipality)
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

// ─── key ─────────────────────────────────────────────────────────────────────

func (c *cli) keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys",
	}

	var workerID, name string
	var scopes []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key for a health worker",
		Long: `Issue an API key for a health worker.

The raw key is printed once and cannot be recovered afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(workerID)
			if err != nil {
				return fmt.Errorf("invalid --worker: %w", err)
			}
			return c.withStore(cmd, func(st store.Store) error {
				if _, err := st.GetHealthWorker(cmd.Context(), id); err != nil {
					return fmt.Errorf("look up worker %s: %w", id, err)
				}
				key, raw, err := handler.IssueAPIKey(id, name, scopes)
				if err != nil {
					return err
				}
				if err := st.CreateAPIKey(cmd.Context(), key); err != nil {
					return fmt.Errorf("store API key: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), raw)
				return nil
			})
		},
	}
	create.Flags().StringVar(&workerID, "worker", "", "health worker ID")
	create.Flags().StringVar(&name, "name", "cli", "key label")
	create.Flags().StringSliceVar(&scopes, "scopes", handler.DefaultScopes, "comma-separated scopes (read, upload, admin)")
	_ = create.MarkFlagRequired("worker")

	cmd.AddCommand(create)
	return cmd
}

// ─── ingest ──────────────────────────────────────────────────────────────────

func (c *cli) ingestCmd() *cobra.Command {
	var workerID string
	var groupPause, settle time.Duration
	cmd := &cobra.Command{
		Use:   "ingest <file.csv>",
		Short: "Upload a case file on behalf of a health worker",
		Long: `Upload a case file on behalf of a health worker.

The file goes through the same validation, batching and paced writes as the
HTTP upload. With --redis-url set the upload advances the shared counter, and
a milestone upload runs the forecast broadcast before the command exits; this
needs the same AI and SMS environment as the server. Without Redis the upload
is not counted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(workerID)
			if err != nil {
				return fmt.Errorf("invalid --worker: %w", err)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			return c.withStore(cmd, func(st store.Store) error {
				var uc counter.UploadCounter
				var notifier *broadcast.Broadcaster
				if c.redisURL != "" {
					cfg, err := c.serverConfig()
					if err != nil {
						return fmt.Errorf("counted uploads need the server configuration: %w", err)
					}
					rc, closeCache, err := c.openCache(cmd.Context(), c.redisURL)
					if err != nil {
						return err
					}
					defer closeCache()

					svc, err := c.newAI(cmd.Context(), cfg.AI)
					if err != nil {
						return fmt.Errorf("create AI provider: %w", err)
					}
					notifier, err = broadcast.NewFromConfig(st, rc, svc, cfg.SMS)
					if err != nil {
						return err
					}
					// Broadcasts outlive Upload; finish them before the cache closes.
					defer notifier.Wait()
					uc = counter.NewRedis(rc, cfg.Ingest.NotifyEvery)
				}

				var n ingest.Notifier
				if notifier != nil {
					n = notifier
				}
				p := ingest.NewPipeline(st, uc, n, nil, ingest.Options{
					GroupPause:  groupPause,
					SettleDelay: settle,
				})
				res, err := p.Upload(cmd.Context(), id, data)
				if err != nil {
					return err
				}
				if res.Milestone {
					fmt.Fprintf(cmd.ErrOrStderr(), "upload %d is a milestone, sending forecast broadcast\n", res.UploadCount)
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&workerID, "worker", "", "health worker ID the file is uploaded as")
	cmd.Flags().DurationVar(&groupPause, "group-pause", ingest.DefaultGroupPause, "pause between write groups")
	cmd.Flags().DurationVar(&settle, "settle-delay", ingest.DefaultSettleDelay, "wait before verifying the written batch")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}

// serverConfig reads the server environment with connection URLs taken from flags.
func (c *cli) serverConfig() (*config.Config, error) {
	cfg := config.FromEnv()
	cfg.Database.URL = c.databaseURL
	cfg.Redis.URL = c.redisURL
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newAIService(ctx context.Context, cfg config.AIConfig) (*ai.Service, error) {
	provider, err := ai.NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ai.NewService(provider, cfg.InferenceTimeout), nil
}

// ─── purge ───────────────────────────────────────────────────────────────────

func (c *cli) purgeCmd() *cobra.Command {
	var municipality string
	var all bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete case records for one municipality or everything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (municipality != "") {
				return fmt.Errorf("exactly one of --municipality or --all is required")
			}
			return c.withStore(cmd, func(st store.Store) error {
				var n int64
				var err error
				if all {
					n, err = st.DeleteAllCaseRecords(cmd.Context())
				} else {
					n, err = st.DeleteCaseRecordsByMunicipality(cmd.Context(), municipality)
				}
				if err != nil {
					return fmt.Errorf("purge case records: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d case records\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&municipality, "municipality", "", "municipality whose records are deleted")
	cmd.Flags().BoolVar(&all, "all", false, "delete every case record")
	return cmd
}

// ─── counter ─────────────────────────────────────────────────────────────────

func (c *cli) counterCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Show or reset the shared upload counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.redisURL == "" {
				return fmt.Errorf("the shared counter lives in Redis; set --redis-url or REDIS_URL")
			}
			every := config.FromEnv().Ingest.NotifyEvery
			if every <= 0 {
				every = counter.DefaultEvery
			}
			rc, closeFn, err := c.openCache(cmd.Context(), c.redisURL)
			if err != nil {
				return err
			}
			defer closeFn()
			uc := counter.NewRedis(rc, every)

			if reset {
				if err := uc.Reset(cmd.Context()); err != nil {
					return fmt.Errorf("reset counter: %w", err)
				}
			}
			n, err := uc.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("read counter: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploads: %d (next broadcast in %d)\n", n, every-n%every)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "reset the counter to zero first")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
