package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/api"
)

// All linker flags will be set at build time.
var version = "dev"

// app carries what the subcommands share.
type app struct {
	v   *viper.Viper
	cfg config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "swrcache",
		Short: "Load, peek and invalidate stale-while-revalidate cache entries.",
		Long: `swrcache drives the cache the way an app screen does: it shows the cached
entity right away when one is fresh enough, then always refreshes it from the API.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			color.NoColor = color.NoColor || cfg.NoColor
			if cfg.Verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "backend=%s ttl: %s\n", cfg.Backend, cfg.ttlSummary())
			}
			return nil
		},
	}

	f := root.PersistentFlags()
	f.String("config", "", "config file (default .swrcache.yaml in . or $HOME)")
	f.String("backend", "memory", "cache store: memory, sqlite, redis, bigcache or ristretto")
	f.String("dsn", defaultDSN, "sqlite data source name")
	f.String("redis-url", defaultRedisURL, "redis connection URL")
	f.String("api-url", "", "REST API base URL")
	f.String("token", "", "API bearer token")
	f.String("namespace", "", "storage key prefix (default \"swr\")")
	f.String("schema-version", "", "entries written under another version are dropped (default \"1\")")
	f.Duration("retain-for", 0, "store-side expiry for written entries (0 keeps them until invalidated)")
	f.String("log-format", "none", "cache log output: none, zap, logrus or slog")
	f.BoolP("verbose", "v", false, "debug logging")
	f.Bool("dedupe", false, "share one fetch among concurrent loads of an entity")
	f.Bool("hooks", false, "print cache events (self-heal, store faults)")
	f.Bool("fence", false, "skip writes from loads that started before an invalidate")
	f.Bool("no-color", false, "disable colored output")
	_ = a.v.BindPFlags(f)

	root.AddCommand(newLoadCmd(a), newPeekCmd(a), newInvalidateCmd(a))
	return root
}

// slotFor resolves the scope for entity; settings are always global.
func slotFor(entity, scope string) (string, error) {
	if entity == swrcache.EntitySettings {
		return swrcache.GlobalScope, nil
	}
	if scope == "" {
		return "", fmt.Errorf("--scope is required for %s", entity)
	}
	return scope, nil
}

func newLoadCmd(a *app) *cobra.Command {
	var scope string
	var repeat int
	cmd := &cobra.Command{
		Use:   "load <entity>",
		Short: "Serve an entity from cache, then refresh it from the API",
		Long: `Load prints every callback as it fires:

  loading   the request started or finished
  cached    a fresh-enough stored copy (shown first)
  network   fetched data when nothing usable was stored
  updated   fetched data replacing the cached copy
  error     nothing cached and the fetch failed

Examples:
  swrcache load orders --scope r1 --backend sqlite
  SWRCACHE_TOKEN=... swrcache load settings --repeat 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := args[0]
			s, err := slotFor(entity, scope)
			if err != nil {
				return err
			}
			if a.cfg.APIURL == "" {
				return errors.New("--api-url is required for load")
			}
			client, err := api.NewClient(a.cfg.APIURL, api.NewSession(a.cfg.Token), api.Options{})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			m, done, err := newManager(ctx, a.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer done()

			fetch := client.EntityFetcher(s, entity)
			var res swrcache.Result[json.RawMessage]
			for i := 0; i < max(repeat, 1); i++ {
				res = m.Load(ctx, s, entity, fetch, printer(cmd.OutOrStdout()))
			}
			return res.Err
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "restaurant id (ignored for settings)")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "run the load this many times against the same store")
	return cmd
}

func newPeekCmd(a *app) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "peek <entity>",
		Short: "Print the cached entity if it is still fresh; never calls the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := args[0]
			s, err := slotFor(entity, scope)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			m, done, err := newManager(ctx, a.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer done()

			v, ok, err := m.Peek(ctx, s, entity)
			if err != nil {
				return err
			}
			if !ok {
				_, err = color.New(color.FgHiBlack).Fprintln(cmd.OutOrStdout(), "miss")
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(v))
			return err
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "restaurant id (ignored for settings)")
	return cmd
}

func newInvalidateCmd(a *app) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "invalidate <entity>",
		Short: "Drop the cached entity so the next load goes to the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := args[0]
			s, err := slotFor(entity, scope)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			m, done, err := newManager(ctx, a.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer done()

			if err := m.Invalidate(ctx, s, entity); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s/%s\n", s, entity)
			return err
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "restaurant id (ignored for settings)")
	return cmd
}

// printer renders callbacks one per line.
func printer(w io.Writer) swrcache.Callbacks[json.RawMessage] {
	var (
		cached  = color.New(color.FgYellow).SprintFunc()
		network = color.New(color.FgGreen).SprintFunc()
		failed  = color.New(color.FgRed, color.Bold).SprintFunc()
		dim     = color.New(color.FgHiBlack).SprintFunc()
	)
	start := time.Now()
	return swrcache.Callbacks[json.RawMessage]{
		OnLoadingChanged: func(on bool) {
			state := "done"
			if on {
				state = "start"
			}
			fmt.Fprintf(w, "%s %s %s\n", dim("loading"), state, dim(time.Since(start).Round(time.Millisecond)))
		},
		OnLoaded: func(v json.RawMessage, fromCache bool) {
			if fromCache {
				fmt.Fprintf(w, "%s %s\n", cached("cached "), v)
				return
			}
			fmt.Fprintf(w, "%s %s\n", network("network"), v)
		},
		OnUpdated: func(v json.RawMessage) {
			fmt.Fprintf(w, "%s %s\n", network("updated"), v)
		},
		OnError: func(msg string) {
			fmt.Fprintf(w, "%s %s\n", failed("error  "), msg)
		},
	}
}
