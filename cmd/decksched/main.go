// Command decksched manages a spaced-repetition collection: importing notes
// from markdown sources, serving the review API and maintaining the store.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/decksched/internal/config"
	"github.com/conorfennell/decksched/internal/deck"
	"github.com/conorfennell/decksched/internal/domain"
	"github.com/conorfennell/decksched/internal/importer"
	"github.com/conorfennell/decksched/internal/sched"
	"github.com/conorfennell/decksched/internal/storage"
	"github.com/conorfennell/decksched/internal/web"
)

var configPath string

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "decksched",
		Short:         "Spaced-repetition scheduler over markdown note sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "decksched.yaml", "path to config file")
	pf.String("db_path", "", "path to the SQLite collection")
	pf.String("repos_dir", "", "checkout directory for git sources")
	pf.String("listen", "", "HTTP listen address")
	pf.String("log_level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(),
		newImportCmd(),
		newSourceCmd(),
		newCountsCmd(),
		newDecksCmd(),
		newCheckCmd(),
	)
	return root
}

// loadConfig resolves configuration for the invoked command and sets up the
// process-wide logger.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	return cfg, nil
}

// app bundles the wired components behind every subcommand.
type app struct {
	cfg      config.Config
	db       *storage.DB
	decks    *deck.Service
	sched    *sched.Scheduler
	importer *importer.Service
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}
	decks, err := deck.NewService(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	scheduler, err := sched.New(db, decks, sched.Options{
		RolloverHour:   cfg.Scheduler.RolloverHour,
		LearnAheadSecs: cfg.Scheduler.LearnAheadSecs,
		NewSpread:      parseNewSpread(cfg.Scheduler.NewSpread),
		DayLearnFirst:  cfg.Scheduler.DayLearnFirst,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &app{
		cfg:      cfg,
		db:       db,
		decks:    decks,
		sched:    scheduler,
		importer: importer.New(db, decks, cfg.ReposDir),
	}, nil
}

func parseNewSpread(s string) domain.NewSpread {
	switch s {
	case "last":
		return domain.NewCardsLast
	case "first":
		return domain.NewCardsFirst
	default:
		return domain.NewCardsDistribute
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the review API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.db.Close()

			server := web.NewServer(a.db, a.decks, a.sched, a.importer)
			httpServer := &http.Server{
				Addr:              a.cfg.Listen,
				Handler:           server,
				ReadHeaderTimeout: 5 * time.Second,
			}
			slog.Info("listening", "addr", a.cfg.Listen)
			return httpServer.ListenAndServe()
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Reconcile every source with the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.db.Close()
			return a.importer.RunAll()
		},
	}
}

func newSourceCmd() *cobra.Command {
	sourceCmd := &cobra.Command{
		Use:   "source",
		Short: "Manage note sources",
	}

	var deckName string
	addCmd := &cobra.Command{
		Use:   "add <path-or-git-url>",
		Short: "Register a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.db.Close()

			path := args[0]
			sourceType := "local"
			if isGitURL(path) {
				sourceType = "git"
			}
			id, err := a.db.InsertSource(path, sourceType, deckName)
			if err != nil {
				return err
			}
			fmt.Printf("added source %d (%s) -> deck %q\n", id, sourceType, deckName)
			return nil
		},
	}
	addCmd.Flags().StringVar(&deckName, "deck", "Default", "deck imported cards go into")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.db.Close()

			sources, err := a.db.GetAllSources()
			if err != nil {
				return err
			}
			for _, s := range sources {
				scanned := "never"
				if s.LastScanned.Valid {
					scanned = s.LastScanned.Time.Format(time.RFC3339)
				}
				fmt.Printf("%d\t%s\t%s\tdeck=%s\tscanned=%s\n", s.ID, s.Type, s.Path, s.Deck, scanned)
			}
			return nil
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a source, keeping its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid source id %q", args[0])
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.db.Close()
			return a.db.DeleteSource(id)
		},
	}

	sourceCmd.AddCommand(addCmd, listCmd, rmCmd)
	return sourceCmd
}

func newCountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Print today's remaining counts for the current deck",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.db.Close()

			if err := a.sched.Reset(); err != nil {
				return err
			}
			n, l, r := a.sched.Counts()
			fmt.Printf("new=%d learning=%d review=%d\n", n, l, r)
			return nil
		},
	}
}

func newDecksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decks",
		Short: "List decks with today's due counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.db.Close()

			tree, err := a.sched.DueTree()
			if err != nil {
				return err
			}
			for _, row := range tree {
				marker := " "
				if row.DeckID == a.decks.Current() {
					marker = "*"
				}
				fmt.Printf("%s %s\tnew=%d lrn=%d rev=%d\n", marker, row.Name, row.New, row.Learn, row.Review)
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the integrity pass and report repairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.db.Close()

			rep, err := a.sched.CheckIntegrity()
			if err != nil {
				return err
			}
			if !rep.Repaired() {
				fmt.Println("collection is consistent")
				return nil
			}
			fmt.Printf("repaired: stale original due=%d, orphaned filtered=%d, out-of-range new=%d, missing deck=%d\n",
				rep.StaleOriginalDue, rep.OrphanedFiltered, rep.NewOutOfRange, rep.MissingDeck)
			return nil
		},
	}
}

func isGitURL(path string) bool {
	switch {
	case len(path) > 4 && path[len(path)-4:] == ".git":
		return true
	case len(path) > 4 && path[:4] == "git@":
		return true
	case len(path) > 8 && path[:8] == "https://":
		return true
	}
	return false
}
