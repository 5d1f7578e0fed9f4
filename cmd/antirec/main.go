package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/antirec/internal/config"
	"github.com/TobiSchelling/antirec/internal/database"
	"github.com/TobiSchelling/antirec/internal/logging"
	"github.com/TobiSchelling/antirec/internal/movie"
	"github.com/TobiSchelling/antirec/internal/pipeline"
	"github.com/TobiSchelling/antirec/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "antirec",
	Short:   "Movies you will probably hate",
	Long:    "antirec asks a language model what you would dislike based on movies you enjoy, then finds those movies on TMDb.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		if err := config.LoadEnv(); err != nil {
			return err
		}

		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logging.Init(logging.Config{Level: level, Format: cfg.Logging.Format})
		return nil
	},
}

// loadConfig resolves the config file, falling back to the built-in defaults
// when none exists and no explicit path was given.
func loadConfig() (*config.Config, error) {
	path, err := config.ResolveConfigPath(configPath)
	if err != nil {
		if configPath != "" {
			return nil, err
		}
		return config.Default(), nil
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(postersCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(moreCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("antirec", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/antirec/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Set TMDB_API_KEY and your model provider's key in the environment or a .env file.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Profiles:")
		fmt.Printf("  Stored: %d\n", stats.Profiles)
		fmt.Printf("  Movies shown: %d (%d distinct)\n", stats.Views, stats.DistinctMovies)
		fmt.Println("\nConfiguration:")
		fmt.Printf("  Model: %s (%s)\n", cfg.Model.Provider, cfg.Model.Model)
		fmt.Printf("  Catalog key (%s): %s\n", cfg.Catalog.APIKeyEnv, presence(cfg.Catalog.APIKey()))
		fmt.Printf("  Model key (%s): %s\n", cfg.Model.APIKeyEnv, presence(cfg.Model.APIKey()))
		if base := cfg.Model.EffectiveBaseURL(); base != "" {
			fmt.Printf("  Model endpoint: %s\n", base)
		}
		return nil
	},
}

// --- posters command ---

var posterCount int

var postersCmd = &cobra.Command{
	Use:   "posters",
	Short: "Show random popular movies to pick from",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(ctx context.Context, pipe *pipeline.Pipeline) error {
			count := posterCount
			if count == 0 {
				count = cfg.Recommend.PosterCount
			}
			movies, err := pipe.Posters(ctx, count)
			if err != nil {
				return err
			}
			printMovies(movies)
			return nil
		})
	},
}

func init() {
	postersCmd.Flags().IntVarP(&posterCount, "count", "n", 0, "Number of posters (default from config)")
}

// --- analyze command ---

var resultCount int

var analyzeCmd = &cobra.Command{
	Use:   "analyze <movie-id>...",
	Short: "Analyze liked movies and recommend ones you will dislike",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		return withPipeline(cmd, func(ctx context.Context, pipe *pipeline.Pipeline) error {
			res, err := pipe.Run(ctx, ids, countOrDefault(resultCount))
			if res != nil {
				printSteps(res.Steps)
			}
			if err != nil {
				return err
			}
			printResult(res)
			fmt.Printf("\nLoad more with: antirec more %s\n", res.ProfileID)
			return nil
		})
	},
}

var moreCmd = &cobra.Command{
	Use:   "more <profile-id>",
	Short: "Load more anti-recommendations for a stored profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(ctx context.Context, pipe *pipeline.Pipeline) error {
			res, err := pipe.More(ctx, args[0], countOrDefault(resultCount))
			if err != nil {
				return err
			}
			printResult(res)
			return nil
		})
	},
}

func init() {
	analyzeCmd.Flags().IntVarP(&resultCount, "count", "n", 0, "Number of movies (default from config)")
	moreCmd.Flags().IntVarP(&resultCount, "count", "n", 0, "Number of movies (default from config)")
}

// --- profiles command ---

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage stored profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.ListProfiles(cmd.Context())
		if err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("No profiles stored. Create one with: antirec analyze <movie-id>...")
			return nil
		}

		for _, p := range items {
			fmt.Printf("  %s  %s  %d movies selected, %d shown\n", p.ID, p.CreatedAt, len(p.SelectedIDs), p.Views)
			fmt.Printf("        %s\n", ellipsize(p.TasteSummary.TasteProfile, 70))
		}
		return nil
	},
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <profile-id>",
	Short: "Delete a profile and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		deleted, err := db.DeleteProfile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("profile %s not found", args[0])
		}
		fmt.Printf("Deleted profile %s\n", args[0])
		return nil
	},
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesDeleteCmd)
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		return withPipeline(cmd, func(ctx context.Context, pipe *pipeline.Pipeline) error {
			srv := server.New(pipe, server.Options{
				DefaultCount: cfg.Recommend.Count,
				PosterCount:  cfg.Recommend.PosterCount,
			})
			fmt.Printf("Starting server at http://localhost:%d\n", port)
			fmt.Println("Press Ctrl+C to stop")
			return server.Serve(ctx, srv, port)
		})
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// withPipeline opens the database, builds the pipeline and runs fn with a
// context canceled on interrupt.
func withPipeline(cmd *cobra.Command, fn func(context.Context, *pipeline.Pipeline) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := fn(ctx, pipeline.New(ctx, cfg, db)); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.DBPath())
}

func countOrDefault(n int) int {
	if n > 0 {
		return n
	}
	return cfg.Recommend.Count
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid movie ID: %s", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ellipsize shortens s to at most n characters plus "...".
func ellipsize(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func presence(s string) string {
	if s == "" {
		return "missing"
	}
	return "set"
}

func printSteps(steps []pipeline.StepResult) {
	for i, step := range steps {
		fmt.Printf("Step %d/%d: %s\n", i+1, len(steps), step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
	fmt.Println()
}

func printResult(res *pipeline.Result) {
	fmt.Printf("Profile %s\n", res.ProfileID)
	fmt.Printf("  You like: %s\n", res.TasteSummary.TasteProfile)
	fmt.Printf("  You won't like: %s\n\n", res.TasteSummary.AntiPreferences)
	if res.Unfiltered {
		fmt.Println("Nothing matched your anti-profile, so here are some random picks:")
	}
	printMovies(res.Movies)
}

func printMovies(movies []movie.Summary) {
	if len(movies) == 0 {
		fmt.Println("No movies found.")
		return
	}
	for _, m := range movies {
		fmt.Printf("  [%d] %s (%s)  %.1f/10\n", m.ID, m.Title, m.Year, m.VoteAverage)
		fmt.Printf("        %s\n", m.PosterURL)
	}
}
