package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"castlepatch/castle"
	"castlepatch/catalog"
	"castlepatch/config"
	"castlepatch/corpus"
	"castlepatch/fetch"
	"castlepatch/match"
	"castlepatch/patch"
	"castlepatch/patcher"
	"castlepatch/server"
)

var (
	srv *server.Server
)

const (
	defaultPort   = 8080
	watchDebounce = 100 * time.Millisecond
)

// loadSite reads the catalog and image directory and builds the site rules.
// It runs before every pass so catalog edits are picked up in watch mode.
func loadSite(root string, cfg *config.Config) (*castle.Site, error) {
	cat, err := catalog.Load(config.Resolve(root, cfg.CatalogPath))
	if err != nil {
		return nil, err
	}
	images, err := catalog.ScanImages(config.Resolve(root, cfg.ImagesDir))
	if err != nil {
		return nil, err
	}
	cat.Images = images

	pages := match.New(*cfg.PageThreshold, cfg.StopWords)
	return &castle.Site{
		Name:        cfg.SiteName,
		Catalog:     cat,
		Pages:       pages,
		Cards:       pages.WithThreshold(*cfg.CardThreshold),
		ImagePrefix: cfg.ImagePrefix,
	}, nil
}

func patchSite(ctx context.Context, root string, cfg *config.Config) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("error getting absolute path: %w", err)
	}

	site, err := loadSite(absPath, cfg)
	if err != nil {
		return err
	}

	names := cfg.Rules
	if len(ruleNames) > 0 {
		names = ruleNames
	}
	rules, err := castle.Select(site.Rules(), names)
	if err != nil {
		return err
	}

	runCtx := patcher.RunContext{
		Root:     absPath,
		Patterns: sitePatterns(cfg, site),
		DryRun:   dryRun,
	}

	result, report, err := patcher.New(runCtx).
		WithRules(rules...).
		Run(ctx)
	result.PrintSummary(dryRun)
	if err != nil {
		return err
	}

	if reportPath != "" {
		if err := report.WriteFile(reportPath); err != nil {
			return err
		}
		slog.Info("Wrote run report", "path", reportPath)
	}

	if srv != nil && !dryRun {
		srv.NotifyReload()
	}

	return nil
}

// sitePatterns adds the catalog's province pages to the default patterns.
// Patterns set in the config are used as given.
func sitePatterns(cfg *config.Config, site *castle.Site) []string {
	if !slices.Equal(cfg.Patterns, config.DefaultPatterns) {
		return cfg.Patterns
	}
	return append(slices.Clone(cfg.Patterns), site.ProvincePages()...)
}

// watchedFile skips dot files and the temporary files that atomic writes
// create next to each document ("page.html123456").
func watchedFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && base != config.FileName {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".html", ".css", ".js", ".yaml", ".yml", ".json", ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return true
	}
	return false
}

func runWatchMode(ctx context.Context, root string, cfg *config.Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	fmt.Println("Starting initial pass...")
	if err := patchSite(ctx, root, cfg); err != nil {
		slog.Error("Initial pass failed", "error", err)
	}

	absPath, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("error getting absolute path: %w", err)
	}

	err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != absPath {
				return filepath.SkipDir
			}
			if err := watcher.Add(path); err != nil {
				slog.Debug("Failed to watch directory", "path", path, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directories: %w", err)
	}

	// The report is rewritten by every pass and must not trigger the next.
	var reportAbs string
	if reportPath != "" {
		reportAbs, _ = filepath.Abs(reportPath)
	}

	changes := make(chan struct{}, 64)
	batches := debounceChanges(ctx, changes, watchDebounce)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}

				if !watchedFile(event.Name) || event.Name == reportAbs {
					continue
				}

				if event.Op&fsnotify.Create == fsnotify.Create {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := watcher.Add(event.Name); err != nil {
							slog.Debug("Failed to watch new directory", "path", event.Name, "error", err)
						}
					}
				}

				slog.Debug("Watcher event", "op", event.Op, "path", event.Name)
				select {
				case changes <- struct{}{}:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Watcher error", "error", err)
			}
		}
	}()

	fmt.Printf("Watching %s for changes... (Press Ctrl+C to stop)\n", absPath)

	for batch := range batches {
		fmt.Printf("\nChanges detected (%d file%s changed) [Pass #%d], patching...\n", batch.Files, func() string {
			if batch.Files == 1 {
				return ""
			}
			return "s"
		}(), batch.Pass)

		// A pass that writes nothing raises no events, so the loop settles
		// after the pass following our own writes.
		if err := patchSite(ctx, root, cfg); err != nil {
			slog.Error("Pass failed", "error", err)
		}
		fmt.Printf("\nWatching %s for changes... (Press Ctrl+C to stop)\n", absPath)
	}
	return nil
}

type changeBatch struct {
	Files int
	Pass  int
}

// debounceChanges groups changes arriving less than wait apart into one
// batch. The counters live on the returned channel's goroutine, which exits
// when ctx is done.
func debounceChanges(ctx context.Context, changes <-chan struct{}, wait time.Duration) <-chan changeBatch {
	batches := make(chan changeBatch)
	go func() {
		defer close(batches)
		var (
			timer <-chan time.Time
			files int
			pass  int
		)
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				files++
				timer = time.After(wait)
			case <-timer:
				pass++
				select {
				case batches <- changeBatch{Files: files, Pass: pass}:
				case <-ctx.Done():
					return
				}
				files, timer = 0, nil
			}
		}
	}()
	return batches
}

var (
	dryRun     bool
	watch      bool
	verbose    bool
	port       int
	configJSON string
	reportPath string
	ruleNames  []string
)

func loadConfig(dir string) *config.Config {
	cfg, err := config.LoadConfig(dir, configJSON)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging() {
	level := slog.LevelError
	if verbose {
		level = slog.LevelInfo
	}
	if os.Getenv("CASTLEPATCH_DEBUG") == "true" || os.Getenv("CASTLEPATCH_DEBUG") == "1" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var rootCmd = &cobra.Command{
		Use:   "castlepatch",
		Short: "Patch the pages of the Belgian castles site in place",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	var runCmd = &cobra.Command{
		Use:   "run <dir>",
		Short: "Apply the site rules to every page under <dir>",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig(args[0])

			if watch {
				if err := runWatchMode(ctx, args[0], cfg); err != nil {
					slog.Error("Watch mode failed", "error", err)
					os.Exit(1)
				}
			} else {
				if err := patchSite(ctx, args[0], cfg); err != nil {
					slog.Error("Patch run failed", "error", err)
					os.Exit(1)
				}
			}
		},
	}

	var listCmd = &cobra.Command{
		Use:   "list <dir>",
		Short: "List the documents and the rules that apply to each",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig(args[0])
			site, err := loadSite(args[0], cfg)
			if err != nil {
				slog.Error("Failed to load catalog", "error", err)
				os.Exit(1)
			}
			rules, err := castle.Select(site.Rules(), cfg.Rules)
			if err != nil {
				slog.Error("Invalid rule selection", "error", err)
				os.Exit(1)
			}
			rules, err = patch.Order(rules)
			if err != nil {
				slog.Error("Invalid rule dependencies", "error", err)
				os.Exit(1)
			}

			for path := range corpus.Enumerate(args[0], sitePatterns(cfg, site)) {
				var applicable []string
				for _, r := range rules {
					if r.AppliesTo(path) {
						applicable = append(applicable, r.Name)
					}
				}
				fmt.Printf("%s\t%s\n", filepath.Base(path), strings.Join(applicable, ","))
			}
		},
	}

	var matchCmd = &cobra.Command{
		Use:   "match <dir> <file>",
		Short: "Show which catalog entries a page name resolves to",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig(args[0])
			site, err := loadSite(args[0], cfg)
			if err != nil {
				slog.Error("Failed to load catalog", "error", err)
				os.Exit(1)
			}

			key := filepath.Base(args[1])
			fmt.Printf("Key:    %s\n", match.Normalize(key))
			fmt.Printf("Tokens: %s\n", strings.Join(site.Pages.Tokens(key), " "))

			kinds := []struct {
				name    string
				entries []catalog.Entry
				m       *match.Matcher
			}{
				{"image", site.Catalog.Images, site.Pages},
				{"card image", site.Catalog.Images, site.Cards},
				{"address", site.Catalog.Addresses, site.Pages},
				{"hours", site.Catalog.Hours, site.Pages},
				{"faq", site.Catalog.FAQs, site.Pages},
			}
			for _, k := range kinds {
				names := make([]string, len(k.entries))
				for i, e := range k.entries {
					names[i] = e.RawName
				}
				if i, score, ok := k.m.Best(key, names); ok {
					fmt.Printf("%-11s %s (score %.2f, threshold %.2f)\n", k.name+":", names[i], score, k.m.Threshold())
				} else {
					fmt.Printf("%-11s no match\n", k.name+":")
				}
			}
			if p, ok := site.Catalog.ProvinceFor(key); ok {
				fmt.Printf("%-11s %s (%s)\n", "province:", p.Name, p.ID)
			}
		},
	}

	var fetchCmd = &cobra.Command{
		Use:   "fetch <dir> <name> <url>",
		Short: "Download a castle photo into the image directory",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig(args[0])
			f := fetch.New(fetch.Options{
				RatePerSecond: cfg.Fetch.RatePerSecond,
				Timeout:       time.Duration(cfg.Fetch.Timeout),
				UserAgent:     cfg.Fetch.UserAgent,
				MaxBytes:      cfg.Fetch.MaxBytes,
			})

			data, err := f.Fetch(ctx, args[2])
			if err != nil {
				slog.Error("Fetch failed", "url", args[2], "error", err)
				os.Exit(1)
			}
			file, err := fetch.Save(config.Resolve(args[0], cfg.ImagesDir), args[1], data)
			if err != nil {
				slog.Error("Save failed", "error", err)
				os.Exit(1)
			}
			fmt.Printf("Saved %s (%d bytes)\n", file, len(data))
		},
	}

	var serveCmd = &cobra.Command{
		Use:   "serve <dir>",
		Short: "Preview the site, patching and reloading on changes",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig(args[0])

			srv = server.NewServer(args[0], port)
			go func() {
				if err := srv.Run(); err != nil {
					slog.Error("HTTP server error", "error", err)
				}
			}()

			if watch {
				if err := runWatchMode(ctx, args[0], cfg); err != nil {
					slog.Error("Watch mode failed", "error", err)
					os.Exit(1)
				}
			} else {
				fmt.Printf("\nServer running at http://localhost:%d\n", port)
				<-ctx.Done()
			}
			srv.Shutdown()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log each document at info level")
	rootCmd.PersistentFlags().StringVar(&configJSON, "config", "", "JSON config string (overrides .castlepatch.json)")

	runCmd.Flags().BoolVarP(&watch, "watch", "w", false, "watch for changes and patch again")
	runCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report changes without writing")
	runCmd.Flags().StringVar(&reportPath, "report", "", "write a JSON run report to this file")
	runCmd.Flags().StringSliceVarP(&ruleNames, "rules", "r", nil, "only run these rules (and their dependencies)")

	serveCmd.Flags().BoolVarP(&watch, "watch", "w", false, "watch for changes and patch again")
	serveCmd.Flags().IntVarP(&port, "port", "p", defaultPort, "port to serve on")

	rootCmd.AddCommand(runCmd, listCmd, matchCmd, fetchCmd, serveCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
