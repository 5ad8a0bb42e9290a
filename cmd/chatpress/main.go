package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kchou-lab/chatpress/internal/blog"
	"github.com/kchou-lab/chatpress/internal/config"
	"github.com/kchou-lab/chatpress/internal/database"
	"github.com/kchou-lab/chatpress/internal/edit"
	"github.com/kchou-lab/chatpress/internal/extend"
	"github.com/kchou-lab/chatpress/internal/extract"
	"github.com/kchou-lab/chatpress/internal/knowledge"
	"github.com/kchou-lab/chatpress/internal/llm"
	"github.com/kchou-lab/chatpress/internal/pipeline"
	"github.com/kchou-lab/chatpress/internal/promptanalysis"
	"github.com/kchou-lab/chatpress/internal/review"
	"github.com/kchou-lab/chatpress/internal/search"
	"github.com/kchou-lab/chatpress/internal/server"
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
	Use:     "chatpress",
	Short:   "Turn AI chat logs into blog posts",
	Long:    "Chatpress extracts, researches, reviews, and edits AI conversation logs into publishable technical blog posts, with prompt improvement suggestions on the side.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(kbCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("chatpress", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/chatpress/",
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
		fmt.Println("Edit it to configure the LLM provider, search API, and knowledge base.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Conversations:")
		fmt.Printf("  Logs stored: %d\n", stats.ConversationLogs)
		fmt.Println("\nPosts:")
		fmt.Printf("  Total: %d\n", stats.BlogPosts)
		fmt.Printf("  Drafts: %d\n", stats.DraftPosts)
		fmt.Println("\nPrompt suggestions:")
		fmt.Printf("  Total: %d\n", stats.PromptSuggestions)
		fmt.Println("\nRuns:")
		fmt.Printf("  Completed: %d\n", stats.CompletedRuns)
		fmt.Printf("  Failed: %d\n", stats.FailedRuns)
		fmt.Println("\nKnowledge base:")
		fmt.Printf("  Documents: %d\n", stats.KnowledgeDocs)
		return nil
	},
}

// --- process command ---

var forceProcess bool

var processCmd = &cobra.Command{
	Use:   "process [file...]",
	Short: "Run the pipeline on conversation log files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		provider := llm.CreateProvider(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.OllamaURL, cfg.LLM.OpenAIModel, cfg.LLM.APIKeyEnv)
		if provider == nil {
			return fmt.Errorf("no LLM provider available")
		}

		svc := blog.NewService(db, buildRunner(db, provider))
		ctx := context.Background()

		for _, path := range args {
			outcome, err := svc.ProcessFile(ctx, path, forceProcess)
			if err != nil {
				fmt.Printf("%s: error: %v\n", path, err)
				continue
			}
			printOutcome(path, outcome)
		}
		return nil
	},
}

func init() {
	processCmd.Flags().BoolVar(&forceProcess, "force", false, "Reprocess even if this file content was already processed")
}

// buildRunner wires the pipeline stages from configuration.
func buildRunner(db *database.DB, provider llm.Provider) *pipeline.Runner {
	embedder := llm.NewOllamaEmbedder(cfg.Embedding.Model, cfg.LLM.OllamaURL)
	kb := knowledge.New(db, embedder, cfg.Knowledge.TopK, cfg.Knowledge.MinSimilarity)
	searcher := search.NewClient(cfg.Search.BaseURL, cfg.Search.APIKeyEnv, cfg.Search.MaxResults, cfg.Search.Depth)

	return pipeline.New(
		provider,
		extract.New(provider),
		extend.New(provider, kb, searcher),
		review.New(provider, searcher, cfg.Pipeline.FactCheckMethod),
		promptanalysis.New(provider, cfg.Memory.TokenLimit, cfg.Memory.MaxFacts),
		edit.New(provider),
		pipeline.Config{
			Timeout:    time.Duration(cfg.Pipeline.TimeoutSeconds) * time.Second,
			TokenLimit: cfg.Memory.TokenLimit,
			MaxFacts:   cfg.Memory.MaxFacts,
		},
	)
}

func printOutcome(path string, o *blog.Outcome) {
	if o.Skipped {
		fmt.Printf("%s: already processed, skipping (use --force to reprocess)\n", path)
		return
	}

	fmt.Printf("%s: done\n", path)
	fmt.Printf("  Post: %s (%s)\n", o.Post.Title, o.Post.ID)
	fmt.Printf("  Prompt suggestions: %d\n", len(o.Suggestions))
	if o.QualityWarning != "" {
		fmt.Printf("  Warning: %s\n", o.QualityWarning)
	}
	if len(o.Escalations) > 0 {
		fmt.Println("  Needs human review:")
		for _, e := range o.Escalations {
			fmt.Printf("    - %s\n", e)
		}
	}
	fmt.Println("  View it with: chatpress serve")
}

// --- list command ---

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated blog posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		posts, err := db.ListBlogPosts(listLimit)
		if err != nil {
			return err
		}
		if len(posts) == 0 {
			fmt.Println("No posts yet. Run: chatpress process <file>")
			return nil
		}

		for _, p := range posts {
			fmt.Printf("[%s] %s (%s)\n", p.Status, p.Title, p.ID)
			if p.Summary != "" {
				summary := p.Summary
				if len(summary) > 80 {
					summary = summary[:80] + "..."
				}
				fmt.Printf("    %s\n", summary)
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum posts to list (0 = all)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- kb command ---

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the local knowledge base",
}

var kbIngestURLCmd = &cobra.Command{
	Use:   "ingest-url [url]",
	Short: "Fetch a web page and add its readable content to the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, db, err := openKB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := kb.IngestURL(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %d chunk(s) from %s\n", n, args[0])
		return nil
	},
}

var kbFeedItems int

var kbIngestFeedCmd = &cobra.Command{
	Use:   "ingest-feed [url]",
	Short: "Ingest recent items from an RSS/Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, db, err := openKB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := kb.IngestFeed(context.Background(), args[0], kbFeedItems)
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %d chunk(s) from feed %s\n", n, args[0])
		return nil
	},
}

var kbIngestFileCmd = &cobra.Command{
	Use:   "ingest-file [path]",
	Short: "Add a local text or markdown file to the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, db, err := openKB()
		if err != nil {
			return err
		}
		defer db.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		title := filepath.Base(args[0])
		n, err := kb.IngestText(context.Background(), args[0], title, string(data))
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Printf("%s already in knowledge base\n", args[0])
			return nil
		}
		fmt.Printf("Ingested %d chunk(s) from %s\n", n, args[0])
		return nil
	},
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge base documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		docs, err := db.ListKBDocuments()
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("Knowledge base is empty. Add documents with: chatpress kb ingest-url")
			return nil
		}
		for _, d := range docs {
			fmt.Printf("[%d] %s\n    %s\n", d.ID, d.Title, d.Source)
		}
		return nil
	},
}

func init() {
	kbIngestFeedCmd.Flags().IntVar(&kbFeedItems, "items", 10, "Maximum feed items to ingest")

	kbCmd.AddCommand(kbIngestURLCmd)
	kbCmd.AddCommand(kbIngestFeedCmd)
	kbCmd.AddCommand(kbIngestFileCmd)
	kbCmd.AddCommand(kbListCmd)
}

func openKB() (*knowledge.Base, *database.DB, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	embedder := llm.NewOllamaEmbedder(cfg.Embedding.Model, cfg.LLM.OllamaURL)
	return knowledge.New(db, embedder, cfg.Knowledge.TopK, cfg.Knowledge.MinSimilarity), db, nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "chatpress.db")
	return database.Open(dbPath)
}
