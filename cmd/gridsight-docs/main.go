// Command gridsight-docs generates a Markdown document describing every
// structure captured by the most recent dump-all run. With an OpenAI key it
// adds model-written prose per structure; without one it emits the captured
// content only.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"

	"github.com/gridsight/gridsight/docsgen"
	"github.com/gridsight/gridsight/scan"
	"github.com/gridsight/gridsight/store"
)

func main() {
	var (
		configFlag = flag.String("config", env("GRIDSIGHT_CONFIG", ""), "YAML config file")
		dbPath     = flag.String("db", "", "gridsight database (overrides config)")
		out        = flag.String("out", "TABLES.md", "output Markdown file")
		model      = flag.String("model", "", "OpenAI model for prose generation (overrides config)")
		noLLM      = flag.Bool("no-llm", false, "skip prose generation even when an API key is set")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	ctx := context.Background()

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	db := env("GRIDSIGHT_DB", cfg.Storage.DBPath)
	if *dbPath != "" {
		db = *dbPath
	}

	st, err := store.Open(db)
	if err != nil {
		logger.Error("store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	dump, err := st.LatestDump(ctx)
	if err != nil {
		logger.Error("load dump", "error", err)
		os.Exit(1)
	}
	if dump == nil {
		logger.Error("no dump recorded; run gridsight -dump -url <target> first")
		os.Exit(1)
	}

	gen := docsgen.Config{
		Model:        cfg.OpenAI.Model,
		Descriptions: cfg.Descriptions,
	}
	if *model != "" {
		gen.Model = *model
	}
	if !*noLLM {
		gen.OpenAIKey = env("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	}

	doc, err := docsgen.New(gen, logger).Generate(ctx, dump)
	if err != nil {
		logger.Error("generate", "error", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, []byte(doc), 0o644); err != nil {
		logger.Error("write output", "error", err)
		os.Exit(1)
	}
	logger.Info("documentation written", "path", *out, "structures", len(dump.Structures))
}

func loadConfig(path string) (*scan.Config, error) {
	if path == "" {
		var cfg scan.Config
		cfg.ApplyDefaults()
		return &cfg, nil
	}
	return scan.LoadConfigFile(path)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
