// Package docsgen turns persisted dump-all captures into a Markdown
// document describing every structure a page exposes: column inventory,
// content rendered as Markdown tables, and optionally LLM-written prose
// per structure.
package docsgen

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/sashabaranov/go-openai"

	"github.com/gridsight/gridsight/scan"
	"github.com/gridsight/gridsight/store"
)

// maxSampleRows bounds how many rows go into the LLM prompt per structure.
const maxSampleRows = 5

// Config controls generation. An empty OpenAIKey disables the prose pass.
type Config struct {
	OpenAIKey string
	Model     string

	// Descriptions are human-written per-structure lines, emitted verbatim
	// above generated content.
	Descriptions map[string]string
}

// Generator renders dump captures to Markdown.
type Generator struct {
	cfg    Config
	conv   *converter.Converter
	llm    *openai.Client
	logger *slog.Logger
}

// New creates a Generator.
func New(cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		cfg:    cfg,
		logger: logger,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
	if cfg.OpenAIKey != "" {
		g.llm = openai.NewClient(cfg.OpenAIKey)
	}
	return g
}

// Generate renders one dump capture as a single Markdown document.
func (g *Generator) Generate(ctx context.Context, dump *store.DumpRecord) (string, error) {
	if dump == nil {
		return "", fmt.Errorf("docsgen: no dump available")
	}

	var b strings.Builder
	b.WriteString("# Structure documentation\n\n")
	fmt.Fprintf(&b, "Source: %s\n\n", dump.URL)
	fmt.Fprintf(&b, "Captured: %s\n", dump.CreatedAt.Format("2006-01-02 15:04 UTC"))

	ids := make([]string, 0, len(dump.Structures))
	for id := range dump.Structures {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		records := dump.Structures[id]

		fmt.Fprintf(&b, "\n## %s\n\n", id)
		if desc := g.cfg.Descriptions[id]; desc != "" {
			b.WriteString(desc + "\n\n")
		}

		if g.llm != nil {
			prose, err := g.describe(ctx, id, records)
			if err != nil {
				g.logger.Warn("docsgen: prose generation failed", "structure", id, "error", err)
			} else if prose != "" {
				b.WriteString(prose + "\n\n")
			}
		}

		fmt.Fprintf(&b, "Rows captured: %d\n\n", len(records))
		b.WriteString(g.renderContent(id, dump, records))
	}

	g.logger.Info("docsgen: document generated", "structures", len(ids))
	return b.String(), nil
}

// renderContent prefers converting the sanitized HTML fragment, which
// preserves the page's own layout; when absent or unconvertible it falls
// back to a Markdown table built from the records.
func (g *Generator) renderContent(id string, dump *store.DumpRecord, records []scan.Record) string {
	if frag := dump.Fragments[id]; frag != "" {
		md, err := g.conv.ConvertString(frag)
		if err == nil && strings.TrimSpace(md) != "" {
			return strings.TrimSpace(md) + "\n"
		}
		if err != nil {
			g.logger.Warn("docsgen: fragment conversion failed", "structure", id, "error", err)
		}
	}
	return recordsTable(records)
}

// recordsTable renders records as a Markdown pipe table with the union of
// column names, in first-seen order.
func recordsTable(records []scan.Record) string {
	if len(records) == 0 {
		return "(no rows)\n"
	}

	var cols []string
	seen := make(map[string]bool)
	for _, r := range records {
		names := make([]string, 0, len(r.Data))
		for name := range r.Data {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				cols = append(cols, name)
			}
		}
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
	for _, r := range records {
		cells := make([]string, len(cols))
		for i, name := range cols {
			cells[i] = strings.ReplaceAll(r.Data[name], "|", "\\|")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

// describe asks the model for a short prose description of one structure
// based on a sample of its rows.
func (g *Generator) describe(ctx context.Context, id string, records []scan.Record) (string, error) {
	sample := records
	if len(sample) > maxSampleRows {
		sample = sample[:maxSampleRows]
	}

	var rows strings.Builder
	for _, r := range sample {
		fmt.Fprintf(&rows, "%v\n", r.Data)
	}

	resp, err := g.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You document data tables scraped from a web application. Given a table name and sample rows, write one short paragraph describing what the table contains and what each column means. Plain prose, no headings.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Table: %s\nSample rows:\n%s", id, rows.String()),
			},
		},
		MaxTokens: 300,
	})
	if err != nil {
		return "", fmt.Errorf("docsgen: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("docsgen: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
