package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"enhancer/internal/core"
	"enhancer/internal/logger"
)

const (
	// DefaultMaxOriginalChars bounds how much of the original article reaches the prompt.
	DefaultMaxOriginalChars = 2000

	// RewriteSystemPrompt frames the model as a content writer.
	RewriteSystemPrompt = "You are a professional content writer who creates original, high-quality articles."

	// NoReferencesText stands in for the reference section when nothing was collected.
	NoReferencesText = "No reference articles provided."

	referenceSeparator = "\n\n---\n\n"

	// RewritePromptTemplate takes the original title, the original content and the
	// serialized reference blocks.
	RewritePromptTemplate = `You are an expert content writer. I have an original article that I want you to rewrite and improve.

ORIGINAL ARTICLE:
Title: %s
Content: %s

REFERENCE ARTICLES (for inspiration on structure, style, and approach - do NOT copy):
%s

YOUR TASK:
1. Rewrite the original article to be more engaging and well-structured
2. Be inspired by the reference articles' style and approach, but DO NOT copy or plagiarize
3. Improve clarity, readability, and overall structure
4. Add better formatting with clear sections if needed
5. Keep the core message and facts from the original
6. Make it longer and more comprehensive (but still focused)

IMPORTANT:

Please provide the rewritten article directly without any preamble.`
)

// RewriterOptions fixes the prompt bounds and sampling settings. A nil Temperature
// selects DefaultTemperature; zero is a valid setting.
type RewriterOptions struct {
	MaxOriginalChars int
	Temperature      *float32
	MaxTokens        int32
}

// Rewriter assembles the rewrite prompt, calls the generator and appends the
// reference list to the result.
type Rewriter struct {
	generator Generator
	opts      RewriterOptions
	log       *slog.Logger
}

// NewRewriter creates a rewriter. Zero options select the package defaults.
func NewRewriter(generator Generator, opts RewriterOptions) *Rewriter {
	if opts.MaxOriginalChars <= 0 {
		opts.MaxOriginalChars = DefaultMaxOriginalChars
	}
	if opts.Temperature == nil {
		opts.Temperature = core.Float32Ptr(DefaultTemperature)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &Rewriter{
		generator: generator,
		opts:      opts,
		log:       logger.With("component", "rewriter"),
	}
}

// Rewrite produces the enhanced article body. Every failure wraps core.ErrGeneration.
func (r *Rewriter) Rewrite(ctx context.Context, original core.Article, refs []core.ReferenceArticle) (string, error) {
	if r.generator == nil {
		return "", fmt.Errorf("%w: %w: no generation backend configured", core.ErrGeneration, core.ErrConfiguration)
	}

	prompt := BuildRewritePrompt(original.Title, truncate(original.Content, r.opts.MaxOriginalChars), refs)

	text, err := r.generator.Generate(ctx, RewriteSystemPrompt, prompt, GenerationOptions{
		Temperature: r.opts.Temperature,
		MaxTokens:   r.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrGeneration, r.generator.Name(), err)
	}

	r.log.Info("Generated rewrite",
		"generator", r.generator.Name(),
		"prompt_chars", utf8.RuneCountInString(prompt),
		"output_chars", utf8.RuneCountInString(text),
		"references", len(refs))

	return strings.TrimSpace(text) + ReferencesSection(refs), nil
}

// BuildRewritePrompt renders the user prompt. content is used as given.
func BuildRewritePrompt(title, content string, refs []core.ReferenceArticle) string {
	return fmt.Sprintf(RewritePromptTemplate, title, content, referenceBlocks(refs))
}

func referenceBlocks(refs []core.ReferenceArticle) string {
	if len(refs) == 0 {
		return NoReferencesText
	}
	blocks := make([]string, len(refs))
	for i, ref := range refs {
		blocks[i] = fmt.Sprintf("Reference %d (from %s):\n%s", i+1, ref.Source, ref.Content)
	}
	return strings.Join(blocks, referenceSeparator)
}

// ReferencesSection renders the trailing provenance section appended to generated content.
func ReferencesSection(refs []core.ReferenceArticle) string {
	var b strings.Builder
	b.WriteString(referenceSeparator)
	b.WriteString("## References\n")
	for i, ref := range refs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(ref.Source)
	}
	return b.String()
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
