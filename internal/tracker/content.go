package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/loaderd/internal/models"
)

const formatAnalysisPrompt = `Analyze this knowledge update and determine which content formats are appropriate.

Concept: %s
Summary: %s
Changes: %s

Available formats:
- short_video: 60-second vertical video script (good for breaking news, surprising facts, quick explainers)
- x_post: Single tweet or thread (good for opinions, quick updates, engagement)
- medium_article: Long-form article (good for deep analysis, tutorials, thought leadership)

Return JSON with:
{
  "suggested_formats": ["format1", "format2"],
  "reasoning": "why these formats fit this update"
}
`

const shortVideoPrompt = `Write a 60-second short video script about this topic.

Concept: %s
Summary: %s
Key points: %s

Format:
- Hook (first 3 seconds): Attention-grabbing opener
- Body (45 seconds): Main content, 3-4 key points
- CTA (10 seconds): Call to action

Return JSON:
{
  "hook": "opening line",
  "script": "full script with timing notes",
  "duration": "60s",
  "visual_suggestions": ["suggestion 1", "suggestion 2"]
}
`

const xPostPrompt = `Write an X (Twitter) post or thread about this topic.

Concept: %s
Summary: %s
Key points: %s
Sources: %s

If a thread is better, provide multiple tweets. Include relevant hashtags.

Return JSON:
{
  "text": "main tweet text (max 280 chars)",
  "thread": ["tweet 2", "tweet 3"] or null if single tweet is enough,
  "hashtags": ["tag1", "tag2"]
}
`

const mediumArticlePrompt = `Write a Medium article outline about this topic.

Concept: %s
Summary: %s
Key points: %s
Sources: %s

Return JSON:
{
  "title": "article title",
  "subtitle": "subtitle",
  "outline": [
    {"section": "Introduction", "points": ["point 1", "point 2"]},
    {"section": "Section Name", "points": ["point 1", "point 2"]}
  ],
  "conclusion": "conclusion summary",
  "estimated_read_time": "X min"
}
`

// ContentAgent selects appropriate content formats for a knowledge update
// and generates a draft per recommended format. Each format's model reply
// is parsed independently: one unusable reply yields an empty draft for
// that format without aborting the others.
type ContentAgent struct {
	model  ModelClient
	logger *slog.Logger
}

// NewContentAgent creates a content agent. model may be nil.
func NewContentAgent(model ModelClient, logger *slog.Logger) *ContentAgent {
	return &ContentAgent{model: model, logger: logger}
}

type formatAnalysis struct {
	SuggestedFormats []string `json:"suggested_formats"`
	Reasoning        string   `json:"reasoning"`
}

func (a *ContentAgent) complete(ctx context.Context, prompt string) string {
	if a.model == nil {
		return "{}"
	}
	reply, err := a.model.Complete(ctx, prompt, 2048)
	if err != nil {
		a.logger.Warn("content generation failed", slog.String("error", err.Error()))
		return "{}"
	}
	return reply
}

func jsonList(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// AnalyzeFormats asks the model which of the fixed format set fits this
// update. Unknown format names in the reply are discarded.
func (a *ContentAgent) AnalyzeFormats(ctx context.Context, name, summary string, changes []string) formatAnalysis {
	prompt := fmt.Sprintf(formatAnalysisPrompt, name, summary, jsonList(changes))

	var parsed formatAnalysis
	if err := extractJSON(a.complete(ctx, prompt), &parsed); err != nil {
		a.logger.Warn("format analysis parse failed", slog.String("topic", name), slog.String("error", err.Error()))
		return formatAnalysis{SuggestedFormats: []string{}}
	}

	known := make(map[string]struct{}, len(models.AllFormats))
	for _, f := range models.AllFormats {
		known[f] = struct{}{}
	}
	valid := []string{}
	for _, f := range parsed.SuggestedFormats {
		if _, ok := known[f]; ok {
			valid = append(valid, f)
		}
	}
	parsed.SuggestedFormats = valid
	return parsed
}

// GenerateDrafts runs format analysis and then generates only the
// recommended formats.
func (a *ContentAgent) GenerateDrafts(ctx context.Context, name, summary string, changes []string, sources []string) models.ContentDrafts {
	analysis := a.AnalyzeFormats(ctx, name, summary, changes)

	drafts := models.ContentDrafts{
		SuggestedFormats: analysis.SuggestedFormats,
		Reasoning:        analysis.Reasoning,
	}

	for _, format := range analysis.SuggestedFormats {
		switch format {
		case models.FormatShortVideo:
			prompt := fmt.Sprintf(shortVideoPrompt, name, summary, jsonList(changes))
			var d models.ShortVideoDraft
			if err := extractJSON(a.complete(ctx, prompt), &d); err != nil {
				a.logger.Warn("short video parse failed", slog.String("topic", name), slog.String("error", err.Error()))
			}
			drafts.ShortVideo = &d
		case models.FormatXPost:
			prompt := fmt.Sprintf(xPostPrompt, name, summary, jsonList(changes), jsonList(capStrings(sources, 5)))
			var d models.XPostDraft
			if err := extractJSON(a.complete(ctx, prompt), &d); err != nil {
				a.logger.Warn("x post parse failed", slog.String("topic", name), slog.String("error", err.Error()))
			}
			drafts.XPost = &d
		case models.FormatMediumArticle:
			prompt := fmt.Sprintf(mediumArticlePrompt, name, summary, jsonList(changes), jsonList(capStrings(sources, 10)))
			var d models.MediumArticleDraft
			if err := extractJSON(a.complete(ctx, prompt), &d); err != nil {
				a.logger.Warn("article parse failed", slog.String("topic", name), slog.String("error", err.Error()))
			}
			drafts.MediumArticle = &d
		}
	}
	return drafts
}

func capStrings(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
