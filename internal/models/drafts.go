package models

// Content draft formats the content pipeline can produce.
const (
	FormatShortVideo    = "short_video"
	FormatXPost         = "x_post"
	FormatMediumArticle = "medium_article"
)

// AllFormats is the fixed set of formats the selector may choose from.
var AllFormats = []string{FormatShortVideo, FormatXPost, FormatMediumArticle}

// ShortVideoDraft is a 60-second vertical video script.
type ShortVideoDraft struct {
	Hook              string   `json:"hook"`
	Script            string   `json:"script"`
	Duration          string   `json:"duration,omitempty"`
	VisualSuggestions []string `json:"visual_suggestions,omitempty"`
}

// XPostDraft is a single post or thread for X.
type XPostDraft struct {
	Text     string   `json:"text"`
	Thread   []string `json:"thread,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// ArticleSection is one outlined section of a long-form article.
type ArticleSection struct {
	Section string   `json:"section"`
	Points  []string `json:"points,omitempty"`
}

// MediumArticleDraft is a long-form article outline.
type MediumArticleDraft struct {
	Title             string           `json:"title"`
	Subtitle          string           `json:"subtitle,omitempty"`
	Outline           []ArticleSection `json:"outline,omitempty"`
	Conclusion        string           `json:"conclusion,omitempty"`
	EstimatedReadTime string           `json:"estimated_read_time,omitempty"`
}

// ContentDrafts bundles the selector verdict with the drafts that were
// actually generated. A nil draft means the format was not recommended;
// a zero-value draft means generation ran but its output was unusable.
type ContentDrafts struct {
	SuggestedFormats []string            `json:"suggested_formats"`
	Reasoning        string              `json:"reasoning,omitempty"`
	ShortVideo       *ShortVideoDraft    `json:"short_video,omitempty"`
	XPost            *XPostDraft         `json:"x_post,omitempty"`
	MediumArticle    *MediumArticleDraft `json:"medium_article,omitempty"`
}
