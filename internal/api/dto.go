package api

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/loaderd/internal/models"
)

type registerResponse struct {
	UserID string `json:"user_id"`
	APIKey string `json:"api_key"`
}

type verifyResponse struct {
	UserID string `json:"user_id"`
	Valid  bool   `json:"valid"`
}

type topicCreateRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Keywords      []string `json:"keywords"`
	IsPublic      bool     `json:"is_public"`
	IntervalHours int      `json:"search_interval_hours"`
}

func (r *topicCreateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
		validation.Field(&r.Keywords, validation.Length(0, 20)),
		validation.Field(&r.IntervalHours, validation.Min(1), validation.Max(720)),
	)
}

// topicUpdateRequest carries partial updates; nil fields are untouched.
type topicUpdateRequest struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	Keywords      *[]string `json:"keywords"`
	Status        *string   `json:"status"`
	IsPublic      *bool     `json:"is_public"`
	IntervalHours *int      `json:"search_interval_hours"`
}

func (r *topicUpdateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
		validation.Field(&r.Status, validation.In(
			string(models.TopicActive), string(models.TopicPaused), string(models.TopicArchived))),
		validation.Field(&r.IntervalHours, validation.Min(1), validation.Max(720)),
	)
}

type mdCreateRequest struct {
	Content     string `json:"content"`
	Filename    string `json:"filename"`
	Purpose     string `json:"purpose"`
	InstallPath string `json:"install_path"`
}

func (r *mdCreateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Filename, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Purpose, validation.Length(0, 500)),
		validation.Field(&r.InstallPath, validation.Length(0, 500)),
	)
}

// topicView is the wire shape of a topic: keywords decode from the
// stored JSON string into a proper array.
type topicView struct {
	models.Topic
	Keywords []string `json:"keywords"`
}

func viewOfTopic(t *models.Topic) topicView {
	var kws []string
	if err := json.Unmarshal([]byte(t.Keywords), &kws); err != nil || kws == nil {
		kws = []string{}
	}
	return topicView{Topic: *t, Keywords: kws}
}

func viewOfTopics(ts []models.Topic) []topicView {
	out := make([]topicView, 0, len(ts))
	for i := range ts {
		out = append(out, viewOfTopic(&ts[i]))
	}
	return out
}

type topicListResponse struct {
	Topics []topicView `json:"topics"`
	Total  int         `json:"total"`
}

type publicTopicView struct {
	topicView
	NodeCount   int    `json:"node_count"`
	EdgeCount   int    `json:"edge_count"`
	SourceCount int    `json:"sources_count"`
	Summary     string `json:"summary,omitempty"`
}

type publicListResponse struct {
	Topics     []publicTopicView `json:"topics"`
	NextCursor string            `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
}

type uploadResponse struct {
	Code      string `json:"code"`
	FileSize  int64  `json:"file_size"`
	ExpiresAt string `json:"expires_at"`
}

type mdListResponse struct {
	Files []models.MdFile `json:"files"`
	Total int             `json:"total"`
}

type runAcceptedResponse struct {
	TopicID   int64  `json:"topic_id"`
	RunStatus string `json:"run_status"`
}

type snapshotListResponse struct {
	TopicID   int64           `json:"topic_id"`
	Snapshots []snapshotEntry `json:"snapshots"`
}

type snapshotEntry struct {
	Timestamp string `json:"timestamp"`
	Filename  string `json:"filename"`
}
