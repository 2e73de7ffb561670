package tracker

import (
	"fmt"
	"strings"

	"github.com/starford/loaderd/internal/models"
)

// Rendering caps for the shareable document.
const (
	mdRecentSnapshots = 5
	mdNodesPerChange  = 5
	mdChangesPerSnap  = 5
	mdSourceCap       = 20
)

// RenderMarkdown deterministically renders a snapshot, plus up to five of
// its most recent predecessors, into one shareable markdown document.
// Section order is fixed; missing optional content renders a placeholder
// instead of dropping the section header.
func RenderMarkdown(topicName, topicDescription string, snap *models.Snapshot, recent []*models.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", topicName)
	if topicDescription != "" {
		fmt.Fprintf(&b, "> %s\n\n", topicDescription)
	}

	fmt.Fprintf(&b, "**Updated:** %s | **Version:** #%d | **Nodes:** %d | **Edges:** %d | **Sources:** %d\n\n---\n\n",
		dateOf(snap.Timestamp), snap.Version,
		len(snap.Graph.Nodes), len(snap.Graph.Edges), len(snap.Sources))

	b.WriteString("## Summary\n\n")
	if snap.Summary != "" {
		b.WriteString(snap.Summary)
	} else {
		b.WriteString("_No summary available_")
	}
	b.WriteString("\n\n")

	renderRecentChanges(&b, recent)
	renderContentDrafts(&b, snap.ContentDrafts)
	renderSources(&b, snap.Sources)

	b.WriteString("---\n\n_Generated by [loader.land](https://loader.land) Loader Tracker_\n")
	return b.String()
}

func renderRecentChanges(b *strings.Builder, recent []*models.Snapshot) {
	b.WriteString("## Recent Changes\n\n")
	if len(recent) == 0 {
		b.WriteString("_No change history yet_\n\n")
		return
	}
	if len(recent) > mdRecentSnapshots {
		recent = recent[:mdRecentSnapshots]
	}
	for _, snap := range recent {
		fmt.Fprintf(b, "### %s\n", dateOf(snap.Timestamp))

		added := snap.Additions.Nodes
		if len(added) > 0 {
			names := make([]string, 0, mdNodesPerChange+1)
			for i, n := range added {
				if i == mdNodesPerChange {
					names = append(names, fmt.Sprintf("...+%d more", len(added)-mdNodesPerChange))
					break
				}
				label := n.Label
				if label == "" {
					label = n.ID
				}
				names = append(names, label)
			}
			fmt.Fprintf(b, "- **New nodes:** %s\n", strings.Join(names, ", "))
		}

		for i, change := range snap.ChangesFromPrevious {
			if i == mdChangesPerSnap {
				break
			}
			fmt.Fprintf(b, "- %s\n", change)
		}
		if len(added) == 0 && len(snap.ChangesFromPrevious) == 0 {
			b.WriteString("- _No recorded changes_\n")
		}
		b.WriteString("\n")
	}
}

func renderContentDrafts(b *strings.Builder, drafts models.ContentDrafts) {
	b.WriteString("---\n\n## Content Drafts\n\n")

	if drafts.XPost == nil && drafts.ShortVideo == nil && drafts.MediumArticle == nil {
		b.WriteString("_No content drafts generated_\n\n")
		return
	}
	if drafts.Reasoning != "" {
		fmt.Fprintf(b, "_%s_\n\n", drafts.Reasoning)
	}

	if x := drafts.XPost; x != nil {
		b.WriteString("### X/Twitter\n\n```\n")
		b.WriteString(x.Text)
		for i, tweet := range x.Thread {
			fmt.Fprintf(b, "\n\n---%d/---\n%s", i+2, tweet)
		}
		b.WriteString("\n```\n\n")
		if len(x.Hashtags) > 0 {
			tags := make([]string, len(x.Hashtags))
			for i, t := range x.Hashtags {
				tags[i] = "#" + t
			}
			fmt.Fprintf(b, "Tags: %s\n\n", strings.Join(tags, " "))
		}
	}

	if v := drafts.ShortVideo; v != nil {
		fmt.Fprintf(b, "### Short Video Script\n\n**Hook:** %s\n\n**Script:**\n%s\n\n", v.Hook, v.Script)
		if len(v.VisualSuggestions) > 0 {
			b.WriteString("**Visuals:**\n")
			for _, s := range v.VisualSuggestions {
				fmt.Fprintf(b, "- %s\n", s)
			}
			b.WriteString("\n")
		}
	}

	if m := drafts.MediumArticle; m != nil {
		title := m.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(b, "### Article Outline\n\n**%s**\n\n_%s_\n\n", title, m.Subtitle)
		for _, section := range m.Outline {
			fmt.Fprintf(b, "#### %s\n", section.Section)
			for _, point := range section.Points {
				fmt.Fprintf(b, "- %s\n", point)
			}
			b.WriteString("\n")
		}
		if m.Conclusion != "" {
			fmt.Fprintf(b, "#### Conclusion\n%s\n\n", m.Conclusion)
		}
		if m.EstimatedReadTime != "" {
			fmt.Fprintf(b, "_Estimated read time: %s_\n\n", m.EstimatedReadTime)
		}
	}
}

func renderSources(b *strings.Builder, sources []models.Source) {
	b.WriteString("---\n\n## Sources\n\n")
	if len(sources) == 0 {
		b.WriteString("_No sources_\n\n")
		return
	}
	for i, src := range sources {
		if i == mdSourceCap {
			break
		}
		title := src.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(b, "%d. [%s](%s)\n", i+1, title, src.URL)
	}
	if len(sources) > mdSourceCap {
		fmt.Fprintf(b, "_...and %d more sources_\n", len(sources)-mdSourceCap)
	}
	b.WriteString("\n")
}

// dateOf returns the YYYY-MM-DD prefix of an RFC3339 timestamp.
func dateOf(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
