// ABOUTME: Normalizes parsed feed payloads into articles
// ABOUTME: Strips markup from summaries and resolves links, authors, and dates

package refresh

import (
	"strings"

	"github.com/harper/feedsync/internal/content"
	"github.com/harper/feedsync/internal/models"
	"github.com/harper/feedsync/internal/parse"
)

// Normalize converts a payload into feed metadata and articles in source order.
// Items without a usable link are dropped since they have no identity.
func Normalize(p *parse.Payload) (models.Metadata, []*models.Article) {
	if p == nil {
		return models.Metadata{}, nil
	}
	meta := models.Metadata{
		Title:       p.Title,
		Description: content.ToPlainText(p.Subtitle),
	}

	articles := make([]*models.Article, 0, len(p.Items))
	for _, item := range p.Items {
		a, err := models.NewArticle(content.ToPlainText(item.Title), itemLink(item))
		if err != nil {
			continue
		}
		a.Summary = content.ToPlainText(item.Summary)
		a.Content = content.ToMarkdown(item.Content)
		if len(item.Authors) > 0 {
			a.Author = item.Authors[0]
		}
		a.PublishedAt = item.PublishedAt
		articles = append(articles, a)
	}
	return meta, articles
}

func itemLink(item parse.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, link := range item.Links {
		if link = strings.TrimSpace(link); link != "" {
			return link
		}
	}
	return ""
}
