// Package seo supplies the merged content fields a meta-tag builder
// consumes: title, description, image, tags and timestamps, each with its
// fallback chain already applied. Tag formatting itself happens elsewhere.
package seo

import (
	"context"
	"strings"
	"time"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/config"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/resolve"
)

// PageMeta carries the resolved metadata for one project page.
type PageMeta struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	URL         string     `json:"url"`
	Tags        []string   `json:"tags,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type Supplier struct {
	resolver  *resolve.Resolver
	published resolve.SnapshotReader
	site      config.SiteConfig
}

func NewSupplier(resolver *resolve.Resolver, published resolve.SnapshotReader, site config.SiteConfig) *Supplier {
	return &Supplier{
		resolver:  resolver,
		published: published,
		site:      site,
	}
}

// Meta resolves the metadata fields for a project, falling back to site
// defaults when no override or published value exists.
func (s *Supplier) Meta(ctx context.Context, projectID model.ProjectID) PageMeta {
	meta := PageMeta{
		Title:       s.resolver.ResolveText(ctx, projectID, key("hero_title", projectID), s.site.Name),
		Description: s.resolver.ResolveText(ctx, projectID, key("hero_description", projectID), s.site.Description),
		Image:       s.resolver.ResolveText(ctx, projectID, key("hero_image", projectID), s.site.Image),
		URL:         s.site.BaseURL + "/projects/" + string(projectID),
	}

	if tags := s.resolver.ResolveText(ctx, projectID, key("tags", projectID), ""); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				meta.Tags = append(meta.Tags, tag)
			}
		}
	}

	if snap, err := s.published.Latest(ctx, projectID); err == nil && snap != nil {
		publishedAt := snap.PublishedAt
		meta.PublishedAt = &publishedAt
		meta.UpdatedAt = &publishedAt
	}

	return meta
}

func key(prefix string, projectID model.ProjectID) model.ContentKey {
	return model.ContentKey(prefix + "_" + string(projectID))
}
