package service

import (
	"context"
	"fmt"

	"mttsite/internal/docstore"
	"mttsite/internal/dto"
	"mttsite/internal/model"
	"mttsite/internal/normalize"
	"mttsite/internal/resilient"
)

func (s *service) CreateBlog(ctx context.Context, req dto.BlogRequest) (model.Blog, resilient.WriteResult, error) {
	if err := validate(ctx, req); err != nil {
		return model.Blog{}, resilient.WriteResult{}, err
	}
	now := s.timestamp()
	blog := model.Blog{
		Title:       req.Title,
		Content:     req.Content,
		CoverImage:  req.CoverImage,
		Author:      req.Author,
		Excerpt:     req.Excerpt,
		Slug:        normalize.Slugify(req.Title),
		IsPublished: req.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	doc, err := docstore.FromRecord(blog)
	if err != nil {
		return model.Blog{}, resilient.WriteResult{}, err
	}
	res, err := s.blogs.Create(ctx, doc)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create blog post")
		return model.Blog{}, resilient.WriteResult{}, err
	}
	blog.ID = res.ID
	s.log.Info().Str("blog_id", res.ID).Str("slug", blog.Slug).Bool("queued", res.Queued).Msg("blog post created")
	return blog, res, nil
}

// UpdateBlog recomputes the slug from the new title.
func (s *service) UpdateBlog(ctx context.Context, id string, req dto.BlogRequest) (resilient.WriteResult, error) {
	if err := validate(ctx, req); err != nil {
		return resilient.WriteResult{}, err
	}
	partial := docstore.Document{
		"title":       req.Title,
		"content":     req.Content,
		"coverImage":  req.CoverImage,
		"author":      req.Author,
		"excerpt":     req.Excerpt,
		"slug":        normalize.Slugify(req.Title),
		"isPublished": req.IsPublished,
		"updatedAt":   s.timestamp(),
	}
	res, err := s.blogs.Update(ctx, id, partial)
	if err != nil {
		s.log.Error().Err(err).Str("blog_id", id).Msg("failed to update blog post")
		return resilient.WriteResult{}, notFound(err)
	}
	return res, nil
}

func (s *service) DeleteBlog(ctx context.Context, id string) (resilient.WriteResult, error) {
	res, err := s.blogs.Delete(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("blog_id", id).Msg("failed to delete blog post")
		return resilient.WriteResult{}, notFound(err)
	}
	return res, nil
}

func (s *service) GetBlog(ctx context.Context, id string) (*model.Blog, error) {
	doc, err := s.blogs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	blog, err := decode[model.Blog](doc)
	if err != nil {
		return nil, fmt.Errorf("decode blog %s: %w", id, err)
	}
	blog = normalize.Blog(blog)
	return &blog, nil
}

// GetBlogBySlug only finds published posts.
func (s *service) GetBlogBySlug(ctx context.Context, slug string) (*model.Blog, error) {
	docs, err := s.blogs.List(ctx, resilient.ListQuery{
		Query: docstore.Query{Equals: map[string]any{"slug": slug, "isPublished": true}},
	})
	if err != nil {
		return nil, err
	}
	blogs := decodeAll[model.Blog](docs, s.log)
	if len(blogs) == 0 {
		return nil, nil
	}
	blog := normalize.Blog(blogs[0])
	return &blog, nil
}

// ListBlogs orders by creation time, newest first. A positive limit caps the result.
func (s *service) ListBlogs(ctx context.Context, publishedOnly bool, f dto.BlogFilter) ([]model.Blog, error) {
	if err := validate(ctx, f); err != nil {
		return nil, err
	}
	eq := map[string]any{}
	if publishedOnly {
		eq["isPublished"] = true
	}
	docs, err := s.blogs.List(ctx, resilient.ListQuery{
		Query:  docstore.Query{Equals: eq, OrderBy: "createdAt", Desc: true},
		Search: f.Search,
	})
	if err != nil {
		return nil, err
	}
	blogs := decodeAll[model.Blog](docs, s.log)
	for i := range blogs {
		blogs[i] = normalize.Blog(blogs[i])
	}
	if f.Limit > 0 && len(blogs) > f.Limit {
		blogs = blogs[:f.Limit]
	}
	return blogs, nil
}
