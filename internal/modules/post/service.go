package post

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/thekandidedit/core/internal/models"
	"github.com/thekandidedit/core/internal/pkg/pagination"
	"github.com/thekandidedit/core/internal/pkg/response"
	"gorm.io/gorm"
)

// ErrSlugTaken is returned when creating or renaming a post to an
// existing slug.
var ErrSlugTaken = errors.New("post: slug already exists")

// Service handles post business logic.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns a paginated list of posts, newest first. Unpublished posts
// are visible only to admins. The content body is omitted from listings.
func (s *Service) List(ctx context.Context, q pagination.Query, isAdmin bool) ([]models.PostModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).
		Model(&models.PostModel{}).
		Omit("content").
		Order("created_at DESC")
	if !isAdmin {
		tx = tx.Where("is_published = ?", true)
	}

	var posts []models.PostModel
	pag, err := pagination.Paginate(tx, q, &posts)
	return posts, pag, err
}

// GetBySlug fetches a single post by slug. Returns (nil, nil) when no
// visible post matches.
func (s *Service) GetBySlug(ctx context.Context, slug string, isAdmin bool) (*models.PostModel, error) {
	var post models.PostModel
	tx := s.db.WithContext(ctx).Where("slug = ?", slug)
	if !isAdmin {
		tx = tx.Where("is_published = ?", true)
	}
	if err := tx.First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// GetByID fetches a single post by ID.
func (s *Service) GetByID(ctx context.Context, id string) (*models.PostModel, error) {
	var post models.PostModel
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create inserts a new post.
func (s *Service) Create(ctx context.Context, dto *CreatePostDTO) (*models.PostModel, error) {
	slug := NormalizeSlug(dto.Slug)
	if slug == "" {
		slug = NormalizeSlug(dto.Title)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.PostModel{}).
		Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugTaken
	}

	post := models.PostModel{
		Title:         dto.Title,
		Slug:          slug,
		Excerpt:       dto.Excerpt,
		CoverImageURL: dto.CoverImageURL,
		Content:       dto.Content,
		IsPublished:   dto.IsPublished,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// Update patches an existing post.
func (s *Service) Update(ctx context.Context, id string, dto *UpdatePostDTO) (*models.PostModel, error) {
	post, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, nil
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Slug != nil {
		slug := NormalizeSlug(*dto.Slug)
		if slug != post.Slug {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.PostModel{}).
				Where("slug = ? AND id <> ?", slug, id).Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrSlugTaken
			}
		}
		updates["slug"] = slug
	}
	if dto.Excerpt != nil {
		updates["excerpt"] = *dto.Excerpt
	}
	if dto.CoverImageURL != nil {
		updates["cover_image_url"] = *dto.CoverImageURL
	}
	if dto.Content != nil {
		updates["content"] = *dto.Content
	}
	if dto.IsPublished != nil {
		updates["is_published"] = *dto.IsPublished
	}
	if len(updates) == 0 {
		return post, nil
	}

	if err := s.db.WithContext(ctx).Model(post).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete soft-deletes a post.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PostModel{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashRuns     = regexp.MustCompile(`-{2,}`)
)

// NormalizeSlug lowercases a candidate slug and collapses everything that
// is not [a-z0-9-] into single dashes.
func NormalizeSlug(raw string) string {
	slug := strings.ToLower(strings.TrimSpace(raw))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	slug = slugDashRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
