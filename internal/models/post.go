package models

// PostModel is a published (or draft) blog post.
type PostModel struct {
	Base
	Title         string `json:"title"           gorm:"not null"`
	Slug          string `json:"slug"            gorm:"uniqueIndex;not null"`
	Excerpt       string `json:"excerpt"`
	CoverImageURL string `json:"cover_image_url"`
	Content       string `json:"content,omitempty" gorm:"type:longtext"`
	IsPublished   bool   `json:"is_published"    gorm:"default:false;index"`
}

func (PostModel) TableName() string { return "posts" }
