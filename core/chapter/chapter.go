package chapter

import "time"

type Chapter struct {
	ID          string    `json:"id" db:"chapter_id"`
	CourseID    string    `json:"courseId" db:"course_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	VideoURL    *string   `json:"videoUrl" db:"video_url"`
	Position    int       `json:"position" db:"position"`
	Free        bool      `json:"isFree" db:"free"`
	Published   bool      `json:"isPublished" db:"published"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
}

// Asset is the local record of the chapter's provider-hosted video.
type Asset struct {
	ChapterID  string    `json:"-" db:"chapter_id"`
	AssetID    string    `json:"-" db:"asset_id"`
	PlaybackID string    `json:"playbackId" db:"playback_id"`
	CreatedAt  time.Time `json:"-" db:"created_at"`
}

type ChapterNew struct {
	Title string `json:"title" validate:"required"`
}

type ChapterUp struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	VideoURL    *string `json:"videoUrl" validate:"omitempty,url"`
	Free        *bool   `json:"isFree"`
}

// Move is one entry of a bulk reorder request.
type Move struct {
	ID       string `json:"id" validate:"required,uuid"`
	Position int    `json:"position" validate:"gte=1"`
}

// CanPublish reports whether the chapter satisfies the publication
// predicate. The provider asset is checked separately, against the store.
func (c Chapter) CanPublish() bool {
	return c.Title != "" &&
		c.Description != nil && *c.Description != "" &&
		c.VideoURL != nil && *c.VideoURL != ""
}
