package course

import "time"

type Course struct {
	ID          string    `json:"id" db:"course_id"`
	OwnerID     string    `json:"ownerId" db:"owner_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	ImageURL    *string   `json:"imageUrl" db:"image_url"`
	Price       *int      `json:"price" db:"price"`
	CategoryID  *string   `json:"categoryId" db:"category_id"`
	Published   bool      `json:"isPublished" db:"published"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
}

type CourseNew struct {
	Title string `json:"title" validate:"required"`
}

type CourseUp struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	Price       *int    `json:"price" validate:"omitempty,gte=0,lte=10000"`
	CategoryID  *string `json:"categoryId" validate:"omitempty,uuid"`
}

// CanPublish reports whether the course itself satisfies the publication
// predicate. The published-chapter requirement is checked separately,
// against the store.
func (c Course) CanPublish() bool {
	return c.Title != "" &&
		c.Description != nil && *c.Description != "" &&
		c.ImageURL != nil && *c.ImageURL != "" &&
		c.Price != nil &&
		c.CategoryID != nil
}
