package attachment

import "time"

type Attachment struct {
	ID        string    `json:"id" db:"attachment_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	Name      string    `json:"name" db:"name"`
	URL       string    `json:"url" db:"url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type AttachmentNew struct {
	URL string `json:"url" validate:"required,url"`
}
