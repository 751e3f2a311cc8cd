package progress

import "time"

// Progress records whether a learner finished a chapter. One row per
// (learner, chapter) pair, written only by the learner it belongs to.
type Progress struct {
	UserID    string    `json:"userId" db:"user_id"`
	ChapterID string    `json:"chapterId" db:"chapter_id"`
	Completed bool      `json:"isCompleted" db:"completed"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type ProgressUp struct {
	Completed *bool `json:"isCompleted" validate:"required"`
}

// Summary is a course-level completion percentage.
type Summary struct {
	CourseID string  `json:"courseId"`
	Percent  float64 `json:"progress"`
}
