package purchase

import (
	"time"

	"github.com/avelic/academy/core/course"
)

type Purchase struct {
	UserID    string    `json:"userId" db:"user_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Order is a pending paypal checkout, keyed by the provider's order id.
// The capture fulfills from this record, never from the request.
type Order struct {
	ProviderID string    `json:"providerId" db:"provider_id"`
	UserID     string    `json:"userId" db:"user_id"`
	CourseID   string    `json:"courseId" db:"course_id"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// Customer binds a user to their payment-provider customer so checkout
// sessions reuse it instead of minting a new one per purchase.
type Customer struct {
	UserID     string `db:"user_id"`
	CustomerID string `db:"customer_id"`
}

// DashboardCourse is a purchased course annotated with the learner's
// completion percentage.
type DashboardCourse struct {
	course.Course
	Progress float64 `json:"progress"`
}

type Dashboard struct {
	Completed  []DashboardCourse `json:"completed"`
	InProgress []DashboardCourse `json:"inProgress"`
}

// Sale aggregates a creator's revenue per course.
type Sale struct {
	CourseID string `json:"courseId" db:"course_id"`
	Title    string `json:"title" db:"title"`
	Sales    int    `json:"sales" db:"sales"`
	Revenue  int    `json:"revenue" db:"revenue"`
}
