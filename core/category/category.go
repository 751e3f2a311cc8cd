package category

type Category struct {
	ID   string `json:"id" db:"category_id"`
	Name string `json:"name" db:"name"`
}
