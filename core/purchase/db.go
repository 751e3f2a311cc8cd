package purchase

import (
	"context"
	"fmt"

	"github.com/avelic/academy/core/course"
	"github.com/avelic/academy/database"
	"github.com/jmoiron/sqlx"
)

// Create records the purchase. The insert is idempotent: a replayed
// confirmation hits the primary key and changes nothing.
func Create(ctx context.Context, db sqlx.ExtContext, p Purchase) error {
	const q = `
	INSERT INTO purchases (user_id, course_id, created_at)
	VALUES (:user_id, :course_id, :created_at)
	ON CONFLICT (user_id, course_id) DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting purchase of course[%s] by user[%s]: %w", p.CourseID, p.UserID, database.WrapError(err))
	}
	return nil
}

func Exists(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (bool, error) {
	in := struct {
		UserID   string `db:"user_id"`
		CourseID string `db:"course_id"`
	}{UserID: userID, CourseID: courseID}

	const q = `SELECT 1 FROM purchases WHERE user_id = :user_id AND course_id = :course_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return false, fmt.Errorf("selecting purchase of course[%s] by user[%s]: %w", courseID, userID, err)
	}
	defer rows.Close()

	return rows.Next(), nil
}

// FetchCoursesByUser returns the courses the user owns a purchase for.
func FetchCoursesByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]course.Course, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{UserID: userID}

	const q = `
	SELECT c.* FROM courses AS c
	JOIN purchases AS p ON p.course_id = c.course_id
	WHERE p.user_id = :user_id
	ORDER BY p.created_at DESC`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return nil, fmt.Errorf("selecting purchased courses of user[%s]: %w", userID, err)
	}
	defer rows.Close()

	cs := []course.Course{}
	for rows.Next() {
		var c course.Course
		if err := rows.StructScan(&c); err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		cs = append(cs, c)
	}
	return cs, nil
}

// FetchSales aggregates purchases of the creator's courses.
func FetchSales(ctx context.Context, db sqlx.ExtContext, ownerID string) ([]Sale, error) {
	in := struct {
		OwnerID string `db:"owner_id"`
	}{OwnerID: ownerID}

	const q = `
	SELECT c.course_id, c.title, COUNT(*) AS sales, SUM(COALESCE(c.price, 0)) AS revenue
	FROM purchases AS p
	JOIN courses AS c ON c.course_id = p.course_id
	WHERE c.owner_id = :owner_id
	GROUP BY c.course_id, c.title
	ORDER BY revenue DESC`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return nil, fmt.Errorf("selecting sales of owner[%s]: %w", ownerID, err)
	}
	defer rows.Close()

	sales := []Sale{}
	for rows.Next() {
		var s Sale
		if err := rows.StructScan(&s); err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, nil
}

func createOrder(ctx context.Context, db sqlx.ExtContext, o Order) error {
	const q = `
	INSERT INTO paypal_orders (provider_id, user_id, course_id, created_at)
	VALUES (:provider_id, :user_id, :course_id, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, o); err != nil {
		return fmt.Errorf("inserting paypal order[%s]: %w", o.ProviderID, database.WrapError(err))
	}
	return nil
}

func fetchOrder(ctx context.Context, db sqlx.ExtContext, providerID string) (Order, error) {
	in := struct {
		ProviderID string `db:"provider_id"`
	}{ProviderID: providerID}

	const q = `SELECT * FROM paypal_orders WHERE provider_id = :provider_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return Order{}, fmt.Errorf("selecting paypal order[%s]: %w", providerID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Order{}, database.ErrDBNotFound
	}

	var o Order
	if err := rows.StructScan(&o); err != nil {
		return Order{}, fmt.Errorf("scanning paypal order: %w", err)
	}
	return o, nil
}

func fetchCustomer(ctx context.Context, db sqlx.ExtContext, userID string) (Customer, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{UserID: userID}

	const q = `SELECT * FROM stripe_customers WHERE user_id = :user_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return Customer{}, fmt.Errorf("selecting stripe customer of user[%s]: %w", userID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Customer{}, database.ErrDBNotFound
	}

	var c Customer
	if err := rows.StructScan(&c); err != nil {
		return Customer{}, fmt.Errorf("scanning stripe customer: %w", err)
	}
	return c, nil
}

func createCustomer(ctx context.Context, db sqlx.ExtContext, c Customer) error {
	const q = `
	INSERT INTO stripe_customers (user_id, customer_id)
	VALUES (:user_id, :customer_id)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting stripe customer of user[%s]: %w", c.UserID, database.WrapError(err))
	}
	return nil
}
