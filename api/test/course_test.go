package test

import (
	"net/http"
	"testing"

	"github.com/avelic/academy/core/category"
	"github.com/avelic/academy/core/course"
)

type courseTest struct {
	*TestEnv
}

func (ct *courseTest) createCourseOK(t *testing.T, title string) course.Course {
	t.Helper()

	var c course.Course
	ct.Do(t, http.MethodPost, "/courses", map[string]string{"title": title}, &c, http.StatusCreated)

	if c.Title != title {
		t.Fatalf("created course has title %q, want %q", c.Title, title)
	}
	if c.Published {
		t.Fatal("created course must start as a draft")
	}
	return c
}

// fillCourseOK sets every field the publication predicate requires.
func (ct *courseTest) fillCourseOK(t *testing.T, id string, price int) course.Course {
	t.Helper()

	var cats []category.Category
	ct.Do(t, http.MethodGet, "/categories", nil, &cats, http.StatusOK)
	if len(cats) == 0 {
		t.Fatal("no seeded categories")
	}

	up := map[string]any{
		"description": "A course about things worth knowing.",
		"imageUrl":    "https://img.test/cover.png",
		"price":       price,
		"categoryId":  cats[0].ID,
	}

	var c course.Course
	ct.Do(t, http.MethodPut, "/courses/"+id, up, &c, http.StatusOK)
	return c
}

func (ct *courseTest) publishCourseOK(t *testing.T, id string) {
	t.Helper()
	ct.Do(t, http.MethodPost, "/courses/"+id+"/publish", nil, nil, http.StatusNoContent)
}

func (ct *courseTest) showCourse(t *testing.T, id string, wantStatus int) course.Course {
	t.Helper()

	var c course.Course
	out := &c
	if wantStatus != http.StatusOK {
		out = nil
	}
	ct.Do(t, http.MethodGet, "/courses/"+id, nil, out, wantStatus)
	return c
}

func TestCourse(t *testing.T) {
	env := NewTestEnv(t, "course_test")
	ct := &courseTest{env}
	cht := &chapterTest{env}

	env.Login(t, env.CreatorEmail, env.CreatorPass)

	c := ct.createCourseOK(t, "Practical Woodworking")

	// A bare-titled draft can't be published.
	ct.Do(t, http.MethodPost, "/courses/"+c.ID+"/publish", nil, nil, http.StatusUnprocessableEntity)

	c = ct.fillCourseOK(t, c.ID, 50)
	if c.Price == nil || *c.Price != 50 {
		t.Fatalf("updated course price %v, want 50", c.Price)
	}

	// Complete fields are still not enough without a published chapter.
	ct.Do(t, http.MethodPost, "/courses/"+c.ID+"/publish", nil, nil, http.StatusUnprocessableEntity)

	ch := cht.createChapterOK(t, c.ID, "Sharpening")
	cht.readyChapterOK(t, c.ID, ch.ID)
	cht.publishChapterOK(t, c.ID, ch.ID)

	ct.publishCourseOK(t, c.ID)

	pub := ct.showCourse(t, c.ID, http.StatusOK)
	if !pub.Published {
		t.Fatal("course must be published after publish")
	}

	var listed []course.Course
	ct.Do(t, http.MethodGet, "/courses", nil, &listed, http.StatusOK)
	if len(listed) != 1 || listed[0].ID != c.ID {
		t.Fatalf("published catalog %v, want just course %s", listed, c.ID)
	}

	// Anonymous readers see the published course.
	env.Logout(t)
	ct.showCourse(t, c.ID, http.StatusOK)

	// Unpublished drafts are the owner's business only.
	env.Login(t, env.CreatorEmail, env.CreatorPass)
	ct.Do(t, http.MethodPost, "/courses/"+c.ID+"/unpublish", nil, nil, http.StatusNoContent)
	ct.showCourse(t, c.ID, http.StatusOK)

	env.Logout(t)
	ct.showCourse(t, c.ID, http.StatusNotFound)

	env.Login(t, env.LearnerEmail, env.LearnerPass)
	ct.showCourse(t, c.ID, http.StatusNotFound)
	env.Logout(t)

	// Learners can't touch another owner's course.
	env.Login(t, env.LearnerEmail, env.LearnerPass)
	env.Do(t, http.MethodPut, "/courses/"+c.ID, map[string]any{"price": 5}, nil, http.StatusUnauthorized)
	env.Logout(t)

	// Deleting the course releases its provider assets first.
	env.Login(t, env.CreatorEmail, env.CreatorPass)
	ct.Do(t, http.MethodDelete, "/courses/"+c.ID, nil, nil, http.StatusNoContent)

	if len(env.Video.Deleted) != 1 {
		t.Fatalf("deleted %d provider assets, want 1", len(env.Video.Deleted))
	}

	ct.showCourse(t, c.ID, http.StatusNotFound)
}
