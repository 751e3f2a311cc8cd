package test

import (
	"net/http"
	"testing"

	"github.com/avelic/academy/core/progress"
	"github.com/avelic/academy/validate"
)

type progressTest struct {
	*TestEnv
}

func (pt *progressTest) setCompleted(t *testing.T, chapterID string, completed bool) {
	t.Helper()

	body := map[string]bool{"isCompleted": completed}
	pt.Do(t, http.MethodPut, "/chapters/"+chapterID+"/progress", body, nil, http.StatusOK)
}

func (pt *progressTest) percent(t *testing.T, courseID string) float64 {
	t.Helper()

	var sum progress.Summary
	pt.Do(t, http.MethodGet, "/courses/"+courseID+"/progress", nil, &sum, http.StatusOK)
	return sum.Percent
}

func TestProgress(t *testing.T) {
	env := NewTestEnv(t, "progress_test")
	ct := &courseTest{env}
	cht := &chapterTest{env}
	pt := &progressTest{env}

	env.Login(t, env.CreatorEmail, env.CreatorPass)

	c := ct.createCourseOK(t, "Gardening")
	ct.fillCourseOK(t, c.ID, 20)

	ch1 := cht.createChapterOK(t, c.ID, "Soil")
	ch2 := cht.createChapterOK(t, c.ID, "Seeds")
	cht.readyChapterOK(t, c.ID, ch1.ID)
	cht.readyChapterOK(t, c.ID, ch2.ID)
	cht.publishChapterOK(t, c.ID, ch1.ID)
	cht.publishChapterOK(t, c.ID, ch2.ID)
	ct.publishCourseOK(t, c.ID)

	// A chapter that never leaves draft stays out of the denominator.
	_ = cht.createChapterOK(t, c.ID, "Compost")

	env.Logout(t)
	env.Login(t, env.LearnerEmail, env.LearnerPass)

	if pct := pt.percent(t, c.ID); pct != 0 {
		t.Fatalf("fresh learner progress %v, want 0", pct)
	}

	pt.setCompleted(t, ch1.ID, true)
	if pct := pt.percent(t, c.ID); pct != 50 {
		t.Fatalf("progress after one of two chapters %v, want 50", pct)
	}

	pt.setCompleted(t, ch2.ID, true)
	if pct := pt.percent(t, c.ID); pct != 100 {
		t.Fatalf("progress after all chapters %v, want 100", pct)
	}

	// Unticking a chapter brings the percentage back down.
	pt.setCompleted(t, ch2.ID, false)
	if pct := pt.percent(t, c.ID); pct != 50 {
		t.Fatalf("progress after unticking %v, want 50", pct)
	}

	// Completion rows against later-unpublished chapters stop counting.
	env.Logout(t)
	env.Login(t, env.CreatorEmail, env.CreatorPass)
	env.Do(t, http.MethodPost, "/courses/"+c.ID+"/chapters/"+ch2.ID+"/unpublish", nil, nil, http.StatusNoContent)
	env.Logout(t)

	env.Login(t, env.LearnerEmail, env.LearnerPass)
	if pct := pt.percent(t, c.ID); pct != 100 {
		t.Fatalf("progress over the single remaining published chapter %v, want 100", pct)
	}

	// Progress against an unknown chapter is a 404, not a silent upsert.
	env.Do(t, http.MethodPut, "/chapters/"+validate.GenerateID()+"/progress",
		map[string]bool{"isCompleted": true}, nil, http.StatusNotFound)
}

func TestProgressEmptyCourse(t *testing.T) {
	env := NewTestEnv(t, "progress_empty_test")
	ct := &courseTest{env}
	pt := &progressTest{env}

	env.Login(t, env.CreatorEmail, env.CreatorPass)
	c := ct.createCourseOK(t, "Empty Course")
	env.Logout(t)

	// No published chapters must read as 0%, not a division error.
	env.Login(t, env.LearnerEmail, env.LearnerPass)
	if pct := pt.percent(t, c.ID); pct != 0 {
		t.Fatalf("progress on a chapterless course %v, want 0", pct)
	}
}
