package testpack

import (
	"context"
	"errors"
	"testing"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

func sampleTest(id, title string, section model.Section) model.Test {
	return model.Test{
		ID:               id,
		Title:            title,
		Section:          section,
		Difficulty:       "Beginner",
		TimeLimitMinutes: 30,
		Description:      "Practice on climate topics",
		Questions: []model.Question{
			{QuestionText: "T/F?", QuestionType: model.TypeTrueFalseNotGiven},
		},
	}
}

func TestSaveLoadList(t *testing.T) {
	pack := Open(t.TempDir())
	if err := pack.Save(sampleTest("b/2", "Reading B", model.SectionReading)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := pack.Save(sampleTest("a1", "Listening A", model.SectionListening)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := pack.Save(sampleTest("a1", "Listening A v2", model.SectionListening)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := pack.Load("b/2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Title != "Reading B" || len(got.Questions[0].Options) != 3 {
		t.Fatalf("unexpected loaded test: %+v", got)
	}

	all, err := pack.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Title != "Listening A v2" || all[1].Title != "Reading B" {
		t.Fatalf("unexpected list: %+v", all)
	}
}

func TestLoadMissingIsNotFound(t *testing.T) {
	_, err := Open(t.TempDir()).Load("nope")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFilterFor(t *testing.T) {
	tests := []model.Test{
		sampleTest("1", "Academic Reading", model.SectionReading),
		sampleTest("2", "Listening Part 1", model.SectionListening),
	}
	tests[1].Description = "campus conversation"

	if got := Apply(tests, FilterFor(model.TestFilter{Section: "reading"})); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("section filter failed: %+v", got)
	}
	if got := Apply(tests, FilterFor(model.TestFilter{Search: "CAMPUS"})); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("search filter failed: %+v", got)
	}
	if got := Apply(tests, FilterFor(model.TestFilter{Difficulty: "Advanced"})); len(got) != 0 {
		t.Fatalf("difficulty filter failed: %+v", got)
	}
	if got := Apply(tests, FilterFor(model.TestFilter{})); len(got) != 2 {
		t.Fatalf("empty filter should keep everything: %+v", got)
	}
}

type stubRemote struct {
	test model.Test
	err  error
}

func (s stubRemote) GetTest(context.Context, string) (model.Test, error) {
	return s.test, s.err
}

func TestFallbackLoader(t *testing.T) {
	pack := Open(t.TempDir())
	online := NewFallbackLoader(stubRemote{test: sampleTest("t1", "Online", model.SectionWriting)}, pack, nil)
	if _, err := online.GetTest(context.Background(), "t1"); err != nil {
		t.Fatalf("online load: %v", err)
	}

	offline := NewFallbackLoader(stubRemote{err: apperrors.ErrNetwork}, pack, nil)
	got, err := offline.GetTest(context.Background(), "t1")
	if err != nil {
		t.Fatalf("offline load should use cached copy: %v", err)
	}
	if got.Title != "Online" {
		t.Fatalf("unexpected cached test: %+v", got)
	}

	if _, err := offline.GetTest(context.Background(), "unknown"); !errors.Is(err, apperrors.ErrNetwork) {
		t.Fatalf("expected original network error, got %v", err)
	}

	missing := NewFallbackLoader(stubRemote{err: apperrors.ErrNotFound}, pack, nil)
	if _, err := missing.GetTest(context.Background(), "t1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("not found must not fall back, got %v", err)
	}
}
