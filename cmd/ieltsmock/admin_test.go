package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

type fakeAdmin struct {
	existing map[string]bool
	lookup   error
	created  []string
	updated  []string
}

func (f *fakeAdmin) GetTest(_ context.Context, id string) (model.Test, error) {
	if f.lookup != nil {
		return model.Test{}, f.lookup
	}
	if f.existing[id] {
		return model.Test{ID: id}, nil
	}
	return model.Test{}, apperrors.Errorf(apperrors.KindNotFound, "get test", "no test %s", id)
}

func (f *fakeAdmin) CreateTest(_ context.Context, test model.Test) (model.Test, error) {
	f.created = append(f.created, test.ID)
	return test, nil
}

func (f *fakeAdmin) UpdateTest(_ context.Context, id string, test model.Test) (model.Test, error) {
	f.updated = append(f.updated, id)
	return test, nil
}

func packTest(id string) model.Test {
	return model.Test{
		ID:               id,
		Title:            "Mock " + id,
		Section:          model.SectionReading,
		TimeLimitMinutes: 20,
		Questions:        []model.Question{{QuestionText: "Name the river", QuestionType: model.TypeShortAnswer}},
	}
}

func TestPushTestsCreatesOrUpdates(t *testing.T) {
	admin := &fakeAdmin{existing: map[string]bool{"r1": true}}
	created, updated, err := pushTests(context.Background(), admin, []model.Test{packTest("r1"), packTest("r2")})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if created != 1 || updated != 1 {
		t.Fatalf("expected 1 created and 1 updated, got %d and %d", created, updated)
	}
	if len(admin.updated) != 1 || admin.updated[0] != "r1" || len(admin.created) != 1 || admin.created[0] != "r2" {
		t.Fatalf("unexpected calls: created=%v updated=%v", admin.created, admin.updated)
	}
}

func TestPushTestsStopsOnInvalidTest(t *testing.T) {
	admin := &fakeAdmin{}
	bad := packTest("r3")
	bad.Questions = nil
	created, _, err := pushTests(context.Background(), admin, []model.Test{packTest("r2"), bad})
	if err == nil || !strings.Contains(err.Error(), "r3") {
		t.Fatalf("expected validation error for r3, got %v", err)
	}
	if created != 1 {
		t.Fatalf("expected the valid test to be created first, got %d", created)
	}
}

func TestPushTestsSurfacesLookupFailure(t *testing.T) {
	admin := &fakeAdmin{lookup: apperrors.ErrNetwork}
	_, _, err := pushTests(context.Background(), admin, []model.Test{packTest("r1")})
	if !errors.Is(err, apperrors.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if len(admin.created) != 0 {
		t.Fatalf("must not create when the lookup failed")
	}
}

func TestProfileUpdateValidation(t *testing.T) {
	defer func() {
		profileName, profileEmail = "", ""
	}()

	if _, err := profileUpdate(); err == nil {
		t.Fatalf("expected error without flags")
	}
	profileEmail = "not-an-email"
	if _, err := profileUpdate(); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	profileName, profileEmail = "Ada", "ada@example.com"
	upd, err := profileUpdate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upd.Name != "Ada" || upd.Email != "ada@example.com" {
		t.Fatalf("unexpected update: %+v", upd)
	}
}

func TestWriteUsersTable(t *testing.T) {
	var buf bytes.Buffer
	users := []model.User{{ID: "u1", Name: "Ada", Email: "ada@example.com"}, {ID: "u2", Name: "Root", Email: "root@example.com", Role: "admin"}}
	if err := writeUsersTable(&buf, users); err != nil {
		t.Fatalf("write table: %v", err)
	}
	for _, want := range []string{"EMAIL", "ada@example.com", "user", "admin"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, buf.String())
		}
	}
}
