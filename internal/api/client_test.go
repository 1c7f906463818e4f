package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/auth"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

const validToken = "secret-token"

type fakeBackend struct {
	submitted [][]string
	lastQuery map[string]string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+validToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token is not valid"})
			return
		}
		next(w, r)
	}
}

func (b *fakeBackend) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "pw" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": validToken,
			"user":  model.User{ID: "u1", Name: "Lee", Email: body["email"], Role: "student"},
		})
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/profile", b.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": model.User{ID: "u1", Name: "Lee Updated"}})
	})).Methods(http.MethodGet)
	r.HandleFunc("/api/tests", func(w http.ResponseWriter, r *http.Request) {
		b.lastQuery = map[string]string{
			"section":    r.URL.Query().Get("section"),
			"difficulty": r.URL.Query().Get("difficulty"),
			"search":     r.URL.Query().Get("search"),
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"tests": []map[string]any{{
				"_id": "t1", "title": "Reading A", "section": "Reading", "timeLimit": 60,
				"questions": []map[string]any{{"questionText": "q", "questionType": "true-false-not-given"}},
			}},
			"pagination": map[string]int{"page": 1, "pages": 1, "total": 1},
		})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/tests/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if id != "t1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Test not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"test": map[string]any{
			"_id": "t1", "title": "Reading A", "section": "Reading", "timeLimit": 60,
			"questions": []map[string]any{
				{"questionText": "Pick", "questionType": "multiple-choice", "options": []string{"A", "B"}},
				{"questionText": "Explain", "questionType": "text"},
			},
		}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/tests/{id}/submit", b.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
			return
		}
		b.submitted = append(b.submitted, req.Answers)
		writeJSON(w, http.StatusOK, model.Results{
			Score: 50, CorrectAnswers: 1, TotalQuestions: 2, AttemptID: "a1",
			Answers: []model.AnswerResult{{Answer: "A", IsCorrect: true, CorrectAnswer: "A"}, {Answer: "", CorrectAnswer: "because"}},
		})
	})).Methods(http.MethodPost)
	r.HandleFunc("/api/tests/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)
	r.HandleFunc("/api/users/my-attempts", b.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"attempts": []map[string]any{{
			"_id": "a1", "score": 75, "date": "2026-02-01T10:00:00Z",
			"testId": map[string]string{"_id": "t1", "title": "Reading A", "section": "Reading"},
		}}})
	})).Methods(http.MethodGet)
	r.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Admin only"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/broken", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	})
	return r
}

func newTestClient(t *testing.T) (*Client, *auth.Session, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.router())
	t.Cleanup(srv.Close)
	session := auth.NewSession(nil)
	return New(srv.URL+"/api/", time.Second, session, nil), session, backend
}

func TestLoginSignsSessionIn(t *testing.T) {
	c, session, _ := newTestClient(t)
	user, err := c.Login(context.Background(), "lee@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "lee@example.com", user.Email)
	assert.Equal(t, validToken, session.Token())

	profile, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Lee Updated", profile.Name)
	cached, _ := session.User()
	assert.Equal(t, "Lee Updated", cached.Name)
}

func TestLoginBadCredentialsIsValidation(t *testing.T) {
	c, session, _ := newTestClient(t)
	_, err := c.Login(context.Background(), "lee@example.com", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "Invalid credentials")
	assert.False(t, session.Authenticated())
}

func TestUnauthorizedClearsSession(t *testing.T) {
	c, session, _ := newTestClient(t)
	session.UseToken("stale")
	_, err := c.MyAttempts(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	assert.False(t, session.Authenticated())
}

func TestGetTestNormalizes(t *testing.T) {
	c, _, _ := newTestClient(t)
	test, err := c.GetTest(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Reading A", test.Title)
	assert.Equal(t, 60, test.TimeLimitMinutes)
	require.Len(t, test.Questions, 2)
	assert.Equal(t, 1, test.Questions[1].Index)
	assert.Equal(t, model.MediaNone, test.Questions[0].MediaType)

	_, err = c.GetTest(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListTestsSendsFilter(t *testing.T) {
	c, _, backend := newTestClient(t)
	page, err := c.ListTests(context.Background(), model.TestFilter{Section: "Reading", Search: "climate"})
	require.NoError(t, err)
	require.Len(t, page.Tests, 1)
	assert.Equal(t, model.TrueFalseNotGivenOptions, page.Tests[0].Questions[0].Options)
	assert.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, map[string]string{"section": "Reading", "difficulty": "", "search": "climate"}, backend.lastQuery)
}

func TestSubmitSendsOrderedAnswers(t *testing.T) {
	c, session, backend := newTestClient(t)
	session.UseToken(validToken)
	results, err := c.SubmitTest(context.Background(), "t1", []string{"A", ""})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", ""}}, backend.submitted)
	assert.Equal(t, 50.0, results.Score)
	assert.Equal(t, "a1", results.AttemptID)
	require.Len(t, results.Answers, 2)
	assert.Equal(t, "because", results.Answers[1].CorrectAnswer)

	_, err = c.SubmitTest(context.Background(), "t1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, backend.submitted[1])
}

func TestMyAttempts(t *testing.T) {
	c, session, _ := newTestClient(t)
	session.UseToken(validToken)
	attempts, err := c.MyAttempts(context.Background())
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, model.SectionReading, attempts[0].Test.Section)
	assert.Equal(t, 2026, attempts[0].Date.Year())
}

func TestStatusClassification(t *testing.T) {
	c, _, _ := newTestClient(t)
	_, err := c.ListUsers(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	err = c.do(context.Background(), "broken", http.MethodGet, "/broken", nil, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, apperrors.Retryable(err))

	require.NoError(t, c.DeleteTest(context.Background(), "t1"))
}

func TestTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()

	slow := New(srv.URL, 20*time.Millisecond, nil, nil)
	_, err := slow.GetTest(context.Background(), "t1")
	assert.ErrorIs(t, err, apperrors.ErrTimeout)

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	_, err = New(url, time.Second, nil, nil).GetTest(context.Background(), "t1")
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}
