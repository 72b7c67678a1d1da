package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/josiahbryan/userhub/internal/config"
	"github.com/josiahbryan/userhub/internal/domain/user"
	"github.com/josiahbryan/userhub/internal/http/handlers"
	"github.com/josiahbryan/userhub/internal/http/middlewares"
	"github.com/josiahbryan/userhub/internal/notifications"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake store implementing the handlers.UsersStore interface

type fakeUsersRepo struct {
	createFn func(ctx context.Context, u user.User) (user.User, error)
	getFn    func(ctx context.Context, id string) (user.User, error)
	listFn   func(ctx context.Context, filter user.ListUsersFilter, page, limit int) ([]user.User, int, error)
	updateFn func(ctx context.Context, id string, fields user.UpdateFields) (user.User, error)
	deleteFn func(ctx context.Context, id string) (int64, error)
}

func (f *fakeUsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}

	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) List(ctx context.Context, filter user.ListUsersFilter, page, limit int) ([]user.User, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter, page, limit)
	}

	return []user.User{}, 0, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, id string, fields user.UpdateFields) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, fields)
	}

	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) (int64, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}

	return 0, nil
}

// Fake notifier that records which kinds went out

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (n *recordingNotifier) record(kind string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, kind)

	if n.fail {
		return errors.New("provider down")
	}

	return nil
}

func (n *recordingNotifier) SendGreeting(ctx context.Context, to notifications.Recipient) error {
	return n.record("greeting")
}

func (n *recordingNotifier) SendGiftCard(ctx context.Context, to notifications.Recipient) error {
	return n.record("gift_card")
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, len(n.sent))
	copy(out, n.sent)
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newUsersHandler(repo *fakeUsersRepo, notifier notifications.Notifier) *handlers.UsersHandler {
	return handlers.NewUsersHandler(repo, notifier, testLogger(), nil, config.Config{
		DefaultPage:  1,
		DefaultLimit: 10,
	})
}

// small helper which mounts one handler per test, optionally behind an
// injected caller identity

func setupRouter(method, path string, caller *user.Caller, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	chain := []gin.HandlerFunc{}

	if caller != nil {
		c := *caller
		chain = append(chain, func(ctx *gin.Context) {
			middlewares.SetCallerForTest(ctx, c)
		})
	}

	chain = append(chain, h)

	r.Handle(method, path, chain...)

	return r
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}

	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal body %q: %v", w.Body.String(), err)
	}

	return body
}

// --- Create

func TestCreateUserHandler(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		repoSetup       func(*fakeUsersRepo)
		wantStatusCode  int
		wantMessage     string
		wantStoreCalled bool
	}{
		{
			name:            "success",
			body:            `{"email":"a@example.com","password":"secret1"}`,
			wantStatusCode:  http.StatusCreated,
			wantStoreCalled: true,
		},
		{
			name:           "invalid_email",
			body:           `{"email":"bad","password":"secret1"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Invalid email address",
		},
		{
			name:           "missing_email",
			body:           `{"password":"secret1"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Invalid email address",
		},
		{
			name:           "email_too_long",
			body:           `{"email":"` + strings.Repeat("a", 25) + `@example.com","password":"secret1"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Invalid email address",
		},
		{
			name:           "password_too_short",
			body:           `{"email":"a@example.com","password":"short"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Invalid password, must be between 6 and 30 characters",
		},
		{
			name:           "password_too_long",
			body:           `{"email":"a@example.com","password":"` + strings.Repeat("x", 31) + `"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Invalid password, must be between 6 and 30 characters",
		},
		{
			name: "duplicate_email",
			body: `{"email":"a@example.com","password":"secret1"}`,
			repoSetup: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					return user.User{}, user.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "store_error",
			body: `{"email":"a@example.com","password":"secret1"}`,
			repoSetup: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					return user.User{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			storeCalled := false

			repo := &fakeUsersRepo{
				createFn: func(ctx context.Context, u user.User) (user.User, error) {
					storeCalled = true
					return u, nil
				},
			}

			if tt.repoSetup != nil {
				tt.repoSetup(repo)
			}

			h := newUsersHandler(repo, &recordingNotifier{})
			r := setupRouter(http.MethodPost, "/users", nil, h.Create)

			req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantMessage != "" {
				body := decodeBody(t, w)
				errObj, _ := body["error"].(map[string]interface{})
				if errObj == nil || errObj["message"] != tt.wantMessage {
					t.Fatalf("got error %v, want message %q", body["error"], tt.wantMessage)
				}

				if storeCalled {
					t.Fatal("validation failure must not reach the store")
				}
			}
		})
	}
}

func TestCreateUserResponseShape(t *testing.T) {
	var stored user.User

	repo := &fakeUsersRepo{
		createFn: func(ctx context.Context, u user.User) (user.User, error) {
			stored = u
			return u, nil
		},
	}

	notifier := &recordingNotifier{}
	h := newUsersHandler(repo, notifier)
	r := setupRouter(http.MethodPost, "/users", nil, h.Create)

	// a client-supplied role must be discarded
	body := `{"email":"a@example.com","password":"secret1","role":"admin"}`

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)

	if resp["email"] != "a@example.com" {
		t.Fatalf("email = %v", resp["email"])
	}

	if resp["role"] != "user" {
		t.Fatalf("role = %v, want user (client role must be ignored)", resp["role"])
	}

	if resp["id"] == "" || resp["id"] == nil {
		t.Fatal("expected a generated id")
	}

	if _, ok := resp["password"]; ok {
		t.Fatal("password must never appear in the response")
	}

	if stored.PasswordHash == "secret1" || stored.PasswordHash == "" {
		t.Fatal("stored password must be a hash, not the plaintext")
	}

	if stored.Role != user.RoleUser {
		t.Fatalf("stored role = %q, want user", stored.Role)
	}

	// both notifications dispatched before the response
	kinds := notifier.kinds()

	if len(kinds) != 2 {
		t.Fatalf("got %d notifications (%v), want 2", len(kinds), kinds)
	}
}

func TestCreateUserNotificationFailureStill201(t *testing.T) {
	repo := &fakeUsersRepo{}
	notifier := &recordingNotifier{fail: true}

	h := newUsersHandler(repo, notifier)
	r := setupRouter(http.MethodPost, "/users", nil, h.Create)

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(`{"email":"a@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201 (notification failures must not abort creation)", w.Code)
	}

	if len(notifier.kinds()) != 2 {
		t.Fatal("both notifications should still have been attempted")
	}
}

// --- List

func TestListUsersHandler(t *testing.T) {
	admin := &user.Caller{ID: "a1", Role: user.RoleAdmin}
	plain := &user.Caller{ID: "u1", Role: user.RoleUser}

	makeUsers := func(n int) []user.User {
		out := make([]user.User, n)
		for i := range out {
			out[i] = user.User{ID: "u" + string(rune('0'+i)), Email: "x@example.com", Role: user.RoleUser}
		}
		return out
	}

	tests := []struct {
		name           string
		url            string
		caller         *user.Caller
		repoSetup      func(*fakeUsersRepo)
		wantStatusCode int
		wantHeaders    map[string]string
		wantCount      int
	}{
		{
			name:           "non_admin_forbidden",
			url:            "/users",
			caller:         plain,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:   "admin_page_2_of_25",
			url:    "/users?page=2&limit=10",
			caller: admin,
			repoSetup: func(f *fakeUsersRepo) {
				f.listFn = func(ctx context.Context, filter user.ListUsersFilter, page, limit int) ([]user.User, int, error) {
					if page != 2 || limit != 10 {
						return nil, 0, errors.New("page options not passed through")
					}
					return makeUsers(10), 25, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      10,
			wantHeaders: map[string]string{
				"X-Total-Count":  "25",
				"X-Page":         "2",
				"X-Total-Pages":  "3",
				"X-Has-Next":     "true",
				"X-Has-Previous": "true",
			},
		},
		{
			name:   "filters_passed_through",
			url:    "/users?email=foo&role=admin&other=ignored",
			caller: admin,
			repoSetup: func(f *fakeUsersRepo) {
				f.listFn = func(ctx context.Context, filter user.ListUsersFilter, page, limit int) ([]user.User, int, error) {
					if filter.Email == nil || *filter.Email != "foo" {
						return nil, 0, errors.New("email filter not passed")
					}
					if filter.Role == nil || *filter.Role != "admin" {
						return nil, 0, errors.New("role filter not passed")
					}
					return []user.User{}, 0, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      0,
		},
		{
			name:   "defaults_applied",
			url:    "/users",
			caller: admin,
			repoSetup: func(f *fakeUsersRepo) {
				f.listFn = func(ctx context.Context, filter user.ListUsersFilter, page, limit int) ([]user.User, int, error) {
					if page != 1 || limit != 10 {
						return nil, 0, errors.New("defaults not applied")
					}
					return []user.User{}, 0, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      0,
		},
		{
			name:   "repo_error",
			url:    "/users",
			caller: admin,
			repoSetup: func(f *fakeUsersRepo) {
				f.listFn = func(ctx context.Context, filter user.ListUsersFilter, page, limit int) ([]user.User, int, error) {
					return nil, 0, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(repo)
			}

			h := newUsersHandler(repo, &recordingNotifier{})
			r := setupRouter(http.MethodGet, "/users", tt.caller, h.List)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode != http.StatusOK {
				return
			}

			var list []map[string]interface{}

			if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
				t.Fatalf("body is not a plain array: %v", err)
			}

			if len(list) != tt.wantCount {
				t.Fatalf("got %d records, want %d", len(list), tt.wantCount)
			}

			for _, rec := range list {
				if _, ok := rec["password"]; ok {
					t.Fatal("password must never appear in list output")
				}
			}

			for k, v := range tt.wantHeaders {
				if got := w.Header().Get(k); got != v {
					t.Errorf("header %s = %q, want %q", k, got, v)
				}
			}
		})
	}
}

// --- Get

func TestGetUserHandler(t *testing.T) {
	stored := user.User{ID: "u2", Email: "b@example.com", PasswordHash: "hash", Role: user.RoleUser}

	tests := []struct {
		name           string
		caller         *user.Caller
		repoSetup      func(*fakeUsersRepo)
		wantStatusCode int
	}{
		{
			name:   "self_read",
			caller: &user.Caller{ID: "u2", Role: user.RoleUser},
			repoSetup: func(f *fakeUsersRepo) {
				f.getFn = func(ctx context.Context, id string) (user.User, error) { return stored, nil }
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:   "other_user_forbidden",
			caller: &user.Caller{ID: "u1", Role: user.RoleUser},
			repoSetup: func(f *fakeUsersRepo) {
				f.getFn = func(ctx context.Context, id string) (user.User, error) { return stored, nil }
			},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:   "admin_reads_anyone",
			caller: &user.Caller{ID: "a1", Role: user.RoleAdmin},
			repoSetup: func(f *fakeUsersRepo) {
				f.getFn = func(ctx context.Context, id string) (user.User, error) { return stored, nil }
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing_user",
			caller:         &user.Caller{ID: "u2", Role: user.RoleUser},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:   "store_error_maps_to_not_found",
			caller: &user.Caller{ID: "u2", Role: user.RoleUser},
			repoSetup: func(f *fakeUsersRepo) {
				f.getFn = func(ctx context.Context, id string) (user.User, error) {
					return user.User{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(repo)
			}

			h := newUsersHandler(repo, &recordingNotifier{})
			r := setupRouter(http.MethodGet, "/users/:id", tt.caller, h.Get)

			req := httptest.NewRequest(http.MethodGet, "/users/u2", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				body := decodeBody(t, w)

				if _, ok := body["password"]; ok {
					t.Fatal("password must never appear in the response")
				}
			}
		})
	}
}

// --- Update

func TestUpdateUserHandler(t *testing.T) {
	self := &user.Caller{ID: "u2", Role: user.RoleUser}

	tests := []struct {
		name           string
		caller         *user.Caller
		body           string
		repoSetup      func(*fakeUsersRepo)
		wantStatusCode int
		wantRepoCalled bool
	}{
		{
			name:   "self_update_email",
			caller: self,
			body:   `{"email":"new@example.com"}`,
			repoSetup: func(f *fakeUsersRepo) {
				f.updateFn = func(ctx context.Context, id string, fields user.UpdateFields) (user.User, error) {
					if fields.Email == nil || *fields.Email != "new@example.com" {
						return user.User{}, errors.New("email not passed")
					}
					if fields.PasswordHash != nil {
						return user.User{}, errors.New("unexpected password hash")
					}
					return user.User{ID: id, Email: *fields.Email, Role: user.RoleUser}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantRepoCalled: true,
		},
		{
			name:           "other_user_forbidden_before_load",
			caller:         &user.Caller{ID: "u1", Role: user.RoleUser},
			body:           `{"email":"new@example.com"}`,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "invalid_email",
			caller:         self,
			body:           `{"email":"bad"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid_password",
			caller:         self,
			body:           `{"password":"x"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:   "duplicate_email_is_bad_request",
			caller: self,
			body:   `{"email":"taken@example.com"}`,
			repoSetup: func(f *fakeUsersRepo) {
				f.updateFn = func(ctx context.Context, id string, fields user.UpdateFields) (user.User, error) {
					return user.User{}, user.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusBadRequest,
			wantRepoCalled: true,
		},
		{
			name:   "missing_user",
			caller: self,
			body:   `{"email":"new@example.com"}`,
			repoSetup: func(f *fakeUsersRepo) {
				f.updateFn = func(ctx context.Context, id string, fields user.UpdateFields) (user.User, error) {
					return user.User{}, user.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
			wantRepoCalled: true,
		},
		{
			name:   "admin_updates_anyone",
			caller: &user.Caller{ID: "a1", Role: user.RoleAdmin},
			body:   `{"email":"new@example.com"}`,
			repoSetup: func(f *fakeUsersRepo) {
				f.updateFn = func(ctx context.Context, id string, fields user.UpdateFields) (user.User, error) {
					return user.User{ID: id, Email: *fields.Email, Role: user.RoleUser}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantRepoCalled: true,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repoCalled := false
			repo := &fakeUsersRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(repo)

				inner := repo.updateFn
				repo.updateFn = func(ctx context.Context, id string, fields user.UpdateFields) (user.User, error) {
					repoCalled = true
					return inner(ctx, id, fields)
				}
			}

			h := newUsersHandler(repo, &recordingNotifier{})
			r := setupRouter(http.MethodPut, "/users/:id", tt.caller, h.Update)

			req := httptest.NewRequest(http.MethodPut, "/users/u2", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if repoCalled != tt.wantRepoCalled {
				t.Fatalf("repoCalled = %v, want %v", repoCalled, tt.wantRepoCalled)
			}
		})
	}
}

func TestUpdateUserPasswordIsHashed(t *testing.T) {
	var gotFields user.UpdateFields

	repo := &fakeUsersRepo{
		updateFn: func(ctx context.Context, id string, fields user.UpdateFields) (user.User, error) {
			gotFields = fields
			return user.User{ID: id, Role: user.RoleUser}, nil
		},
	}

	h := newUsersHandler(repo, &recordingNotifier{})
	caller := &user.Caller{ID: "u2", Role: user.RoleUser}
	r := setupRouter(http.MethodPut, "/users/:id", caller, h.Update)

	req := httptest.NewRequest(http.MethodPut, "/users/u2", bytes.NewBufferString(`{"password":"newsecret"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if gotFields.PasswordHash == nil {
		t.Fatal("password hash not passed to the store")
	}

	if *gotFields.PasswordHash == "newsecret" {
		t.Fatal("plaintext reached the store")
	}
}

func TestUpdateUserIgnoresRoleField(t *testing.T) {
	repo := &fakeUsersRepo{
		updateFn: func(ctx context.Context, id string, fields user.UpdateFields) (user.User, error) {
			// UpdateFields has no role member; nothing to strip here, which
			// is the point.
			return user.User{ID: id, Role: user.RoleUser}, nil
		},
	}

	h := newUsersHandler(repo, &recordingNotifier{})
	caller := &user.Caller{ID: "u2", Role: user.RoleUser}
	r := setupRouter(http.MethodPut, "/users/:id", caller, h.Update)

	req := httptest.NewRequest(http.MethodPut, "/users/u2", bytes.NewBufferString(`{"role":"admin"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)

	if body["role"] != "user" {
		t.Fatalf("role = %v, want user", body["role"])
	}
}

// --- Delete

func TestDeleteUserHandler(t *testing.T) {
	tests := []struct {
		name           string
		caller         *user.Caller
		deleted        int64
		wantStatusCode int
		wantRepoCalled bool
	}{
		{
			name:           "self_delete",
			caller:         &user.Caller{ID: "u2", Role: user.RoleUser},
			deleted:        1,
			wantStatusCode: http.StatusOK,
			wantRepoCalled: true,
		},
		{
			name:           "idempotent_second_delete",
			caller:         &user.Caller{ID: "u2", Role: user.RoleUser},
			deleted:        0,
			wantStatusCode: http.StatusOK,
			wantRepoCalled: true,
		},
		{
			name:           "other_user_forbidden_before_removal",
			caller:         &user.Caller{ID: "u1", Role: user.RoleUser},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "admin_deletes_anyone",
			caller:         &user.Caller{ID: "a1", Role: user.RoleAdmin},
			deleted:        1,
			wantStatusCode: http.StatusOK,
			wantRepoCalled: true,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repoCalled := false

			repo := &fakeUsersRepo{
				deleteFn: func(ctx context.Context, id string) (int64, error) {
					repoCalled = true
					return tt.deleted, nil
				},
			}

			h := newUsersHandler(repo, &recordingNotifier{})
			r := setupRouter(http.MethodDelete, "/users/:id", tt.caller, h.Delete)

			req := httptest.NewRequest(http.MethodDelete, "/users/u2", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if repoCalled != tt.wantRepoCalled {
				t.Fatalf("repoCalled = %v, want %v (capability must be checked before removal)", repoCalled, tt.wantRepoCalled)
			}

			if tt.wantStatusCode == http.StatusOK {
				body := decodeBody(t, w)

				if body["message"] != "User successfully deleted" {
					t.Fatalf("message = %v", body["message"])
				}
			}
		})
	}
}
