package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/geo"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/service/account"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake implementation of the handlers.AccountService interface

type fakeAccountService struct {
	registerFn func(ctx context.Context, req account.RegisterRequest) (user.PublicView, error)
	validateFn func(ctx context.Context, email, password string) (bool, error)
	listFn     func(ctx context.Context) ([]user.PublicView, error)
	deleteFn   func(ctx context.Context, email string) (bool, error)
	existsFn   func(ctx context.Context, email string) (bool, error)
	ipFn       func(ctx context.Context) (string, error)
	locFn      func(ctx context.Context, addr string) (geo.Location, error)
	callerFn   func(ctx context.Context) (geo.Location, error)
}

func (f *fakeAccountService) Register(ctx context.Context, req account.RegisterRequest) (user.PublicView, error) {
	if f.registerFn != nil {
		return f.registerFn(ctx, req)
	}

	return user.PublicView{}, nil
}

func (f *fakeAccountService) ValidateCredentials(ctx context.Context, email, password string) (bool, error) {
	if f.validateFn != nil {
		return f.validateFn(ctx, email, password)
	}

	return false, nil
}

func (f *fakeAccountService) ListAll(ctx context.Context) ([]user.PublicView, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}

	return nil, nil
}

func (f *fakeAccountService) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, email)
	}

	return false, nil
}

func (f *fakeAccountService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, email)
	}

	return false, nil
}

func (f *fakeAccountService) CallerIP(ctx context.Context) (string, error) {
	if f.ipFn != nil {
		return f.ipFn(ctx)
	}

	return geo.Unknown, nil
}

func (f *fakeAccountService) LocationByIP(ctx context.Context, addr string) (geo.Location, error) {
	if f.locFn != nil {
		return f.locFn(ctx, addr)
	}

	return geo.Location{}, nil
}

func (f *fakeAccountService) CallerLocation(ctx context.Context) (geo.Location, error) {
	if f.callerFn != nil {
		return f.callerFn(ctx)
	}

	return geo.Location{}, nil
}

// small helper function which returns the gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRegisterHandler(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		body           string
		svcSetUp       func(*fakeAccountService)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{"name":"Jane","email":"jane@x.com","gender":"FEMALE","password":"pw12345"}`,
			svcSetUp: func(f *fakeAccountService) {
				f.registerFn = func(ctx context.Context, req account.RegisterRequest) (user.PublicView, error) {
					return user.PublicView{
						ID:        1,
						Name:      req.Name,
						Email:     req.Email,
						Gender:    req.Gender,
						IPAddress: "203.0.113.9",
						Country:   "United States",
						Role:      user.RoleUser,
						CreatedAt: now,
					}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "duplicate_email",
			body: `{"name":"Jane","email":"jane@x.com","gender":"FEMALE","password":"pw12345"}`,
			svcSetUp: func(f *fakeAccountService) {
				f.registerFn = func(ctx context.Context, req account.RegisterRequest) (user.PublicView, error) {
					return user.PublicView{}, user.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "missing_name",
			body: `{"email":"jane@x.com","gender":"FEMALE","password":"pw12345"}`,
			svcSetUp: func(f *fakeAccountService) {
				// invalid request, the service must not be called
				f.registerFn = func(ctx context.Context, req account.RegisterRequest) (user.PublicView, error) {
					t.Errorf("service called for invalid request")
					return user.PublicView{}, nil
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "bad_email_shape",
			body:           `{"name":"Jane","email":"not-an-email","gender":"FEMALE","password":"pw12345"}`,
			svcSetUp:       func(f *fakeAccountService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "bad_gender_value",
			body:           `{"name":"Jane","email":"jane@x.com","gender":"YES","password":"pw12345"}`,
			svcSetUp:       func(f *fakeAccountService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "service_error",
			body: `{"name":"Jane","email":"jane@x.com","gender":"FEMALE","password":"pw12345"}`,
			svcSetUp: func(f *fakeAccountService) {
				f.registerFn = func(ctx context.Context, req account.RegisterRequest) (user.PublicView, error) {
					return user.PublicView{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAccountService{}
			tt.svcSetUp(svc)

			h := handlers.NewUsersHandler(svc)
			r := setupRouter(http.MethodPost, "/api/users/register", h.Register)

			w := doJSON(r, http.MethodPost, "/api/users/register", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusCreated {
				body := w.Body.String()

				if strings.Contains(body, "password") {
					t.Errorf("response leaks credential material: %s", body)
				}
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		valid          bool
		svcErr         error
		wantStatusCode int
		wantMessage    string
	}{
		{
			name:           "success",
			body:           `{"email":"jane@x.com","password":"pw12345"}`,
			valid:          true,
			wantStatusCode: http.StatusOK,
			wantMessage:    "Login successful",
		},
		{
			name:           "wrong_password",
			body:           `{"email":"jane@x.com","password":"wrong"}`,
			valid:          false,
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    "Invalid credentials",
		},
		{
			name:           "unknown_user_same_answer",
			body:           `{"email":"nobody@x.com","password":"pw12345"}`,
			valid:          false,
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    "Invalid credentials",
		},
		{
			name:           "service_error",
			body:           `{"email":"jane@x.com","password":"pw12345"}`,
			svcErr:         errors.New("db down"),
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAccountService{
				validateFn: func(ctx context.Context, email, password string) (bool, error) {
					return tt.valid, tt.svcErr
				},
			}

			h := handlers.NewUsersHandler(svc)
			r := setupRouter(http.MethodPost, "/api/users/login", h.Login)

			w := doJSON(r, http.MethodPost, "/api/users/login", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantMessage != "" && !strings.Contains(w.Body.String(), tt.wantMessage) {
				t.Errorf("body = %s, want message %q", w.Body.String(), tt.wantMessage)
			}

			if tt.wantStatusCode == http.StatusOK {
				var resp handlers.LoginResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}

				if resp.Email != "jane@x.com" {
					t.Errorf("email = %q, want echo of login email", resp.Email)
				}
			}
		})
	}
}

func TestValidateUserHandler(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		exists         bool
		wantStatusCode int
	}{
		{"exists", "?email=jane@x.com", true, http.StatusOK},
		{"absent", "?email=nobody@x.com", false, http.StatusNotFound},
		{"missing_param", "", false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAccountService{
				existsFn: func(ctx context.Context, email string) (bool, error) {
					return tt.exists, nil
				},
			}

			h := handlers.NewUsersHandler(svc)
			r := setupRouter(http.MethodGet, "/api/users/validate", h.ValidateUser)

			w := doJSON(r, http.MethodGet, "/api/users/validate"+tt.query, "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestDeleteUserHandler(t *testing.T) {
	tests := []struct {
		name           string
		deleted        bool
		svcErr         error
		wantStatusCode int
	}{
		{"deleted", true, nil, http.StatusOK},
		{"absent", false, nil, http.StatusNotFound},
		{"service_error", false, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAccountService{
				deleteFn: func(ctx context.Context, email string) (bool, error) {
					if email != "jane@x.com" {
						t.Errorf("email = %q, want jane@x.com", email)
					}
					return tt.deleted, tt.svcErr
				},
			}

			h := handlers.NewUsersHandler(svc)
			r := setupRouter(http.MethodDelete, "/api/users/:email", h.DeleteUser)

			w := doJSON(r, http.MethodDelete, "/api/users/jane@x.com", "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestListUsersHandler(t *testing.T) {
	svc := &fakeAccountService{
		listFn: func(ctx context.Context) ([]user.PublicView, error) {
			return []user.PublicView{
				{ID: 1, Email: "a@x.com", Role: user.RoleUser},
				{ID: 2, Email: "b@x.com", Role: user.RoleUser},
			}, nil
		},
	}

	h := handlers.NewUsersHandler(svc)
	r := setupRouter(http.MethodGet, "/api/users", h.ListUsers)

	w := doJSON(r, http.MethodGet, "/api/users", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}

	var views []user.PublicView

	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(views) != 2 || views[0].Email != "a@x.com" || views[1].Email != "b@x.com" {
		t.Errorf("views out of order or wrong: %+v", views)
	}
}

func TestCallerIPHandler(t *testing.T) {
	tests := []struct {
		name           string
		addr           string
		svcErr         error
		wantStatusCode int
	}{
		{"success", "203.0.113.9", nil, http.StatusOK},
		{"transport_failure", geo.Unknown, errors.New("dial tcp: refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAccountService{
				ipFn: func(ctx context.Context) (string, error) {
					return tt.addr, tt.svcErr
				},
			}

			h := handlers.NewUsersHandler(svc)
			r := setupRouter(http.MethodGet, "/api/users/ip", h.CallerIP)

			w := doJSON(r, http.MethodGet, "/api/users/ip", "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK && !strings.Contains(w.Body.String(), tt.addr) {
				t.Errorf("body = %s, want ipAddress %q", w.Body.String(), tt.addr)
			}
		})
	}
}

func TestLocationByIPHandler(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		loc            geo.Location
		svcErr         error
		wantStatusCode int
	}{
		{
			name:  "success",
			query: "?ipAddress=203.0.113.9",
			loc: geo.Location{
				IP:      "203.0.113.9",
				Country: "United States",
				Status:  geo.StatusSuccess,
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "no_data",
			query:          "?ipAddress=10.0.0.1",
			loc:            geo.Location{IP: "10.0.0.1", Country: geo.Unknown},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "transport_failure",
			query:          "?ipAddress=203.0.113.9",
			loc:            geo.Location{IP: "203.0.113.9", Country: geo.Unknown},
			svcErr:         errors.New("dial tcp: refused"),
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name:           "missing_param",
			query:          "",
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAccountService{
				locFn: func(ctx context.Context, addr string) (geo.Location, error) {
					return tt.loc, tt.svcErr
				},
			}

			h := handlers.NewUsersHandler(svc)
			r := setupRouter(http.MethodGet, "/api/users/location", h.LocationByIP)

			w := doJSON(r, http.MethodGet, "/api/users/location"+tt.query, "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
