package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

func TestIdentityMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(IdentityMiddleware())
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": currentUserID(c),
			"role":    currentUserRole(c),
		})
	})

	t.Run("Missing_Header_Rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("Garbage_User_ID_Rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-User-ID", "not-a-number")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("Valid_Identity_Passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-User-ID", "42")
		req.Header.Set("X-User-Role", "teacher")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("Unknown_Role_Falls_Back_To_Student", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-User-ID", "42")
		req.Header.Set("X-User-Role", "superuser")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if body := w.Body.String(); !strings.Contains(body, `"role":"`+string(models.RoleStudent)+`"`) {
			t.Errorf("expected student fallback role, got %s", body)
		}
	})
}

func TestRequireRoleMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(IdentityMiddleware())
	teacherOnly := router.Group("", RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin))
	teacherOnly.GET("/grades", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{"Teacher_Allowed", "teacher", http.StatusOK},
		{"Admin_Allowed", "admin", http.StatusOK},
		{"Student_Forbidden", "student", http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/grades", nil)
			req.Header.Set("X-User-ID", "7")
			req.Header.Set("X-User-Role", tc.role)
			router.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("role %s: expected %d, got %d", tc.role, tc.wantStatus, w.Code)
			}
		})
	}
}
