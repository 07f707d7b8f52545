package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestValidateRepoRef(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		repo    string
		wantErr bool
	}{
		{"plain names", "golang", "go", false},
		{"dots and dashes", "kubernetes-sigs", "cluster.api", false},
		{"underscores", "some_org", "my_repo", false},
		{"single character", "a", "b", false},
		{"empty owner", "", "go", true},
		{"empty repository", "golang", "", true},
		{"path traversal", "golang", "..", true},
		{"dot dot inside", "golang", "a..b", true},
		{"double dash repository", "golang", "a--b", false},
		{"double dash owner", "some--org", "go", true},
		{"leading dash", "-acme", "go", true},
		{"trailing dot", "acme", "repo.", true},
		{"slash injection", "acme/evil", "go", true},
		{"query injection", "acme", `go" { evil }`, true},
		{"too long", strings.Repeat("a", 101), "go", true},
		{"exactly max length", strings.Repeat("a", 100), "go", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRepoRef(tt.owner, tt.repo)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SecurityHeadersMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, w.Header().Get("Permissions-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeadersHSTSOptIn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("ENABLE_HSTS", "true")

	r := gin.New()
	r.Use(SecurityHeadersMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
}
