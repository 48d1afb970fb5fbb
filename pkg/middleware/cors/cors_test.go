package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func request(origins []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/events", func(c *gin.Context) { c.Status(http.StatusOK) })
	req, _ := http.NewRequest(method, "/events", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSAllowList(t *testing.T) {
	origins := []string{"https://bot.example.com/", "https://*.campus.edu"}

	w := request(origins, http.MethodGet, "https://bot.example.com")
	assert.Equal(t, "https://bot.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = request(origins, http.MethodGet, "https://events.campus.edu")
	assert.Equal(t, "https://events.campus.edu", w.Header().Get("Access-Control-Allow-Origin"))

	w = request(origins, http.MethodGet, "http://events.campus.edu")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = request(origins, http.MethodGet, "https://evilcampus.edu")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSAnyOrigin(t *testing.T) {
	for _, origins := range [][]string{nil, {"*"}} {
		w := request(origins, http.MethodGet, "https://anywhere.test")
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	}
}

func TestCORSPreflight(t *testing.T) {
	w := request(nil, http.MethodOptions, "https://anywhere.test")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Bot-Key")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Equal(t, "Content-Disposition, X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
}
