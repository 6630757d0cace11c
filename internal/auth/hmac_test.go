package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundtrip(t *testing.T) {
	body := []byte(`{"lik_codes":["L01"]}`)
	sig := Sign("secret", body)
	require.Len(t, sig, 64)
	require.True(t, Verify("secret", body, sig))
	require.False(t, Verify("secret", []byte(`tampered`), sig))
	require.False(t, Verify("other-secret", body, sig))
	require.False(t, Verify("secret", body, "zz-not-hex"))
}

func TestSignatureMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SignatureMiddleware("secret"))
	router.POST("/report", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	body := `{"lik_codes":["L01"]}`

	req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("secret", []byte(body)))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("wrong", []byte(body)))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
