package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/pkg"
)

var (
	errCSRFMissing = domain.NewAppError(domain.CodeForbidden, "CSRF token missing", nil)
	errCSRFInvalid = domain.NewAppError(domain.CodeForbidden, "CSRF token invalid", nil)
	errCSRFSecret  = domain.NewAppError(domain.CodeInternal, "csrf secret is required", nil)
)

const (
	csrfCookieName = "_csrf_token"
	csrfFormField  = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"
)

// CSRF protects the page forms (language switch, sign-out) with signed
// double-submit tokens. A token is hex(nonce) "." base64url(HMAC-SHA256).
//
// Safe requests get a token cookie, readable by the page, and the token is
// kept in the context for templates. Unsafe requests must echo the cookie's
// token in the _csrf_token form field or the X-CSRF-Token header, and both
// must carry this secret's signature. The JSON API is mounted outside this
// middleware.
func CSRF(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return func(c *gin.Context) {
			pkg.Error(c, errCSRFSecret)
			c.Abort()
		}
	}
	secure := gin.Mode() == gin.ReleaseMode

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token, _ := c.Cookie(csrfCookieName)
			if !validToken(token, secret) {
				var err error
				if token, err = generateToken(secret); err != nil {
					pkg.Error(c, err)
					c.Abort()
					return
				}
				http.SetCookie(c.Writer, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					Secure:   secure,
					SameSite: http.SameSiteStrictMode,
				})
			}
			c.Set(csrfContextKey, token)
			c.Next()

		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if err := checkSubmission(c, secret); err != nil {
				pkg.Error(c, err)
				c.Abort()
				return
			}
			c.Next()

		default:
			c.Next()
		}
	}
}

func checkSubmission(c *gin.Context, secret string) error {
	cookie, _ := c.Cookie(csrfCookieName)
	submitted := c.PostForm(csrfFormField)
	if submitted == "" {
		submitted = c.GetHeader(csrfHeaderName)
	}
	if cookie == "" || submitted == "" {
		return errCSRFMissing
	}
	if !validToken(cookie, secret) || !tokensMatch(cookie, submitted) {
		return errCSRFInvalid
	}
	c.Set(csrfContextKey, cookie)
	return nil
}

// GetCSRFToken returns the token CSRF stored for the page's forms, or "".
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}

func generateToken(secret string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	n := hex.EncodeToString(nonce)
	return n + "." + signNonce(n, secret), nil
}

func signNonce(nonce, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func validToken(token, secret string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return tokensMatch(sig, signNonce(nonce, secret))
}

func tokensMatch(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
