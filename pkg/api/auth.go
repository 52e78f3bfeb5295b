package api

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/kubestream/streamgate/pkg/apiresponses"
	"github.com/kubestream/streamgate/pkg/config"
)

const AuthHeaderKey = "Authorization"

// AuthHandler validates bearer tokens against the authorization server's JWKS
// and places the caller's canonical user ref in the request context.
type AuthHandler struct {
	jwks keyfuncProvider
	log  *zap.SugaredLogger
}

// keyfuncProvider is the slice of keyfunc.JWKS the middleware needs; tests
// substitute a static key set.
type keyfuncProvider interface {
	Keyfunc(token *jwt.Token) (interface{}, error)
}

func NewAuth(log *zap.SugaredLogger, cfg config.Config) *AuthHandler {
	options := keyfunc.Options{
		RefreshInterval: time.Hour,
		RefreshTimeout:  time.Second * 10,
		RefreshErrorHandler: func(err error) {
			log.Errorf("failed to refresh JWKS configuration: %v", err)
		},
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(cfg.AuthorizationServer.URL, "/"), cfg.AuthorizationServer.JWKSEndpoint)

	// TLS handling for the JWKS fetch: an explicit CA wins, insecureSkipVerify
	// is for dev only, otherwise system roots apply.
	if cfg.AuthorizationServer.CertificateAuthority != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(cfg.AuthorizationServer.CertificateAuthority)) {
			log.Fatalf("Could not parse certificateAuthority PEM from configuration")
		}
		transport := &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}
		options.Client = &http.Client{Transport: transport}
	} else if cfg.AuthorizationServer.InsecureSkipVerify {
		transport := &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
		options.Client = &http.Client{Transport: transport}
		log.Warn("authorizationServer.insecureSkipVerify=true: TLS certificate verification is DISABLED (dev only)")
	}

	jwks, err := keyfunc.Get(url, options)
	if err != nil {
		log.Fatalf("Could not get JWKS: %v", err)
	}

	return &AuthHandler{jwks: jwks, log: log}
}

// NewAuthWithProvider wires a pre-built key provider; used by tests.
func NewAuthWithProvider(log *zap.SugaredLogger, provider keyfuncProvider) *AuthHandler {
	return &AuthHandler{jwks: provider, log: log}
}

// Middleware authenticates the request. On success the gin context carries
// "username", "email", "userRef" (canonical lower-cased user:default/<name>).
func (a *AuthHandler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			apiresponses.RespondUnauthorized(c)
			return
		}

		claims := jwt.MapClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, a.jwks.Keyfunc)
		if err != nil || !parsed.Valid {
			a.log.Debugw("Rejected bearer token", "error", err)
			apiresponses.RespondUnauthorized(c)
			return
		}

		username, _ := claims["preferred_username"].(string)
		email, _ := claims["email"].(string)
		if username == "" {
			if email != "" {
				username = email
			} else if sub, ok := claims["sub"].(string); ok {
				username = sub
			}
		}
		if username == "" {
			a.log.Warnw("Token carries no usable identity claim")
			apiresponses.RespondUnauthorized(c)
			return
		}

		c.Set("username", username)
		c.Set("email", email)
		c.Set("userRef", fmt.Sprintf("user:default/%s", strings.ToLower(username)))
		c.Next()
	}
}
