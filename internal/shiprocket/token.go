package shiprocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/parcelops/shipcost-reconciler/internal/config"
	"github.com/parcelops/shipcost-reconciler/internal/metrics"
)

// TokenManager acquires and caches the platform bearer token. Re-auth on
// expiry is a single-flight operation: when several in-flight orders discover
// an expired token at once, exactly one login request fires and all waiters
// share its result.
type TokenManager struct {
	baseURL  string
	email    string
	password string
	ttl      time.Duration
	httpc    *http.Client
	log      *zap.Logger

	// now is swappable so expiry can be tested deterministically.
	now func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenManager builds a TokenManager from platform config.
func NewTokenManager(cfg config.ShiprocketConfig, httpc *http.Client, log *zap.Logger) *TokenManager {
	return &TokenManager{
		baseURL:  cfg.BaseURL,
		email:    cfg.Email,
		password: cfg.Password,
		ttl:      cfg.TokenTTL,
		httpc:    httpc,
		log:      log,
		now:      time.Now,
	}
}

// Token returns a valid bearer token, authenticating if the cached one has
// expired. At most one valid token is in use at a time.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if tok, ok := m.cached(); ok {
		return tok, nil
	}

	v, err, _ := m.group.Do("login", func() (any, error) {
		// A waiter queued behind the winning flight may arrive after the
		// token was already refreshed.
		if tok, ok := m.cached(); ok {
			return tok, nil
		}
		return m.authenticate(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *TokenManager) cached() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" && m.now().Before(m.expiry) {
		return m.token, true
	}
	return "", false
}

func (m *TokenManager) authenticate(ctx context.Context) (string, error) {
	metrics.AuthRequestsTotal.Inc()

	body, err := json.Marshal(map[string]string{
		"email":    m.email,
		"password": m.password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal login body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &AuthError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if out.Token == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Message: "login response had no token"}
	}

	m.mu.Lock()
	m.token = out.Token
	m.expiry = m.now().Add(m.ttl)
	m.mu.Unlock()

	m.log.Info("authenticated with logistics platform",
		zap.Time("token_expiry", m.expiry))

	return out.Token, nil
}
