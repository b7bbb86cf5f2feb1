package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"lexcourt/config"
	apimiddleware "lexcourt/internal/delivery/api/middleware"
	"lexcourt/internal/delivery/api/router"
	"lexcourt/internal/delivery/api/router/handler"
	sharedmiddleware "lexcourt/internal/delivery/middleware"
	"lexcourt/internal/infra/auth"
	"lexcourt/internal/infra/cache"
	"lexcourt/internal/infra/credential"
	"lexcourt/internal/infra/metrics"
	"lexcourt/internal/infra/persistence/memory"
	"lexcourt/internal/infra/pubsub"
	"lexcourt/internal/infra/qrcode"
	"lexcourt/internal/infra/sanitize"
	"lexcourt/internal/usecase/impl"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
	Guard *struct {
		Outcome  string `json:"outcome"`
		Location string `json:"location"`
	} `json:"guard"`
}

type apiClient struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newTestServer(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{}
	cfg.WithDefaults()
	cfg.Auth.BcryptCost = 4
	cfg.Auth.LoginBurst = 20
	cfg.Profile.ResolveAttempts = 50
	cfg.Profile.ResolveBackoff = 10 * time.Millisecond
	cfg.SecretKey.Session = "api_server_test_secret_long_enough"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lc := fxtest.NewLifecycle(t)

	db := memory.New()
	txManager := memory.NewTransactionManager(db)
	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	provisioning := impl.NewProvisioningService(impl.ProvisioningServiceParams{TxManager: txManager, Logger: logger})
	publisher := pubsub.NewInProcessPublisher(provisioning, logger)
	t.Cleanup(func() { _ = publisher.Close() })

	store := credential.NewStore(credential.StoreParams{
		Config:         cfg,
		Logger:         logger,
		TxManager:      txManager,
		IdentityRepo:   memory.NewIdentityRepository(db),
		CredentialRepo: memory.NewCredentialRepository(db),
		SessionRepo:    memory.NewSessionTokenRepository(db),
		Hasher:         auth.NewBcryptHasher(cfg),
		Tokens:         tokens,
		Publisher:      publisher,
	})
	t.Cleanup(store.Close)

	reg := metrics.NewRegistry()
	collector := metrics.NewCollector(reg)

	profiles := impl.NewProfileService(impl.ProfileServiceParams{
		Config:    cfg,
		TxManager: txManager,
		Cache:     cache.NewMemoryProfileCache(),
		Metrics:   collector,
		Logger:    logger,
	})
	registry := impl.NewSessionRegistry(impl.SessionRegistryParams{
		Lifecycle: lc,
		Config:    cfg,
		Store:     store,
		Profiles:  profiles,
		Metrics:   collector,
		Logger:    logger,
	})
	cases := impl.NewCaseService(impl.CaseServiceParams{
		TxManager: txManager,
		Sanitizer: sanitize.NewTextSanitizer(),
		Metrics:   collector,
		Logger:    logger,
	})
	guard := impl.NewRouteGuard(cfg)

	e := New(ServerParams{
		Cfg:     cfg,
		Logger:  logger,
		Metrics: collector,
		RouterParams: router.RouterParams{
			AuthHandler:      handler.NewAuthHandler(handler.AuthHandlerParams{Guard: guard, Logger: logger}),
			SessionHandler:   handler.NewSessionHandler(handler.SessionHandlerParams{Guard: guard, Logger: logger}),
			ProfileHandler:   handler.NewProfileHandler(),
			DashboardHandler: handler.NewDashboardHandler(handler.DashboardHandlerParams{CaseUC: cases, Guard: guard}),
			CaseHandler:      handler.NewCaseHandler(handler.CaseHandlerParams{CaseUC: cases, Logger: logger}),
			HearingHandler:   handler.NewHearingHandler(handler.HearingHandlerParams{CaseUC: cases, QRCode: qrcode.NewQRCodeService(256, "medium")}),
			ClientMiddleware: sharedmiddleware.NewClientMiddleware(cfg),
			Sessions:         apimiddleware.NewSessionMiddleware(registry, guard),
			Gatherer:         reg,
			Config:           cfg,
		},
	})

	lc.RequireStart()
	t.Cleanup(lc.RequireStop)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return srv.URL
}

func newClient(t *testing.T, base string) *apiClient {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &apiClient{
		t:    t,
		base: base,
		client: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *apiClient) do(method, path string, body any) (*http.Response, envelope) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if len(raw) > 0 && resp.Header.Get("Content-Type") != "image/png" {
		require.NoError(c.t, json.Unmarshal(raw, &env), string(raw))
	}

	return resp, env
}

func (c *apiClient) session() handler.SessionView {
	c.t.Helper()

	resp, env := c.do(http.MethodGet, "/session", nil)
	require.Equal(c.t, http.StatusOK, resp.StatusCode)

	var view handler.SessionView
	require.NoError(c.t, json.Unmarshal(env.Data, &view))

	return view
}

func (c *apiClient) signUp(email string, profile map[string]string) {
	c.t.Helper()

	resp, env := c.do(http.MethodPost, "/auth/sign-up", map[string]any{
		"email":    email,
		"password": "Secret123!",
		"profile":  profile,
	})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode, env.Error)

	require.Eventually(c.t, func() bool {
		return c.session().Profile != nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestAPI_SessionLifecycleAndGuard(t *testing.T) {
	base := newTestServer(t)
	lawyer := newClient(t, base)

	view := lawyer.session()
	assert.Equal(t, "unauthenticated", string(view.State))

	resp, env := lawyer.do(http.MethodGet, "/lawyer/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.NotNil(t, env.Guard)
	assert.Equal(t, "redirect_sign_in", env.Guard.Outcome)
	assert.Equal(t, "/login?return_to=%2Flawyer%2Fdashboard", resp.Header.Get("Location"))

	lawyer.signUp("asha@example.com", map[string]string{
		"role": "lawyer", "full_name": "Asha Rao", "enrollment_number": "D/123/2019",
	})

	view = lawyer.session()
	assert.Equal(t, "authenticated", string(view.State))
	assert.Equal(t, "/lawyer/dashboard", view.Home)
	assert.Equal(t, "Asha Rao", view.Profile.FullName)

	resp, _ = lawyer.do(http.MethodGet, "/lawyer/dashboard", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = lawyer.do(http.MethodGet, "/judge/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "a wrong role is sent home, never refused")
	assert.Equal(t, "/lawyer/dashboard", resp.Header.Get("Location"))
	require.NotNil(t, env.Guard)
	assert.Equal(t, "redirect_role", env.Guard.Outcome)

	resp, env = lawyer.do(http.MethodGet, "/session/guard?path=/judge/cases", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "redirect_role")

	other := newClient(t, base)
	assert.Equal(t, "unauthenticated", string(other.session().State), "client contexts are isolated")

	resp, env = lawyer.do(http.MethodPost, "/auth/sign-out", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"remote_invalidated":true`)
	assert.Equal(t, "unauthenticated", string(lawyer.session().State))

	resp, env = lawyer.do(http.MethodGet, "/api/v1/cases/recent", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_AUTHENTICATED", env.Error.Code)
}

func TestAPI_SignInErrors(t *testing.T) {
	base := newTestServer(t)
	client := newClient(t, base)

	resp, env := client.do(http.MethodPost, "/auth/sign-in", map[string]string{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	resp, env = client.do(http.MethodPost, "/auth/sign-in", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestAPI_CaseAccess(t *testing.T) {
	base := newTestServer(t)

	lawyer := newClient(t, base)
	lawyer.signUp("asha@example.com", map[string]string{
		"role": "lawyer", "full_name": "Asha Rao", "enrollment_number": "D/123/2019",
	})
	judge := newClient(t, base)
	judge.signUp("judge@example.com", map[string]string{
		"role": "judge", "full_name": "Justice Iyer", "court_id": "MHCT01",
	})

	resp, env := lawyer.do(http.MethodPost, "/api/v1/cases", map[string]any{
		"case_number": "MHCT010012342023",
		"title":       "Rao v. State",
		"case_type":   "civil",
		"petitioner":  "Rao",
		"respondent":  "State",
		"court_name":  "High Court",
		"description": "<b>urgent</b> matter",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)

	resp, env = judge.do(http.MethodGet, "/api/v1/cases/search?case_number=MHCT010012342023", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "Rao v. State")
	assert.NotContains(t, string(env.Data), "<b>")

	resp, env = judge.do(http.MethodGet, "/api/v1/cases/search?case_number=UNKNOWN00000", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, env.Error)
	var miss handler.CaseSearchView
	require.NoError(t, json.Unmarshal(env.Data, &miss))
	assert.False(t, miss.Found)
	assert.Nil(t, miss.Case)

	resp, env = judge.do(http.MethodPost, "/api/v1/cases", map[string]any{
		"case_number": "MHCT010012352023",
		"title":       "Judges cannot file",
		"case_type":   "civil",
		"petitioner":  "A",
		"respondent":  "B",
		"court_name":  "High Court",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	resp, env = lawyer.do(http.MethodGet, "/api/v1/cases/recent?limit=5", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "MHCT010012342023")

	resp, _ = lawyer.do(http.MethodGet, "/api/v1/cases/recent?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = lawyer.do(http.MethodGet, "/api/v1/cases/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	base := newTestServer(t)
	client := newClient(t, base)

	resp, _ := client.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Cookies(), "health checks do not create client contexts")

	client.session()

	req, err := http.NewRequest(http.MethodGet, base+"/metrics", nil)
	require.NoError(t, err)
	metricsResp, err := client.client.Do(req)
	require.NoError(t, err)
	defer metricsResp.Body.Close()

	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "lexcourt_http_requests_total")
	assert.Contains(t, string(body), "lexcourt_active_client_contexts 1")
}

func readEvent(t *testing.T, r *bufio.Reader) (name, data string) {
	t.Helper()

	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case line == "":
			if name != "" {
				return name, data
			}
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestAPI_SessionEventsStream(t *testing.T) {
	base := newTestServer(t)
	client := newClient(t, base)
	client.session()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/session/events", nil)
	require.NoError(t, err)
	resp, err := client.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	events := bufio.NewReader(resp.Body)

	name, data := readEvent(t, events)
	assert.Equal(t, "snapshot", name)
	assert.Contains(t, data, `"state":"unauthenticated"`)

	client.signUp("asha@example.com", map[string]string{
		"role": "lawyer", "full_name": "Asha Rao", "enrollment_number": "D/123/2019",
	})

	name, data = readEvent(t, events)
	assert.Equal(t, "transition", name)

	var transition handler.TransitionView
	require.NoError(t, json.Unmarshal([]byte(data), &transition))
	assert.Equal(t, uint64(1), transition.Seq)
	assert.Equal(t, "sign_up", string(transition.Cause))
	assert.Equal(t, "authenticated", string(transition.To))
	assert.NotNil(t, transition.CurrentSessionID)
	assert.NotContains(t, data, "token")

	client.do(http.MethodPost, "/auth/sign-out", nil)

	name, data = readEvent(t, events)
	assert.Equal(t, "transition", name)
	assert.Contains(t, data, `"cause":"sign_out"`)
	assert.Contains(t, data, `"seq":2`)
}
