package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"medicare-now/internal/domain/careaccess"
	"medicare-now/internal/domain/sessions"
	"medicare-now/internal/router"
)

// caller: identidad del request (headers de debug o Bearer token).
type caller struct {
	userID string
	role   string
	token  string
}

func patient(id string) caller { return caller{userID: id} }
func medic(id string) caller   { return caller{userID: id, role: "MEDIC"} }

func newDevServer(t *testing.T) *httptest.Server {
	t.Helper()
	h, err := router.NewRouter(router.Options{AuthMode: router.AuthDev})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func newLocalServer(t *testing.T) *httptest.Server {
	t.Helper()
	h, err := router.NewRouter(router.Options{
		AuthMode:   router.AuthLocal,
		Sessions:   sessions.Options{Secret: "test-secret-0123456789", TTL: time.Hour},
		BcryptCost: 4,
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_CareAccess(t *testing.T) {
	ts := newDevServer(t)

	p := patient("patient-1")
	m := medic("medic-1")

	// 1) Paciente guarda una lectura fuera de rango
	{
		st, body := doReq(t, ts.URL, "POST", "/health-data/readings", p, map[string]any{
			"pulse": 110, "temperature": 36.6, "humidity": 45,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 record reading, got %d body=%s", st, string(body))
		}
		var resp struct {
			Summary string `json:"summary"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Summary != "High pulse!" {
			t.Fatalf("unexpected summary %q", resp.Summary)
		}
	}

	// 2) Médico sin grant no ve lecturas ni puede recomendar
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+p.userID+"/readings", m, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 before grant, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "POST", "/patients/"+p.userID+"/recommendations", m, map[string]any{
			"descriere": "Plimbare", "tipRecomandare": "exercitii",
		})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 recommendation before grant, got %d", st)
		}
	}

	// 3) Paciente invita, médico acepta
	grantID := inviteMedic(t, ts.URL, p, m.userID)
	{
		st, body := doReq(t, ts.URL, "POST", "/care/grants/"+grantID+"/accept", patient("medic-1"), nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 accept without medic role, got %d body=%s", st, string(body))
		}
		st, body = doReq(t, ts.URL, "POST", "/care/grants/"+grantID+"/accept", m, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 accept, got %d body=%s", st, string(body))
		}
	}

	// 4) Médico ve lecturas
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+p.userID+"/readings", m, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 patient readings, got %d body=%s", st, string(body))
		}
		var items []map[string]any
		_ = json.Unmarshal(body, &items)
		if len(items) != 1 || items[0]["pulse"] != float64(110) {
			t.Fatalf("unexpected readings %s", string(body))
		}
	}

	// 5) Médico crea recomendación y actualiza progreso
	var recID string
	{
		st, body := doReq(t, ts.URL, "POST", "/patients/"+p.userID+"/recommendations", m, map[string]any{
			"descriere": "Plimbare 30 min", "tipRecomandare": "Exercitii",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 recommendation, got %d body=%s", st, string(body))
		}
		var resp struct {
			ID        string `json:"id"`
			TipLabel  string `json:"tipLabel"`
			Status    string `json:"status"`
			Progres   int    `json:"progres"`
			PacientID string `json:"pacientID"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.ID == "" || resp.TipLabel != "Exerciții" || resp.Status != "active" || resp.PacientID != p.userID {
			t.Fatalf("unexpected recommendation %s", string(body))
		}
		recID = resp.ID

		st, body = doReq(t, ts.URL, "PATCH", "/recommendations/"+recID+"/progress", m, map[string]any{"progres": 100})
		if st != http.StatusOK || !strings.Contains(string(body), `"status":"completed"`) {
			t.Fatalf("expected completed recommendation, got %d body=%s", st, string(body))
		}
	}

	// 6) Paciente ve su overview
	{
		st, body := doReq(t, ts.URL, "GET", "/me/recommendations", p, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 overview, got %d body=%s", st, string(body))
		}
		var ov struct {
			Personalized bool `json:"personalized"`
			Completed    int  `json:"completed"`
			Total        int  `json:"total"`
		}
		_ = json.Unmarshal(body, &ov)
		if !ov.Personalized || ov.Completed != 1 || ov.Total != 1 {
			t.Fatalf("unexpected overview %s", string(body))
		}
	}

	// 7) Paciente revoca; el médico pierde acceso
	{
		st, body := doReq(t, ts.URL, "POST", "/care/grants/"+grantID+"/revoke", p, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 revoke, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "GET", "/patients/"+p.userID+"/readings", m, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 after revoke, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "PATCH", "/recommendations/"+recID+"/progress", m, map[string]any{"progres": 50})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 progress after revoke, got %d", st)
		}
	}
}

func TestHTTP_InviteGrant_RejectsUnknownScope(t *testing.T) {
	ts := newDevServer(t)

	st, _ := doReq(t, ts.URL, "POST", "/care/grants", patient("patient-1"), map[string]any{
		"medicId": "medic-1",
		"scopes":  []string{string(careaccess.ScopeReadingsRead), "readings:delete"},
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown scope, got %d", st)
	}
}

func TestHTTP_Readings_RequireIdentityAndValidFrames(t *testing.T) {
	ts := newDevServer(t)

	if st, _ := doReq(t, ts.URL, "GET", "/health-data/readings", caller{}, nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", st)
	}

	st, body := doReq(t, ts.URL, "POST", "/health-data/evaluate", patient("u1"), map[string]any{"pulse": 72})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete frame, got %d body=%s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "POST", "/health-data/evaluate", patient("u1"), map[string]any{
		"pulse": 50, "temperature": 38, "humidity": 50,
	})
	if st != http.StatusOK || !strings.Contains(string(body), "Low pulse! High temperature!") {
		t.Fatalf("unexpected evaluate response %d body=%s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/health-data/readings/2020-01-01_00:00:00", patient("u1"), nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 for missing reading, got %d body=%s", st, string(body))
	}
}

func TestHTTP_HealthAndBackends(t *testing.T) {
	ts := newDevServer(t)

	st, body := doReq(t, ts.URL, "GET", "/health", caller{}, nil)
	if st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health %d %s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/health/backends", caller{}, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 backends, got %d body=%s", st, string(body))
	}
	var statuses []struct {
		Kind   string `json:"kind"`
		Status string `json:"status"`
	}
	_ = json.Unmarshal(body, &statuses)
	if len(statuses) != 2 || statuses[0].Kind != "realtime" || statuses[1].Status != "ok" {
		t.Fatalf("unexpected backends %s", string(body))
	}
}

func TestHTTP_LocalAuth_SessionLifecycle(t *testing.T) {
	ts := newLocalServer(t)

	// 1) Registro
	var token string
	{
		st, body := doReq(t, ts.URL, "POST", "/auth/register", caller{}, map[string]any{
			"name": "Ana Maria Pop", "email": " Ana@Example.com ", "password": "secret1",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 register, got %d body=%s", st, string(body))
		}
		var resp struct {
			Token   string `json:"token"`
			Welcome string `json:"welcome"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Token == "" || resp.Welcome != "Welcome, Ana Maria Pop" {
			t.Fatalf("unexpected register response %s", string(body))
		}
	}

	// 2) Email duplicado (case-insensitive)
	{
		st, _ := doReq(t, ts.URL, "POST", "/auth/register", caller{}, map[string]any{
			"name": "Other", "email": "ana@example.com", "password": "secret2",
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 duplicate email, got %d", st)
		}
	}

	// 3) Login: password incorrecto, email inexistente, OK
	{
		st, _ := doReq(t, ts.URL, "POST", "/auth/login", caller{}, map[string]any{"email": "ana@example.com", "password": "wrong1"})
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 wrong password, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "POST", "/auth/login", caller{}, map[string]any{"email": "nobody@example.com", "password": "secret1"})
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 unknown user, got %d", st)
		}
		st, body := doReq(t, ts.URL, "POST", "/auth/login", caller{}, map[string]any{"email": "ANA@example.com", "password": "secret1"})
		if st != http.StatusOK {
			t.Fatalf("expected 200 login, got %d body=%s", st, string(body))
		}
		var resp struct {
			Token string `json:"token"`
		}
		_ = json.Unmarshal(body, &resp)
		token = resp.Token
	}

	// 4) Los headers de debug no autentican en modo local
	if st, _ := doReq(t, ts.URL, "GET", "/me", patient("someone"), nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 with debug headers in local mode, got %d", st)
	}

	// 5) /me con token
	{
		st, body := doReq(t, ts.URL, "GET", "/me", caller{token: token}, nil)
		if st != http.StatusOK || !strings.Contains(string(body), `"email":"ana@example.com"`) {
			t.Fatalf("unexpected /me %d body=%s", st, string(body))
		}
	}

	// 6) Live feed con access_token
	{
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/realtime?access_token=" + token
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial realtime: %v", err)
		}
		_ = conn.Close()
	}

	// 7) Logout revoca la sesión
	{
		st, _ := doReq(t, ts.URL, "POST", "/auth/logout", caller{token: token}, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 logout, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "GET", "/me", caller{token: token}, nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 after logout, got %d", st)
		}
	}
}

func TestHTTP_DevMode_HasNoAuthRoutes(t *testing.T) {
	ts := newDevServer(t)

	st, _ := doReq(t, ts.URL, "POST", "/auth/login", caller{}, map[string]any{"email": "a@b.c", "password": "secret1"})
	if st != http.StatusNotFound && st != http.StatusMethodNotAllowed {
		t.Fatalf("expected /auth/* to be unmounted in dev mode, got %d", st)
	}
}

func TestNewRouter_RemoteModeRequiresVerifier(t *testing.T) {
	if _, err := router.NewRouter(router.Options{AuthMode: router.AuthRemote}); err == nil {
		t.Fatalf("expected error without remote verifier")
	}
	if _, err := router.NewRouter(router.Options{AuthMode: "magic"}); err == nil {
		t.Fatalf("expected error for unknown auth mode")
	}
}

func inviteMedic(t *testing.T, baseURL string, p caller, medicID string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/care/grants", p, map[string]any{"medicId": medicID})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 invite, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID     string   `json:"id"`
		Scopes []string `json:"scopes"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" || len(resp.Scopes) != 2 {
		t.Fatalf("invite: unexpected body=%s", string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path string, who caller, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if who.userID != "" {
		req.Header.Set("X-Debug-User-ID", who.userID)
	}
	if who.role != "" {
		req.Header.Set("X-Debug-Role", who.role)
	}
	if who.token != "" {
		req.Header.Set("Authorization", "Bearer "+who.token)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
