package api

import (
	"net/http"
	"strings"
	"testing"
)

func TestGoogleLogin_CreatesSession(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/api/auth/google", "", map[string]string{"idToken": "alice-token"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}

	cookie := w.Header().Get("Set-Cookie")
	if !strings.HasPrefix(cookie, SessionCookie+"=") || !strings.Contains(cookie, "HttpOnly") {
		t.Errorf("Set-Cookie: got %q", cookie)
	}

	var resp SessionBody
	decode(t, w, &resp)
	if resp.Data.Token == "" {
		t.Error("token is empty")
	}
	if resp.Data.User == nil || resp.Data.User.Email != alice.Email {
		t.Errorf("user: got %+v", resp.Data.User)
	}
	if !strings.Contains(cookie, resp.Data.Token) {
		t.Error("cookie does not carry the session token")
	}
}

func TestGoogleLogin_SameUserOnSecondSignIn(t *testing.T) {
	ts := newTestServer(t, nil)
	first := ts.login(t, "alice-token")
	second := ts.login(t, "alice-token")

	var a, b UserBody
	decode(t, ts.do(t, http.MethodGet, "/api/auth/check-auth", first, nil), &a)
	decode(t, ts.do(t, http.MethodGet, "/api/auth/check-auth", second, nil), &b)
	if a.Data.ID != b.Data.ID {
		t.Errorf("user ids differ: %s vs %s", a.Data.ID, b.Data.ID)
	}
}

func TestGoogleLogin_InvalidToken(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/api/auth/google", "", map[string]string{"idToken": "forged"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestGoogleLogin_MissingToken(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/api/auth/google", "", map[string]string{})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestCheckAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	if w := ts.do(t, http.MethodGet, "/api/auth/check-auth", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: got %d, want %d", w.Code, http.StatusUnauthorized)
	}

	token := ts.login(t, "alice-token")
	w := ts.do(t, http.MethodGet, "/api/auth/check-auth", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp UserBody
	decode(t, w, &resp)
	if resp.Data.Name != "Alice" {
		t.Errorf("name: got %q", resp.Data.Name)
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "alice-token")

	w := ts.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusNoContent)
	}
	if cookie := w.Header().Get("Set-Cookie"); !strings.Contains(cookie, "Max-Age=0") {
		t.Errorf("cookie not cleared: %q", cookie)
	}

	if w := ts.do(t, http.MethodGet, "/api/auth/check-auth", token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("after logout: got %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t, nil)
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/profile/me"},
		{http.MethodGet, "/api/matrix"},
		{http.MethodGet, "/api/matrix/5f0c6a9e-4b1f-4d7e-9a43-0d9e1f0f6b11"},
		{http.MethodGet, "/api/matrix-data/5f0c6a9e-4b1f-4d7e-9a43-0d9e1f0f6b11"},
		{http.MethodGet, "/api/cell/5f0c6a9e-4b1f-4d7e-9a43-0d9e1f0f6b11"},
		{http.MethodGet, "/api/categories/5f0c6a9e-4b1f-4d7e-9a43-0d9e1f0f6b11"},
		{http.MethodPost, "/api/auth/logout"},
	}

	for _, p := range paths {
		if w := ts.do(t, p.method, p.path, "", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: got %d, want %d", p.method, p.path, w.Code, http.StatusUnauthorized)
		}
	}
}
