package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGitHub serves the token endpoint and the two API calls Exchange makes.
func fakeGitHub(t *testing.T, userJSON, emailsJSON string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_test", r.Header.Get("Authorization"))
		w.Write([]byte(userJSON))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emailsJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGitHubProvider(srv *httptest.Server) *GitHubProvider {
	p := NewGitHubProvider("client-id", "client-secret", "http://localhost/auth/github/callback")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/login/oauth/authorize",
		TokenURL: srv.URL + "/login/oauth/access_token",
	}
	p.apiBase = srv.URL
	return p
}

func TestGitHubProvider_AuthURLCarriesState(t *testing.T) {
	p := NewGitHubProvider("client-id", "secret", "http://localhost/cb")
	u := p.AuthURL("state-123")

	assert.True(t, strings.HasPrefix(u, "https://github.com/login/oauth/authorize"))
	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "client_id=client-id")
}

func TestGitHubProvider_Exchange(t *testing.T) {
	srv := fakeGitHub(t, `{"id":42,"login":"octocat","email":"octo@example.com"}`, `[]`)

	user, err := newTestGitHubProvider(srv).Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, &GitHubUser{ID: 42, Login: "octocat", Email: "octo@example.com"}, user)
}

func TestGitHubProvider_Exchange_HiddenEmail(t *testing.T) {
	srv := fakeGitHub(t,
		`{"id":42,"login":"octocat","email":null}`,
		`[{"email":"old@example.com","primary":false,"verified":true},
		  {"email":"main@example.com","primary":true,"verified":true}]`)

	user, err := newTestGitHubProvider(srv).Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "main@example.com", user.Email)
}

func TestGitHubProvider_Exchange_InvalidUser(t *testing.T) {
	srv := fakeGitHub(t, `{"id":0,"login":""}`, `[]`)

	_, err := newTestGitHubProvider(srv).Exchange(context.Background(), "code")
	assert.Error(t, err)
}
