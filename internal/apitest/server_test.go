package apitest_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexifisio-client/internal/apitest"
	"flexifisio-client/internal/auth"
	"flexifisio-client/internal/model"
)

const secret = "test-secret"

func post(t *testing.T, url, bearer, body string) (*http.Response, map[string]string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]string{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func get(t *testing.T, url, bearer string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bearer)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func login(t *testing.T, srv *apitest.Server, url string) string {
	t.Helper()
	_, err := srv.AddUser(model.Registration{FirstName: "A", LastName: "B", Email: "a@b.it", Password: "testpass123"})
	require.NoError(t, err)
	resp, body := post(t, url+"/fisioterapista/login", "", `{"email":"a@b.it","password":"testpass123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["token"])
	return body["token"]
}

func TestTokensCarryUser(t *testing.T) {
	srv, ts := apitest.Start(t, secret)
	tok := login(t, srv, ts.URL)

	c, err := auth.ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "a@b.it", c.Email)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, http.StatusOK, get(t, ts.URL+"/profile", tok))
}

func TestMissingOrForeignToken(t *testing.T) {
	_, ts := apitest.Start(t, secret)
	assert.Equal(t, http.StatusUnauthorized, get(t, ts.URL+"/patient", ""))

	foreign, err := auth.MakeToken("u1", "a@b.it", "other-secret", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(t, ts.URL+"/patient", foreign))
}

func TestExpireAndRefreshOnce(t *testing.T) {
	srv, ts := apitest.Start(t, secret)
	tok := login(t, srv, ts.URL)

	srv.ExpireTokens()
	assert.Equal(t, http.StatusUnauthorized, get(t, ts.URL+"/patient", tok))

	resp, body := post(t, ts.URL+"/fisioterapista/refreshToken", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fresh := body["accessToken"]
	require.NotEmpty(t, fresh)
	assert.Equal(t, http.StatusOK, get(t, ts.URL+"/patient", fresh))

	// a credential is exchanged at most once
	resp, _ = post(t, ts.URL+"/fisioterapista/refreshToken", tok, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 2, srv.Refreshes())
}

func TestRefreshBeyondGrace(t *testing.T) {
	srv, ts := apitest.Start(t, secret, apitest.WithTTL(-2*time.Hour), apitest.WithGrace(time.Hour))
	tok := login(t, srv, ts.URL)

	resp, _ := post(t, ts.URL+"/fisioterapista/refreshToken", tok, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFailRefresh(t *testing.T) {
	srv, ts := apitest.Start(t, secret)
	tok := login(t, srv, ts.URL)
	srv.FailRefresh(true)

	resp, body := post(t, ts.URL+"/fisioterapista/refreshToken", tok, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "refresh rejected", body["message"])
}

func TestBookingRejectsOffTemplateHours(t *testing.T) {
	srv, ts := apitest.Start(t, secret)
	tok := login(t, srv, ts.URL)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"lunch break", `{"patientId":1,"date":"2030-05-14","time":"13:00:00"}`, http.StatusBadRequest},
		{"half hour", `{"patientId":1,"date":"2030-05-14","time":"10:30:00"}`, http.StatusBadRequest},
		{"bad date", `{"patientId":1,"date":"14-05-2030","time":"10:00:00"}`, http.StatusBadRequest},
		{"unknown patient", `{"patientId":999,"date":"2030-05-14","time":"10:00:00"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := post(t, ts.URL+"/appointment", tok, tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}
