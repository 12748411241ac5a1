package deploy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func createTestDispatcher(t *testing.T, jenkinsAPI string) *Dispatcher {
	jenkins := JenkinsConfig{
		API:     jenkinsAPI,
		User:    "ci-user",
		Token:   "ci-token",
		JobName: "build-project",
	}
	deployer := DeployerConfig{
		API:      "https://deployer.example.com",
		User:     "deployer-user",
		Password: "deployer-password",
	}
	return NewDispatcher(logs.NewTestingLog(t), jenkins, deployer)
}

func TestInstall(t *testing.T) {
	nRequests := 0
	var gotPath, gotJSON string
	var gotUser, gotToken string
	ci := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nRequests++
		gotPath = r.URL.Path
		gotUser, gotToken, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotJSON = r.PostFormValue("json")
		w.WriteHeader(http.StatusCreated)
	}))
	defer ci.Close()

	d := createTestDispatcher(t, ci.URL)
	require.NoError(t, d.Install("alice1-hello", "bob2-myapp", "0.1.0"))

	require.Equal(t, 1, nRequests)
	require.Equal(t, "/job/deploy-fixed-version/build", gotPath)
	require.Equal(t, "ci-user", gotUser)
	require.Equal(t, "ci-token", gotToken)

	doc := jenkinsParams{}
	require.NoError(t, json.Unmarshal([]byte(gotJSON), &doc))
	require.Equal(t, []jenkinsParam{
		{Name: "SRC_REPO_NAME", Value: "alice1-hello"},
		{Name: "DST_REPO_NAME", Value: "bob2-myapp"},
		{Name: "VERSION", Value: "0.1.0"},
		{Name: "DEPLOYER_API", Value: "https://deployer.example.com"},
		{Name: "DEPLOYER_API_USER", Value: "deployer-user"},
		{Name: "DEPLOYER_API_PASSWORD", Value: "deployer-password"},
	}, doc.Parameter)
}

func TestInstallCIFailure(t *testing.T) {
	ci := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such job", http.StatusNotFound)
	}))
	defer ci.Close()

	d := createTestDispatcher(t, ci.URL)
	require.Error(t, d.Install("alice1-hello", "bob2-myapp", "0.1.0"))

	// Unreachable CI
	ci.Close()
	require.Error(t, d.Install("alice1-hello", "bob2-myapp", "0.1.0"))
}
