// Package deploy talks to the external CI to materialize a published project
// version as a new application. The CI pipeline is fire-and-forget: we
// submit a parameterized build and never poll for its outcome.
package deploy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
)

// UserAgent identifies us to the CI and deployer services.
const UserAgent = "forgeyard-backend"

// InstallJobName is the parameterized CI job that redeploys a fixed version.
const InstallJobName = "deploy-fixed-version"

// JenkinsConfig is the CI service account.
type JenkinsConfig struct {
	API     string `json:"api"`
	User    string `json:"user"`
	Token   string `json:"token"`
	JobName string `json:"jobName"` // job triggered by the repository update hook
}

// DeployerConfig is the deployer service account, passed through to CI jobs
// and embedded in repository update hooks.
type DeployerConfig struct {
	API      string `json:"api"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Dispatcher struct {
	Log      logs.Log
	Jenkins  JenkinsConfig
	Deployer DeployerConfig

	// Shared by all requests. The timeout bounds worker occupancy when the
	// CI is unresponsive.
	client *http.Client
}

func NewDispatcher(log logs.Log, jenkins JenkinsConfig, deployer DeployerConfig) *Dispatcher {
	return &Dispatcher{
		Log:      log,
		Jenkins:  jenkins,
		Deployer: deployer,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type jenkinsParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type jenkinsParams struct {
	Parameter []jenkinsParam `json:"parameter"`
}

// BuildParams serializes the ordered parameter document of the
// deploy-fixed-version job.
func (d *Dispatcher) BuildParams(srcRepo, dstRepo, version string) string {
	doc := jenkinsParams{
		Parameter: []jenkinsParam{
			{Name: "SRC_REPO_NAME", Value: srcRepo},
			{Name: "DST_REPO_NAME", Value: dstRepo},
			{Name: "VERSION", Value: version},
			{Name: "DEPLOYER_API", Value: d.Deployer.API},
			{Name: "DEPLOYER_API_USER", Value: d.Deployer.User},
			{Name: "DEPLOYER_API_PASSWORD", Value: d.Deployer.Password},
		},
	}
	b, _ := json.Marshal(&doc)
	return string(b)
}

// Install submits one CI build that deploys version of srcRepo as dstRepo.
// Any transport failure or non-2xx response is an error; retrying may
// enqueue a second build, so callers treat success as "submitted".
func (d *Dispatcher) Install(srcRepo, dstRepo, version string) error {
	form := url.Values{}
	form.Set("json", d.BuildParams(srcRepo, dstRepo, version))

	buildURL := fmt.Sprintf("%v/job/%v/build", d.Jenkins.API, InstallJobName)
	req, err := http.NewRequest("POST", buildURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", UserAgent)
	req.SetBasicAuth(d.Jenkins.User, d.Jenkins.Token)

	resp, err := d.client.Do(req)
	if err != nil {
		d.Log.Warnf("Request to CI failed: %v", err)
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.Log.Warnf("CI rejected build of %v: %v", dstRepo, resp.Status)
		return fmt.Errorf("CI returned %v", resp.Status)
	}
	d.Log.Infof("Submitted deploy, src: %v, dst: %v, version: %v", srcRepo, dstRepo, version)
	return nil
}
