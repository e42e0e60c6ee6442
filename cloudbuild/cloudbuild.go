// Package cloudbuild renders the Cloud Build descriptor that tests and
// deploys the keyword function.
package cloudbuild

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	Runtime  = "go124"
	Memory   = "1024MB"
	Timeout  = "540s"
	GoImage  = "golang:1.24"
	SDKImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:slim"

	HTTPEntryPoint   = "ExtractAndUploadKeywords"
	PubSubEntryPoint = "ExtractAndUploadKeywordsPubSub"
)

// Substitution maps a build substitution to the function environment
// variable it populates. Env is empty for build-only substitutions.
type Substitution struct {
	Name    string
	Env     string
	Default string
}

// Substitutions is the fixed substitution set shared by the build trigger
// and the descriptor.
var Substitutions = []Substitution{
	{Name: "_FUNCTION_NAME", Default: "saka"},
	{Name: "_GCP_LOCATION", Default: "us-central1"},
	{Name: "_TOPIC_NAME", Default: "saka-trigger"},
	{Name: "_TRIGGER_TYPE", Default: "pubsub"},
	{Name: "_GCP_PROJECT_ID", Env: "GCP_PROJECT_ID"},
	{Name: "_CUSTOMER_ID", Env: "CUSTOMER_ID"},
	{Name: "_CAMPAIGN_IDS", Env: "CAMPAIGN_IDS"},
	{Name: "_SA360_SFTP_HOSTNAME", Env: "SA360_SFTP_HOSTNAME", Default: "partnerupload.google.com"},
	{Name: "_SA360_SFTP_PORT", Env: "SA360_SFTP_PORT", Default: "19321"},
	{Name: "_SA360_SFTP_USERNAME", Env: "SA360_SFTP_USERNAME"},
	{Name: "_SA360_ACCOUNT_NAME", Env: "SA360_ACCOUNT_NAME"},
	{Name: "_SA360_ACCOUNT_TYPE", Env: "SA360_ACCOUNT_TYPE", Default: "Google"},
	{Name: "_SA360_LABEL", Env: "SA360_LABEL", Default: "SA_add"},
	{Name: "_CLICKS_THRESHOLD", Env: "CLICKS_THRESHOLD", Default: "5"},
	{Name: "_CONVERSIONS_THRESHOLD", Env: "CONVERSIONS_THRESHOLD", Default: "0"},
	{Name: "_SEARCH_TERMS_TOKENS_THRESHOLD", Env: "SEARCH_TERMS_TOKENS_THRESHOLD", Default: "3"},
	{Name: "_KEYWORD_LANDING_PAGE", Env: "KEYWORD_LANDING_PAGE"},
	{Name: "_KEYWORD_MAX_CPC", Env: "KEYWORD_MAX_CPC"},
	{Name: "_ARCHIVE_BUCKET_URL", Env: "ARCHIVE_BUCKET_URL"},
	{Name: "_GADS_API_VERSION", Env: "GADS_API_VERSION", Default: "v21"},
}

// SubstitutionKey returns the substitution name with its leading underscore
// removed, which is also the env var that supplies it at install time.
func (s Substitution) SubstitutionKey() string {
	return strings.TrimPrefix(s.Name, "_")
}

type Step struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Entrypoint string   `yaml:"entrypoint,omitempty"`
	Args       []string `yaml:"args"`
	WaitFor    []string `yaml:"waitFor,omitempty"`
}

type Options struct {
	Logging            string `yaml:"logging,omitempty"`
	SubstitutionOption string `yaml:"substitutionOption,omitempty"`
}

// Build is the subset of the Cloud Build schema the descriptor uses.
type Build struct {
	Steps         []Step            `yaml:"steps"`
	Substitutions map[string]string `yaml:"substitutions"`
	Options       Options           `yaml:"options"`
	Timeout       string            `yaml:"timeout"`
}

// setEnvVars uses a custom ~ delimiter, campaign ids contain commas.
func setEnvVars() string {
	var pairs []string
	for _, s := range Substitutions {
		if s.Env != "" {
			pairs = append(pairs, fmt.Sprintf("%s=${%s}", s.Env, s.Name))
		}
	}
	return "^~^" + strings.Join(pairs, "~")
}

func deployScript() string {
	lines := []string{
		"set -e",
		`if [ "${_TRIGGER_TYPE}" = "http" ]; then`,
		`  TRIGGER_FLAGS="--trigger-http --no-allow-unauthenticated"`,
		"  ENTRY_POINT=" + HTTPEntryPoint,
		"else",
		`  TRIGGER_FLAGS="--trigger-topic=${_TOPIC_NAME}"`,
		"  ENTRY_POINT=" + PubSubEntryPoint,
		"fi",
		strings.Join([]string{
			"gcloud functions deploy ${_FUNCTION_NAME}",
			"--project=${_GCP_PROJECT_ID}",
			"--region=${_GCP_LOCATION}",
			"--runtime=" + Runtime,
			"--entry-point=$$ENTRY_POINT",
			"$$TRIGGER_FLAGS",
			"--source=.",
			"--memory=" + Memory,
			"--timeout=" + Timeout,
			"--set-env-vars='" + setEnvVars() + "'",
		}, " "),
	}
	return strings.Join(lines, "\n") + "\n"
}

// NewBuild returns the descriptor: unit tests, then the function deploy.
func NewBuild() Build {
	defaults := map[string]string{}
	for _, s := range Substitutions {
		defaults[s.Name] = s.Default
	}
	return Build{
		Steps: []Step{
			{
				ID:         "test",
				Name:       GoImage,
				Entrypoint: "go",
				Args:       []string{"test", "./..."},
			},
			{
				ID:         "deploy",
				Name:       SDKImage,
				Entrypoint: "bash",
				Args:       []string{"-c", deployScript()},
				WaitFor:    []string{"test"},
			},
		},
		Substitutions: defaults,
		Options: Options{
			Logging:            "CLOUD_LOGGING_ONLY",
			SubstitutionOption: "ALLOW_LOOSE",
		},
		Timeout: "1200s",
	}
}

// Render encodes b as cloudbuild.yaml.
func (b Build) Render() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("failed to encode cloudbuild.yaml %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
