package keywords

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/config"
)

// Config holds the validated settings for a single keyword automation run.
type Config struct {
	GCP        GCPSettings
	GoogleAds  GoogleAdsSettings
	SA360      SA360Settings
	Thresholds Thresholds
	Keyword    KeywordSettings
	Archive    ArchiveSettings
}

type GCPSettings struct {
	ProjectID string
	// SecretURL is a runtimevar URL template with {project} and {secret} placeholders.
	SecretURL string
}

type GoogleAdsSettings struct {
	CustomerID        string
	CampaignIDs       []string // empty means all campaigns
	APIVersion        string
	Endpoint          string
	CredentialsSecret string
}

type SA360Settings struct {
	Hostname       string
	Port           int
	Username       string
	AccountName    string
	AccountType    string
	Label          string
	PasswordSecret string
	RemoteDir      string
}

// Thresholds decide whether a search term is promoted to a keyword.
type Thresholds struct {
	Clicks           int
	Conversions      int
	SearchTermTokens int
}

type KeywordSettings struct {
	LandingPage string
	MaxCPC      string
}

type ArchiveSettings struct {
	BucketURL string
}

// SecretURLFor returns the runtimevar URL of the named secret in the configured project.
func (c Config) SecretURLFor(secret string) string {
	return strings.NewReplacer("{project}", c.GCP.ProjectID, "{secret}", secret).Replace(c.GCP.SecretURL)
}

// HasLandingPage reports whether bulksheets carry the keyword landing page column.
func (c Config) HasLandingPage() bool {
	return c.Keyword.LandingPage != ""
}

// HasMaxCPC reports whether bulksheets carry the keyword max CPC column.
func (c Config) HasMaxCPC() bool {
	return c.Keyword.MaxCPC != ""
}

// rawSettings mirrors the settings YAML before validation.
// Every leaf is a string so numeric checks report the env var at fault.
type rawSettings struct {
	GCP struct {
		ProjectID string `yaml:"projectId"`
		SecretURL string `yaml:"secretUrl"`
	} `yaml:"gcp"`
	GoogleAds struct {
		CustomerID        string `yaml:"customerId"`
		CampaignIDs       string `yaml:"campaignIds"`
		APIVersion        string `yaml:"apiVersion"`
		Endpoint          string `yaml:"endpoint"`
		CredentialsSecret string `yaml:"credentialsSecret"`
	} `yaml:"googleAds"`
	SA360 struct {
		Hostname       string `yaml:"hostname"`
		Port           string `yaml:"port"`
		Username       string `yaml:"username"`
		AccountName    string `yaml:"accountName"`
		AccountType    string `yaml:"accountType"`
		Label          string `yaml:"label"`
		PasswordSecret string `yaml:"passwordSecret"`
		RemoteDir      string `yaml:"remoteDir"`
	} `yaml:"sa360"`
	Thresholds struct {
		Clicks           string `yaml:"clicks"`
		Conversions      string `yaml:"conversions"`
		SearchTermTokens string `yaml:"searchTermTokens"`
	} `yaml:"thresholds"`
	Keyword struct {
		LandingPage string `yaml:"landingPage"`
		MaxCPC      string `yaml:"maxCpc"`
	} `yaml:"keyword"`
	Archive struct {
		BucketURL string `yaml:"bucketUrl"`
	} `yaml:"archive"`
}

// SettingsEnvVar resolves the ${NAME:default} placeholders in settings files.
type SettingsEnvVar interface {
	LookupEnv(name string) (string, bool)
}

// OSEnvVar resolves placeholders from the process environment.
type OSEnvVar struct{}

func (OSEnvVar) LookupEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}

// MapEnvVar resolves placeholders from a fixed map.
type MapEnvVar map[string]string

func (m MapEnvVar) LookupEnv(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// quotedLookup wraps ev so that expanded values are always YAML strings.
// Without it a customer ID like 0123456789 would be read back as a float.
func quotedLookup(ev SettingsEnvVar) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := ev.LookupEnv(name)
		if !ok {
			return "", false
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

type ConfigUnmarshaler interface {
	Unmarshal(ev SettingsEnvVar, sources ...SettingsFile) (Config, error)
}

type YAMLConfigUnmarshaler struct{}

func (u YAMLConfigUnmarshaler) Unmarshal(ev SettingsEnvVar, sources ...SettingsFile) (Config, error) {
	var raw rawSettings
	var options []config.YAMLOption
	for _, s := range sources {
		if s.Length > 0 {
			options = append(options, config.Source(s.Reader))
		}
	}
	options = append(options, config.Expand(quotedLookup(ev)))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read yaml settings %w", err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("failed to read '%s' from yaml settings %w", key, cause)
	}
	sections := []struct {
		key    string
		target interface{}
	}{
		{"gcp", &raw.GCP},
		{"googleAds", &raw.GoogleAds},
		{"sa360", &raw.SA360},
		{"thresholds", &raw.Thresholds},
		{"keyword", &raw.Keyword},
		{"archive", &raw.Archive},
	}
	for _, s := range sections {
		if !yaml.Get(s.key).HasValue() {
			continue
		}
		if err := yaml.Get(s.key).Populate(s.target); err != nil {
			return Config{}, readError(s.key, err)
		}
	}
	return raw.validate()
}

var digitsPattern = regexp.MustCompile(`^[0-9]+$`)

func invalidSetting(name string, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidSetting, name, fmt.Sprintf(format, args...))
}

func parseThreshold(name, value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, invalidSetting(name, "is not set")
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, invalidSetting(name, "must be an integer, have %q", value)
	}
	return i, nil
}

// ParseCampaignIDs splits a comma separated campaign ID list, ignoring blanks.
func ParseCampaignIDs(s string) ([]string, error) {
	var result []string
	for _, id := range strings.Split(s, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !digitsPattern.MatchString(id) {
			return nil, invalidSetting(EnvCampaignIDs, "contains non-numeric campaign id %q", id)
		}
		result = append(result, id)
	}
	return result, nil
}

func (r rawSettings) validate() (Config, error) {
	var c Config
	var err error

	c.GCP.ProjectID = strings.TrimSpace(r.GCP.ProjectID)
	if c.GCP.ProjectID == "" {
		return c, invalidSetting(EnvGCPProjectID, "is not set")
	}
	c.GCP.SecretURL = r.GCP.SecretURL

	c.GoogleAds.CustomerID = strings.ReplaceAll(strings.TrimSpace(r.GoogleAds.CustomerID), "-", "")
	if c.GoogleAds.CustomerID == "" {
		return c, invalidSetting(EnvCustomerID, "is not set")
	}
	if c.GoogleAds.CampaignIDs, err = ParseCampaignIDs(r.GoogleAds.CampaignIDs); err != nil {
		return c, err
	}
	c.GoogleAds.APIVersion = r.GoogleAds.APIVersion
	c.GoogleAds.Endpoint = r.GoogleAds.Endpoint
	c.GoogleAds.CredentialsSecret = r.GoogleAds.CredentialsSecret

	c.SA360.Hostname = r.SA360.Hostname
	port := strings.TrimSpace(r.SA360.Port)
	if c.SA360.Port, err = strconv.Atoi(port); err != nil || c.SA360.Port <= 0 {
		return c, invalidSetting(EnvSA360SFTPPort, "must be a positive integer, have %q", port)
	}
	c.SA360.Username = strings.TrimSpace(r.SA360.Username)
	if c.SA360.Username == "" {
		return c, invalidSetting(EnvSA360SFTPUsername, "is not set")
	}
	c.SA360.AccountName = r.SA360.AccountName
	c.SA360.AccountType = r.SA360.AccountType
	c.SA360.Label = r.SA360.Label
	c.SA360.PasswordSecret = r.SA360.PasswordSecret
	c.SA360.RemoteDir = r.SA360.RemoteDir

	if c.Thresholds.Clicks, err = parseThreshold(EnvClicksThreshold, r.Thresholds.Clicks); err != nil {
		return c, err
	}
	if c.Thresholds.Conversions, err = parseThreshold(EnvConversionsThreshold, r.Thresholds.Conversions); err != nil {
		return c, err
	}
	if c.Thresholds.SearchTermTokens, err = parseThreshold(EnvSearchTermTokensThreshold, r.Thresholds.SearchTermTokens); err != nil {
		return c, err
	}

	c.Keyword.LandingPage = strings.TrimSpace(r.Keyword.LandingPage)
	if maxCPC := strings.TrimSpace(r.Keyword.MaxCPC); maxCPC != "" {
		amount, err := decimal.NewFromString(maxCPC)
		if err != nil || !amount.IsPositive() {
			return c, invalidSetting(EnvKeywordMaxCPC, "must be a positive decimal amount, have %q", maxCPC)
		}
		// bulksheets carry bids with two decimal places
		c.Keyword.MaxCPC = amount.StringFixed(2)
	}

	c.Archive.BucketURL = strings.TrimSpace(r.Archive.BucketURL)

	return c, nil
}
