// go test github.com/homemade/saka/keywords -v
package keywords

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testEnvVar(overrides map[string]string) MapEnvVar {
	ev := MapEnvVar{
		EnvGCPProjectID:      "saka-test",
		EnvCustomerID:        "1234567890",
		EnvSA360SFTPUsername: "agency-upload",
		EnvSA360AccountName:  "Test Account",
	}
	for k, v := range overrides {
		ev[k] = v
	}
	return ev
}

func testConfig(t *testing.T, overrides map[string]string) Config {
	t.Helper()
	cfg, err := LoadConfigFromEnvironment(ConfigWithEnvVar(testEnvVar(overrides)))
	if err != nil {
		t.Fatalf("LoadConfigFromEnvironment returned error: %v", err)
	}
	return cfg
}

func TestLoadConfigFromEnvironment_Defaults(t *testing.T) {
	cfg := testConfig(t, nil)

	if cfg.GCP.ProjectID != "saka-test" {
		t.Errorf("Expected project: saka-test but have: %s", cfg.GCP.ProjectID)
	}
	if cfg.GoogleAds.CustomerID != "1234567890" {
		t.Errorf("Expected customer id: 1234567890 but have: %s", cfg.GoogleAds.CustomerID)
	}
	if len(cfg.GoogleAds.CampaignIDs) != 0 {
		t.Errorf("Expected no campaign ids but have: %v", cfg.GoogleAds.CampaignIDs)
	}
	if cfg.GoogleAds.APIVersion != "v21" {
		t.Errorf("Expected api version: v21 but have: %s", cfg.GoogleAds.APIVersion)
	}
	if cfg.SA360.Hostname != DefaultSA360SFTPHostname || cfg.SA360.Port != DefaultSA360SFTPPort {
		t.Errorf("Expected sftp endpoint: %s:%d but have: %s:%d", DefaultSA360SFTPHostname, DefaultSA360SFTPPort, cfg.SA360.Hostname, cfg.SA360.Port)
	}
	if cfg.SA360.Label != "SA_add" {
		t.Errorf("Expected label: SA_add but have: %s", cfg.SA360.Label)
	}
	if cfg.SA360.AccountType != "Google" {
		t.Errorf("Expected account type: Google but have: %s", cfg.SA360.AccountType)
	}
	expected := Thresholds{Clicks: 5, Conversions: 0, SearchTermTokens: 3}
	if cfg.Thresholds != expected {
		t.Errorf("Expected thresholds: %+v but have: %+v", expected, cfg.Thresholds)
	}
	if cfg.HasLandingPage() || cfg.HasMaxCPC() {
		t.Error("Expected no optional keyword columns")
	}
	if cfg.Archive.BucketURL != "" {
		t.Errorf("Expected no archive bucket but have: %s", cfg.Archive.BucketURL)
	}
	secretURL := cfg.SecretURLFor(SecretSA360SFTPPassword)
	if secretURL != "gcpsecretmanager://projects/saka-test/secrets/sa360_sftp_password?decoder=string" {
		t.Errorf("Unexpected secret url: %s", secretURL)
	}
}

func TestLoadConfigFromEnvironment_Overrides(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		EnvCustomerID:                "012-345-6789",
		EnvCampaignIDs:               "111, 222,,333",
		EnvSA360SFTPPort:             "2222",
		EnvSA360Label:                "SAKA",
		EnvClicksThreshold:           "10",
		EnvConversionsThreshold:      "2",
		EnvSearchTermTokensThreshold: "4",
		EnvKeywordLandingPage:        "https://example.com/landing",
		EnvKeywordMaxCPC:             "1.25",
	})

	if cfg.GoogleAds.CustomerID != "0123456789" {
		t.Errorf("Expected customer id: 0123456789 but have: %s", cfg.GoogleAds.CustomerID)
	}
	if len(cfg.GoogleAds.CampaignIDs) != 3 || cfg.GoogleAds.CampaignIDs[2] != "333" {
		t.Errorf("Expected campaign ids: [111 222 333] but have: %v", cfg.GoogleAds.CampaignIDs)
	}
	if cfg.SA360.Port != 2222 {
		t.Errorf("Expected port: 2222 but have: %d", cfg.SA360.Port)
	}
	if cfg.SA360.Label != "SAKA" {
		t.Errorf("Expected label: SAKA but have: %s", cfg.SA360.Label)
	}
	expected := Thresholds{Clicks: 10, Conversions: 2, SearchTermTokens: 4}
	if cfg.Thresholds != expected {
		t.Errorf("Expected thresholds: %+v but have: %+v", expected, cfg.Thresholds)
	}
	if !cfg.HasLandingPage() || !cfg.HasMaxCPC() {
		t.Error("Expected optional keyword columns")
	}
	if cfg.Keyword.MaxCPC != "1.25" {
		t.Errorf("Expected max cpc: 1.25 but have: %s", cfg.Keyword.MaxCPC)
	}
}

func TestLoadConfigFromEnvironment_MaxCPCFormatting(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		{"1.5", "1.50"},
		{"2", "2.00"},
		{" 0.125 ", "0.13"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := testConfig(t, map[string]string{EnvKeywordMaxCPC: tt.value})
			if cfg.Keyword.MaxCPC != tt.expected {
				t.Errorf("Expected result: %s but have: %s", tt.expected, cfg.Keyword.MaxCPC)
			}
		})
	}
}

func TestLoadConfigFromEnvironment_InvalidSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "empty project", key: EnvGCPProjectID, value: ""},
		{name: "empty customer id", key: EnvCustomerID, value: "  "},
		{name: "empty sftp username", key: EnvSA360SFTPUsername, value: ""},
		{name: "non-numeric clicks", key: EnvClicksThreshold, value: "five"},
		{name: "empty clicks", key: EnvClicksThreshold, value: ""},
		{name: "non-numeric conversions", key: EnvConversionsThreshold, value: "0.5"},
		{name: "empty tokens", key: EnvSearchTermTokensThreshold, value: ""},
		{name: "non-numeric max cpc", key: EnvKeywordMaxCPC, value: "one dollar"},
		{name: "zero max cpc", key: EnvKeywordMaxCPC, value: "0.00"},
		{name: "non-numeric campaign id", key: EnvCampaignIDs, value: "123,abc"},
		{name: "non-numeric port", key: EnvSA360SFTPPort, value: "sftp"},
		{name: "negative port", key: EnvSA360SFTPPort, value: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromEnvironment(ConfigWithEnvVar(testEnvVar(map[string]string{tt.key: tt.value})))
			if !errors.Is(err, ErrInvalidSetting) {
				t.Fatalf("Expected ErrInvalidSetting but have: %v", err)
			}
		})
	}
}

func TestLoadConfigFromEnvironment_SettingsFile(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "override.yaml")
	override := "sa360:\n  remoteDir: /incoming\narchive:\n  bucketUrl: mem://\n"
	if err := os.WriteFile(filename, []byte(override), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t, map[string]string{EnvSettingsFile: filename})
	if cfg.SA360.RemoteDir != "/incoming" {
		t.Errorf("Expected remote dir: /incoming but have: %s", cfg.SA360.RemoteDir)
	}
	if cfg.Archive.BucketURL != "mem://" {
		t.Errorf("Expected bucket url: mem:// but have: %s", cfg.Archive.BucketURL)
	}
	// untouched keys keep their defaults
	if cfg.SA360.Hostname != DefaultSA360SFTPHostname {
		t.Errorf("Expected hostname: %s but have: %s", DefaultSA360SFTPHostname, cfg.SA360.Hostname)
	}

	_, err := LoadConfigFromEnvironment(ConfigWithEnvVar(testEnvVar(map[string]string{EnvSettingsFile: filepath.Join(dir, "missing.yaml")})))
	if err == nil {
		t.Error("Expected error for missing settings file")
	}
}

func TestParseCampaignIDs(t *testing.T) {
	ids, err := ParseCampaignIDs("")
	if err != nil || len(ids) != 0 {
		t.Errorf("Expected no ids but have: %v %v", ids, err)
	}
	ids, err = ParseCampaignIDs(" 1 ,2")
	if err != nil || len(ids) != 2 || ids[0] != "1" || ids[1] != "2" {
		t.Errorf("Expected [1 2] but have: %v %v", ids, err)
	}
}
