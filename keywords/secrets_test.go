package keywords

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

func constantSecretFetcher(values map[string]string) RuntimeVarSecretFetcher {
	return RuntimeVarSecretFetcher{URLFor: func(name string) string {
		return "constant://?decoder=string&val=" + url.QueryEscape(values[name])
	}}
}

const testCredentialsJSON = `{"developer_token":"dev","client_id":"id","client_secret":"secret","refresh_token":"refresh","login_customer_id":"111-222-3333","use_proto_plus":true}`

func TestRuntimeVarSecretFetcher(t *testing.T) {
	fetcher := constantSecretFetcher(map[string]string{SecretSA360SFTPPassword: "hunter2"})

	value, err := fetcher.FetchSecret(context.Background(), SecretSA360SFTPPassword)
	if err != nil {
		t.Fatalf("FetchSecret returned error: %v", err)
	}
	if value != "hunter2" {
		t.Errorf("Expected result: hunter2 but have: %s", value)
	}

	_, err = fetcher.FetchSecret(context.Background(), SecretGoogleAdsCredentials)
	if !errors.Is(err, ErrMissingSecret) {
		t.Errorf("Expected ErrMissingSecret but have: %v", err)
	}
}

func TestParseGoogleAdsCredentials(t *testing.T) {
	creds, err := ParseGoogleAdsCredentials(testCredentialsJSON)
	if err != nil {
		t.Fatalf("ParseGoogleAdsCredentials returned error: %v", err)
	}
	expected := GoogleAdsCredentials{
		DeveloperToken:  "dev",
		ClientID:        "id",
		ClientSecret:    "secret",
		RefreshToken:    "refresh",
		LoginCustomerID: "1112223333",
	}
	if creds != expected {
		t.Errorf("Expected result: %+v but have: %+v", expected, creds)
	}

	for _, json := range []string{`not json`, `{"developer_token":"dev"}`} {
		if _, err := ParseGoogleAdsCredentials(json); !errors.Is(err, ErrMissingSecret) {
			t.Errorf("Expected ErrMissingSecret for %s but have: %v", json, err)
		}
	}
}

func TestFetchRunSecrets(t *testing.T) {
	cfg := testConfig(t, nil)
	secrets, err := FetchRunSecrets(context.Background(), constantSecretFetcher(map[string]string{
		SecretGoogleAdsCredentials: testCredentialsJSON,
		SecretSA360SFTPPassword:    "hunter2",
	}), cfg)
	if err != nil {
		t.Fatalf("FetchRunSecrets returned error: %v", err)
	}
	if secrets.SFTPPassword != "hunter2" || secrets.GoogleAds.DeveloperToken != "dev" {
		t.Errorf("Unexpected secrets: %+v", secrets)
	}
}
