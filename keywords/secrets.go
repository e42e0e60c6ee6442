package keywords

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"gocloud.dev/runtimevar"
	_ "gocloud.dev/runtimevar/constantvar"
	_ "gocloud.dev/runtimevar/gcpsecretmanager"
)

// SecretFetcher reads the latest value of a named secret.
type SecretFetcher interface {
	FetchSecret(ctx context.Context, name string) (string, error)
}

// RuntimeVarSecretFetcher reads secrets through gocloud.dev/runtimevar.
// URLFor maps a secret name to a runtimevar URL.
type RuntimeVarSecretFetcher struct {
	URLFor func(name string) string
}

// NewSecretFetcher returns a fetcher for the secrets of the configured project.
func NewSecretFetcher(cfg Config) RuntimeVarSecretFetcher {
	return RuntimeVarSecretFetcher{URLFor: cfg.SecretURLFor}
}

func (f RuntimeVarSecretFetcher) FetchSecret(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, SecretFetchTimeout)
	defer cancel()

	v, err := runtimevar.OpenVariable(ctx, f.URLFor(name))
	if err != nil {
		return "", fmt.Errorf("%w: failed to open secret %s %w", ErrMissingSecret, name, err)
	}
	defer v.Close()

	snapshot, err := v.Latest(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read secret %s %w", ErrMissingSecret, name, err)
	}
	var value string
	switch val := snapshot.Value.(type) {
	case string:
		value = val
	case []byte:
		value = string(val)
	default:
		return "", fmt.Errorf("%w: secret %s has unexpected type %T", ErrMissingSecret, name, snapshot.Value)
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: secret %s is empty", ErrMissingSecret, name)
	}
	return value, nil
}

// GoogleAdsCredentials is the OAuth bundle stored in the google_ads_api_credentials secret.
type GoogleAdsCredentials struct {
	DeveloperToken  string
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	LoginCustomerID string
}

// ParseGoogleAdsCredentials reads the JSON credential bundle.
func ParseGoogleAdsCredentials(json string) (GoogleAdsCredentials, error) {
	var result GoogleAdsCredentials
	if !gjson.Valid(json) {
		return result, fmt.Errorf("%w: %s is not valid json", ErrMissingSecret, SecretGoogleAdsCredentials)
	}
	values := gjson.GetMany(json, "developer_token", "client_id", "client_secret", "refresh_token", "login_customer_id")
	result.DeveloperToken = values[0].String()
	result.ClientID = values[1].String()
	result.ClientSecret = values[2].String()
	result.RefreshToken = values[3].String()
	result.LoginCustomerID = strings.ReplaceAll(values[4].String(), "-", "")

	var errs []error
	for i, k := range []string{"developer_token", "client_id", "client_secret", "refresh_token"} {
		if values[i].String() == "" {
			errs = append(errs, fmt.Errorf("%w: %s is missing %s", ErrMissingSecret, SecretGoogleAdsCredentials, k))
		}
	}
	return result, errors.Join(errs...)
}

// RunSecrets holds the secrets a run needs.
type RunSecrets struct {
	GoogleAds    GoogleAdsCredentials
	SFTPPassword string
}

// FetchRunSecrets reads both secrets named in cfg.
func FetchRunSecrets(ctx context.Context, f SecretFetcher, cfg Config) (RunSecrets, error) {
	var result RunSecrets
	creds, err := f.FetchSecret(ctx, cfg.GoogleAds.CredentialsSecret)
	if err != nil {
		return result, err
	}
	if result.GoogleAds, err = ParseGoogleAdsCredentials(creds); err != nil {
		return result, err
	}
	if result.SFTPPassword, err = f.FetchSecret(ctx, cfg.SA360.PasswordSecret); err != nil {
		return result, err
	}
	return result, nil
}
