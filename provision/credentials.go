package provision

import (
	"github.com/tidwall/sjson"
)

// GoogleAdsCredentialsJSON builds the google_ads_api_credentials secret.
func (s Settings) GoogleAdsCredentialsJSON() (string, error) {
	json := "{}"
	values := []struct {
		path  string
		value interface{}
	}{
		{"developer_token", s.GoogleAds.DeveloperToken},
		{"client_id", s.GoogleAds.ClientID},
		{"client_secret", s.GoogleAds.ClientSecret},
		{"refresh_token", s.GoogleAds.RefreshToken},
		{"login_customer_id", s.GoogleAds.LoginCustomerID},
		{"use_proto_plus", true},
	}
	var err error
	for _, v := range values {
		if str, ok := v.value.(string); ok && str == "" {
			continue
		}
		if json, err = sjson.Set(json, v.path, v.value); err != nil {
			return "", err
		}
	}
	return json, nil
}
