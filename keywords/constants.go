package keywords

import "errors"

// Environment variables read by the cloud function.
const (
	EnvGCPProjectID              = "GCP_PROJECT_ID"
	EnvCustomerID                = "CUSTOMER_ID"
	EnvCampaignIDs               = "CAMPAIGN_IDS"
	EnvGoogleAdsAPIVersion       = "GADS_API_VERSION"
	EnvSA360SFTPHostname         = "SA360_SFTP_HOSTNAME"
	EnvSA360SFTPPort             = "SA360_SFTP_PORT"
	EnvSA360SFTPUsername         = "SA360_SFTP_USERNAME"
	EnvSA360AccountName          = "SA360_ACCOUNT_NAME"
	EnvSA360AccountType          = "SA360_ACCOUNT_TYPE"
	EnvSA360Label                = "SA360_LABEL"
	EnvClicksThreshold           = "CLICKS_THRESHOLD"
	EnvConversionsThreshold      = "CONVERSIONS_THRESHOLD"
	EnvSearchTermTokensThreshold = "SEARCH_TERMS_TOKENS_THRESHOLD"
	EnvKeywordLandingPage        = "KEYWORD_LANDING_PAGE"
	EnvKeywordMaxCPC             = "KEYWORD_MAX_CPC"
	EnvArchiveBucketURL          = "ARCHIVE_BUCKET_URL"
	EnvSettingsFile              = "SAKA_SETTINGS_FILE"
)

// Secret Manager secret names.
const (
	SecretGoogleAdsCredentials = "google_ads_api_credentials"
	SecretSA360SFTPPassword    = "sa360_sftp_password"
)

const (
	DefaultSA360SFTPHostname = "partnerupload.google.com"
	DefaultSA360SFTPPort     = 19321
)

var (
	ErrInvalidSetting = errors.New("invalid setting")
	ErrMissingSecret  = errors.New("missing secret")
	ErrGoogleAds      = errors.New("google ads api error")
	ErrUpload         = errors.New("sa360 upload error")
)
