package keywords

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	gosync "sync"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const CustomerIDLength = 10

// GoogleOAuthTokenURL is the token endpoint used to exchange the refresh token.
const GoogleOAuthTokenURL = "https://oauth2.googleapis.com/token"

// GoogleAdsAPIError is a non-2xx response from the Google Ads API.
type GoogleAdsAPIError struct {
	StatusCode int
	Status     string
	Message    string
	RetryAfter time.Duration
}

func (e *GoogleAdsAPIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("google ads api returned %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("google ads api returned %d", e.StatusCode)
}

// Transient reports whether the request may succeed when repeated.
func (e *GoogleAdsAPIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ValidateCustomerID checks that id is exactly ten digits.
func ValidateCustomerID(id string) error {
	if len(id) != CustomerIDLength || !digitsPattern.MatchString(id) {
		return fmt.Errorf("%w: customer id should be a 10-digit string: %q", ErrGoogleAds, id)
	}
	return nil
}

// GoogleAdsFetcher fetches reports from the Google Ads API searchStream endpoint.
// It embeds *RunContext for shared run configuration.
type GoogleAdsFetcher struct {
	*RunContext
	Credentials GoogleAdsCredentials
	TokenSource oauth2.TokenSource
	RetryPolicy RetryPolicy
}

// NewGoogleAdsFetcher returns a fetcher that refreshes access tokens from the
// credentials' refresh token.
func NewGoogleAdsFetcher(rc *RunContext, creds GoogleAdsCredentials) *GoogleAdsFetcher {
	oauthConfig := oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  GoogleOAuthTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: HTTPRequestTimeout})
	return &GoogleAdsFetcher{
		RunContext:  rc,
		Credentials: creds,
		TokenSource: oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}),
		RetryPolicy: DefaultRetryPolicy(),
	}
}

// GoogleAdsAPIBuilder returns a new requests.Builder configured for the Google Ads API.
func (g *GoogleAdsFetcher) GoogleAdsAPIBuilder() *requests.Builder {
	apiBuilder := requests.
		URL(g.Config.GoogleAds.Endpoint).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
	if g.RecordRequests {
		apiBuilder = apiBuilder.Transport(requests.Record(nil, fmt.Sprintf("testdata/.requests/%s/googleads", g.Config.GoogleAds.CustomerID)))
	}
	return apiBuilder
}

// checkGoogleAdsStatus turns non-2xx responses into *GoogleAdsAPIError.
func checkGoogleAdsStatus(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	apiErr := &GoogleAdsAPIError{StatusCode: res.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	// searchStream wraps errors in an array, other methods do not
	parsed := gjson.ParseBytes(body)
	if parsed.IsArray() {
		parsed = parsed.Get("0")
	}
	apiErr.Status = parsed.Get("error.status").String()
	apiErr.Message = parsed.Get("error.message").String()
	if secs, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}

func (g *GoogleAdsFetcher) searchStream(ctx context.Context, report Report) ([]Source, error) {
	customerID := g.Config.GoogleAds.CustomerID
	if err := ValidateCustomerID(customerID); err != nil {
		return nil, err
	}
	query := report.Query(g.Config.GoogleAds.CampaignIDs)

	var json string
	err := Retry(ctx, g.RetryPolicy, func() error {
		token, err := g.TokenSource.Token()
		if err != nil {
			return fmt.Errorf("failed to refresh access token %w", err)
		}
		builder := g.GoogleAdsAPIBuilder().
			Pathf("/%s/customers/%s/googleAds:searchStream", g.Config.GoogleAds.APIVersion, customerID).
			Bearer(token.AccessToken).
			Header("developer-token", g.Credentials.DeveloperToken).
			BodyJSON(map[string]string{"query": query}).
			AddValidator(checkGoogleAdsStatus).
			ToString(&json)
		if g.Credentials.LoginCustomerID != "" {
			builder = builder.Header("login-customer-id", g.Credentials.LoginCustomerID)
		}
		err = builder.Fetch(ctx)
		if err == nil {
			return nil
		}
		var apiErr *GoogleAdsAPIError
		if errors.As(err, &apiErr) && apiErr.Transient() {
			g.Logger.Warn("google ads request failed, retrying", "report", report.Name, "status_code", apiErr.StatusCode)
			return &RetryableError{Err: err, RetryAfter: apiErr.RetryAfter}
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && ctx.Err() == nil {
			g.Logger.Warn("google ads request failed, retrying", "report", report.Name, "error", err)
			return &RetryableError{Err: err}
		}
		return err
	})
	if err != nil {
		g.Logger.Error("failed to fetch report", "report", report.Name, "customer_id", customerID,
			"campaign_ids", g.Config.GoogleAds.CampaignIDs, "error", err)
		return nil, fmt.Errorf("%w: customer %s campaigns %v failed to get %s report: %w",
			ErrGoogleAds, customerID, g.Config.GoogleAds.CampaignIDs, report.Name, err)
	}
	if !gjson.Valid(json) {
		g.Logger.Error("invalid google ads response", "report", report.Name, "body", json)
		return nil, fmt.Errorf("%w: invalid json response for %s report", ErrGoogleAds, report.Name)
	}
	rows := parseSearchStream(json)
	g.Logger.Info("fetched report", "report", report.Name, "rows", len(rows))
	return rows, nil
}

// FetchSearchTerms fetches unreviewed search terms from the last 30 days.
func (g *GoogleAdsFetcher) FetchSearchTerms(ctx context.Context) ([]SearchTermRow, error) {
	sources, err := g.searchStream(ctx, SearchTermsReport)
	if err != nil {
		return nil, err
	}
	result := make([]SearchTermRow, len(sources))
	for i, s := range sources {
		result[i] = searchTermRowFrom(s)
	}
	return result, nil
}

// FetchAdGroups fetches the CTR of each ad group over the last 30 days.
func (g *GoogleAdsFetcher) FetchAdGroups(ctx context.Context) ([]AdGroupRow, error) {
	sources, err := g.searchStream(ctx, AdGroupsReport)
	if err != nil {
		return nil, err
	}
	result := make([]AdGroupRow, len(sources))
	for i, s := range sources {
		result[i] = adGroupRowFrom(s)
	}
	return result, nil
}

// FetchKeywords fetches the keywords already present in each ad group.
func (g *GoogleAdsFetcher) FetchKeywords(ctx context.Context) ([]KeywordRow, error) {
	sources, err := g.searchStream(ctx, KeywordsReport)
	if err != nil {
		return nil, err
	}
	result := make([]KeywordRow, len(sources))
	for i, s := range sources {
		result[i] = keywordRowFrom(s)
	}
	return result, nil
}

// FetchReports fetches the three reports concurrently.
func (g *GoogleAdsFetcher) FetchReports(ctx context.Context) (Reports, error) {
	var result Reports
	var wg gosync.WaitGroup
	var errSearchTerms, errAdGroups, errKeywords error

	wg.Add(3)
	go func() {
		defer wg.Done()
		result.SearchTerms, errSearchTerms = g.FetchSearchTerms(ctx)
	}()
	go func() {
		defer wg.Done()
		result.AdGroups, errAdGroups = g.FetchAdGroups(ctx)
	}()
	go func() {
		defer wg.Done()
		result.Keywords, errKeywords = g.FetchKeywords(ctx)
	}()
	wg.Wait()

	if err := errors.Join(errSearchTerms, errAdGroups, errKeywords); err != nil {
		return result, fmt.Errorf("google ads errors: %w", err)
	}
	return result, nil
}
