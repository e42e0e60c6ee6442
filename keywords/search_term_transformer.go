package keywords

import (
	"strings"
)

// UnknownAdGroupCTR stands in for the ad group CTR when the ad group
// report has no row for a search term's ad group.
const UnknownAdGroupCTR = -1

const (
	MatchTypeBroad  = "broad"
	MatchTypeExact  = "exact"
	MatchTypePhrase = "phrase"
)

// SearchTermTransformer decides which search terms become SA360 keywords.
type SearchTermTransformer struct {
	Thresholds  Thresholds
	AccountName string
	Label       string
	LandingPage string
	MaxCPC      string
}

// NewSearchTermTransformer fills the Account column with the SA360 account
// name, or the engine account type when no name is configured.
func NewSearchTermTransformer(cfg Config) SearchTermTransformer {
	account := cfg.SA360.AccountName
	if account == "" {
		account = cfg.SA360.AccountType
	}
	return SearchTermTransformer{
		Thresholds:  cfg.Thresholds,
		AccountName: account,
		Label:       cfg.SA360.Label,
		LandingPage: cfg.Keyword.LandingPage,
		MaxCPC:      cfg.Keyword.MaxCPC,
	}
}

// MatchTypes returns the match types to create for row, or nil when the
// search term does not qualify.
func (t SearchTermTransformer) MatchTypes(row SearchTermRow, adGroupCTR float64) []string {
	qualifies := row.Conversions > float64(t.Thresholds.Conversions) ||
		(row.CTR > adGroupCTR && row.Clicks > int64(t.Thresholds.Clicks))
	if !qualifies {
		return nil
	}
	if len(strings.Fields(row.SearchTerm)) > t.Thresholds.SearchTermTokens {
		return []string{MatchTypeBroad}
	}
	return []string{MatchTypeExact, MatchTypePhrase}
}

// AdGroupKey identifies an ad group. Ad group names are only unique
// within a campaign.
type AdGroupKey struct {
	Campaign string
	AdGroup  string
}

// AdGroupCTRs averages the CTR of each ad group.
func AdGroupCTRs(rows []AdGroupRow) map[AdGroupKey]float64 {
	sums := map[AdGroupKey]float64{}
	counts := map[AdGroupKey]int{}
	for _, r := range rows {
		key := AdGroupKey{Campaign: r.CampaignName, AdGroup: r.AdGroupName}
		sums[key] += r.CTR
		counts[key]++
	}
	result := make(map[AdGroupKey]float64, len(sums))
	for key, sum := range sums {
		result[key] = sum / float64(counts[key])
	}
	return result
}

type keywordKey struct {
	campaign  string
	adGroup   string
	keyword   string
	matchType string
}

func newKeywordKey(campaign, adGroup, keyword, matchType string) keywordKey {
	return keywordKey{
		campaign:  campaign,
		adGroup:   adGroup,
		keyword:   strings.ToLower(strings.Join(strings.Fields(keyword), " ")),
		matchType: strings.ToLower(matchType),
	}
}

// Transform turns the search terms report into bulksheet rows. Keywords the
// ad group already has and repeats within the report are left out.
func (t SearchTermTransformer) Transform(reports Reports) []BulksheetRow {
	ctrs := AdGroupCTRs(reports.AdGroups)

	existing := map[keywordKey]bool{}
	for _, k := range reports.Keywords {
		existing[newKeywordKey(k.CampaignName, k.AdGroupName, k.Keyword, k.MatchType)] = true
	}

	seen := map[keywordKey]bool{}
	var result []BulksheetRow
	for _, row := range reports.SearchTerms {
		ctr, ok := ctrs[AdGroupKey{Campaign: row.CampaignName, AdGroup: row.AdGroupName}]
		if !ok {
			ctr = UnknownAdGroupCTR
		}
		for _, matchType := range t.MatchTypes(row, ctr) {
			key := newKeywordKey(row.CampaignName, row.AdGroupName, row.SearchTerm, matchType)
			if existing[key] || seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, BulksheetRow{
				RowType:     BulksheetRowTypeKeyword,
				Action:      BulksheetActionCreate,
				Account:     t.AccountName,
				Campaign:    row.CampaignName,
				AdGroup:     row.AdGroupName,
				Keyword:     row.SearchTerm,
				MatchType:   matchType,
				Label:       t.Label,
				LandingPage: t.LandingPage,
				MaxCPC:      t.MaxCPC,
			})
		}
	}
	return result
}
