package keywords

import (
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/tidwall/gjson"
)

const ReportDateRange = "LAST_30_DAYS"

// ReportField is a GAQL field name such as search_term_view.search_term.
type ReportField string

// JSONPath converts the GAQL name into the path of the field in a REST
// searchStream result, e.g. search_term_view.search_term becomes
// searchTermView.searchTerm.
func (f ReportField) JSONPath() string {
	parts := strings.Split(string(f), ".")
	for i, p := range parts {
		parts[i] = strcase.ToLowerCamel(p)
	}
	return strings.Join(parts, ".")
}

const (
	FieldSearchTerm         ReportField = "search_term_view.search_term"
	FieldSearchTermStatus   ReportField = "search_term_view.status"
	FieldConversions        ReportField = "metrics.conversions"
	FieldClicks             ReportField = "metrics.clicks"
	FieldCTR                ReportField = "metrics.ctr"
	FieldAdGroupName        ReportField = "ad_group.name"
	FieldCampaignID         ReportField = "campaign.id"
	FieldCampaignName       ReportField = "campaign.name"
	FieldKeywordInfoText    ReportField = "segments.keyword.info.text"
	FieldCriterionText      ReportField = "ad_group_criterion.keyword.text"
	FieldCriterionMatchType ReportField = "ad_group_criterion.keyword.match_type"
)

// Report describes one GAQL query.
type Report struct {
	Name       string
	Resource   string
	Fields     []ReportField
	Conditions []string
}

var (
	SearchTermsReport = Report{
		Name:     "search terms",
		Resource: "search_term_view",
		Fields: []ReportField{
			FieldSearchTerm,
			FieldSearchTermStatus,
			FieldConversions,
			FieldClicks,
			FieldAdGroupName,
			FieldCampaignID,
			FieldCampaignName,
			FieldCTR,
			FieldKeywordInfoText,
		},
		Conditions: []string{
			"segments.date DURING " + ReportDateRange,
			"search_term_view.status IN ('NONE', 'UNKNOWN')",
		},
	}

	AdGroupsReport = Report{
		Name:       "ad groups",
		Resource:   "ad_group",
		Fields:     []ReportField{FieldAdGroupName, FieldCampaignName, FieldCTR},
		Conditions: []string{"segments.date DURING " + ReportDateRange},
	}

	KeywordsReport = Report{
		Name:       "keywords",
		Resource:   "ad_group_criterion",
		Fields:     []ReportField{FieldAdGroupName, FieldCampaignName, FieldCriterionText, FieldCriterionMatchType},
		Conditions: []string{"ad_group_criterion.type = KEYWORD"},
	}
)

// Query renders the GAQL statement, restricted to campaignIDs when any are given.
func (r Report) Query(campaignIDs []string) string {
	fields := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		fields[i] = string(f)
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(fields, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(r.Resource)
	if len(r.Conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(r.Conditions, " AND "))
	}
	if len(campaignIDs) > 0 {
		if len(r.Conditions) > 0 {
			sb.WriteString(" AND ")
		} else {
			sb.WriteString(" WHERE ")
		}
		sb.WriteString("campaign.id IN (")
		sb.WriteString(strings.Join(campaignIDs, ","))
		sb.WriteString(")")
	}
	return sb.String()
}

// Source wraps a single searchStream result row.
type Source struct {
	data gjson.Result
}

func (s Source) StringFor(f ReportField) (string, bool) {
	result := s.data.Get(f.JSONPath())
	return result.String(), result.Exists() && (result.Value() != nil)
}

// IntFor reads int64 metrics, which the REST API encodes as JSON strings.
func (s Source) IntFor(f ReportField) (int64, bool) {
	result := s.data.Get(f.JSONPath())
	return result.Int(), result.Exists() && (result.Value() != nil)
}

func (s Source) FloatFor(f ReportField) (float64, bool) {
	result := s.data.Get(f.JSONPath())
	return result.Float(), result.Exists() && (result.Value() != nil)
}

// SearchTermRow is one row of the search terms report.
type SearchTermRow struct {
	SearchTerm   string
	Status       string
	Conversions  float64
	Clicks       int64
	AdGroupName  string
	CampaignID   string
	CampaignName string
	CTR          float64
	KeywordText  string
}

func searchTermRowFrom(s Source) SearchTermRow {
	var row SearchTermRow
	row.SearchTerm, _ = s.StringFor(FieldSearchTerm)
	row.Status, _ = s.StringFor(FieldSearchTermStatus)
	row.Conversions, _ = s.FloatFor(FieldConversions)
	row.Clicks, _ = s.IntFor(FieldClicks)
	row.AdGroupName, _ = s.StringFor(FieldAdGroupName)
	row.CampaignID, _ = s.StringFor(FieldCampaignID)
	row.CampaignName, _ = s.StringFor(FieldCampaignName)
	row.CTR, _ = s.FloatFor(FieldCTR)
	row.KeywordText, _ = s.StringFor(FieldKeywordInfoText)
	return row
}

// AdGroupRow is one row of the ad group report.
type AdGroupRow struct {
	AdGroupName  string
	CampaignName string
	CTR          float64
}

func adGroupRowFrom(s Source) AdGroupRow {
	var row AdGroupRow
	row.AdGroupName, _ = s.StringFor(FieldAdGroupName)
	row.CampaignName, _ = s.StringFor(FieldCampaignName)
	row.CTR, _ = s.FloatFor(FieldCTR)
	return row
}

// KeywordRow is a keyword that already exists in an ad group.
type KeywordRow struct {
	AdGroupName  string
	CampaignName string
	Keyword      string
	MatchType    string
}

func keywordRowFrom(s Source) KeywordRow {
	var row KeywordRow
	row.AdGroupName, _ = s.StringFor(FieldAdGroupName)
	row.CampaignName, _ = s.StringFor(FieldCampaignName)
	row.Keyword, _ = s.StringFor(FieldCriterionText)
	matchType, _ := s.StringFor(FieldCriterionMatchType)
	row.MatchType = strings.ToLower(matchType)
	return row
}

// Reports bundles the three reports a run works from.
type Reports struct {
	SearchTerms []SearchTermRow
	AdGroups    []AdGroupRow
	Keywords    []KeywordRow
}

// parseSearchStream flattens the batches of a searchStream response.
func parseSearchStream(json string) []Source {
	var result []Source
	for _, batch := range gjson.Parse(json).Array() {
		for _, row := range batch.Get("results").Array() {
			result = append(result, Source{data: row})
		}
	}
	return result
}
