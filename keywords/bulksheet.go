package keywords

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

const (
	BulksheetRowTypeKeyword = "keyword"
	BulksheetActionCreate   = "create"
)

const (
	ColumnRowType            = "Row type"
	ColumnAction             = "Action"
	ColumnAccount            = "Account"
	ColumnCampaign           = "Campaign"
	ColumnAdGroup            = "Ad group"
	ColumnKeyword            = "Keyword"
	ColumnKeywordMatchType   = "Keyword match type"
	ColumnLabel              = "Label"
	ColumnKeywordLandingPage = "Keyword landing page"
	ColumnKeywordMaxCPC      = "Keyword max CPC"
)

// BulksheetFilenameFormat yields names like saka_bulkfile_Mar_07_2024.csv.
const BulksheetFilenameFormat = "saka_bulkfile_Jan_02_2006.csv"

// BulksheetRow is one keyword to create in SA360.
type BulksheetRow struct {
	RowType     string
	Action      string
	Account     string
	Campaign    string
	AdGroup     string
	Keyword     string
	MatchType   string
	Label       string
	LandingPage string
	MaxCPC      string
}

// Bulksheet is the file uploaded to SA360.
type Bulksheet struct {
	Rows               []BulksheetRow
	IncludeLandingPage bool
	IncludeMaxCPC      bool
}

func NewBulksheet(cfg Config, rows []BulksheetRow) Bulksheet {
	return Bulksheet{
		Rows:               rows,
		IncludeLandingPage: cfg.HasLandingPage(),
		IncludeMaxCPC:      cfg.HasMaxCPC(),
	}
}

func BulksheetFilename(t time.Time) string {
	return t.Format(BulksheetFilenameFormat)
}

func (b Bulksheet) Headers() []string {
	headers := []string{
		ColumnRowType,
		ColumnAction,
		ColumnAccount,
		ColumnCampaign,
		ColumnAdGroup,
		ColumnKeyword,
		ColumnKeywordMatchType,
		ColumnLabel,
	}
	if b.IncludeLandingPage {
		headers = append(headers, ColumnKeywordLandingPage)
	}
	if b.IncludeMaxCPC {
		headers = append(headers, ColumnKeywordMaxCPC)
	}
	return headers
}

func (b Bulksheet) record(r BulksheetRow) []string {
	record := []string{r.RowType, r.Action, r.Account, r.Campaign, r.AdGroup, r.Keyword, r.MatchType, r.Label}
	if b.IncludeLandingPage {
		record = append(record, r.LandingPage)
	}
	if b.IncludeMaxCPC {
		record = append(record, r.MaxCPC)
	}
	return record
}

// FormatCSV encodes the bulksheet with a header row.
func (b Bulksheet) FormatCSV() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(b.Headers()); err != nil {
		return nil, err
	}
	for i, r := range b.Rows {
		if err := writer.Write(b.record(r)); err != nil {
			return nil, fmt.Errorf("failed to write bulksheet row %d %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
