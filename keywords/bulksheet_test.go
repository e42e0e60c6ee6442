package keywords

import (
	"testing"
	"time"
)

func TestBulksheetFilename(t *testing.T) {
	have := BulksheetFilename(time.Date(2024, time.March, 7, 12, 0, 0, 0, time.UTC))
	expected := "saka_bulkfile_Mar_07_2024.csv"
	if have != expected {
		t.Errorf("Expected result: %s but have: %s", expected, have)
	}
}

func TestBulksheet_FormatCSV(t *testing.T) {
	rows := []BulksheetRow{
		{RowType: "keyword", Action: "create", Account: "Test Account", Campaign: "Footwear", AdGroup: "Shoes", Keyword: "red shoes", MatchType: "exact", Label: "SA_add", LandingPage: "https://example.com", MaxCPC: "1.5"},
		{RowType: "keyword", Action: "create", Account: "Test Account", Campaign: "Foot, wear", AdGroup: "Shoes", Keyword: "red shoes", MatchType: "phrase", Label: "SA_add", LandingPage: "https://example.com", MaxCPC: "1.5"},
	}

	tests := []struct {
		name     string
		sheet    Bulksheet
		expected string
	}{
		{
			name:  "required columns",
			sheet: Bulksheet{Rows: rows},
			expected: "Row type,Action,Account,Campaign,Ad group,Keyword,Keyword match type,Label\n" +
				"keyword,create,Test Account,Footwear,Shoes,red shoes,exact,SA_add\n" +
				"keyword,create,Test Account,\"Foot, wear\",Shoes,red shoes,phrase,SA_add\n",
		},
		{
			name:  "optional columns",
			sheet: Bulksheet{Rows: rows[:1], IncludeLandingPage: true, IncludeMaxCPC: true},
			expected: "Row type,Action,Account,Campaign,Ad group,Keyword,Keyword match type,Label,Keyword landing page,Keyword max CPC\n" +
				"keyword,create,Test Account,Footwear,Shoes,red shoes,exact,SA_add,https://example.com,1.5\n",
		},
		{
			name:     "max cpc only",
			sheet:    Bulksheet{IncludeMaxCPC: true},
			expected: "Row type,Action,Account,Campaign,Ad group,Keyword,Keyword match type,Label,Keyword max CPC\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.sheet.FormatCSV()
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.expected {
				t.Errorf("Expected result: %q but have: %q", tt.expected, string(b))
			}
		})
	}
}
