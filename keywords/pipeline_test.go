package keywords

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type fakeSecretFetcher map[string]string

func (f fakeSecretFetcher) FetchSecret(ctx context.Context, name string) (string, error) {
	v, ok := f[name]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: secret %s is empty", ErrMissingSecret, name)
	}
	return v, nil
}

type fakeReporter struct {
	reports Reports
	err     error
}

func (f fakeReporter) FetchReports(ctx context.Context) (Reports, error) {
	return f.reports, f.err
}

type fakeUploader struct {
	uploads  map[string]string
	password string
	err      error
}

func (f *fakeUploader) UploadBulksheet(ctx context.Context, filename string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.uploads[filename] = string(data)
	return nil
}

type fakeArchiver struct {
	archived []string
	closed   bool
}

func (f *fakeArchiver) ArchiveBulksheet(ctx context.Context, data []byte) (string, error) {
	f.archived = append(f.archived, string(data))
	return "key.csv", nil
}

func (f *fakeArchiver) Close() error {
	f.closed = true
	return nil
}

type fakeRecorder struct {
	outcomes []string
	keywords int
}

func (f *fakeRecorder) ObserveRun(outcome string, keywords int, duration time.Duration) {
	f.outcomes = append(f.outcomes, outcome)
	f.keywords += keywords
}

type pipelineFixture struct {
	pipeline *Pipeline
	uploader *fakeUploader
	archiver *fakeArchiver
	recorder *fakeRecorder
}

func newPipelineFixture(env map[string]string, secrets fakeSecretFetcher, reporter fakeReporter) pipelineFixture {
	f := pipelineFixture{
		uploader: &fakeUploader{uploads: map[string]string{}},
		archiver: &fakeArchiver{},
		recorder: &fakeRecorder{},
	}
	p := NewPipeline(nil, ConfigWithEnvVar(testEnvVar(env)))
	p.Recorder = f.recorder
	p.NewSecretFetcher = func(cfg Config) SecretFetcher { return secrets }
	p.NewReporter = func(rc *RunContext, creds GoogleAdsCredentials) SearchTermReporter { return reporter }
	p.NewUploader = func(rc *RunContext, password string) BulksheetUploader {
		f.uploader.password = password
		return f.uploader
	}
	p.OpenArchiver = func(ctx context.Context, rc *RunContext) (BulksheetArchiver, error) {
		return f.archiver, nil
	}
	f.pipeline = p
	return f
}

func testSecrets() fakeSecretFetcher {
	return fakeSecretFetcher{
		SecretGoogleAdsCredentials: testCredentialsJSON,
		SecretSA360SFTPPassword:    "hunter2",
	}
}

var testQualifyingReports = Reports{
	SearchTerms: []SearchTermRow{
		{SearchTerm: "red shoes", Conversions: 1, AdGroupName: "Shoes", CampaignName: "Footwear"},
	},
}

func TestPipeline_UploadsKeywords(t *testing.T) {
	f := newPipelineFixture(map[string]string{EnvArchiveBucketURL: "mem://"}, testSecrets(), fakeReporter{reports: testQualifyingReports})

	message, err := f.pipeline.ExtractAndUploadKeywords(context.Background(), Trigger{Type: "test"})
	if err != nil {
		t.Fatalf("ExtractAndUploadKeywords returned error: %v", err)
	}
	if message != "Success: Uploaded bulksheet with 2 row(s)." {
		t.Errorf("Unexpected message: %s", message)
	}
	if len(f.uploader.uploads) != 1 {
		t.Fatalf("Expected one upload but have: %d", len(f.uploader.uploads))
	}
	if f.uploader.password != "hunter2" {
		t.Errorf("Expected sftp password from secret but have: %s", f.uploader.password)
	}
	filename := BulksheetFilename(time.Now())
	csv, ok := f.uploader.uploads[filename]
	if !ok {
		t.Fatalf("Expected upload named %s but have: %v", filename, f.uploader.uploads)
	}
	if !strings.Contains(csv, "keyword,create,Test Account,Footwear,Shoes,red shoes,exact,SA_add\n") {
		t.Errorf("Unexpected bulksheet: %s", csv)
	}
	if len(f.archiver.archived) != 1 || f.archiver.archived[0] != csv || !f.archiver.closed {
		t.Errorf("Expected archived copy of the bulksheet")
	}
	if len(f.recorder.outcomes) != 1 || f.recorder.outcomes[0] != RunOutcomeSuccess || f.recorder.keywords != 2 {
		t.Errorf("Unexpected recorded outcomes: %+v", f.recorder)
	}
}

func TestPipeline_NoKeywords(t *testing.T) {
	reports := Reports{SearchTerms: []SearchTermRow{{SearchTerm: "red shoes", AdGroupName: "Shoes"}}}
	f := newPipelineFixture(nil, testSecrets(), fakeReporter{reports: reports})

	message, err := f.pipeline.ExtractAndUploadKeywords(context.Background(), Trigger{Type: "test"})
	if err != nil {
		t.Fatalf("ExtractAndUploadKeywords returned error: %v", err)
	}
	if message != NoKeywordsMessage {
		t.Errorf("Expected result: %s but have: %s", NoKeywordsMessage, message)
	}
	if len(f.uploader.uploads) != 0 {
		t.Errorf("Expected no uploads but have: %d", len(f.uploader.uploads))
	}
	if len(f.archiver.archived) != 0 {
		t.Error("Expected nothing archived")
	}
	if f.recorder.outcomes[0] != RunOutcomeNoKeywords {
		t.Errorf("Unexpected outcome: %s", f.recorder.outcomes[0])
	}
}

func TestPipeline_Errors(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		secrets  fakeSecretFetcher
		reporter fakeReporter
		upload   error
		expected error
	}{
		{
			name:     "invalid settings",
			env:      map[string]string{EnvClicksThreshold: "many"},
			secrets:  testSecrets(),
			reporter: fakeReporter{reports: testQualifyingReports},
			expected: ErrInvalidSetting,
		},
		{
			name:     "missing credentials secret",
			secrets:  fakeSecretFetcher{SecretSA360SFTPPassword: "hunter2"},
			reporter: fakeReporter{reports: testQualifyingReports},
			expected: ErrMissingSecret,
		},
		{
			name:     "missing sftp password",
			secrets:  fakeSecretFetcher{SecretGoogleAdsCredentials: testCredentialsJSON},
			reporter: fakeReporter{reports: testQualifyingReports},
			expected: ErrMissingSecret,
		},
		{
			name:     "google ads failure",
			secrets:  testSecrets(),
			reporter: fakeReporter{err: fmt.Errorf("%w: quota", ErrGoogleAds)},
			expected: ErrGoogleAds,
		},
		{
			name:     "upload failure",
			secrets:  testSecrets(),
			reporter: fakeReporter{reports: testQualifyingReports},
			upload:   fmt.Errorf("%w: connection refused", ErrUpload),
			expected: ErrUpload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(tt.env, tt.secrets, tt.reporter)
			f.uploader.err = tt.upload

			_, err := f.pipeline.ExtractAndUploadKeywords(context.Background(), Trigger{Type: "test"})
			if !errors.Is(err, tt.expected) {
				t.Fatalf("Expected %v but have: %v", tt.expected, err)
			}
			if len(f.uploader.uploads) != 0 {
				t.Errorf("Expected no uploads but have: %d", len(f.uploader.uploads))
			}
			if f.recorder.outcomes[0] != RunOutcomeError {
				t.Errorf("Unexpected outcome: %s", f.recorder.outcomes[0])
			}
		})
	}
}

func TestPipeline_RecordRequests(t *testing.T) {
	for _, record := range []bool{false, true} {
		f := newPipelineFixture(nil, testSecrets(), fakeReporter{reports: testQualifyingReports})
		f.pipeline.RecordRequests = record
		var have bool
		f.pipeline.NewReporter = func(rc *RunContext, creds GoogleAdsCredentials) SearchTermReporter {
			have = rc.RecordRequests
			return fakeReporter{reports: testQualifyingReports}
		}
		if _, err := f.pipeline.ExtractAndUploadKeywords(context.Background(), Trigger{Type: "test"}); err != nil {
			t.Fatalf("ExtractAndUploadKeywords returned error: %v", err)
		}
		if have != record {
			t.Errorf("Expected result: %t but have: %t", record, have)
		}
	}
}
