package keywords

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	SuccessMessageFormat = "Success: Uploaded bulksheet with %d row(s)."
	NoKeywordsMessage    = "Finished: No keywords found to upload to SA 360."
)

// SearchTermReporter fetches the reports a run works from.
type SearchTermReporter interface {
	FetchReports(ctx context.Context) (Reports, error)
}

// Trigger describes what started a run.
type Trigger struct {
	Type string
	ID   string
}

// Pipeline extracts search terms from Google Ads and uploads qualifying ones
// to SA360. Nil factories fall back to the production implementations.
// RecordRequests dumps every Google Ads request and response under
// testdata/.requests/<customer id>/googleads.
type Pipeline struct {
	Logger         *slog.Logger
	ConfigOptions  []ConfigOption
	Recorder       RunRecorder
	RecordRequests bool

	NewSecretFetcher func(cfg Config) SecretFetcher
	NewReporter      func(rc *RunContext, creds GoogleAdsCredentials) SearchTermReporter
	NewUploader      func(rc *RunContext, password string) BulksheetUploader
	OpenArchiver     func(ctx context.Context, rc *RunContext) (BulksheetArchiver, error)
}

func NewPipeline(logger *slog.Logger, opts ...ConfigOption) *Pipeline {
	return &Pipeline{Logger: logger, ConfigOptions: opts}
}

func (p *Pipeline) withDefaults() Pipeline {
	result := *p
	if result.Logger == nil {
		result.Logger = slog.Default()
	}
	if result.Recorder == nil {
		result.Recorder = noopRecorder{}
	}
	if result.NewSecretFetcher == nil {
		result.NewSecretFetcher = func(cfg Config) SecretFetcher {
			return NewSecretFetcher(cfg)
		}
	}
	if result.NewReporter == nil {
		result.NewReporter = func(rc *RunContext, creds GoogleAdsCredentials) SearchTermReporter {
			return NewGoogleAdsFetcher(rc, creds)
		}
	}
	if result.NewUploader == nil {
		result.NewUploader = func(rc *RunContext, password string) BulksheetUploader {
			return NewSA360Uploader(rc, password)
		}
	}
	if result.OpenArchiver == nil {
		result.OpenArchiver = OpenBlobArchiver
	}
	return result
}

// ExtractAndUploadKeywords runs the pipeline once and returns the message
// reported back to the caller.
func (p *Pipeline) ExtractAndUploadKeywords(ctx context.Context, trigger Trigger) (string, error) {
	deps := p.withDefaults()
	start := time.Now()

	message, count, err := deps.run(ctx, trigger)
	outcome := RunOutcomeSuccess
	switch {
	case err != nil:
		outcome = RunOutcomeError
	case count == 0:
		outcome = RunOutcomeNoKeywords
	}
	deps.Recorder.ObserveRun(outcome, count, time.Since(start))
	return message, err
}

func (p Pipeline) run(ctx context.Context, trigger Trigger) (string, int, error) {
	cfg, err := LoadConfigFromEnvironment(p.ConfigOptions...)
	if err != nil {
		p.Logger.Error("invalid configuration", "error", err)
		return "", 0, err
	}
	rc := NewRunContext(cfg, p.Logger, trigger.Type, trigger.ID)
	rc.RecordRequests = p.RecordRequests
	rc.Logger.Info("starting keyword run", "customer_id", cfg.GoogleAds.CustomerID, "campaign_ids", cfg.GoogleAds.CampaignIDs)

	secrets, err := FetchRunSecrets(ctx, p.NewSecretFetcher(cfg), cfg)
	if err != nil {
		rc.Logger.Error("failed to fetch secrets", "error", err)
		return "", 0, err
	}

	reports, err := p.NewReporter(rc, secrets.GoogleAds).FetchReports(ctx)
	if err != nil {
		return "", 0, err
	}

	rows := NewSearchTermTransformer(cfg).Transform(reports)
	rc.Logger.Info("transformed search terms", "search_terms", len(reports.SearchTerms), "keywords", len(rows))
	if len(rows) == 0 {
		rc.Logger.Info(NoKeywordsMessage)
		return NoKeywordsMessage, 0, nil
	}

	data, err := NewBulksheet(cfg, rows).FormatCSV()
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode bulksheet %w", err)
	}
	filename := BulksheetFilename(rc.StartedAt)
	if err := p.NewUploader(rc, secrets.SFTPPassword).UploadBulksheet(ctx, filename, data); err != nil {
		rc.Logger.Error("failed to upload bulksheet", "file", filename, "error", err)
		return "", 0, err
	}

	if cfg.Archive.BucketURL != "" {
		p.archive(ctx, rc, data)
	}

	message := fmt.Sprintf(SuccessMessageFormat, len(rows))
	rc.Logger.Info(message, "file", filename)
	return message, len(rows), nil
}

// archive failures are logged only, the bulksheet has already reached SA360.
func (p Pipeline) archive(ctx context.Context, rc *RunContext, data []byte) {
	archiver, err := p.OpenArchiver(ctx, rc)
	if err != nil {
		rc.Logger.Warn("failed to open archive", "error", err)
		return
	}
	defer archiver.Close()
	if _, err := archiver.ArchiveBulksheet(ctx, data); err != nil {
		rc.Logger.Warn("failed to archive bulksheet", "error", err)
	}
}
