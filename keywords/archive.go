package keywords

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
)

// ArchiveDateFormat names the per-day folder in the archive bucket.
const ArchiveDateFormat = "2006-01-02"

// BulksheetArchiver keeps a copy of every uploaded bulksheet.
type BulksheetArchiver interface {
	ArchiveBulksheet(ctx context.Context, data []byte) (string, error)
	Close() error
}

// BlobArchiver writes bulksheets to <date>/<run-id>.csv in a gocloud.dev bucket.
type BlobArchiver struct {
	*RunContext
	Bucket *blob.Bucket
}

// OpenBlobArchiver opens the bucket at cfg.Archive.BucketURL.
// The caller closes the bucket with Close.
func OpenBlobArchiver(ctx context.Context, rc *RunContext) (BulksheetArchiver, error) {
	bucket, err := blob.OpenBucket(ctx, rc.Config.Archive.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive bucket %w", err)
	}
	return &BlobArchiver{RunContext: rc, Bucket: bucket}, nil
}

func (a *BlobArchiver) ArchiveKey() string {
	return fmt.Sprintf("%s/%s.csv", a.StartedAt.Format(ArchiveDateFormat), a.RunID)
}

func (a *BlobArchiver) ArchiveBulksheet(ctx context.Context, data []byte) (string, error) {
	key := a.ArchiveKey()
	err := a.Bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: "text/csv"})
	if err != nil {
		return "", fmt.Errorf("failed to archive bulksheet %s %w", key, err)
	}
	a.Logger.Info("archived bulksheet", "key", key)
	return key, nil
}

func (a *BlobArchiver) Close() error {
	return a.Bucket.Close()
}
