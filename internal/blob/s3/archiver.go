package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alanyoungcy/flipfeed/internal/domain"
)

// SnapshotArchiver implements domain.SnapshotArchiver. Raw pool snapshots
// are written one object per capture under
// snapshots/{pair}/{RFC3339Nano timestamp}.json so a replay tool can list a
// pair's prefix and walk captures in time order.
type SnapshotArchiver struct {
	client *s3.Client
	bucket string
}

// NewSnapshotArchiver creates a SnapshotArchiver that writes to the given
// client's configured bucket.
func NewSnapshotArchiver(c *Client) *SnapshotArchiver {
	return &SnapshotArchiver{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

func snapshotKey(pair string, at time.Time) string {
	return "snapshots/" + pair + "/" + at.UTC().Format(time.RFC3339Nano) + ".json"
}

// ArchiveSnapshot uploads one raw snapshot payload.
func (a *SnapshotArchiver) ArchiveSnapshot(ctx context.Context, pair string, raw []byte, at time.Time) error {
	key := snapshotKey(pair, at)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: archive snapshot %s: %w", key, err)
	}
	return nil
}

// ReadSnapshot fetches one archived snapshot payload by pair and capture
// time. It returns domain.ErrNotFound when no capture exists at that time.
func (a *SnapshotArchiver) ReadSnapshot(ctx context.Context, pair string, at time.Time) ([]byte, error) {
	key := snapshotKey(pair, at)
	output, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3blob: read snapshot %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3blob: read snapshot %s: %w", key, err)
	}
	defer output.Body.Close()

	raw, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("s3blob: read snapshot body %s: %w", key, err)
	}
	return raw, nil
}

// ListSnapshots returns the capture times archived for a pair, following
// pagination until the prefix is exhausted. Keys that do not parse as
// capture timestamps are skipped.
func (a *SnapshotArchiver) ListSnapshots(ctx context.Context, pair string) ([]time.Time, error) {
	prefix := "snapshots/" + pair + "/"

	var captures []time.Time
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list snapshots %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := key[len(prefix):]
			if len(name) <= len(".json") {
				continue
			}
			at, err := time.Parse(time.RFC3339Nano, name[:len(name)-len(".json")])
			if err != nil {
				continue
			}
			captures = append(captures, at)
		}
	}
	return captures, nil
}

// isNotFound reports whether the error indicates a missing S3 object. The
// SDK surfaces NoSuchKey for GetObject and a generic 404 for HeadObject, and
// some S3-compatible providers only set the HTTP status.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	type httpResponseError interface {
		HTTPStatusCode() int
	}
	var httpErr httpResponseError
	if errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}

// Compile-time interface check.
var _ domain.SnapshotArchiver = (*SnapshotArchiver)(nil)
