package s3blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// Archiver implements domain.SnapshotArchiver by uploading JSON
// snapshots of finished quote sets to the configured bucket.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ domain.SnapshotArchiver = (*Archiver)(nil)

// NewArchiver creates an Archiver. prefix is prepended to every object
// key, e.g. "swapquoter/".
func NewArchiver(c *Client, prefix string) *Archiver {
	return &Archiver{
		client: c.s3,
		bucket: c.bucket,
		prefix: prefix,
	}
}

// ArchiveSnapshot uploads one snapshot payload under the given key.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, key string, payload []byte) error {
	fullKey := a.prefix + key
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put snapshot %s: %w", fullKey, err)
	}
	return nil
}
