package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
)

const s3Scheme = "s3://"

// Store saves report documents to a local path or an s3:// URL.
type Store struct {
	uploader s3manageriface.UploaderAPI
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithUploader sets the S3 uploader. Without one, a session is created from
// the default AWS credential chain on the first S3 save.
func WithUploader(u s3manageriface.UploaderAPI) StoreOption {
	return func(s *Store) {
		s.uploader = u
	}
}

// NewStore creates a Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save encodes doc according to the extension of dest and writes it.
func (s *Store) Save(ctx context.Context, dest string, doc *Document) error {
	data, err := Marshal(doc, FormatFor(dest))
	if err != nil {
		return err
	}
	if strings.HasPrefix(dest, s3Scheme) {
		return s.upload(ctx, dest, data)
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	ctxlog.FromContext(ctx).Info("📝 Report written", "path", dest)
	return nil
}

func (s *Store) upload(ctx context.Context, dest string, data []byte) error {
	bucket, key, err := ParseS3URL(dest)
	if err != nil {
		return err
	}
	if s.uploader == nil {
		sess, err := session.NewSessionWithOptions(session.Options{SharedConfigState: session.SharedConfigEnable})
		if err != nil {
			return fmt.Errorf("creating AWS session: %w", err)
		}
		s.uploader = s3manager.NewUploader(sess)
	}

	contentType := "application/json"
	if FormatFor(key) == YAML {
		contentType = "application/yaml"
	}
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("uploading report to %s: %w", dest, err)
	}
	ctxlog.FromContext(ctx).Info("📝 Report uploaded", "location", out.Location)
	return nil
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(u string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(u, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an S3 URL: %q", u)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("S3 URL %q must name a bucket and a key", u)
	}
	return bucket, key, nil
}
