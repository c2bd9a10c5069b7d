package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"noticiero/internal/config"
	"noticiero/internal/logging"
	"noticiero/internal/services"
)

const (
	defaultListMax   = 1000
	defaultSignedTTL = time.Hour
)

// ObjectAPI is the subset of the S3 client the gateway calls.
type ObjectAPI interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// PresignAPI issues presigned requests.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ContentType  string    `json:"contentType,omitempty"`
	ETag         string    `json:"etag,omitempty"`
}

// ErrRangeNotSatisfiable marks a byte range that lies outside the object.
var ErrRangeNotSatisfiable = errors.New("requested range not satisfiable")

// Object is an open stream plus its metadata. Callers must close Body. For
// ranged reads Info.Size is the length of Body and ContentRange holds the
// "bytes first-last/total" value reported by the bucket.
type Object struct {
	Info         ObjectInfo
	ContentRange string
	Body         io.ReadCloser
}

// Gateway reads and writes objects in one bucket.
type Gateway struct {
	objects    ObjectAPI
	presign    PresignAPI
	uploader   *manager.Uploader
	bucket     string
	publicBase string
	signedTTL  time.Duration
	logger     *slog.Logger
}

// New builds a gateway for the configured bucket. It fails with
// ErrConfiguration when credentials are missing.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if err := cfg.RequireStorage(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "configure", "storage credentials incomplete", err)
	}
	st := cfg.Storage
	client := s3.New(s3.Options{
		Region:                     st.Region,
		BaseEndpoint:               aws.String(st.Endpoint),
		Credentials:                credentials.NewStaticCredentialsProvider(st.AccessKeyID, st.SecretAccessKey, ""),
		UsePathStyle:               true,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return NewWithClients(client, s3.NewPresignClient(client), st.Bucket, st.PublicBaseURL, cfg.SignedURLTTL(), logger), nil
}

// NewWithClients builds a gateway over caller-supplied clients.
func NewWithClients(objects ObjectAPI, presign PresignAPI, bucket, publicBase string, ttl time.Duration, logger *slog.Logger) *Gateway {
	if ttl <= 0 {
		ttl = defaultSignedTTL
	}
	return &Gateway{
		objects:    objects,
		presign:    presign,
		uploader:   manager.NewUploader(objects),
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		signedTTL:  ttl,
		logger:     logging.NewComponentLogger(logger, "storage"),
	}
}

// Bucket returns the bucket name.
func (g *Gateway) Bucket() string { return g.bucket }

// Upload stores data under key and returns the object's public URL.
func (g *Gateway) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(g.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := g.objects.PutObject(ctx, in); err != nil {
		return "", g.wrap("upload", key, err)
	}
	logging.WithContext(ctx, g.logger).Info("object uploaded",
		logging.String("key", key),
		logging.Int("bytes", len(data)),
	)
	return g.PublicURL(key), nil
}

// UploadStream stores a body of unknown length, splitting it into multipart
// chunks when it exceeds one part. It returns the object's public URL.
func (g *Gateway) UploadStream(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := g.uploader.Upload(ctx, in); err != nil {
		return "", g.wrap("upload stream", key, err)
	}
	logging.WithContext(ctx, g.logger).Info("object streamed", logging.String("key", key))
	return g.PublicURL(key), nil
}

// Download reads the whole object.
func (g *Gateway) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := g.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, g.wrap("download", key, err)
	}
	return data, nil
}

// Open starts a streamed read of the whole object.
func (g *Gateway) Open(ctx context.Context, key string) (*Object, error) {
	return g.OpenRange(ctx, key, "")
}

// OpenRange starts a streamed read limited to byteRange, an HTTP Range value
// such as "bytes=0-1023". An empty byteRange reads the whole object. Ranges
// the object cannot satisfy fail with ErrRangeNotSatisfiable.
func (g *Gateway) OpenRange(ctx context.Context, key, byteRange string) (*Object, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}
	if byteRange != "" {
		in.Range = aws.String(byteRange)
	}
	out, err := g.objects.GetObject(ctx, in)
	if err != nil {
		return nil, g.wrap("open", key, err)
	}
	return &Object{
		Info: ObjectInfo{
			Key:          key,
			Size:         aws.ToInt64(out.ContentLength),
			LastModified: aws.ToTime(out.LastModified),
			ContentType:  aws.ToString(out.ContentType),
			ETag:         aws.ToString(out.ETag),
		},
		ContentRange: aws.ToString(out.ContentRange),
		Body:         out.Body,
	}, nil
}

// Delete removes key. Deleting an absent key succeeds.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	_, err := g.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return g.wrap("delete", key, err)
	}
	return nil
}

// List returns up to maxKeys objects under prefix. maxKeys <= 0 means 1000.
func (g *Gateway) List(ctx context.Context, prefix string, maxKeys int) ([]ObjectInfo, error) {
	if maxKeys <= 0 {
		maxKeys = defaultListMax
	}
	out, err := g.objects.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(g.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(maxKeys)),
	})
	if err != nil {
		return nil, g.wrap("list", prefix, err)
	}
	infos := make([]ObjectInfo, 0, len(out.Contents))
	for _, obj := range out.Contents {
		infos = append(infos, ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
		})
	}
	return infos, nil
}

// SignedDownloadURL returns a presigned GET URL valid for ttl (default from config).
func (g *Gateway) SignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := g.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(g.ttl(ttl)))
	if err != nil {
		return "", g.wrap("presign get", key, err)
	}
	return req.URL, nil
}

// SignedUploadURL returns a presigned PUT URL valid for ttl.
func (g *Gateway) SignedUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	req, err := g.presign.PresignPutObject(ctx, in, s3.WithPresignExpires(g.ttl(ttl)))
	if err != nil {
		return "", g.wrap("presign put", key, err)
	}
	return req.URL, nil
}

// Exists reports whether key is present. Any failure reads as absent.
func (g *Gateway) Exists(ctx context.Context, key string) bool {
	_, err := g.Metadata(ctx, key)
	return err == nil
}

// Metadata returns object attributes without reading the body.
func (g *Gateway) Metadata(ctx context.Context, key string) (ObjectInfo, error) {
	out, err := g.objects.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ObjectInfo{}, g.wrap("metadata", key, err)
	}
	return ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         aws.ToString(out.ETag),
	}, nil
}

// PublicURL returns the unauthenticated URL of key on the public bucket domain.
func (g *Gateway) PublicURL(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return g.publicBase + "/" + strings.Join(segments, "/")
}

func (g *Gateway) ttl(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return g.signedTTL
}

func (g *Gateway) wrap(op, key string, err error) error {
	if isInvalidRange(err) {
		return services.Wrap(services.ErrValidation, "storage", op, fmt.Sprintf("object %q", key), errors.Join(ErrRangeNotSatisfiable, err))
	}
	if isNotFound(err) {
		return services.Wrap(services.ErrNotFound, "storage", op, fmt.Sprintf("object %q not found", key), err)
	}
	return services.Wrap(services.ErrTransient, "storage", op, fmt.Sprintf("bucket %s key %q", g.bucket, key), err)
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	return false
}

func isInvalidRange(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange"
}
