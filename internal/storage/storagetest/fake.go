// Package storagetest provides an in-memory S3 double for gateway tests.
package storagetest

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"noticiero/internal/logging"
	"noticiero/internal/storage"
)

var errMultipart = errors.New("storagetest: multipart uploads are not supported")

type object struct {
	data        []byte
	contentType string
	modified    time.Time
	etag        string
}

// FakeS3 keeps objects in memory. It implements storage.ObjectAPI and
// storage.PresignAPI.
type FakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
	// FailWith, when set, is returned by every call.
	FailWith error
}

// NewFakeS3 returns an empty bucket.
func NewFakeS3() *FakeS3 {
	return &FakeS3{objects: make(map[string]object)}
}

// NewGateway returns a gateway over a fresh FakeS3.
func NewGateway(t testing.TB) (*storage.Gateway, *FakeS3) {
	t.Helper()
	fake := NewFakeS3()
	gw := storage.NewWithClients(fake, fake, "noticieros", "https://noticieros.r2.dev", time.Hour, logging.NewNop())
	return gw, fake
}

// Put seeds an object directly.
func (f *FakeS3) Put(key string, data []byte, contentType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := md5.Sum(data)
	f.objects[key] = object{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		modified:    time.Now().UTC(),
		etag:        `"` + hex.EncodeToString(sum[:]) + `"`,
	}
}

// Get returns a stored object's bytes.
func (f *FakeS3) Get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	return obj.data, ok
}

// Keys lists every stored key in order.
func (f *FakeS3) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *FakeS3) lookup(key string) (object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return object{}, f.FailWith
	}
	obj, ok := f.objects[key]
	if !ok {
		return object{}, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return obj, nil
}

func (f *FakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	var data []byte
	if in.Body != nil {
		var err error
		if data, err = io.ReadAll(in.Body); err != nil {
			return nil, err
		}
	}
	key := aws.ToString(in.Key)
	f.Put(key, data, aws.ToString(in.ContentType))
	obj, _ := f.lookup(key)
	return &s3.PutObjectOutput{ETag: aws.String(obj.etag)}, nil
}

func (f *FakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, err := f.lookup(aws.ToString(in.Key))
	if err != nil {
		return nil, err
	}
	out := &s3.GetObjectOutput{
		ContentType:  aws.String(obj.contentType),
		ETag:         aws.String(obj.etag),
		LastModified: aws.Time(obj.modified),
	}
	data := obj.data
	if value := aws.ToString(in.Range); value != "" {
		first, last, ok := parseRange(value, int64(len(data)))
		if !ok {
			return nil, &smithy.GenericAPIError{Code: "InvalidRange", Message: "The requested range is not satisfiable"}
		}
		out.ContentRange = aws.String(fmt.Sprintf("bytes %d-%d/%d", first, last, len(data)))
		data = data[first : last+1]
	}
	out.Body = io.NopCloser(bytes.NewReader(data))
	out.ContentLength = aws.Int64(int64(len(data)))
	return out, nil
}

// parseRange resolves a single "bytes=" range against size.
func parseRange(value string, size int64) (first, last int64, ok bool) {
	spec, found := strings.CutPrefix(value, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, false
	}
	start, end, found := strings.Cut(spec, "-")
	if !found || size == 0 {
		return 0, 0, false
	}
	if start == "" {
		n, err := strconv.ParseInt(end, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		return max(size-n, 0), size - 1, true
	}
	first, err := strconv.ParseInt(start, 10, 64)
	if err != nil || first < 0 || first >= size {
		return 0, 0, false
	}
	last = size - 1
	if end != "" {
		n, err := strconv.ParseInt(end, 10, 64)
		if err != nil || n < first {
			return 0, 0, false
		}
		last = min(n, size-1)
	}
	return first, last, true
}

func (f *FakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	obj, err := f.lookup(aws.ToString(in.Key))
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	if err != nil {
		return nil, err
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(obj.etag),
		LastModified:  aws.Time(obj.modified),
	}, nil
}

func (f *FakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *FakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	prefix := aws.ToString(in.Prefix)
	limit := int(aws.ToInt32(in.MaxKeys))
	out := &s3.ListObjectsV2Output{}
	for _, key := range f.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if limit > 0 && len(out.Contents) >= limit {
			out.IsTruncated = aws.Bool(true)
			break
		}
		obj, err := f.lookup(key)
		if err != nil {
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modified),
			ETag:         aws.String(obj.etag),
		})
	}
	out.KeyCount = aws.Int32(int32(len(out.Contents)))
	return out, nil
}

func (f *FakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errMultipart
}

func (f *FakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *FakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *FakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *FakeS3) PresignGetObject(_ context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return presigned("GET", aws.ToString(in.Key), opts), nil
}

func (f *FakeS3) PresignPutObject(_ context.Context, in *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return presigned("PUT", aws.ToString(in.Key), opts), nil
}

func presigned(method, key string, opts []func(*s3.PresignOptions)) *v4.PresignedHTTPRequest {
	var po s3.PresignOptions
	for _, opt := range opts {
		opt(&po)
	}
	return &v4.PresignedHTTPRequest{
		Method: method,
		URL:    fmt.Sprintf("https://signed.example/%s?X-Amz-Expires=%d", key, int(po.Expires.Seconds())),
	}
}
