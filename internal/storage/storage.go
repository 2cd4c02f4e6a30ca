// Package storage reads the raw event and song data from S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"songplaydw/internal/catalog/jsonpaths"
	"songplaydw/pkg/errors"
)

// API is the subset of the S3 client used here.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Location is a parsed s3://bucket/key URL. Key may be a prefix.
type Location struct {
	Bucket string
	Key    string
}

// ParseLocation parses an s3:// URL.
func ParseLocation(raw string) (Location, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "s3://")
	if !ok {
		return Location{}, errors.StorageError("Location is not an s3:// URL", raw, nil)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, errors.StorageError("Location has no bucket", raw, nil)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// Object is one listed key.
type Object struct {
	Key  string
	Size int64
}

// Store wraps an S3 client.
type Store struct {
	client API
}

// New builds a store from the default AWS credential chain.
func New(ctx context.Context, region string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageUnavailable, "Failed to load AWS configuration").
			WithContext("region", region).
			WithSuggestions("Check AWS_PROFILE or the AWS credential environment variables")
	}
	return NewWithClient(s3.NewFromConfig(cfg)), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API) *Store {
	return &Store{client: client}
}

// List returns every object under the location's key prefix, sorted by key.
// Zero-byte directory markers are skipped.
func (s *Store) List(ctx context.Context, loc Location) ([]Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(loc.Bucket),
		Prefix: aws.String(loc.Key),
	}

	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.StorageError("Failed to list objects", loc.String(), err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			objects = append(objects, Object{Key: key, Size: aws.ToInt64(obj.Size)})
		}
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// HasObjects reports whether at least one object lives under the prefix.
func (s *Store) HasObjects(ctx context.Context, loc Location) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(loc.Bucket),
		Prefix:  aws.String(loc.Key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, errors.StorageError("Failed to list objects", loc.String(), err)
	}
	return len(out.Contents) > 0, nil
}

// Exists reports whether the exact key exists.
func (s *Store) Exists(ctx context.Context, loc Location) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, errors.StorageError("Failed to stat object", loc.String(), err)
}

// Open returns the body of one object. The caller closes it.
func (s *Store) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		location := Location{Bucket: bucket, Key: key}.String()
		if isNotFound(err) {
			return nil, errors.Wrap(err, errors.ErrCodeObjectNotFound, "Object not found").
				WithContext("location", location)
		}
		return nil, errors.StorageError("Failed to fetch object", location, err)
	}
	return out.Body, nil
}

// FetchMapping downloads and parses a JSONPaths document.
func (s *Store) FetchMapping(ctx context.Context, raw string) (*jsonpaths.Mapping, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	body, err := s.Open(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	mapping, err := jsonpaths.Parse(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMalformedRecord, fmt.Sprintf("Invalid JSONPaths document %s", raw)).
			WithContext("location", raw)
	}
	return mapping, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
