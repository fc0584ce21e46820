package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"pinpoint-go/internal/config"
	"pinpoint-go/internal/world"
)

// S3Store implements world.RemoteStore on an S3 bucket. Object layout:
//
//	<prefix><zone>/records/<recordName>.json   record envelope (fields, type)
//	<prefix><zone>/assets/<recordName>         map-artifact blob
//	<prefix>shares/<token>.json                share token -> record name
//	<prefix>sharemap/<recordName>.json         record name -> share URL
//	<prefix>subs/<recordName>.json             subscription marker
//
// Assets go through the s3 manager uploader so large maps stream as
// multipart uploads. Query is list-plus-filter over the zone's records;
// the store keeps the facade's contract of no retries and no backoff.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// recordEnvelope is the stored JSON form of a record, minus the asset.
type recordEnvelope struct {
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields"`
	HasAsset bool           `json:"hasAsset"`
}

type shareEnvelope struct {
	RecordName string `json:"recordName,omitempty"`
	URL        string `json:"url,omitempty"`
}

// NewS3Store builds an S3-backed remote store from configuration. Static
// credentials, a custom endpoint (minio and friends), and a key prefix are
// all optional.
func NewS3Store(ctx context.Context, cfg config.RemoteConfig) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 remote requires s3_bucket to be set")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	prefix := cfg.S3Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   prefix,
	}, nil
}

func (s *S3Store) recordKey(zone world.Zone, recordName string) string {
	return fmt.Sprintf("%s%s/records/%s.json", s.prefix, zone, recordName)
}

func (s *S3Store) assetKey(zone world.Zone, recordName string) string {
	return fmt.Sprintf("%s%s/assets/%s", s.prefix, zone, recordName)
}

func (s *S3Store) Query(ctx context.Context, recordType string, zone world.Zone, filter world.Filter) ([]world.Record, error) {
	listPrefix := fmt.Sprintf("%s%s/records/", s.prefix, zone)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(listPrefix),
	})

	var out []world.Record
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.remoteErr("query", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(obj.Key), listPrefix), ".json")
			rec, err := s.fetchRecord(ctx, zone, name, true)
			if err != nil {
				if errors.Is(err, world.ErrNotFound) {
					continue // deleted between list and get
				}
				return nil, err
			}
			if rec.Type != recordType || !filter.Matches(rec) {
				continue
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *S3Store) Fetch(ctx context.Context, zone world.Zone, recordName string) (world.Record, error) {
	return s.fetchRecord(ctx, zone, recordName, true)
}

func (s *S3Store) fetchRecord(ctx context.Context, zone world.Zone, recordName string, withAsset bool) (world.Record, error) {
	data, err := s.getObject(ctx, s.recordKey(zone, recordName))
	if err != nil {
		return world.Record{}, err
	}

	var env recordEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return world.Record{}, &world.RemoteError{Op: "fetch", Err: fmt.Errorf("corrupt record %s: %w", recordName, err)}
	}

	rec := world.Record{
		RecordName: recordName,
		Type:       env.Type,
		Zone:       zone,
		Fields:     env.Fields,
	}
	if withAsset && env.HasAsset {
		asset, err := s.getObject(ctx, s.assetKey(zone, recordName))
		if err != nil && !errors.Is(err, world.ErrNotFound) {
			return world.Record{}, err
		}
		rec.Asset = asset
	}
	return rec, nil
}

func (s *S3Store) Save(ctx context.Context, rec world.Record) (world.Record, error) {
	env := recordEnvelope{
		Type:     rec.Type,
		Fields:   rec.Fields,
		HasAsset: len(rec.Asset) > 0,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return world.Record{}, &world.RemoteError{Op: "save", Err: fmt.Errorf("encoding record: %w", err)}
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.recordKey(rec.Zone, rec.RecordName)),
		Body:   bytes.NewReader(data),
	}); err != nil {
		return world.Record{}, s.remoteErr("save", err)
	}

	if len(rec.Asset) > 0 {
		if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.assetKey(rec.Zone, rec.RecordName)),
			Body:   bytes.NewReader(rec.Asset),
		}); err != nil {
			return world.Record{}, s.remoteErr("save asset", err)
		}
	}
	return rec, nil
}

func (s *S3Store) Delete(ctx context.Context, zone world.Zone, recordNames []string) error {
	for _, name := range recordNames {
		for _, key := range []string{s.recordKey(zone, name), s.assetKey(zone, name)} {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
			}); err != nil {
				return s.remoteErr("delete", err)
			}
		}
	}
	return nil
}

// CreateShare is idempotent per record. The record->URL marker is written
// with a conditional put; losing the race means another client created the
// share first, in which case theirs is fetched and returned.
func (s *S3Store) CreateShare(ctx context.Context, recordName string) (string, error) {
	mapKey := s.prefix + "sharemap/" + recordName + ".json"

	if data, err := s.getObject(ctx, mapKey); err == nil {
		var env shareEnvelope
		if json.Unmarshal(data, &env) == nil && env.URL != "" {
			return env.URL, nil
		}
	} else if !errors.Is(err, world.ErrNotFound) {
		return "", err
	}

	token := uuid.New().String()
	url := "pinpoint://share/" + token

	tokenData, _ := json.Marshal(shareEnvelope{RecordName: recordName})
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + "shares/" + token + ".json"),
		Body:   bytes.NewReader(tokenData),
	}); err != nil {
		return "", s.remoteErr("create share", err)
	}

	mapData, _ := json.Marshal(shareEnvelope{URL: url})
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(mapKey),
		Body:        bytes.NewReader(mapData),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			// Lost the race; use the winner's share.
			data, gerr := s.getObject(ctx, mapKey)
			if gerr != nil {
				return "", gerr
			}
			var env shareEnvelope
			if json.Unmarshal(data, &env) == nil && env.URL != "" {
				return env.URL, nil
			}
		}
		return "", s.remoteErr("create share", err)
	}
	return url, nil
}

func (s *S3Store) AcceptShare(ctx context.Context, shareURL string) (world.Record, error) {
	i := strings.LastIndex(shareURL, "/")
	if i < 0 || i == len(shareURL)-1 {
		return world.Record{}, &world.RemoteError{Op: "accept share", Err: fmt.Errorf("malformed share url %q", shareURL)}
	}
	token := shareURL[i+1:]

	data, err := s.getObject(ctx, s.prefix+"shares/"+token+".json")
	if err != nil {
		return world.Record{}, err
	}
	var env shareEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.RecordName == "" {
		return world.Record{}, &world.RemoteError{Op: "accept share", Err: fmt.Errorf("corrupt share token %s", token)}
	}

	rec, err := s.fetchRecord(ctx, world.ZonePrivate, env.RecordName, true)
	if errors.Is(err, world.ErrNotFound) {
		// Share payload resolves to an identifier only; the caller falls
		// back to fetch-by-id against the zones it can reach.
		return world.Record{RecordName: env.RecordName}, nil
	}
	return rec, err
}

func (s *S3Store) Subscribe(ctx context.Context, recordName string) error {
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + "subs/" + recordName + ".json"),
		Body:   bytes.NewReader([]byte("{}")),
	}); err != nil {
		return s.remoteErr("subscribe", err)
	}
	return nil
}

func (s *S3Store) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.remoteErr("get "+key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &world.RemoteError{Op: "get " + key, Transient: true, Err: err}
	}
	return data, nil
}

// remoteErr maps SDK failures onto the facade's error taxonomy: missing
// objects are ErrNotFound, permission and bucket problems are permanent,
// everything else is transient.
func (s *S3Store) remoteErr(op string, err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%s: %w", op, world.ErrNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%s: %w", op, world.ErrNotFound)
		case "NoSuchBucket", "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return &world.RemoteError{Op: op, Transient: false, Err: err}
		}
	}
	return &world.RemoteError{Op: op, Transient: true, Err: err}
}

// Compile-time check that S3Store implements world.RemoteStore
var _ world.RemoteStore = (*S3Store)(nil)
