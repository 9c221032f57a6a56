package manifest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/filemux/filemux/internal/errors"
)

// Publisher stores an encoded manifest.
type Publisher interface {
	Publish(ctx context.Context, data []byte) error
	String() string
}

// FilePublisher writes the manifest to a local file.
type FilePublisher struct {
	path string
}

// NewFilePublisher creates a publisher writing to path.
func NewFilePublisher(path string) *FilePublisher {
	return &FilePublisher{path: path}
}

// Publish writes data next to the target and renames it into place, so
// readers never observe a partial manifest.
func (p *FilePublisher) Publish(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return errors.New(errors.CodeManifestPublish).Wrap(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".manifest-*")
	if err != nil {
		return errors.New(errors.CodeManifestPublish).Wrap(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.New(errors.CodeManifestPublish).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.New(errors.CodeManifestPublish).Wrap(err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.New(errors.CodeManifestPublish).Wrap(err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return errors.New(errors.CodeManifestPublish).Wrap(err)
	}
	return nil
}

func (p *FilePublisher) String() string {
	return p.path
}

// ObjectPutter is the subset of the S3 client used to upload manifests.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads the manifest to an S3 bucket.
//
//	client := manifest.NewS3Client("eu-west-1", "")
//	pub := manifest.NewS3Publisher(client, "my-bucket", "routes/manifest.json")
type S3Publisher struct {
	client ObjectPutter
	bucket string
	key    string
}

// NewS3Publisher creates a publisher uploading to bucket/key.
func NewS3Publisher(client ObjectPutter, bucket, key string) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket, key: key}
}

// Publish uploads data as application/json.
func (p *S3Publisher) Publish(ctx context.Context, data []byte) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(p.key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata: map[string]string{
			"filemux-manifest-version": fmt.Sprint(SchemaVersion),
		},
	})
	if err != nil {
		return errors.New(errors.CodeManifestPublish).
			WithDetailf("upload to s3://%s/%s failed", p.bucket, p.key).
			WithSuggestion("check AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and the bucket region").
			Wrap(err)
	}
	return nil
}

func (p *S3Publisher) String() string {
	return "s3://" + p.bucket + "/" + p.key
}

// NewS3Client creates an S3 client using credentials from the standard AWS
// environment variables. A non-empty endpoint selects an S3-compatible
// service and path-style addressing.
func NewS3Client(region, endpoint string) *s3.Client {
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	return s3.New(s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials()),
	}, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

func envCredentials() aws.CredentialsProviderFunc {
	return func(context.Context) (aws.Credentials, error) {
		creds := aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "EnvironmentVariables",
		}
		if !creds.HasKeys() {
			return aws.Credentials{}, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		return creds, nil
	}
}
