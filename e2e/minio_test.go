package e2e_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
)

var (
	minioContainer testcontainers.Container
	minioEndpoint  string
	minioErr       error
	minioOnce      sync.Once
)

// getSharedMinio returns the endpoint of a MinIO container shared by all
// tests. The container is started on first use.
func getSharedMinio(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	minioOnce.Do(func() {
		ctx := context.Background()

		minioContainer, minioErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "minio/minio:latest",
				ExposedPorts: []string{"9000/tcp"},
				Env: map[string]string{
					"MINIO_ROOT_USER":     minioUser,
					"MINIO_ROOT_PASSWORD": minioPassword,
				},
				Cmd:        []string{"server", "/data"},
				WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
			},
			Started: true,
		})
		if minioErr != nil {
			return
		}

		minioEndpoint, minioErr = minioContainer.PortEndpoint(ctx, "9000/tcp", "http")
	})

	if minioErr != nil {
		t.Fatalf("failed to start minio container: %v", minioErr)
	}

	return minioEndpoint
}

func terminateMinio() {
	if minioContainer != nil {
		_ = testcontainers.TerminateContainer(minioContainer)
	}
}

// newS3Client returns an SDK client for seeding the container.
func newS3Client(endpoint string) *s3.Client {
	return s3.NewFromConfig(aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider(minioUser, minioPassword, ""),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
}

// seedBucket creates bucket and uploads objects (key → content).
func seedBucket(t *testing.T, endpoint, bucket string, objects map[string][]byte) {
	t.Helper()

	ctx := context.Background()
	client := newS3Client(endpoint)

	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("create bucket %s: %v", bucket, err)
	}

	for key, content := range objects {
		_, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(content),
		})
		if err != nil {
			t.Fatalf("put object %s/%s: %v", bucket, key, err)
		}
	}
}
