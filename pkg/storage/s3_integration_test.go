//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
)

// TestS3Store_Integration runs the store against LocalStack. Requires Docker.
func TestS3Store_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := localstack.Run(ctx, "localstack/localstack:3.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
	require.NoError(t, err)

	store, err := Open(ctx, "s3://vapora-runs/team-a", S3Options{
		Region:    "us-east-1",
		Endpoint:  endpoint,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	s3Store := store.(*S3Store)

	_, err = s3Store.Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String("vapora-runs")})
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "7656/20260101_000000/scan.json", []byte(`{"seed":"7656"}`)))
	require.NoError(t, store.Put(ctx, "7656/20260102_000000/scan.json", []byte(`{"seed":"7656"}`)))

	data, err := store.Get(ctx, "7656/20260101_000000/scan.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"seed":"7656"}`, string(data))

	keys, err := store.List(ctx, "7656")
	require.NoError(t, err)
	assert.Equal(t, []string{"7656/20260101_000000/scan.json", "7656/20260102_000000/scan.json"}, keys)

	_, err = store.Get(ctx, "7656/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "s3://vapora-runs/team-a/7656/x", store.Location("7656/x"))
}
