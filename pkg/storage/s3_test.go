package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectAPI struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeObjectAPI) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	b, _ := io.ReadAll(params.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func testClient(api ObjectAPI) *S3Client {
	c := NewS3Client(S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "exports",
		BasePath:        "/livepoll/",
		ForcePathStyle:  true,
		LinkExpiry:      time.Hour,
	})
	c.api = api
	return c
}

func TestS3Client_Put(t *testing.T) {
	fake := &fakeObjectAPI{}
	c := testClient(fake)

	obj, err := c.Put(context.Background(), "exports/ABC123/x.csv", []byte("a,b\n"), "text/csv")
	require.NoError(t, err)

	assert.Equal(t, "livepoll/exports/ABC123/x.csv", obj.Key)
	assert.Equal(t, "livepoll/exports/ABC123/x.csv", *fake.input.Key)
	assert.Equal(t, "exports", *fake.input.Bucket)
	assert.Equal(t, "a,b\n", fake.body)
	assert.EqualValues(t, 4, obj.Size)
	assert.True(t, strings.Contains(obj.URL, "X-Amz-Signature"))
}

func TestS3Client_PutError(t *testing.T) {
	c := testClient(&fakeObjectAPI{err: errors.New("denied")})
	_, err := c.Put(context.Background(), "k", []byte("x"), "text/csv")
	assert.ErrorContains(t, err, "s3 upload failed")
}

func TestNormalizeBasePath(t *testing.T) {
	assert.Equal(t, "", normalizeBasePath(""))
	assert.Equal(t, "", normalizeBasePath("/"))
	assert.Equal(t, "a/b/", normalizeBasePath("/a/b/"))
}
