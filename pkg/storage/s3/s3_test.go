package s3

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rferrors "github.com/registryflow/registryflow/pkg/errors"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	fail    string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.fail {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+key] = body
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func writeArtifacts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "regions"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contractors.jsonl"), []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "regions", "phoenix-metro.json"), []byte("[]\n"), 0o644))
	return dir
}

func TestUploadDir(t *testing.T) {
	dir := writeArtifacts(t)
	fake := newFakeS3()
	c := NewClientWithAPI(Config{Bucket: "registry", Prefix: "/exports/2024/", Concurrency: 2}, fake, nil)

	got, err := c.UploadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "exports/2024/contractors.jsonl", got[0].Key)
	assert.Equal(t, "exports/2024/regions/phoenix-metro.json", got[1].Key)
	assert.Equal(t, int64(3), got[0].Size)

	assert.Equal(t, []byte("{}\n"), fake.objects["registry/exports/2024/contractors.jsonl"])
	assert.Equal(t, "application/x-ndjson", fake.types["exports/2024/contractors.jsonl"])
	assert.Equal(t, "application/json", fake.types["exports/2024/regions/phoenix-metro.json"])
}

func TestUploadDir_FailureIsCoded(t *testing.T) {
	dir := writeArtifacts(t)
	fake := newFakeS3()
	fake.fail = "contractors.jsonl"
	c := NewClientWithAPI(Config{Bucket: "registry"}, fake, nil)

	_, err := c.UploadDir(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, rferrors.IsCode(err, rferrors.CodePublishFailed))
	assert.Contains(t, err.Error(), "access denied")
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a/b.json", NewClientWithAPI(Config{}, nil, nil).ObjectKey(filepath.Join("a", "b.json")))
	assert.Equal(t, "p/a.db", NewClientWithAPI(Config{Prefix: "p"}, nil, nil).ObjectKey("a.db"))
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	assert.True(t, rferrors.IsCode(err, rferrors.CodeConfig))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/vnd.sqlite3", ContentType("x.db"))
	assert.Equal(t, "application/typescript", ContentType("x-seed.ts"))
	assert.Equal(t, "application/octet-stream", ContentType("README"))
}
