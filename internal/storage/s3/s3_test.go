package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/5w1tchy/book-reviews/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	puts    map[string]string
	deleted []string
	failPut bool
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut {
		return nil, errors.New("boom")
	}
	b, _ := io.ReadAll(in.Body)
	f.puts[aws.ToString(in.Key)] = aws.ToString(in.ContentType) + ":" + string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestPut_ReturnsPublicURL(t *testing.T) {
	api := &fakeAPI{puts: map[string]string{}}
	u := newUploader(api, "bucket", "https://cdn.example.com/")

	url, err := u.Put(context.Background(), "reviews/abc.png", "image/png", strings.NewReader("px"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/reviews/abc.png", url)
	assert.Equal(t, "image/png:px", api.puts["reviews/abc.png"])
}

func TestPut_WrapsError(t *testing.T) {
	u := newUploader(&fakeAPI{failPut: true}, "bucket", "https://cdn.example.com")
	_, err := u.Put(context.Background(), "k", "image/png", strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put object k")
}

func TestDelete(t *testing.T) {
	api := &fakeAPI{puts: map[string]string{}}
	u := newUploader(api, "bucket", "https://cdn.example.com")
	require.NoError(t, u.Delete(context.Background(), "a/b.jpg"))
	assert.Equal(t, []string{"a/b.jpg"}, api.deleted)
}

func TestNew_Disabled(t *testing.T) {
	_, err := New(context.Background(), config.MediaConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
}
