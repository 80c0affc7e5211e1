package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	putIn   *s3.PutObjectInput
	putErr  error
	getOut  *s3.GetObjectOutput
	getErr  error
	listOut []*s3.ListObjectsV2Output
	listErr error
	calls   int
}

func (s *stubAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.putIn = in
	return &s3.PutObjectOutput{}, s.putErr
}

func (s *stubAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return s.getOut, s.getErr
}

func (s *stubAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := s.listOut[s.calls]
	s.calls++
	return out, nil
}

func TestPutSetsMetadataAndDisposition(t *testing.T) {
	stub := &stubAPI{}
	c := &Client{s3: stub}

	md := map[string]string{"fingerprint": "Dani Kasti"}
	require.NoError(t, c.Put(context.Background(), "unverified", "7.avi", []byte("avi"), md))

	require.NotNil(t, stub.putIn)
	assert.Equal(t, "unverified", *stub.putIn.Bucket)
	assert.Equal(t, "7.avi", *stub.putIn.Key)
	assert.Equal(t, md, stub.putIn.Metadata)
	require.NotNil(t, stub.putIn.ContentDisposition)
	assert.Equal(t, "attachment", *stub.putIn.ContentDisposition)
}

func TestPutImageHasNoDisposition(t *testing.T) {
	stub := &stubAPI{}
	c := &Client{s3: stub}

	require.NoError(t, c.Put(context.Background(), "unverified", "7.png", []byte("png"), nil))
	assert.Nil(t, stub.putIn.ContentDisposition)
}

func TestPutError(t *testing.T) {
	stub := &stubAPI{putErr: errors.New("boom")}
	c := &Client{s3: stub}

	err := c.Put(context.Background(), "b", "k", nil, nil)
	assert.ErrorContains(t, err, "put b/k")
}

func TestGet(t *testing.T) {
	stub := &stubAPI{getOut: &s3.GetObjectOutput{
		Body:     io.NopCloser(bytes.NewReader([]byte("media"))),
		Metadata: map[string]string{"cameranumber": "2"},
	}}
	c := &Client{s3: stub}

	obj, err := c.Get(context.Background(), "b", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("media"), obj.Body)
	assert.Equal(t, "2", obj.Metadata["cameranumber"])
}

func TestListKeysPaginates(t *testing.T) {
	stub := &stubAPI{listOut: []*s3.ListObjectsV2Output{
		{
			Contents:              []types.Object{{Key: aws.String("1.png")}, {Key: aws.String("2.png")}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("tok"),
		},
		{
			Contents:    []types.Object{{Key: aws.String("3.json")}},
			IsTruncated: aws.Bool(false),
		},
	}}
	c := &Client{s3: stub}

	keys, err := c.ListKeys(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.png", "2.png", "3.json"}, keys)
}

func TestNextSequence(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want int
	}{
		{"empty", nil, 1},
		{"mixed", []string{"1.png", "1.json", "7.avi", "readme"}, 8},
		{"non numeric ignored", []string{"cover.png", "x.json"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextFromKeys(tt.keys))
		})
	}
}

func TestNextSequenceListError(t *testing.T) {
	stub := &stubAPI{listErr: errors.New("down")}
	c := &Client{s3: stub}

	_, err := c.NextSequence(context.Background(), "b")
	assert.Error(t, err)
}
