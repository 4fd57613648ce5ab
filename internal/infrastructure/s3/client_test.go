package s3infra

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct{ mock.Mock }

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestSaveFailedMatch(t *testing.T) {
	api := &mockS3{}
	var got *s3.PutObjectInput
	api.On("PutObject", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(*s3.PutObjectInput) }).
		Return(&s3.PutObjectOutput{}, nil)
	store := NewDiagnosticsStore(api, "diag-bucket")
	store.newID = func() string { return "01HZZZ" }

	err := store.SaveFailedMatch(context.Background(), "client-1", []byte("png"))

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "diag-bucket", *got.Bucket)
	assert.Equal(t, "diagnostics/client-1/01HZZZ.png", *got.Key)
	assert.Equal(t, "image/png", *got.ContentType)
	body, _ := io.ReadAll(got.Body)
	assert.Equal(t, "png", string(body))
}

func TestSaveFailedMatch_Error(t *testing.T) {
	api := &mockS3{}
	api.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	err := NewDiagnosticsStore(api, "b").SaveFailedMatch(context.Background(), "c", []byte("x"))

	assert.ErrorContains(t, err, "access denied")
}
