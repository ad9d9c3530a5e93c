package filestore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockS3Client is a mock implementation of S3API for testing.
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func TestS3Storage_Upload(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(*MockS3Client)
		wantURL   string
		wantErr   bool
	}{
		{
			name: "successful upload",
			setupMock: func(m *MockS3Client) {
				m.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
					body, _ := io.ReadAll(in.Body)
					return *in.Bucket == "reports-bucket" &&
						*in.Key == "reports/hse/1.csv" &&
						*in.ContentType == "text/csv" &&
						string(body) == "a,b"
				})).Return(&s3.PutObjectOutput{}, nil).Once()
			},
			wantURL: "https://reports-bucket.s3.eu-west-1.amazonaws.com/reports/hse/1.csv",
		},
		{
			name: "upload failure",
			setupMock: func(m *MockS3Client) {
				m.On("PutObject", mock.Anything, mock.Anything).
					Return(nil, errors.New("AccessDenied")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockS3Client)
			tt.setupMock(client)
			storage := NewS3Storage(client, "reports-bucket", "eu-west-1", "")

			url, err := storage.Upload(context.Background(), "reports/hse/1.csv", strings.NewReader("a,b"), "text/csv")
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "uploading to S3")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantURL, url)
			}
			client.AssertExpectations(t)
		})
	}
}

func TestS3Storage_Delete(t *testing.T) {
	client := new(MockS3Client)
	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Key == "reports/hse/1.csv"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	storage := NewS3Storage(client, "reports-bucket", "eu-west-1", "")
	require.NoError(t, storage.Delete(context.Background(), "reports/hse/1.csv"))
	client.AssertExpectations(t)
}

func TestS3Storage_Exists(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    bool
		wantErr bool
	}{
		{name: "present", want: true},
		{name: "not found", err: &types.NotFound{}, want: false},
		{name: "other failure", err: errors.New("throttled"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockS3Client)
			if tt.err != nil {
				client.On("HeadObject", mock.Anything, mock.Anything).Return(nil, tt.err)
			} else {
				client.On("HeadObject", mock.Anything, mock.Anything).Return(&s3.HeadObjectOutput{}, nil)
			}
			storage := NewS3Storage(client, "reports-bucket", "eu-west-1", "")

			got, err := storage.Exists(context.Background(), "reports/hse/1.csv")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3Storage_GetURL(t *testing.T) {
	withBase := NewS3Storage(nil, "b", "us-east-1", "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/k.csv", withBase.GetURL("k.csv"))

	withoutBase := NewS3Storage(nil, "b", "us-east-1", "")
	assert.Equal(t, "https://b.s3.us-east-1.amazonaws.com/k.csv", withoutBase.GetURL("k.csv"))
}
