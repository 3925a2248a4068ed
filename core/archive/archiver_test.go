package archive_test

import (
	"context"
	"errors"
	"testing"

	"stocksync/core/archive"
	"stocksync/core/archive/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestArchiver_Store(t *testing.T) {
	cfg := archive.Config{Bucket: "stocksync-runs"}

	t.Run("UploadsToExistingBucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "stocksync-runs").Return(true, nil)
		client.On("PutObject", mock.Anything, "stocksync-runs", "runs/2024-05-01/run.json",
			mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)

		a := archive.NewArchiver(client, cfg, zap.NewNop())
		err := a.Store(context.Background(), "runs/2024-05-01/run.json", map[string]int{"rows": 3})
		assert.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("CreatesMissingBucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "stocksync-runs").Return(false, nil)
		client.On("MakeBucket", mock.Anything, "stocksync-runs", mock.Anything).Return(nil)
		client.On("PutObject", mock.Anything, "stocksync-runs", "runs/x.json",
			mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)

		a := archive.NewArchiver(client, cfg, zap.NewNop())
		err := a.Store(context.Background(), "runs/x.json", "payload")
		assert.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("UploadFailure", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "stocksync-runs").Return(true, nil)
		client.On("PutObject", mock.Anything, "stocksync-runs", "runs/x.json",
			mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, errors.New("network down"))

		a := archive.NewArchiver(client, cfg, zap.NewNop())
		err := a.Store(context.Background(), "runs/x.json", "payload")
		assert.Error(t, err)
	})
}
