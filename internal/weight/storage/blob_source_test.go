package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/2beens/weightcontrol/internal/weight"
	"github.com/2beens/weightcontrol/internal/weight/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestBlobSource_LoadEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	blob := NewMockBlob(ctrl)
	blob.EXPECT().String().Return("mock-blob").AnyTimes()
	blob.EXPECT().Read(gomock.Any()).Return([]byte("date,weight,food,exer\n2024-01-10,180,5,1\n"), nil)

	source := storage.NewBlobSource(blob)
	entries, err := source.LoadEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []weight.Entry{{Date: day(0), Weight: 180, Food: 5, Exercised: true}}, entries)
	assert.Equal(t, "mock-blob", source.String())
}

func TestBlobSource_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	blob := NewMockBlob(ctrl)
	blob.EXPECT().String().Return("mock-blob").AnyTimes()

	readErr := errors.New("permission denied")
	blob.EXPECT().Read(gomock.Any()).Return(nil, readErr)
	source := storage.NewBlobSource(blob)
	_, err := source.LoadEntries(context.Background())
	assert.ErrorIs(t, err, readErr)

	writeErr := errors.New("quota exceeded")
	blob.EXPECT().
		Write(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, content []byte) error {
			assert.Equal(t, "date,weight,food,exer\n2024-01-10,180,5,1\n", string(content))
			return writeErr
		})
	err = source.SaveEntries(context.Background(), []weight.Entry{{Date: day(0), Weight: 180, Food: 5, Exercised: true}})
	assert.ErrorIs(t, err, writeErr)
}
