package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rebot/internal/config"
	"rebot/internal/model"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func fixedClock(e *S3Exporter) {
	e.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
}

func TestS3Exporter_Export(t *testing.T) {
	fake := &fakeS3{}
	e := NewS3Exporter(fake, "dialogue-json", "transcripts/", zaptest.NewLogger(t))
	fixedClock(e)

	msgs := []model.Message{
		{ID: 1, Type: model.MessageBot, Content: model.WelcomeMessage},
		{ID: 2, Type: model.MessageUser, Content: "homes in 02134"},
	}
	resp, err := e.Export(context.Background(), "abc", msgs, []string{"02134"})
	require.NoError(t, err)

	assert.Equal(t, model.ExportResponse{
		Success:   true,
		Uploaded:  true,
		FileKey:   "transcripts/chat_abc_2024-03-09_14-05-07.json",
		Timestamp: "2024-03-09_14-05-07",
	}, resp)

	require.NotNil(t, fake.input)
	assert.Equal(t, "dialogue-json", aws.ToString(fake.input.Bucket))
	assert.Equal(t, resp.FileKey, aws.ToString(fake.input.Key))
	assert.Equal(t, "application/json", aws.ToString(fake.input.ContentType))

	var doc Transcript
	require.NoError(t, json.Unmarshal(fake.body, &doc))
	assert.Equal(t, "abc", doc.SessionID)
	assert.Equal(t, []string{"02134"}, doc.ZipCodes)
	require.Len(t, doc.Messages, 2)
	assert.Equal(t, "homes in 02134", doc.Messages[1].Content)
}

func TestS3Exporter_UploadFailure(t *testing.T) {
	fake := &fakeS3{err: errors.New("AccessDenied")}
	e := NewS3Exporter(fake, "b", "", zaptest.NewLogger(t))
	fixedClock(e)

	resp, err := e.Export(context.Background(), "abc", nil, nil)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.False(t, resp.Uploaded)
	assert.Equal(t, "chat_abc_2024-03-09_14-05-07.json", resp.FileKey)
	assert.JSONEq(t, `{"session_id":"abc","timestamp":"2024-03-09_14-05-07","messages":[],"zipCodes":[]}`, string(fake.body))
}

func TestNewFromConfig(t *testing.T) {
	e, err := NewFromConfig(context.Background(), &config.ExportConfig{
		Bucket:          "b",
		Region:          "auto",
		Endpoint:        "https://account.r2.cloudflarestorage.com",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", e.bucket)
	assert.IsType(t, &s3.Client{}, e.client)
}
