package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens-hq/newslens-backend/internal/domain"
	"github.com/newslens-hq/newslens-backend/internal/logger"
)

func testEvent() Event {
	return Event{
		UserID:   "user-1",
		Interest: "finance",
		Notification: domain.Notification{
			ID:       "notif-1",
			Headline: "Buy gold now",
			Link:     "https://news.example/gold",
			Interest: "finance",
		},
		GeneratedAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
}

func assertEventPayload(t *testing.T, payload string) {
	t.Helper()
	var got Event
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "finance", got.Interest)
	assert.Equal(t, "Buy gold now", got.Notification.Headline)
}

// fakeSNSClient records the last publish input.
type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSNSSenderSend(t *testing.T) {
	client := &fakeSNSClient{}
	sender := &awsSNSSender{
		topicARN: "arn:aws:sns:us-east-1:123:news",
		client:   client,
		log:      logger.NopLogger{},
	}

	require.NoError(t, sender.Send(context.Background(), testEvent()))

	require.NotNil(t, client.input)
	assert.Equal(t, "arn:aws:sns:us-east-1:123:news", aws.ToString(client.input.TopicArn))
	assertEventPayload(t, aws.ToString(client.input.Message))

	attr, ok := client.input.MessageAttributes["interest"]
	require.True(t, ok)
	assert.Equal(t, "String", aws.ToString(attr.DataType))
	assert.Equal(t, "finance", aws.ToString(attr.StringValue))
}

func TestSNSSenderSendFailure(t *testing.T) {
	sender := &awsSNSSender{
		topicARN: "arn:aws:sns:us-east-1:123:news",
		client:   &fakeSNSClient{err: errors.New("topic gone")},
		log:      logger.NopLogger{},
	}

	err := sender.Send(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send message to sns")
}

// fakeSQSClient records the last send input.
type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSQSSenderSend(t *testing.T) {
	client := &fakeSQSClient{}
	sender := &awsSQSSender{
		queueURL: "https://sqs.us-east-1.amazonaws.com/123/news",
		client:   client,
		log:      logger.NopLogger{},
	}

	require.NoError(t, sender.Send(context.Background(), testEvent()))

	require.NotNil(t, client.input)
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123/news", aws.ToString(client.input.QueueUrl))
	assertEventPayload(t, aws.ToString(client.input.MessageBody))

	attr, ok := client.input.MessageAttributes["interest"]
	require.True(t, ok)
	assert.Equal(t, "String", aws.ToString(attr.DataType))
	assert.Equal(t, "finance", aws.ToString(attr.StringValue))
}

func TestSQSSenderSendFailure(t *testing.T) {
	sender := &awsSQSSender{
		queueURL: "https://sqs.us-east-1.amazonaws.com/123/news",
		client:   &fakeSQSClient{err: errors.New("queue gone")},
		log:      logger.NopLogger{},
	}

	err := sender.Send(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send message to sqs")
}

func TestPubSubEventMessage(t *testing.T) {
	msg, err := eventMessage(testEvent())
	require.NoError(t, err)

	assert.Equal(t, "finance", msg.Attributes["interest"])
	assertEventPayload(t, string(msg.Data))
}
