package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/samvad-hq/dispatchkit/internal/domain"
	"github.com/samvad-hq/dispatchkit/internal/logger"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSNSPublisherPublishSuccess(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{
		topicARN: "arn:aws:sns:::topic",
		client:   client,
		log:      logger.NopLogger{},
	}

	previous := domain.Outcome{ProbeID: "probe-1", Healthy: true}
	err := pub.Publish(context.Background(), NewEvent(domain.Outcome{ProbeID: "probe-1"}, &previous))
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	if attr := client.input.MessageAttributes["event_type"]; aws.ToString(attr.StringValue) != EventTypeOutcome {
		t.Fatalf("event_type attribute wrong: %#v", attr)
	}
	if attr := client.input.MessageAttributes["healthy"]; aws.ToString(attr.StringValue) != "false" {
		t.Fatalf("healthy attribute wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"previous":{`) {
		t.Fatalf("Message missing previous outcome: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSPublisherPublishError(t *testing.T) {
	pub := &snsPublisher{
		topicARN: "arn:aws:sns:::topic",
		client:   &fakeSNSClient{err: errors.New("boom")},
		log:      logger.NopLogger{},
	}

	if err := pub.Publish(context.Background(), NewEvent(domain.Outcome{ProbeID: "probe-1"}, nil)); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
