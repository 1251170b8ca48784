package bus

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSBus is the real Bus implementation backed by AWS SQS.
type SQSBus struct {
	client   *sqs.Client
	queueURL string
	fifo     bool
}

// NewSQSBus wraps an already-configured SQS client bound to queueURL.
// fifo controls whether MessageGroupId/MessageDeduplicationId are set
// on sends, which FIFO queues require and standard queues reject.
func NewSQSBus(client *sqs.Client, queueURL string, fifo bool) *SQSBus {
	return &SQSBus{client: client, queueURL: queueURL, fifo: fifo}
}

func (b *SQSBus) SendBatch(ctx context.Context, entries []SendEntry) (SendResult, error) {
	if len(entries) == 0 {
		return SendResult{}, nil
	}

	batchEntries := make([]types.SendMessageBatchRequestEntry, 0, len(entries))
	for _, e := range entries {
		entry := types.SendMessageBatchRequestEntry{
			Id:          aws.String(e.ID),
			MessageBody: aws.String(string(e.Body)),
		}
		if b.fifo {
			entry.MessageGroupId = aws.String(e.GroupID)
			entry.MessageDeduplicationId = aws.String(e.ID)
		}
		batchEntries = append(batchEntries, entry)
	}

	out, err := b.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(b.queueURL),
		Entries:  batchEntries,
	})
	if err != nil {
		return SendResult{}, err
	}

	result := SendResult{
		Succeeded: len(out.Successful),
		Failed:    len(out.Failed),
	}
	return result, nil
}

func (b *SQSBus) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error) {
	if maxMessages <= 0 || maxMessages > 10 {
		maxMessages = 10
	}

	out, err := b.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(b.queueURL),
		MaxNumberOfMessages: int32(maxMessages),
		WaitTimeSeconds:     int32(waitSeconds),
	})
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, Message{
			Body:          []byte(aws.ToString(m.Body)),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return messages, nil
}

func (b *SQSBus) DeleteBatch(ctx context.Context, receiptHandles []string) error {
	if len(receiptHandles) == 0 {
		return nil
	}

	entries := make([]types.DeleteMessageBatchRequestEntry, 0, len(receiptHandles))
	for i, rh := range receiptHandles {
		entries = append(entries, types.DeleteMessageBatchRequestEntry{
			Id:            aws.String(strconv.Itoa(i)),
			ReceiptHandle: aws.String(rh),
		})
	}

	_, err := b.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(b.queueURL),
		Entries:  entries,
	})
	return err
}
