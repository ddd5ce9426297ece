package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"shopback/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	assetExchange   = "asset_exchange"
	assetQueue      = "asset_orphan_queue"
	assetRoutingKey = "asset.orphan"
)

// OrphanAssetMessage is the queue payload for an image that should not exist anymore.
type OrphanAssetMessage struct {
	ImageURL string `json:"image_url"`
	Attempts int    `json:"attempts"`
}

type orphanPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// AssetJanitor retries image deletions that failed during a request, through RabbitMQ.
type AssetJanitor struct {
	images      ImageStore
	rabbitMQ    *util.RabbitMQClient
	publisher   orphanPublisher
	retryDelay  time.Duration
	maxAttempts int
	stopChan    chan bool
	stopOnce    sync.Once
}

func NewAssetJanitor(images ImageStore, rabbitMQ *util.RabbitMQClient, retryDelay time.Duration, maxAttempts int) *AssetJanitor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	j := &AssetJanitor{
		images:      images,
		rabbitMQ:    rabbitMQ,
		retryDelay:  retryDelay,
		maxAttempts: maxAttempts,
		stopChan:    make(chan bool),
	}
	if rabbitMQ != nil {
		j.publisher = rabbitMQ
	}
	return j
}

// EnqueueOrphan publishes imageURL for a later delete. Without RabbitMQ the
// image is only logged.
func (j *AssetJanitor) EnqueueOrphan(ctx context.Context, imageURL string) error {
	return j.publish(ctx, OrphanAssetMessage{ImageURL: imageURL})
}

func (j *AssetJanitor) publish(ctx context.Context, msg OrphanAssetMessage) error {
	if j.publisher == nil {
		log.Printf("Warning: RabbitMQ not available, orphaned image %s left in storage", msg.ImageURL)
		return nil
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return j.publisher.Publish(ctx, assetExchange, assetRoutingKey, body)
}

// Start declares the queue and consumes orphan messages in a goroutine.
func (j *AssetJanitor) Start() error {
	if j.rabbitMQ == nil {
		return nil // RabbitMQ not available, janitor will not start
	}

	if err := j.rabbitMQ.DeclareDirectQueue(assetExchange, assetQueue, assetRoutingKey); err != nil {
		return err
	}

	channel := j.rabbitMQ.GetChannel()
	if channel == nil {
		return nil
	}

	msgs, err := channel.Consume(
		assetQueue,
		"asset_janitor",
		false, // auto-ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		log.Println("Asset janitor started, consuming messages...")
		for {
			select {
			case <-j.stopChan:
				log.Println("Asset janitor stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Println("Asset orphan queue closed")
					return
				}
				j.processMessage(msg)
			}
		}
	}()

	return nil
}

// processMessage always acks: retries travel as new messages carrying the
// attempt count, so a requeue would reset it.
func (j *AssetJanitor) processMessage(msg amqp.Delivery) {
	if err := j.handle(context.Background(), msg.Body); err != nil {
		log.Printf("Error processing orphan asset message: %v", err)
	}
	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to ack orphan asset message: %v", err)
	}
}

// handle deletes the image named in body. A failed delete is republished with
// one more attempt until maxAttempts is reached, then dropped. Only a failing
// republish is returned as an error; the image is then left in storage.
func (j *AssetJanitor) handle(ctx context.Context, body []byte) error {
	var orphan OrphanAssetMessage
	if err := json.Unmarshal(body, &orphan); err != nil || orphan.ImageURL == "" {
		log.Printf("Dropping malformed orphan asset message: %s", string(body))
		return nil
	}

	if j.images.Delete(ctx, orphan.ImageURL) {
		log.Printf("Orphaned image %s deleted", orphan.ImageURL)
		return nil
	}

	orphan.Attempts++
	if orphan.Attempts >= j.maxAttempts {
		log.Printf("Giving up on orphaned image %s after %d attempts", orphan.ImageURL, orphan.Attempts)
		return nil
	}

	time.Sleep(j.retryDelay)
	if err := j.publish(ctx, orphan); err != nil {
		return fmt.Errorf("failed to republish orphaned image %s (attempt %d): %w", orphan.ImageURL, orphan.Attempts, err)
	}
	return nil
}

// Stop stops the consumer goroutine. It is safe to call more than once.
func (j *AssetJanitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
}
