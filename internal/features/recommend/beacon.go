package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Call is one recorded engine call.
type Call struct {
	Method string `json:"method"`
	Key    string `json:"key,omitempty"`
	Value  any    `json:"value,omitempty"`
	Item   *Item  `json:"item,omitempty"`
}

// BeaconRecommender collects engine calls for a page and posts them as one
// JSON batch when InitPage is called.
type BeaconRecommender struct {
	client   *http.Client
	endpoint string
	logger   *zap.Logger

	calls []Call
	sent  chan error
}

// NewBeaconRecommender creates a BeaconRecommender posting to endpoint.
func NewBeaconRecommender(client *http.Client, endpoint string, logger *zap.Logger) *BeaconRecommender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BeaconRecommender{client: client, endpoint: endpoint, logger: logger.Named("recommend-beacon"), sent: make(chan error, 1)}
}

func (b *BeaconRecommender) SetPageType(pageType string) {
	b.calls = append(b.calls[:0], Call{Method: "setPageType", Value: pageType})
}

func (b *BeaconRecommender) Set(key string, value any) {
	b.calls = append(b.calls, Call{Method: "set", Key: key, Value: value})
}

func (b *BeaconRecommender) AddCartItem(it Item) {
	b.calls = append(b.calls, Call{Method: "addCartItemQtySubtotal", Item: &it})
}

func (b *BeaconRecommender) AddOrderItem(it Item) {
	b.calls = append(b.calls, Call{Method: "addOrderItemQtySubtotal", Item: &it})
}

// InitPage sends the batch in the background.
func (b *BeaconRecommender) InitPage() {
	calls := append(b.calls, Call{Method: "initPage"})
	b.calls = nil
	go func() {
		err := b.post(calls)
		if err != nil {
			b.logger.Warn("recommendation beacon failed", zap.Error(err))
		}
		select {
		case b.sent <- err:
		default:
		}
	}()
}

// Sent delivers the outcome of the last InitPage.
func (b *BeaconRecommender) Sent() <-chan error { return b.sent }

func (b *BeaconRecommender) post(calls []Call) error {
	body, err := json.Marshal(calls)
	if err != nil {
		return fmt.Errorf("encoding calls: %w", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting calls: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("beacon answered %d", resp.StatusCode)
	}
	return nil
}
