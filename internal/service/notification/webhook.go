package notification

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

var _ WebhookService = (*RestyWebhookService)(nil)

type RestyWebhookService struct {
	cli *resty.Client
}

func NewRestyWebhookService(cli *resty.Client) *RestyWebhookService {
	return &RestyWebhookService{cli: cli}
}

func (s *RestyWebhookService) Send(ctx context.Context, url string, data map[string]any) error {
	resp, err := s.cli.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(data).
		Post(url)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook post: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
