package service

import (
	"context"

	"github.com/staktlabs/arb-finder-service/internal/models"
)

//go:generate mockgen -source=fetcher_interface.go -destination=../mocks/mock_fetcher.go -package=mocks

// MarketFetcher is an interface that abstracts cached upstream market access
// This allows for easier testing and mocking
type MarketFetcher interface {
	FetchSports(ctx context.Context) ([]models.Sport, error)
	FetchOdds(ctx context.Context, sportKey, regions, markets string) ([]models.Event, error)
}
