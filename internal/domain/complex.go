package domain

import (
	"context"
	"errors"
)

var ErrComplexNotFound = errors.New("complex not found")

type ComplexInfo struct {
	AptSeq          int64  `json:"apt_seq"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	RegionCode      string `json:"region_code"`
	BuildYear       int    `json:"build_year"`
	TotalHouseholds int    `json:"total_households"`
}

type ComplexDirectory interface {
	GetComplex(ctx context.Context, aptSeq int64) (*ComplexInfo, error)
}

type TransactionFeed interface {
	Subscribe(ctx context.Context, regionCodes []string) error
	Receive(ctx context.Context) (*TransactionMessage, error)
	Close() error
}

type TransactionFeedFactory interface {
	Connect(ctx context.Context) (TransactionFeed, error)
}
