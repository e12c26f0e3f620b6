package complexdir

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"go.uber.org/zap"
)

type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) GetComplex(ctx context.Context, aptSeq int64) (*domain.ComplexInfo, error) {
	endpoint := fmt.Sprintf("%s/complexes/%d", c.baseURL, aptSeq)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")

	start := time.Now()
	c.logger.Debug("complex request start", zap.Int64("apt_seq", aptSeq), zap.String("url", endpoint))
	response, err := c.client.Do(request)
	if err != nil {
		c.logger.Error("complex request failed", zap.Int64("apt_seq", aptSeq), zap.String("url", endpoint), zap.Error(err))
		return nil, err
	}
	defer response.Body.Close()

	c.logger.Info(
		"complex request complete",
		zap.Int64("apt_seq", aptSeq),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if response.StatusCode == http.StatusNotFound {
		return nil, domain.ErrComplexNotFound
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("complex directory error: status %d", response.StatusCode)
	}

	var payload complexResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.AptSeq == 0 {
		payload.AptSeq = flexInt(aptSeq)
	}

	address := payload.Address
	if address == "" {
		address = payload.RoadAddress
	}
	region := payload.Region.SigunguCode
	if region == "" {
		region = payload.Region.SidoCode
	}

	return &domain.ComplexInfo{
		AptSeq:          int64(payload.AptSeq),
		Name:            strings.TrimSpace(payload.Name),
		Address:         address,
		RegionCode:      region,
		BuildYear:       int(payload.BuildYear),
		TotalHouseholds: int(payload.TotalHouseholds),
	}, nil
}
