package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const transactionEvent = "transaction"

type WSFactory struct {
	url         string
	dialer      *websocket.Dialer
	readTimeout time.Duration
	logger      *zap.Logger
}

func NewWSFactory(url string, readTimeout time.Duration, logger *zap.Logger) *WSFactory {
	return &WSFactory{
		url: url,
		dialer: &websocket.Dialer{
			Proxy: http.ProxyFromEnvironment,
		},
		readTimeout: readTimeout,
		logger:      logger,
	}
}

func (f *WSFactory) Connect(ctx context.Context) (domain.TransactionFeed, error) {
	f.logger.Info("feed connect start", zap.String("url", f.url))
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		f.logger.Error("feed connect failed", zap.String("url", f.url), zap.Error(err))
		return nil, err
	}
	f.logger.Info("feed connect success", zap.String("url", f.url))
	return &WSClient{conn: conn, readTimeout: f.readTimeout, logger: f.logger}, nil
}

type WSClient struct {
	conn        *websocket.Conn
	readTimeout time.Duration
	logger      *zap.Logger
}

// Subscribe asks the feed for transactions in the given region prefixes. An empty list
// subscribes to every region.
func (c *WSClient) Subscribe(ctx context.Context, regionCodes []string) error {
	payload := map[string]any{
		"type":         "transactions",
		"region_codes": regionCodes,
	}
	c.logger.Info("feed subscribe", zap.Int("region_count", len(regionCodes)), zap.Strings("region_codes", regionCodes))
	if err := c.conn.WriteJSON(payload); err != nil {
		c.logger.Error("feed subscribe failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *WSClient) Receive(ctx context.Context) (*domain.TransactionMessage, error) {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	message, err := decodeMessage(data)
	if err != nil {
		c.logger.Debug("feed message ignored", zap.Error(err))
		return nil, nil
	}

	return message, nil
}

func (c *WSClient) Close() error {
	c.logger.Info("feed close")
	return c.conn.Close()
}

func decodeMessage(data []byte) (*domain.TransactionMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty message")
	}

	var payloads []wsMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &payloads); err != nil {
			return nil, fmt.Errorf("decode feed message array: %w", err)
		}
	} else {
		var payload wsMessage
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return nil, fmt.Errorf("decode feed message: %w", err)
		}
		payloads = []wsMessage{payload}
	}

	message := &domain.TransactionMessage{EventType: transactionEvent}
	for _, payload := range payloads {
		if payload.EventType != transactionEvent {
			continue
		}
		for _, tx := range payload.Transactions {
			if mapped, ok := mapTransaction(tx); ok {
				message.Transactions = append(message.Transactions, mapped)
			}
		}
	}
	if len(message.Transactions) == 0 {
		return nil, nil
	}
	return message, nil
}

// mapTransaction converts a feed record. Cancelled contracts are dropped, and lease or
// rent records carry their deposit as the price.
func mapTransaction(tx wsTransaction) (domain.PropertyTransaction, bool) {
	if strings.EqualFold(strings.TrimSpace(tx.CancelYN), "Y") {
		return domain.PropertyTransaction{}, false
	}
	txType := domain.TransactionType(strings.ToLower(strings.TrimSpace(tx.TransactionType)))
	if !txType.Valid() || !tx.AptSeq.Valid {
		return domain.PropertyTransaction{}, false
	}

	price := tx.Price.Value
	if txType != domain.TransactionSale && tx.Deposit.Valid {
		price = tx.Deposit.Value
	}

	region := tx.Region.SigunguCode
	if region == "" {
		region = tx.Region.DongCode
	}
	if region == "" {
		region = tx.Region.SidoCode
	}

	id := tx.ID
	if id == "" {
		id = fmt.Sprintf("%d-%s-%.2f-%d-%d", tx.AptSeq.Value, tx.TransactionDate.Time.Format("20060102"), tx.ExclusiveUseArea, tx.Floor, price)
	}

	return domain.PropertyTransaction{
		ID:              id,
		ComplexID:       tx.AptSeq.Value,
		ComplexName:     strings.TrimSpace(tx.ComplexName),
		RegionCode:      region,
		ExclusiveArea:   tx.ExclusiveUseArea,
		Floor:           tx.Floor,
		TransactionType: txType,
		Price:           price,
		MonthlyRent:     tx.MonthlyRent.Value,
		TransactionDate: tx.TransactionDate.Time,
	}, true
}
