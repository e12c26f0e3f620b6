package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type wsMessage struct {
	EventType    string          `json:"event_type"`
	Transactions []wsTransaction `json:"transactions"`
}

type wsTransaction struct {
	ID               string   `json:"id"`
	AptSeq           FlexInt  `json:"aptSeq"`
	ComplexName      string   `json:"complexName"`
	ExclusiveUseArea float64  `json:"exclusiveUseArea"`
	Floor            int      `json:"floor"`
	TransactionType  string   `json:"transactionType"`
	Price            FlexInt  `json:"price"`
	Deposit          FlexInt  `json:"deposit"`
	MonthlyRent      FlexInt  `json:"monthlyRent"`
	TransactionDate  FlexDate `json:"transactionDate"`
	Region           wsRegion `json:"region"`
	CancelYN         string   `json:"cancelYN"`
}

type wsRegion struct {
	SidoCode    string `json:"sidoCode"`
	SigunguCode string `json:"sigunguCode"`
	DongCode    string `json:"dongCode"`
}

// FlexInt decodes a JSON number or a quoted, optionally comma-grouped integer.
type FlexInt struct {
	Value int64
	Valid bool
}

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		n.Valid = false
		return nil
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed[0] == '"' {
		trimmed = strings.Trim(trimmed, "\"")
	}
	trimmed = strings.ReplaceAll(strings.TrimSpace(trimmed), ",", "")
	if trimmed == "" {
		n.Valid = false
		return nil
	}
	if strings.ContainsAny(trimmed, ".eE") {
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return fmt.Errorf("decode integer %q: %w", trimmed, err)
		}
		n.Value, n.Valid = int64(f), true
		return nil
	}
	v, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fmt.Errorf("decode integer %q: %w", trimmed, err)
	}
	n.Value, n.Valid = v, true
	return nil
}

// FlexDate decodes an RFC 3339 timestamp or a plain YYYY-MM-DD date as UTC.
type FlexDate struct {
	Time time.Time
}

func (d *FlexDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unexpected date format: %s", raw)
}
