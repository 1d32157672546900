package execution

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"hyperliquid-trader/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const reasonUnknownStatus = "unknown status"

// ExchangeResponse is the /exchange envelope. When Status is "err",
// Response is a JSON string with the message.
type ExchangeResponse struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

func (r *ExchangeResponse) OK() bool {
	return r.Status == "ok"
}

// ErrorMessage returns the message carried by an "err" envelope.
func (r *ExchangeResponse) ErrorMessage() string {
	var msg string
	if err := json.Unmarshal(r.Response, &msg); err == nil {
		return msg
	}
	raw := strings.TrimSpace(string(r.Response))
	if raw == "" || raw == "null" {
		return "exchange returned an error"
	}
	return raw
}

type responseBody struct {
	Type string `json:"type"`
	Data *struct {
		Statuses []json.RawMessage `json:"statuses"`
	} `json:"data"`
}

// Statuses returns the per-order statuses of an "ok" envelope.
func (r *ExchangeResponse) Statuses() []json.RawMessage {
	var body responseBody
	if err := json.Unmarshal(r.Response, &body); err != nil || body.Data == nil {
		return nil
	}
	return body.Data.Statuses
}

func decodeEnvelope(body []byte) (*ExchangeResponse, error) {
	var env ExchangeResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrapf(err, "failed to parse exchange response: %s", truncate(body, 200))
	}
	if env.Status == "" {
		return nil, errors.Errorf("exchange response has no status: %s", truncate(body, 200))
	}
	return &env, nil
}

type restingStatus struct {
	Oid uint64 `json:"oid"`
}

type filledStatus struct {
	TotalSz string `json:"totalSz"`
	AvgPx   string `json:"avgPx"`
	Oid     uint64 `json:"oid"`
}

type orderStatus struct {
	Resting *restingStatus `json:"resting"`
	Filled  *filledStatus  `json:"filled"`
	Error   *string        `json:"error"`
}

// normalizeOrderResponse collapses an /exchange order response into a single
// outcome. It never fails: anything it cannot interpret is a rejection.
func normalizeOrderResponse(env *ExchangeResponse, ts time.Time) models.OrderOutcome {
	if !env.OK() {
		return models.Rejected(env.ErrorMessage(), ts)
	}
	statuses := env.Statuses()
	if len(statuses) == 0 {
		return models.Rejected("no order status in response", ts)
	}
	return normalizeStatus(statuses[0], ts)
}

func normalizeStatus(raw json.RawMessage, ts time.Time) models.OrderOutcome {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return models.Rejected(reasonUnknownStatus, ts)
		}
		return normalizePlainStatus(s, ts)
	}

	var st orderStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return models.Rejected(reasonUnknownStatus, ts)
	}
	switch {
	case st.Error != nil:
		return normalizeError(*st.Error, ts)
	case st.Filled != nil:
		return normalizeFilled(*st.Filled, ts)
	case st.Resting != nil:
		return normalizeResting(*st.Resting, ts)
	default:
		return models.Rejected(reasonUnknownStatus, ts)
	}
}

// normalizePlainStatus handles bare string statuses. Only "success" is a
// known terminal state; it carries no fill details.
func normalizePlainStatus(s string, ts time.Time) models.OrderOutcome {
	if s == "success" {
		return models.Filled(0, decimal.Zero, nil, ts)
	}
	return models.Rejected(reasonUnknownStatus, ts)
}

func normalizeFilled(f filledStatus, ts time.Time) models.OrderOutcome {
	qty, err := decimal.NewFromString(f.TotalSz)
	if err != nil {
		return models.Rejected(reasonUnknownStatus, ts)
	}
	var avg *decimal.Decimal
	if px, err := decimal.NewFromString(f.AvgPx); err == nil {
		avg = &px
	}
	return models.Filled(f.Oid, qty, avg, ts)
}

func normalizeResting(r restingStatus, ts time.Time) models.OrderOutcome {
	return models.Resting(r.Oid, ts)
}

func normalizeError(msg string, ts time.Time) models.OrderOutcome {
	if strings.TrimSpace(msg) == "" {
		msg = "order rejected by exchange"
	}
	return models.Rejected(msg, ts)
}

// firstStatusError returns the error message of the first status, if any.
func firstStatusError(env *ExchangeResponse) (string, bool) {
	statuses := env.Statuses()
	if len(statuses) == 0 {
		return "", false
	}
	var st orderStatus
	if err := json.Unmarshal(statuses[0], &st); err != nil || st.Error == nil {
		return "", false
	}
	return *st.Error, true
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
