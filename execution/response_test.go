package execution

import (
	"testing"
	"time"

	"hyperliquid-trader/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalize(t *testing.T, body string) models.OrderOutcome {
	t.Helper()
	env, err := decodeEnvelope([]byte(body))
	require.NoError(t, err)
	return normalizeOrderResponse(env, time.Unix(1700000000, 0))
}

func TestNormalizeResting(t *testing.T) {
	out := normalize(t, `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":77738308}}]}}}`)
	assert.Equal(t, models.OutcomeSuccess, out.Status)
	assert.Equal(t, models.OutcomeResting, out.Kind)
	assert.Equal(t, uint64(77738308), out.OrderID)
	assert.True(t, out.FilledQty.IsZero())
	assert.Nil(t, out.AvgPrice)
	assert.Equal(t, int64(1700000000), out.Timestamp.Unix())
}

func TestNormalizeFilled(t *testing.T) {
	out := normalize(t, `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"0.02","avgPx":"1891.4","oid":77747314}}]}}}`)
	assert.Equal(t, models.OutcomeFilled, out.Kind)
	assert.Equal(t, uint64(77747314), out.OrderID)
	assert.Equal(t, "0.02", out.FilledQty.String())
	require.NotNil(t, out.AvgPrice)
	assert.Equal(t, "1891.4", out.AvgPrice.String())
}

func TestNormalizeFilledWithoutAvgPrice(t *testing.T) {
	out := normalize(t, `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"1","oid":5}}]}}}`)
	assert.Equal(t, models.OutcomeFilled, out.Kind)
	assert.Nil(t, out.AvgPrice)
}

func TestNormalizeStatusError(t *testing.T) {
	out := normalize(t, `{"status":"ok","response":{"type":"order","data":{"statuses":[{"error":"Order must have minimum value of $10."}]}}}`)
	assert.Equal(t, models.OutcomeError, out.Status)
	assert.Equal(t, models.OutcomeRejected, out.Kind)
	assert.Equal(t, "Order must have minimum value of $10.", out.Reason)
}

func TestNormalizeEnvelopeError(t *testing.T) {
	out := normalize(t, `{"status":"err","response":"User or API Wallet does not exist."}`)
	assert.True(t, out.IsRejected())
	assert.Equal(t, "User or API Wallet does not exist.", out.Reason)
}

func TestNormalizeUnknownShapes(t *testing.T) {
	bodies := []string{
		`{"status":"ok","response":{"type":"order","data":{"statuses":["waitingForFill"]}}}`,
		`{"status":"ok","response":{"type":"order","data":{"statuses":[{"somethingNew":{}}]}}}`,
		`{"status":"ok","response":{"type":"order","data":{"statuses":[42]}}}`,
		`{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"abc","oid":1}}]}}}`,
	}
	for _, body := range bodies {
		out := normalize(t, body)
		assert.True(t, out.IsRejected(), body)
		assert.Equal(t, "unknown status", out.Reason, body)
	}
}

func TestNormalizeMissingStatuses(t *testing.T) {
	out := normalize(t, `{"status":"ok","response":{"type":"order"}}`)
	assert.True(t, out.IsRejected())
	assert.Equal(t, "no order status in response", out.Reason)
}

func TestNormalizePlainSuccess(t *testing.T) {
	out := normalize(t, `{"status":"ok","response":{"type":"order","data":{"statuses":["success"]}}}`)
	assert.Equal(t, models.OutcomeFilled, out.Kind)
	assert.True(t, out.FilledQty.IsZero())
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	_, err := decodeEnvelope([]byte("Failed to deserialize the JSON body"))
	require.Error(t, err)

	_, err = decodeEnvelope([]byte(`{"response":"x"}`))
	require.Error(t, err)
}

func TestFirstStatusError(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"status":"ok","response":{"type":"cancel","data":{"statuses":[{"error":"Order was never placed, already canceled, or filled."}]}}}`))
	require.NoError(t, err)
	msg, failed := firstStatusError(env)
	assert.True(t, failed)
	assert.Contains(t, msg, "never placed")

	env, err = decodeEnvelope([]byte(`{"status":"ok","response":{"type":"cancel","data":{"statuses":["success"]}}}`))
	require.NoError(t, err)
	_, failed = firstStatusError(env)
	assert.False(t, failed)
}
