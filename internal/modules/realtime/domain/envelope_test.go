package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":" QR_Payment ","transactionUuid":" abc ","amount":100000}`))
	require.NoError(t, err)
	assert.Equal(t, TagQRPayment, env.Type)
	assert.Equal(t, "abc", env.TransactionUUID)

	var qr QRPayment
	require.NoError(t, env.Decode(&qr))
	assert.Equal(t, float64(100000), qr.Amount)
}

func TestParseEnvelopeMalformed(t *testing.T) {
	for _, raw := range []string{`not json`, `{"type":""}`, `{}`, `[1,2]`, `{"type":5}`} {
		env, err := ParseEnvelope([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedEnvelope, "input %s", raw)
		assert.Nil(t, env)
	}
}

func TestParseEnvelopeUnknownTag(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"make_coffee"}`))
	require.ErrorIs(t, err, ErrUnknownTag)
	require.NotNil(t, env)
	assert.Equal(t, Tag("make_coffee"), env.Type)
}

func TestEncodeCartUpdateWireShape(t *testing.T) {
	cart := NewCart()
	require.NoError(t, cart.Add(Product{ID: 1, Name: "Coffee", Price: MustParseMoney("2.50")}, 2))
	snapshot := cart.Snapshot(0, fixedNow)

	env, err := Encode(NewCartUpdate(snapshot, false))
	require.NoError(t, err)
	assert.Equal(t, TagCartUpdate, env.Type)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(env.Raw, &wire))
	assert.Equal(t, "cart_update", wire["type"])
	assert.Equal(t, "5.00", wire["subtotal"])
	assert.NotContains(t, wire, "restoreDisplay")
	items := wire["cart"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{
		"id":       float64(1),
		"name":     "Coffee",
		"price":    "2.50",
		"quantity": float64(2),
		"total":    "5.00",
	}, items[0])
}

func TestTagClassification(t *testing.T) {
	assert.True(t, TagPaymentSuccess.Scoped())
	assert.False(t, TagCartUpdate.Scoped())
	assert.True(t, TagRestoreCartDisplay.ServerOriginated())
	assert.False(t, TagQRPayment.ServerOriginated())
	assert.False(t, Tag("other").Known())
}
