package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-kart/internal/money"
)

func TestCodec_RoundTrip(t *testing.T) {
	inStock := true
	items := []LineItem{
		{ID: 1, Title: "Mini Kart", UnitPrice: 1250, Image: "kart.png", Quantity: 2, InStock: &inStock},
		{ID: 9, Title: "Helmet", UnitPrice: 99, Quantity: 1},
	}

	got, err := Decode(Encode(items))
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestDecode_DefaultsMissingFields(t *testing.T) {
	// Payload written before stock/qty existed.
	payload := []byte(`[{"id":4,"title":"Old","price":10.5,"image":""}]`)

	got, err := Decode(payload)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].ID)
	assert.Equal(t, money.Amount(1050), got[0].UnitPrice)
	assert.Equal(t, 1, got[0].Quantity, "missing qty defaults to the floor")
	assert.Nil(t, got[0].InStock)
}

func TestDecode_SkipsUnknownFields(t *testing.T) {
	payload := []byte(`[{"id":1,"price":3,"qty":2,"color":"red","description":"x"}]`)

	got, err := Decode(payload)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Quantity)
}

func TestDecode_NullStock(t *testing.T) {
	got, err := Decode([]byte(`[{"id":1,"price":1,"qty":1,"stock":null}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].InStock)
}

func TestDecode_CorruptPayload(t *testing.T) {
	_, err := Decode([]byte(`{"not":"an array"}`))
	require.Error(t, err)

	_, err = Decode([]byte(`[{"id":`))
	require.Error(t, err)
}

func TestEncode_Empty(t *testing.T) {
	assert.Equal(t, "[]", string(Encode(nil)))
}
