package gateway

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritikgupta28/chocodivine/internal/orders"
)

func testConfig() Config {
	return Config{
		MerchantID:   "NCAfMA53556886213203",
		MerchantKey:  testKey,
		Website:      "WEBSTAGING",
		ChannelID:    "WEB",
		IndustryType: "Retail",
		TxnURL:       "https://securegw-stage.paytm.in/order/process",
		StatusURL:    "https://securegw-stage.paytm.in/order/status",
		CallbackURL:  "http://localhost:8080/payment/callback",
	}
}

func gatewayOrder() orders.Order {
	return orders.Order{
		ID:    "ord-42",
		Buyer: orders.Buyer{Email: "buyer@example.com", UserID: "cust-7"},
		Products: []orders.Line{
			{Quantity: 2, Product: orders.Snapshot{ProductID: "p1", Title: "Dark Truffle", Price: 1000}},
			{Quantity: 1, Product: orders.Snapshot{ProductID: "p2", Title: "Milk Bar", Price: 500}},
		},
		PaymentType: orders.PaymentGateway,
		Address: orders.Address{
			Name: "Ritik", Location: "12 MG Road", PhoneNumber: "9876543210",
			City: "Delhi", PostalCode: "110001",
		},
	}
}

var hiddenInput = regexp.MustCompile(`<input type="hidden" name="([^"]+)" value="([^"]*)"/>`)

func TestBuildRedirect(t *testing.T) {
	builder := NewRequestBuilder(testConfig())

	html, err := builder.BuildRedirect(gatewayOrder())
	require.NoError(t, err)

	assert.Contains(t, html, `action="https://securegw-stage.paytm.in/order/process"`)
	assert.Contains(t, html, "document.gatewayForm.submit()")

	fields := map[string]string{}
	for _, m := range hiddenInput.FindAllStringSubmatch(html, -1) {
		fields[m[1]] = m[2]
	}

	// Amount is recomputed server side from the snapshot: 2*1000 + 1*500.
	assert.Equal(t, "2500", fields["TXN_AMOUNT"])
	assert.Equal(t, "ord-42", fields["ORDER_ID"])
	assert.Equal(t, "cust-7", fields["CUST_ID"])
	assert.Equal(t, "buyer@example.com", fields["EMAIL"])
	assert.Equal(t, "9876543210", fields["MOBILE_NO"])
	assert.Equal(t, "NCAfMA53556886213203", fields["MID"])
	assert.Equal(t, "WEBSTAGING", fields["WEBSITE"])
	assert.Equal(t, "WEB", fields["CHANNEL_ID"])
	assert.Equal(t, "Retail", fields["INDUSTRY_TYPE_ID"])
	assert.Equal(t, "http://localhost:8080/payment/callback", fields["CALLBACK_URL"])

	// The form carries a checksum over exactly the other fields.
	checksum, ok := fields[ChecksumField]
	require.True(t, ok)
	delete(fields, ChecksumField)
	assert.True(t, Verify(fields, testKey, checksum))
}

func TestBuildRedirectFailsWithoutKey(t *testing.T) {
	cfg := testConfig()
	cfg.MerchantKey = ""
	builder := NewRequestBuilder(cfg)

	_, err := builder.BuildRedirect(gatewayOrder())
	assert.ErrorIs(t, err, ErrBadSignInput)
}

func TestBuildRedirectEscapesValues(t *testing.T) {
	builder := NewRequestBuilder(testConfig())
	order := gatewayOrder()
	order.Buyer.Email = `"><script>alert(1)</script>`

	html, err := builder.BuildRedirect(order)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert(1)</script>")
}

func TestBuildRedirectDeterministicFieldOrder(t *testing.T) {
	builder := NewRequestBuilder(testConfig())
	first, err := builder.BuildRedirect(gatewayOrder())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := builder.BuildRedirect(gatewayOrder())
		require.NoError(t, err)
		assert.Equal(t, first, again, fmt.Sprintf("render %d differs", i))
	}
	assert.True(t, strings.HasSuffix(strings.TrimSpace(first), "</html>"))
}
