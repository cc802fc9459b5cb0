package gateway

import (
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"

	"github.com/ritikgupta28/chocodivine/internal/orders"
)

// RequestBuilder renders the signed auto-submitting form that hands the
// buyer's browser over to the gateway. It has no side effects; the order is
// already persisted by the time it runs.
type RequestBuilder struct {
	cfg Config
}

func NewRequestBuilder(cfg Config) *RequestBuilder {
	return &RequestBuilder{cfg: cfg}
}

var redirectTemplate = template.Must(template.New("redirect").Parse(
	`<html><body><center><h1>Please wait! Do not refresh the page</h1></center>` +
		`<form method="post" action="{{.Action}}" name="gatewayForm">` +
		`{{range .Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}"/>{{end}}` +
		`</form><script type="text/javascript">document.gatewayForm.submit();</script></body></html>`))

type formField struct {
	Name  string
	Value string
}

// BuildRedirect signs the transaction parameters for an order and renders
// the redirect page. The amount is recomputed from the order snapshot, never
// taken from client input.
func (b *RequestBuilder) BuildRedirect(order orders.Order) (string, error) {
	params := map[string]string{
		"MID":              b.cfg.MerchantID,
		"WEBSITE":          b.cfg.Website,
		"CHANNEL_ID":       b.cfg.ChannelID,
		"INDUSTRY_TYPE_ID": b.cfg.IndustryType,
		"ORDER_ID":         order.ID,
		"CUST_ID":          order.Buyer.UserID,
		"TXN_AMOUNT":       strconv.FormatInt(order.Total(), 10),
		"CALLBACK_URL":     b.cfg.CallbackURL,
		"EMAIL":            order.Buyer.Email,
		"MOBILE_NO":        order.Address.PhoneNumber,
	}

	checksum, err := Sign(params, b.cfg.MerchantKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction params: %w", err)
	}

	fields := make([]formField, 0, len(params)+1)
	for name, value := range params {
		fields = append(fields, formField{Name: name, Value: value})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	fields = append(fields, formField{Name: ChecksumField, Value: checksum})

	var out strings.Builder
	err = redirectTemplate.Execute(&out, struct {
		Action string
		Fields []formField
	}{Action: b.cfg.TxnURL, Fields: fields})
	if err != nil {
		return "", fmt.Errorf("failed to render redirect page: %w", err)
	}
	return out.String(), nil
}
