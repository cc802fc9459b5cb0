package gateway

import (
	"fmt"
	"os"
)

// Config is the merchant's gateway identity, loaded once at startup and
// passed by value. Nothing here mutates after LoadConfig returns.
type Config struct {
	MerchantID   string
	MerchantKey  string
	Website      string
	ChannelID    string
	IndustryType string
	TxnURL       string
	StatusURL    string
	CallbackURL  string
}

func LoadConfig() (Config, error) {
	cfg := Config{
		MerchantID:   os.Getenv("GATEWAY_MERCHANT_ID"),
		MerchantKey:  os.Getenv("GATEWAY_MERCHANT_KEY"),
		Website:      getEnv("GATEWAY_WEBSITE", "WEBSTAGING"),
		ChannelID:    getEnv("GATEWAY_CHANNEL_ID", "WEB"),
		IndustryType: getEnv("GATEWAY_INDUSTRY_TYPE", "Retail"),
		TxnURL:       getEnv("GATEWAY_TXN_URL", "https://securegw-stage.paytm.in/order/process"),
		StatusURL:    getEnv("GATEWAY_STATUS_URL", "https://securegw-stage.paytm.in/order/status"),
		CallbackURL:  getEnv("GATEWAY_CALLBACK_URL", "http://localhost:8080/payment/callback"),
	}

	if cfg.MerchantID == "" {
		return Config{}, fmt.Errorf("GATEWAY_MERCHANT_ID is not set")
	}
	if cfg.MerchantKey == "" {
		return Config{}, fmt.Errorf("GATEWAY_MERCHANT_KEY is not set")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
