package config

import (
	"os"
	"strconv"
)

// Config carries every setting the extension needs. It is built once in main
// and passed explicitly into constructors; nothing reads the environment
// after New returns.
type Config struct {
	API     APIConfig
	Options Options
}

type APIConfig struct {
	// Endpoint is the base URL of the HiFi proxy. Required; the gateway
	// fails with a configuration error when it is empty.
	Endpoint    string
	CountryCode string
}

type Options struct {
	Port          string
	SearchLimit   int
	HistoryDBPath string
	// RateLimitRPS throttles outbound requests to the proxy. Zero disables
	// client-side throttling.
	RateLimitRPS float64
}

func New() *Config {
	return &Config{
		API: APIConfig{
			Endpoint:    os.Getenv("HIFI_API_ENDPOINT"),
			CountryCode: getCountryCode(),
		},
		Options: Options{
			Port:          os.Getenv("PORT"),
			SearchLimit:   getSearchLimit(),
			HistoryDBPath: os.Getenv("HISTORY_DB_PATH"),
			RateLimitRPS:  getRateLimitRPS(),
		},
	}
}

func getCountryCode() string {
	country := os.Getenv("HIFI_COUNTRY_CODE")
	if country == "" {
		return "US"
	}
	return country
}

func getSearchLimit() int {
	limitStr := os.Getenv("SEARCH_LIMIT")
	if limitStr == "" {
		return 25
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return 25
	}
	if limit > 50 {
		return 50 // upstream caps page size at 50
	}
	return limit
}

func getRateLimitRPS() float64 {
	rpsStr := os.Getenv("RATE_LIMIT_RPS")
	if rpsStr == "" {
		return 10
	}
	rps, err := strconv.ParseFloat(rpsStr, 64)
	if err != nil || rps < 0 {
		return 10
	}
	return rps
}
