package server

import "time"

type Config struct {
	Addr            string
	UnlockRateIP    int           // unlock attempts per minute per client IP
	UnlockRateUser  int           // unlock attempts per minute per user
	LimiterEntryTTL time.Duration // idle eviction for rate-limit buckets
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.UnlockRateIP <= 0 {
		c.UnlockRateIP = 10
	}
	if c.UnlockRateUser <= 0 {
		c.UnlockRateUser = 5
	}
	if c.LimiterEntryTTL <= 0 {
		c.LimiterEntryTTL = time.Hour
	}
}
