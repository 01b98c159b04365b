package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"corpus-path",
	"threshold",
	"top-k",
	"title-weight",
	"abstract-weight",
	"provider",
	"model",
	"base-url",
	"dimensions",
	"cache-size",
	"cache-path",
	"arxiv-page-size",
	"arxiv-rate-interval",
	"server-addr",
	"log-level",
}

// NormalizeKey converts key formats (top_k, TOP-K) to the canonical dashed form.
func NormalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.ReplaceAll(key, "_", "-")
}

// Get returns the string form of a configuration value.
func (c *Config) Get(key string) (string, error) {
	switch NormalizeKey(key) {
	case "corpus-path":
		return c.CorpusPath, nil
	case "threshold":
		return formatFloat(c.Check.Threshold), nil
	case "top-k":
		return strconv.Itoa(c.Check.TopK), nil
	case "title-weight":
		return formatFloat(c.Check.TitleWeight), nil
	case "abstract-weight":
		return formatFloat(c.Check.AbstractWeight), nil
	case "provider":
		return c.Embedding.Provider, nil
	case "model":
		return c.Embedding.Model, nil
	case "base-url":
		return c.Embedding.BaseURL, nil
	case "dimensions":
		return strconv.Itoa(c.Embedding.Dimensions), nil
	case "cache-size":
		return strconv.Itoa(c.Embedding.CacheSize), nil
	case "cache-path":
		return c.Embedding.CachePath, nil
	case "arxiv-page-size":
		return strconv.Itoa(c.ArXiv.PageSize), nil
	case "arxiv-rate-interval":
		return c.ArXiv.RateInterval.String(), nil
	case "server-addr":
		return c.Server.Addr, nil
	case "log-level":
		return c.LogLevel, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// Set parses value and assigns it to key. The resulting config is validated.
func (c *Config) Set(key, value string) error {
	next := *c
	var err error

	switch NormalizeKey(key) {
	case "corpus-path":
		next.CorpusPath = ExpandPath(value)
	case "threshold":
		next.Check.Threshold, err = strconv.ParseFloat(value, 64)
	case "top-k":
		next.Check.TopK, err = strconv.Atoi(value)
	case "title-weight":
		next.Check.TitleWeight, err = strconv.ParseFloat(value, 64)
	case "abstract-weight":
		next.Check.AbstractWeight, err = strconv.ParseFloat(value, 64)
	case "provider":
		next.Embedding.Provider = value
	case "model":
		next.Embedding.Model = value
	case "base-url":
		next.Embedding.BaseURL = value
	case "dimensions":
		next.Embedding.Dimensions, err = strconv.Atoi(value)
	case "cache-size":
		next.Embedding.CacheSize, err = strconv.Atoi(value)
	case "cache-path":
		next.Embedding.CachePath = ExpandPath(value)
	case "arxiv-page-size":
		next.ArXiv.PageSize, err = strconv.Atoi(value)
	case "arxiv-rate-interval":
		next.ArXiv.RateInterval, err = time.ParseDuration(value)
	case "server-addr":
		next.Server.Addr = value
	case "log-level":
		next.LogLevel = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", NormalizeKey(key), err)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	*c = next
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
