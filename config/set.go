package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type setter func(c *CLIConfig, v string) error

var setters = map[string]setter{
	"timeout":                              durationSetter(func(c *CLIConfig) *time.Duration { return &c.Timeout }),
	"output_format":                        func(c *CLIConfig, v string) error { c.OutputFormat = OutputFormat(v); return nil },
	"debug":                                boolSetter(func(c *CLIConfig) *bool { return &c.Debug }),
	"processing.max_words_per_chunk":       intSetter(func(c *CLIConfig) *int { return &c.Processing.MaxWordsPerChunk }),
	"processing.overlap_words":             intSetter(func(c *CLIConfig) *int { return &c.Processing.OverlapWords }),
	"processing.output_format":             func(c *CLIConfig, v string) error { c.Processing.OutputFormat = v; return nil },
	"processing.include_confidence_scores": boolSetter(func(c *CLIConfig) *bool { return &c.Processing.IncludeConfidenceScores }),
	"processing.group_actions_by_owner":    boolSetter(func(c *CLIConfig) *bool { return &c.Processing.GroupActionsByOwner }),
	"processing.min_action_confidence":     floatSetter(func(c *CLIConfig) *float64 { return &c.Processing.MinActionConfidence }),
	"processing.extractor_min_confidence":  floatSetter(func(c *CLIConfig) *float64 { return &c.Processing.ExtractorMinConfidence }),
	"processing.concurrency":               intSetter(func(c *CLIConfig) *int { return &c.Processing.Concurrency }),
	"ai.providers":                         func(c *CLIConfig, v string) error { c.AI.Providers = splitList(v); return nil },
	"ai.anthropic_model":                   stringSetter(func(c *CLIConfig) *string { return &c.AI.AnthropicModel }),
	"ai.anthropic_base_url":                stringSetter(func(c *CLIConfig) *string { return &c.AI.AnthropicBaseURL }),
	"ai.openai_model":                      stringSetter(func(c *CLIConfig) *string { return &c.AI.OpenAIModel }),
	"ai.openai_base_url":                   stringSetter(func(c *CLIConfig) *string { return &c.AI.OpenAIBaseURL }),
	"ai.gemini_model":                      stringSetter(func(c *CLIConfig) *string { return &c.AI.GeminiModel }),
	"ai.timeout":                           durationSetter(func(c *CLIConfig) *time.Duration { return &c.AI.Timeout }),
	"ai.max_retries":                       intSetter(func(c *CLIConfig) *int { return &c.AI.MaxRetries }),
	"ai.retry_backoff":                     durationSetter(func(c *CLIConfig) *time.Duration { return &c.AI.RetryBackoff }),
	"ai.disabled":                          boolSetter(func(c *CLIConfig) *bool { return &c.AI.Disabled }),
	"cache.enabled":                        boolSetter(func(c *CLIConfig) *bool { return &c.Cache.Enabled }),
	"cache.redis_addr":                     stringSetter(func(c *CLIConfig) *string { return &c.Cache.RedisAddr }),
	"cache.ttl":                            durationSetter(func(c *CLIConfig) *time.Duration { return &c.Cache.TTL }),
	"archive.dsn":                          stringSetter(func(c *CLIConfig) *string { return &c.Archive.DSN }),
	"run_log.dsn":                          stringSetter(func(c *CLIConfig) *string { return &c.RunLog.DSN }),
}

// Keys returns the settable configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns value to the dotted key and re-validates. On error c is left
// unchanged.
func (c *CLIConfig) Set(key, value string) error {
	set, ok := setters[strings.ToLower(key)]
	if !ok {
		return invalid("unknown config key %q", key)
	}

	next := *c
	next.AI.Providers = append([]string(nil), c.AI.Providers...)
	if err := set(&next, strings.TrimSpace(value)); err != nil {
		return invalid("%s: %v", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func stringSetter(field func(*CLIConfig) *string) setter {
	return func(c *CLIConfig, v string) error {
		*field(c) = v
		return nil
	}
}

func intSetter(field func(*CLIConfig) *int) setter {
	return func(c *CLIConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		*field(c) = n
		return nil
	}
}

func floatSetter(field func(*CLIConfig) *float64) setter {
	return func(c *CLIConfig, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", v)
		}
		*field(c) = f
		return nil
	}
}

func boolSetter(field func(*CLIConfig) *bool) setter {
	return func(c *CLIConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("not a boolean: %q", v)
		}
		*field(c) = b
		return nil
	}
}

func durationSetter(field func(*CLIConfig) *time.Duration) setter {
	return func(c *CLIConfig, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("not a duration: %q", v)
		}
		*field(c) = d
		return nil
	}
}
