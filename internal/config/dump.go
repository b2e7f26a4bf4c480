package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Dump 输出生效的配置, 密钥只保留末 4 位
func Dump(cfg Config) ([]byte, error) {
	cfg.Exchange.ApiKey = mask(cfg.Exchange.ApiKey)
	cfg.Exchange.ApiSecret = mask(cfg.Exchange.ApiSecret)
	keys := make([]string, len(cfg.LLM.Gemini.ApiKey))
	for i, k := range cfg.LLM.Gemini.ApiKey {
		keys[i] = mask(k)
	}
	cfg.LLM.Gemini.ApiKey = keys
	return yaml.Marshal(cfg)
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
