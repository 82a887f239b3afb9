package llm

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
)

// volatileParams never take part in a fingerprint.
var volatileParams = map[string]bool{
	"stream": true,
	"user":   true,
}

// Fingerprint derives the cache key of req. Two requests with the same
// prompt, system instruction, model, limits and extra parameters share a
// fingerprint regardless of map ordering.
func Fingerprint(req Request) (string, error) {
	data := map[string]any{
		"prompt":      req.Prompt,
		"system":      req.System,
		"model":       req.Model,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	if len(req.Extra) > 0 {
		extra := make(map[string]any, len(req.Extra))
		for k, v := range req.Extra {
			if volatileParams[k] {
				continue
			}
			extra[k] = v
		}
		if len(extra) > 0 {
			data["extra"] = extra
		}
	}

	// ConfigStd sorts map keys, nested maps included.
	raw, err := sonic.ConfigStd.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("fingerprint request: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(raw)), nil
}
