package config

import (
	"errors"
	"io/fs"
	"strings"
)

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// parsePairs reads "k=v,k2=v2". Entries without "=" are skipped.
func parsePairs(raw string) map[string]string {
	pairs := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		pairs[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return pairs
}
