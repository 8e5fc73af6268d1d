package helpers

import (
	"fmt"
	"time"

	mailtpl "github.com/oksasatya/go-account-service/pkg/mailer/templates"
)

// FillExpiresAtText renders ExpiresAt into ExpiresAtText when a producer sent
// only the raw timestamp.
func FillExpiresAtText(data map[string]any) {
	if data == nil {
		return
	}
	if v, ok := data["ExpiresAtText"]; ok && fmt.Sprintf("%v", v) != "" {
		return
	}
	v, ok := data["ExpiresAt"]
	if !ok {
		return
	}
	t, ok := parseTimeAny(v)
	if !ok || t.IsZero() || t.Year() <= 1 {
		return
	}
	data["ExpiresAtText"] = t.UTC().Format(mailtpl.ExpiryLayout)
}

func parseTimeAny(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	s := fmt.Sprintf("%v", v)
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05 -0700",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
