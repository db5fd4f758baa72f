package subscriber

import "strings"

// ParseConnectionString parses a Subscribe command's connection string:
// semicolon-delimited key=value pairs with case-insensitive keys, where a
// value may be wrapped in braces to embed literal delimiter characters
// ("filterExpression={FILTER ActiveMeasurements WHERE SignalType='FREQ'}").
func ParseConnectionString(s string) map[string]string {
	settings := make(map[string]string)

	var key strings.Builder
	var value strings.Builder
	inValue := false
	inBraces := false

	flush := func() {
		k := strings.ToLower(strings.TrimSpace(key.String()))
		if k != "" {
			settings[k] = strings.TrimSpace(value.String())
		}
		key.Reset()
		value.Reset()
		inValue = false
	}

	for _, r := range s {
		switch {
		case r == '{' && inValue && value.Len() == 0:
			inBraces = true
		case r == '}' && inBraces:
			inBraces = false
		case r == '=' && !inValue && !inBraces:
			inValue = true
		case r == ';' && !inBraces:
			flush()
		default:
			if inValue {
				value.WriteRune(r)
			} else {
				key.WriteRune(r)
			}
		}
	}
	flush()

	return settings
}
