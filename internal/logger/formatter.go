package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// FixedFormatWriter converts zerolog JSON lines into a fixed-column text
// format for the rotated log file:
//
//	2026-10-14 09:00:00.000 [INF] [agent       ] Token validated successfully
//	2026-10-14 09:00:10.004 [WRN] [poller      ] Poll request failed err="connection refused"
type FixedFormatWriter struct {
	w io.Writer
}

// NewFixedFormatWriter creates a new FixedFormatWriter that wraps the given writer.
func NewFixedFormatWriter(w io.Writer) *FixedFormatWriter {
	return &FixedFormatWriter{w: w}
}

var levelMap = map[string]string{
	"trace": "TRC",
	"debug": "DBG",
	"info":  "INF",
	"warn":  "WRN",
	"error": "ERR",
	"fatal": "FTL",
	"panic": "PNC",
}

const (
	componentWidth = 12
	timestampWidth = 23
)

func (f *FixedFormatWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return f.w.Write(p)
	}

	ts := formatTimestamp(takeString(fields, "time"))
	lvl, ok := levelMap[takeString(fields, "level")]
	if !ok {
		lvl = "???"
	}
	comp := takeString(fields, "component")
	if len(comp) > componentWidth {
		comp = comp[:componentWidth]
	}
	message := takeString(fields, "message")
	delete(fields, "caller")

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%-*s] %s", ts, lvl, componentWidth, comp, message)
	if extra := formatExtra(fields); extra != "" {
		b.WriteByte(' ')
		b.WriteString(extra)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(f.w, b.String())
	// zerolog expects the length of the original record.
	return len(p), err
}

// takeString returns fields[key] as a string and removes it from the map.
func takeString(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// formatTimestamp turns an RFC3339 timestamp into "2006-01-02 15:04:05.000".
func formatTimestamp(ts string) string {
	if len(ts) < 19 {
		return ts + strings.Repeat(" ", timestampWidth-len(ts))
	}

	result := strings.Replace(ts, "T", " ", 1)
	if idx := strings.IndexAny(result[19:], "Z+-"); idx >= 0 {
		result = result[:19+idx]
	}

	if dot := strings.LastIndex(result, "."); dot == -1 {
		result += ".000"
	} else if frac := result[dot+1:]; len(frac) > 3 {
		result = result[:dot+4]
	} else {
		result += strings.Repeat("0", 3-len(frac))
	}

	if len(result) > timestampWidth {
		result = result[:timestampWidth]
	}
	return result
}

// formatExtra renders the remaining fields as sorted key=value pairs.
func formatExtra(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s := fmt.Sprintf("%v", fields[k])
		if strings.ContainsAny(s, " \t\n\"") {
			parts = append(parts, fmt.Sprintf("%s=%q", k, s))
		} else {
			parts = append(parts, k+"="+s)
		}
	}
	return strings.Join(parts, " ")
}
