// package normalize maps every known upstream video shape onto [models.Video].
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/desertthunder/ytwatch/internal/models"
)

// dig walks nested maps by key and returns nil as soon as a step is missing.
func dig(v any, keys ...string) any {
	cur := v
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// ID extracts the bare video id from any supported shape:
//
//	"abc"
//	{"id": "abc"}
//	{"id": {"videoId": "abc"}}                         search results
//	{"videoId": "abc"}
//	{"snippet": {"resourceId": {"videoId": "abc"}}}    playlist items
//	{"contentDetails": {"videoId": "abc"}}             playlist items
func ID(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		id := strings.TrimSpace(v)
		return id, id != ""
	case models.Video:
		return ID(v.ID)
	case *models.Video:
		if v == nil {
			return "", false
		}
		return ID(v.ID)
	case map[string]any:
		candidates := []any{
			v["id"],
			dig(v, "id", "videoId"),
			v["videoId"],
			dig(v, "snippet", "resourceId", "videoId"),
			dig(v, "contentDetails", "videoId"),
		}
		// A playlist item's own "id" names the membership row, not the video.
		if str(v["kind"]) == "youtube#playlistItem" {
			candidates = candidates[3:]
		}
		for _, candidate := range candidates {
			if id := str(candidate); id != "" {
				return id, true
			}
		}
	}
	return "", false
}

// Video normalizes raw into a canonical record, or nil when no id resolves.
func Video(raw any) *models.Video {
	switch v := raw.(type) {
	case models.Video:
		if _, ok := ID(v.ID); !ok {
			return nil
		}
		return &v
	case *models.Video:
		if v == nil {
			return nil
		}
		return Video(*v)
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return nil
		}
		return Video(decoded)
	}

	id, ok := ID(raw)
	if !ok {
		return nil
	}
	out := &models.Video{ID: id}

	m, ok := raw.(map[string]any)
	if !ok {
		return out
	}

	out.Title = first(dig(m, "snippet", "title"), m["title"])
	out.ChannelName = first(
		dig(m, "snippet", "videoOwnerChannelTitle"),
		dig(m, "snippet", "channelTitle"),
		m["channelName"],
		m["channelTitle"],
	)

	if u := thumbnail(m); u != "" {
		out.ThumbnailURL = &u
	}

	if d, ok := Duration(str(dig(m, "contentDetails", "duration"))); ok {
		out.DurationSeconds = &d
	} else if n, ok := number(m["durationSeconds"]); ok {
		d := int(n)
		out.DurationSeconds = &d
	}

	if n, ok := number(dig(m, "statistics", "viewCount")); ok {
		out.ViewCount = &n
	} else if n, ok := number(m["viewCount"]); ok {
		out.ViewCount = &n
	}

	return out
}

func first(vals ...any) string {
	for _, v := range vals {
		if s := str(v); s != "" {
			return s
		}
	}
	return ""
}

var thumbnailSizes = []string{"maxres", "high", "medium", "standard", "default"}

func thumbnail(m map[string]any) string {
	for _, size := range thumbnailSizes {
		if u := str(dig(m, "snippet", "thumbnails", size, "url")); u != "" {
			return u
		}
	}
	return first(m["thumbnailUrl"], m["thumbnail"])
}

// number accepts JSON numbers and decimal strings (the Data API sends counts as strings).
func number(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || n < 0 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), n >= 0
	case int64:
		return n, n >= 0
	case json.Number:
		i, err := n.Int64()
		return i, err == nil && i >= 0
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil && i >= 0
	}
	return 0, false
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// Duration parses an ISO-8601 duration such as PT4M13S or P1DT2H into seconds.
func Duration(iso string) (int, bool) {
	if iso == "" || iso == "P" || iso == "PT" {
		return 0, false
	}
	m := isoDuration.FindStringSubmatch(iso)
	if m == nil {
		return 0, false
	}

	var total int
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, false
		}
		total += n * unit
	}
	return total, true
}

// Videos normalizes each item, dropping those without a resolvable id. Each drop is reported to sink.
func Videos(items []any, sink events.Sink) []models.Video {
	out := make([]models.Video, 0, len(items))
	for i, item := range items {
		v := Video(item)
		if v == nil {
			events.Emit(sink, events.RecordDropped, "unresolvable video id", "index", i, "shape", describe(item))
			continue
		}
		out = append(out, *v)
	}
	return out
}

// Items decodes a response body and normalizes its "items" array.
func Items(body []byte, sink events.Sink) ([]models.Video, error) {
	var env struct {
		Items []any `json:"items"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	return Videos(env.Items, sink), nil
}

func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("object%v", keys)
	default:
		return fmt.Sprintf("%T", v)
	}
}
