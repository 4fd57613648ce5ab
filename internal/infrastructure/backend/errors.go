package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/biopass-web/internal/domain"
)

// RemoteError is a non-2xx response from the backend.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return e.Message
}

func (e *RemoteError) Unwrap() error { return domain.ErrRemoteCallFailed }

// remoteMessage extracts a human-readable message from an error body:
// {"error": "..."}, {"detail": "..."}, or a field error map {"email": ["..."]}.
func remoteMessage(status int, body []byte) string {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(body, &generic); err != nil {
		if s := strings.TrimSpace(string(body)); s != "" && len(s) < 200 && !strings.HasPrefix(s, "<") {
			return s
		}
		return http.StatusText(status)
	}
	for _, key := range []string{"error", "detail", "message"} {
		if raw, ok := generic[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
		}
	}

	fields := make([]string, 0, len(generic))
	for k := range generic {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	var msgs []string
	for _, k := range fields {
		var list []string
		if json.Unmarshal(generic[k], &list) == nil && len(list) > 0 {
			msgs = append(msgs, fmt.Sprintf("%s: %s", k, strings.Join(list, " ")))
		}
	}
	if len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}
	return http.StatusText(status)
}
