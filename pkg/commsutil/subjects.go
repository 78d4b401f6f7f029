package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectRequests = "bridge.frame.requests"
	SubjectReplies  = "bridge.frame.replies"
	SubjectEvents   = "bridge.frame.events"
)

// BuildEventSubject builds the subject a session event of kind is published on.
func BuildEventSubject(prefix, kind string) string {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		prefix = SubjectEvents
	}
	return fmt.Sprintf("%s.%s", prefix, kind)
}
