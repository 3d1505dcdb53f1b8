package nats

import (
	"testing"

	"github.com/chatwire/chat-backend/internal/hub"
)

func TestSubjectRoundTrip(t *testing.T) {
	tests := []struct {
		scope  hub.Scope
		target string
		want   string
	}{
		{hub.ScopeAll, "", "chat.all"},
		{hub.ScopeConversation, "conv-1", "chat.conv.conv-1"},
		{hub.ScopeUser, "u-1", "chat.user.u-1"},
	}

	for _, tt := range tests {
		subject := subjectFor(tt.scope, tt.target)
		if subject != tt.want {
			t.Errorf("subjectFor(%s, %s) = %q, want %q", tt.scope, tt.target, subject, tt.want)
		}

		scope, target, ok := parseSubject(subject)
		if !ok {
			t.Fatalf("parseSubject(%q) failed", subject)
		}
		if scope != tt.scope || target != tt.target {
			t.Errorf("parseSubject(%q) = %s/%s", subject, scope, target)
		}
	}
}

func TestParseSubjectRejectsForeign(t *testing.T) {
	for _, subject := range []string{"orders.conv.1", "chat", "chat.conv", "chat.unknown.x"} {
		if _, _, ok := parseSubject(subject); ok {
			t.Errorf("parseSubject(%q) accepted an unroutable subject", subject)
		}
	}
}
