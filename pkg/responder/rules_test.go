package responder

import "testing"

func TestFallbackReply(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantIntent string
	}{
		{name: "greeting", text: "سلام، وقت شما بخیر", wantIntent: IntentGreeting},
		{name: "greeting english", text: "hello there", wantIntent: IntentGreeting},
		{name: "identity", text: "تو کی هستی؟", wantIntent: IntentIdentity},
		{name: "school name", text: "اسم مدرسه شما چیست", wantIntent: IntentSchoolName},
		{name: "classes", text: "چه کلاس هایی دارید؟", wantIntent: IntentClasses},
		{name: "registration", text: "شرایط ثبت نام چیست", wantIntent: IntentRegistration},
		{name: "contact", text: "شماره تماس مدرسه را می‌خواهم", wantIntent: IntentContact},
		{name: "address", text: "مدرسه کجاست؟", wantIntent: IntentAddress},
		{name: "thanks", text: "خیلی ممنون از راهنمایی", wantIntent: IntentThanks},
		{name: "farewell", text: "خداحافظ", wantIntent: IntentFarewell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := matchRule(tt.text)
			if !ok {
				t.Fatalf("matchRule(%q) found no rule", tt.text)
			}
			if r.intent != tt.wantIntent {
				t.Errorf("intent = %q, want %q", r.intent, tt.wantIntent)
			}
			if FallbackReply(tt.text) != r.reply {
				t.Error("FallbackReply did not return the matched rule's reply")
			}
		})
	}
}

func TestFallbackReplyDefault(t *testing.T) {
	if got := FallbackReply("xyzzy nonsense 12345"); got != defaultReply {
		t.Errorf("FallbackReply = %q, want default reply", got)
	}
}

func TestFallbackReplyCaseInsensitive(t *testing.T) {
	r, ok := matchRule("HELLO")
	if !ok || r.intent != IntentGreeting {
		t.Errorf("matchRule(HELLO) = %v, %v; want greeting rule", r.intent, ok)
	}
}

func TestSuggestionsFor(t *testing.T) {
	got := SuggestionsFor("سلام", IntentGreeting)
	if len(got) == 0 || len(got) > 3 {
		t.Fatalf("len(suggestions) = %d, want 1..3", len(got))
	}

	if got := SuggestionsFor("", IntentGreeting); len(got) != 0 {
		t.Errorf("blank input produced %d suggestions, want 0", len(got))
	}
	if got := SuggestionsFor("متن", IntentUnknown); len(got) != 0 {
		t.Errorf("unknown intent produced %d suggestions, want 0", len(got))
	}
	if got := SuggestionsFor("متن", "no-such-intent"); len(got) != 0 {
		t.Errorf("unmapped intent produced %d suggestions, want 0", len(got))
	}
}
