package main

import "testing"

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		rec  Recording
		want string
	}{
		{
			name: "labeled with hands",
			rec:  Recording{Label: "namaste", FrameCount: 90, DurationMs: 3000, Hands: []string{"Left", "Right"}},
			want: "namaste: 90 frames in 3.0s (Left, Right)",
		},
		{
			name: "unlabeled without hands",
			rec:  Recording{FrameCount: 0, DurationMs: 1250},
			want: "0 frames in 1.2s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := message(&tt.rec); got != tt.want {
				t.Errorf("message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNotificationScript(t *testing.T) {
	got := notificationScript(Config{Title: "mudra"}, `say "hi"`)
	want := `display notification "say \"hi\"" with title "mudra"`
	if got != want {
		t.Errorf("notificationScript() = %q, want %q", got, want)
	}

	got = notificationScript(Config{Title: "mudra", Sound: true}, "done")
	want = `display notification "done" with title "mudra" sound name "Glass"`
	if got != want {
		t.Errorf("notificationScript() = %q, want %q", got, want)
	}
}
