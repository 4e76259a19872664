package services

import (
	"strings"
	"testing"

	"crosspost-backend/internal/platform"
)

func TestStripJSONFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"title": "x"}`, `{"title": "x"}`},
		{"json fence", "```json\n{\"title\": \"x\"}\n```", `{"title": "x"}`},
		{"bare fence", "```\n{\"title\": \"x\"}\n```", `{"title": "x"}`},
		{"leading whitespace", "  \n{\"title\": \"x\"}  ", `{"title": "x"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripJSONFences(tc.input); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	if got := clamp("hello", 10); got != "hello" {
		t.Errorf("short string changed: %q", got)
	}
	if got := clamp("hello world", 5); got != "hello" {
		t.Errorf("clamp(11, 5) = %q", got)
	}
	if got := clamp("", 5); got != "" {
		t.Errorf("clamp empty = %q", got)
	}
}

func TestBuildContentPromptPerPlatform(t *testing.T) {
	transcript := "we walk through the new release step by step"

	yt := buildContentPrompt(transcript, "", platform.YouTube, platform.SubTypeVideo)
	if !strings.Contains(yt, "standard YouTube video") {
		t.Error("youtube/video prompt missing target line")
	}

	shorts := buildContentPrompt(transcript, "", platform.YouTube, platform.SubTypeShorts)
	if !strings.Contains(shorts, "YouTube Short") {
		t.Error("youtube/shorts prompt missing target line")
	}

	ig := buildContentPrompt(transcript, "", platform.Instagram, platform.SubTypeReel)
	if !strings.Contains(ig, "Instagram reel") {
		t.Error("instagram prompt missing sub-type")
	}

	tiktok := buildContentPrompt(transcript, "", platform.TikTok, platform.SubTypeVideo)
	if !strings.Contains(tiktok, "TikTok") {
		t.Error("tiktok prompt missing target line")
	}

	for _, p := range []string{yt, shorts, ig, tiktok} {
		if !strings.Contains(p, "---TRANSCRIPT---") || !strings.Contains(p, transcript) {
			t.Error("prompt missing transcript block")
		}
		if !strings.Contains(p, `"tags"`) {
			t.Error("prompt missing JSON schema")
		}
	}
}

func TestBuildContentPromptBriefSection(t *testing.T) {
	withBrief := buildContentPrompt("transcript text", "playful tone, avoid jargon", platform.TikTok, platform.SubTypeVideo)
	if !strings.Contains(withBrief, "---BRIEF---") || !strings.Contains(withBrief, "playful tone") {
		t.Error("brief text not included in prompt")
	}

	withoutBrief := buildContentPrompt("transcript text", "  ", platform.TikTok, platform.SubTypeVideo)
	if strings.Contains(withoutBrief, "---BRIEF---") {
		t.Error("empty brief still produced a brief section")
	}
}
