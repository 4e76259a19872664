package platform

import "testing"

func TestInstagramRatioBounds(t *testing.T) {
	tests := []struct {
		ratio  float64
		wantOK bool
	}{
		{0.49, false},
		{0.50, true},
		{0.85, true},
		{0.86, false},
	}

	spec, _ := Lookup(Instagram)
	for _, tc := range tests {
		e := spec.Check(tc.ratio, 10)
		if e.RatioOK != tc.wantOK {
			t.Errorf("ratio %.2f: RatioOK = %v, want %v", tc.ratio, e.RatioOK, tc.wantOK)
		}
		if !e.DurationOK {
			t.Errorf("ratio %.2f: duration 10s should pass", tc.ratio)
		}
	}
}

func TestInstagramDurationBounds(t *testing.T) {
	tests := []struct {
		duration float64
		wantOK   bool
	}{
		{2, false},
		{3, true},
		{3600, true},
		{3601, false},
	}

	spec, _ := Lookup(Instagram)
	for _, tc := range tests {
		e := spec.Check(0.6, tc.duration)
		if e.DurationOK != tc.wantOK {
			t.Errorf("duration %.0fs: DurationOK = %v, want %v", tc.duration, e.DurationOK, tc.wantOK)
		}
		if !e.RatioOK {
			t.Errorf("duration %.0fs: ratio 0.6 should pass", tc.duration)
		}
	}
}

func TestInstagramFailuresAreIndependent(t *testing.T) {
	spec, _ := Lookup(Instagram)
	e := spec.Check(2.0, 2)
	if e.RatioOK || e.DurationOK {
		t.Errorf("expected both checks to fail, got %+v", e)
	}
	if e.OK() {
		t.Error("OK() should be false when either check fails")
	}
}

func TestInstagramUnknownInputsPass(t *testing.T) {
	spec, _ := Lookup(Instagram)

	// Dimensions still being probed: fail open.
	if e := spec.Check(0, 10); !e.RatioOK || !e.DurationOK {
		t.Errorf("unknown ratio should pass both checks, got %+v", e)
	}
	if e := spec.Check(0.6, 0); !e.RatioOK || !e.DurationOK {
		t.Errorf("unknown duration should pass both checks, got %+v", e)
	}
	if e := spec.Check(0, 0); !e.OK() {
		t.Errorf("fully unknown video should be eligible, got %+v", e)
	}
}

func TestYouTubeSubTypeDerivation(t *testing.T) {
	tests := []struct {
		name     string
		ratio    float64
		duration float64
		want     string
		wantOK   bool
	}{
		{"vertical short", 0.5, 45, SubTypeShorts, true},
		{"vertical long", 0.5, 90, SubTypeVideo, true},
		{"square short", 1.0, 30, SubTypeShorts, true},
		{"square at boundary", 1.1, 59, SubTypeShorts, true},
		{"horizontal short", 1.78, 30, SubTypeVideo, true},
		{"vertical at 60s", 0.5, 60, SubTypeVideo, true},
		{"unknown ratio", 0, 45, "", false},
		{"unknown duration", 0.5, 0, "", false},
	}

	spec, _ := Lookup(YouTube)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := spec.DeriveSubType(tc.ratio, tc.duration)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if got != tc.want {
				t.Errorf("sub-type = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTikTokHasNoGating(t *testing.T) {
	spec, _ := Lookup(TikTok)
	for _, ratio := range []float64{0.1, 0.5, 1.0, 3.0} {
		if e := spec.Check(ratio, 7200); !e.OK() {
			t.Errorf("tiktok should accept ratio %.1f at any duration", ratio)
		}
	}
	if _, ok := spec.DeriveSubType(0.5, 30); ok {
		t.Error("tiktok should not auto-derive a sub-type")
	}
}

func TestLookupUnknownPlatform(t *testing.T) {
	if _, ok := Lookup("myspace"); ok {
		t.Error("unknown platform should not resolve")
	}
}

func TestRequiredFields(t *testing.T) {
	yt, _ := Lookup(YouTube)
	if len(yt.RequiredFields) != 2 || yt.RequiredFields[0] != "title" || yt.RequiredFields[1] != "description" {
		t.Errorf("youtube required fields = %v", yt.RequiredFields)
	}
	ig, _ := Lookup(Instagram)
	if len(ig.RequiredFields) != 1 || ig.RequiredFields[0] != "caption" {
		t.Errorf("instagram required fields = %v", ig.RequiredFields)
	}
}
