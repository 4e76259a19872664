// Package platform holds the closed set of supported distribution targets
// and the pure eligibility rules evaluated against a video's geometry and
// duration. The three platforms are special-cased on purpose; there is no
// generic rule plug-in layer.
package platform

// Platform identifiers.
const (
	YouTube   = "youtube"
	Instagram = "instagram"
	TikTok    = "tiktok"
)

// Post sub-types.
const (
	SubTypeShorts = "shorts"
	SubTypeVideo  = "video"
	SubTypeReel   = "reel"
	SubTypeStory  = "story"
	SubTypeFeed   = "feed"
)

// Instagram gating bounds.
const (
	igMinRatio    = 0.50
	igMaxRatio    = 0.85
	igMinDuration = 3.0
	igMaxDuration = 3600.0
)

// Eligibility carries the two gate checks separately so callers can show
// targeted guidance instead of one merged failure.
type Eligibility struct {
	RatioOK    bool `json:"ratio_ok"`
	DurationOK bool `json:"duration_ok"`
}

func (e Eligibility) OK() bool { return e.RatioOK && e.DurationOK }

// Spec describes one platform's hardcoded rules.
type Spec struct {
	ID             string
	DisplayName    string
	DefaultSubType string
	SubTypes       []string

	// RequiredFields are the shared-content fields that must be non-empty
	// before a video carrying this platform can be approved.
	RequiredFields []string

	// check gates whether the platform can be toggled on at all.
	check func(ratio, duration float64) Eligibility

	// derive recomputes the sub-type from geometry and duration. The bool
	// is false when the platform has no automatic rule or when the inputs
	// are not yet known.
	derive func(ratio, duration float64) (string, bool)
}

// Check evaluates the platform gate. Unknown inputs (<= 0) pass each check
// they affect: asynchronous probing must not block the UI.
func (s Spec) Check(ratio, duration float64) Eligibility {
	if s.check == nil {
		return Eligibility{RatioOK: true, DurationOK: true}
	}
	return s.check(ratio, duration)
}

// DeriveSubType returns the sub-type the platform mandates for the given
// geometry and duration, with ok=false when no override applies.
func (s Spec) DeriveSubType(ratio, duration float64) (string, bool) {
	if s.derive == nil {
		return "", false
	}
	return s.derive(ratio, duration)
}

var registry = map[string]Spec{
	YouTube: {
		ID:             YouTube,
		DisplayName:    "YouTube",
		DefaultSubType: SubTypeVideo,
		SubTypes:       []string{SubTypeShorts, SubTypeVideo},
		RequiredFields: []string{"title", "description"},
		derive:         deriveYouTube,
	},
	Instagram: {
		ID:             Instagram,
		DisplayName:    "Instagram",
		DefaultSubType: SubTypeReel,
		SubTypes:       []string{SubTypeReel, SubTypeStory, SubTypeFeed},
		RequiredFields: []string{"caption"},
		check:          checkInstagram,
	},
	TikTok: {
		ID:             TikTok,
		DisplayName:    "TikTok",
		DefaultSubType: SubTypeVideo,
		SubTypes:       []string{SubTypeVideo},
		RequiredFields: []string{"caption"},
	},
}

// Lookup returns the spec for a platform id.
func Lookup(id string) (Spec, bool) {
	s, ok := registry[id]
	return s, ok
}

// All returns every supported platform id in a stable order.
func All() []string {
	return []string{YouTube, Instagram, TikTok}
}

func checkInstagram(ratio, duration float64) Eligibility {
	e := Eligibility{RatioOK: true, DurationOK: true}
	if ratio > 0 {
		e.RatioOK = ratio >= igMinRatio && ratio <= igMaxRatio
	}
	if duration > 0 {
		e.DurationOK = duration >= igMinDuration && duration <= igMaxDuration
	}
	return e
}

// deriveYouTube picks shorts for square-or-vertical videos under a minute,
// long-form otherwise. It only fires once both inputs are known; until then
// the stored sub-type stands.
func deriveYouTube(ratio, duration float64) (string, bool) {
	if ratio <= 0 || duration <= 0 {
		return "", false
	}
	vertical := ratio < 0.9
	square := ratio >= 0.9 && ratio <= 1.1
	if (vertical || square) && duration < 60 {
		return SubTypeShorts, true
	}
	return SubTypeVideo, true
}
