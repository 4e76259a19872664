package distribution

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"crosspost-backend/internal/models"
	"crosspost-backend/internal/platform"
)

func newConfigAsset() *models.VideoAsset {
	return &models.VideoAsset{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Status:   models.StatusPending,
		Width:    1080,
		Height:   1920, // ratio 0.5625, instagram-eligible
		Duration: 45,
	}
}

func TestToggleAccountIdempotence(t *testing.T) {
	v := newConfigAsset()
	v.Platforms = []string{platform.TikTok}
	account := uuid.New()

	store := &fakeStore{}
	m := NewConfigManager(store)

	if err := m.ToggleAccount(context.Background(), v, platform.TikTok, account); err != nil {
		t.Fatalf("first toggle failed: %v", err)
	}
	if len(v.DistributionConfig) != 1 {
		t.Fatalf("config length = %d after add, want 1", len(v.DistributionConfig))
	}

	if err := m.ToggleAccount(context.Background(), v, platform.TikTok, account); err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if len(v.DistributionConfig) != 0 {
		t.Fatalf("config length = %d after remove, want 0", len(v.DistributionConfig))
	}
	if len(store.lastConfig) != 0 {
		t.Errorf("persisted list length = %d, want 0", len(store.lastConfig))
	}
	if store.saves != 2 {
		t.Errorf("full config array persisted %d times, want 2", store.saves)
	}
}

func TestToggleAccountSeedsSharedState(t *testing.T) {
	v := newConfigAsset()
	v.Platforms = []string{platform.YouTube}
	v.Content = map[string]models.PlatformContent{
		platform.YouTube: {Title: "Seeded title", Description: "Seeded description", Tags: []string{"go"}},
	}
	v.PostTypes = map[string]string{platform.YouTube: platform.SubTypeShorts}

	m := NewConfigManager(&fakeStore{})
	account := uuid.New()
	if err := m.ToggleAccount(context.Background(), v, platform.YouTube, account); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	entry := v.DistributionConfig[0]
	if entry.PostType != platform.SubTypeShorts {
		t.Errorf("entry post type = %q, want shorts", entry.PostType)
	}
	if entry.Metadata.Title != "Seeded title" || entry.Metadata.Description != "Seeded description" {
		t.Errorf("entry metadata not seeded from shared content: %+v", entry.Metadata)
	}
}

func TestToggleAccountRequiresEnabledPlatform(t *testing.T) {
	v := newConfigAsset()
	m := NewConfigManager(&fakeStore{})
	if err := m.ToggleAccount(context.Background(), v, platform.YouTube, uuid.New()); err == nil {
		t.Fatal("toggling an account on a disabled platform must fail")
	}
}

func TestTogglePlatformEligibilityGate(t *testing.T) {
	v := newConfigAsset()
	v.Width, v.Height = 1920, 1080 // ratio 1.78, fails instagram gate

	m := NewConfigManager(&fakeStore{})
	err := m.TogglePlatform(context.Background(), v, platform.Instagram)

	var ie *IneligibleError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IneligibleError, got %v", err)
	}
	if ie.Eligibility.RatioOK {
		t.Error("ratio check should fail for 1.78")
	}
	if !ie.Eligibility.DurationOK {
		t.Error("duration check should pass for 45s")
	}
	if v.HasPlatform(platform.Instagram) {
		t.Error("ineligible platform must not be enabled")
	}
}

func TestTogglePlatformOffPurgesEntries(t *testing.T) {
	v := newConfigAsset()
	v.Platforms = []string{platform.TikTok, platform.YouTube}
	v.DistributionConfig = []models.DistributionConfig{
		{Platform: platform.TikTok, AccountID: uuid.New()},
		{Platform: platform.YouTube, AccountID: uuid.New()},
		{Platform: platform.TikTok, AccountID: uuid.New()},
	}
	v.Content = map[string]models.PlatformContent{platform.TikTok: {Caption: "keep me"}}

	m := NewConfigManager(&fakeStore{})
	if err := m.TogglePlatform(context.Background(), v, platform.TikTok); err != nil {
		t.Fatalf("toggle off failed: %v", err)
	}

	if v.HasPlatform(platform.TikTok) {
		t.Error("platform should be disabled")
	}
	if len(v.DistributionConfig) != 1 || v.DistributionConfig[0].Platform != platform.YouTube {
		t.Errorf("tiktok entries should be purged, got %+v", v.DistributionConfig)
	}
	// Shared content survives for quick re-enable.
	if v.Content[platform.TikTok].Caption != "keep me" {
		t.Error("shared content must be retained on toggle-off")
	}
}

func TestSetPostTypeRewritesAllEntries(t *testing.T) {
	v := newConfigAsset()
	v.Platforms = []string{platform.YouTube}
	v.DistributionConfig = []models.DistributionConfig{
		{Platform: platform.YouTube, AccountID: uuid.New(), PostType: platform.SubTypeVideo},
		{Platform: platform.YouTube, AccountID: uuid.New(), PostType: platform.SubTypeVideo},
	}

	m := NewConfigManager(&fakeStore{})
	if err := m.SetPostType(context.Background(), v, platform.YouTube, platform.SubTypeShorts); err != nil {
		t.Fatalf("SetPostType failed: %v", err)
	}

	for i, entry := range v.DistributionConfig {
		if entry.PostType != platform.SubTypeShorts {
			t.Errorf("entry %d post type = %q, want shorts", i, entry.PostType)
		}
	}
	if v.PostTypes[platform.YouTube] != platform.SubTypeShorts {
		t.Errorf("shared post type = %q, want shorts", v.PostTypes[platform.YouTube])
	}
}

func TestSetPostTypeRejectsUnsupported(t *testing.T) {
	v := newConfigAsset()
	m := NewConfigManager(&fakeStore{})
	if err := m.SetPostType(context.Background(), v, platform.YouTube, platform.SubTypeReel); err == nil {
		t.Fatal("youtube must reject reel")
	}
}

func TestSyncMetadataBuffersInMemory(t *testing.T) {
	v := newConfigAsset()
	v.Platforms = []string{platform.YouTube}
	v.DistributionConfig = []models.DistributionConfig{
		{Platform: platform.YouTube, AccountID: uuid.New()},
	}

	store := &fakeStore{}
	m := NewConfigManager(store)

	title := "New title"
	if err := m.SyncMetadata(v, platform.YouTube, models.ContentPatch{Title: &title}); err != nil {
		t.Fatalf("SyncMetadata failed: %v", err)
	}

	if v.Content[platform.YouTube].Title != "New title" {
		t.Errorf("shared title = %q", v.Content[platform.YouTube].Title)
	}
	if v.DistributionConfig[0].Metadata.Title != "New title" {
		t.Errorf("entry metadata title = %q", v.DistributionConfig[0].Metadata.Title)
	}
	if store.saves != 0 {
		t.Errorf("SyncMetadata must not persist, got %d saves", store.saves)
	}

	if err := m.ExplicitSave(context.Background(), v); err != nil {
		t.Fatalf("ExplicitSave failed: %v", err)
	}
	if store.saves != 1 {
		t.Errorf("ExplicitSave should persist once, got %d", store.saves)
	}
}

func TestSyncMetadataPartialLeavesOtherFields(t *testing.T) {
	v := newConfigAsset()
	v.Platforms = []string{platform.YouTube}
	v.Content = map[string]models.PlatformContent{
		platform.YouTube: {Title: "Old", Description: "Keep"},
	}

	m := NewConfigManager(&fakeStore{})
	title := "Updated"
	if err := m.SyncMetadata(v, platform.YouTube, models.ContentPatch{Title: &title}); err != nil {
		t.Fatalf("SyncMetadata failed: %v", err)
	}

	c := v.Content[platform.YouTube]
	if c.Title != "Updated" || c.Description != "Keep" {
		t.Errorf("partial patch clobbered fields: %+v", c)
	}
}

func TestApplyDerivedSubTypesOverridesManualChoice(t *testing.T) {
	v := newConfigAsset()
	v.Platforms = []string{platform.YouTube}
	v.Width, v.Height = 1080, 2160 // ratio 0.5
	v.Duration = 45
	v.PostTypes = map[string]string{platform.YouTube: platform.SubTypeVideo} // manual pick
	v.DistributionConfig = []models.DistributionConfig{
		{Platform: platform.YouTube, AccountID: uuid.New(), PostType: platform.SubTypeVideo},
		{Platform: platform.YouTube, AccountID: uuid.New(), PostType: platform.SubTypeVideo},
	}

	store := &fakeStore{}
	m := NewConfigManager(store)

	changed, err := m.ApplyDerivedSubTypes(context.Background(), v)
	if err != nil {
		t.Fatalf("ApplyDerivedSubTypes failed: %v", err)
	}
	if !changed {
		t.Fatal("45s vertical video must derive shorts and report a change")
	}
	for i, entry := range v.DistributionConfig {
		if entry.PostType != platform.SubTypeShorts {
			t.Errorf("entry %d post type = %q, want shorts", i, entry.PostType)
		}
	}

	// Duration grows past a minute: derivation flips every entry back.
	v.Duration = 90
	changed, err = m.ApplyDerivedSubTypes(context.Background(), v)
	if err != nil {
		t.Fatalf("second derivation failed: %v", err)
	}
	if !changed {
		t.Fatal("90s video must flip back to long-form")
	}
	for i, entry := range v.DistributionConfig {
		if entry.PostType != platform.SubTypeVideo {
			t.Errorf("entry %d post type = %q, want video", i, entry.PostType)
		}
	}
	if store.saves != 2 {
		t.Errorf("each change should persist, got %d saves", store.saves)
	}
}

func TestApplyDerivedSubTypesNoChangeNoSave(t *testing.T) {
	v := newConfigAsset()
	v.Platforms = []string{platform.YouTube}
	v.Width, v.Height = 1080, 2160
	v.Duration = 45
	v.PostTypes = map[string]string{platform.YouTube: platform.SubTypeShorts}

	store := &fakeStore{}
	m := NewConfigManager(store)

	changed, err := m.ApplyDerivedSubTypes(context.Background(), v)
	if err != nil {
		t.Fatalf("ApplyDerivedSubTypes failed: %v", err)
	}
	if changed || store.saves != 0 {
		t.Errorf("no-op derivation must not persist (changed=%v saves=%d)", changed, store.saves)
	}
}

func TestApplyDerivedSubTypesUnknownGeometry(t *testing.T) {
	v := newConfigAsset()
	v.Platforms = []string{platform.YouTube}
	v.Width, v.Height = 0, 0
	v.PostTypes = map[string]string{platform.YouTube: platform.SubTypeShorts}

	m := NewConfigManager(&fakeStore{})
	changed, err := m.ApplyDerivedSubTypes(context.Background(), v)
	if err != nil {
		t.Fatalf("ApplyDerivedSubTypes failed: %v", err)
	}
	if changed {
		t.Error("unknown geometry must not override the stored sub-type")
	}
}
