package distribution

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"crosspost-backend/internal/models"
	"crosspost-backend/internal/platform"
)

// ConfigManager keeps a video's DistributionConfig entries consistent with
// the toggled accounts, the per-platform shared sub-type and the shared
// content. Metadata edits are buffered in memory on the asset and flushed
// by ExplicitSave; approval re-persists everything anyway.
type ConfigManager struct {
	store AssetStore
}

func NewConfigManager(store AssetStore) *ConfigManager {
	return &ConfigManager{store: store}
}

// TogglePlatform enables or disables one platform for the asset. Enabling
// is gated by the platform's eligibility check against the video's current
// geometry and duration. Disabling purges that platform's config entries;
// the shared content is retained so re-enabling restores the metadata.
func (m *ConfigManager) TogglePlatform(ctx context.Context, v *models.VideoAsset, platformID string) error {
	spec, ok := platform.Lookup(platformID)
	if !ok {
		return fmt.Errorf("unknown platform %q", platformID)
	}

	if v.HasPlatform(platformID) {
		kept := v.Platforms[:0]
		for _, p := range v.Platforms {
			if p != platformID {
				kept = append(kept, p)
			}
		}
		v.Platforms = kept

		entries := v.DistributionConfig[:0]
		for _, c := range v.DistributionConfig {
			if c.Platform != platformID {
				entries = append(entries, c)
			}
		}
		v.DistributionConfig = entries
	} else {
		if e := spec.Check(v.Ratio(), v.Duration); !e.OK() {
			return &IneligibleError{Platform: platformID, Eligibility: e}
		}
		v.Platforms = append(v.Platforms, platformID)
		ensurePlatformState(v, spec)
	}

	materialize(v)
	return m.store.SaveDistribution(ctx, v)
}

// ToggleAccount adds or removes the (platform, account) config entry. A
// new entry is seeded from the platform's shared content and current
// sub-type. The full config list is persisted atomically either way.
func (m *ConfigManager) ToggleAccount(ctx context.Context, v *models.VideoAsset, platformID string, accountID uuid.UUID) error {
	spec, ok := platform.Lookup(platformID)
	if !ok {
		return fmt.Errorf("unknown platform %q", platformID)
	}
	if !v.HasPlatform(platformID) {
		return fmt.Errorf("platform %s is not enabled for this video", platformID)
	}

	for i, c := range v.DistributionConfig {
		if c.Platform == platformID && c.AccountID == accountID {
			v.DistributionConfig = append(v.DistributionConfig[:i], v.DistributionConfig[i+1:]...)
			materialize(v)
			return m.store.SaveDistribution(ctx, v)
		}
	}

	ensurePlatformState(v, spec)
	v.DistributionConfig = append(v.DistributionConfig, models.DistributionConfig{
		Platform:  platformID,
		AccountID: accountID,
		PostType:  v.PostTypes[platformID],
		Metadata:  v.Content[platformID],
	})
	materialize(v)
	return m.store.SaveDistribution(ctx, v)
}

// SetPostType updates the platform's shared sub-type and rewrites it onto
// every existing entry of that platform.
func (m *ConfigManager) SetPostType(ctx context.Context, v *models.VideoAsset, platformID, postType string) error {
	spec, ok := platform.Lookup(platformID)
	if !ok {
		return fmt.Errorf("unknown platform %q", platformID)
	}

	valid := false
	for _, st := range spec.SubTypes {
		if st == postType {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%s does not support post type %q", platformID, postType)
	}

	applyPostType(v, platformID, postType)
	materialize(v)
	return m.store.SaveDistribution(ctx, v)
}

// SyncMetadata applies a partial edit to the platform's shared content in
// memory only. Callers flush with ExplicitSave; the contract only requires
// the store to be consistent before approval.
func (m *ConfigManager) SyncMetadata(v *models.VideoAsset, platformID string, patch models.ContentPatch) error {
	spec, ok := platform.Lookup(platformID)
	if !ok {
		return fmt.Errorf("unknown platform %q", platformID)
	}
	ensurePlatformState(v, spec)

	content := v.Content[platformID]
	if patch.Title != nil {
		content.Title = *patch.Title
	}
	if patch.Description != nil {
		content.Description = *patch.Description
	}
	if patch.Caption != nil {
		content.Caption = *patch.Caption
	}
	if patch.Tags != nil {
		content.Tags = *patch.Tags
	}
	if patch.PlaylistID != nil {
		content.PlaylistID = patch.PlaylistID
	}
	if patch.CategoryID != nil {
		content.CategoryID = patch.CategoryID
	}
	v.Content[platformID] = content

	materialize(v)
	return nil
}

// ExplicitSave persists the current in-memory content and config state.
func (m *ConfigManager) ExplicitSave(ctx context.Context, v *models.VideoAsset) error {
	materialize(v)
	return m.store.SaveDistribution(ctx, v)
}

// ApplyDerivedSubTypes re-runs each enabled platform's sub-type derivation
// against the video's current geometry and duration. A derived sub-type
// overrides the stored one, manual choice included, and is rewritten onto
// every entry of that platform. Returns true when anything changed.
func (m *ConfigManager) ApplyDerivedSubTypes(ctx context.Context, v *models.VideoAsset) (bool, error) {
	changed := false
	for _, p := range v.Platforms {
		spec, ok := platform.Lookup(p)
		if !ok {
			continue
		}
		derived, ok := spec.DeriveSubType(v.Ratio(), v.Duration)
		if !ok {
			continue
		}
		ensurePlatformState(v, spec)
		if v.PostTypes[p] != derived {
			applyPostType(v, p, derived)
			changed = true
		}
	}

	if !changed {
		return false, nil
	}
	materialize(v)
	return true, m.store.SaveDistribution(ctx, v)
}

func applyPostType(v *models.VideoAsset, platformID, postType string) {
	if v.PostTypes == nil {
		v.PostTypes = make(map[string]string)
	}
	v.PostTypes[platformID] = postType
	for i := range v.DistributionConfig {
		if v.DistributionConfig[i].Platform == platformID {
			v.DistributionConfig[i].PostType = postType
		}
	}
}

// ensurePlatformState seeds the shared sub-type and content value for a
// platform the first time it is touched.
func ensurePlatformState(v *models.VideoAsset, spec platform.Spec) {
	if v.PostTypes == nil {
		v.PostTypes = make(map[string]string)
	}
	if _, ok := v.PostTypes[spec.ID]; !ok {
		v.PostTypes[spec.ID] = spec.DefaultSubType
	}
	if v.Content == nil {
		v.Content = make(map[string]models.PlatformContent)
	}
	if _, ok := v.Content[spec.ID]; !ok {
		v.Content[spec.ID] = models.PlatformContent{}
	}
}

// materialize copies each platform's shared content into its config
// entries, producing the flat persisted shape. Unset optional fields stay
// as nils and marshal to explicit nulls.
func materialize(v *models.VideoAsset) {
	for i := range v.DistributionConfig {
		if content, ok := v.Content[v.DistributionConfig[i].Platform]; ok {
			v.DistributionConfig[i].Metadata = content
		}
	}
}
