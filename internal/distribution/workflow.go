package distribution

import (
	"context"
	"fmt"
	"log"
	"time"

	"crosspost-backend/internal/adapters"
	"crosspost-backend/internal/models"
	"crosspost-backend/internal/platform"
)

// PlatformReadiness is the per-platform, per-rule approval guard result.
type PlatformReadiness struct {
	Platform         string   `json:"platform"`
	MetadataComplete bool     `json:"metadata_complete"`
	MissingFields    []string `json:"missing_fields,omitempty"`
	HasAccount       bool     `json:"has_account"`
}

func (p PlatformReadiness) Ready() bool { return p.MetadataComplete && p.HasAccount }

// ReadinessReport aggregates the approval guards across all toggled
// platforms. It deliberately keeps every rule's boolean visible instead of
// collapsing to one flag.
type ReadinessReport struct {
	HasPlatforms bool                `json:"has_platforms"`
	Platforms    []PlatformReadiness `json:"platforms"`
}

func (r ReadinessReport) Ready() bool {
	if !r.HasPlatforms {
		return false
	}
	for _, p := range r.Platforms {
		if !p.Ready() {
			return false
		}
	}
	return true
}

// EvaluateReadiness computes the approval guards for a video: at least one
// platform toggled, every toggled platform's required fields non-empty,
// and every toggled platform holding at least one config entry.
func EvaluateReadiness(v *models.VideoAsset) ReadinessReport {
	report := ReadinessReport{HasPlatforms: len(v.Platforms) > 0}

	for _, p := range v.Platforms {
		pr := PlatformReadiness{Platform: p, MetadataComplete: true}

		spec, ok := platform.Lookup(p)
		if !ok {
			pr.MetadataComplete = false
			report.Platforms = append(report.Platforms, pr)
			continue
		}

		content := v.Content[p]
		for _, field := range spec.RequiredFields {
			if !fieldSet(content, field) {
				pr.MetadataComplete = false
				pr.MissingFields = append(pr.MissingFields, field)
			}
		}

		pr.HasAccount = len(v.ConfigsFor(p)) > 0
		report.Platforms = append(report.Platforms, pr)
	}

	return report
}

func fieldSet(c models.PlatformContent, field string) bool {
	switch field {
	case "title":
		return c.Title != ""
	case "description":
		return c.Description != ""
	case "caption":
		return c.Caption != ""
	}
	return false
}

// Workflow is the state machine driving a video from review to publish.
// Operations are sequential and assume a single interactive operator per
// asset; writes are last-write-wins at field-group granularity.
type Workflow struct {
	store    AssetStore
	stats    StatsRecomputer
	accounts AccountDirectory
	registry AdapterRegistry
	media    MediaRemover
}

func NewWorkflow(store AssetStore, stats StatsRecomputer, accounts AccountDirectory, registry AdapterRegistry, media MediaRemover) *Workflow {
	return &Workflow{store: store, stats: stats, accounts: accounts, registry: registry, media: media}
}

// Approve validates readiness and queues the video for distribution. On
// guard failure the report is returned inside NotReadyError so the caller
// can show which platform failed which rule. Only pre-approval states can
// be approved: a scheduled or published video must go through
// CancelSchedule or ForceRevert first, a dismissed one through Restore.
func (w *Workflow) Approve(ctx context.Context, v *models.VideoAsset) (ReadinessReport, error) {
	switch v.Status {
	case models.StatusApproved, models.StatusScheduled, models.StatusPublished, models.StatusDismissed:
		return ReadinessReport{}, &TransitionError{Op: "approve", Status: v.Status}
	}

	report := EvaluateReadiness(v)
	if !report.Ready() {
		return report, &NotReadyError{Report: report}
	}

	materialize(v)
	if err := w.store.SaveDistribution(ctx, v); err != nil {
		return report, fmt.Errorf("failed to persist distribution config: %w", err)
	}
	if err := w.setStatus(ctx, v, models.StatusApproved); err != nil {
		return report, err
	}

	w.recomputeStats(ctx, v)
	return report, nil
}

// Distribute invokes each config entry's platform adapter in sequence.
// Remote ids are recorded and persisted entry by entry; a failure aborts
// the remainder without rolling back earlier successes and leaves the
// status untouched. On full success the video becomes scheduled or
// published depending on scheduleAt.
func (w *Workflow) Distribute(ctx context.Context, v *models.VideoAsset, configs []models.DistributionConfig, scheduleAt *time.Time) error {
	if v.Status != models.StatusApproved {
		return &TransitionError{Op: "distribute", Status: v.Status}
	}
	if len(configs) == 0 {
		return fmt.Errorf("distribution config is empty")
	}

	v.DistributionConfig = configs
	materialize(v)

	for i := range v.DistributionConfig {
		entry := &v.DistributionConfig[i]

		adapter, ok := w.registry.For(entry.Platform)
		if !ok {
			continue
		}

		account, err := w.accounts.Get(ctx, entry.AccountID)
		if err != nil {
			return fmt.Errorf("failed to resolve account %s for %s: %w", entry.AccountID, entry.Platform, err)
		}

		remoteID, err := w.publishWithFallback(ctx, adapter, account, v.PublicURL, *entry, scheduleAt)
		if err != nil {
			return err
		}

		entry.ExternalID = remoteID
		if err := w.store.SaveDistribution(ctx, v); err != nil {
			return fmt.Errorf("failed to persist external id for %s: %w", entry.Platform, err)
		}
	}

	status := models.StatusPublished
	if scheduleAt != nil {
		status = models.StatusScheduled
	}

	if err := w.store.SetSchedule(ctx, v.ID, scheduleAt); err != nil {
		return fmt.Errorf("failed to persist schedule: %w", err)
	}
	v.ScheduledDate = scheduleAt

	if err := w.setStatus(ctx, v, status); err != nil {
		return err
	}

	w.recomputeStats(ctx, v)
	return nil
}

// publishWithFallback retries exactly once with the integration's fallback
// credentials when the primary token has expired.
func (w *Workflow) publishWithFallback(ctx context.Context, adapter adapters.Adapter, account *models.Integration, mediaURL string, entry models.DistributionConfig, scheduleAt *time.Time) (string, error) {
	remoteID, err := adapter.Publish(ctx, account.Credentials, mediaURL, entry.Metadata, entry.PostType, scheduleAt)
	if err == nil {
		return remoteID, nil
	}

	if adapters.IsAuthExpired(err) && account.FallbackCredentials != nil {
		log.Printf("Primary credentials expired for %s account %s, retrying with fallback", entry.Platform, account.ID)
		return adapter.Publish(ctx, *account.FallbackCredentials, mediaURL, entry.Metadata, entry.PostType, scheduleAt)
	}
	return "", err
}

// CancelSchedule reverses a scheduled distribution. Remote deletion is
// best-effort: already-gone posts count as deleted, other adapter errors
// are logged and returned as warnings while the local cancellation still
// completes. Local state clearing is never blocked by remote failures.
func (w *Workflow) CancelSchedule(ctx context.Context, v *models.VideoAsset) ([]string, error) {
	if v.Status != models.StatusScheduled {
		return nil, &TransitionError{Op: "cancel the schedule of", Status: v.Status}
	}

	var warnings []string
	for i := range v.DistributionConfig {
		entry := &v.DistributionConfig[i]
		if entry.ExternalID == "" {
			continue
		}

		adapter, ok := w.registry.For(entry.Platform)
		if !ok {
			entry.ExternalID = ""
			continue
		}

		account, err := w.accounts.Get(ctx, entry.AccountID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: could not resolve account: %v", entry.Platform, err))
			entry.ExternalID = ""
			continue
		}

		if err := adapter.DeleteRemote(ctx, account.Credentials, entry.ExternalID); err != nil && !adapters.IsNotFound(err) {
			log.Printf("Remote delete failed for %s post %s: %v", entry.Platform, entry.ExternalID, err)
			warnings = append(warnings, fmt.Sprintf("%s: remote delete failed: %v", entry.Platform, err))
		}
		entry.ExternalID = ""
	}

	if err := w.store.SaveDistribution(ctx, v); err != nil {
		return warnings, fmt.Errorf("failed to persist cleared config: %w", err)
	}
	if err := w.store.SetSchedule(ctx, v.ID, nil); err != nil {
		return warnings, fmt.Errorf("failed to clear schedule: %w", err)
	}
	v.ScheduledDate = nil

	if err := w.setStatus(ctx, v, models.StatusApproved); err != nil {
		return warnings, err
	}

	w.recomputeStats(ctx, v)
	return warnings, nil
}

// Unapprove sends an approved video back to review.
func (w *Workflow) Unapprove(ctx context.Context, v *models.VideoAsset) error {
	if v.Status != models.StatusApproved {
		return &TransitionError{Op: "unapprove", Status: v.Status}
	}
	if err := w.setStatus(ctx, v, models.StatusPending); err != nil {
		return err
	}
	w.recomputeStats(ctx, v)
	return nil
}

// ForceRevert is the admin override that reverts a scheduled or published
// video to review WITHOUT any remote cleanup. Remote posts stay live; the
// externalIds remain on the config entries as the only record of them.
func (w *Workflow) ForceRevert(ctx context.Context, v *models.VideoAsset) error {
	if v.Status != models.StatusScheduled && v.Status != models.StatusPublished {
		return &TransitionError{Op: "force-revert", Status: v.Status}
	}

	for _, entry := range v.DistributionConfig {
		if entry.ExternalID != "" {
			log.Printf("WARNING: force-revert of video %s leaves %s post %s live", v.ID, entry.Platform, entry.ExternalID)
		}
	}

	if err := w.store.SetSchedule(ctx, v.ID, nil); err != nil {
		return fmt.Errorf("failed to clear schedule: %w", err)
	}
	v.ScheduledDate = nil

	if err := w.setStatus(ctx, v, models.StatusPending); err != nil {
		return err
	}
	w.recomputeStats(ctx, v)
	return nil
}

// Dismiss discards a video. Only pre-approval states can be dismissed.
func (w *Workflow) Dismiss(ctx context.Context, v *models.VideoAsset) error {
	switch v.Status {
	case models.StatusApproved, models.StatusScheduled, models.StatusPublished, models.StatusDismissed:
		return &TransitionError{Op: "dismiss", Status: v.Status}
	}
	if err := w.setStatus(ctx, v, models.StatusDismissed); err != nil {
		return err
	}
	w.recomputeStats(ctx, v)
	return nil
}

// Restore brings a dismissed video back to review.
func (w *Workflow) Restore(ctx context.Context, v *models.VideoAsset) error {
	if v.Status != models.StatusDismissed {
		return &TransitionError{Op: "restore", Status: v.Status}
	}
	if err := w.setStatus(ctx, v, models.StatusPending); err != nil {
		return err
	}
	w.recomputeStats(ctx, v)
	return nil
}

// Delete removes the backing media (best-effort) and the asset record.
func (w *Workflow) Delete(ctx context.Context, v *models.VideoAsset) error {
	if w.media != nil && v.StoragePath != "" {
		if err := w.media.Remove(ctx, v.StoragePath); err != nil {
			log.Printf("Failed to remove media for video %s: %v", v.ID, err)
		}
	}

	if err := w.store.Delete(ctx, v.ID); err != nil {
		return fmt.Errorf("failed to delete video record: %w", err)
	}

	w.recomputeStats(ctx, v)
	return nil
}

func (w *Workflow) setStatus(ctx context.Context, v *models.VideoAsset, status string) error {
	if err := w.store.SetStatus(ctx, v.ID, status); err != nil {
		return fmt.Errorf("failed to set status %s: %w", status, err)
	}
	v.Status = status
	return nil
}

// recomputeStats runs after every status-mutating operation. A failure is
// logged, never propagated: stats are a cache and the next recomputation
// corrects them.
func (w *Workflow) recomputeStats(ctx context.Context, v *models.VideoAsset) {
	if v.ProjectID == nil {
		return
	}
	if err := w.stats.Recompute(ctx, *v.ProjectID); err != nil {
		log.Printf("Project stats recomputation failed for %s: %v", *v.ProjectID, err)
	}
}
