package distribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"crosspost-backend/internal/adapters"
	"crosspost-backend/internal/models"
	"crosspost-backend/internal/platform"
)

// ─── Fakes ───

type fakeStore struct {
	saves      int
	lastConfig []models.DistributionConfig
	statuses   []string
	schedules  []*time.Time
	deleted    []uuid.UUID
	saveErr    error
	statusErr  error
}

func (s *fakeStore) SaveDistribution(ctx context.Context, v *models.VideoAsset) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.lastConfig = append([]models.DistributionConfig(nil), v.DistributionConfig...)
	return nil
}

func (s *fakeStore) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *fakeStore) SetSchedule(ctx context.Context, id uuid.UUID, scheduledDate *time.Time) error {
	s.schedules = append(s.schedules, scheduledDate)
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type fakeStats struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeStats) Recompute(ctx context.Context, projectID uuid.UUID) error {
	f.calls = append(f.calls, projectID)
	return f.err
}

type fakeAccounts struct {
	accounts map[uuid.UUID]*models.Integration
}

func (f *fakeAccounts) Get(ctx context.Context, id uuid.UUID) (*models.Integration, error) {
	if a, ok := f.accounts[id]; ok {
		return a, nil
	}
	return nil, errors.New("integration not found")
}

type fakeAdapter struct {
	remoteID    string
	publishErr  error
	deleteErr   error
	published   int
	deleted     []string
	lastCreds   models.Credentials
	lastSchedAt *time.Time
}

func (a *fakeAdapter) Publish(ctx context.Context, creds models.Credentials, mediaURL string, meta models.PlatformContent, subType string, scheduleAt *time.Time) (string, error) {
	a.published++
	a.lastCreds = creds
	a.lastSchedAt = scheduleAt
	if a.publishErr != nil {
		return "", a.publishErr
	}
	return a.remoteID, nil
}

func (a *fakeAdapter) DeleteRemote(ctx context.Context, creds models.Credentials, remoteID string) error {
	a.deleted = append(a.deleted, remoteID)
	return a.deleteErr
}

func (a *fakeAdapter) FetchStats(ctx context.Context, creds models.Credentials) (*models.AccountStats, error) {
	return &models.AccountStats{}, nil
}

type fakeMedia struct {
	removed []string
}

func (f *fakeMedia) Remove(ctx context.Context, storagePath string) error {
	f.removed = append(f.removed, storagePath)
	return nil
}

func newTestAsset(status string) *models.VideoAsset {
	projectID := uuid.New()
	return &models.VideoAsset{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		ProjectID: &projectID,
		PublicURL: "https://cdn.example.com/v.mp4",
		Status:    status,
		Width:     1080,
		Height:    1920,
		Duration:  45,
	}
}

func newWorkflow(store *fakeStore, stats *fakeStats, accounts *fakeAccounts, registry adapters.Registry) *Workflow {
	return NewWorkflow(store, stats, accounts, registry, &fakeMedia{})
}

// ─── Readiness / Approve ───

func TestApproveMissingAccountIsFlaggedPerPlatform(t *testing.T) {
	v := newTestAsset(models.StatusPending)
	v.Platforms = []string{platform.YouTube}
	v.Content = map[string]models.PlatformContent{
		platform.YouTube: {Title: "Launch video", Description: "Full description"},
	}
	// Metadata complete, but no config entry for youtube.

	store := &fakeStore{}
	w := newWorkflow(store, &fakeStats{}, &fakeAccounts{}, adapters.Registry{})

	report, err := w.Approve(context.Background(), v)
	var nre *NotReadyError
	if !errors.As(err, &nre) {
		t.Fatalf("expected NotReadyError, got %v", err)
	}

	if len(report.Platforms) != 1 {
		t.Fatalf("expected 1 platform in report, got %d", len(report.Platforms))
	}
	pr := report.Platforms[0]
	if pr.Platform != platform.YouTube {
		t.Errorf("report platform = %q", pr.Platform)
	}
	if !pr.MetadataComplete {
		t.Error("metadata should be complete; failure must be attributed to the missing account")
	}
	if pr.HasAccount {
		t.Error("HasAccount should be false with zero config entries")
	}
	if len(store.statuses) != 0 {
		t.Errorf("status must not change on guard failure, wrote %v", store.statuses)
	}
}

func TestApproveMissingMetadataNamesFields(t *testing.T) {
	v := newTestAsset(models.StatusPending)
	v.Platforms = []string{platform.YouTube, platform.Instagram}
	v.Content = map[string]models.PlatformContent{
		platform.YouTube:   {Title: "Has a title"}, // description missing
		platform.Instagram: {Caption: "ready"},
	}
	v.DistributionConfig = []models.DistributionConfig{
		{Platform: platform.YouTube, AccountID: uuid.New()},
		{Platform: platform.Instagram, AccountID: uuid.New()},
	}

	report := EvaluateReadiness(v)
	if report.Ready() {
		t.Fatal("report should not be ready")
	}

	for _, pr := range report.Platforms {
		switch pr.Platform {
		case platform.YouTube:
			if pr.MetadataComplete {
				t.Error("youtube metadata should be incomplete")
			}
			if len(pr.MissingFields) != 1 || pr.MissingFields[0] != "description" {
				t.Errorf("youtube missing fields = %v, want [description]", pr.MissingFields)
			}
		case platform.Instagram:
			if !pr.Ready() {
				t.Errorf("instagram should be ready, got %+v", pr)
			}
		}
	}
}

func TestApproveNoPlatforms(t *testing.T) {
	v := newTestAsset(models.StatusPending)
	report := EvaluateReadiness(v)
	if report.HasPlatforms || report.Ready() {
		t.Errorf("asset without platforms must not be ready: %+v", report)
	}
}

func TestApproveSuccess(t *testing.T) {
	v := newTestAsset(models.StatusPending)
	v.Platforms = []string{platform.TikTok}
	v.Content = map[string]models.PlatformContent{platform.TikTok: {Caption: "hello"}}
	v.DistributionConfig = []models.DistributionConfig{
		{Platform: platform.TikTok, AccountID: uuid.New(), PostType: platform.SubTypeVideo},
	}

	store := &fakeStore{}
	stats := &fakeStats{}
	w := newWorkflow(store, stats, &fakeAccounts{}, adapters.Registry{})

	report, err := w.Approve(context.Background(), v)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if !report.Ready() {
		t.Errorf("report should be ready: %+v", report)
	}
	if v.Status != models.StatusApproved {
		t.Errorf("status = %q, want approved", v.Status)
	}
	if store.saves != 1 {
		t.Errorf("config should be persisted once, got %d saves", store.saves)
	}
	if len(stats.calls) != 1 {
		t.Errorf("stats should be recomputed once, got %d", len(stats.calls))
	}
}

func TestApproveStatsFailureDoesNotRollBack(t *testing.T) {
	v := newTestAsset(models.StatusPending)
	v.Platforms = []string{platform.TikTok}
	v.Content = map[string]models.PlatformContent{platform.TikTok: {Caption: "hello"}}
	v.DistributionConfig = []models.DistributionConfig{
		{Platform: platform.TikTok, AccountID: uuid.New()},
	}

	w := newWorkflow(&fakeStore{}, &fakeStats{err: errors.New("stats db down")}, &fakeAccounts{}, adapters.Registry{})

	if _, err := w.Approve(context.Background(), v); err != nil {
		t.Fatalf("stats failure must not fail the approval: %v", err)
	}
	if v.Status != models.StatusApproved {
		t.Errorf("status = %q, want approved", v.Status)
	}
}

func TestApproveRejectedFromPostApprovalStates(t *testing.T) {
	for _, status := range []string{
		models.StatusApproved,
		models.StatusScheduled,
		models.StatusPublished,
		models.StatusDismissed,
	} {
		t.Run(status, func(t *testing.T) {
			v := newTestAsset(status)
			v.Platforms = []string{platform.TikTok}
			v.Content = map[string]models.PlatformContent{platform.TikTok: {Caption: "hello"}}
			v.DistributionConfig = []models.DistributionConfig{
				{Platform: platform.TikTok, AccountID: uuid.New(), ExternalID: "tt-live"},
			}
			scheduled := time.Now().Add(time.Hour)
			v.ScheduledDate = &scheduled

			store := &fakeStore{}
			_, err := newWorkflow(store, &fakeStats{}, &fakeAccounts{}, adapters.Registry{}).Approve(context.Background(), v)

			var te *TransitionError
			if !errors.As(err, &te) {
				t.Fatalf("expected TransitionError, got %v", err)
			}
			if v.Status != status {
				t.Errorf("status = %q, want %q unchanged", v.Status, status)
			}
			if len(store.statuses) != 0 || store.saves != 0 {
				t.Errorf("guard failure must not write, got %d status writes and %d saves", len(store.statuses), store.saves)
			}
			if v.ScheduledDate == nil || v.DistributionConfig[0].ExternalID != "tt-live" {
				t.Error("schedule and remote ids must survive a rejected approval untouched")
			}
		})
	}
}

// ─── Distribute ───

func TestDistributePartialFailure(t *testing.T) {
	v := newTestAsset(models.StatusApproved)
	accountA, accountB := uuid.New(), uuid.New()
	v.Platforms = []string{platform.YouTube, platform.Instagram}

	configs := []models.DistributionConfig{
		{Platform: platform.YouTube, AccountID: accountA, PostType: platform.SubTypeShorts,
			Metadata: models.PlatformContent{Title: "t", Description: "d"}},
		{Platform: platform.Instagram, AccountID: accountB, PostType: platform.SubTypeReel,
			Metadata: models.PlatformContent{Caption: "c"}},
	}

	okAdapter := &fakeAdapter{remoteID: "yt-123"}
	failAdapter := &fakeAdapter{publishErr: &adapters.Error{Platform: "instagram", Reason: adapters.ReasonOther, Message: "quota exceeded"}}
	registry := adapters.Registry{platform.YouTube: okAdapter, platform.Instagram: failAdapter}

	accounts := &fakeAccounts{accounts: map[uuid.UUID]*models.Integration{
		accountA: {ID: accountA, Platform: platform.YouTube},
		accountB: {ID: accountB, Platform: platform.Instagram},
	}}

	store := &fakeStore{}
	w := newWorkflow(store, &fakeStats{}, accounts, registry)

	err := w.Distribute(context.Background(), v, configs, nil)
	if err == nil {
		t.Fatal("expected the instagram failure to propagate")
	}

	if v.DistributionConfig[0].ExternalID != "yt-123" {
		t.Errorf("youtube entry external id = %q, want yt-123", v.DistributionConfig[0].ExternalID)
	}
	if v.DistributionConfig[1].ExternalID != "" {
		t.Errorf("instagram entry external id should be empty, got %q", v.DistributionConfig[1].ExternalID)
	}
	if v.Status != models.StatusApproved {
		t.Errorf("status = %q, must remain approved", v.Status)
	}
	if len(store.statuses) != 0 {
		t.Errorf("no status write expected, got %v", store.statuses)
	}
	// The successful entry's external id was persisted before the failure.
	if store.saves != 1 || store.lastConfig[0].ExternalID != "yt-123" {
		t.Errorf("expected one persisted save carrying yt-123, saves=%d config=%+v", store.saves, store.lastConfig)
	}
}

func TestDistributeImmediatePublish(t *testing.T) {
	v := newTestAsset(models.StatusApproved)
	account := uuid.New()
	v.Platforms = []string{platform.TikTok}

	configs := []models.DistributionConfig{
		{Platform: platform.TikTok, AccountID: account, PostType: platform.SubTypeVideo,
			Metadata: models.PlatformContent{Caption: "c"}},
	}

	adapter := &fakeAdapter{remoteID: "tt-1"}
	registry := adapters.Registry{platform.TikTok: adapter}
	accounts := &fakeAccounts{accounts: map[uuid.UUID]*models.Integration{
		account: {ID: account, Platform: platform.TikTok},
	}}

	store := &fakeStore{}
	stats := &fakeStats{}
	w := newWorkflow(store, stats, accounts, registry)

	if err := w.Distribute(context.Background(), v, configs, nil); err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if v.Status != models.StatusPublished {
		t.Errorf("status = %q, want published", v.Status)
	}
	if v.ScheduledDate != nil {
		t.Error("scheduledDate must stay nil on immediate publish")
	}
	if adapter.lastSchedAt != nil {
		t.Error("adapter should receive nil schedule on immediate publish")
	}
	if len(stats.calls) != 1 {
		t.Errorf("stats recomputed %d times, want 1", len(stats.calls))
	}
}

func TestDistributeScheduled(t *testing.T) {
	v := newTestAsset(models.StatusApproved)
	account := uuid.New()

	configs := []models.DistributionConfig{
		{Platform: platform.YouTube, AccountID: account, PostType: platform.SubTypeVideo,
			Metadata: models.PlatformContent{Title: "t", Description: "d"}},
	}

	registry := adapters.Registry{platform.YouTube: &fakeAdapter{remoteID: "yt-9"}}
	accounts := &fakeAccounts{accounts: map[uuid.UUID]*models.Integration{
		account: {ID: account, Platform: platform.YouTube},
	}}

	at := time.Now().Add(48 * time.Hour)
	w := newWorkflow(&fakeStore{}, &fakeStats{}, accounts, registry)

	if err := w.Distribute(context.Background(), v, configs, &at); err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if v.Status != models.StatusScheduled {
		t.Errorf("status = %q, want scheduled", v.Status)
	}
	if v.ScheduledDate == nil || !v.ScheduledDate.Equal(at) {
		t.Errorf("scheduledDate = %v, want %v", v.ScheduledDate, at)
	}
}

func TestDistributeRequiresApproved(t *testing.T) {
	v := newTestAsset(models.StatusPending)
	w := newWorkflow(&fakeStore{}, &fakeStats{}, &fakeAccounts{}, adapters.Registry{})

	err := w.Distribute(context.Background(), v, []models.DistributionConfig{{Platform: platform.TikTok}}, nil)
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
}

func TestDistributeEmptyConfig(t *testing.T) {
	v := newTestAsset(models.StatusApproved)
	w := newWorkflow(&fakeStore{}, &fakeStats{}, &fakeAccounts{}, adapters.Registry{})
	if err := w.Distribute(context.Background(), v, nil, nil); err == nil {
		t.Fatal("empty config list must be rejected")
	}
}

func TestDistributeAuthExpiredFallback(t *testing.T) {
	v := newTestAsset(models.StatusApproved)
	account := uuid.New()

	configs := []models.DistributionConfig{
		{Platform: platform.YouTube, AccountID: account, PostType: platform.SubTypeVideo,
			Metadata: models.PlatformContent{Title: "t", Description: "d"}},
	}

	calls := 0
	adapter := &flakyAuthAdapter{calls: &calls, remoteID: "yt-fb"}
	registry := adapters.Registry{platform.YouTube: adapter}
	accounts := &fakeAccounts{accounts: map[uuid.UUID]*models.Integration{
		account: {
			ID:                  account,
			Platform:            platform.YouTube,
			Credentials:         models.Credentials{AccessToken: "expired"},
			FallbackCredentials: &models.Credentials{AccessToken: "fresh"},
		},
	}}

	w := newWorkflow(&fakeStore{}, &fakeStats{}, accounts, registry)
	if err := w.Distribute(context.Background(), v, configs, nil); err != nil {
		t.Fatalf("fallback retry should succeed: %v", err)
	}
	if calls != 2 {
		t.Errorf("adapter called %d times, want 2 (primary + fallback)", calls)
	}
	if v.DistributionConfig[0].ExternalID != "yt-fb" {
		t.Errorf("external id = %q", v.DistributionConfig[0].ExternalID)
	}
}

// flakyAuthAdapter fails with auth_expired on the stale token only.
type flakyAuthAdapter struct {
	calls    *int
	remoteID string
}

func (a *flakyAuthAdapter) Publish(ctx context.Context, creds models.Credentials, mediaURL string, meta models.PlatformContent, subType string, scheduleAt *time.Time) (string, error) {
	*a.calls++
	if creds.AccessToken == "expired" {
		return "", &adapters.Error{Platform: "youtube", Reason: adapters.ReasonAuthExpired, Message: "token expired"}
	}
	return a.remoteID, nil
}

func (a *flakyAuthAdapter) DeleteRemote(ctx context.Context, creds models.Credentials, remoteID string) error {
	return nil
}

func (a *flakyAuthAdapter) FetchStats(ctx context.Context, creds models.Credentials) (*models.AccountStats, error) {
	return &models.AccountStats{}, nil
}

// ─── CancelSchedule ───

func TestCancelScheduleNotFoundIsSuccess(t *testing.T) {
	v := newTestAsset(models.StatusScheduled)
	account := uuid.New()
	at := time.Now().Add(time.Hour)
	v.ScheduledDate = &at
	v.DistributionConfig = []models.DistributionConfig{
		{Platform: platform.YouTube, AccountID: account, ExternalID: "yt-gone"},
	}

	adapter := &fakeAdapter{deleteErr: &adapters.Error{Platform: "youtube", Reason: adapters.ReasonNotFound, Message: "video not found"}}
	registry := adapters.Registry{platform.YouTube: adapter}
	accounts := &fakeAccounts{accounts: map[uuid.UUID]*models.Integration{
		account: {ID: account, Platform: platform.YouTube},
	}}

	store := &fakeStore{}
	w := newWorkflow(store, &fakeStats{}, accounts, registry)

	warnings, err := w.CancelSchedule(context.Background(), v)
	if err != nil {
		t.Fatalf("CancelSchedule failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("not-found must not produce warnings, got %v", warnings)
	}
	if v.Status != models.StatusApproved {
		t.Errorf("status = %q, want approved", v.Status)
	}
	if v.ScheduledDate != nil {
		t.Error("scheduledDate should be cleared")
	}
	if v.DistributionConfig[0].ExternalID != "" {
		t.Errorf("external id should be cleared, got %q", v.DistributionConfig[0].ExternalID)
	}
	if len(adapter.deleted) != 1 || adapter.deleted[0] != "yt-gone" {
		t.Errorf("remote delete calls = %v", adapter.deleted)
	}
}

func TestCancelScheduleOtherErrorIsWarning(t *testing.T) {
	v := newTestAsset(models.StatusScheduled)
	account := uuid.New()
	at := time.Now().Add(time.Hour)
	v.ScheduledDate = &at
	v.DistributionConfig = []models.DistributionConfig{
		{Platform: platform.Instagram, AccountID: account, ExternalID: "ig-1"},
	}

	adapter := &fakeAdapter{deleteErr: &adapters.Error{Platform: "instagram", Reason: adapters.ReasonOther, Message: "server error"}}
	registry := adapters.Registry{platform.Instagram: adapter}
	accounts := &fakeAccounts{accounts: map[uuid.UUID]*models.Integration{
		account: {ID: account, Platform: platform.Instagram},
	}}

	w := newWorkflow(&fakeStore{}, &fakeStats{}, accounts, registry)

	warnings, err := w.CancelSchedule(context.Background(), v)
	if err != nil {
		t.Fatalf("cancel must still complete locally: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if v.Status != models.StatusApproved || v.ScheduledDate != nil || v.DistributionConfig[0].ExternalID != "" {
		t.Errorf("local state not cleared: status=%q sched=%v ext=%q", v.Status, v.ScheduledDate, v.DistributionConfig[0].ExternalID)
	}
}

func TestCancelScheduleRequiresScheduled(t *testing.T) {
	v := newTestAsset(models.StatusPublished)
	w := newWorkflow(&fakeStore{}, &fakeStats{}, &fakeAccounts{}, adapters.Registry{})
	if _, err := w.CancelSchedule(context.Background(), v); err == nil {
		t.Fatal("cancel from published must be rejected")
	}
}

// ─── Unapprove / ForceRevert / Dismiss / Restore / Delete ───

func TestUnapprove(t *testing.T) {
	v := newTestAsset(models.StatusApproved)
	stats := &fakeStats{}
	w := newWorkflow(&fakeStore{}, stats, &fakeAccounts{}, adapters.Registry{})

	if err := w.Unapprove(context.Background(), v); err != nil {
		t.Fatalf("Unapprove failed: %v", err)
	}
	if v.Status != models.StatusPending {
		t.Errorf("status = %q, want pending", v.Status)
	}
	if len(stats.calls) != 1 {
		t.Errorf("stats recomputed %d times, want 1", len(stats.calls))
	}

	if err := w.Unapprove(context.Background(), v); err == nil {
		t.Fatal("unapprove from pending must be rejected")
	}
}

func TestForceRevertKeepsExternalIDs(t *testing.T) {
	v := newTestAsset(models.StatusPublished)
	v.DistributionConfig = []models.DistributionConfig{
		{Platform: platform.YouTube, AccountID: uuid.New(), ExternalID: "yt-live"},
	}

	adapter := &fakeAdapter{}
	w := newWorkflow(&fakeStore{}, &fakeStats{}, &fakeAccounts{}, adapters.Registry{platform.YouTube: adapter})

	if err := w.ForceRevert(context.Background(), v); err != nil {
		t.Fatalf("ForceRevert failed: %v", err)
	}
	if v.Status != models.StatusPending {
		t.Errorf("status = %q, want pending", v.Status)
	}
	if len(adapter.deleted) != 0 {
		t.Error("force-revert must not touch remote posts")
	}
	if v.DistributionConfig[0].ExternalID != "yt-live" {
		t.Error("external id must survive a force-revert")
	}
}

func TestDismissAndRestore(t *testing.T) {
	v := newTestAsset(models.StatusReady)
	stats := &fakeStats{}
	w := newWorkflow(&fakeStore{}, stats, &fakeAccounts{}, adapters.Registry{})

	if err := w.Dismiss(context.Background(), v); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}
	if v.Status != models.StatusDismissed {
		t.Errorf("status = %q, want dismissed", v.Status)
	}

	if err := w.Restore(context.Background(), v); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if v.Status != models.StatusPending {
		t.Errorf("status = %q, want pending", v.Status)
	}
	if len(stats.calls) != 2 {
		t.Errorf("stats recomputed %d times, want 2", len(stats.calls))
	}
}

func TestDismissApprovedRejected(t *testing.T) {
	v := newTestAsset(models.StatusApproved)
	w := newWorkflow(&fakeStore{}, &fakeStats{}, &fakeAccounts{}, adapters.Registry{})
	if err := w.Dismiss(context.Background(), v); err == nil {
		t.Fatal("approved videos must not be dismissable")
	}
}

func TestDeleteRemovesMediaAndRecord(t *testing.T) {
	v := newTestAsset(models.StatusPending)
	v.StoragePath = "users/u/uploads/v.mp4"

	store := &fakeStore{}
	media := &fakeMedia{}
	stats := &fakeStats{}
	w := NewWorkflow(store, stats, &fakeAccounts{}, adapters.Registry{}, media)

	if err := w.Delete(context.Background(), v); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(media.removed) != 1 || media.removed[0] != v.StoragePath {
		t.Errorf("media removal calls = %v", media.removed)
	}
	if len(store.deleted) != 1 || store.deleted[0] != v.ID {
		t.Errorf("record deletion calls = %v", store.deleted)
	}
	if len(stats.calls) != 1 {
		t.Errorf("stats recomputed %d times, want 1", len(stats.calls))
	}
}
