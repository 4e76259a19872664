package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"crosspost-backend/internal/adapters"
	"crosspost-backend/internal/cache"
	"crosspost-backend/internal/distribution"
	"crosspost-backend/internal/models"
	"crosspost-backend/internal/platform"
	"crosspost-backend/internal/projects"
	"crosspost-backend/internal/repository"
	"crosspost-backend/internal/services"
	"crosspost-backend/internal/storage"
)

// Queue names, one per job type.
const (
	QueueMediaProcessing   = "queue:media-processing"
	QueueContentGeneration = "queue:content-generation"
	QueueYouTubeImport     = "queue:youtube-import"
	QueueStatsRefresh      = "queue:stats-refresh"
)

const maxTranscribeBytes = 100 * 1024 * 1024

type Pool struct {
	redis           *redis.Client
	notifier        *services.Notifier
	gemini          *services.GeminiService
	youtube         *services.YouTubeService
	store           *storage.LocalStore
	mediaCache      *cache.MediaCache
	videoRepo       *repository.VideoRepo
	jobRepo         *repository.JobRepo
	projectRepo     *repository.ProjectRepo
	integrationRepo *repository.IntegrationRepo
	adapters        adapters.Registry
	configs         *distribution.ConfigManager
	stats           *projects.Recomputer
	workerCount     int
	stopChan        chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	notifier *services.Notifier,
	gemini *services.GeminiService,
	youtube *services.YouTubeService,
	store *storage.LocalStore,
	mediaCache *cache.MediaCache,
	videoRepo *repository.VideoRepo,
	jobRepo *repository.JobRepo,
	projectRepo *repository.ProjectRepo,
	integrationRepo *repository.IntegrationRepo,
	registry adapters.Registry,
	configs *distribution.ConfigManager,
	stats *projects.Recomputer,
	workerCount int,
) *Pool {
	return &Pool{
		redis:           redisClient,
		notifier:        notifier,
		gemini:          gemini,
		youtube:         youtube,
		store:           store,
		mediaCache:      mediaCache,
		videoRepo:       videoRepo,
		jobRepo:         jobRepo,
		projectRepo:     projectRepo,
		integrationRepo: integrationRepo,
		adapters:        registry,
		configs:         configs,
		stats:           stats,
		workerCount:     workerCount,
		stopChan:        make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		QueueMediaProcessing,
		QueueContentGeneration,
		QueueYouTubeImport,
		QueueStatsRefresh,
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		// Parse job
		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		var processErr error
		switch job.Type {
		case "media-processing":
			processErr = p.processMedia(ctx, &job)
		case "content-generation":
			processErr = p.processGeneration(ctx, &job)
		case "youtube-import":
			processErr = p.processImport(ctx, &job)
		case "stats-refresh":
			processErr = p.processStatsRefresh(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

// processMedia records a freshly uploaded video's geometry and duration,
// re-derives per-platform sub-types from them, and transcribes the audio
// track so content generation has something to work from.
func (p *Pool) processMedia(ctx context.Context, job *models.Job) error {
	var info struct {
		Width    int     `json:"width"`
		Height   int     `json:"height"`
		Duration float64 `json:"duration_seconds"`
	}
	json.Unmarshal(job.ConfigJSON, &info)

	video, err := p.videoRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to load video: %w", err)
	}

	video.Width = info.Width
	video.Height = info.Height
	video.Duration = info.Duration
	video.AspectClass = models.ClassifyAspect(video.Ratio())

	if err := p.videoRepo.UpdateMediaInfo(ctx, video.ID, video.Width, video.Height, video.Duration, video.AspectClass); err != nil {
		return fmt.Errorf("failed to save media info: %w", err)
	}

	// New geometry can flip e.g. a YouTube entry between shorts and video.
	if _, err := p.configs.ApplyDerivedSubTypes(ctx, video); err != nil {
		return fmt.Errorf("failed to apply derived sub-types: %w", err)
	}

	if video.Transcription == "" {
		p.videoRepo.SetStatus(ctx, video.ID, models.StatusTranscribing)
		p.notifier.VideoUpdated(ctx, video.UserID, video.ID, models.StatusTranscribing)

		text, err := p.transcribeStored(ctx, video)
		if err != nil {
			// Transcription is best-effort; the video is still usable.
			log.Printf("Transcription failed for video %s: %v", video.ID, err)
			if err := p.videoRepo.SetStatus(ctx, video.ID, models.StatusReady); err != nil {
				return err
			}
		} else if err := p.videoRepo.UpdateTranscription(ctx, video.ID, text, models.StatusReady); err != nil {
			return fmt.Errorf("failed to save transcription: %w", err)
		}
	} else if err := p.videoRepo.SetStatus(ctx, video.ID, models.StatusReady); err != nil {
		return err
	}

	p.notifier.VideoUpdated(ctx, video.UserID, video.ID, models.StatusReady)
	p.recomputeProjectStats(ctx, video)
	return nil
}

func (p *Pool) transcribeStored(ctx context.Context, video *models.VideoAsset) (string, error) {
	var r io.ReadCloser
	if local, ok := p.mediaCache.Get(video.ID); ok {
		f, err := os.Open(local)
		if err != nil {
			return "", err
		}
		r = f
	} else {
		f, err := p.store.Open(video.StoragePath)
		if err != nil {
			return "", err
		}
		r = f
	}
	defer r.Close()

	limited := io.LimitReader(r, maxTranscribeBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", err
	}
	if len(data) > maxTranscribeBytes {
		return "", fmt.Errorf("video exceeds %d MB transcription limit", maxTranscribeBytes/(1024*1024))
	}

	mimeType := mime.TypeByExtension(filepath.Ext(video.StoragePath))
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	return p.gemini.TranscribeAudio(ctx, data, mimeType)
}

// processGeneration drafts platform metadata from the transcription and
// merges it into the video's shared content.
func (p *Pool) processGeneration(ctx context.Context, job *models.Job) error {
	var cfg struct {
		Platform string `json:"platform"`
	}
	json.Unmarshal(job.ConfigJSON, &cfg)

	if _, ok := platform.Lookup(cfg.Platform); !ok {
		return fmt.Errorf("unknown platform %q", cfg.Platform)
	}

	video, err := p.videoRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to load video: %w", err)
	}
	if video.Transcription == "" {
		return fmt.Errorf("video has no transcription yet")
	}

	// The project brief, when present, steers the draft toward the
	// client's voice. A load failure just means no brief context.
	brief := ""
	if video.ProjectID != nil {
		if project, err := p.projectRepo.GetByID(ctx, *video.ProjectID); err == nil && project.BriefText != nil {
			brief = *project.BriefText
		}
	}

	suggestion, err := p.gemini.SuggestContent(ctx, video.Transcription, brief, cfg.Platform, video.PostTypes[cfg.Platform])
	if err != nil {
		return err
	}

	patch := models.ContentPatch{}
	if suggestion.Title != "" {
		patch.Title = &suggestion.Title
	}
	if suggestion.Description != "" {
		patch.Description = &suggestion.Description
	}
	if suggestion.Caption != "" {
		patch.Caption = &suggestion.Caption
	}
	if len(suggestion.Tags) > 0 {
		patch.Tags = &suggestion.Tags
	}

	if err := p.configs.SyncMetadata(video, cfg.Platform, patch); err != nil {
		return err
	}
	if err := p.configs.ExplicitSave(ctx, video); err != nil {
		return fmt.Errorf("failed to save generated content: %w", err)
	}

	p.notifier.VideoUpdated(ctx, video.UserID, video.ID, video.Status)
	return nil
}

// processImport pulls an existing YouTube upload into local storage and
// seeds the video record with its metadata, captions included.
func (p *Pool) processImport(ctx context.Context, job *models.Job) error {
	var cfg struct {
		URL string `json:"url"`
	}
	json.Unmarshal(job.ConfigJSON, &cfg)

	video, err := p.videoRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to load video: %w", err)
	}

	videoID, err := p.youtube.ParseVideoID(cfg.URL)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "ytimport-*.mp4")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	imported, err := p.youtube.DownloadVideo(cfg.URL, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	storagePath, size, err := p.store.Save(video.UserID, "videos", "import.mp4", f)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to store imported video: %w", err)
	}

	// Keep the download around; transcription may want it next.
	p.mediaCache.Put(video.ID, tmpPath)

	video.StoragePath = storagePath
	video.PublicURL = p.store.PublicURL(storagePath)
	video.FileSize = size
	if err := p.videoRepo.UpdateStorage(ctx, video.ID, storagePath, video.PublicURL, size); err != nil {
		return fmt.Errorf("failed to save storage info: %w", err)
	}

	video.Width = imported.Width
	video.Height = imported.Height
	video.Duration = imported.Duration
	video.AspectClass = models.ClassifyAspect(video.Ratio())
	if err := p.videoRepo.UpdateMediaInfo(ctx, video.ID, video.Width, video.Height, video.Duration, video.AspectClass); err != nil {
		return fmt.Errorf("failed to save media info: %w", err)
	}

	// Carry the original title and description into the YouTube shared
	// content as a starting point.
	patch := models.ContentPatch{}
	if imported.Title != "" {
		patch.Title = &imported.Title
	}
	if imported.Description != "" {
		patch.Description = &imported.Description
	}
	if err := p.configs.SyncMetadata(video, platform.YouTube, patch); err != nil {
		return err
	}
	if _, err := p.configs.ApplyDerivedSubTypes(ctx, video); err != nil {
		return err
	}
	if err := p.configs.ExplicitSave(ctx, video); err != nil {
		return err
	}

	transcript, err := p.youtube.GetTranscript(videoID)
	if err != nil {
		log.Printf("No captions for %s, falling back to speech-to-text: %v", videoID, err)
		audio, mimeType, audioErr := p.youtube.DownloadAudio(cfg.URL)
		if audioErr == nil {
			transcript, err = p.gemini.TranscribeAudio(ctx, audio, mimeType)
		} else {
			err = audioErr
		}
	}
	if err != nil {
		log.Printf("Transcription failed for imported video %s: %v", video.ID, err)
		if err := p.videoRepo.SetStatus(ctx, video.ID, models.StatusReady); err != nil {
			return err
		}
	} else if err := p.videoRepo.UpdateTranscription(ctx, video.ID, transcript, models.StatusReady); err != nil {
		return fmt.Errorf("failed to save transcription: %w", err)
	}

	p.notifier.VideoUpdated(ctx, video.UserID, video.ID, models.StatusReady)
	p.recomputeProjectStats(ctx, video)
	return nil
}

// processStatsRefresh pulls follower and view counts for one connected
// account from its platform API.
func (p *Pool) processStatsRefresh(ctx context.Context, job *models.Job) error {
	integration, err := p.integrationRepo.Get(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to load integration: %w", err)
	}

	adapter, ok := p.adapters.For(integration.Platform)
	if !ok {
		return fmt.Errorf("no adapter for platform %q", integration.Platform)
	}

	stats, err := adapter.FetchStats(ctx, integration.Credentials)
	if err != nil && adapters.IsAuthExpired(err) && integration.FallbackCredentials != nil {
		stats, err = adapter.FetchStats(ctx, *integration.FallbackCredentials)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch account stats: %w", err)
	}

	return p.integrationRepo.UpdateStats(ctx, integration.ID, stats)
}

func (p *Pool) recomputeProjectStats(ctx context.Context, video *models.VideoAsset) {
	if video.ProjectID == nil {
		return
	}
	if err := p.stats.Recompute(ctx, *video.ProjectID); err != nil {
		log.Printf("Failed to recompute stats for project %s: %v", *video.ProjectID, err)
	}
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.jobRepo.MarkCompleted(ctx, job.ID)

	p.notifier.Publish(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultID:   job.ReferenceID,
			ResultType: resultType(job.Type),
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < job.MaxRetries {
		// Re-queue with backoff
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "queued")
		p.jobRepo.IncrementRetry(ctx, job.ID)

		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), "queue:"+job.Type, string(jobBytes))
		})
		return
	}

	// Max retries reached
	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobRepo.MarkFailed(ctx, job.ID, errMsg)
	if job.Type == "media-processing" || job.Type == "youtube-import" {
		p.videoRepo.SetStatus(ctx, job.ReferenceID, models.StatusError)
	}

	p.notifier.Publish(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "JOB_FAILED",
			ErrorMessage: errMsg,
		},
	})
}

func resultType(jobType string) string {
	switch jobType {
	case "stats-refresh":
		return "integration"
	default:
		return "video"
	}
}
