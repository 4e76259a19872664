package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"

	"google.golang.org/api/option"

	"crosspost-backend/internal/models"
	"crosspost-backend/internal/platform"
)

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.4)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// SuggestContent drafts platform metadata (title, description, caption,
// tags) for a video from its transcription. brief is the project's client
// brief text, empty when the video has no project or no brief. The draft
// lands in the asset's shared per-platform content; nothing is published
// from here.
func (s *GeminiService) SuggestContent(ctx context.Context, transcript, brief, platformID, subType string) (*models.PlatformContent, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	prompt := buildContentPrompt(transcript, brief, platformID, subType)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	rawText := extractText(resp)
	rawText = stripJSONFences(rawText)

	var draft struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Caption     string   `json:"caption"`
		Tags        []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(rawText), &draft); err != nil {
		// Try to extract the JSON object from surrounding prose
		start := strings.Index(rawText, "{")
		end := strings.LastIndex(rawText, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("Gemini returned unparseable content: %w", err)
		}
		if err := json.Unmarshal([]byte(rawText[start:end+1]), &draft); err != nil {
			return nil, fmt.Errorf("Gemini returned unparseable content: %w", err)
		}
	}

	content := &models.PlatformContent{
		Title:       clamp(draft.Title, 100),
		Description: clamp(draft.Description, 5000),
		Caption:     clamp(draft.Caption, 2200),
		Tags:        draft.Tags,
	}
	if len(content.Tags) > 15 {
		content.Tags = content.Tags[:15]
	}
	return content, nil
}

// TranscribeAudio uses the Gemini File API to transcribe uploaded audio bytes.
func (s *GeminiService) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}

	file, err := s.client.UploadFile(ctx, "", bytes.NewReader(audio), &genai.UploadFileOptions{
		DisplayName: "video-audio",
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio to Gemini: %w", err)
	}

	// Ensure remote file is cleaned up
	defer s.client.DeleteFile(context.Background(), file.Name)

	// Wait until file is active
	for i := 0; i < 20; i++ {
		current, getErr := s.client.GetFile(ctx, file.Name)
		if getErr != nil {
			return "", fmt.Errorf("failed to get uploaded file status: %w", getErr)
		}

		if current.State == genai.FileStateActive {
			file = current
			break
		}
		if current.State == genai.FileStateFailed {
			return "", fmt.Errorf("Gemini failed to process uploaded audio file")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	if file.State != genai.FileStateActive {
		return "", fmt.Errorf("audio file did not become active in time")
	}

	prompt := "Transcribe the provided audio verbatim. Return plain text only, without markdown, headers, or explanations."

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.FileData{MIMEType: mimeType, URI: file.URI},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini transcription error: %w", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty transcription")
	}

	return text, nil
}

const maxBriefPromptChars = 4000

func buildContentPrompt(transcript, brief, platformID, subType string) string {
	var b strings.Builder

	b.WriteString("You are a social media content strategist. Draft publishing metadata for a video from its transcript.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")

	switch platformID {
	case platform.YouTube:
		if subType == platform.SubTypeShorts {
			b.WriteString("Target: a YouTube Short. Punchy title under 80 characters, description under 500 characters, up to 10 tags.\n")
		} else {
			b.WriteString("Target: a standard YouTube video. Searchable title under 100 characters, detailed description, up to 15 tags.\n")
		}
	case platform.Instagram:
		b.WriteString(fmt.Sprintf("Target: an Instagram %s. Engaging caption under 2200 characters ending with 5-10 hashtags. Title and description stay empty.\n", subType))
	case platform.TikTok:
		b.WriteString("Target: a TikTok video. Short hook-driven caption under 300 characters with 3-5 hashtags. Title and description stay empty.\n")
	default:
		b.WriteString("Target: a generic social video. Provide title, description, caption, and tags.\n")
	}

	b.WriteString(`
JSON schema:
{"title": "string", "description": "string", "caption": "string", "tags": ["string"]}
`)

	if brief = strings.TrimSpace(brief); brief != "" {
		b.WriteString("\nMatch the client's voice and goals from this brief:\n---BRIEF---\n")
		b.WriteString(clamp(brief, maxBriefPromptChars))
		b.WriteString("\n---END BRIEF---\n")
	}

	b.WriteString("\n---TRANSCRIPT---\n")
	b.WriteString(transcript)
	b.WriteString("\n---END---\n")

	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
