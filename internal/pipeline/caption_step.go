package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/providers"
	"gorm.io/datatypes"
)

const StepNameCaption = "caption"

// CaptionStep generates captions for the subject's photos still in the
// generated stage. It queries its own input set rather than trusting the
// context, so a resumed run only captions what is actually left.
type CaptionStep struct {
	photos    PhotoStore
	accounts  SettingsGetter
	captioner providers.Captioner
}

func NewCaptionStep(photos PhotoStore, accounts SettingsGetter, captioner providers.Captioner) *CaptionStep {
	return &CaptionStep{photos: photos, accounts: accounts, captioner: captioner}
}

func (s *CaptionStep) Name() string { return StepNameCaption }

func (s *CaptionStep) Run(ctx context.Context, pctx *Context) StepResult {
	photos, err := s.photos.ListPhotosByStatus(ctx, pctx.SubjectID, config.PhotoStatusGenerated)
	if err != nil {
		return Fail(fmt.Errorf("list photos awaiting captions: %w", err))
	}
	if len(photos) == 0 {
		return Skip("no photos awaiting captions")
	}

	req := s.captionPolicy(ctx, pctx.SubjectID)

	for _, photo := range photos {
		req.ImageURL = photo.ImageURL
		result, err := s.captioner.GenerateCaption(ctx, req)
		if err != nil {
			return Fail(fmt.Errorf("generate caption for photo %d: %w", photo.ID, err))
		}

		tags := normalizeHashtags(result.Hashtags)
		caption := composeCaption(result.Caption, tags)

		var tagsJSON datatypes.JSON
		if len(tags) > 0 {
			raw, err := json.Marshal(tags)
			if err != nil {
				return Fail(fmt.Errorf("encode hashtags for photo %d: %w", photo.ID, err))
			}
			tagsJSON = raw
		}
		if err := s.photos.SetPhotoCaption(ctx, photo.ID, caption, tagsJSON); err != nil {
			return Fail(err)
		}

		pctx.CaptionedPhotoIDs = append(pctx.CaptionedPhotoIDs, photo.ID)
		pctx.Captions[photo.ID] = caption
	}

	return Succeed(map[string]any{"captioned": len(photos)})
}

// captionPolicy loads the account's caption settings, falling back to the
// defaults when the account has none. A settings read failure is not worth
// failing the step over.
func (s *CaptionStep) captionPolicy(ctx context.Context, subjectID uint) providers.CaptionRequest {
	req := providers.CaptionRequest{
		Tone:         "casual",
		MaxLength:    200,
		UseEmojis:    true,
		HashtagCount: 5,
	}

	settings, err := s.accounts.GetSettings(ctx, subjectID)
	if err != nil {
		log.Printf("[pipeline] caption policy for subject %d unavailable, using defaults: %v", subjectID, err)
		return req
	}
	if settings == nil {
		return req
	}

	if settings.CaptionTone != "" {
		req.Tone = settings.CaptionTone
	}
	if settings.CaptionMaxLength > 0 {
		req.MaxLength = settings.CaptionMaxLength
	}
	req.UseEmojis = settings.UseEmojis
	if settings.HashtagCount > 0 {
		req.HashtagCount = settings.HashtagCount
	}
	return req
}

// normalizeHashtags trims, drops empties, and ensures the leading '#'.
func normalizeHashtags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		tags = append(tags, tag)
	}
	return tags
}

func composeCaption(caption string, tags []string) string {
	caption = strings.TrimSpace(caption)
	if len(tags) == 0 {
		return caption
	}
	return caption + "\n\n" + strings.Join(tags, " ")
}
