// Package providers defines the contracts for the external AI and token
// collaborators. The implementations live outside this module; everything
// here treats them as opaque services with typed, code-tagged errors.
package providers

import "context"

// CaptionRequest carries the image plus the account's caption policy.
type CaptionRequest struct {
	ImageURL     string
	Tone         string
	MaxLength    int
	UseEmojis    bool
	HashtagCount int
}

type CaptionResult struct {
	Caption  string
	Hashtags []string
}

// Captioner generates a caption for one image. Implementations may block
// on network calls and must honor ctx cancellation.
type Captioner interface {
	GenerateCaption(ctx context.Context, req CaptionRequest) (*CaptionResult, error)
}

// Credentials is a decrypted platform credential for one subject.
type Credentials struct {
	AccountID   string
	AccessToken string
}

// TokenService resolves a subject's decrypted platform credential.
// It returns (nil, nil) when the subject has never connected an account;
// expired tokens surface as a *Error with CodeTokenExpired.
type TokenService interface {
	DecryptedCredentials(ctx context.Context, subjectID uint) (*Credentials, error)
}
