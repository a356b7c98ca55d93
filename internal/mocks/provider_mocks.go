package mocks

import (
	"context"

	"github.com/postpilot/postpilot/internal/instagram"
	"github.com/postpilot/postpilot/internal/providers"
	"github.com/stretchr/testify/mock"
)

type CaptionerMock struct {
	mock.Mock
}

func (m *CaptionerMock) GenerateCaption(ctx context.Context, req providers.CaptionRequest) (*providers.CaptionResult, error) {
	args := m.Called(ctx, req)

	result, _ := args.Get(0).(*providers.CaptionResult)
	return result, args.Error(1)
}

type TokenServiceMock struct {
	mock.Mock
}

func (m *TokenServiceMock) DecryptedCredentials(ctx context.Context, subjectID uint) (*providers.Credentials, error) {
	args := m.Called(ctx, subjectID)

	creds, _ := args.Get(0).(*providers.Credentials)
	return creds, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) PublishSingleImage(ctx context.Context, subjectID uint, imageURL, caption string) (*instagram.PublishResult, error) {
	args := m.Called(ctx, subjectID, imageURL, caption)

	result, _ := args.Get(0).(*instagram.PublishResult)
	return result, args.Error(1)
}

func (m *PublisherMock) PublishCarousel(ctx context.Context, subjectID uint, imageURLs []string, caption string) (*instagram.PublishResult, error) {
	args := m.Called(ctx, subjectID, imageURLs, caption)

	result, _ := args.Get(0).(*instagram.PublishResult)
	return result, args.Error(1)
}
