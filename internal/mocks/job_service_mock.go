package mocks

import (
	"context"

	"github.com/postpilot/postpilot/internal/dto"
	"github.com/stretchr/testify/mock"
)

type JobServiceMock struct {
	mock.Mock
}

func (m *JobServiceMock) Enqueue(ctx context.Context, req *dto.JobCreateDTO) (*dto.JobResponseDTO, error) {
	args := m.Called(ctx, req)

	resp, _ := args.Get(0).(*dto.JobResponseDTO)
	return resp, args.Error(1)
}

func (m *JobServiceMock) EnqueueRunPipeline(ctx context.Context, runID uint, priority int) (uint, error) {
	args := m.Called(ctx, runID, priority)

	id, _ := args.Get(0).(uint)
	return id, args.Error(1)
}

func (m *JobServiceMock) GetJobByID(ctx context.Context, id uint) (*dto.JobResponseDTO, error) {
	args := m.Called(ctx, id)

	resp, _ := args.Get(0).(*dto.JobResponseDTO)
	return resp, args.Error(1)
}

func (m *JobServiceMock) ListJobs(ctx context.Context, status string) ([]dto.JobResponseDTO, error) {
	args := m.Called(ctx, status)

	jobs, _ := args.Get(0).([]dto.JobResponseDTO)
	return jobs, args.Error(1)
}

func (m *JobServiceMock) Stats(ctx context.Context) (*dto.JobStatsDTO, error) {
	args := m.Called(ctx)

	stats, _ := args.Get(0).(*dto.JobStatsDTO)
	return stats, args.Error(1)
}
