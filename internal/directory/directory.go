package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ksred/studio-payroll/internal/apiclient"
	"github.com/ksred/studio-payroll/internal/types"
)

var ErrInvalidInput = errors.New("invalid input")

// DefaultColor is used for instructors created without a calendar color
const DefaultColor = "#6366f1"

// Service lists and creates workspaces, instructors and members through the API
type Service struct {
	client *apiclient.Client
}

// NewService creates a directory service on top of the shared API client
func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// ListInstructors returns every instructor
func (s *Service) ListInstructors(ctx context.Context) ([]types.Instructor, error) {
	var instructors []types.Instructor
	if err := s.client.Get(ctx, "/instructors", &instructors); err != nil {
		return nil, fmt.Errorf("failed to list instructors: %w", err)
	}
	return instructors, nil
}

// CreateInstructor onboards an instructor. Name is required and pay
// figures must not be negative.
func (s *Service) CreateInstructor(ctx context.Context, in types.Instructor) (*types.Instructor, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: instructor name is required", ErrInvalidInput)
	}
	if in.BasicPay.IsNegative() || in.Rate.IsNegative() {
		return nil, fmt.Errorf("%w: pay must not be negative", ErrInvalidInput)
	}
	if in.Color == "" {
		in.Color = DefaultColor
	}

	var created types.Instructor
	if err := s.client.Post(ctx, "/instructors", in, &created); err != nil {
		return nil, fmt.Errorf("failed to create instructor: %w", err)
	}
	return &created, nil
}

// ListMembers returns every member with their instructor's name
func (s *Service) ListMembers(ctx context.Context) ([]types.Member, error) {
	var members []types.Member
	if err := s.client.Get(ctx, "/members", &members); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// CreateMember registers a member
func (s *Service) CreateMember(ctx context.Context, in types.Member) (*types.Member, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: member name is required", ErrInvalidInput)
	}

	var created types.Member
	if err := s.client.Post(ctx, "/members", in, &created); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return &created, nil
}

// ListWorkspaces returns the workspaces the operator can choose from
func (s *Service) ListWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	var workspaces []types.Workspace
	if err := s.client.Get(ctx, "/workspaces", &workspaces); err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return workspaces, nil
}

// CreateWorkspace creates a workspace
func (s *Service) CreateWorkspace(ctx context.Context, name string) (*types.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: workspace name is required", ErrInvalidInput)
	}

	var created types.Workspace
	if err := s.client.Post(ctx, "/workspaces", types.Workspace{Name: name}, &created); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &created, nil
}
