package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/studio-payroll/internal/types"
	"github.com/ksred/studio-payroll/pkg/response"
)

const DefaultColor = "#6366f1"

// Service manages instructors and members
type Service struct {
	db *Database
}

// NewService creates a new roster service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// CreateInstructor validates and stores an instructor
func (s *Service) CreateInstructor(in types.Instructor) (*types.Instructor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: instructor name is required", response.ErrValidation)
	}
	if in.BasicPay.IsNegative() || in.Rate.IsNegative() {
		return nil, fmt.Errorf("%w: pay must not be negative", response.ErrValidation)
	}
	color := in.Color
	if color == "" {
		color = DefaultColor
	}

	instructor := &Instructor{
		Name:     name,
		Phone:    strings.TrimSpace(in.Phone),
		Color:    color,
		BasicPay: in.BasicPay,
		Rate:     in.Rate,
	}
	if err := s.db.CreateInstructor(instructor); err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "roster").
		Int64("instructor_id", instructor.ID).
		Msg("instructor created")

	out := instructor.ToAPI()
	return &out, nil
}

// ListInstructors returns every instructor ordered by id
func (s *Service) ListInstructors() ([]types.Instructor, error) {
	instructors, err := s.db.ListInstructors()
	if err != nil {
		return nil, err
	}
	out := make([]types.Instructor, 0, len(instructors))
	for _, i := range instructors {
		out = append(out, i.ToAPI())
	}
	return out, nil
}

// CreateMember validates and stores a member. A non-zero instructor id must
// refer to an existing instructor.
func (s *Service) CreateMember(in types.Member) (*types.Member, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: member name is required", response.ErrValidation)
	}

	member := &Member{Name: name, Phone: strings.TrimSpace(in.Phone)}
	if in.InstructorID != 0 {
		if _, err := s.db.GetInstructor(in.InstructorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: instructor %d does not exist", response.ErrValidation, in.InstructorID)
			}
			return nil, err
		}
		id := in.InstructorID
		member.InstructorID = &id
	}

	if err := s.db.CreateMember(member); err != nil {
		return nil, err
	}

	created, err := s.db.GetMember(member.ID)
	if err != nil {
		return nil, err
	}
	out := created.ToAPI()
	return &out, nil
}

// ListMembers returns every member with the assigned instructor's name
func (s *Service) ListMembers() ([]types.Member, error) {
	members, err := s.db.ListMembers()
	if err != nil {
		return nil, err
	}
	out := make([]types.Member, 0, len(members))
	for _, m := range members {
		out = append(out, m.ToAPI())
	}
	return out, nil
}

// CreateWorkspace stores a workspace. Names are unique.
func (s *Service) CreateWorkspace(in types.Workspace) (*types.Workspace, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: workspace name is required", response.ErrValidation)
	}

	workspace := &Workspace{Name: name}
	if err := s.db.CreateWorkspace(workspace); err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "roster").
		Int64("workspace_id", workspace.ID).
		Msg("workspace created")

	out := workspace.ToAPI()
	return &out, nil
}

// ListWorkspaces returns every workspace ordered by name
func (s *Service) ListWorkspaces() ([]types.Workspace, error) {
	workspaces, err := s.db.ListWorkspaces()
	if err != nil {
		return nil, err
	}
	out := make([]types.Workspace, 0, len(workspaces))
	for _, w := range workspaces {
		out = append(out, w.ToAPI())
	}
	return out, nil
}

// GinHandlers contains HTTP handlers for roster endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func (h *GinHandlers) ListInstructorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		instructors, err := h.service.ListInstructors()
		response.Handle(c, instructors, err)
	}
}

func (h *GinHandlers) CreateInstructorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in types.Instructor
		if err := c.ShouldBindJSON(&in); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		instructor, err := h.service.CreateInstructor(in)
		response.Handle(c, instructor, err)
	}
}

func (h *GinHandlers) ListMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		members, err := h.service.ListMembers()
		response.Handle(c, members, err)
	}
}

func (h *GinHandlers) CreateMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in types.Member
		if err := c.ShouldBindJSON(&in); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		member, err := h.service.CreateMember(in)
		response.Handle(c, member, err)
	}
}

func (h *GinHandlers) ListWorkspacesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaces, err := h.service.ListWorkspaces()
		response.Handle(c, workspaces, err)
	}
}

func (h *GinHandlers) CreateWorkspaceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in types.Workspace
		if err := c.ShouldBindJSON(&in); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		workspace, err := h.service.CreateWorkspace(in)
		response.Handle(c, workspace, err)
	}
}
