package roster

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksred/studio-payroll/internal/types"
	"github.com/ksred/studio-payroll/pkg/response"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "roster.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&Workspace{}, &Instructor{}, &Member{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db)
}

func TestInstructors(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.CreateInstructor(types.Instructor{
		Name:     " Lee ",
		BasicPay: decimal.NewFromInt(2000000),
		Rate:     decimal.NewFromInt(35000),
	})
	if err != nil {
		t.Fatalf("CreateInstructor: %v", err)
	}
	if created.ID == 0 || created.Name != "Lee" || created.Color != DefaultColor {
		t.Errorf("created = %+v", created)
	}

	if _, err := svc.CreateInstructor(types.Instructor{Name: "Park", Rate: decimal.NewFromInt(-5)}); !errors.Is(err, response.ErrValidation) {
		t.Errorf("negative rate: err = %v", err)
	}

	list, err := svc.ListInstructors()
	if err != nil {
		t.Fatalf("ListInstructors: %v", err)
	}
	if len(list) != 1 || !list[0].BasicPay.Equal(decimal.NewFromInt(2000000)) || !list[0].Rate.Equal(decimal.NewFromInt(35000)) {
		t.Errorf("list = %+v", list)
	}
}

func TestMembers(t *testing.T) {
	svc := newTestService(t)
	lee, err := svc.CreateInstructor(types.Instructor{Name: "Lee"})
	if err != nil {
		t.Fatal(err)
	}

	kim, err := svc.CreateMember(types.Member{Name: "Kim", Phone: "010-1234-5678", InstructorID: lee.ID})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	if kim.InstructorName != "Lee" {
		t.Errorf("kim = %+v", kim)
	}

	if _, err := svc.CreateMember(types.Member{Name: "Choi"}); err != nil {
		t.Fatalf("unassigned member: %v", err)
	}
	if _, err := svc.CreateMember(types.Member{Name: "Ghost", InstructorID: 99}); !errors.Is(err, response.ErrValidation) {
		t.Errorf("unknown instructor: err = %v", err)
	}
	if _, err := svc.CreateMember(types.Member{Name: "  "}); !errors.Is(err, response.ErrValidation) {
		t.Errorf("blank name: err = %v", err)
	}

	members, err := svc.ListMembers()
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %+v", members)
	}
	if members[0].InstructorName != "Lee" || members[1].InstructorID != 0 || members[1].InstructorName != "" {
		t.Errorf("members = %+v", members)
	}
}

func TestWorkspaces(t *testing.T) {
	svc := newTestService(t)

	for _, name := range []string{" Seongsu ", "Gangnam"} {
		if _, err := svc.CreateWorkspace(types.Workspace{Name: name}); err != nil {
			t.Fatalf("CreateWorkspace(%q): %v", name, err)
		}
	}
	if _, err := svc.CreateWorkspace(types.Workspace{Name: "  "}); !errors.Is(err, response.ErrValidation) {
		t.Errorf("blank name: err = %v", err)
	}

	list, err := svc.ListWorkspaces()
	if err != nil {
		t.Fatalf("ListWorkspaces: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Gangnam" || list[1].Name != "Seongsu" {
		t.Errorf("list = %+v", list)
	}
}
