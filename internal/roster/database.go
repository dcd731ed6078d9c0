package roster

import (
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateInstructor(instructor *Instructor) error {
	return d.db.Create(instructor).Error
}

func (d *Database) GetInstructor(id int64) (*Instructor, error) {
	var instructor Instructor
	if err := d.db.First(&instructor, id).Error; err != nil {
		return nil, err
	}
	return &instructor, nil
}

func (d *Database) ListInstructors() ([]Instructor, error) {
	var instructors []Instructor
	if err := d.db.Order("id ASC").Find(&instructors).Error; err != nil {
		return nil, err
	}
	return instructors, nil
}

func (d *Database) CreateMember(member *Member) error {
	return d.db.Create(member).Error
}

func (d *Database) GetMember(id int64) (*Member, error) {
	var member Member
	if err := d.db.Preload("Instructor").First(&member, id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (d *Database) ListMembers() ([]Member, error) {
	var members []Member
	if err := d.db.Preload("Instructor").Order("id ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (d *Database) CreateWorkspace(workspace *Workspace) error {
	return d.db.Create(workspace).Error
}

func (d *Database) ListWorkspaces() ([]Workspace, error) {
	var workspaces []Workspace
	if err := d.db.Order("name ASC").Find(&workspaces).Error; err != nil {
		return nil, err
	}
	return workspaces, nil
}
