// Package catalog is the index of published project versions.
// Rows are inserted by the CI pipeline after a successful build, and queried
// by users looking for projects to install. Catalog rows and on-disk
// repositories are deliberately not coordinated; it is possible to observe a
// repository with no catalog entry (nothing has been published yet) or the
// reverse (the repository was provisioned on another host).
package catalog

import (
	"errors"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"

	"github.com/forgeyard/forgeyard/server/accountdb"
)

// ErrProjectVersionExists reports a duplicate (owner, name, version) insert.
var ErrProjectVersionExists = errors.New("project-version-already-exists")

type Catalog struct {
	Log logs.Log
	DB  *gorm.DB
}

func NewCatalog(log logs.Log, db *gorm.DB) *Catalog {
	return &Catalog{Log: log, DB: db}
}

// Project is a row in the project table. Rows are never mutated in place:
// each published version is its own row.
type Project struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	AccountID   int64       `json:"accountId"`
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description string      `json:"description"`
	CreatedAt   dbh.IntTime `json:"createdAt"`
}

// FoundProject is the search projection: catalog row plus owner login.
type FoundProject struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Insert records a published (owner, name, version).
func (c *Catalog) Insert(login, name, version, description string) error {
	acc, err := c.getAccountByLogin(login)
	if err != nil {
		return err
	}
	p := Project{
		AccountID:   acc.ID,
		Name:        name,
		Version:     version,
		Description: description,
		CreatedAt:   dbh.MakeIntTime(time.Now().UTC()),
	}
	if err := c.DB.Create(&p).Error; err != nil {
		if accountdb.IsUniqueViolation(err) {
			c.Log.Warnf("Can not insert project, login: %v, name: %v, version: %v, reason: already exists", login, name, version)
			return ErrProjectVersionExists
		}
		return err
	}
	c.Log.Infof("Inserted project, login: %v, name: %v, version: %v", login, name, version)
	return nil
}

// Search returns every project whose name contains substr.
// Matching is case-sensitive per the store's collation; result order is
// unspecified and there is no pagination.
func (c *Catalog) Search(substr string) ([]FoundProject, error) {
	found := []FoundProject{}
	err := c.DB.Table("project").
		Select("account.login, project.name, project.version, project.description").
		Joins("JOIN account ON account.id = project.account_id").
		Where("project.name LIKE ?", "%"+substr+"%").
		Scan(&found).Error
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (c *Catalog) getAccountByLogin(login string) (*accountdb.Account, error) {
	acc := accountdb.Account{}
	c.DB.Where("login = ?", login).Find(&acc)
	if acc.ID == 0 {
		return nil, accountdb.ErrAccountNotFound
	}
	return &acc, nil
}
