package aggregates

import (
	"strings"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
	"gorm.io/gorm"
)

// CASGuard provides compare-and-set helpers for aggregate writes.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx == nil && g.db == nil {
		return nil, domain.NewError(domain.CodeInternal, "aggregate.cas", "missing db transaction context", nil)
	}
	return dbc.DB(g.db), nil
}

// UpdateByStatus updates a row only when id+status guard matches.
func (g CASGuard) UpdateByStatus(dbc dbctx.Context, table string, id uint, allowedStatuses []domain.SchemeStatus, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == 0 {
		return false, domain.NewError(domain.CodeInternal, "aggregate.cas", "table and id are required for UpdateByStatus", nil)
	}
	if len(allowedStatuses) == 0 {
		return false, domain.NewError(domain.CodeInternal, "aggregate.cas", "allowedStatuses must not be empty", nil)
	}
	res := db.Table(table).
		Where("id = ? AND status IN ?", id, allowedStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClaimUnused flips a list entry to used only if nobody else has.
func (g CASGuard) ClaimUnused(dbc dbctx.Context, table string, id uint, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	updates["used"] = true
	res := db.Table(table).
		Where("id = ? AND used = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}
