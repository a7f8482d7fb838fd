package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/accounts/internal/models"
)

func (r *GormRepo) Create(ctx context.Context, a *models.Account) error {
	a.Email = NormalizeEmail(a.Email)
	return translate(r.DB.WithContext(ctx).Create(a).Error)
}

func (r *GormRepo) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id string) (*models.Account, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *GormRepo) FindByResetToken(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var a models.Account
	if err := r.DB.WithContext(ctx).Where("reset_token = ?", token).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *GormRepo) List(ctx context.Context) ([]models.Account, error) {
	var items []models.Account
	if err := r.DB.WithContext(ctx).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Search matches q against email and profile name, newest first.
func (r *GormRepo) Search(ctx context.Context, q string, offset, limit int) (int64, []models.Account, error) {
	pattern := "%" + escapeLike(NormalizeEmail(q)) + "%"
	where := "LOWER(email) LIKE ? ESCAPE '\\' OR LOWER(profile_name) LIKE ? ESCAPE '\\'"

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Account{}).
		Where(where, pattern, pattern).
		Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Account, 0, limit)
	if err := r.DB.WithContext(ctx).
		Where(where, pattern, pattern).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// updateColumns writes only cols on account id. Each write path touches its own
// columns so a stale read elsewhere cannot undo it.
func (r *GormRepo) updateColumns(ctx context.Context, id string, cols map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(cols)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile overwrites the fields set in patch and returns the stored account.
func (r *GormRepo) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.Account, error) {
	if cols := patch.Columns(); len(cols) > 0 {
		if err := r.updateColumns(ctx, id, cols); err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

func (r *GormRepo) SetPassword(ctx context.Context, id, passwordHash string) error {
	return r.updateColumns(ctx, id, map[string]any{"password_hash": passwordHash})
}

func (r *GormRepo) SetRole(ctx context.Context, id string, role models.Role) error {
	return r.updateColumns(ctx, id, map[string]any{"role": string(role)})
}

// SetResetToken replaces any pending reset on the account.
func (r *GormRepo) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{
		"reset_token":   token,
		"reset_expires": expires,
	})
}

// ConsumeResetToken sets the new password hash and clears the reset token in one
// statement, only if token is still the account's pending token. Expiry is checked
// by the caller before this point.
func (r *GormRepo) ConsumeResetToken(ctx context.Context, id, token, passwordHash string) error {
	res := r.DB.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND reset_token = ?", id, token).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"reset_token":   gorm.Expr("NULL"),
			"reset_expires": gorm.Expr("NULL"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) Delete(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Account{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
