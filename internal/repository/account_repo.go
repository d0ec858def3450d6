package repository

import (
	"context"
	"errors"
	"time"

	"coingate/internal/model"

	"gorm.io/gorm"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
	ErrOptimisticLock   = errors.New("乐观锁冲突，请重试")
	ErrAccountExists    = errors.New("用户名或邮箱已注册")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	err := r.db.WithContext(ctx).Create(account).Error
	if isDuplicateKeyErr(err) {
		return ErrAccountExists
	}
	return err
}

func (r *AccountRepository) GetByUID(ctx context.Context, uid string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByResetToken(ctx context.Context, token string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("reset_token = ?", token).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListByUIDs 按 uid 批量查询，对接方 users 接口用
func (r *AccountRepository) ListByUIDs(ctx context.Context, uids []string) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).Where("uid IN ?", uids).Find(&accounts).Error
	return accounts, err
}

// Deduct 条件扣减余额
//
// 【关键点】余额校验和扣减是同一条 UPDATE：
//
//	UPDATE account SET balance = balance - ?, version = version + 1
//	WHERE uid = ? AND balance >= ? AND version = ?
//
// 数据库保证单条 UPDATE 原子，余额不足或版本被抢先改掉时影响行数为 0，
// 再回查一次区分"余额不足"和"乐观锁冲突"
func (r *AccountRepository) Deduct(ctx context.Context, tx *gorm.DB, uid string, amount int64, version int) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("uid = ? AND balance >= ? AND version = ?", uid, amount, version).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		account, err := r.GetByUID(ctx, uid)
		if err != nil {
			return err
		}
		if account.Balance < amount {
			return ErrBalanceNotEnough
		}
		return ErrOptimisticLock
	}

	return nil
}

// Increase 增加余额
func (r *AccountRepository) Increase(ctx context.Context, tx *gorm.DB, uid string, amount int64) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("uid = ?", uid).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// SetResetToken 写入密码重置令牌
func (r *AccountRepository) SetResetToken(ctx context.Context, uid, token string, expire time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("uid = ?", uid).
		Updates(map[string]interface{}{
			"reset_token":        token,
			"reset_token_expire": expire,
		}).Error
}

// UpdatePassword 更新密码并清空重置令牌
func (r *AccountRepository) UpdatePassword(ctx context.Context, uid, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("uid = ?", uid).
		Updates(map[string]interface{}{
			"password_hash":      passwordHash,
			"reset_token":        "",
			"reset_token_expire": nil,
		}).Error
}
