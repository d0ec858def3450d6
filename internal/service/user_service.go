package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"coingate/internal/config"
	"coingate/internal/infrastructure/mail"
	"coingate/internal/model"
	"coingate/internal/repository"
	"coingate/pkg/idgen"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService 账户注册/登录/资料
// 这些属于普通 CRUD，不碰余额；留在这里是为了给两个协议面
// （站内令牌、对接方 users 查询）提供账户数据
type UserService struct {
	accountRepo userStore
	cfg         *config.Config
	mailer      mail.Mailer
}

func NewUserService(db *gorm.DB, cfg *config.Config, mailer mail.Mailer) *UserService {
	return &UserService{
		accountRepo: repository.NewAccountRepository(db),
		cfg:         cfg,
		mailer:      mailer,
	}
}

// Register 注册账户
func (s *UserService) Register(ctx context.Context, username, email, password string) (*model.Account, error) {
	username = strings.ToLower(username)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	account := &model.Account{
		UID:          idgen.GenerateUID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Nick:         username,
		Gender:       model.GenderMale,
		Portrait:     model.DefaultPortrait,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login 邮箱密码登录，返回站内令牌
// 账户不存在和密码错误返回同一个错误，不泄露哪一步失败
func (s *UserService) Login(ctx context.Context, email, password string) (string, *model.Account, error) {
	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(account.UID, s.cfg.Auth.TokenTTLMinutes)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// GameLogin 游戏登录，短有效期令牌
func (s *UserService) GameLogin(ctx context.Context, email string) (string, error) {
	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	return s.issueToken(account.UID, s.cfg.Auth.GameTokenTTLMinutes)
}

// Profile 查询账户资料
func (s *UserService) Profile(ctx context.Context, uid string) (*model.Account, error) {
	return s.accountRepo.GetByUID(ctx, uid)
}

// ProviderUser 对接方 users 接口的资料投影
type ProviderUser struct {
	UID      string `json:"uid"`
	Nick     string `json:"nick"`
	Gender   int    `json:"gender"`
	Portrait string `json:"portrait"`
}

// Users 批量查询资料，对接方 users 接口用
// 查不到的 uid 直接跳过，不报错
func (s *UserService) Users(ctx context.Context, uids []string) ([]ProviderUser, error) {
	accounts, err := s.accountRepo.ListByUIDs(ctx, uids)
	if err != nil {
		return nil, err
	}

	users := make([]ProviderUser, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, ProviderUser{
			UID:      a.UID,
			Nick:     a.Nick,
			Gender:   a.Gender,
			Portrait: a.Portrait,
		})
	}
	return users, nil
}

// ForgotPassword 生成重置令牌并发送重置邮件
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("生成重置令牌失败: %w", err)
	}
	token := hex.EncodeToString(buf)

	ttl := s.cfg.Auth.ResetTokenTTLMinutes
	if ttl <= 0 {
		ttl = 60
	}
	expire := time.Now().Add(time.Duration(ttl) * time.Minute)

	if err := s.accountRepo.SetResetToken(ctx, account.UID, token, expire); err != nil {
		return err
	}

	if s.mailer == nil {
		return errors.New("邮件服务未配置")
	}

	resetURL := s.cfg.Mail.ResetURL + token
	body := fmt.Sprintf(
		`<p>你好 %s，</p><p>点击下面的链接重置密码（%d 分钟内有效）：</p><p><a href="%s">%s</a></p>`,
		account.Username, ttl, resetURL, resetURL,
	)
	return s.mailer.Send(account.Email, "重置密码", body)
}

// ResetPassword 用重置令牌设置新密码
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrResetTokenInvalid
	}

	account, err := s.accountRepo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	if account.ResetTokenExpire == nil || time.Now().After(*account.ResetTokenExpire) {
		return ErrResetTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}

	return s.accountRepo.UpdatePassword(ctx, account.UID, string(hash))
}

// issueToken 签发 HS256 站内令牌，subject 是账户 uid
func (s *UserService) issueToken(uid string, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}

	now := time.Now()
	claims := jwt.StandardClaims{
		Subject:   uid,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Duration(ttlMinutes) * time.Minute).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Auth.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("签发令牌失败: %w", err)
	}
	return signed, nil
}
