package status

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Mieluoxxx/Polaris-Guest/internal/config"
	"github.com/Mieluoxxx/Polaris-Guest/internal/directory"
	"github.com/Mieluoxxx/Polaris-Guest/internal/guesttoken"
	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
	qrcode "github.com/skip2/go-qrcode"
)

// qrSize 二维码边长（像素）
const qrSize = 256

// TokenStatus 最近签发令牌的只读状态
type TokenStatus struct {
	State      string     `json:"state"` // Ready / No token
	User       string     `json:"user,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	FirstUsed  *time.Time `json:"first_used,omitempty"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
	TimesUsed  int        `json:"times_used"`
	UsageLimit *int       `json:"usage_limit,omitempty"`
	UID        string     `json:"uid,omitempty"`
	LinkURL    string     `json:"link_url,omitempty"`
}

// Service 状态展示服务
// 暴露最近签发令牌的元数据与可扫码的兑换链接图片，每次签发后刷新
type Service struct {
	repo      *guesttoken.Repository
	directory *directory.Service
	cfg       *config.GuestConfig

	mu          sync.RWMutex
	current     TokenStatus
	qrImageData []byte
}

// NewService 创建状态展示服务实例
func NewService(repo *guesttoken.Repository, dir *directory.Service, cfg *config.GuestConfig) *Service {
	s := &Service{
		repo:      repo,
		directory: dir,
		cfg:       cfg,
	}
	s.Refresh()
	return s
}

// Refresh 重新读取最近令牌并重绘二维码
func (s *Service) Refresh() {
	token, err := s.repo.FindLatest()
	if err != nil {
		if !errors.Is(err, guesttoken.ErrTokenNotFound) {
			log.Printf("⚠️  读取最近令牌失败: %v", err)
		}
		s.mu.Lock()
		s.current = TokenStatus{State: "No token"}
		s.qrImageData = nil
		s.mu.Unlock()
		return
	}

	linkURL := s.cfg.RedemptionURL(token.UID)

	var imageData []byte
	if token.UID != "" {
		imageData, err = qrcode.Encode(linkURL, qrcode.Medium, qrSize)
		if err != nil {
			log.Printf("⚠️  生成二维码失败: %v", err)
			imageData = nil
		}
	}

	status := TokenStatus{
		State:      "Ready",
		User:       s.resolveUserLabel(token),
		StartDate:  token.StartDate,
		EndDate:    token.EndDate,
		FirstUsed:  token.FirstUsedAt,
		LastUsed:   token.LastUsedAt,
		TimesUsed:  token.TimesUsed,
		UsageLimit: token.UsageLimit,
		UID:        token.UID,
		LinkURL:    linkURL,
	}

	s.mu.Lock()
	s.current = status
	s.qrImageData = imageData
	s.mu.Unlock()
}

// Current 返回当前状态快照
func (s *Service) Current() TokenStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// QRImage 返回兑换链接二维码的 PNG 字节
// 尚无令牌时返回 nil
func (s *Service) QRImage() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.qrImageData
}

// resolveUserLabel 推导用户显示名
func (s *Service) resolveUserLabel(token *models.GuestToken) string {
	if token.UserID == "" {
		return token.ManagedUserName
	}
	user, err := s.directory.GetUser(token.UserID)
	if err == nil {
		return user.Name
	}
	if token.ManagedUserName != "" {
		return token.ManagedUserName
	}
	return token.UserID
}
