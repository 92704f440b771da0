package guesttoken

import (
	"log"
	"time"

	"github.com/Mieluoxxx/Polaris-Guest/internal/models"
)

// Redeem 兑换访客令牌
// 按固定顺序校验，任一步失败即硬停；首次兑换成功时换取平台会话凭证
// 并持久化关联，之后的兑换返回同一份凭证（按令牌幂等）
func (s *Service) Redeem(uid string) (*RedeemResult, error) {
	// 1. 必须携带公开标识
	if uid == "" {
		return nil, errRedeemMissingToken
	}

	// 2. 记录必须存在
	token, err := s.repo.FindByUID(uid)
	if err != nil {
		if err == ErrTokenNotFound {
			return nil, errRedeemTokenNotFound
		}
		return nil, errRedeemInternal
	}

	// 3. 用量检查先于签名与时间校验：耗尽的令牌不再累加计数
	if token.UsageExhausted() {
		s.logRejected(token, errRedeemUsageLimit)
		return nil, errRedeemUsageLimit
	}

	// 4. 无条件计数："发起过一次尝试"即算一次使用，
	//    即使后续时间窗口校验失败
	now := time.Now()
	if err := s.repo.RecordUsage(token, now); err != nil {
		return nil, errRedeemInternal
	}

	// 5. 验证存储的签名令牌
	claims, redeemErr := VerifyCapabilityToken(s.keys.PublicKey(), token.CapabilityToken)
	if redeemErr != nil {
		s.logRejected(token, redeemErr)
		return nil, redeemErr
	}

	// 6. 时间窗口：签名负载内的时间字段是权威来源
	if !claims.IsNeverExpire {
		start, end, err := claims.Window()
		if err != nil {
			s.logRejected(token, errRedeemInvalidToken)
			return nil, errRedeemInvalidToken
		}
		// 边界包含：恰好等于 startDate 时成功
		if now.Before(start) || now.After(end) {
			s.logRejected(token, errRedeemNotYetValid)
			return nil, errRedeemNotYetValid
		}
	}

	// 7. 已有会话凭证且目录侧仍有效则直接复用；
	//    目录侧已失效的按不存在处理，落入重新签发
	if token.SessionToken != "" {
		if _, err := s.directory.ValidateAccessToken(token.SessionToken); err == nil {
			return s.success(token, token.SessionToken), nil
		}
	}

	// 8. 解析目标用户；托管令牌指向的用户丢失时惰性重建
	user, err := s.directory.GetUser(token.UserID)
	if err != nil {
		if !token.ManagedUser {
			s.logRejected(token, errRedeemUserNotFound)
			return nil, errRedeemUserNotFound
		}
		user, err = s.recreateManagedUser(token)
		if err != nil {
			s.logRejected(token, errRedeemUserNotFound)
			return nil, errRedeemUserNotFound
		}
	}

	// 9. 创建（或在唯一约束冲突时复用）刷新凭证，
	//    有界令牌的访问凭证有效期取距 endDate 的剩余时间
	var accessExpiration time.Duration
	if !token.IsNeverExpire && token.EndDate != nil {
		accessExpiration = token.EndDate.Sub(now)
	}

	refresh, err := s.directory.CreateRefreshToken(user, token.TokenName, accessExpiration)
	if err != nil {
		return nil, errRedeemInternal
	}

	accessToken, err := s.directory.CreateAccessToken(refresh)
	if err != nil {
		return nil, errRedeemInternal
	}

	if err := s.repo.SetSessionLinkage(token, refresh.ID, accessToken); err != nil {
		return nil, errRedeemInternal
	}

	s.logEvent(models.EventTypeTokenRedeemed, "访客令牌已兑换: "+token.TokenName, map[string]interface{}{
		"token_id": token.ID,
		"user_id":  token.UserID,
	})

	// 10. 返回访问凭证与跳转路径，由端点渲染注入页面
	return s.success(token, accessToken), nil
}

// success 组装兑换结果
func (s *Service) success(token *models.GuestToken, accessToken string) *RedeemResult {
	path := "/"
	if token.Dashboard != "" && token.Dashboard != s.cfg.DefaultDashboard {
		path = "/" + token.Dashboard
	}
	return &RedeemResult{
		AccessToken:  accessToken,
		RedirectPath: path,
	}
}

// logRejected 记录兑换被拒事件
func (s *Service) logRejected(token *models.GuestToken, redeemErr *RedeemError) {
	if s.events == nil {
		return
	}
	err := s.events.LogWarning(models.EventTypeTokenRejected, "访客令牌兑换被拒: "+redeemErr.Label, map[string]interface{}{
		"token_id": token.ID,
		"label":    redeemErr.Label,
	})
	if err != nil {
		log.Printf("⚠️  记录事件失败: %v", err)
	}
}
