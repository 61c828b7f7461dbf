package game

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/serialguard/internal/http/response"
	"github.com/serialguard/internal/logger"
	"github.com/serialguard/internal/service"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// JoinReporter 入服上报处理
type JoinReporter interface {
	ReportJoin(ctx context.Context, report service.JoinReport) (*service.JoinNotice, error)
}

// Handler 游戏服务器回调处理器
type Handler struct {
	reporter JoinReporter
	secret   []byte
}

// New 创建游戏服务器回调处理器
func New(reporter JoinReporter, secret string) *Handler {
	return &Handler{reporter: reporter, secret: []byte(strings.TrimSpace(secret))}
}

// ReportJoin 接收玩家入服上报
// 未绑定的序列号同样返回 200，只在日志频道标注未绑定。
func (h *Handler) ReportJoin(c *gin.Context) {
	if !h.authorized(c.GetHeader("Authorization")) {
		logger.Warnw("game_join_forbidden", "client_ip", c.ClientIP())
		response.Forbidden(c, "forbidden")
		return
	}

	var report service.JoinReport
	if err := c.ShouldBindJSON(&report); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	notice, err := h.reporter.ReportJoin(c.Request.Context(), report)
	if err != nil {
		response.Fail(c, mapJoinError(c, report, err))
		return
	}
	response.Success(c, gin.H{
		"serial": notice.Serial,
		"linked": notice.Linked,
	})
}

// authorized 常量时间比较 Bearer 密钥；未配置密钥时拒绝全部请求
func (h *Handler) authorized(header string) bool {
	if len(h.secret) == 0 || !strings.HasPrefix(header, bearerPrefix) {
		return false
	}
	token := []byte(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
	return subtle.ConstantTimeCompare(token, h.secret) == 1
}

func mapJoinError(c *gin.Context, report service.JoinReport, err error) *response.AppError {
	switch service.Kind(err) {
	case service.KindValidation:
		return response.WrapError(response.CodeBadRequest, "missing required field", err)
	default:
		logger.Errorw("game_join_report_failed",
			"request_id", c.GetString("request_id"),
			"serial", report.Serial,
			"nickname", report.Nickname,
			"error", err,
		)
		return response.WrapError(response.CodeInternal, "internal error", err)
	}
}
