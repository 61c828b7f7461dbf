package gameserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/serialguard/internal/config"
	"github.com/serialguard/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrConfigInvalid = errors.New("game server control config invalid")
	ErrRequestFailed = errors.New("game server control request failed")
	ErrTokenGenerate = errors.New("game server control token generate failed")
)

// ControlClaims 控制请求签名声明
type ControlClaims struct {
	Action string `json:"action"`
	jwt.RegisteredClaims
}

// controlRequest 控制请求体
type controlRequest struct {
	Action string `json:"action"`
	Serial string `json:"serial"`
}

// Client 游戏服务器控制接口客户端
// 未配置 control_url 时所有调用直接返回 nil。
type Client struct {
	endpoint   string
	secret     []byte
	httpClient *http.Client
	now        func() time.Time
}

// NewClient 创建控制接口客户端
func NewClient(cfg config.GameServerConfig) *Client {
	return &Client{
		endpoint:   strings.TrimSpace(cfg.ControlURL),
		secret:     []byte(cfg.Secret),
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		now:        time.Now,
	}
}

// Enabled 是否配置了控制接口
func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// Kick 通知游戏服务器踢出序列号对应的在线玩家
func (c *Client) Kick(ctx context.Context, serial string) error {
	if !c.Enabled() {
		return nil
	}
	return c.send(ctx, controlRequest{Action: constants.GameServerActionKick, Serial: serial})
}

func (c *Client) send(ctx context.Context, payload controlRequest) error {
	if len(c.secret) == 0 {
		return ErrConfigInvalid
	}
	token, err := c.signToken(payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}
	return nil
}

func (c *Client) signToken(payload controlRequest) (string, error) {
	now := c.now()
	claims := ControlClaims{
		Action: payload.Action,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    constants.GameServerTokenIssuer,
			Subject:   payload.Serial,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(constants.GameServerTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGenerate, err)
	}
	return signed, nil
}

// ParseControlToken 校验并解析控制请求签名（供游戏服务器侧与测试使用）
func ParseControlToken(tokenString string, secret []byte) (*ControlClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &ControlClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*ControlClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid control token")
	}
	return claims, nil
}
