package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wisefido-therapy/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrReauthRequired ACT 云端要求重新认证（HTTP 401）
// 这是唯一不做兜底的失败：必须原样穿透每一层抛回给调用方
var ErrReauthRequired = errors.New("act cloud: reauthentication required")

// ACTClient ACT 云端（治疗记录上游服务）API 客户端
type ACTClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewACTClient 创建 ACT 云端客户端
func NewACTClient(baseURL, apiToken string, timeout time.Duration, logger *zap.Logger) *ACTClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiToken != "" {
		client.SetAuthToken(apiToken)
	}

	return &ACTClient{
		httpClient: client,
		logger:     logger,
	}
}

// FetchUser 获取参与者概要
func (c *ACTClient) FetchUser(ctx context.Context, userID string) (*models.Participant, error) {
	var raw rawUser
	if err := c.get(ctx, fmt.Sprintf("/act/api/v1/users/%s", userID), &raw); err != nil {
		return nil, err
	}
	return &models.Participant{
		Username:   raw.Name,
		TrialStage: raw.TrialStage,
		DeviceMode: raw.DeviceMode,
		LastSeen:   raw.LastActive,
		LastACT:    raw.LastTreatment,
	}, nil
}

// FetchDay 获取某用户某日的完整治疗树（场次→组→呼吸事件）
func (c *ACTClient) FetchDay(ctx context.Context, userID, date string) (*models.TreatmentDay, error) {
	var raw rawDay
	if err := c.get(ctx, fmt.Sprintf("/act/api/v1/users/%s/days/%s", userID, date), &raw); err != nil {
		return nil, err
	}
	day := normalizeDay(userID, date, raw)
	return &day, nil
}

// FetchSession 获取单个治疗场次详情
func (c *ACTClient) FetchSession(ctx context.Context, sessionID string) (*models.TreatmentSession, error) {
	var raw rawSession
	if err := c.get(ctx, fmt.Sprintf("/act/api/v1/sessions/%s", sessionID), &raw); err != nil {
		return nil, err
	}
	session := normalizeSession("", raw)
	return &session, nil
}

// FetchSet 获取单个治疗组详情
func (c *ACTClient) FetchSet(ctx context.Context, setID string) (*models.TreatmentSet, error) {
	var raw rawSet
	if err := c.get(ctx, fmt.Sprintf("/act/api/v1/sets/%s", setID), &raw); err != nil {
		return nil, err
	}
	set := normalizeSet("", "", raw)
	return &set, nil
}

// FetchPrescription 获取处方
func (c *ACTClient) FetchPrescription(ctx context.Context, prescriptionID string) (*models.Prescription, error) {
	var raw rawPrescription
	if err := c.get(ctx, fmt.Sprintf("/act/api/v1/prescriptions/%s", prescriptionID), &raw); err != nil {
		return nil, err
	}
	return &models.Prescription{
		PrescriptionID:    raw.UID,
		Username:          raw.Username,
		SessionsPerDay:    raw.SessionsPerDay,
		SetsPerSession:    raw.SetsPerSession,
		BreathsPerSet:     raw.ExhalesPerSet,
		BreathDurationSec: raw.ExhaleDuration,
		PressureTarget:    raw.ExhaleTargetPressure,
		PressureRange:     raw.ExhaleTargetRange,
	}, nil
}

func (c *ACTClient) get(ctx context.Context, path string, result any) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		Get(path)
	if err != nil {
		c.logger.Error("ACT cloud call failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call ACT cloud %s: %w", path, err)
	}
	if resp.StatusCode() == 401 {
		// 会话过期：云端要求跳转重新登录，原样上抛
		return ErrReauthRequired
	}
	if resp.IsError() {
		c.logger.Error("ACT cloud returned error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("ACT cloud %s returned status %d", path, resp.StatusCode())
	}
	return nil
}
