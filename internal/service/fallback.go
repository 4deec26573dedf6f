package service

import (
	"time"

	"wisefido-therapy/internal/models"
)

// 抓取失败的兜底值。除重新认证信号外，上游任何失败都不穿透本层：
// 调用方永远拿到形状完整的结果，"无数据"和"抓取失败"在返回值上不可区分，
// 需要区分的走诊断侧信道。

// FallbackParticipant 参与者信息兜底（与前端约定的 "NaN" 占位）
func FallbackParticipant() models.Participant {
	now := time.Now().UnixMilli()
	return models.Participant{
		Username:   "NaN",
		TrialStage: "NaN",
		DeviceMode: "NaN",
		LastSeen:   now,
		LastACT:    now,
	}
}

// FallbackPrescription 处方兜底：全零目标量，保留已解析出的用户名
func FallbackPrescription(prescriptionID, username string) models.Prescription {
	return models.Prescription{
		PrescriptionID: prescriptionID,
		Username:       username,
	}
}

// ZeroDayRecord 某日抓取失败时的全零记录
func ZeroDayRecord(date string) models.DayRecord {
	return models.DayRecord{Date: date}
}
