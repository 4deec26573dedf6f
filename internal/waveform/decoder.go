package waveform

import (
	"encoding/binary"
	"math"
)

// 设备波形帧格式：连续的小端 IEEE 754 float32，不足 4 字节的尾巴直接丢弃。
// 设备固件在断电/中断时会写出半截帧，所以这里对一切异常取"丢弃"而非报错。

// Decode 解码原始波形缓冲区为压力采样序列
// NaN / Inf 以及精确为 0 的采样直接丢弃（设备用全零帧做填充，0 不是有效压力值），
// 因此结果长度可能小于 len(buf)/4
func Decode(buf []byte) []float64 {
	if len(buf) < 4 {
		return nil
	}
	samples := make([]float64, 0, len(buf)/4)
	for i := 0; i+4 <= len(buf); i += 4 {
		bits := binary.LittleEndian.Uint32(buf[i : i+4])
		v := float64(math.Float32frombits(bits))
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		samples = append(samples, v)
	}
	return samples
}

// IsPlaceholder 判断缓冲区是否为占位数据
// 设备对没有真实采样的事件写出 ≤4 字节的全零缓冲区，这类数据不参与解码，
// 由 compositor 以合成采样点呈现（见 timeline 包）
func IsPlaceholder(buf []byte) bool {
	if len(buf) == 0 || len(buf) > 4 {
		return false
	}
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// AveragePressure 缓冲区解码后的算术平均压力，无有效采样时返回 0
// 呼吸列表页的单值压力汇总只用这一个统计量
func AveragePressure(buf []byte) float64 {
	samples := Decode(buf)
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}
