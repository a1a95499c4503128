// Package algo 提供词频动态调权的纯函数。
package algo

import "math"

// kM 为归一化衰减位置的尺度常数：1/(1-e^-0.005)。
var kM = 1 / (1 - math.Exp(-0.005))

// FormulaD 将先前在时刻 ta 记录的 da 按时间常数 200 衰减后叠加到 d 上。
func FormulaD(d, t, da, ta float64) float64 {
	return d + da*math.Exp((ta-t)/200)
}

// FormulaP 由短期统计 s、长期统计 u、经过时间 t 与衰减位置 d 计算有效权重。
//
//	m = s - (s-u)·(1-e^(-t/10000))^10
//	d < 20: m + (0.5-m)·(d/kM)
//	否则:   m + (1-m)·(4^(d/kM)-1)/3
func FormulaP(s, u, t, d float64) float64 {
	m := s - (s-u)*math.Pow(1-math.Exp(-t/10000), 10)
	x := d / kM
	if d < 20 {
		return m + (0.5-m)*x
	}
	return m + (1-m)*(math.Pow(4, x)-1)/3
}
