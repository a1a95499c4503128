package diag

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 为结构化日志器：单行 JSON 事件，字段固定（comp/stage/code/dur_ms/count/kv）。
// 后端为 zap；nil *Logger 上的所有方法均为 no-op。
type Logger struct {
	z    *zap.Logger
	sink *RotatingFile
}

// NewLogger 通过配置的 level 初始化，并将日志写入默认路径 logs/，10m 轮转。
func NewLogger(corrID, level string) *Logger {
	sink := NewRotatingFile("logs", 10*1024*1024)
	l := NewLoggerTo(corrID, level, sink)
	l.sink = sink
	return l
}

// NewLoggerTo 将日志写入任意 WriteSyncer（测试或 stderr）。
func NewLoggerTo(corrID, level string, ws zapcore.WriteSyncer) *Logger {
	if ws == nil {
		ws = zapcore.Lock(os.Stderr)
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     utcRFC3339,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})
	core := zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(parseLevel(strings.TrimSpace(level))))
	z := zap.New(core)
	if corrID != "" {
		z = z.With(zap.String("corr_id", corrID))
	}
	return &Logger{z: z}
}

// NewNop 返回丢弃一切输出的日志器。
func NewNop() *Logger { return &Logger{z: zap.NewNop()} }

func utcRFC3339(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339))
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// With 返回附带固定键值的子日志器（如会话 id）。
func (l *Logger) With(key, value string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{z: l.z.With(zap.String(key, value)), sink: l.sink}
}

func (l *Logger) emit(lv zapcore.Level, comp, stage, code, msg string, dur time.Duration, count int64, kv map[string]string) {
	if l == nil || l.z == nil {
		return
	}
	ce := l.z.Check(lv, msg)
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, 6)
	fields = append(fields, zap.String("comp", comp), zap.String("stage", stage))
	if code != "" {
		fields = append(fields, zap.String("code", code))
	}
	if dur > 0 {
		fields = append(fields, zap.Int64("dur_ms", dur.Milliseconds()))
	}
	if count != 0 {
		fields = append(fields, zap.Int64("count", count))
	}
	if len(kv) > 0 {
		fields = append(fields, zap.Any("kv", kv))
	}
	ce.Write(fields...)
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.emit(zapcore.InfoLevel, comp, "start", "", msg, 0, 0, nil)
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWithKV 记录带键值的 start。
func (l *Logger) StartWithKV(comp, msg string, kv map[string]string) *Timer {
	l.emit(zapcore.InfoLevel, comp, "start", "", msg, 0, 0, kv)
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// Warn 记录可恢复问题（跳过的阶段、跳过的词条）。
func (l *Logger) Warn(comp, code, msg string, kv map[string]string) {
	l.emit(zapcore.WarnLevel, comp, "warn", code, msg, 0, 0, kv)
}

// Error 记录 error 事件（不采样）。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	var dur time.Duration
	if durSince != nil {
		dur = time.Since(*durSince)
	}
	l.emit(zapcore.ErrorLevel, comp, "error", code, msg, dur, 0, nil)
}

// ErrorWithKV 支持附带键值对（例如词典路径、方案名）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, kv map[string]string) {
	var dur time.Duration
	if durSince != nil {
		dur = time.Since(*durSince)
	}
	l.emit(zapcore.ErrorLevel, comp, "error", code, msg, dur, 0, kv)
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.emit(zapcore.InfoLevel, comp, "finish", "", msg, time.Since(start), count, nil)
}

// DebugStart 输出调试级别的 start 类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg string, kv map[string]string) {
	l.emit(zapcore.DebugLevel, comp, "start", "", msg, 0, 0, kv)
}

// Sync 刷出缓冲。
func (l *Logger) Sync() error {
	if l == nil || l.z == nil {
		return nil
	}
	return l.z.Sync()
}

// Close 刷出并关闭文件 sink。
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	_ = l.Sync()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l    *Logger
	comp string
	t0   time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.emit(zapcore.InfoLevel, t.comp, "finish", "", msg, time.Since(t.t0), count, nil)
}
