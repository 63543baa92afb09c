package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/A1doranM/passivbot/monitor/logschema"
)

// Logger 封装zap，提供平仓域的结构化事件输出。
// 事件字段会先经过 logschema 校验，缺字段的事件照常输出并附带 schema_error。
type Logger struct {
	*zap.Logger
	config Config
}

// Config 日志配置
type Config struct {
	Level      string   `yaml:"level"`       // debug, info, warn, error
	Format     string   `yaml:"format"`      // json 或 console
	Outputs    []string `yaml:"outputs"`     // stdout, file
	OutputFile string   `yaml:"output_file"` // 日志文件路径
	ErrorFile  string   `yaml:"error_file"`  // 错误日志单独文件
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Format:  "json",
		Outputs: []string{"stdout"},
	}
}

// New 创建新的Logger实例
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}

	cores := []zapcore.Core{}
	if contains(cfg.Outputs, "stdout") {
		cores = append(cores, zapcore.NewCore(
			newEncoder(cfg.Format), zapcore.AddSync(os.Stdout), level))
	}
	if contains(cfg.Outputs, "file") && cfg.OutputFile != "" {
		core, err := fileCore(cfg.OutputFile, newEncoder("json"), level)
		if err != nil {
			return nil, err
		}
		cores = append(cores, core)
	}
	if cfg.ErrorFile != "" {
		core, err := fileCore(cfg.ErrorFile, newEncoder("json"), zapcore.ErrorLevel)
		if err != nil {
			return nil, err
		}
		cores = append(cores, core)
	}

	zl := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{Logger: zl, config: cfg}, nil
}

func newEncoder(format string) zapcore.Encoder {
	if format == "console" {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(ec)
}

func fileCore(path string, enc zapcore.Encoder, level zapcore.LevelEnabler) (zapcore.Core, error) {
	w, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return zapcore.NewCore(enc, zapcore.AddSync(w), level), nil
}

// WithFields 添加字段返回新的logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(zapFields(fields)...), config: l.config}
}

// emit 统一出口：补时间戳、按 logschema 校验必填字段后输出。
func (l *Logger) emit(level zapcore.Level, schema, event string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err := logschema.Validate(schema, fields); err != nil {
		fields["schema_error"] = err.Error()
	}
	fields["event"] = event
	fields["ts"] = time.Now().UTC().Format(time.RFC3339Nano)

	switch level {
	case zapcore.DebugLevel:
		l.Debug(schema, zapFields(fields)...)
	case zapcore.WarnLevel:
		l.Warn(schema, zapFields(fields)...)
	case zapcore.ErrorLevel:
		l.Error(schema, zapFields(fields)...)
	default:
		l.Info(schema, zapFields(fields)...)
	}
}

// LogClose 记录平仓档位事件，量大，按 Debug 级别输出
func (l *Logger) LogClose(event string, fields map[string]interface{}) {
	l.emit(zapcore.DebugLevel, "close_event", event, fields)
}

// LogFill 记录成交相关事件
func (l *Logger) LogFill(event string, fields map[string]interface{}) {
	l.emit(zapcore.InfoLevel, "fill_event", event, fields)
}

// LogUnstuck 记录解套减仓事件，属于风险处置，按 Warn 级别输出
func (l *Logger) LogUnstuck(event string, fields map[string]interface{}) {
	l.emit(zapcore.WarnLevel, "unstuck_event", event, fields)
}

// LogSummary 记录一次回测运行的汇总结果
func (l *Logger) LogSummary(fields map[string]interface{}) {
	l.emit(zapcore.InfoLevel, "backtest_summary", "backtest_summary", fields)
}

// Close 关闭日志器
func (l *Logger) Close() error {
	return l.Sync()
}

func zapFields(fields map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
