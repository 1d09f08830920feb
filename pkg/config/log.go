package config

// log 日志配置
type log struct {
	Level   string // debug, info, warn, error
	Format  string // json 或 console
	Output  string // stdout, file, both
	Service string // 每条日志附带的service字段
	File    logFile
}

// logFile 文件输出与滚动策略
type logFile struct {
	Path       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

// ToStdout 是否输出到标准输出
func (l *log) ToStdout() bool {
	return l.Output != "file"
}

// ToFile 是否输出到文件
func (l *log) ToFile() bool {
	return l.Output == "file" || l.Output == "both"
}

// Log 全局日志配置
var Log *log

func parseLog() {
	Log = &log{
		Level:   GetDefaultEnv("LOG_LEVEL", "info"),
		Format:  GetDefaultEnv("LOG_FORMAT", "json"),
		Output:  GetDefaultEnv("LOG_OUTPUT", "stdout"),
		Service: GetDefaultEnv("LOG_SERVICE", SystemCode),
		File: logFile{
			Path:       GetDefaultEnv("LOG_FILE_PATH", "./logs/esg-approval.log"),
			MaxSizeMB:  GetDefaultEnvInt("LOG_MAX_SIZE", 100),
			MaxAgeDays: GetDefaultEnvInt("LOG_MAX_AGE", 30),
			MaxBackups: GetDefaultEnvInt("LOG_MAX_BACKUPS", 10),
			Compress:   GetDefaultEnvBool("LOG_COMPRESS", true),
		},
	}
}

func init() {
	parseLog()
}
