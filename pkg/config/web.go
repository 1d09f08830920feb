package config

import (
	"net"
	"strconv"
	"time"
)

// web HTTP服务配置
type web struct {
	Host string
	Port int
	Mode string // gin运行模式：debug, release, test

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration // 优雅关闭时等待进行中请求的时长
}

// Address 监听地址
func (w *web) Address() string {
	return net.JoinHostPort(w.Host, strconv.Itoa(w.Port))
}

// Web 全局HTTP服务配置
var Web *web

func parseWeb() {
	Web = &web{
		Host: GetDefaultEnv("WEB_HOST", "0.0.0.0"),
		Port: GetDefaultEnvInt("WEB_PORT", 8000),
		Mode: GetDefaultEnv("GIN_MODE", "release"),

		ReadTimeout:     GetDefaultEnvDuration("WEB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    GetDefaultEnvDuration("WEB_WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: GetDefaultEnvDuration("WEB_SHUTDOWN_TIMEOUT", 20*time.Second),
	}
}

func init() {
	parseWeb()
}
