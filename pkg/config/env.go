package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// dotEnvLoaded 在所有init()之前加载.env文件（包级变量先于init初始化）
var dotEnvLoaded = loadDotEnv()

// loadDotEnv 加载.env文件，已存在的环境变量不会被覆盖
// 文件路径可通过 ENV_FILE 指定，默认为当前目录的 .env，文件不存在时忽略
func loadDotEnv() bool {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return godotenv.Load(path) == nil
}

// GetDefaultEnv 获取环境变量，若不存在则返回默认值
// key: 环境变量名
// value: 默认值
// return: 环境变量值
func GetDefaultEnv(key, value string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return value
	}
	return os.ExpandEnv(val)
}

// GetDefaultEnvInt 获取整数类型的环境变量，解析失败时返回默认值
func GetDefaultEnvInt(key string, value int) int {
	v, err := strconv.Atoi(GetDefaultEnv(key, strconv.Itoa(value)))
	if err != nil {
		return value
	}
	return v
}

// GetDefaultEnvBool 获取布尔类型的环境变量
func GetDefaultEnvBool(key string, value bool) bool {
	v, err := strconv.ParseBool(GetDefaultEnv(key, strconv.FormatBool(value)))
	if err != nil {
		return value
	}
	return v
}

// GetDefaultEnvDuration 获取时长类型的环境变量，格式如 "10m"、"1h"
func GetDefaultEnvDuration(key string, value time.Duration) time.Duration {
	v, err := time.ParseDuration(GetDefaultEnv(key, value.String()))
	if err != nil {
		return value
	}
	return v
}
