// Package main ESG审批引擎
//
// ESG数据（指标、整改计划、温室气体核算、BRSR报告、尽调问卷）的maker-checker审批服务：
// 版本化记录、审批单台账、审批历史、状态机、SLA监控与升级
//
// 存储：PostgreSQL（DB_DRIVER=memory 时使用内存存储）
// Redis：可选，用于SLA扫描的分布式锁和升级事件发布

// @title           ESG审批引擎 API
// @version         1.0.0
// @description     ESG数据变更的maker-checker审批接口
// @BasePath        /api/v1

// @securityDefinitions.apikey  BearerAuth
// @in                         header
// @name                       Authorization
// @description                JWT token, format: Bearer {token}
package main

import "github.com/S-FND/fnd1-sub000/pkg/app"

func main() {
	app.Run()
}
