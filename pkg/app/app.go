// Package app 应用的初始化、启动和优雅关闭
package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/S-FND/fnd1-sub000/pkg/config"
	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/middleware"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// newApp 创建Gin引擎，CORS中间件需要在路由之前注册
func newApp() *gin.Engine {
	gin.SetMode(config.Web.Mode)
	app := gin.Default()
	app.Use(middleware.CORSMiddleware())
	return app
}

// Run 启动服务，阻塞直到收到关闭信号
//  1. 初始化日志
//  2. 组装存储和服务，写入默认SLA配置
//  3. 注册路由
//  4. 启动SLA扫描调度器和指标收集器
//  5. 启动HTTP服务
func Run() {
	logger.InitLogger()
	logger.Info("ESG审批引擎启动中", zap.String("address", config.Web.Address()))

	c, err := newComponents(context.Background())
	if err != nil {
		logger.Fatal("初始化失败", zap.Error(err))
	}

	app := newApp()
	initRouter(app, c, middleware.IdentityMiddleware())

	bg, err := dispatch(c)
	if err != nil {
		logger.Fatal("启动后台服务失败", zap.Error(err))
	}

	server := &http.Server{
		Addr:         config.Web.Address(),
		Handler:      app,
		ReadTimeout:  config.Web.ReadTimeout,
		WriteTimeout: config.Web.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("HTTP服务开始监听", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP服务异常退出", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdown(server, bg)
}

// shutdown 依次关闭HTTP服务、后台服务、数据库和Redis连接
func shutdown(server *http.Server, bg *background) {
	logger.Info("收到关闭信号，开始优雅关闭", zap.Duration("timeout", config.Web.ShutdownTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), config.Web.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP服务关闭超时", zap.Error(err))
	}

	// 等待进行中的SLA扫描结束，之后才能关闭连接
	bg.Stop()

	if err := core.CloseDB(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}
	if err := core.CloseRedis(); err != nil {
		logger.Error("关闭Redis连接失败", zap.Error(err))
	}

	logger.Info("ESG审批引擎已关闭")
	_ = logger.Sync()
}
