// Package services 业务逻辑服务层
//
// 审批引擎的各个组件：版本存储、审批单台账、审批历史、状态机、SLA监控
package services

import (
	"fmt"
	"sync"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DualApprovalRule 双人审批规则评估器
//
// 模块SLA配置中的 dual_approval_rule 是一个expr布尔表达式，命中时该审批单需要双人审批。
// 表达式中可以访问的变量：
//   - module, record_id, record_type
//   - priority: low / medium / high / critical
//   - priority_rank: 1-4
//   - materiality_flag
//   - maker_role
//
// 示例：materiality_flag && priority in ["high", "critical"]
type DualApprovalRule struct {
	// cache 编译后的表达式程序缓存
	cache map[string]*vm.Program
	mutex sync.RWMutex
}

// NewDualApprovalRule 创建规则评估器
func NewDualApprovalRule() *DualApprovalRule {
	return &DualApprovalRule{
		cache: make(map[string]*vm.Program),
	}
}

// ruleEnv 构建表达式的变量
func ruleEnv(request *core.ApprovalRequest, makerRole core.Role) map[string]interface{} {
	return map[string]interface{}{
		"module":           string(request.Module),
		"record_id":        request.RecordID,
		"record_type":      request.RecordType,
		"priority":         string(request.Priority),
		"priority_rank":    request.Priority.Rank(),
		"materiality_flag": request.MaterialityFlag,
		"maker_role":       string(makerRole),
	}
}

// Validate 校验表达式能否编译，空表达式合法
func (r *DualApprovalRule) Validate(rule string) error {
	if rule == "" {
		return nil
	}
	if _, err := r.getOrCompileProgram(rule); err != nil {
		return core.BadRequestf("dual_approval_rule编译失败: %s", err.Error())
	}
	return nil
}

// Evaluate 评估规则，空规则返回false
func (r *DualApprovalRule) Evaluate(rule string, request *core.ApprovalRequest, makerRole core.Role) (bool, error) {
	if rule == "" {
		return false, nil
	}

	program, err := r.getOrCompileProgram(rule)
	if err != nil {
		return false, fmt.Errorf("编译表达式失败: %w", err)
	}

	output, err := expr.Run(program, ruleEnv(request, makerRole))
	if err != nil {
		return false, fmt.Errorf("执行表达式失败: %w", err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("表达式结果不是 bool 类型: %T", output)
	}
	return result, nil
}

// getOrCompileProgram 获取或编译表达式程序（带缓存）
func (r *DualApprovalRule) getOrCompileProgram(rule string) (*vm.Program, error) {
	r.mutex.RLock()
	if program, ok := r.cache[rule]; ok {
		r.mutex.RUnlock()
		return program, nil
	}
	r.mutex.RUnlock()

	program, err := expr.Compile(rule,
		expr.Env(ruleEnv(&core.ApprovalRequest{}, "")),
		expr.AsBool(),
	)
	if err != nil {
		return nil, err
	}

	r.mutex.Lock()
	r.cache[rule] = program
	r.mutex.Unlock()
	return program, nil
}
