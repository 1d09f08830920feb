package services

import (
	"fmt"
	"sync"

	"github.com/S-FND/fnd1-sub000/pkg/core"
)

// RecordModule 接入审批引擎的模块描述
type RecordModule struct {
	Module       core.Module
	VersionTable string
	RecordTypes  []string
}

// accepts 是否接受该记录类型
func (m *RecordModule) accepts(recordType string) bool {
	for _, t := range m.RecordTypes {
		if t == recordType {
			return true
		}
	}
	return false
}

// RecordRegistry 模块注册表
// 各模块在启动时注册自己的版本表和记录类型，发起审批时据此校验记录引用
type RecordRegistry struct {
	mutex   sync.RWMutex
	modules map[core.Module]*RecordModule
}

// NewRecordRegistry 创建空的注册表
func NewRecordRegistry() *RecordRegistry {
	return &RecordRegistry{
		modules: map[core.Module]*RecordModule{},
	}
}

// DefaultRecordRegistry 注册内置的五个ESG模块
func DefaultRecordRegistry() *RecordRegistry {
	registry := NewRecordRegistry()
	defaults := map[core.Module][]string{
		core.ModuleESGMetrics:    {"metric", "kpi"},
		core.ModuleESGCAP:        {"cap_item", "action_plan"},
		core.ModuleGHGAccounting: {"scope1", "scope2", "scope3", "emission_factor"},
		core.ModuleBRSRReport:    {"brsr_section", "principle"},
		core.ModuleESGDD:         {"dd_response", "questionnaire"},
	}
	for _, module := range core.Modules {
		// 内置模块都有版本表，不会出错
		_ = registry.Register(module, defaults[module]...)
	}
	return registry
}

// Register 注册模块，重复注册会追加记录类型
func (r *RecordRegistry) Register(module core.Module, recordTypes ...string) error {
	table := core.VersionTable(module)
	if table == "" {
		return fmt.Errorf("模块 %s 没有版本表", module)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, ok := r.modules[module]
	if !ok {
		entry = &RecordModule{Module: module, VersionTable: table}
		r.modules[module] = entry
	}
	for _, t := range recordTypes {
		if !entry.accepts(t) {
			entry.RecordTypes = append(entry.RecordTypes, t)
		}
	}
	return nil
}

// Resolve 查找模块
func (r *RecordRegistry) Resolve(module core.Module) (*RecordModule, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, ok := r.modules[module]
	if !ok {
		return nil, core.BadRequestf("未注册的模块: %s", module)
	}
	return entry, nil
}

// Validate 校验记录引用
func (r *RecordRegistry) Validate(module core.Module, recordType, recordID string) error {
	entry, err := r.Resolve(module)
	if err != nil {
		return err
	}
	if recordID == "" || len(recordID) > 64 {
		return core.BadRequestf("record_id不能为空且不超过64个字符")
	}
	if !entry.accepts(recordType) {
		return core.BadRequestf("模块 %s 不支持记录类型: %s", module, recordType)
	}
	return nil
}
