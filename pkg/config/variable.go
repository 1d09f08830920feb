package config

const SystemCode = "esg_approval"

// SLAScanLockerKey SLA扫描的分布式锁key
const SLAScanLockerKey = "esg:approval:sla:scan"

// SystemActorID 系统自动操作（SLA升级等）使用的操作人
const SystemActorID = "system"
