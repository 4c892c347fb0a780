// Package config 统一配置管理
//
// 配置加载优先级（高→低）：
//  1. 环境变量（通过 .env 文件或 shell/systemd 注入）
//  2. YAML 配置文件（common.yaml，再由 {env}.yaml 覆盖）
//  3. 代码硬编码默认值
//
// 凭据单一数据源：
//
//	密钥只存在环境变量中（YAML 中不存储 JWT_SECRET 与数据库密码）。
//
// 配置路径确定策略：
//  1. --config 命令行参数（SetConfigDir）
//  2. CONFIG_DIR 环境变量
//  3. 按 APP_ENV 选择默认路径：
//     - prod → /etc/reminder/
//     - dev/test → ./configs/
package config

import "time"

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	APIServer APIServerConfig `yaml:"api_server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
}

// APIServerConfig API Server 配置
type APIServerConfig struct {
	Port string `yaml:"port"` // 监听端口
}

// DatabaseConfig MongoDB 配置
type DatabaseConfig struct {
	URI      string `yaml:"uri"` // 优先于 host/port，如 mongodb://localhost:27017
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // 只从 MONGO_PASSWORD 环境变量读取
	Name     string `yaml:"name"`
}

// RedisConfig 用户查找缓存；URL 与 Host 都为空时不启用
type RedisConfig struct {
	URL          string        `yaml:"url"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	DB           int           `yaml:"db"`
	Password     string        `yaml:"-"` // 只从 REDIS_PASSWORD 环境变量读取
	UserCacheTTL time.Duration `yaml:"user_cache_ttl"`
}

// AuthConfig 认证配置
// 注意：JWTSecret 只从环境变量读取，不存储在 YAML 中
type AuthConfig struct {
	JWTSecret      string        `yaml:"-"`
	Algorithm      string        `yaml:"algorithm"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	LoginTokenTTL  time.Duration `yaml:"login_token_ttl"`
	BcryptCost     int           `yaml:"bcrypt_cost"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug/info/warn/error
	Format string `yaml:"format"` // json/text
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env            Environment
	DatabaseURL    string
	DatabaseName   string
	RedisURL       string // 为空表示不启用缓存
	UserCacheTTL   time.Duration
	APIPort        string
	Auth           AuthConfig
	Log            LogConfig
	ConfigFilePath string // 实际加载的 {env}.yaml 路径，未找到时为空
}

// yamlConfigInternal 内部包装，记录配置文件来源（不参与 YAML 序列化）
type yamlConfigInternal struct {
	YAMLConfig `yaml:",inline"`
	loadedFrom string
}
