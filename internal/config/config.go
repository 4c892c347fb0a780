package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	defaultPort         = "8000"
	defaultDatabaseName = "reminder"
	defaultUserCacheTTL = time.Minute
	defaultAlgorithm    = "HS256"
	defaultAccessTTL    = 15 * time.Minute
	defaultLoginTTL     = 30 * time.Minute
	defaultBcryptCost   = 12
)

// ErrMissingJWTSecret JWT_SECRET 未设置
var ErrMissingJWTSecret = errors.New("config: JWT_SECRET is required")

// supportedAlgorithms 只支持 HMAC 签名
var supportedAlgorithms = map[string]bool{"HS256": true, "HS384": true, "HS512": true}

// Load 加载配置
//  1. 按 APP_ENV 加载 .env.{env} / .env
//  2. 加载 configs/common.yaml，再用 configs/{env}.yaml 覆盖
//  3. 环境变量覆盖 YAML
//  4. 校验（JWT_SECRET 必填，签名算法只接受 HS256/HS384/HS512）
func Load() (*Config, error) {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)
	// .env 中可能才设置 APP_ENV
	env = parseEnv(getEnv("APP_ENV", string(env)))

	yc, err := loadYAMLConfig(env)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(&yc.YAMLConfig)

	cfg := &Config{
		Env:            env,
		DatabaseURL:    buildDatabaseURL(yc.Database),
		DatabaseName:   yc.Database.Name,
		RedisURL:       buildRedisURL(yc.Redis),
		UserCacheTTL:   yc.Redis.UserCacheTTL,
		APIPort:        yc.APIServer.Port,
		Auth:           yc.Auth,
		Log:            yc.Log,
		ConfigFilePath: yc.loadedFrom,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults 代码硬编码默认值
func defaults() YAMLConfig {
	return YAMLConfig{
		APIServer: APIServerConfig{Port: defaultPort},
		Database:  DatabaseConfig{Host: "localhost", Port: 27017, Name: defaultDatabaseName},
		Redis:     RedisConfig{UserCacheTTL: defaultUserCacheTTL},
		Auth: AuthConfig{
			Algorithm:      defaultAlgorithm,
			AccessTokenTTL: defaultAccessTTL,
			LoginTokenTTL:  defaultLoginTTL,
			BcryptCost:     defaultBcryptCost,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml；文件不存在时跳过，格式错误时报错
func loadYAMLConfig(env Environment) (*yamlConfigInternal, error) {
	cfg := &yamlConfigInternal{YAMLConfig: defaults()}
	paths := effectiveConfigPaths(env)

	for _, name := range []string{"common.yaml", fmt.Sprintf("%s.yaml", env)} {
		path := findFile(paths, name)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg.YAMLConfig); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if name != "common.yaml" {
			cfg.loadedFrom = path
		}
	}
	return cfg, nil
}

// applyEnvOverrides 环境变量覆盖 YAML 配置
func applyEnvOverrides(c *YAMLConfig) {
	if v := firstEnv("MONGO_URI", "DATABASE_URL"); v != "" {
		c.Database.URI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		c.Database.Name = v
	}
	c.Database.Password = firstEnv("MONGO_PASSWORD", "MONGO_ROOT_PASSWORD")

	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if d, ok := envDuration("USER_CACHE_TTL"); ok {
		c.Redis.UserCacheTTL = d
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	if v := os.Getenv("JWT_ALGORITHM"); v != "" {
		c.Auth.Algorithm = v
	}
	// 兼容按分钟配置的变量名
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Auth.AccessTokenTTL = time.Duration(n) * time.Minute
		}
	}

	if v := os.Getenv("API_PORT"); v != "" {
		c.APIServer.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

// validate 校验并填充默认值
func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if !supportedAlgorithms[c.Auth.Algorithm] {
		return fmt.Errorf("config: unsupported JWT algorithm %q", c.Auth.Algorithm)
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = defaultAccessTTL
	}
	if c.Auth.LoginTokenTTL <= 0 {
		c.Auth.LoginTokenTTL = defaultLoginTTL
	}
	if c.DatabaseName == "" {
		c.DatabaseName = defaultDatabaseName
	}
	if c.UserCacheTTL <= 0 {
		c.UserCacheTTL = defaultUserCacheTTL
	}
	if c.APIPort == "" {
		c.APIPort = defaultPort
	}
	return nil
}
