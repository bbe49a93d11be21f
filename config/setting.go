package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type logLevel string

const (
	Debug logLevel = "debug"
	Info  logLevel = "info"
	Warn  logLevel = "warn"
	Error logLevel = "error"
	Fatal logLevel = "fatal"
	Panic logLevel = "panic"
)

// Module tags log lines and error payloads with the subsystem they came from.
type Module string

const (
	ModuleSetting   Module = "setting"
	ModuleServer    Module = "server"
	ModuleDatabase  Module = "database"
	ModuleSearch    Module = "search"
	ModuleOpenAI    Module = "openai"
	ModuleMistral   Module = "mistral"
	ModuleS3        Module = "s3"
	ModuleExam      Module = "exam"
	ModuleDocument  Module = "document"
	ModuleSession   Module = "session"
	ModuleRetriever Module = "retriever"
)

type serverConfig struct {
	Port      int    `koanf:"port" validate:"required"`
	Mode      string `koanf:"mode" validate:"required"`
	BodyLimit int    `koanf:"body_limit" validate:"required"`
	AppName   string `koanf:"app_name" validate:"required"`
}

type databaseConfig struct {
	Host         string `koanf:"host" validate:"required"`
	Port         int    `koanf:"port" validate:"required"`
	User         string `koanf:"user" validate:"required"`
	Password     string `koanf:"password"`
	Name         string `koanf:"name" validate:"required"`
	MaxIdleConns int    `koanf:"max_idle_conns" validate:"required"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"required"`
	MaxLifetime  int    `koanf:"max_lifetime" validate:"required"`
}

type openaiConfig struct {
	Key            string  `koanf:"key" validate:"required"`
	Endpoint       string  `koanf:"endpoint"`
	ChatModel      string  `koanf:"chat_model" validate:"required"`
	EmbeddingModel string  `koanf:"embedding_model" validate:"required"`
	EmbeddingDim   int     `koanf:"embedding_dim" validate:"required"`
	Temperature    float32 `koanf:"temperature"`
	MaxTokens      int     `koanf:"max_tokens" validate:"required"`
}

type mistralConfig struct {
	Key      string `koanf:"key" validate:"required"`
	Endpoint string `koanf:"endpoint" validate:"required"`
	Model    string `koanf:"model" validate:"required"`
}

type indexHNSWConfig struct {
	MetricType     string `koanf:"metric_type" validate:"required"`
	M              int    `koanf:"m" validate:"required"`
	EfConstruction int    `koanf:"ef_construction" validate:"required"`
	EfSearch       int    `koanf:"ef_search" validate:"required"`
}

type searchConfig struct {
	Address         string          `koanf:"address" validate:"required"`
	Index           string          `koanf:"index" validate:"required"`
	IndexHNSWConfig indexHNSWConfig `koanf:"index_hnsw_config"`
}

type retrievalConfig struct {
	TopK           int `koanf:"top_k" validate:"required"`
	RetryAttempts  int `koanf:"retry_attempts" validate:"required"`
	RetryBaseDelay int `koanf:"retry_base_delay_ms" validate:"required"`
}

type examConfig struct {
	QuestionCount int `koanf:"question_count" validate:"required"`
}

// s3Config is optional: an empty bucket disables upload archiving.
type s3Config struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Region    string `koanf:"region"`
	Bucket    string `koanf:"bucket"`
}

type corsConfig struct {
	AllowOrigins []string `koanf:"allow_origins" validate:"required"`
	AllowMethods []string `koanf:"allow_methods" validate:"required"`
	AllowHeaders []string `koanf:"allow_headers" validate:"required"`
}

type config struct {
	Server    serverConfig    `koanf:"server"`
	Database  databaseConfig  `koanf:"database"`
	OpenAI    openaiConfig    `koanf:"openai"`
	Mistral   mistralConfig   `koanf:"mistral"`
	Search    searchConfig    `koanf:"search"`
	Retrieval retrievalConfig `koanf:"retrieval"`
	Exam      examConfig      `koanf:"exam"`
	S3        s3Config        `koanf:"s3"`
	Cors      corsConfig      `koanf:"cors"`
	LogLevel  logLevel        `koanf:"log_level"`
	Dsn       string          `koanf:"dsn"`
}

var defaultConfig = config{
	Server: serverConfig{
		Port:      8000,
		Mode:      "release",
		BodyLimit: 20 * 1024 * 1024,
		AppName:   "nabook",
	},
	Database: databaseConfig{
		Host:         "127.0.0.1",
		Port:         3306,
		User:         "root",
		Password:     "",
		Name:         "nabook",
		MaxIdleConns: 4,
		MaxOpenConns: 16,
		MaxLifetime:  30,
	},
	OpenAI: openaiConfig{
		ChatModel:      "gpt-4o",
		EmbeddingModel: "text-embedding-3-small",
		EmbeddingDim:   1536,
		Temperature:    0.2,
		MaxTokens:      2048,
	},
	Mistral: mistralConfig{
		Endpoint: "https://api.mistral.ai",
		Model:    "mistral-ocr",
	},
	Search: searchConfig{
		Address: "localhost:19530",
		Index:   "nabook_index",
		IndexHNSWConfig: indexHNSWConfig{
			MetricType:     "COSINE",
			M:              4,
			EfConstruction: 400,
			EfSearch:       500,
		},
	},
	Retrieval: retrievalConfig{
		TopK:           3,
		RetryAttempts:  4,
		RetryBaseDelay: 500,
	},
	Exam: examConfig{
		QuestionCount: 3,
	},
	S3: s3Config{
		Region: "us-east-1",
	},
	Cors: corsConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	},
	LogLevel: Info,
}

var (
	Cfg  = defaultConfig
	once sync.Once
)

func buildMySQLDSN(cfg databaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
}

// Init loads defaults, the YAML file at path (if any) and APP_-prefixed
// environment variables, then validates the result. A missing credential is a
// hard error: callers are expected to abort startup, not defer the failure to
// the first upstream call.
func Init(path string) error {
	var initErr error
	once.Do(func() {
		k := koanf.New(".")
		Cfg = defaultConfig

		// file (optional)
		if e := k.Load(file.Provider(path), yaml.Parser()); e != nil && !os.IsNotExist(e) {
			initErr = fmt.Errorf("%v: load %s: %w", ModuleSetting, path, e)
			return
		}

		// env overlay; double underscore separates levels,
		// e.g. APP_OPENAI__KEY -> openai.key, APP_OPENAI__EMBEDDING_MODEL -> openai.embedding_model
		if e := k.Load(env.Provider("APP_", ".", func(s string) string {
			s = strings.ToLower(strings.TrimPrefix(s, "APP_"))
			return strings.ReplaceAll(s, "__", ".")
		}), nil); e != nil {
			initErr = fmt.Errorf("%v: load env: %w", ModuleSetting, e)
			return
		}

		if e := k.Unmarshal("", &Cfg); e != nil {
			initErr = fmt.Errorf("%v: unmarshal: %w", ModuleSetting, e)
			return
		}

		if Cfg.Dsn == "" {
			Cfg.Dsn = buildMySQLDSN(Cfg.Database)
		}

		initErr = validate()
	})
	return initErr
}

func validate() error {
	v := validator.New()
	err := v.Struct(Cfg)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%v: config validation failed:", ModuleSetting))
		for _, e := range errs {
			sb.WriteString(fmt.Sprintf("\n  %s: failed '%s' (value: %v)", e.Namespace(), e.Tag(), e.Value()))
		}
		return fmt.Errorf("%s", sb.String())
	}
	return fmt.Errorf("%v: config validation failed: %w", ModuleSetting, err)
}
