package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParserConfig 定义了 PDF 解析流水线的配置。
type ParserConfig struct {
	MinTextChars   int `yaml:"minTextChars"`   // 页面文本低于此字符数时判定为需要 OCR (参考值: 50)
	OCRBatchSize   int `yaml:"ocrBatchSize"`   // 每个 OCR 批次包含的页数 (参考值: 20)
	ExtractWorkers int `yaml:"extractWorkers"` // 页面抽取的并发数上限 (最终取 min(CPU, 此值))
	OCRWorkers     int `yaml:"ocrWorkers"`     // OCR 批次提交的并发数上限, 应小于抽取并发数
}

// LlamaParseConfig 定义了外部视觉文档解析服务的配置。
type LlamaParseConfig struct {
	BaseURL      string `yaml:"baseURL"`      // 服务地址
	APIKey       string `yaml:"apiKey"`       // API 密钥
	PollInterval int    `yaml:"pollInterval"` // 轮询任务结果的间隔 (秒)
	Timeout      int    `yaml:"timeout"`      // 单个批次请求的超时时间 (秒)
}

// IndexConfig 定义了分块与增量索引的配置。
type IndexConfig struct {
	RootDir        string `yaml:"rootDir"`        // 持久化索引的根目录, 每个文档一个子目录
	ChunkSize      int    `yaml:"chunkSize"`      // 分块的最大 token 数
	ChunkOverlap   int    `yaml:"chunkOverlap"`   // 相邻分块之间的重叠 token 数
	EmbedBatchSize int    `yaml:"embedBatchSize"` // 每批嵌入的分块数 (参考值: 100)
	GCEveryBatches int    `yaml:"gcEveryBatches"` // 每处理 N 批后触发一次内存回收
}

// RetrievalConfig 定义了检索阶段的候选集与最终集大小。
type RetrievalConfig struct {
	StandardK      int `yaml:"standardK"`      // Standard 深度的粗召回数量
	StandardFinalK int `yaml:"standardFinalK"` // Standard 深度重排后保留的数量
	DeepK          int `yaml:"deepK"`          // Deep Dive 深度的粗召回数量
	DeepFinalK     int `yaml:"deepFinalK"`     // Deep Dive 深度重排后保留的数量
}

// RerankerConfig 定义了 Cohere 重排模型的配置。
type RerankerConfig struct {
	Enabled bool   `yaml:"enabled"` // 是否启用重排
	APIKey  string `yaml:"apiKey"`  // Cohere API 密钥
	Model   string `yaml:"model"`   // 重排模型名称 (例如: "rerank-english-v3.0")
	Timeout int    `yaml:"timeout"` // 重排请求的超时时间 (秒)
}

// GeminiConfig 包含了 Gemini 模型的配置。
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"` // Gemini API 密钥
	Model  string `yaml:"model"`  // Gemini 模型名称
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider string       `yaml:"provider"` // LLM提供商 (例如: "gemini")
	Gemini   GeminiConfig `yaml:"gemini"`   // Gemini 模型配置
}

// EmbeddingConfig 包含了不同Embedding提供商的配置。
type EmbeddingConfig struct {
	Provider string       `yaml:"provider"` // Embedding提供商 (例如: "gemini")
	Gemini   GeminiConfig `yaml:"gemini"`   // Gemini 模型配置
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address    string `yaml:"address"`    // Redis 服务器地址 (例如: "localhost:6379")
	Password   string `yaml:"password"`   // Redis 密码
	DB         int    `yaml:"db"`         // Redis 数据库编号
	SummaryTTL int    `yaml:"summaryTTL"` // 文档摘要缓存的有效期 (秒)
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 原始 PDF 归档的存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// DatabaseConfigs 包含所有外部存储的配置。
type DatabaseConfigs struct {
	Redis RedisConfig `yaml:"redis"` // Redis 摘要缓存配置
	MinIO MinIOConfig `yaml:"minio"` // MinIO 对象存储配置
}

// ServerConfig 定义了 HTTP 服务的配置。
type ServerConfig struct {
	HTTPPort string `yaml:"httpPort"` // HTTP 监听端口 (例如: ":8080")
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo         `yaml:"app"`        // 应用程序信息
	Server     ServerConfig    `yaml:"server"`     // HTTP 服务配置
	Logger     LoggerConfig    `yaml:"logger"`     // 日志记录器配置
	Parser     ParserConfig    `yaml:"parser"`     // PDF 解析流水线配置
	LlamaParse LlamaParseConfig `yaml:"llamaParse"` // 外部 OCR 解析服务配置
	Index      IndexConfig     `yaml:"index"`      // 分块与索引配置
	Retrieval  RetrievalConfig `yaml:"retrieval"`  // 检索配置
	Reranker   RerankerConfig  `yaml:"reranker"`   // 重排模型配置
	LLM        LLMConfig       `yaml:"llm"`        // LLM 配置部分
	Embedding  EmbeddingConfig `yaml:"embedding"`  // Embedding 配置部分
	Databases  DatabaseConfigs `yaml:"databases"`  // 外部存储配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig // 声明一个AppConfig变量用于存储解析后的配置。
	// 将 YAML 内容解析到 cfg 结构体中。
	err = yaml.Unmarshal(yamlFile, &cfg)
	if err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}

	// API 密钥优先从环境变量读取，避免写入配置文件。
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.Gemini.APIKey = v
		cfg.Embedding.Gemini.APIKey = v
	}
	if v := os.Getenv("COHERE_API_KEY"); v != "" {
		cfg.Reranker.APIKey = v
	}
	if v := os.Getenv("LLAMAPARSE_API_KEY"); v != "" {
		cfg.LlamaParse.APIKey = v
	}

	cfg.applyDefaults()
	return &cfg, nil // 返回解析后的配置和nil错误。
}

// applyDefaults 为未设置的字段填充参考默认值。
func (c *AppConfig) applyDefaults() {
	if c.Parser.MinTextChars == 0 {
		c.Parser.MinTextChars = 50
	}
	if c.Parser.OCRBatchSize == 0 {
		c.Parser.OCRBatchSize = 20
	}
	if c.Parser.ExtractWorkers == 0 {
		c.Parser.ExtractWorkers = 4
	}
	if c.Parser.OCRWorkers == 0 {
		c.Parser.OCRWorkers = 2
	}
	if c.LlamaParse.PollInterval == 0 {
		c.LlamaParse.PollInterval = 2
	}
	if c.LlamaParse.Timeout == 0 {
		c.LlamaParse.Timeout = 120
	}
	if c.Index.RootDir == "" {
		c.Index.RootDir = "data/indexes"
	}
	if c.Index.ChunkSize == 0 {
		c.Index.ChunkSize = 512
	}
	if c.Index.ChunkOverlap == 0 {
		c.Index.ChunkOverlap = 64
	}
	if c.Index.EmbedBatchSize == 0 {
		c.Index.EmbedBatchSize = 100
	}
	if c.Index.GCEveryBatches == 0 {
		c.Index.GCEveryBatches = 5
	}
	if c.Retrieval.StandardK == 0 {
		c.Retrieval.StandardK = 12
	}
	if c.Retrieval.StandardFinalK == 0 {
		c.Retrieval.StandardFinalK = 6
	}
	if c.Retrieval.DeepK == 0 {
		c.Retrieval.DeepK = 24
	}
	if c.Retrieval.DeepFinalK == 0 {
		c.Retrieval.DeepFinalK = 10
	}
	if c.Reranker.Model == "" {
		c.Reranker.Model = "rerank-english-v3.0"
	}
	if c.Reranker.Timeout == 0 {
		c.Reranker.Timeout = 15
	}
	if c.Databases.Redis.SummaryTTL == 0 {
		c.Databases.Redis.SummaryTTL = 86400
	}
	if c.Server.HTTPPort == "" {
		c.Server.HTTPPort = ":8080"
	}
}
