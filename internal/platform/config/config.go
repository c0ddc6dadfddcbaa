package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（生成 + Embeddings）
	OpenAI OpenAIConfig

	// LLM生成設定
	LLM LLMConfig

	// チャンク分割設定
	Chunking ChunkingConfig

	// ソース収集設定
	Sources SourcesConfig

	// Web収集設定
	Web WebConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	LLMModel           string
	EmbeddingModel     string
	EmbeddingDimension int
}

// LLMConfig は生成時の動作設定
type LLMConfig struct {
	MaxTokens   int
	Temperature float64
	DryRun      bool
}

// ChunkingConfig はコーパス分割の設定
type ChunkingConfig struct {
	MinTokens     int
	MaxTokens     int
	OverlapTokens int
}

// SourcesConfig はソース収集のパス設定
type SourcesConfig struct {
	YouTubeLinksPath string
	SourcesBaseDir   string
	PersonasBaseDir  string
	DriveFolderDir   string
}

// WebConfig はWebチャネルの設定
type WebConfig struct {
	SerpAPIKey      string
	MaxSources      int
	SummaryMaxChars int
	RequestTimeout  time.Duration
	RequestDelay    time.Duration
	AllowedDomains  []string
	DeniedDomains   []string
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "genesis"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "genesis"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			LLMModel:           getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
		},
		LLM: LLMConfig{
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			DryRun:      getEnvAsBool("DRY_RUN", false),
		},
		Chunking: ChunkingConfig{
			MinTokens:     getEnvAsInt("CHUNK_MIN_TOKENS", 500),
			MaxTokens:     getEnvAsInt("CHUNK_MAX_TOKENS", 1200),
			OverlapTokens: getEnvAsInt("CHUNK_OVERLAP_TOKENS", 100),
		},
		Sources: SourcesConfig{
			YouTubeLinksPath: getEnv("YOUTUBE_LINKS_PATH", "./data/youtube_links.txt"),
			SourcesBaseDir:   getEnv("SOURCES_BASE_DIR", "./data/sources"),
			PersonasBaseDir:  getEnv("PERSONAS_BASE_DIR", "./data/personas"),
			DriveFolderDir:   getEnv("DRIVE_FOLDER_DIR", "./data/drive"),
		},
		Web: WebConfig{
			SerpAPIKey:      getEnv("SERPAPI_API_KEY", ""),
			MaxSources:      getEnvAsInt("WEB_MAX_SOURCES", 20),
			SummaryMaxChars: getEnvAsInt("WEB_SUMMARY_MAX_CHARS", 500),
			RequestTimeout:  getEnvAsDuration("WEB_REQUEST_TIMEOUT", 30*time.Second),
			RequestDelay:    getEnvAsDuration("WEB_REQUEST_DELAY", time.Second),
			AllowedDomains:  getEnvAsCSV("WEB_ALLOWED_DOMAINS"),
			DeniedDomains:   getEnvAsCSV("WEB_DENIED_DOMAINS"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を時間として取得します。
// "30s" 形式と秒数の両方を受け付けます。
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// getEnvAsCSV は環境変数をカンマ区切りリストとして取得します
func getEnvAsCSV(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
