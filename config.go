package glucoplate

import "time"

type ServerConfig struct {
	Addr            string        `env:"SERVER_ADDR,default=:8080"`
	MaxUploadBytes  int64         `env:"SERVER_MAX_UPLOAD_BYTES,default=5242880"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	GinMode         string        `env:"GIN_MODE,default=release"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET,required"`
	Issuer    string        `env:"JWT_ISSUER,default=glucoplate"`
	AccessTTL time.Duration `env:"JWT_ACCESS_TTL,default=24h"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=text"`
}

type CatalogConfig struct {
	Path     string `env:"CATALOG_PATH"`
	S3Bucket string `env:"CATALOG_S3_BUCKET"`
	S3Key    string `env:"CATALOG_S3_KEY,default=catalog/foods.json"`
}

type RecognitionConfig struct {
	Providers                []string      `env:"RECOGNITION_PROVIDERS,default=gemini;perplexity;openai"`
	ProviderTimeout          time.Duration `env:"RECOGNITION_PROVIDER_TIMEOUT,default=10s"`
	MaxRetries               int           `env:"RECOGNITION_MAX_RETRIES,default=1"`
	RetryDelay               time.Duration `env:"RECOGNITION_RETRY_DELAY,default=500ms"`
	MaxItems                 int           `env:"RECOGNITION_MAX_ITEMS,default=5"`
	UsePlaceholders          bool          `env:"RECOGNITION_PLACEHOLDERS,default=false"`
	DefaultLanguage          string        `env:"DEFAULT_LANGUAGE,default=ar"`
	RunLogPath               string        `env:"RECOGNITION_RUN_LOG_PATH"`
	RunLogToStdout           bool          `env:"RECOGNITION_RUN_LOG_STDOUT,default=false"`
	RekognitionMinConfidence float32       `env:"REKOGNITION_MIN_CONFIDENCE,default=75"`
	RekognitionMaxLabels     int32         `env:"REKOGNITION_MAX_LABELS,default=10"`
}

type ChatConfig struct {
	Providers       []string      `env:"CHAT_PROVIDERS,default=perplexity;gemini;openai;knowledge"`
	ProviderTimeout time.Duration `env:"CHAT_PROVIDER_TIMEOUT,default=10s"`
}

type ProviderConfig struct {
	GeminiAPIKey     string  `env:"GEMINI_API_KEY"`
	GeminiModel      string  `env:"GEMINI_MODEL,default=gemini-1.5-flash"`
	OpenAIAPIKey     string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string  `env:"OPENAI_BASE_URL,default=https://api.openai.com/v1"`
	OpenAIModel      string  `env:"OPENAI_MODEL,default=gpt-4o"`
	PerplexityAPIKey string  `env:"PERPLEXITY_API_KEY"`
	PerplexityURL    string  `env:"PERPLEXITY_BASE_URL,default=https://api.perplexity.ai"`
	PerplexityModel  string  `env:"PERPLEXITY_MODEL,default=llama-3.1-sonar-small-128k-online"`
	BedrockModelID   string  `env:"BEDROCK_MODEL_ID"`
	OllamaBaseURL    string  `env:"OLLAMA_BASE_URL"`
	OllamaModel      string  `env:"OLLAMA_MODEL,default=llava"`
	MaxTokens        int32   `env:"MAX_TOKENS,default=500"`
	Temperature      float32 `env:"TEMPERATURE,default=0.2"`
	TopP             float32 `env:"TOP_P,default=0.9"`
}

type NotifyConfig struct {
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	SlackChannel    string `env:"SLACK_CHANNEL,default=#meal-alerts"`
}
