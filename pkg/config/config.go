package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mode selects which OCR backend the pipeline talks to.
const (
	ModeDatalab   = "datalab"
	ModeTesseract = "tesseract"
	ModeGigaChat  = "gigachat"
	ModeDocAI     = "docai"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Pipeline  PipelineConfig
	Datalab   DatalabConfig
	GigaChat  GigaChatConfig
	DocAI     DocAIConfig
	Tesseract TesseractConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port      string
	APIToken  string
	UploadDir string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type PipelineConfig struct {
	Mode               string
	ImagesDir          string
	OutputDir          string
	QualityMinScore    float64
	FieldMinConfidence float64
	UseDocAIGate       bool
	Persist            bool
}

// DatalabConfig drives the asynchronous REST OCR backend: a single in-flight
// submit followed by fixed-interval polling up to MaxPollAttempts.
type DatalabConfig struct {
	APIKey          string
	BaseURL         string
	Endpoint        string
	PollInterval    time.Duration
	MaxPollAttempts int
	HTTPTimeout     time.Duration
	PageRange       string
	MaxPages        int
	SkipCache       bool
	Langs           string
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
}

type DocAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
}

type TesseractConfig struct {
	Languages []string
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	// No .env file is fine, environment variables are used directly
	// (useful for Docker/K8s)

	pollInterval, err := getFloat("API_POLL_INTERVAL_SECONDS", 2.0)
	if err != nil {
		return nil, err
	}
	httpTimeout, err := getFloat("API_HTTP_TIMEOUT_SECONDS", 60.0)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := getInt("API_MAX_POLL_ATTEMPTS", 60)
	if err != nil {
		return nil, err
	}
	maxPages, err := getInt("API_MAX_PAGES", 0)
	if err != nil {
		return nil, err
	}
	qualityMin, err := getFloat("QUALITY_MIN_SCORE", 0.55)
	if err != nil {
		return nil, err
	}
	fieldMin, err := getFloat("FIELD_MIN_CONFIDENCE", 0.75)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			APIToken:  getEnv("API_TOKEN", ""),
			UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "canhoto_ocr"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Pipeline: PipelineConfig{
			Mode:               getEnv("PIPELINE_MODE", ModeDatalab),
			ImagesDir:          getEnv("IMAGES_DIR", "images_example"),
			OutputDir:          getEnv("OUTPUT_DIR", "outputs"),
			QualityMinScore:    qualityMin,
			FieldMinConfidence: fieldMin,
			UseDocAIGate:       getEnv("USE_DOCAI_GATE", "false") == "true",
			Persist:            getEnv("RESULTS_PERSIST", "false") == "true",
		},
		Datalab: DatalabConfig{
			APIKey:          getEnv("DATALAB_API_KEY", ""),
			BaseURL:         getEnv("DATALAB_API_BASE", "https://www.datalab.to/api/v1"),
			Endpoint:        getEnv("API_ENDPOINT", "ocr"),
			PollInterval:    time.Duration(pollInterval * float64(time.Second)),
			MaxPollAttempts: maxAttempts,
			HTTPTimeout:     time.Duration(httpTimeout * float64(time.Second)),
			PageRange:       getEnv("API_PAGE_RANGE", ""),
			MaxPages:        maxPages,
			SkipCache:       getEnv("API_SKIP_CACHE", "false") == "true",
			Langs:           getEnv("API_LANGS", ""),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true",
		},
		DocAI: DocAIConfig{
			ProjectID:   getEnv("GDOC_PROJECT_ID", ""),
			Location:    getEnv("GDOC_LOCATION", ""),
			ProcessorID: getEnv("GDOC_PROCESSOR_ID", ""),
		},
		Tesseract: TesseractConfig{
			Languages: splitCSV(getEnv("TESSERACT_LANGS", "por,eng")),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

// Configured reports whether the Document AI credentials are complete.
func (c DocAIConfig) Configured() bool {
	return c.ProjectID != "" && c.Location != "" && c.ProcessorID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, raw)
	}
	return value, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, raw)
	}
	return value, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
