package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"canhoto-ocr/internal/models"
	"canhoto-ocr/pkg/config"

	"github.com/Role1776/gigago"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	gigaChatBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"
	gigaChatOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	gigaChatModel    = "GigaChat"
)

// visionPrompt asks the model to transcribe a delivery receipt into a fixed
// JSON shape. The answer is flattened into labeled lines so the extraction
// heuristics see the same kind of text the OCR backends produce.
const visionPrompt = `Você é um assistente que extrai dados de comprovantes de entrega.
Transcreva o conteúdo do canhoto, incluindo: nome do recebedor, data e hora do recebimento,
número da nota fiscal/documento e quaisquer outras informações relevantes.

Retorne os dados em formato estruturado JSON com os campos:
{
    "receiver": "Nome do recebedor (string)",
    "delivery_date": "Data de recebimento (string ISO-8601)",
    "delivery_time": "Hora de recebimento (string HH:MM:SS)",
    "invoice_numbers": ["Lista de números de notas fiscais"],
    "documents": ["Lista de outros documentos"],
    "extracted_text": "Todo o texto extraído via OCR",
    "confidence": "Nível de confiança (high, medium, low)"
}

Se alguma informação não estiver visível, use null ou uma string vazia. Não invente dados.
Seja conciso e claro na resposta, respondendo apenas em PORTUGUÊS.`

// GigaChat extracts document text through the GigaChat Vision API: the file
// is uploaded first, then referenced as an attachment in a chat completion.
type GigaChat struct {
	client      *gigago.Client
	model       *gigago.GenerativeModel
	config      *config.GigaChatConfig
	logger      *zap.Logger
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

func NewGigaChat(ctx context.Context, cfg *config.GigaChatConfig, logger *zap.Logger) (*GigaChat, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GIGACHAT_API_KEY must be defined")
	}

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel(gigaChatModel)
	model.Temperature = 0.3

	httpClient := &http.Client{}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	accessToken, err := getAccessToken(ctx, cfg, httpClient, logger)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	return &GigaChat{
		client:      client,
		model:       model,
		config:      cfg,
		logger:      logger,
		httpClient:  httpClient,
		baseURL:     gigaChatBaseURL,
		accessToken: accessToken,
	}, nil
}

func (g *GigaChat) Name() string {
	return config.ModeGigaChat
}

func (g *GigaChat) Close() error {
	g.client.Close()
	return nil
}

func (g *GigaChat) Process(ctx context.Context, path string) (*models.Normalized, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileID, err := g.uploadFile(ctx, file, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	content, err := g.transcribe(ctx, fileID)
	if err != nil {
		return nil, err
	}

	resp := responseFromContent(content)
	raw, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw payload: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NormalizeResponse(resp, raw, "gigachat-"+stem), nil
}

// getAccessToken obtains an OAuth token for the raw file upload and vision
// endpoints. The API key is already Base64-encoded.
func getAccessToken(ctx context.Context, cfg *config.GigaChatConfig, httpClient *http.Client, logger *zap.Logger) (string, error) {
	formData := url.Values{}
	formData.Set("scope", cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, "POST", gigaChatOAuthURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create OAuth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.New().String())
	req.Header.Set("Authorization", "Basic "+cfg.APIKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OAuth failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", fmt.Errorf("failed to decode OAuth response: %w", err)
	}
	if oauthResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in OAuth response")
	}

	logger.Info("Access token obtained", zap.Int("expires_in", oauthResp.ExpiresIn))
	return oauthResp.AccessToken, nil
}

// uploadFile sends the document to the files endpoint with purpose=general,
// which makes it usable as a vision attachment.
func (g *GigaChat) uploadFile(ctx context.Context, fileReader io.Reader, fileName string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("purpose", "general"); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}

	part, err := writer.CreatePart(map[string][]string{
		"Content-Type":        {GuessMimeType(fileName)},
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, fileReader); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	g.logger.Info("File uploaded to GigaChat", zap.String("file_id", uploadResp.ID))
	return uploadResp.ID, nil
}

// transcribe calls the chat completions endpoint with the uploaded file as
// an attachment. Attachments are an array of arrays: [["file_id"]].
func (g *GigaChat) transcribe(ctx context.Context, fileID string) (string, error) {
	requestBody := map[string]interface{}{
		"model": gigaChatModel,
		"messages": []map[string]interface{}{
			{
				"role":        "user",
				"content":     visionPrompt,
				"attachments": [][]string{{fileID}},
			},
		},
		"temperature": 0.3,
		"stream":      false,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("vision API failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var visionResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&visionResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(visionResp.Choices) == 0 {
		return "", fmt.Errorf("no response from Vision API")
	}

	return strings.TrimSpace(visionResp.Choices[0].Message.Content), nil
}

// transcription is the JSON shape the vision prompt asks for.
type transcription struct {
	Receiver       string   `json:"receiver"`
	DeliveryDate   string   `json:"delivery_date"`
	DeliveryTime   string   `json:"delivery_time"`
	InvoiceNumbers []string `json:"invoice_numbers"`
	Documents      []string `json:"documents"`
	ExtractedText  string   `json:"extracted_text"`
	Confidence     string   `json:"confidence"`
}

// responseFromContent synthesizes a single-page complete response from the
// model answer. Structured JSON becomes labeled lines; anything else is kept
// as plain lines.
func responseFromContent(content string) *models.OCRResponse {
	lines := structuredLines(content)
	if len(lines) == 0 {
		lines = plainLines(content)
	}

	page := models.OCRPage{Page: 1, TextLines: lines}
	success := true
	return &models.OCRResponse{
		Status:    "complete",
		Success:   &success,
		PageCount: 1,
		Pages:     []models.OCRPage{page},
	}
}

func structuredLines(content string) []models.OCRLine {
	data := parseTranscription(content)
	if data == nil {
		return nil
	}

	var texts []string
	if data.Receiver != "" {
		texts = append(texts, "Recebedor: "+data.Receiver)
	}
	if data.DeliveryDate != "" {
		texts = append(texts, "Data de Recebimento: "+data.DeliveryDate)
	}
	if data.DeliveryTime != "" {
		texts = append(texts, "Hora de Recebimento: "+data.DeliveryTime)
	}
	if len(data.InvoiceNumbers) > 0 {
		texts = append(texts, "Notas Fiscais: "+strings.Join(data.InvoiceNumbers, ", "))
	}
	if len(data.Documents) > 0 {
		texts = append(texts, "Documentos: "+strings.Join(data.Documents, ", "))
	}
	if data.ExtractedText != "" {
		texts = append(texts, "Texto Extraído: "+data.ExtractedText)
	}
	if data.Confidence != "" {
		texts = append(texts, "Confiança: "+data.Confidence)
	}

	var lines []models.OCRLine
	for _, text := range texts {
		lines = append(lines, models.OCRLine{Text: text})
	}
	return lines
}

// parseTranscription extracts the JSON object from the model answer, which
// may be wrapped in markdown fences or prose.
func parseTranscription(content string) *transcription {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return nil
	}

	var data transcription
	if err := json.Unmarshal([]byte(content[start:end+1]), &data); err != nil {
		return nil
	}
	return &data
}

func plainLines(content string) []models.OCRLine {
	var lines []models.OCRLine
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, models.OCRLine{Text: line})
	}
	return lines
}
