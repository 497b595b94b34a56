package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// Hugging Face inference defaults.
const (
	DefaultAIBaseURL = "https://api-inference.huggingface.co/models"
	DefaultAIModel   = "stabilityai/stable-diffusion-2"

	maxAIImage = 20 << 20
)

// ErrNoAIToken is returned by Generate when no API token is configured.
var ErrNoAIToken = errors.New("no AI image token configured")

const promptTemplate = "Aesthetic vertical photo for a Pinterest pin, %dx%d, photo background, " +
	"subject: %s, soft lighting, high detail, muted color palette"

// AIGenerator produces images with a hosted text-to-image model.
type AIGenerator struct {
	http    *http.Client
	token   string
	baseURL string
	model   string
	log     logger.Logger
}

// NewAIGenerator creates a generator. Empty baseURL and model use the
// defaults.
func NewAIGenerator(httpClient *http.Client, token, baseURL, model string, log logger.Logger) *AIGenerator {
	if baseURL == "" {
		baseURL = DefaultAIBaseURL
	}
	if model == "" {
		model = DefaultAIModel
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &AIGenerator{
		http:    httpClient,
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		log:     log,
	}
}

// Enabled reports whether a token is configured.
func (g *AIGenerator) Enabled() bool {
	return g.token != ""
}

// Generate asks the model for an image about caption. The background
// reference is not used by this generator.
func (g *AIGenerator) Generate(ctx context.Context, _ string, caption string) (types.Media, error) {
	if !g.Enabled() {
		return types.Media{}, ErrNoAIToken
	}
	payload, err := json.Marshal(map[string]string{
		"inputs": fmt.Sprintf(promptTemplate, Width, Height, caption),
	})
	if err != nil {
		return types.Media{}, fmt.Errorf("encode prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/"+g.model, bytes.NewReader(payload))
	if err != nil {
		return types.Media{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/jpeg, image/png")

	resp, err := g.http.Do(req)
	if err != nil {
		return types.Media{}, fmt.Errorf("generate image: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAIImage))
	if err != nil {
		return types.Media{}, fmt.Errorf("read image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.Media{}, fmt.Errorf("generate image: status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	ct := http.DetectContentType(body)
	if !strings.HasPrefix(ct, "image/") {
		return types.Media{}, fmt.Errorf("generate image: response is %s, not an image", ct)
	}

	g.log.Debug("AI image generated", logger.String("model", g.model), logger.Int("bytes", len(body)))
	return types.Media{
		Name:        "pin_" + uuid.NewString() + extension(ct),
		ContentType: ct,
		Data:        body,
	}, nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ".jpg"
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return strings.TrimSpace(string(b))
}
