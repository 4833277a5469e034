package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"analysis-gateway/internal/apierror"
)

const DefaultCaptionURL = "https://api-inference.huggingface.co/models/Salesforce/blip-image-captioning-base"

// HFCaptioner chama a Inference API do Hugging Face (BLIP) com o JPEG no corpo.
type HFCaptioner struct {
	URL      string
	Token    string
	HTTP     *http.Client
	Throttle *Throttle
}

var _ Captioner = (*HFCaptioner)(nil)

func NewHFCaptioner(url, token string, timeout time.Duration, th *Throttle) *HFCaptioner {
	if url == "" {
		url = DefaultCaptionURL
	}
	return &HFCaptioner{
		URL:      url,
		Token:    token,
		HTTP:     &http.Client{Timeout: timeout},
		Throttle: th,
	}
}

type captionItem struct {
	GeneratedText *string `json:"generated_text"`
}

// Caption devolve o primeiro generated_text da resposta.
//
// Status diferente de 200 é repassado ao cliente com o corpo do serviço;
// corpo 200 em formato inesperado vira 500 com o corpo original anexado.
func (c *HFCaptioner) Caption(ctx context.Context, jpeg []byte) (string, error) {
	if err := c.Throttle.Wait(ctx); err != nil {
		return "", fmt.Errorf("caption: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(jpeg))
	if err != nil {
		return "", fmt.Errorf("caption: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "image/jpeg")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("caption: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("caption: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apierror.Upstream(resp.StatusCode, "Hugging Face API error: "+string(body), nil)
	}

	var items []captionItem
	if err := json.Unmarshal(body, &items); err != nil {
		return "", apierror.ParseFailure(err, string(body))
	}
	if len(items) == 0 {
		return "", apierror.ParseFailure(fmt.Errorf("unexpected response format: %s", body), string(body))
	}
	if items[0].GeneratedText == nil {
		return "", apierror.ParseFailure(fmt.Errorf("missing generated_text: %s", body), string(body))
	}
	return *items[0].GeneratedText, nil
}
