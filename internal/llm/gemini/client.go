package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/hotel-reports/internal/entity"
	"github.com/joseph-ayodele/hotel-reports/internal/llm"
)

const providerName = "gemini"

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Extract implements llm.DocumentExtractor with a single generateContent call. The document
// travels inline as base64 and the response is constrained to the extraction schema.
func (c *Client) Extract(ctx context.Context, req llm.ExtractRequest) (entity.HotelData, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", providerName,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"file", req.FileName,
		"mime_type", req.MIMEType,
		"doc_bytes", len(req.Document),
	)

	body := map[string]any{
		"systemInstruction": map[string]any{
			"parts": []map[string]any{{"text": llm.BuildSystemPrompt()}},
		},
		"contents": []map[string]any{{
			"role": "user",
			"parts": []map[string]any{
				{"text": llm.BuildUserPrompt(req)},
				{"inline_data": map[string]any{
					"mime_type": req.MIMEType,
					"data":      base64.StdEncoding.EncodeToString(req.Document),
				}},
			},
		}},
		"generationConfig": map[string]any{
			"temperature":      c.cfg.Temperature,
			"responseMimeType": "application/json",
			"responseSchema":   ToGeminiSchema(llm.ExtractionSchema()),
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	headers := map[string]string{"x-goog-api-key": c.cfg.APIKey}
	ex, httpErr := llm.PostJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	raw := ex.Body
	if httpErr != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", httpErr, "status", ex.StatusCode,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.HotelData{}, raw, &llm.ExtractionError{Provider: providerName, Op: "send", StatusCode: ex.StatusCode, Err: httpErr}
	}

	var resp generateContentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.HotelData{}, raw, &llm.ExtractionError{Provider: providerName, Op: "decode_envelope", Err: err}
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		c.log.Error("llm.extract.blocked", "req_id", rid, "reason", resp.PromptFeedback.BlockReason)
		return entity.HotelData{}, raw, &llm.ExtractionError{Provider: providerName, Op: "blocked", Err: fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)}
	}
	if len(resp.Candidates) == 0 {
		c.log.Error("llm.extract.no_candidates",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.HotelData{}, raw, &llm.ExtractionError{Provider: providerName, Op: "decode_envelope", Err: llm.ErrEmptyResponse}
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	out, content, err := llm.DecodeHotelData([]byte(text.String()), llm.DecodeOptions{
		Provider: providerName,
		Strict:   c.cfg.StrictSchema,
		Logger:   c.log.With("req_id", rid),
	})
	if err != nil {
		c.log.Error("llm.extract.invalid_output",
			"req_id", rid, "error", err,
			"finish_reason", resp.Candidates[0].FinishReason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.HotelData{}, content, err
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"period", out.KPIs.AnalysisPeriod,
		"total_revenue", out.KPIs.TotalRevenue,
		"detailed_rows", len(out.DetailedData),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, content, nil
}

// ToGeminiSchema converts a JSON-Schema map into the OpenAPI subset accepted as
// responseSchema: type names are uppercased and additionalProperties is dropped.
// Property order follows the required list so the model emits fields predictably.
func ToGeminiSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		switch k {
		case "additionalProperties":
			continue
		case "type":
			if s, ok := v.(string); ok {
				out[k] = strings.ToUpper(s)
				continue
			}
			out[k] = v
		case "properties":
			props, ok := v.(map[string]any)
			if !ok {
				out[k] = v
				continue
			}
			conv := make(map[string]any, len(props))
			for name, p := range props {
				if pm, ok := p.(map[string]any); ok {
					conv[name] = ToGeminiSchema(pm)
				} else {
					conv[name] = p
				}
			}
			out[k] = conv
		case "items":
			if im, ok := v.(map[string]any); ok {
				out[k] = ToGeminiSchema(im)
				continue
			}
			out[k] = v
		default:
			out[k] = v
		}
	}
	if req, ok := schema["required"].([]any); ok {
		order := make([]any, len(req))
		copy(order, req)
		out["propertyOrdering"] = order
	}
	return out
}
