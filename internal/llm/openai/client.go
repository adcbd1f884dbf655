package openai

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

const providerName = "openai"

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Extract implements llm.DocumentExtractor using chat/completions with the document attached
// as a file part and the extraction schema as a strict json_schema response format.
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

	filename := req.FileName
	if filename == "" {
		filename = "report.pdf"
	}
	dataURL := "data:" + req.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.Document)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "hotel_report",
				"strict": true,
				"schema": llm.ExtractionSchema(),
			},
		},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": llm.BuildUserPrompt(req)},
				{"type": "file", "file": map[string]any{
					"filename":  filename,
					"file_data": dataURL,
				}},
			}},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	ex, httpErr := llm.PostJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	raw := ex.Body
	if httpErr != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", httpErr, "status", ex.StatusCode,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.HotelData{}, raw, &llm.ExtractionError{Provider: providerName, Op: "send", StatusCode: ex.StatusCode, Err: httpErr}
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.HotelData{}, raw, &llm.ExtractionError{Provider: providerName, Op: "decode_envelope", Err: err}
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.HotelData{}, raw, &llm.ExtractionError{Provider: providerName, Op: "decode_envelope", Err: llm.ErrEmptyResponse}
	}
	msg := cc.Choices[0].Message
	if msg.Refusal != "" {
		c.log.Error("llm.extract.refused", "req_id", rid, "refusal", msg.Refusal)
		return entity.HotelData{}, raw, &llm.ExtractionError{Provider: providerName, Op: "refused", Err: fmt.Errorf("model refused: %s", msg.Refusal)}
	}

	out, content, err := llm.DecodeHotelData([]byte(msg.Content), llm.DecodeOptions{
		Provider: providerName,
		Strict:   c.cfg.StrictSchema,
		Logger:   c.log.With("req_id", rid),
	})
	if err != nil {
		c.log.Error("llm.extract.invalid_output",
			"req_id", rid, "error", err,
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
