// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/joseph-ayodele/hotel-reports/internal/entity"
	"github.com/joseph-ayodele/hotel-reports/internal/llm"
)

// FakeResponse scripts the answer for one file name.
type FakeResponse struct {
	Data  *entity.HotelData // nil means ValidHotelData(period = file name)
	Err   error
	Delay time.Duration
	Block chan struct{} // if set, Extract waits until it is closed
}

// FakeExtractor is an in-memory llm.DocumentExtractor keyed by file name.
type FakeExtractor struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	calls     []llm.ExtractRequest
}

var _ llm.DocumentExtractor = (*FakeExtractor)(nil)

func NewFakeExtractor() *FakeExtractor {
	return &FakeExtractor{responses: map[string]FakeResponse{}}
}

// On scripts the response for name.
func (f *FakeExtractor) On(name string, resp FakeResponse) *FakeExtractor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[name] = resp
	return f
}

// Calls returns a copy of the requests seen so far.
func (f *FakeExtractor) Calls() []llm.ExtractRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.ExtractRequest, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeExtractor) Extract(ctx context.Context, req llm.ExtractRequest) (entity.HotelData, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	resp := f.responses[req.FileName]
	f.mu.Unlock()

	if resp.Block != nil {
		select {
		case <-resp.Block:
		case <-ctx.Done():
			return entity.HotelData{}, nil, ctx.Err()
		}
	}
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return entity.HotelData{}, nil, ctx.Err()
		}
	}
	if resp.Err != nil {
		return entity.HotelData{}, nil, resp.Err
	}

	data := ValidHotelData(req.FileName)
	if resp.Data != nil {
		data = *resp.Data
	}
	raw, _ := json.Marshal(data)
	return data, raw, nil
}

// ValidHotelData returns a complete report whose analysis period is period.
func ValidHotelData(period string) entity.HotelData {
	return entity.HotelData{
		KPIs: &entity.KPIs{
			TotalRevenue:     "€125,400.00",
			OccupancyRate:    "82.5%",
			AverageDailyRate: "€152.00",
			AnalysisPeriod:   period,
		},
		RevenueDistribution: []entity.RevenueSource{
			{Name: "Rooms", Value: 98000},
			{Name: "F&B", Value: 27400},
		},
		OccupancyEvolution: []entity.OccupancyPoint{
			{Date: "Week 1", Rate: 78.0},
			{Date: "Week 2", Rate: 87.0},
		},
		ADRByCategory: []entity.ADRByCategory{
			{Category: "Standard", ADR: 120},
			{Category: "Suite", ADR: 310},
		},
		RoomsSoldByCategory: []entity.RoomsSold{
			{Category: "Standard", RoomsSold: 540},
			{Category: "Suite", RoomsSold: 107},
		},
		DetailedData: []entity.DetailedRow{
			{Category: "Standard", RoomsSold: 540, ADR: 120, Revenue: 64800},
			{Category: "Suite", RoomsSold: 107, ADR: 310, Revenue: 33170},
		},
	}
}

// PDF returns an in-memory PDF upload with non-empty content.
func PDF(name string) entity.UploadedFile {
	return entity.FileFromBytes(name, "application/pdf", []byte("%PDF-1.4\n"+name))
}
