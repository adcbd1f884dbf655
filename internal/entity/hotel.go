package entity

import "slices"

// KPIs is the headline summary of one report. Values are display strings as the
// provider formats them (e.g. "€1,234,567.89", "85.2%").
type KPIs struct {
	TotalRevenue     string `json:"totalRevenue"`
	OccupancyRate    string `json:"occupancyRate"`
	AverageDailyRate string `json:"averageDailyRate"`
	AnalysisPeriod   string `json:"analysisPeriod"`
}

// RevenueSource is one slice of the revenue distribution (Rooms, F&B, Spa...).
type RevenueSource struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// OccupancyPoint is the occupancy rate at one point of the analysis period.
type OccupancyPoint struct {
	Date string  `json:"date"`
	Rate float64 `json:"rate"` // percent, 75.5 means 75.5%
}

// ADRByCategory is the average daily rate of one room category.
type ADRByCategory struct {
	Category string  `json:"category"`
	ADR      float64 `json:"adr"`
}

// RoomsSold is the number of rooms sold for one room category.
type RoomsSold struct {
	Category  string  `json:"category"`
	RoomsSold float64 `json:"roomsSold"`
}

// DetailedRow is one line of the detailed room sales table.
type DetailedRow struct {
	Category  string  `json:"category"`
	RoomsSold float64 `json:"roomsSold"`
	ADR       float64 `json:"adr"`
	Revenue   float64 `json:"revenue"`
}

// HotelData is the validated structured result for one document.
// KPIs and DetailedData must be non-nil; the other collections may be empty.
type HotelData struct {
	KPIs                *KPIs            `json:"kpis" validate:"required"`
	RevenueDistribution []RevenueSource  `json:"revenueDistribution"`
	OccupancyEvolution  []OccupancyPoint `json:"occupancyEvolution"`
	ADRByCategory       []ADRByCategory  `json:"adrByCategory"`
	RoomsSoldByCategory []RoomsSold      `json:"roomsSoldByCategory"`
	DetailedData        []DetailedRow    `json:"detailedData" validate:"required"`
}

// Clone returns a deep copy; the result shares no pointers or slices with d.
func (d HotelData) Clone() HotelData {
	out := HotelData{
		RevenueDistribution: slices.Clone(d.RevenueDistribution),
		OccupancyEvolution:  slices.Clone(d.OccupancyEvolution),
		ADRByCategory:       slices.Clone(d.ADRByCategory),
		RoomsSoldByCategory: slices.Clone(d.RoomsSoldByCategory),
		DetailedData:        slices.Clone(d.DetailedData),
	}
	if d.KPIs != nil {
		kpis := *d.KPIs
		out.KPIs = &kpis
	}
	return out
}
