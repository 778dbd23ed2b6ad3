package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/grainvault/internal/app"
	"github.com/neomorfeo/grainvault/internal/domain"
	"github.com/neomorfeo/grainvault/internal/finance"
)

const timeFormat = time.RFC3339

// money renders an amount in rupees with two decimal places.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ConfigurationBody is the grid shape of a warehouse.
type ConfigurationBody struct {
	BuildingCount     int `json:"buildingCount" minimum:"1" maximum:"10" doc:"Number of buildings"`
	BlocksPerBuilding int `json:"blocksPerBuilding" minimum:"1" maximum:"26" doc:"Blocks per building, labeled A.."`
	RowsPerBlock      int `json:"rowsPerBlock" minimum:"1" maximum:"20" doc:"Rows per block"`
	ColsPerBlock      int `json:"colsPerBlock" minimum:"1" maximum:"20" doc:"Columns per block"`
}

func (c ConfigurationBody) toDomain() domain.Configuration {
	return domain.Configuration{
		BuildingCount:     c.BuildingCount,
		BlocksPerBuilding: c.BlocksPerBuilding,
		RowsPerBlock:      c.RowsPerBlock,
		ColsPerBlock:      c.ColsPerBlock,
	}
}

// PricingInput sets a warehouse tariff in rupees.
type PricingInput struct {
	RentPerQuintalPerMonth float64 `json:"rentPerQuintalPerMonth" minimum:"0" doc:"Rent per quintal per month"`
	MaintenancePerMonth    float64 `json:"maintenancePerMonth" minimum:"0" doc:"Flat maintenance per month"`
	InsurancePerYear       float64 `json:"insurancePerYear" minimum:"0" doc:"Flat insurance per year"`
}

func (p PricingInput) toDomain() domain.Pricing {
	return domain.Pricing{
		RentPerQuintalPerMonth: decimal.NewFromFloat(p.RentPerQuintalPerMonth),
		MaintenancePerMonth:    decimal.NewFromFloat(p.MaintenancePerMonth),
		InsurancePerYear:       decimal.NewFromFloat(p.InsurancePerYear),
	}
}

// PricingResponse is a warehouse tariff; amounts are decimal strings.
type PricingResponse struct {
	RentPerQuintalPerMonth string `json:"rentPerQuintalPerMonth"`
	MaintenancePerMonth    string `json:"maintenancePerMonth"`
	InsurancePerYear       string `json:"insurancePerYear"`
}

// WarehouseResponse is the API representation of a warehouse header.
type WarehouseResponse struct {
	ID            string            `json:"id" doc:"Unique identifier"`
	Name          string            `json:"name" doc:"Display name, unique"`
	Description   string            `json:"description,omitempty"`
	OwnerID       string            `json:"ownerId,omitempty"`
	Configuration ConfigurationBody `json:"configuration"`
	Pricing       PricingResponse   `json:"pricing"`
	Active        bool              `json:"active"`
	TotalSlots    int               `json:"totalSlots"`
	CreatedAt     string            `json:"createdAt" doc:"Creation timestamp (RFC 3339)"`
	UpdatedAt     string            `json:"updatedAt" doc:"Last update timestamp (RFC 3339)"`
}

func toWarehouseResponse(w domain.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		OwnerID:     w.OwnerID,
		Configuration: ConfigurationBody{
			BuildingCount:     w.Configuration.BuildingCount,
			BlocksPerBuilding: w.Configuration.BlocksPerBuilding,
			RowsPerBlock:      w.Configuration.RowsPerBlock,
			ColsPerBlock:      w.Configuration.ColsPerBlock,
		},
		Pricing: PricingResponse{
			RentPerQuintalPerMonth: w.Pricing.RentPerQuintalPerMonth.String(),
			MaintenancePerMonth:    w.Pricing.MaintenancePerMonth.String(),
			InsurancePerYear:       w.Pricing.InsurancePerYear.String(),
		},
		Active:     w.Active,
		TotalSlots: w.TotalSlots,
		CreatedAt:  w.CreatedAt.Format(timeFormat),
		UpdatedAt:  w.UpdatedAt.Format(timeFormat),
	}
}

// AllocationResponse is one customer's bags in a slot.
type AllocationResponse struct {
	CustomerID string `json:"customerId"`
	Bags       int    `json:"bags"`
	GrainType  string `json:"grainType,omitempty"`
	WeightKg   string `json:"weightKg" doc:"Recorded weight, or bags × 50 kg when none was recorded"`
	EntryDate  string `json:"entryDate"`
	Notes      string `json:"notes,omitempty"`
}

func toAllocationResponse(a domain.Allocation) AllocationResponse {
	return AllocationResponse{
		CustomerID: a.CustomerID,
		Bags:       a.Bags,
		GrainType:  a.GrainType,
		WeightKg:   a.EffectiveWeightKg().String(),
		EntryDate:  a.EntryDate.Format(timeFormat),
		Notes:      a.Notes,
	}
}

// SlotResponse is a slot snapshot with its derived fill state.
type SlotResponse struct {
	WarehouseID   string               `json:"warehouseId"`
	Building      int                  `json:"building"`
	Block         string               `json:"block"`
	Row           int                  `json:"row"`
	Col           int                  `json:"col"`
	Label         string               `json:"label"`
	Mnemonic      string               `json:"mnemonic"`
	CapacityBags  int                  `json:"capacityBags"`
	FilledBags    int                  `json:"filledBags"`
	RemainingBags int                  `json:"remainingBags"`
	Status        string               `json:"status" enum:"empty,partially-filled,full"`
	WeightKg      string               `json:"weightKg"`
	Version       int64                `json:"version"`
	Allocations   []AllocationResponse `json:"allocations"`
}

func toSlotResponse(s domain.Slot) SlotResponse {
	allocs := make([]AllocationResponse, len(s.Allocations))
	for i, a := range s.Allocations {
		allocs[i] = toAllocationResponse(a)
	}
	return SlotResponse{
		WarehouseID:   s.Ref.WarehouseID,
		Building:      s.Ref.Building,
		Block:         s.Ref.Block,
		Row:           s.Ref.Row,
		Col:           s.Ref.Col,
		Label:         s.Label,
		Mnemonic:      s.Mnemonic,
		CapacityBags:  s.CapacityBags,
		FilledBags:    s.FilledBags(),
		RemainingBags: s.RemainingBags(),
		Status:        string(s.Status()),
		WeightKg:      s.WeightKg().String(),
		Version:       s.Version,
		Allocations:   allocs,
	}
}

func toSlotResponses(slots []domain.Slot) []SlotResponse {
	out := make([]SlotResponse, len(slots))
	for i, s := range slots {
		out[i] = toSlotResponse(s)
	}
	return out
}

// EventResponse describes a committed slot mutation.
type EventResponse struct {
	Event      string `json:"event" enum:"stock,fill,release,clear"`
	CustomerID string `json:"customerId"`
	BagsDelta  int    `json:"bagsDelta"`
	Status     string `json:"status"`
	FilledBags int    `json:"filledBags"`
	OccurredAt string `json:"occurredAt"`
}

// AllocationResultResponse is the slot after an allocate or deallocate.
type AllocationResultResponse struct {
	Slot  SlotResponse  `json:"slot"`
	Event EventResponse `json:"event"`
}

func toAllocationResultResponse(r app.AllocationResult) AllocationResultResponse {
	return AllocationResultResponse{
		Slot: toSlotResponse(r.Slot),
		Event: EventResponse{
			Event:      string(r.Event.Event),
			CustomerID: r.Event.CustomerID,
			BagsDelta:  r.Event.BagsDelta,
			Status:     string(r.Event.Status),
			FilledBags: r.Event.FilledBags,
			OccurredAt: r.Event.OccurredAt.Format(timeFormat),
		},
	}
}

// StatsBody is an occupancy rollup.
type StatsBody struct {
	TotalSlots    int    `json:"totalSlots"`
	OccupiedSlots int    `json:"occupiedSlots"`
	PartialSlots  int    `json:"partialSlots"`
	FullSlots     int    `json:"fullSlots"`
	EmptySlots    int    `json:"emptySlots"`
	OccupancyRate string `json:"occupancyRate" doc:"Occupied slots as a percentage, two decimals"`
	TotalBags     int    `json:"totalBags"`
	CapacityBags  int    `json:"capacityBags"`
	TotalWeightKg string `json:"totalWeightKg"`
	CustomerCount int    `json:"customerCount"`
}

func toStatsBody(s domain.OccupancyStats) StatsBody {
	return StatsBody{
		TotalSlots:    s.TotalSlots,
		OccupiedSlots: s.OccupiedSlots,
		PartialSlots:  s.PartialSlots,
		FullSlots:     s.FullSlots,
		EmptySlots:    s.EmptySlots(),
		OccupancyRate: s.Rate().StringFixed(2),
		TotalBags:     s.TotalBags,
		CapacityBags:  s.CapacityBags,
		TotalWeightKg: s.TotalWeightKg.String(),
		CustomerCount: s.CustomerCount,
	}
}

type BlockOccupancyResponse struct {
	Block string `json:"block"`
	StatsBody
}

type BuildingOccupancyResponse struct {
	Building int `json:"building"`
	StatsBody
	Blocks []BlockOccupancyResponse `json:"blocks"`
}

// OccupancyResponse is the per-block, per-building and overall rollup.
type OccupancyResponse struct {
	WarehouseID string `json:"warehouseId"`
	StatsBody
	Buildings []BuildingOccupancyResponse `json:"buildings"`
}

func toOccupancyResponse(o domain.WarehouseOccupancy) OccupancyResponse {
	out := OccupancyResponse{
		WarehouseID: o.WarehouseID,
		StatsBody:   toStatsBody(o.OccupancyStats),
		Buildings:   make([]BuildingOccupancyResponse, len(o.Buildings)),
	}
	for i, b := range o.Buildings {
		br := BuildingOccupancyResponse{
			Building:  b.Building,
			StatsBody: toStatsBody(b.OccupancyStats),
			Blocks:    make([]BlockOccupancyResponse, len(b.Blocks)),
		}
		for j, bl := range b.Blocks {
			br.Blocks[j] = BlockOccupancyResponse{Block: bl.Block, StatsBody: toStatsBody(bl.OccupancyStats)}
		}
		out.Buildings[i] = br
	}
	return out
}

// HoldingResponse is one of a customer's allocations with its location.
type HoldingResponse struct {
	WarehouseID   string             `json:"warehouseId"`
	WarehouseName string             `json:"warehouseName"`
	Building      int                `json:"building"`
	Block         string             `json:"block"`
	Row           int                `json:"row"`
	Col           int                `json:"col"`
	Label         string             `json:"label"`
	Mnemonic      string             `json:"mnemonic"`
	Allocation    AllocationResponse `json:"allocation"`
}

func toHoldingResponse(h domain.Holding) HoldingResponse {
	return HoldingResponse{
		WarehouseID:   h.Slot.Ref.WarehouseID,
		WarehouseName: h.WarehouseName,
		Building:      h.Slot.Ref.Building,
		Block:         h.Slot.Ref.Block,
		Row:           h.Slot.Ref.Row,
		Col:           h.Slot.Ref.Col,
		Label:         h.Slot.Label,
		Mnemonic:      h.Slot.Mnemonic,
		Allocation:    toAllocationResponse(h.Allocation),
	}
}

type GrainTotalResponse struct {
	GrainType string `json:"grainType"`
	Bags      int    `json:"bags"`
	WeightKg  string `json:"weightKg"`
}

// ValuationResponse is the market value of a customer's grain.
type ValuationResponse struct {
	TotalBags             int                  `json:"totalBags"`
	ByGrain               []GrainTotalResponse `json:"byGrain"`
	DominantGrainType     string               `json:"dominantGrainType,omitempty"`
	TotalWeightKg         string               `json:"totalWeightKg"`
	TotalQuintals         string               `json:"totalQuintals"`
	MarketValuePerQuintal string               `json:"marketValuePerQuintal"`
	TotalMarketValue      string               `json:"totalMarketValue"`
	EligibleLoanAmount    string               `json:"eligibleLoanAmount" doc:"60% of the total market value"`
}

func toValuationResponse(v finance.Valuation) ValuationResponse {
	byGrain := make([]GrainTotalResponse, len(v.ByGrain))
	for i, g := range v.ByGrain {
		byGrain[i] = GrainTotalResponse{GrainType: g.GrainType, Bags: g.Bags, WeightKg: g.WeightKg.String()}
	}
	return ValuationResponse{
		TotalBags:             v.TotalBags,
		ByGrain:               byGrain,
		DominantGrainType:     v.DominantGrainType,
		TotalWeightKg:         v.TotalWeightKg.String(),
		TotalQuintals:         v.TotalQuintals.String(),
		MarketValuePerQuintal: money(v.MarketValuePerQuintal),
		TotalMarketValue:      money(v.TotalMarketValue),
		EligibleLoanAmount:    money(v.EligibleLoanAmount),
	}
}

// ChargesBody is a storage bill.
type ChargesBody struct {
	Quintals      string `json:"quintals"`
	ElapsedMonths int    `json:"elapsedMonths"`
	ElapsedYears  int    `json:"elapsedYears"`
	Rent          string `json:"rent"`
	Maintenance   string `json:"maintenance"`
	Insurance     string `json:"insurance"`
	Total         string `json:"total"`
}

func toChargesBody(c finance.Charges) ChargesBody {
	return ChargesBody{
		Quintals:      c.Quintals.String(),
		ElapsedMonths: c.ElapsedMonths,
		ElapsedYears:  c.ElapsedYears,
		Rent:          money(c.Rent),
		Maintenance:   money(c.Maintenance),
		Insurance:     money(c.Insurance),
		Total:         money(c.Total),
	}
}

type ChargeLineResponse struct {
	Holding HoldingResponse `json:"holding"`
	Charges ChargesBody     `json:"charges"`
}

// ChargesResponse bills every holding of a customer.
type ChargesResponse struct {
	AsOf  string               `json:"asOf"`
	Lines []ChargeLineResponse `json:"lines"`
	Total ChargesBody          `json:"total"`
}

func toChargesResponse(c app.CustomerCharges) ChargesResponse {
	lines := make([]ChargeLineResponse, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = ChargeLineResponse{Holding: toHoldingResponse(l.Holding), Charges: toChargesBody(l.Charges)}
	}
	return ChargesResponse{
		AsOf:  c.AsOf.Format(timeFormat),
		Lines: lines,
		Total: toChargesBody(c.Total),
	}
}

type InstallmentResponse struct {
	Month     int    `json:"month"`
	EMI       string `json:"emi"`
	Interest  string `json:"interest"`
	Principal string `json:"principal"`
	Balance   string `json:"balance"`
}

// LoanScheduleResponse is an amortized loan.
type LoanScheduleResponse struct {
	Principal      string                `json:"principal"`
	AnnualRate     string                `json:"annualRate"`
	TermMonths     int                   `json:"termMonths"`
	EMI            string                `json:"emi"`
	TotalRepayment string                `json:"totalRepayment"`
	TotalInterest  string                `json:"totalInterest"`
	Installments   []InstallmentResponse `json:"installments"`
}

func toLoanScheduleResponse(s finance.LoanSchedule) LoanScheduleResponse {
	inst := make([]InstallmentResponse, len(s.Installments))
	for i, in := range s.Installments {
		inst[i] = InstallmentResponse{
			Month:     in.Month,
			EMI:       money(in.EMI),
			Interest:  money(in.Interest),
			Principal: money(in.Principal),
			Balance:   money(in.Balance),
		}
	}
	return LoanScheduleResponse{
		Principal:      money(s.Principal),
		AnnualRate:     s.AnnualRate.String(),
		TermMonths:     s.TermMonths,
		EMI:            money(s.EMI),
		TotalRepayment: money(s.TotalRepayment),
		TotalInterest:  money(s.TotalInterest),
		Installments:   inst,
	}
}

// LoanOfferResponse pairs a valuation with the loan it supports.
type LoanOfferResponse struct {
	Valuation ValuationResponse    `json:"valuation"`
	Schedule  LoanScheduleResponse `json:"schedule"`
}
