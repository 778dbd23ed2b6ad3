package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/neomorfeo/grainvault/internal/app"
	"github.com/neomorfeo/grainvault/internal/domain"
	"github.com/neomorfeo/grainvault/internal/finance"
	"github.com/neomorfeo/grainvault/internal/layout"
)

// Services bundles the application services exposed over HTTP.
type Services struct {
	Warehouses *app.WarehouseService
	Allocation *app.AllocationEngine
	Occupancy  *app.OccupancyAggregator
	Valuation  *app.ValuationService
}

// --- Warehouses ---

type CreateWarehouseInput struct {
	Body struct {
		Name          string            `json:"name" minLength:"1" maxLength:"255" doc:"Display name, unique across warehouses"`
		Description   string            `json:"description,omitempty" maxLength:"2000"`
		OwnerID       string            `json:"ownerId,omitempty" doc:"Owning account"`
		Configuration ConfigurationBody `json:"configuration"`
		Pricing       *PricingInput     `json:"pricing,omitempty" doc:"Storage tariff; defaults to 7/quintal/month rent, 6/month maintenance, 5/year insurance"`
	}
}

type WarehouseOutput struct {
	Body WarehouseResponse
}

type WarehouseIDInput struct {
	ID string `path:"id" doc:"Warehouse ID"`
}

type ListWarehousesInput struct {
	OwnerID string `query:"ownerId" required:"false" doc:"Filter by owner"`
	Active  string `query:"active" required:"false" enum:"true,false" doc:"Filter by active flag"`
	Limit   int    `query:"limit" required:"false" default:"50" minimum:"0" doc:"Max results"`
	Offset  int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListWarehousesOutput struct {
	Body []WarehouseResponse
}

type UpdateWarehouseInput struct {
	ID   string `path:"id" doc:"Warehouse ID"`
	Body struct {
		Name        *string       `json:"name,omitempty" minLength:"1" maxLength:"255"`
		Description *string       `json:"description,omitempty" maxLength:"2000"`
		Pricing     *PricingInput `json:"pricing,omitempty"`
	}
}

type LayoutOutput struct {
	Body layout.Document
}

type RawJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type ArchiveOutput struct {
	Body struct {
		Key string `json:"key" doc:"Object key of the archived layout"`
	}
}

// --- Occupancy and slots ---

type OccupancyOutput struct {
	Body OccupancyResponse
}

type SlotsOutput struct {
	Body []SlotResponse
}

type FirstAvailableInput struct {
	ID   string `path:"id" doc:"Warehouse ID"`
	Bags int    `query:"bags" required:"true" minimum:"1" doc:"Bags the slot must still take"`
}

type SlotInput struct {
	ID       string `path:"id" doc:"Warehouse ID"`
	Building int    `path:"building" minimum:"1" doc:"1-based building number"`
	Block    string `path:"block" pattern:"^[A-Z]$" doc:"Block label"`
	Row      int    `path:"row" minimum:"1"`
	Col      int    `path:"col" minimum:"1"`
}

func (in SlotInput) ref() domain.SlotRef {
	return domain.SlotRef{WarehouseID: in.ID, Building: in.Building, Block: in.Block, Row: in.Row, Col: in.Col}
}

type SlotOutput struct {
	Body SlotResponse
}

type AllocateInput struct {
	SlotInput
	Body struct {
		CustomerID string   `json:"customerId" minLength:"1"`
		Bags       int      `json:"bags" minimum:"1"`
		GrainType  string   `json:"grainType,omitempty" doc:"rice, wheat, maize, barley, millet, sorghum, pulses or other"`
		WeightKg   *float64 `json:"weightKg,omitempty" exclusiveMinimum:"0" doc:"Weighbridge reading; defaults to 50 kg per bag"`
		Notes      string   `json:"notes,omitempty" maxLength:"1000"`
		EntryDate  string   `json:"entryDate,omitempty" format:"date-time" doc:"Defaults to now"`
	}
}

type DeallocateInput struct {
	SlotInput
	Body struct {
		CustomerID string `json:"customerId" minLength:"1"`
		Bags       int    `json:"bags" minimum:"1"`
	}
}

type AllocationOutput struct {
	Body AllocationResultResponse
}

// --- Customers and loans ---

type CustomerInput struct {
	CustomerID string `path:"customerId" doc:"Customer ID"`
}

type HoldingsOutput struct {
	Body []HoldingResponse
}

type ValuationInput struct {
	CustomerID      string `path:"customerId" doc:"Customer ID"`
	PricePerQuintal string `query:"pricePerQuintal" required:"false" doc:"Override the market price of the dominant grain"`
}

type ValuationOutput struct {
	Body ValuationResponse
}

type ChargesInput struct {
	CustomerID string `path:"customerId" doc:"Customer ID"`
	AsOf       string `query:"asOf" required:"false" doc:"Billing date, RFC 3339 or YYYY-MM-DD; defaults to now"`
}

type ChargesOutput struct {
	Body ChargesResponse
}

type LoanQuoteInput struct {
	Body struct {
		Principal  float64 `json:"principal" doc:"Loan amount in rupees"`
		AnnualRate float64 `json:"annualRate" doc:"Annual interest rate as a fraction, 0.12 for 12%"`
		TermMonths int     `json:"termMonths"`
	}
}

type LoanScheduleOutput struct {
	Body LoanScheduleResponse
}

type LoanOfferInput struct {
	CustomerID string `path:"customerId" doc:"Customer ID"`
	Body       struct {
		AnnualRate      float64  `json:"annualRate" doc:"Annual interest rate as a fraction"`
		TermMonths      int      `json:"termMonths"`
		PricePerQuintal *float64 `json:"pricePerQuintal,omitempty" doc:"Override the market price of the dominant grain"`
	}
}

type LoanOfferOutput struct {
	Body LoanOfferResponse
}

// Register adds all grain storage API routes to the Huma API.
func Register(api huma.API, svc Services) {
	registerWarehouses(api, svc.Warehouses)
	registerSlots(api, svc.Occupancy, svc.Allocation)
	registerCustomers(api, svc.Valuation)
}

func registerWarehouses(api huma.API, svc *app.WarehouseService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-warehouse",
		Method:      http.MethodPost,
		Path:        "/api/v1/warehouses",
		Summary:     "Create a warehouse and generate its slot grid",
		Tags:        []string{"Warehouses"},
	}, func(ctx context.Context, input *CreateWarehouseInput) (*WarehouseOutput, error) {
		spec := domain.WarehouseSpec{
			Name:          input.Body.Name,
			Description:   input.Body.Description,
			OwnerID:       input.Body.OwnerID,
			Configuration: input.Body.Configuration.toDomain(),
		}
		if input.Body.Pricing != nil {
			spec.Pricing = input.Body.Pricing.toDomain()
		}
		w, err := svc.Create(ctx, spec)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &WarehouseOutput{Body: toWarehouseResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-warehouses",
		Method:      http.MethodGet,
		Path:        "/api/v1/warehouses",
		Summary:     "List warehouses",
		Tags:        []string{"Warehouses"},
	}, func(ctx context.Context, input *ListWarehousesInput) (*ListWarehousesOutput, error) {
		filter := domain.ListFilter{
			OwnerID: input.OwnerID,
			Limit:   input.Limit,
			Offset:  input.Offset,
		}
		if input.Active != "" {
			active := input.Active == "true"
			filter.Active = &active
		}

		warehouses, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]WarehouseResponse, len(warehouses))
		for i, w := range warehouses {
			resp[i] = toWarehouseResponse(w)
		}
		return &ListWarehousesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-warehouse",
		Method:      http.MethodGet,
		Path:        "/api/v1/warehouses/{id}",
		Summary:     "Get a warehouse by ID",
		Tags:        []string{"Warehouses"},
	}, func(ctx context.Context, input *WarehouseIDInput) (*WarehouseOutput, error) {
		w, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &WarehouseOutput{Body: toWarehouseResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-warehouse",
		Method:      http.MethodPatch,
		Path:        "/api/v1/warehouses/{id}",
		Summary:     "Update name, description or pricing",
		Tags:        []string{"Warehouses"},
	}, func(ctx context.Context, input *UpdateWarehouseInput) (*WarehouseOutput, error) {
		upd := app.WarehouseUpdate{
			Name:        input.Body.Name,
			Description: input.Body.Description,
		}
		if input.Body.Pricing != nil {
			p := input.Body.Pricing.toDomain()
			upd.Pricing = &p
		}
		w, err := svc.UpdateDetails(ctx, input.ID, upd)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &WarehouseOutput{Body: toWarehouseResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-warehouse",
		Method:      http.MethodDelete,
		Path:        "/api/v1/warehouses/{id}",
		Summary:     "Deactivate an empty warehouse",
		Tags:        []string{"Warehouses"},
	}, func(ctx context.Context, input *WarehouseIDInput) (*WarehouseOutput, error) {
		w, err := svc.Deactivate(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &WarehouseOutput{Body: toWarehouseResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-warehouse-layout",
		Method:      http.MethodGet,
		Path:        "/api/v1/warehouses/{id}/layout",
		Summary:     "Export the full slot grid",
		Tags:        []string{"Layout"},
	}, func(ctx context.Context, input *WarehouseIDInput) (*LayoutOutput, error) {
		doc, err := svc.Layout(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &LayoutOutput{Body: doc}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-warehouse-layout",
		Method:      http.MethodPost,
		Path:        "/api/v1/warehouses/{id}/layout/archive",
		Summary:     "Store the layout document in object storage",
		Tags:        []string{"Layout"},
	}, func(ctx context.Context, input *WarehouseIDInput) (*ArchiveOutput, error) {
		key, err := svc.ArchiveLayout(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &ArchiveOutput{}
		out.Body.Key = key
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-layout-schema",
		Method:      http.MethodGet,
		Path:        "/api/v1/layout-schema",
		Summary:     "JSON Schema of the layout document",
		Tags:        []string{"Layout"},
	}, func(_ context.Context, _ *struct{}) (*RawJSONOutput, error) {
		data, err := json.Marshal(layout.Schema())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RawJSONOutput{ContentType: "application/schema+json", Body: data}, nil
	})
}

func registerSlots(api huma.API, occ *app.OccupancyAggregator, engine *app.AllocationEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-warehouse-occupancy",
		Method:      http.MethodGet,
		Path:        "/api/v1/warehouses/{id}/occupancy",
		Summary:     "Occupancy per block, per building and overall",
		Tags:        []string{"Occupancy"},
	}, func(ctx context.Context, input *WarehouseIDInput) (*OccupancyOutput, error) {
		o, err := occ.Warehouse(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &OccupancyOutput{Body: toOccupancyResponse(o)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-available-slots",
		Method:      http.MethodGet,
		Path:        "/api/v1/warehouses/{id}/available-slots",
		Summary:     "Slots that are not full, in grid order",
		Tags:        []string{"Occupancy"},
	}, func(ctx context.Context, input *WarehouseIDInput) (*SlotsOutput, error) {
		slots, err := occ.AvailableSlots(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SlotsOutput{Body: toSlotResponses(slots)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "first-available-slot",
		Method:      http.MethodGet,
		Path:        "/api/v1/warehouses/{id}/first-available",
		Summary:     "First slot in grid order with room for the bags",
		Tags:        []string{"Occupancy"},
	}, func(ctx context.Context, input *FirstAvailableInput) (*SlotOutput, error) {
		s, err := occ.FirstAvailable(ctx, input.ID, input.Bags)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SlotOutput{Body: toSlotResponse(s)}, nil
	})

	const slotPath = "/api/v1/warehouses/{id}/slots/{building}/{block}/{row}/{col}"

	huma.Register(api, huma.Operation{
		OperationID: "get-slot",
		Method:      http.MethodGet,
		Path:        slotPath,
		Summary:     "Slot details with allocations",
		Tags:        []string{"Slots"},
	}, func(ctx context.Context, input *SlotInput) (*SlotOutput, error) {
		s, err := occ.SlotDetails(ctx, input.ref())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SlotOutput{Body: toSlotResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "allocate",
		Method:      http.MethodPost,
		Path:        slotPath + "/allocations",
		Summary:     "Store a customer's bags in a slot",
		Tags:        []string{"Slots"},
	}, func(ctx context.Context, input *AllocateInput) (*AllocationOutput, error) {
		req := app.AllocateRequest{
			Slot:       input.ref(),
			CustomerID: input.Body.CustomerID,
			Bags:       input.Body.Bags,
			GrainType:  input.Body.GrainType,
			Notes:      input.Body.Notes,
		}
		if input.Body.WeightKg != nil {
			w := decimal.NewFromFloat(*input.Body.WeightKg)
			req.WeightKg = &w
		}
		if input.Body.EntryDate != "" {
			t, err := time.Parse(time.RFC3339, input.Body.EntryDate)
			if err != nil {
				return nil, huma.Error422UnprocessableEntity("entryDate must be an RFC 3339 timestamp")
			}
			req.EntryDate = t.UTC()
		}

		res, err := engine.Allocate(ctx, req)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AllocationOutput{Body: toAllocationResultResponse(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deallocate",
		Method:      http.MethodPost,
		Path:        slotPath + "/deallocations",
		Summary:     "Remove a customer's bags from a slot",
		Tags:        []string{"Slots"},
	}, func(ctx context.Context, input *DeallocateInput) (*AllocationOutput, error) {
		res, err := engine.Deallocate(ctx, app.DeallocateRequest{
			Slot:       input.ref(),
			CustomerID: input.Body.CustomerID,
			Bags:       input.Body.Bags,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AllocationOutput{Body: toAllocationResultResponse(res)}, nil
	})
}

func registerCustomers(api huma.API, svc *app.ValuationService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-customer-holdings",
		Method:      http.MethodGet,
		Path:        "/api/v1/customers/{customerId}/holdings",
		Summary:     "Where a customer's grain is stored",
		Tags:        []string{"Customers"},
	}, func(ctx context.Context, input *CustomerInput) (*HoldingsOutput, error) {
		holdings, err := svc.Holdings(ctx, input.CustomerID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]HoldingResponse, len(holdings))
		for i, h := range holdings {
			resp[i] = toHoldingResponse(h)
		}
		return &HoldingsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "value-customer-grain",
		Method:      http.MethodGet,
		Path:        "/api/v1/customers/{customerId}/valuation",
		Summary:     "Market value and loan eligibility of a customer's grain",
		Tags:        []string{"Customers"},
	}, func(ctx context.Context, input *ValuationInput) (*ValuationOutput, error) {
		var price *decimal.Decimal
		if input.PricePerQuintal != "" {
			p, err := decimal.NewFromString(input.PricePerQuintal)
			if err != nil {
				return nil, huma.Error422UnprocessableEntity("pricePerQuintal must be a decimal number")
			}
			price = &p
		}
		v, err := svc.Customer(ctx, input.CustomerID, price)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ValuationOutput{Body: toValuationResponse(v)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "bill-customer-storage",
		Method:      http.MethodGet,
		Path:        "/api/v1/customers/{customerId}/charges",
		Summary:     "Storage charges for each holding",
		Tags:        []string{"Customers"},
	}, func(ctx context.Context, input *ChargesInput) (*ChargesOutput, error) {
		var asOf time.Time
		if input.AsOf != "" {
			t, err := parseDate(input.AsOf)
			if err != nil {
				return nil, huma.Error422UnprocessableEntity("asOf must be RFC 3339 or YYYY-MM-DD")
			}
			asOf = t
		}
		c, err := svc.Charges(ctx, input.CustomerID, asOf)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ChargesOutput{Body: toChargesResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "offer-customer-loan",
		Method:      http.MethodPost,
		Path:        "/api/v1/customers/{customerId}/loan-offer",
		Summary:     "Amortize the largest loan the customer's grain supports",
		Tags:        []string{"Loans"},
	}, func(ctx context.Context, input *LoanOfferInput) (*LoanOfferOutput, error) {
		var price *decimal.Decimal
		if input.Body.PricePerQuintal != nil {
			p := decimal.NewFromFloat(*input.Body.PricePerQuintal)
			price = &p
		}
		offer, err := svc.Offer(ctx, input.CustomerID, decimal.NewFromFloat(input.Body.AnnualRate), input.Body.TermMonths, price)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &LoanOfferOutput{Body: LoanOfferResponse{
			Valuation: toValuationResponse(offer.Valuation),
			Schedule:  toLoanScheduleResponse(offer.Schedule),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "quote-loan",
		Method:      http.MethodPost,
		Path:        "/api/v1/loans/quote",
		Summary:     "Amortize an arbitrary principal",
		Tags:        []string{"Loans"},
	}, func(_ context.Context, input *LoanQuoteInput) (*LoanScheduleOutput, error) {
		s, err := svc.Quote(
			decimal.NewFromFloat(input.Body.Principal),
			decimal.NewFromFloat(input.Body.AnnualRate),
			input.Body.TermMonths,
		)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &LoanScheduleOutput{Body: toLoanScheduleResponse(s)}, nil
	})
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, strings.TrimSpace(s))
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrWarehouseNotFound),
		errors.Is(err, domain.ErrSlotNotFound),
		errors.Is(err, domain.ErrAllocationNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, domain.ErrArchiveUnavailable):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		return huma.Error409Conflict("slot is busy, retry the request")
	case errors.Is(err, finance.ErrInvalidPeriod):
		return huma.Error422UnprocessableEntity(err.Error())
	}

	var (
		capErr   *domain.CapacityExceededError
		insErr   *domain.InsufficientAllocationError
		inUseErr *domain.WarehouseInUseError
		trErr    *domain.TransitionError
		cfgErr   *domain.ConfigurationError
		reqErr   *domain.InvalidRequestError
		priceErr *domain.PriceNotFoundError
		loanErr  *finance.InvalidLoanParametersError
	)
	switch {
	case errors.As(err, &capErr):
		return huma.Error409Conflict(capErr.Error())
	case errors.As(err, &insErr):
		return huma.Error409Conflict(insErr.Error())
	case errors.As(err, &inUseErr):
		return huma.Error409Conflict(inUseErr.Error())
	case errors.As(err, &trErr):
		return huma.Error409Conflict(trErr.Error())
	case errors.As(err, &cfgErr):
		return huma.Error422UnprocessableEntity(cfgErr.Error())
	case errors.As(err, &reqErr):
		return huma.Error422UnprocessableEntity(reqErr.Error())
	case errors.As(err, &priceErr):
		return huma.Error422UnprocessableEntity(priceErr.Error())
	case errors.As(err, &loanErr):
		return huma.Error422UnprocessableEntity(loanErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
