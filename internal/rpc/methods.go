package rpc

import (
	"encoding/json"
	"time"

	"github.com/venuecore/ticketd/internal/core/ledger"
	"github.com/venuecore/ticketd/internal/core/price"
	"github.com/venuecore/ticketd/internal/core/state"
	"github.com/venuecore/ticketd/internal/storage/salesindex"
)

// Version is stamped by the build; the cli overrides it.
var Version = "0.1.0"

func (s *Server) registerAllMethods() {
	// Public methods
	s.register("ping", s.ping)
	s.register("server_info", s.serverInfo)
	s.register("tier", s.tierInfo)
	s.register("ticket", s.ticketInfo)
	s.register("ticket_valid", s.ticketValid)
	s.register("ticket_mint", s.ticketMint)
	s.register("ticket_refund", s.ticketRefund)
	s.register("price_update", s.priceUpdate)
	s.register("price_compute", s.priceCompute)

	// Admin methods (loopback only)
	s.registerAdmin("init", s.initLedger)
	s.registerAdmin("tier_create", s.tierCreate)
	s.registerAdmin("tier_set_active", s.tierSetActive)
	s.registerAdmin("freeze", s.freeze)
	s.registerAdmin("unfreeze", s.unfreeze)
	s.registerAdmin("config_update", s.configUpdate)
	s.registerAdmin("oracle_reference_update", s.oracleReferenceUpdate)

	if s.sales != nil {
		s.register("sales_by_tier", s.salesByTier)
		s.register("sales_by_buyer", s.salesByBuyer)
		s.register("sales_summary", s.salesSummary)
	}
}

func decodeParams(params json.RawMessage, v any) *Error {
	if params == nil {
		return errInvalidParams("missing params")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return errInvalidParams("invalid params: " + err.Error())
	}
	return nil
}

func parsePrice(field, value string) (price.Price, *Error) {
	if value == "" {
		return price.Price{}, errInvalidParams("missing " + field)
	}
	p, err := price.ParseDecimal(value)
	if err != nil {
		return price.Price{}, errInvalidParams(field + ": " + err.Error())
	}
	return p, nil
}

func (s *Server) ping(ctx *Context, params json.RawMessage) (any, *Error) {
	return nil, nil
}

func (s *Server) serverInfo(ctx *Context, params json.RawMessage) (any, *Error) {
	info := map[string]any{
		"build_version":  Version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"time":           s.now(),
	}
	if admin, err := s.core.Admin(); err == nil {
		info["initialized"] = true
		info["admin"] = admin
		if cfg, err := s.core.PricingConfig(); err == nil {
			info["frozen"] = cfg.IsFrozen
			info["oracle_pair"] = cfg.OraclePair
			info["last_update_time"] = cfg.LastUpdateTime
		}
	} else {
		info["initialized"] = false
	}
	return info, nil
}

type initParams struct {
	Admin string `json:"admin"`
	Event struct {
		StartTime        uint64 `json:"start_time"`
		RefundCutoffTime uint64 `json:"refund_cutoff_time"`
	} `json:"event"`
	Config struct {
		OracleAddress        string `json:"oracle_address"`
		DexPoolAddress       string `json:"dex_pool_address"`
		OraclePair           string `json:"oracle_pair"`
		PriceFloor           string `json:"price_floor"`
		PriceCeiling         string `json:"price_ceiling"`
		UpdateFrequency      uint64 `json:"update_frequency"`
		OracleReferencePrice string `json:"oracle_reference_price"`
		MaxOracleAgeSeconds  uint64 `json:"max_oracle_age_seconds"`
	} `json:"config"`
}

func (s *Server) initLedger(ctx *Context, params json.RawMessage) (any, *Error) {
	var p initParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Admin == "" {
		return nil, errInvalidParams("missing admin")
	}
	floor, rpcErr := parsePrice("price_floor", p.Config.PriceFloor)
	if rpcErr != nil {
		return nil, rpcErr
	}
	ceiling, rpcErr := parsePrice("price_ceiling", p.Config.PriceCeiling)
	if rpcErr != nil {
		return nil, rpcErr
	}
	reference, rpcErr := parsePrice("oracle_reference_price", p.Config.OracleReferencePrice)
	if rpcErr != nil {
		return nil, rpcErr
	}

	err := s.core.Initialize(p.Admin, state.EventInfo{
		StartTime:        p.Event.StartTime,
		RefundCutoffTime: p.Event.RefundCutoffTime,
	}, state.PricingConfig{
		OracleAddress:        p.Config.OracleAddress,
		DexPoolAddress:       p.Config.DexPoolAddress,
		OraclePair:           p.Config.OraclePair,
		PriceFloor:           floor,
		PriceCeiling:         ceiling,
		UpdateFrequency:      p.Config.UpdateFrequency,
		OracleReferencePrice: reference,
		MaxOracleAgeSeconds:  p.Config.MaxOracleAgeSeconds,
	})
	if err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{"admin": p.Admin}, nil
}

type tierCreateParams struct {
	Admin     string `json:"admin"`
	Symbol    string `json:"symbol"`
	BasePrice string `json:"base_price"`
	MaxSupply uint32 `json:"max_supply"`
	Strategy  string `json:"strategy,omitempty"`
	Active    bool   `json:"active"`
}

func (s *Server) tierCreate(ctx *Context, params json.RawMessage) (any, *Error) {
	var p tierCreateParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	base, rpcErr := parsePrice("base_price", p.BasePrice)
	if rpcErr != nil {
		return nil, rpcErr
	}
	strategy := state.StrategyStandard
	if p.Strategy != "" {
		var err error
		strategy, err = state.ParseStrategy(p.Strategy)
		if err != nil {
			return nil, errInvalidParams(err.Error())
		}
	}
	err := s.core.CreateTier(p.Admin, ledger.TierSpec{
		Symbol:    p.Symbol,
		BasePrice: base,
		MaxSupply: p.MaxSupply,
		Strategy:  strategy,
		Active:    p.Active,
	})
	if err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{"symbol": p.Symbol}, nil
}

type tierActiveParams struct {
	Admin  string `json:"admin"`
	Symbol string `json:"symbol"`
	Active bool   `json:"active"`
}

func (s *Server) tierSetActive(ctx *Context, params json.RawMessage) (any, *Error) {
	var p tierActiveParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.core.SetTierActive(p.Admin, p.Symbol, p.Active); err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{"symbol": p.Symbol, "active": p.Active}, nil
}

type tierParams struct {
	Symbol string `json:"symbol"`
}

func tierResponse(tier state.Tier) map[string]any {
	return map[string]any{
		"symbol":        tier.Name,
		"base_price":    tier.BasePrice.String(),
		"current_price": tier.CurrentPrice.String(),
		"max_supply":    tier.MaxSupply,
		"minted":        tier.Minted,
		"active":        tier.Active,
		"strategy":      tier.Strategy.String(),
	}
}

func (s *Server) tierInfo(ctx *Context, params json.RawMessage) (any, *Error) {
	var p tierParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	tier, err := s.core.Tier(p.Symbol)
	if err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{"tier": tierResponse(tier)}, nil
}

type mintParams struct {
	Tier  string `json:"tier"`
	Buyer string `json:"buyer"`
}

func (s *Server) ticketMint(ctx *Context, params json.RawMessage) (any, *Error) {
	var p mintParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Buyer == "" {
		return nil, errInvalidParams("missing buyer")
	}
	id, ticket, err := s.core.Mint(p.Tier, p.Buyer, s.now())
	if err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{
		"token_id":      id,
		"tier":          ticket.TierSymbol,
		"price_paid":    ticket.PricePaid.String(),
		"purchase_time": ticket.PurchaseTime,
	}, nil
}

type tokenParams struct {
	TokenID uint32 `json:"token_id"`
}

func (s *Server) ticketRefund(ctx *Context, params json.RawMessage) (any, *Error) {
	var p tokenParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.core.Refund(p.TokenID, s.now()); err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{"token_id": p.TokenID}, nil
}

func (s *Server) ticketInfo(ctx *Context, params json.RawMessage) (any, *Error) {
	var p tokenParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	ticket, err := s.core.Ticket(p.TokenID)
	if err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{
		"token_id":      p.TokenID,
		"tier":          ticket.TierSymbol,
		"price_paid":    ticket.PricePaid.String(),
		"purchase_time": ticket.PurchaseTime,
		"valid":         ticket.IsValid,
	}, nil
}

func (s *Server) ticketValid(ctx *Context, params json.RawMessage) (any, *Error) {
	var p tokenParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	valid, err := s.core.IsTicketValid(p.TokenID)
	if err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{"token_id": p.TokenID, "valid": valid}, nil
}

func (s *Server) priceUpdate(ctx *Context, params json.RawMessage) (any, *Error) {
	var p tierParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	current, updated, err := s.core.UpdatePrice(ctx.Context, p.Symbol, s.now())
	if err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{
		"tier":    p.Symbol,
		"price":   current.String(),
		"updated": updated,
	}, nil
}

func (s *Server) priceCompute(ctx *Context, params json.RawMessage) (any, *Error) {
	var p tierParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	computed, err := s.core.ComputeCurrentPrice(ctx.Context, p.Symbol, s.now())
	if err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{"tier": p.Symbol, "price": computed.String()}, nil
}

type adminParams struct {
	Admin string `json:"admin"`
}

func (s *Server) freeze(ctx *Context, params json.RawMessage) (any, *Error) {
	var p adminParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.core.Freeze(p.Admin); err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{"frozen": true}, nil
}

func (s *Server) unfreeze(ctx *Context, params json.RawMessage) (any, *Error) {
	var p adminParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.core.Unfreeze(p.Admin); err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{"frozen": false}, nil
}

type configUpdateParams struct {
	Admin               string  `json:"admin"`
	OracleAddress       *string `json:"oracle_address,omitempty"`
	DexPoolAddress      *string `json:"dex_pool_address,omitempty"`
	OraclePair          *string `json:"oracle_pair,omitempty"`
	PriceFloor          *string `json:"price_floor,omitempty"`
	PriceCeiling        *string `json:"price_ceiling,omitempty"`
	UpdateFrequency     *uint64 `json:"update_frequency,omitempty"`
	MaxOracleAgeSeconds *uint64 `json:"max_oracle_age_seconds,omitempty"`
}

func (s *Server) configUpdate(ctx *Context, params json.RawMessage) (any, *Error) {
	var p configUpdateParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	update := ledger.ConfigUpdate{
		OracleAddress:       p.OracleAddress,
		DexPoolAddress:      p.DexPoolAddress,
		OraclePair:          p.OraclePair,
		UpdateFrequency:     p.UpdateFrequency,
		MaxOracleAgeSeconds: p.MaxOracleAgeSeconds,
	}
	if p.PriceFloor != nil {
		floor, rpcErr := parsePrice("price_floor", *p.PriceFloor)
		if rpcErr != nil {
			return nil, rpcErr
		}
		update.PriceFloor = &floor
	}
	if p.PriceCeiling != nil {
		ceiling, rpcErr := parsePrice("price_ceiling", *p.PriceCeiling)
		if rpcErr != nil {
			return nil, rpcErr
		}
		update.PriceCeiling = &ceiling
	}
	if err := s.core.UpdateConfig(p.Admin, update); err != nil {
		return nil, fromCoreError(err)
	}
	return nil, nil
}

type oracleReferenceParams struct {
	Admin          string `json:"admin"`
	ReferencePrice string `json:"reference_price"`
}

func (s *Server) oracleReferenceUpdate(ctx *Context, params json.RawMessage) (any, *Error) {
	var p oracleReferenceParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	reference, rpcErr := parsePrice("reference_price", p.ReferencePrice)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.core.UpdateOracleReference(p.Admin, reference); err != nil {
		return nil, fromCoreError(err)
	}
	return map[string]any{"reference_price": reference.String()}, nil
}

type buyerParams struct {
	Buyer string `json:"buyer"`
}

func saleResponse(sales []map[string]any) map[string]any {
	return map[string]any{"sales": sales}
}

func (s *Server) salesByTier(ctx *Context, params json.RawMessage) (any, *Error) {
	var p tierParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	sales, err := s.sales.SalesByTier(p.Symbol)
	if err != nil {
		return nil, &Error{Code: codeInternal, ErrorString: "internal", Message: err.Error()}
	}
	return saleResponse(salesToWire(sales)), nil
}

func (s *Server) salesByBuyer(ctx *Context, params json.RawMessage) (any, *Error) {
	var p buyerParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	sales, err := s.sales.SalesByBuyer(p.Buyer)
	if err != nil {
		return nil, &Error{Code: codeInternal, ErrorString: "internal", Message: err.Error()}
	}
	return saleResponse(salesToWire(sales)), nil
}

func (s *Server) salesSummary(ctx *Context, params json.RawMessage) (any, *Error) {
	sums, err := s.sales.Summary()
	if err != nil {
		return nil, &Error{Code: codeInternal, ErrorString: "internal", Message: err.Error()}
	}
	out := make([]map[string]any, 0, len(sums))
	for _, sum := range sums {
		out = append(out, map[string]any{
			"tier":     sum.Tier,
			"sold":     sum.Sold,
			"refunded": sum.Refunded,
			"revenue":  sum.Revenue.String(),
		})
	}
	return map[string]any{"tiers": out}, nil
}

func salesToWire(sales []salesindex.Sale) []map[string]any {
	out := make([]map[string]any, 0, len(sales))
	for _, sale := range sales {
		row := map[string]any{
			"token_id":      sale.TokenID,
			"tier":          sale.Tier,
			"buyer":         sale.Buyer,
			"price_paid":    sale.PricePaid.String(),
			"purchase_time": sale.PurchaseTime,
			"refunded":      sale.Refunded,
		}
		if sale.Refunded {
			row["refund_time"] = sale.RefundTime
		}
		out = append(out, row)
	}
	return out
}
