// Package ledger implements the ticket ledger core: tier registry,
// ticket issuance and refunds, and the admin-gated pricing configuration.
//
// Every operation executes to completion against a single logical state
// snapshot. Mutating operations stage their writes in a state.Overlay and
// commit atomically; any validation failure discards the overlay and
// leaves persistent state untouched.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/venuecore/ticketd/internal/core/oracle"
	"github.com/venuecore/ticketd/internal/core/price"
	"github.com/venuecore/ticketd/internal/core/state"
)

// Config wires the core to its collaborators. Store is required; the
// oracle adapter is required for price updates; sales index and event
// sink are optional.
type Config struct {
	Store  state.View
	Oracle *oracle.Adapter
	Sales  SalesRecorder
	Events EventSink
}

// Core owns the ticket ledger state machine.
type Core struct {
	mu     sync.Mutex
	view   state.View
	oracle *oracle.Adapter
	sales  SalesRecorder
	events EventSink
}

// New creates a Core over the given collaborators.
func New(cfg Config) (*Core, error) {
	if cfg.Store == nil {
		return nil, errors.New("ledger: store is required")
	}
	return &Core{
		view:   cfg.Store,
		oracle: cfg.Oracle,
		sales:  cfg.Sales,
		events: cfg.Events,
	}, nil
}

// Initialize installs the admin identity, event timing, and pricing
// configuration. It succeeds exactly once; later calls fail with
// ErrAlreadyInitialized. The pricing configuration must carry the trusted
// first oracle reading as its reference price.
func (c *Core) Initialize(admin string, event state.EventInfo, cfg state.PricingConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if admin == "" {
		return fmt.Errorf("%w: admin identity must not be empty", ErrInvalidArgument)
	}
	if err := validatePricingConfig(&cfg); err != nil {
		return err
	}

	initialized, err := c.view.Has(state.AdminKey())
	if err != nil {
		return err
	}
	if initialized {
		return ErrAlreadyInitialized
	}

	o := state.NewOverlay(c.view)
	if err := o.Set(state.AdminKey(), []byte(admin)); err != nil {
		return err
	}
	if err := saveEventInfo(o, &event); err != nil {
		return err
	}
	if err := savePricingConfig(o, &cfg); err != nil {
		return err
	}
	if err := saveTokenCounter(o, 0); err != nil {
		return err
	}
	return o.Commit()
}

// Admin returns the stored admin identity.
func (c *Core) Admin() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return loadAdmin(c.view)
}

// PricingConfig returns the current pricing configuration.
func (c *Core) PricingConfig() (state.PricingConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg, err := loadPricingConfig(c.view)
	if err != nil {
		return state.PricingConfig{}, err
	}
	return *cfg, nil
}

// EventInfo returns the stored event timing.
func (c *Core) EventInfo() (state.EventInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, err := loadEventInfo(c.view)
	if err != nil {
		return state.EventInfo{}, err
	}
	return *ev, nil
}

func validatePricingConfig(cfg *state.PricingConfig) error {
	if cfg.PriceFloor.IsNegative() {
		return fmt.Errorf("%w: price floor must be non-negative", ErrInvalidArgument)
	}
	if cfg.PriceFloor.Cmp(cfg.PriceCeiling) > 0 {
		return fmt.Errorf("%w: price floor exceeds ceiling", ErrInvalidArgument)
	}
	if !cfg.OracleReferencePrice.IsPositive() {
		return fmt.Errorf("%w: oracle reference price must be positive", ErrInvalidArgument)
	}
	return nil
}

func newOverlay(v state.View) *state.Overlay {
	return state.NewOverlay(v)
}

// requireAdmin checks the caller against the stored admin identity.
func requireAdmin(v state.View, caller string) error {
	admin, err := loadAdmin(v)
	if err != nil {
		return err
	}
	if caller != admin {
		return ErrUnauthorized
	}
	return nil
}

func loadAdmin(v state.View) (string, error) {
	data, found, err := v.Get(state.AdminKey())
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotInitialized
	}
	return string(data), nil
}

func loadPricingConfig(v state.View) (*state.PricingConfig, error) {
	data, found, err := v.Get(state.PricingConfigKey())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInitialized
	}
	var cfg state.PricingConfig
	if err := state.Decode(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func savePricingConfig(v state.View, cfg *state.PricingConfig) error {
	data, err := state.Encode(cfg)
	if err != nil {
		return err
	}
	return v.Set(state.PricingConfigKey(), data)
}

func loadEventInfo(v state.View) (*state.EventInfo, error) {
	data, found, err := v.Get(state.EventInfoKey())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInitialized
	}
	var ev state.EventInfo
	if err := state.Decode(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func saveEventInfo(v state.View, ev *state.EventInfo) error {
	data, err := state.Encode(ev)
	if err != nil {
		return err
	}
	return v.Set(state.EventInfoKey(), data)
}

func loadTokenCounter(v state.View) (uint32, error) {
	data, found, err := v.Get(state.TokenCounterKey())
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNotInitialized
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("ledger: corrupt token counter (%d bytes)", len(data))
	}
	return binary.BigEndian.Uint32(data), nil
}

func saveTokenCounter(v state.View, counter uint32) error {
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, counter)
	return v.Set(state.TokenCounterKey(), data)
}

func loadTier(v state.View, symbol string) (*state.Tier, error) {
	data, found, err := v.Get(state.TierKey(symbol))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: tier %q", ErrNotFound, symbol)
	}
	var tier state.Tier
	if err := state.Decode(data, &tier); err != nil {
		return nil, err
	}
	return &tier, nil
}

func saveTier(v state.View, tier *state.Tier) error {
	data, err := state.Encode(tier)
	if err != nil {
		return err
	}
	return v.Set(state.TierKey(tier.Name), data)
}

func loadTicket(v state.View, id uint32) (*state.Ticket, error) {
	data, found, err := v.Get(state.TicketKey(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: ticket %d", ErrNotFound, id)
	}
	var ticket state.Ticket
	if err := state.Decode(data, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func saveTicket(v state.View, id uint32, ticket *state.Ticket) error {
	data, err := state.Encode(ticket)
	if err != nil {
		return err
	}
	return v.Set(state.TicketKey(id), data)
}

// mapArithmetic rewraps fixed-point overflow into the ledger error kind.
func mapArithmetic(err error) error {
	if errors.Is(err, price.ErrOverflow) {
		return fmt.Errorf("%w: %v", ErrArithmeticOverflow, err)
	}
	return err
}
