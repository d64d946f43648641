// Package salesindex maintains a relational side index of issued
// tickets for reporting queries. The index is derivative: the ledger is
// the source of truth and index failures never block ticket operations.
package salesindex

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/venuecore/ticketd/internal/core/price"
)

// ErrNotOpen is returned when the index is used after Close.
var ErrNotOpen = errors.New("salesindex: not open")

const schema = `
CREATE TABLE IF NOT EXISTS sales (
	token_id      INTEGER PRIMARY KEY,
	tier          TEXT    NOT NULL,
	buyer         TEXT    NOT NULL,
	price_paid    TEXT    NOT NULL,
	purchase_time INTEGER NOT NULL,
	refunded      INTEGER NOT NULL DEFAULT 0,
	refund_time   INTEGER
);
CREATE INDEX IF NOT EXISTS sales_tier ON sales(tier);
CREATE INDEX IF NOT EXISTS sales_buyer ON sales(buyer);
`

// Sale is one row of the index.
type Sale struct {
	TokenID      uint32
	Tier         string
	Buyer        string
	PricePaid    price.Price
	PurchaseTime uint64
	Refunded     bool
	RefundTime   uint64
}

// TierSummary aggregates sales for one tier.
type TierSummary struct {
	Tier     string
	Sold     uint64
	Refunded uint64
	Revenue  price.Price
}

// Index records ticket sales in a local sqlite database.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index database at path. ":memory:" gives an
// ephemeral index.
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, errors.New("salesindex: empty database path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("salesindex: open %s: %w", path, err)
	}
	// sqlite handles one writer at a time; keep the pool to a single
	// connection so concurrent recorders serialize instead of failing.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("salesindex: init schema: %w", err)
	}
	return &Index{db: db}, nil
}

// RecordMint inserts a sale row. Implements ledger.SalesRecorder.
func (i *Index) RecordMint(tokenID uint32, tier, buyer string, paid price.Price, purchaseTime uint64) error {
	if i.db == nil {
		return ErrNotOpen
	}
	_, err := i.db.Exec(
		`INSERT INTO sales (token_id, tier, buyer, price_paid, purchase_time) VALUES (?, ?, ?, ?, ?)`,
		int64(tokenID), tier, buyer, paid.String(), int64(purchaseTime),
	)
	if err != nil {
		return fmt.Errorf("salesindex: record mint %d: %w", tokenID, err)
	}
	return nil
}

// RecordRefund marks a sale refunded. Implements ledger.SalesRecorder.
func (i *Index) RecordRefund(tokenID uint32, refundTime uint64) error {
	if i.db == nil {
		return ErrNotOpen
	}
	_, err := i.db.Exec(
		`UPDATE sales SET refunded = 1, refund_time = ? WHERE token_id = ?`,
		int64(refundTime), int64(tokenID),
	)
	if err != nil {
		return fmt.Errorf("salesindex: record refund %d: %w", tokenID, err)
	}
	return nil
}

// SalesByTier returns all sales for a tier, oldest first.
func (i *Index) SalesByTier(tier string) ([]Sale, error) {
	if i.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := i.db.Query(
		`SELECT token_id, tier, buyer, price_paid, purchase_time, refunded, COALESCE(refund_time, 0)
		 FROM sales WHERE tier = ? ORDER BY purchase_time, token_id`, tier)
	if err != nil {
		return nil, fmt.Errorf("salesindex: query tier %q: %w", tier, err)
	}
	defer rows.Close()
	return scanSales(rows)
}

// SalesByBuyer returns all sales for a buyer, oldest first.
func (i *Index) SalesByBuyer(buyer string) ([]Sale, error) {
	if i.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := i.db.Query(
		`SELECT token_id, tier, buyer, price_paid, purchase_time, refunded, COALESCE(refund_time, 0)
		 FROM sales WHERE buyer = ? ORDER BY purchase_time, token_id`, buyer)
	if err != nil {
		return nil, fmt.Errorf("salesindex: query buyer %q: %w", buyer, err)
	}
	defer rows.Close()
	return scanSales(rows)
}

// Summary aggregates sold and refunded counts and gross revenue per
// tier. Revenue counts every issued ticket; refunds are reported but
// not subtracted.
func (i *Index) Summary() ([]TierSummary, error) {
	if i.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := i.db.Query(
		`SELECT tier, price_paid, refunded FROM sales ORDER BY tier, token_id`)
	if err != nil {
		return nil, fmt.Errorf("salesindex: query summary: %w", err)
	}
	defer rows.Close()

	var out []TierSummary
	for rows.Next() {
		var tier, paid string
		var refunded bool
		if err := rows.Scan(&tier, &paid, &refunded); err != nil {
			return nil, fmt.Errorf("salesindex: scan summary: %w", err)
		}
		p, err := price.ParseDecimal(paid)
		if err != nil {
			return nil, fmt.Errorf("salesindex: stored price %q: %w", paid, err)
		}
		if len(out) == 0 || out[len(out)-1].Tier != tier {
			out = append(out, TierSummary{Tier: tier})
		}
		s := &out[len(out)-1]
		s.Sold++
		if refunded {
			s.Refunded++
		}
		revenue, err := s.Revenue.Add(p)
		if err != nil {
			return nil, fmt.Errorf("salesindex: revenue for tier %q: %w", tier, err)
		}
		s.Revenue = revenue
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("salesindex: summary rows: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (i *Index) Close() error {
	if i.db == nil {
		return nil
	}
	err := i.db.Close()
	i.db = nil
	return err
}

func scanSales(rows *sql.Rows) ([]Sale, error) {
	var out []Sale
	for rows.Next() {
		var (
			tokenID, purchase, refundTime int64
			tier, buyer, paid             string
			refunded                      bool
		)
		if err := rows.Scan(&tokenID, &tier, &buyer, &paid, &purchase, &refunded, &refundTime); err != nil {
			return nil, fmt.Errorf("salesindex: scan sale: %w", err)
		}
		p, err := price.ParseDecimal(paid)
		if err != nil {
			return nil, fmt.Errorf("salesindex: stored price %q: %w", paid, err)
		}
		out = append(out, Sale{
			TokenID:      uint32(tokenID),
			Tier:         tier,
			Buyer:        buyer,
			PricePaid:    p,
			PurchaseTime: uint64(purchase),
			Refunded:     refunded,
			RefundTime:   uint64(refundTime),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("salesindex: sale rows: %w", err)
	}
	return out, nil
}
