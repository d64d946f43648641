package state

import "encoding/binary"

// Space identifiers for the tagged key namespace. Every persistent entity
// lives in one flat key-value namespace; the leading tag byte discriminates
// the entity kind.
const (
	spaceAdmin         byte = 'A' // Admin identity (singleton)
	spaceEventInfo     byte = 'E' // Event timing (singleton)
	spaceTokenCounter  byte = 'N' // Token id counter (singleton)
	spacePricingConfig byte = 'P' // Pricing configuration (singleton)
	spaceTier          byte = 'T' // Tier, keyed by symbol
	spaceTicket        byte = 't' // Ticket, keyed by token id
)

// DataKey is an encoded key into the flat state namespace.
type DataKey []byte

// AdminKey returns the key for the singleton admin identity.
func AdminKey() DataKey {
	return DataKey{spaceAdmin}
}

// EventInfoKey returns the key for the singleton event info entry.
func EventInfoKey() DataKey {
	return DataKey{spaceEventInfo}
}

// TokenCounterKey returns the key for the singleton token id counter.
func TokenCounterKey() DataKey {
	return DataKey{spaceTokenCounter}
}

// PricingConfigKey returns the key for the singleton pricing configuration.
func PricingConfigKey() DataKey {
	return DataKey{spacePricingConfig}
}

// TierKey returns the key for the tier with the given symbol.
func TierKey(symbol string) DataKey {
	k := make(DataKey, 0, 1+len(symbol))
	k = append(k, spaceTier)
	k = append(k, symbol...)
	return k
}

// TicketKey returns the key for the ticket with the given token id.
func TicketKey(id uint32) DataKey {
	k := make(DataKey, 5)
	k[0] = spaceTicket
	binary.BigEndian.PutUint32(k[1:], id)
	return k
}
