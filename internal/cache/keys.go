package cache

import "time"

const (
	// WSTicketPrefix namespaces single-use websocket handshake tickets.
	WSTicketPrefix = "ws_ticket:"
	// BlacklistPrefix namespaces revoked JWT IDs.
	BlacklistPrefix = "blacklist:"
)

const (
	// WSTicketTTL bounds how long an issued ticket can be redeemed.
	WSTicketTTL = 30 * time.Second
	// BlacklistTTL matches the JWT lifetime so revoked tokens stay dead
	// until they would have expired anyway.
	BlacklistTTL = 7 * 24 * time.Hour
)

// WSTicketKey returns the Redis key for a websocket ticket.
func WSTicketKey(ticket string) string {
	return WSTicketPrefix + ticket
}

// BlacklistKey returns the Redis key for a revoked JWT ID.
func BlacklistKey(jti string) string {
	return BlacklistPrefix + jti
}
