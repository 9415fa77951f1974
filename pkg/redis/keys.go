package redis

import "strings"

const keyNamespace = "sf"

// key joins non-empty parts under the storefront namespace, e.g.
// "sf:idempotency:<scope>:<id>".
func key(parts ...string) string {
	out := []string{keyNamespace}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, ":")
}

// IdempotencyKey names the stored response of one client write.
func (c *Client) IdempotencyKey(scope, id string) string {
	return key("idempotency", scope, id)
}

// ShippingRatesKey names the hash of cached rate layers for a vendor, one
// field per destination country.
func (c *Client) ShippingRatesKey(vendorID string) string {
	return key("shipping_rates", vendorID)
}

// ShippingRatesGenerationKey names the counter bumped on every rate edit of a
// vendor. It outlives the hash so a racing fill can tell it is stale.
func (c *Client) ShippingRatesGenerationKey(vendorID string) string {
	return key("shipping_rates", vendorID, "gen")
}

// CronLockKey names the lock that serializes maintenance cycles per
// environment.
func CronLockKey(env string) string {
	if env = strings.TrimSpace(env); env == "" {
		env = "local"
	}
	return key("cron", env, "lock")
}
