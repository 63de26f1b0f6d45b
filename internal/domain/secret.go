package domain

// Secret is a named sensitive value usable in `[[NAME]]` interpolation
// (spec §4.4). Unlike the listed resource kinds it carries no tags/config;
// its value is stored encrypted at rest (internal/store) and only ever
// decrypted at interpolation time.
type Secret struct {
	Meta
	// Value holds plaintext only in memory between decryption and
	// interpolation; it is never the JSON shape persisted to storage.
	Value string `json:"-"`
}
