package postgres

import "doccopy/internal/warehouse"

func init() {
	// registers the Postgres backend factory
	warehouse.Register("postgres", New)
}
