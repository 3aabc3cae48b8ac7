package sqlite

import "doccopy/internal/warehouse"

func init() {
	// registers the SQLite backend factory
	warehouse.Register("sqlite", New)
}
