package mssql

import "doccopy/internal/warehouse"

func init() {
	// registers the SQL Server backend factory
	warehouse.Register("mssql", New)
}
