// Package all registers every warehouse backend with the factory registry.
// Binaries blank-import it; the config selects which backend actually runs.
package all

import (
	_ "doccopy/internal/warehouse/mssql"
	_ "doccopy/internal/warehouse/postgres"
	_ "doccopy/internal/warehouse/sqlite"
)
