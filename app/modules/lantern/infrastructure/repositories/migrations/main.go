package lanternmigrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()

func init() {
	// Migration IDs come from the file names of the registering callers.
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}
