package httpapi

import (
	"github.com/tinoosan/bookkeeper/internal/storage/memory"
	"github.com/tinoosan/bookkeeper/internal/storage/postgres"
	"github.com/tinoosan/bookkeeper/internal/storage/sqlite"
)

// Every store profile must satisfy the Store union the server is built on.
var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)
