package memory

import (
	"github.com/tinoosan/bookkeeper/internal/service/registry"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ transfer.Repo          = (*Store)(nil)
	_ transfer.AccountReader = (*Store)(nil)
	_ transfer.Writer        = (*Store)(nil)
	_ registry.Repo          = (*Store)(nil)
	_ registry.Writer        = (*Store)(nil)
)
