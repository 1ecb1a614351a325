package sqlite

import (
	"github.com/tinoosan/bookkeeper/internal/service/registry"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
)

var (
	_ transfer.Repo          = (*Store)(nil)
	_ transfer.AccountReader = (*Store)(nil)
	_ transfer.Writer        = (*Store)(nil)
	_ registry.Repo          = (*Store)(nil)
	_ registry.Writer        = (*Store)(nil)
)
