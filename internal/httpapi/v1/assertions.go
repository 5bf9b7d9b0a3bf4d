package v1

import (
    "github.com/tinoosan/voucherdesk/internal/storage/memory"
    "github.com/tinoosan/voucherdesk/internal/storage/postgres"
)

// Compile-time checks that both stores can back /readyz.
var (
    _ ReadyChecker = (*memory.Store)(nil)
    _ ReadyChecker = (*postgres.Store)(nil)
)
