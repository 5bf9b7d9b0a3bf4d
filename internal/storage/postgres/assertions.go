package postgres

import (
	"github.com/tinoosan/voucherdesk/internal/service/account"
	"github.com/tinoosan/voucherdesk/internal/service/voucher"
)

var (
	_ voucher.Repo   = (*Store)(nil)
	_ voucher.Writer = (*Store)(nil)
	_ account.Repo   = (*Store)(nil)
	_ account.Writer = (*Store)(nil)
)
