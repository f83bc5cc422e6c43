package accountclient

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// AnyCapability grants every capability to an admin in Static.
const AnyCapability = "*"

var ErrUnknownAccount = errors.New("unknown account")

// Static answers from fixed tables. Unknown users fail rather than
// defaulting to a zero balance.
type Static struct {
	Balances map[string]decimal.Decimal
	Admins   map[string][]string
}

func (s *Static) GetAccountBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	b, ok := s.Balances[userID]
	if !ok {
		return decimal.Zero, ErrUnknownAccount
	}
	return b, nil
}

func (s *Static) HasPermission(_ context.Context, adminID, capability string) (bool, error) {
	for _, c := range s.Admins[adminID] {
		if c == capability || c == AnyCapability {
			return true, nil
		}
	}
	return false, nil
}
